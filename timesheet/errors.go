package timesheet

import "errors"

// Error kinds surfaced to the presentation layer. Everything except
// ErrStorage is a user-correctable condition; ErrStorage means the backing
// store failed and the operation may be retried as-is.
var (
	ErrFormat        = errors.New("malformed input")
	ErrAlreadyOpen   = errors.New("shift already open")
	ErrNoOpenShift   = errors.New("no open shift")
	ErrConflict      = errors.New("open record already exists")
	ErrDuplicateDate = errors.New("date already has a record")
	ErrAlreadyClosed = errors.New("record already closed")
	ErrRecordNotOpen = errors.New("record is not open")
	ErrStorage       = errors.New("storage failure")
)

func isDomainErr(err error) bool {
	for _, kind := range []error{
		ErrFormat,
		ErrAlreadyOpen,
		ErrNoOpenShift,
		ErrConflict,
		ErrDuplicateDate,
		ErrAlreadyClosed,
		ErrRecordNotOpen,
		ErrStorage,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
