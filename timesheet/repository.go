package timesheet

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/tidwall/buntdb"
)

// RecordRepository is durable storage for attendance records. It owns the
// open-record invariant: CreateOpen refuses a second open record for the
// same (user, date) inside the same write transaction that inserts, so two
// racing clock-ins cannot both succeed.
type RecordRepository interface {
	FindOpen(userID int64, date Date) (*Record, error)
	CreateOpen(userID int64, date Date, timeIn string) (Record, error)
	Close(rec Record) error
	SetLunch(rec Record) error
	InsertComplete(userID int64, date Date, timeIn, timeOut string, lunch LunchEntry) (Record, error)
	TotalsForRange(userID int64, from, to Date) (float64, error)
	DetailsForDate(userID int64, date Date) ([]Record, error)
}

func NewRecordRepository(db *buntdb.DB) RecordRepository {
	return &recordRepository{db: db}
}

type recordRepository struct {
	db *buntdb.DB
}

const seqKey = "seq:record"

func recordKey(userID int64, date Date, id int64) string {
	return fmt.Sprintf("record:%d:%s:%012d", userID, date, id)
}

func userDatePattern(userID int64, date Date) string {
	return fmt.Sprintf("record:%d:%s:*", userID, date)
}

func userPattern(userID int64) string {
	return fmt.Sprintf("record:%d:*", userID)
}

func (r *recordRepository) FindOpen(userID int64, date Date) (*Record, error) {
	var found *Record
	err := r.db.View(func(tx *buntdb.Tx) error {
		rec, err := findOpenTx(tx, userID, date)
		found = rec
		return err
	})
	if err != nil {
		return nil, storageErr(err)
	}
	return found, nil
}

func (r *recordRepository) CreateOpen(userID int64, date Date, timeIn string) (Record, error) {
	rec := Record{UserID: userID, Date: date, TimeIn: timeIn}
	err := r.db.Update(func(tx *buntdb.Tx) error {
		open, err := findOpenTx(tx, userID, date)
		if err != nil {
			return err
		}
		if open != nil {
			return fmt.Errorf("%w: user %d on %s", ErrConflict, userID, date)
		}
		rec.ID, err = nextID(tx)
		if err != nil {
			return err
		}
		return putRecord(tx, rec)
	})
	if err != nil {
		return Record{}, storageErr(err)
	}
	return rec, nil
}

func (r *recordRepository) Close(rec Record) error {
	err := r.db.Update(func(tx *buntdb.Tx) error {
		stored, err := getRecord(tx, rec.UserID, rec.Date, rec.ID)
		if err != nil {
			return err
		}
		if !stored.Open() {
			return fmt.Errorf("%w: record %d", ErrAlreadyClosed, rec.ID)
		}
		return putRecord(tx, rec)
	})
	return storageErr(err)
}

func (r *recordRepository) SetLunch(rec Record) error {
	err := r.db.Update(func(tx *buntdb.Tx) error {
		stored, err := getRecord(tx, rec.UserID, rec.Date, rec.ID)
		if err != nil {
			return err
		}
		if !stored.Open() {
			return fmt.Errorf("%w: record %d", ErrRecordNotOpen, rec.ID)
		}
		return putRecord(tx, rec)
	})
	return storageErr(err)
}

func (r *recordRepository) InsertComplete(userID int64, date Date, timeIn, timeOut string, lunch LunchEntry) (Record, error) {
	in, err := ParseClock(timeIn)
	if err != nil {
		return Record{}, err
	}
	out, err := ParseClock(timeOut)
	if err != nil {
		return Record{}, err
	}

	rec := Record{UserID: userID, Date: date, TimeIn: timeIn, TimeOut: &timeOut}
	lunch.applyTo(&rec)
	start, end, minutes, err := rec.lunchDeduction()
	if err != nil {
		return Record{}, err
	}
	total, applied := ApplyLunch(ElapsedHours(in, out), start, end, minutes)
	rec.TotalHours = &total
	rec.LunchApplied = applied

	err = r.db.Update(func(tx *buntdb.Tx) error {
		taken := false
		if err := tx.AscendKeys(userDatePattern(userID, date), func(key, value string) bool {
			taken = true
			return false
		}); err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: user %d on %s", ErrDuplicateDate, userID, date)
		}
		id, err := nextID(tx)
		if err != nil {
			return err
		}
		rec.ID = id
		return putRecord(tx, rec)
	})
	if err != nil {
		return Record{}, storageErr(err)
	}
	return rec, nil
}

func (r *recordRepository) TotalsForRange(userID int64, from, to Date) (float64, error) {
	var total float64
	err := r.db.View(func(tx *buntdb.Tx) error {
		var iterErr error
		err := tx.AscendKeys(userPattern(userID), func(key, value string) bool {
			var rec Record
			if iterErr = json.Unmarshal([]byte(value), &rec); iterErr != nil {
				return false
			}
			if rec.Open() || rec.TotalHours == nil {
				return true
			}
			if rec.Date < from || rec.Date > to {
				return true
			}
			total += *rec.TotalHours
			return true
		})
		if err != nil {
			return err
		}
		return iterErr
	})
	if err != nil {
		return 0, storageErr(err)
	}
	return round2(total), nil
}

func (r *recordRepository) DetailsForDate(userID int64, date Date) ([]Record, error) {
	var recs []Record
	err := r.db.View(func(tx *buntdb.Tx) error {
		var iterErr error
		err := tx.AscendKeys(userDatePattern(userID, date), func(key, value string) bool {
			var rec Record
			if iterErr = json.Unmarshal([]byte(value), &rec); iterErr != nil {
				return false
			}
			recs = append(recs, rec)
			return true
		})
		if err != nil {
			return err
		}
		return iterErr
	})
	if err != nil {
		return nil, storageErr(err)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].TimeIn != recs[j].TimeIn {
			return recs[i].TimeIn < recs[j].TimeIn
		}
		return recs[i].ID < recs[j].ID
	})
	return recs, nil
}

func findOpenTx(tx *buntdb.Tx, userID int64, date Date) (*Record, error) {
	var found *Record
	var iterErr error
	err := tx.AscendKeys(userDatePattern(userID, date), func(key, value string) bool {
		var rec Record
		if iterErr = json.Unmarshal([]byte(value), &rec); iterErr != nil {
			return false
		}
		if rec.Open() {
			found = &rec
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return found, iterErr
}

func getRecord(tx *buntdb.Tx, userID int64, date Date, id int64) (Record, error) {
	v, err := tx.Get(recordKey(userID, date, id))
	if err != nil {
		return Record{}, err
	}
	var rec Record
	if err := json.Unmarshal([]byte(v), &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func putRecord(tx *buntdb.Tx, rec Record) error {
	bs, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, _, err = tx.Set(recordKey(rec.UserID, rec.Date, rec.ID), string(bs), nil)
	return err
}

func nextID(tx *buntdb.Tx) (int64, error) {
	id := int64(1)
	v, err := tx.Get(seqKey)
	if err == nil {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			return 0, perr
		}
		id = n + 1
	} else if !errors.Is(err, buntdb.ErrNotFound) {
		return 0, err
	}
	if _, _, err := tx.Set(seqKey, strconv.FormatInt(id, 10), nil); err != nil {
		return 0, err
	}
	return id, nil
}

// storageErr keeps domain error kinds intact and folds everything else,
// buntdb failures included, into ErrStorage.
func storageErr(err error) error {
	if err == nil || isDomainErr(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
