package timesheet

import "fmt"

// Record is one shift instance. A nil TimeOut means the shift is open;
// TotalHours and LunchApplied are set only when it closes. Lunch may be
// reported either as a start/end pair or as raw minutes; both fields exist
// because the schema carried both shapes over time.
type Record struct {
	ID           int64    `json:"id"`
	UserID       int64    `json:"user_id"`
	Date         Date     `json:"date"`
	TimeIn       string   `json:"time_in"`
	TimeOut      *string  `json:"time_out,omitempty"`
	LunchStart   *string  `json:"lunch_start,omitempty"`
	LunchEnd     *string  `json:"lunch_end,omitempty"`
	LunchMinutes *int     `json:"lunch_minutes,omitempty"`
	LunchApplied bool     `json:"lunch_applied,omitempty"`
	TotalHours   *float64 `json:"total_hours,omitempty"`
}

func (r *Record) Open() bool {
	return r.TimeOut == nil
}

// lunchDeduction parses the stored lunch fields into the form ApplyLunch
// takes. Stored fields are validated on the way in, so a parse failure here
// means the record was corrupted outside the engine.
func (r *Record) lunchDeduction() (start, end *ClockTime, minutes *int, err error) {
	if r.LunchStart != nil {
		c, err := ParseClock(*r.LunchStart)
		if err != nil {
			return nil, nil, nil, err
		}
		start = &c
	}
	if r.LunchEnd != nil {
		c, err := ParseClock(*r.LunchEnd)
		if err != nil {
			return nil, nil, nil, err
		}
		end = &c
	}
	return start, end, r.LunchMinutes, nil
}

// LunchEntry is one lunch report from the user. Fields left nil are not
// touched on the record, so a start can be reported first and the end
// later, the way the chat flow submits them.
type LunchEntry struct {
	Start   *string
	End     *string
	Minutes *int
}

func (l LunchEntry) Empty() bool {
	return l.Start == nil && l.End == nil && l.Minutes == nil
}

func (l LunchEntry) Validate() error {
	if l.Empty() {
		return fmt.Errorf("%w: no lunch value given", ErrFormat)
	}
	for _, s := range []*string{l.Start, l.End} {
		if s == nil {
			continue
		}
		if _, err := ParseClock(*s); err != nil {
			return err
		}
	}
	if l.Minutes != nil && *l.Minutes < 0 {
		return fmt.Errorf("%w: lunch minutes must not be negative", ErrFormat)
	}
	return nil
}

// applyTo overwrites the record's lunch fields with the entry's non-nil
// ones. Later entries win field by field.
func (l LunchEntry) applyTo(r *Record) {
	if l.Start != nil {
		r.LunchStart = l.Start
	}
	if l.End != nil {
		r.LunchEnd = l.End
	}
	if l.Minutes != nil {
		r.LunchMinutes = l.Minutes
	}
}
