package timesheet

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Engine is the per-user day state machine: NoShift -> Open -> Closed.
// The open record itself is the state; nothing is tracked beside the store.
type Engine struct {
	repo   RecordRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewEngine(repo RecordRepository, logger *slog.Logger) *Engine {
	return &Engine{repo: repo, logger: logger, now: time.Now}
}

// ClockIn opens a shift for today. It refuses while the user still has an
// open shift, today's or an overnight one from yesterday.
func (e *Engine) ClockIn(userID int64, timeIn string) (Record, error) {
	if _, err := ParseClock(timeIn); err != nil {
		return Record{}, err
	}

	open, err := e.findOpenShift(userID)
	if err != nil {
		return Record{}, err
	}
	if open != nil {
		return Record{}, fmt.Errorf("%w: shift started at %s on %s", ErrAlreadyOpen, open.TimeIn, open.Date)
	}

	rec, err := e.repo.CreateOpen(userID, e.today(), timeIn)
	if errors.Is(err, ErrConflict) {
		// Lost a race with another clock-in for the same day.
		return Record{}, fmt.Errorf("%w: %v", ErrAlreadyOpen, err)
	}
	if err != nil {
		return Record{}, err
	}

	e.logger.Debug("clock in", slog.Int64("user", userID), slog.String("date", string(rec.Date)), slog.String("time_in", timeIn))
	return rec, nil
}

// RecordLunch stores a lunch report on the open shift. Fields merge into
// whatever was reported before, so start and end may arrive separately.
// Repeated reports overwrite; the deduction is computed once, at clock-out.
func (e *Engine) RecordLunch(userID int64, lunch LunchEntry) (Record, error) {
	if err := lunch.Validate(); err != nil {
		return Record{}, err
	}

	rec, err := e.findOpenShift(userID)
	if err != nil {
		return Record{}, err
	}
	if rec == nil {
		return Record{}, fmt.Errorf("%w: user %d", ErrNoOpenShift, userID)
	}

	lunch.applyTo(rec)
	if err := e.repo.SetLunch(*rec); err != nil {
		return Record{}, err
	}

	e.logger.Debug("record lunch", slog.Int64("user", userID), slog.String("date", string(rec.Date)))
	return *rec, nil
}

// ClockOut closes the open shift and freezes its total hours. The shift
// stays attributed to its clock-in day: a post-midnight clock-out reaches
// yesterday's open record and the elapsed time wraps accordingly.
func (e *Engine) ClockOut(userID int64, timeOut string) (Record, error) {
	out, err := ParseClock(timeOut)
	if err != nil {
		return Record{}, err
	}

	rec, err := e.findOpenShift(userID)
	if err != nil {
		return Record{}, err
	}
	if rec == nil {
		return Record{}, fmt.Errorf("%w: user %d", ErrNoOpenShift, userID)
	}

	in, err := ParseClock(rec.TimeIn)
	if err != nil {
		return Record{}, fmt.Errorf("%w: stored time_in %q: %v", ErrStorage, rec.TimeIn, err)
	}
	start, end, minutes, err := rec.lunchDeduction()
	if err != nil {
		return Record{}, fmt.Errorf("%w: stored lunch fields: %v", ErrStorage, err)
	}

	total, applied := ApplyLunch(ElapsedHours(in, out), start, end, minutes)
	rec.TimeOut = &timeOut
	rec.TotalHours = &total
	rec.LunchApplied = applied

	if err := e.repo.Close(*rec); err != nil {
		return Record{}, err
	}

	e.logger.Debug("clock out",
		slog.Int64("user", userID),
		slog.String("date", string(rec.Date)),
		slog.String("time_out", timeOut),
		slog.Float64("total_hours", total),
		slog.Bool("lunch_applied", applied))
	return *rec, nil
}

// InsertBackfill records a finished shift on a past date in one step. The
// date must have no record yet, open or closed.
func (e *Engine) InsertBackfill(userID int64, date, timeIn, timeOut string, lunch LunchEntry) (Record, error) {
	d, err := ParseDate(date)
	if err != nil {
		return Record{}, err
	}
	if _, err := ParseClock(timeIn); err != nil {
		return Record{}, err
	}
	if _, err := ParseClock(timeOut); err != nil {
		return Record{}, err
	}
	if !lunch.Empty() {
		if err := lunch.Validate(); err != nil {
			return Record{}, err
		}
	}

	rec, err := e.repo.InsertComplete(userID, d, timeIn, timeOut, lunch)
	if err != nil {
		return Record{}, err
	}

	e.logger.Debug("backfill", slog.Int64("user", userID), slog.String("date", string(d)), slog.Float64("total_hours", *rec.TotalHours))
	return rec, nil
}

func (e *Engine) today() Date {
	return DateOf(e.now())
}

// findOpenShift looks for the user's open record on today's date, then on
// yesterday's to cover shifts running past midnight.
func (e *Engine) findOpenShift(userID int64) (*Record, error) {
	today := e.today()
	rec, err := e.repo.FindOpen(userID, today)
	if err != nil || rec != nil {
		return rec, err
	}
	return e.repo.FindOpen(userID, today.AddDays(-1))
}
