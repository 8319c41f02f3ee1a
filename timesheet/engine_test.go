package timesheet

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/tidwall/buntdb"
)

// 2026-03-11 is a Wednesday.
var testNow = time.Date(2026, 3, 11, 10, 0, 0, 0, time.Local)

func newTestEngine(t *testing.T) (*Engine, RecordRepository) {
	t.Helper()
	db, err := buntdb.Open(":memory:")
	if err != nil {
		t.Fatalf("buntdb.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := NewRecordRepository(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := NewEngine(repo, logger)
	e.now = func() time.Time { return testNow }
	return e, repo
}

func TestClockInOutWithLunchMinutes(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	if _, err := e.ClockIn(1, "09:00"); err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	if _, err := e.RecordLunch(1, LunchEntry{Minutes: intPtr(60)}); err != nil {
		t.Fatalf("RecordLunch: %v", err)
	}
	rec, err := e.ClockOut(1, "18:00")
	if err != nil {
		t.Fatalf("ClockOut: %v", err)
	}
	if *rec.TotalHours != 8.0 || !rec.LunchApplied {
		t.Errorf("ClockOut = %+v, want 8.00 hours with lunch applied", rec)
	}
}

func TestShortShiftKeepsGross(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	if _, err := e.ClockIn(1, "09:00"); err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	rec, err := e.ClockOut(1, "12:30")
	if err != nil {
		t.Fatalf("ClockOut: %v", err)
	}
	if *rec.TotalHours != 3.5 || rec.LunchApplied {
		t.Errorf("ClockOut = %+v, want 3.5 hours, no lunch", rec)
	}
}

func TestClockInWhileOpen(t *testing.T) {
	t.Parallel()
	e, repo := newTestEngine(t)

	if _, err := e.ClockIn(1, "09:00"); err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	if _, err := e.ClockIn(1, "10:00"); !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("second ClockIn: want ErrAlreadyOpen, got %v", err)
	}

	// The original record is untouched.
	open, err := repo.FindOpen(1, DateOf(testNow))
	if err != nil || open == nil || open.TimeIn != "09:00" {
		t.Errorf("FindOpen = (%+v, %v), want open record at 09:00", open, err)
	}
}

func TestClockOutWithoutOpen(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	if _, err := e.ClockOut(1, "18:00"); !errors.Is(err, ErrNoOpenShift) {
		t.Errorf("ClockOut: want ErrNoOpenShift, got %v", err)
	}
	if _, err := e.RecordLunch(1, LunchEntry{Minutes: intPtr(30)}); !errors.Is(err, ErrNoOpenShift) {
		t.Errorf("RecordLunch: want ErrNoOpenShift, got %v", err)
	}
}

func TestSecondClockOut(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	if _, err := e.ClockIn(1, "09:00"); err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	rec, err := e.ClockOut(1, "17:00")
	if err != nil {
		t.Fatalf("ClockOut: %v", err)
	}
	if _, err := e.ClockOut(1, "18:00"); !errors.Is(err, ErrNoOpenShift) {
		t.Errorf("second ClockOut: want ErrNoOpenShift, got %v", err)
	}

	// Total hours frozen at the first clock-out.
	recs, err := e.repo.DetailsForDate(1, rec.Date)
	if err != nil || len(recs) != 1 {
		t.Fatalf("DetailsForDate = (%v, %v)", recs, err)
	}
	if *recs[0].TotalHours != *rec.TotalHours {
		t.Errorf("total changed after failed second clock-out: %v != %v", *recs[0].TotalHours, *rec.TotalHours)
	}
}

func TestMalformedInputMutatesNothing(t *testing.T) {
	t.Parallel()
	e, repo := newTestEngine(t)

	if _, err := e.ClockIn(1, "25:61"); !errors.Is(err, ErrFormat) {
		t.Errorf("ClockIn(25:61): want ErrFormat, got %v", err)
	}
	if open, err := repo.FindOpen(1, DateOf(testNow)); err != nil || open != nil {
		t.Errorf("record created from malformed input: (%+v, %v)", open, err)
	}

	if _, err := e.ClockIn(1, "09:00"); err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	if _, err := e.RecordLunch(1, LunchEntry{Start: strPtr("13:99")}); !errors.Is(err, ErrFormat) {
		t.Errorf("RecordLunch(13:99): want ErrFormat, got %v", err)
	}
	if _, err := e.RecordLunch(1, LunchEntry{Minutes: intPtr(-5)}); !errors.Is(err, ErrFormat) {
		t.Errorf("RecordLunch(-5m): want ErrFormat, got %v", err)
	}
	if _, err := e.RecordLunch(1, LunchEntry{}); !errors.Is(err, ErrFormat) {
		t.Errorf("RecordLunch(empty): want ErrFormat, got %v", err)
	}
}

func TestLunchMergesAcrossReports(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	if _, err := e.ClockIn(1, "09:00"); err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	// Start and end reported separately, the way the chat flow does.
	if _, err := e.RecordLunch(1, LunchEntry{Start: strPtr("13:00")}); err != nil {
		t.Fatalf("RecordLunch(start): %v", err)
	}
	rec, err := e.RecordLunch(1, LunchEntry{End: strPtr("14:00")})
	if err != nil {
		t.Fatalf("RecordLunch(end): %v", err)
	}
	if rec.LunchStart == nil || *rec.LunchStart != "13:00" || rec.LunchEnd == nil || *rec.LunchEnd != "14:00" {
		t.Fatalf("lunch fields did not merge: %+v", rec)
	}

	out, err := e.ClockOut(1, "18:00")
	if err != nil {
		t.Fatalf("ClockOut: %v", err)
	}
	if *out.TotalHours != 8.0 || !out.LunchApplied {
		t.Errorf("ClockOut = %+v, want 8.0 hours with lunch applied", out)
	}
}

func TestOvernightClockOut(t *testing.T) {
	t.Parallel()
	e, repo := newTestEngine(t)

	if _, err := e.ClockIn(1, "23:00"); err != nil {
		t.Fatalf("ClockIn: %v", err)
	}

	// Past midnight: the open record lives on yesterday's date.
	e.now = func() time.Time { return testNow.AddDate(0, 0, 1) }

	rec, err := e.ClockOut(1, "01:00")
	if err != nil {
		t.Fatalf("ClockOut: %v", err)
	}
	if rec.Date != DateOf(testNow) {
		t.Errorf("shift attributed to %s, want clock-in day %s", rec.Date, DateOf(testNow))
	}
	if *rec.TotalHours != 2.0 {
		t.Errorf("TotalHours = %v, want 2.0", *rec.TotalHours)
	}
	if open, err := repo.FindOpen(1, DateOf(testNow)); err != nil || open != nil {
		t.Errorf("record still open after overnight clock-out: (%+v, %v)", open, err)
	}
}

func TestClockInBlockedByOvernightShift(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	if _, err := e.ClockIn(1, "23:00"); err != nil {
		t.Fatalf("ClockIn: %v", err)
	}
	e.now = func() time.Time { return testNow.AddDate(0, 0, 1) }

	if _, err := e.ClockIn(1, "09:00"); !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("ClockIn with overnight shift open: want ErrAlreadyOpen, got %v", err)
	}
}

func TestInsertBackfill(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	rec, err := e.InsertBackfill(1, "2026-03-02", "09:00", "18:00", LunchEntry{Start: strPtr("13:00"), End: strPtr("13:30")})
	if err != nil {
		t.Fatalf("InsertBackfill: %v", err)
	}
	if *rec.TotalHours != 8.5 || !rec.LunchApplied {
		t.Errorf("InsertBackfill = %+v, want 8.5 hours with lunch applied", rec)
	}

	if _, err := e.InsertBackfill(1, "2026-03-02", "19:00", "20:00", LunchEntry{}); !errors.Is(err, ErrDuplicateDate) {
		t.Errorf("duplicate backfill: want ErrDuplicateDate, got %v", err)
	}
	if _, err := e.InsertBackfill(1, "2026-3-2", "09:00", "18:00", LunchEntry{}); !errors.Is(err, ErrFormat) {
		t.Errorf("malformed date: want ErrFormat, got %v", err)
	}
}

func TestConcurrentClockIn(t *testing.T) {
	t.Parallel()
	e, _ := newTestEngine(t)

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = e.ClockIn(1, "09:00")
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrAlreadyOpen):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d clock-ins succeeded, want exactly 1", succeeded)
	}
}
