package timesheet

import (
	"fmt"
	"time"
)

type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodYear:
		return Period(s), nil
	}
	return "", fmt.Errorf("%w: period %q (want today, week, month or year)", ErrFormat, s)
}

// Reporter aggregates closed records into period totals and the itemized
// view of today. Open records never count, not even partially.
type Reporter struct {
	repo RecordRepository
	now  func() time.Time
}

func NewReporter(repo RecordRepository) *Reporter {
	return &Reporter{repo: repo, now: time.Now}
}

// TotalForPeriod sums total hours over the period's date window.
// Week is the calendar Monday-to-Sunday week containing today, month the
// calendar month, and year a rolling 365-day window ending today.
func (r *Reporter) TotalForPeriod(userID int64, p Period) (float64, error) {
	from, to := periodRange(r.now(), p)
	return r.repo.TotalsForRange(userID, from, to)
}

func periodRange(now time.Time, p Period) (Date, Date) {
	today := DateOf(now)
	switch p {
	case PeriodWeek:
		wd := int(now.Weekday())
		if wd == 0 {
			wd = 7
		}
		monday := today.AddDays(-(wd - 1))
		return monday, monday.AddDays(6)
	case PeriodMonth:
		first := DateOf(time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()))
		last := DateOf(time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()))
		return first, last
	case PeriodYear:
		return today.AddDays(-365), today
	default:
		return today, today
	}
}

// BreakdownEntry is one shift in today's itemized report. A nil TimeOut
// marks the entry incomplete; it contributes nothing to the day total.
type BreakdownEntry struct {
	TimeIn       string
	TimeOut      *string
	LunchSummary string
	Hours        *float64
}

func (e BreakdownEntry) Incomplete() bool {
	return e.TimeOut == nil
}

type DayReport struct {
	Date       Date
	Entries    []BreakdownEntry
	TotalHours float64
}

// TodayBreakdown lists today's shifts ordered by clock-in time.
func (r *Reporter) TodayBreakdown(userID int64) (DayReport, error) {
	date := DateOf(r.now())
	recs, err := r.repo.DetailsForDate(userID, date)
	if err != nil {
		return DayReport{}, err
	}

	report := DayReport{Date: date}
	for _, rec := range recs {
		entry := BreakdownEntry{
			TimeIn:       rec.TimeIn,
			TimeOut:      rec.TimeOut,
			LunchSummary: lunchSummary(rec),
			Hours:        rec.TotalHours,
		}
		report.Entries = append(report.Entries, entry)
		if !rec.Open() && rec.TotalHours != nil {
			report.TotalHours = round2(report.TotalHours + *rec.TotalHours)
		}
	}
	return report, nil
}

func lunchSummary(rec Record) string {
	switch {
	case rec.LunchStart != nil && rec.LunchEnd != nil:
		return *rec.LunchStart + "-" + *rec.LunchEnd
	case rec.LunchStart != nil:
		return *rec.LunchStart + "-"
	case rec.LunchMinutes != nil:
		return fmt.Sprintf("%dm", *rec.LunchMinutes)
	}
	return ""
}
