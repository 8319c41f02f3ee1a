package timesheet

import (
	"fmt"
	"math"
	"time"
)

const (
	minutesPerDay = 24 * 60

	// Lunch is deducted only from shifts strictly longer than this.
	lunchThresholdHours = 4.0
)

// ClockTime is a wall-clock time of day without a date attached.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses a strict 24-hour "HH:MM" string. Anything else,
// including single-digit hours, fails with ErrFormat.
func ParseClock(s string) (ClockTime, error) {
	if len(s) != 5 || s[2] != ':' {
		return ClockTime{}, fmt.Errorf("%w: time %q is not HH:MM", ErrFormat, s)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return ClockTime{}, fmt.Errorf("%w: time %q is not HH:MM", ErrFormat, s)
		}
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return ClockTime{}, fmt.Errorf("%w: time %q is out of range", ErrFormat, s)
	}
	return ClockTime{Hour: h, Minute: m}, nil
}

func (c ClockTime) TotalMinutes() int {
	return c.Hour*60 + c.Minute
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// ElapsedHours returns the hours between in and out, rounded to two
// decimals. out before in means the clock wrapped past midnight, so out is
// taken as next-day; shifts longer than a day are not representable.
func ElapsedHours(in, out ClockTime) float64 {
	mins := out.TotalMinutes() - in.TotalMinutes()
	if mins < 0 {
		mins += minutesPerDay
	}
	return round2(float64(mins) / 60)
}

// ApplyLunch deducts the reported lunch break from gross hours. The
// deduction fires only when gross exceeds the threshold: short shifts keep
// their gross hours even when a lunch was reported. A complete start/end
// pair wins over a raw minutes value when both are present. The pair is
// overnight-safe like ElapsedHours. The result is floored at zero and
// rounded to two decimals.
func ApplyLunch(gross float64, lunchStart, lunchEnd *ClockTime, lunchMinutes *int) (float64, bool) {
	if gross <= lunchThresholdHours {
		return round2(gross), false
	}

	var deduct float64
	switch {
	case lunchStart != nil && lunchEnd != nil:
		deduct = ElapsedHours(*lunchStart, *lunchEnd)
	case lunchMinutes != nil:
		deduct = float64(*lunchMinutes) / 60
	default:
		return round2(gross), false
	}

	net := gross - deduct
	if net < 0 {
		net = 0
	}
	return round2(net), true
}

const dateLayout = "2006-01-02"

// Date is a calendar day in "YYYY-MM-DD" form. The string form sorts
// chronologically, which the repository relies on for range queries.
type Date string

// ParseDate parses a strict "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrFormat, s)
	}
	return DateOf(t), nil
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

func (d Date) Time() time.Time {
	t, _ := time.Parse(dateLayout, string(d))
	return t
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func round2(h float64) float64 {
	return math.Round(h*100) / 100
}
