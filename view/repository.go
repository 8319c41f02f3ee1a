package view

import (
	"fmt"
	"time"

	"timesheet/timesheet"
)

type ViewRepository interface {
	ListMonth(userID int64, yearMonth string) (monthReportForView, error)
}

type viewRepository struct {
	repo timesheet.RecordRepository
}

func NewViewRepository(repo timesheet.RecordRepository) ViewRepository {
	return &viewRepository{repo}
}

func (r *viewRepository) ListMonth(userID int64, yearMonth string) (monthReportForView, error) {
	monthStart, monthEnd, err := getMonthStartEnd(yearMonth)
	if err != nil {
		return nil, err
	}

	var report monthReportForView
	for d := monthStart; !d.After(monthEnd); d = d.AddDate(0, 0, 1) {
		date := timesheet.DateOf(d)
		recs, err := r.repo.DetailsForDate(userID, date)
		if err != nil {
			return nil, err
		}
		report = append(report, struct {
			Date    timesheet.Date
			Records []timesheet.Record
		}{Date: date, Records: recs})
	}

	return report, nil
}

func getMonthStartEnd(yearMonth string) (time.Time, time.Time, error) {
	monthStart, err := time.Parse("2006-01", yearMonth)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q, ex: 2024-03", yearMonth)
	}
	monthEnd := monthStart.AddDate(0, 1, 0).AddDate(0, 0, -1)
	return monthStart, monthEnd, nil
}

type monthReportForView []struct {
	Date    timesheet.Date
	Records []timesheet.Record
}

type flattenedMonthRow struct {
	Date   timesheet.Date
	Record *timesheet.Record
}

func (r monthReportForView) Flatten() []flattenedMonthRow {
	rows := make([]flattenedMonthRow, 0)
	for _, day := range r {
		if len(day.Records) == 0 {
			rows = append(rows, flattenedMonthRow{day.Date, nil})
			continue
		}
		for i := range day.Records {
			rows = append(rows, flattenedMonthRow{day.Date, &day.Records[i]})
		}
	}
	return rows
}
