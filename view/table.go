package view

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"timesheet/timesheet"
)

type Viewer interface {
	Do(userID int64, yearMonth string) error
}

type tableViewer struct {
	repo ViewRepository
}

func NewTableViewer(repo ViewRepository) Viewer {
	return &tableViewer{repo: repo}
}

func (t *tableViewer) Do(userID int64, yearMonth string) error {
	report, err := t.repo.ListMonth(userID, yearMonth)
	if err != nil {
		return err
	}
	buildMonthTable(report).Render()
	return nil
}

func buildMonthTable(report monthReportForView) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Date", "Clock in", "Clock out", "Lunch", "Hours"})

	var monthTotal float64
	for _, day := range report {
		if len(day.Records) == 0 {
			t.AppendRow(table.Row{day.Date, "", "", "", ""})
			continue
		}
		for _, rec := range day.Records {
			monthTotal += closedHours(rec)
			t.AppendRow(table.Row{
				day.Date,
				rec.TimeIn,
				ptrStringOr(rec.TimeOut, "--:--"),
				LunchCell(rec),
				hoursCell(rec),
			})
		}
	}
	t.AppendFooter(table.Row{"", "", "", "total", fmt.Sprintf("%.2f", monthTotal)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
	})
	t.SetStyle(table.StyleRounded)
	return t
}

// RenderBreakdown prints today's itemized report the way the chat bot
// renders it: one line per shift, incomplete shifts flagged, day total last.
func RenderBreakdown(day timesheet.DayReport) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"#", "Clock in", "Clock out", "Lunch", "Hours"})
	for i, entry := range day.Entries {
		out := "--:--"
		hours := "incomplete"
		if !entry.Incomplete() {
			out = *entry.TimeOut
			if entry.Hours != nil {
				hours = fmt.Sprintf("%.2f", *entry.Hours)
			}
		}
		t.AppendRow(table.Row{i + 1, entry.TimeIn, out, entry.LunchSummary, hours})
	}
	t.AppendFooter(table.Row{"", "", "", "total", fmt.Sprintf("%.2f", day.TotalHours)})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func LunchCell(rec timesheet.Record) string {
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

func hoursCell(rec timesheet.Record) string {
	if rec.TotalHours == nil {
		return "incomplete"
	}
	return fmt.Sprintf("%.2f", *rec.TotalHours)
}

func closedHours(rec timesheet.Record) float64 {
	if rec.TotalHours == nil {
		return 0
	}
	return *rec.TotalHours
}

func ptrStringOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
