package view

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// NewTUI returns an interactive month browser. Navigation only: records are
// reported through the engine, not edited here.
func NewTUI(repo ViewRepository, logger *slog.Logger) Viewer {
	return &tui{
		repo:   repo,
		logger: logger,
	}
}

type tui struct {
	repo   ViewRepository
	logger *slog.Logger

	app *tview.Application
}

func (t *tui) Do(userID int64, yearMonth string) error {
	if _, err := time.Parse("2006-01", yearMonth); err != nil {
		return fmt.Errorf("invalid month %q, ex: 2024-03", yearMonth)
	}

	t.app = tview.NewApplication()
	table := tview.NewTable().SetFixed(1, 0).SetSelectable(true, false)

	month := yearMonth
	if err := t.fillTable(table, userID, month); err != nil {
		return err
	}

	table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'q':
			t.app.Stop()
			return nil
		case 'h':
			month = shiftMonth(month, -1)
		case 'l':
			month = shiftMonth(month, 1)
		default:
			return event
		}
		if err := t.fillTable(table, userID, month); err != nil {
			t.logger.Error("failed to reload month", slog.String("month", month), slog.Any("error", err))
		}
		return nil
	})

	flex := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(table, 0, 1, true)

	return t.app.SetRoot(flex, true).Run()
}

func (t *tui) fillTable(table *tview.Table, userID int64, yearMonth string) error {
	report, err := t.repo.ListMonth(userID, yearMonth)
	if err != nil {
		return err
	}

	table.Clear()
	headers := []string{"Date", "Clock in", "Clock out", "Lunch", "Hours"}
	for col, h := range headers {
		table.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false).
			SetExpansion(1))
	}

	for row, r := range report.Flatten() {
		cells := []string{string(r.Date), "", "", "", ""}
		if r.Record != nil {
			rec := *r.Record
			cells[1] = rec.TimeIn
			cells[2] = ptrStringOr(rec.TimeOut, "--:--")
			cells[3] = LunchCell(rec)
			cells[4] = hoursCell(rec)
		}
		for col, c := range cells {
			table.SetCell(row+1, col, tview.NewTableCell(c).SetExpansion(1))
		}
	}
	table.Select(1, 0).ScrollToBeginning()
	return nil
}

func shiftMonth(yearMonth string, months int) string {
	t, err := time.Parse("2006-01", yearMonth)
	if err != nil {
		return yearMonth
	}
	return t.AddDate(0, months, 0).Format("2006-01")
}
