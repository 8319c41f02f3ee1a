package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/alexflint/go-filemutex"
	"github.com/joho/godotenv"
	"github.com/tidwall/buntdb"
	"github.com/urfave/cli/v2"

	"timesheet/timesheet"
	"timesheet/view"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		os.Exit(1)
	}
}

func run() error {
	// Missing .env is fine; plain environment variables still apply.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "timesheet",
		Usage: "personal work-hours tracker",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:    "user",
				Usage:   "reporting user id",
				EnvVars: []string{"TIMESHEET_USER"},
				Value:   1,
			},
		},
		Commands: []*cli.Command{
			inCommand,
			outCommand,
			lunchCommand,
			backfillCommand,
			reportCommand,
			viewCommand,
		},
	}
	return app.Run(os.Args)
}

var inCommand = &cli.Command{
	Name:      "in",
	Usage:     "clock in (current time unless HH:MM given)",
	ArgsUsage: "[HH:MM]",
	Action: func(c *cli.Context) error {
		env, err := newEnv(c)
		if err != nil {
			return err
		}
		defer env.close()

		env.fm.Lock()
		defer env.fm.Unlock()

		rec, err := env.engine.ClockIn(env.userID, argOrNow(c))
		if err != nil {
			return err
		}
		fmt.Printf("clocked in at %s (%s)\n", rec.TimeIn, rec.Date)
		return nil
	},
}

var outCommand = &cli.Command{
	Name:      "out",
	Usage:     "clock out (current time unless HH:MM given)",
	ArgsUsage: "[HH:MM]",
	Action: func(c *cli.Context) error {
		env, err := newEnv(c)
		if err != nil {
			return err
		}
		defer env.close()

		env.fm.Lock()
		defer env.fm.Unlock()

		rec, err := env.engine.ClockOut(env.userID, argOrNow(c))
		if err != nil {
			return err
		}
		suffix := ""
		if rec.LunchApplied {
			suffix = " (lunch deducted)"
		}
		fmt.Printf("clocked out at %s, %.2f hours%s\n", *rec.TimeOut, *rec.TotalHours, suffix)
		return nil
	},
}

var lunchCommand = &cli.Command{
	Name:  "lunch",
	Usage: "report lunch on the open shift",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "start", Usage: "lunch start HH:MM"},
		&cli.StringFlag{Name: "end", Usage: "lunch end HH:MM"},
		&cli.IntFlag{Name: "minutes", Usage: "lunch length in minutes"},
	},
	Action: func(c *cli.Context) error {
		env, err := newEnv(c)
		if err != nil {
			return err
		}
		defer env.close()

		env.fm.Lock()
		defer env.fm.Unlock()

		rec, err := env.engine.RecordLunch(env.userID, lunchEntryFromFlags(c))
		if err != nil {
			return err
		}
		fmt.Printf("lunch saved: %s\n", view.LunchCell(rec))
		return nil
	},
}

var backfillCommand = &cli.Command{
	Name:  "backfill",
	Usage: "insert a finished shift on a past date",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "date", Usage: "shift date YYYY-MM-DD", Required: true},
		&cli.StringFlag{Name: "in", Usage: "clock in HH:MM", Required: true},
		&cli.StringFlag{Name: "out", Usage: "clock out HH:MM", Required: true},
		&cli.StringFlag{Name: "lunch-start", Usage: "lunch start HH:MM"},
		&cli.StringFlag{Name: "lunch-end", Usage: "lunch end HH:MM"},
		&cli.IntFlag{Name: "lunch-minutes", Usage: "lunch length in minutes"},
	},
	Action: func(c *cli.Context) error {
		env, err := newEnv(c)
		if err != nil {
			return err
		}
		defer env.close()

		env.fm.Lock()
		defer env.fm.Unlock()

		lunch := timesheet.LunchEntry{}
		if c.IsSet("lunch-start") {
			s := c.String("lunch-start")
			lunch.Start = &s
		}
		if c.IsSet("lunch-end") {
			s := c.String("lunch-end")
			lunch.End = &s
		}
		if c.IsSet("lunch-minutes") {
			m := c.Int("lunch-minutes")
			lunch.Minutes = &m
		}

		rec, err := env.engine.InsertBackfill(env.userID, c.String("date"), c.String("in"), c.String("out"), lunch)
		if err != nil {
			return err
		}
		fmt.Printf("backfilled %s: %s-%s, %.2f hours\n", rec.Date, rec.TimeIn, *rec.TimeOut, *rec.TotalHours)
		return nil
	},
}

var reportCommand = &cli.Command{
	Name:      "report",
	Usage:     "total hours for a period",
	ArgsUsage: "[today|week|month|year]",
	Action: func(c *cli.Context) error {
		env, err := newEnv(c)
		if err != nil {
			return err
		}
		defer env.close()

		period, err := timesheet.ParsePeriod(firstArgOr(c, string(timesheet.PeriodToday)))
		if err != nil {
			return err
		}

		total, err := env.reporter.TotalForPeriod(env.userID, period)
		if err != nil {
			return err
		}

		if period == timesheet.PeriodToday {
			day, err := env.reporter.TodayBreakdown(env.userID)
			if err != nil {
				return err
			}
			if len(day.Entries) == 0 {
				fmt.Printf("no records for %s\n", day.Date)
				return nil
			}
			view.RenderBreakdown(day)
			return nil
		}

		fmt.Printf("worked %.2f hours this %s\n", total, period)
		return nil
	},
}

var viewCommand = &cli.Command{
	Name:      "view",
	Usage:     "month table of recorded shifts",
	ArgsUsage: "[YYYY-MM]",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "tui", Usage: "open the interactive browser"},
	},
	Action: func(c *cli.Context) error {
		env, err := newEnv(c)
		if err != nil {
			return err
		}
		defer env.close()

		viewRepo := view.NewViewRepository(env.repo)
		var v view.Viewer
		if c.Bool("tui") {
			v = view.NewTUI(viewRepo, env.logger)
		} else {
			v = view.NewTableViewer(viewRepo)
		}
		return v.Do(env.userID, firstArgOr(c, time.Now().Format("2006-01")))
	},
}

type env struct {
	db       *buntdb.DB
	fm       *filemutex.FileMutex
	logger   *slog.Logger
	repo     timesheet.RecordRepository
	engine   *timesheet.Engine
	reporter *timesheet.Reporter
	userID   int64
}

func newEnv(c *cli.Context) (*env, error) {
	dir, err := timesheetDir()
	if err != nil {
		return nil, err
	}

	db, err := buntdb.Open(filepath.Join(dir, "timesheet.db"))
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(dir)
	if err != nil {
		db.Close()
		return nil, err
	}

	fm, err := filemutex.New(filepath.Join(dir, "timesheet.lock"))
	if err != nil {
		db.Close()
		return nil, err
	}

	repo := timesheet.NewRecordRepository(db)
	return &env{
		db:       db,
		fm:       fm,
		logger:   logger,
		repo:     repo,
		engine:   timesheet.NewEngine(repo, logger),
		reporter: timesheet.NewReporter(repo),
		userID:   c.Int64("user"),
	}, nil
}

func (e *env) close() {
	e.db.Close()
}

func newLogger(dir string) (*slog.Logger, error) {
	logFile, err := os.OpenFile(filepath.Join(dir, "log.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}
	return slog.New(
		slog.NewJSONHandler(logFile, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}),
	), nil
}

func timesheetDir() (string, error) {
	if dir := os.Getenv("TIMESHEET_DIR"); dir != "" {
		return ensureDir(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return ensureDir(filepath.Join(home, ".timesheet"))
}

func ensureDir(dir string) (string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func argOrNow(c *cli.Context) string {
	return firstArgOr(c, time.Now().Format("15:04"))
}

func firstArgOr(c *cli.Context, fallback string) string {
	if s := c.Args().First(); s != "" {
		return s
	}
	return fallback
}

func lunchEntryFromFlags(c *cli.Context) timesheet.LunchEntry {
	lunch := timesheet.LunchEntry{}
	if c.IsSet("start") {
		s := c.String("start")
		lunch.Start = &s
	}
	if c.IsSet("end") {
		s := c.String("end")
		lunch.End = &s
	}
	if c.IsSet("minutes") {
		m := c.Int("minutes")
		lunch.Minutes = &m
	}
	return lunch
}

// renderError turns engine failures into the one-line messages the user
// sees. Storage failures are the only retryable kind.
func renderError(err error) string {
	switch {
	case errors.Is(err, timesheet.ErrFormat):
		return err.Error()
	case errors.Is(err, timesheet.ErrAlreadyOpen):
		return "you are already clocked in, finish your current shift first"
	case errors.Is(err, timesheet.ErrNoOpenShift), errors.Is(err, timesheet.ErrAlreadyClosed), errors.Is(err, timesheet.ErrRecordNotOpen):
		return "no open shift, clock in first"
	case errors.Is(err, timesheet.ErrDuplicateDate):
		return "that date already has a record"
	case errors.Is(err, timesheet.ErrStorage):
		return "storage failure, try again: " + err.Error()
	}
	return err.Error()
}
