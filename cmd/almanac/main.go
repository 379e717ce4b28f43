// Command almanac prints a day-by-day listing of events due in a window,
// merged from one or more iCalendar sources.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/freswa/almanac/internal/almanac/calendar"
	"github.com/freswa/almanac/internal/almanac/date"
	"github.com/freswa/almanac/internal/config"
	"github.com/freswa/almanac/internal/render"
	"github.com/freswa/almanac/internal/sources"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var verbose bool
	var noColor bool

	cmd := &cobra.Command{
		Use:          "almanac [period] [ics ...]",
		Short:        "Print a merged, day-ordered listing of upcoming calendar events",
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(verbose)
			if noColor {
				render.NoColor()
			}
			return run(cmd, configPath, args)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "config file path (default $XDG_CONFIG_HOME/almanac/config.yaml)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable styled output")

	return cmd
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// periodDays maps a period token to its window length in days, per
// SPEC_FULL.md §5.4. "all" has no fixed length; its window end is the
// far-future sentinel instead.
var periodDays = map[string]int{
	"day":   1,
	"week":  7,
	"month": 30,
}

func run(cmd *cobra.Command, configPath string, args []string) error {
	var period string
	var icsPaths []string
	if len(args) > 0 {
		period = args[0]
		icsPaths = args[1:]
	}

	cfg, cfgErr := loadConfig(configPath)
	if cfgErr != nil {
		slog.Debug("no config loaded", "error", cfgErr)
	}

	if period == "" && cfg != nil {
		period = cfg.Period
	}
	if period == "" {
		return cmd.Usage()
	}

	ctx := cmd.Context()
	first := date.Now()
	last, err := windowEnd(first, period)
	if err != nil {
		return err
	}

	cals, err := loadCalendars(ctx, icsPaths, cfg)
	if err != nil {
		return err
	}

	return render.Write(os.Stdout, calendar.MergeCalendars(cals, first, last), first, last)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// windowEnd computes the window's last Date from a period token.
func windowEnd(first date.Date, period string) (date.Date, error) {
	if period == "all" {
		return date.Max(), nil
	}
	days, ok := periodDays[period]
	if !ok {
		return date.Date{}, fmt.Errorf("unknown period %q, want day, week, month, or all", period)
	}
	return first.Add(time.Duration(days) * 24 * time.Hour), nil
}

// loadCalendars resolves the calendar sources for this run: explicit
// command-line .ics paths take priority over the configured cals list,
// exactly per SPEC_FULL.md §6/§5.4's CLI-overrides-config rule.
func loadCalendars(ctx context.Context, icsPaths []string, cfg *config.Config) ([]*calendar.Calendar, error) {
	if len(icsPaths) > 0 {
		cals := make([]*calendar.Calendar, 0, len(icsPaths))
		for _, path := range icsPaths {
			src := &sources.FileSource{Path: path}
			cal, err := src.Fetch(ctx)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
			cals = append(cals, cal)
		}
		return cals, nil
	}

	if cfg == nil || len(cfg.Cals) == 0 {
		return nil, nil
	}

	loader, err := sources.NewLoader(cfg.Cals)
	if err != nil {
		return nil, err
	}
	return loader.Load(ctx)
}
