package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keyfold/keyfold/internal/statsdb"
	"github.com/keyfold/keyfold/internal/telemetry"
)

// StatsResult is the stats show payload.
type StatsResult struct {
	TotalExecutions  int                     `json:"totalExecutions"`
	TotalNavigations int                     `json:"totalNavigations"`
	TodayCount       int                     `json:"todayCount"`
	TopActions       []telemetry.ActionStats `json:"topActions,omitempty"`
	TopGroups        []telemetry.GroupStats  `json:"topGroups,omitempty"`
	PerDay           []telemetry.DayCount    `json:"perDay,omitempty"`
	Recent           []telemetry.Execution   `json:"recent,omitempty"`
}

// NewStatsCommand creates the stats command group.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Query, clear, or export usage statistics",
	}
	cmd.AddCommand(newStatsShowCommand(rootOpts))
	cmd.AddCommand(newStatsClearCommand(rootOpts))
	cmd.AddCommand(newStatsExportCommand(rootOpts))
	return cmd
}

// openLog replays the telemetry file from the settings-configured path.
func openLog(opts *RootOptions) (*telemetry.Log, string, error) {
	s, err := loadSettings(opts)
	if err != nil {
		return nil, "", err
	}
	l, err := telemetry.Open(telemetry.Options{Path: s.TelemetryPath})
	if err != nil {
		return nil, "", WrapExitError(ExitCommandError, "cannot open telemetry log", err)
	}
	return l, s.TelemetryPath, nil
}

func newStatsShowCommand(rootOpts *RootOptions) *cobra.Command {
	var limit, days, recent int
	cmd := &cobra.Command{
		Use:           "show",
		Short:         "Print usage aggregates",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatsShow(rootOpts, limit, days, recent, cmd)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "top-N size for actions and groups")
	cmd.Flags().IntVar(&days, "days", 7, "trailing days for per-day counts")
	cmd.Flags().IntVar(&recent, "recent", 10, "recent activity entries")
	return cmd
}

func runStatsShow(opts *RootOptions, limit, days, recent int, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	l, path, err := openLog(opts)
	if err != nil {
		_ = formatter.Error(ErrCodeTelemetryRead, err.Error(), nil)
		return err
	}
	defer l.Close()
	formatter.VerboseLog("Replayed telemetry log %s", path)

	result := StatsResult{
		TotalExecutions:  l.TotalExecutions(),
		TotalNavigations: l.TotalNavigations(),
		TodayCount:       l.TodayCount(),
		TopActions:       l.MostUsedActions(limit),
		TopGroups:        l.MostNavigatedGroups(limit),
		PerDay:           l.ExecutionsPerDay(days),
		Recent:           l.RecentActivity(recent),
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Executions: %d total, %d today\n", result.TotalExecutions, result.TodayCount)
	fmt.Fprintf(w, "Navigations: %d total\n", result.TotalNavigations)
	if len(result.TopActions) > 0 {
		fmt.Fprintln(w, "\nTop actions:")
		for _, a := range result.TopActions {
			name := a.KeyPath
			if name == "" {
				name = a.ActionValue
			}
			fmt.Fprintf(w, "  %4d  %s (%s)\n", a.Count, name, a.ActionType)
		}
	}
	if len(result.TopGroups) > 0 {
		fmt.Fprintln(w, "\nTop groups:")
		for _, g := range result.TopGroups {
			name := g.KeyPath
			if name == "" {
				name = g.Label
			}
			fmt.Fprintf(w, "  %4d  %s\n", g.Count, name)
		}
	}
	if len(result.PerDay) > 0 {
		fmt.Fprintln(w, "\nPer day:")
		for _, d := range result.PerDay {
			fmt.Fprintf(w, "  %s  %d\n", d.Day, d.Count)
		}
	}
	return nil
}

func newStatsClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear",
		Short:         "Reset all usage statistics and truncate the event log",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			l, path, err := openLog(rootOpts)
			if err != nil {
				_ = formatter.Error(ErrCodeTelemetryRead, err.Error(), nil)
				return err
			}
			l.ClearAllStats()
			l.Flush()
			if err := l.Close(); err != nil {
				_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
				return WrapExitError(ExitCommandError, "cannot close telemetry log", err)
			}
			return formatter.Success(fmt.Sprintf("cleared usage statistics (%s truncated)", path))
		},
	}
}

func newStatsExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "export <sqlite-file>",
		Short:         "Export the raw event log to a SQLite database",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatsExport(rootOpts, args[0], cmd)
		},
	}
}

func runStatsExport(opts *RootOptions, dbPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	s, err := loadSettings(opts)
	if err != nil {
		_ = formatter.Error(ErrCodeTelemetryRead, err.Error(), nil)
		return err
	}

	db, err := statsdb.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeExportFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot open stats database", err)
	}
	defer db.Close()

	n, err := db.ExportFile(cmd.Context(), s.TelemetryPath)
	if err != nil {
		_ = formatter.Error(ErrCodeExportFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "export failed", err)
	}

	return formatter.Success(fmt.Sprintf("exported %d event(s) to %s", n, dbPath))
}
