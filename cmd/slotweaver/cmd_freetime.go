package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/slotweaver/server/scheduler/freetime"
	"github.com/hrygo/slotweaver/server/scheduler/interval"
	"github.com/hrygo/slotweaver/server/timezone"
)

var (
	freetimeCalendar    string
	freetimeFrom        string
	freetimeDays        int
	freetimeGranularity time.Duration
)

var freetimeCmd = &cobra.Command{
	Use:   "freetime",
	Short: "List the free slots of a calendar",
	Long: `List the maximal free intervals of a calendar inside a window.

Examples:
  # Free time over the next 7 days
  slotweaver freetime

  # Free time in March, ignoring gaps under 15 minutes
  slotweaver freetime --from 2026-03-01 --days 31 --min-granularity 15m
`,
	Args: cobra.NoArgs,
	RunE: runFreetime,
}

func init() {
	freetimeCmd.Flags().StringVar(&freetimeCalendar, "calendar", "", "calendar to read")
	freetimeCmd.Flags().StringVar(&freetimeFrom, "from", "", "window start (date or datetime, default now)")
	freetimeCmd.Flags().IntVar(&freetimeDays, "days", 0, "window length in days (default from config)")
	freetimeCmd.Flags().DurationVar(&freetimeGranularity, "min-granularity", 0, "drop slots shorter than this")
	rootCmd.AddCommand(freetimeCmd)
}

func runFreetime(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	loc, err := instanceProfile.Location()
	if err != nil {
		return err
	}

	start := time.Now().Truncate(time.Minute)
	if freetimeFrom != "" {
		if start, err = timezone.ParseDateTime(freetimeFrom, loc); err != nil {
			return errors.Wrap(err, "invalid --from")
		}
	}
	days := freetimeDays
	if days == 0 {
		days = instanceProfile.WindowDays
	}
	window, err := interval.New(start, start.AddDate(0, 0, days))
	if err != nil {
		return err
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	calendarID := calendarOrDefault(freetimeCalendar)
	busy, err := s.ListBusyPeriods(ctx, calendarID, window)
	if err != nil {
		return err
	}
	slots := freetime.Compute(busy, window, freetime.WithMinGranularity(freetimeGranularity))
	summary := freetime.Summarize(slots)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Calendar %s, %s (%d busy periods)\n\n", calendarID,
		timezone.FormatEventTime(window.Start, window.End, false, loc), len(busy))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSLOT\tMINUTES")
	for _, slot := range slots {
		fmt.Fprintf(w, "%d\t%s\t%d\n", slot.Index, timezone.FormatEventTime(slot.Start, slot.End, false, loc), slot.DurationMinutes())
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d slots, %d minutes free\n", summary.SlotCount, summary.TotalMinutes)
	return nil
}
