package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/slotweaver/server/scheduler/interval"
	"github.com/hrygo/slotweaver/server/service/schedule"
	"github.com/hrygo/slotweaver/server/timezone"
	"github.com/hrygo/slotweaver/store"
)

var (
	eventsCalendar string

	eventsListFrom string
	eventsListDays int

	eventsAddTitle       string
	eventsAddDescription string
	eventsAddStart       string
	eventsAddEnd         string
	eventsAddDuration    time.Duration
	eventsAddAllDay      bool
	eventsAddForce       bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Manage the events of the local calendar",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List events in a window",
	Args:  cobra.NoArgs,
	RunE:  runEventsList,
}

var eventsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an event, suggesting alternatives on conflict",
	Long: `Add an event to the calendar. When the requested time clashes with
existing events nothing is written unless --force is given; instead the
nearest free alternatives are listed.

Examples:
  slotweaver events add --title "Dentist" --start "2026-03-04 15:00" --duration 45m
  slotweaver events add --title "Offsite" --start 2026-03-06 --all-day
`,
	Args: cobra.NoArgs,
	RunE: runEventsAdd,
}

var eventsDeleteCmd = &cobra.Command{
	Use:   "delete <uid>...",
	Short: "Delete events by UID",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runEventsDelete,
}

func init() {
	eventsCmd.PersistentFlags().StringVar(&eventsCalendar, "calendar", "", "calendar to use")

	eventsListCmd.Flags().StringVar(&eventsListFrom, "from", "", "window start (date or datetime, default today)")
	eventsListCmd.Flags().IntVar(&eventsListDays, "days", 0, "window length in days (default from config)")

	eventsAddCmd.Flags().StringVar(&eventsAddTitle, "title", "", "event title")
	eventsAddCmd.Flags().StringVar(&eventsAddDescription, "description", "", "event description")
	eventsAddCmd.Flags().StringVar(&eventsAddStart, "start", "", "start (date or datetime)")
	eventsAddCmd.Flags().StringVar(&eventsAddEnd, "end", "", "end (date or datetime); defaults to start + duration")
	eventsAddCmd.Flags().DurationVar(&eventsAddDuration, "duration", time.Hour, "length when --end is not given")
	eventsAddCmd.Flags().BoolVar(&eventsAddAllDay, "all-day", false, "whole local days, --end is the last day")
	eventsAddCmd.Flags().BoolVarP(&eventsAddForce, "force", "f", false, "write the event even if it conflicts")
	_ = eventsAddCmd.MarkFlagRequired("title")
	_ = eventsAddCmd.MarkFlagRequired("start")

	eventsCmd.AddCommand(eventsListCmd, eventsAddCmd, eventsDeleteCmd)
	rootCmd.AddCommand(eventsCmd)
}

func runEventsList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	loc, err := instanceProfile.Location()
	if err != nil {
		return err
	}
	start := timezone.StartOfDay(time.Now(), loc)
	if eventsListFrom != "" {
		if start, err = timezone.ParseDateTime(eventsListFrom, loc); err != nil {
			return errors.Wrap(err, "invalid --from")
		}
	}
	days := eventsListDays
	if days == 0 {
		days = instanceProfile.WindowDays
	}
	startTs, endTs := start.Unix(), start.AddDate(0, 0, days).Unix()

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	calendarID := calendarOrDefault(eventsCalendar)
	events, err := s.ListEvents(ctx, &store.FindEvent{
		CalendarID: &calendarID,
		StartTs:    &startTs,
		EndTs:      &endTs,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "UID\tWHEN\tTITLE\tSOURCE")
	for _, e := range events {
		// All-day rows are shown on their own calendar days.
		tz := loc
		if e.AllDay {
			tz = e.Location()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.UID, timezone.FormatEventTime(e.StartTime(), e.EndTime(), e.AllDay, tz), e.Title, e.Source)
	}
	return w.Flush()
}

func runEventsAdd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	loc, err := instanceProfile.Location()
	if err != nil {
		return err
	}
	requested, err := eventRange(loc)
	if err != nil {
		return err
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	calendarID := calendarOrDefault(eventsCalendar)
	if !eventsAddForce && !eventsAddAllDay {
		resolver := schedule.NewConflictResolver(schedule.NewStoreCalendar(s))
		resolution, err := resolver.Resolve(ctx, calendarID, requested, loc)
		if err != nil {
			return err
		}
		if len(resolution.Conflicts) > 0 {
			printConflicts(out, resolution, loc)
			return errors.Errorf("%s conflicts with %d event(s); use --force to add it anyway",
				timezone.FormatEventTime(requested.Start, requested.End, false, loc), len(resolution.Conflicts))
		}
	}

	event, err := s.CreateEvent(ctx, &store.Event{
		UID:         store.NewEventUID(),
		CalendarID:  calendarID,
		Title:       eventsAddTitle,
		Description: eventsAddDescription,
		StartTs:     requested.Start.Unix(),
		EndTs:       requested.End.Unix(),
		AllDay:      eventsAddAllDay,
		Timezone:    loc.String(),
		Source:      "cli",
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Added %s: %s (%s)\n", event.UID, event.Title,
		timezone.FormatEventTime(event.StartTime(), event.EndTime(), event.AllDay, loc))
	return nil
}

// eventRange resolves the --start/--end/--duration/--all-day flags.
func eventRange(loc *time.Location) (interval.Interval, error) {
	if eventsAddAllDay {
		start, err := timezone.ParseDate(eventsAddStart, loc)
		if err != nil {
			return interval.Interval{}, err
		}
		last := start
		if eventsAddEnd != "" {
			if last, err = timezone.ParseDate(eventsAddEnd, loc); err != nil {
				return interval.Interval{}, err
			}
		}
		return interval.New(start, last.AddDate(0, 0, 1))
	}

	start, err := timezone.ParseDateTime(eventsAddStart, loc)
	if err != nil {
		return interval.Interval{}, err
	}
	if eventsAddEnd == "" {
		return interval.FromDuration(start, eventsAddDuration)
	}
	end, err := timezone.ParseDateTime(eventsAddEnd, loc)
	if err != nil {
		return interval.Interval{}, err
	}
	return interval.New(start, end)
}

func runEventsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, uid := range args {
		existing, err := s.GetEvent(ctx, &store.FindEvent{UID: &uid})
		if err != nil {
			return err
		}
		if existing == nil {
			return errors.Errorf("event %s not found", uid)
		}
		if err := s.DeleteEvent(ctx, &store.DeleteEvent{UID: uid}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s: %s\n", uid, existing.Title)
	}
	return nil
}
