package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/slotweaver/server/service/schedule"
	"github.com/hrygo/slotweaver/server/timezone"
)

func printResult(w io.Writer, name string, res *schedule.Result, req *schedule.PlanRequest, format string, verbose bool) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case "text", "":
	default:
		return errors.Errorf("unknown output format %q", format)
	}

	loc, _ := timezone.ParseTimezone(req.Timezone)
	title := req.Title
	if title == "" {
		title = name
	}
	fmt.Fprintf(w, "%s [%s] %s\n", title, res.Mode, res.Status)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, e := range res.Events {
		id := "-"
		if i < len(res.Created) {
			id = res.Created[i].ID
		}
		fmt.Fprintf(tw, "  %s\t%d min\t%s\n", timezone.FormatEventTime(e.Start, e.End, false, loc), e.DurationMinutes, id)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	switch res.Mode {
	case schedule.ModeMinutes:
		fmt.Fprintf(w, "  %d minutes scheduled, %d remaining\n", res.TotalMinutesScheduled, res.RemainingMinutes)
	case schedule.ModeRecurring:
		fmt.Fprintf(w, "  %d occurrences, %d unmet\n", len(res.Events), res.UnmetOccurrences)
	case schedule.ModeSingle:
		if res.FallbackReason != "" {
			fmt.Fprintf(w, "  placed by earliest fit (%s)\n", res.FallbackReason)
		} else if res.Rationale != "" {
			fmt.Fprintf(w, "  ranker: %s\n", res.Rationale)
		}
	}
	if req.DryRun {
		fmt.Fprintln(w, "  dry run, no events created")
	}
	for _, issue := range res.Warnings {
		fmt.Fprintf(w, "  warning %s: %s\n", issue.Code, issue.Message)
	}
	for _, issue := range res.Errors {
		fmt.Fprintf(w, "  error %s: %s\n", issue.Code, issue.Message)
	}

	if verbose {
		fmt.Fprintln(w, "  decision log:")
		for _, d := range res.DecisionLog {
			fmt.Fprintf(w, "    %-14s %s%s\n", d.Step, d.Message, formatDetails(d.Details))
		}
	}
	fmt.Fprintln(w)
	return nil
}

// formatDetails renders a decision's details as sorted key=value pairs.
func formatDetails(details map[string]any) string {
	if len(details) == 0 {
		return ""
	}
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, details[k]))
	}
	return " (" + strings.Join(parts, " ") + ")"
}

func printConflicts(w io.Writer, resolution *schedule.ConflictResolution, loc *time.Location) {
	fmt.Fprintln(w, "Conflicts:")
	for _, c := range resolution.Conflicts {
		fmt.Fprintf(w, "  %s\t%s\n", timezone.FormatEventTime(c.Start, c.End, false, loc), c.Source)
	}
	if len(resolution.Alternatives) == 0 {
		fmt.Fprintln(w, "No free alternative nearby.")
		return
	}
	fmt.Fprintln(w, "Alternatives:")
	for i, alt := range resolution.Alternatives {
		if i == 5 {
			break
		}
		fmt.Fprintf(w, "  %s\t%s\tscore %d\n", timezone.FormatEventTime(alt.Start, alt.End, false, loc), alt.Reason, alt.Score)
	}
}
