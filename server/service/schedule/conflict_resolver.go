package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hrygo/slotweaver/plugin/ai/timeout"
	schederrors "github.com/hrygo/slotweaver/server/internal/errors"
	"github.com/hrygo/slotweaver/server/scheduler/freetime"
	"github.com/hrygo/slotweaver/server/scheduler/interval"
	"github.com/hrygo/slotweaver/server/timezone"
)

// ConflictResolver detects clashes of a requested event with a calendar and
// suggests alternative times nearby.
type ConflictResolver struct {
	provider BusyPeriodProvider

	// Alternatives are searched between these local hours.
	HourStart int
	HourEnd   int
	// DayRange is how many days before and after the requested day are
	// searched when the day itself is too full.
	DayRange int
}

// NewConflictResolver creates a new conflict resolver.
func NewConflictResolver(provider BusyPeriodProvider) *ConflictResolver {
	return &ConflictResolver{
		provider:  provider,
		HourStart: 8,
		HourEnd:   22,
		DayRange:  3,
	}
}

// TimeSlot represents a time period that can be used for scheduling.
type TimeSlot struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Reason     string    `json:"reason"`      // "15:04", "days_before:N" or "days_after:N"
	Score      int       `json:"score"`       // higher is a better recommendation
	IsOriginal bool      `json:"is_original"` // the requested time itself
	IsAdjacent bool      `json:"is_adjacent"` // on a neighbouring day
}

// ConflictResolution represents the result of conflict resolution.
type ConflictResolution struct {
	OriginalStart time.Time             `json:"original_start"`
	OriginalEnd   time.Time             `json:"original_end"`
	Conflicts     []freetime.BusyPeriod `json:"conflicts"`
	Alternatives  []TimeSlot            `json:"alternatives"`
	AutoResolved  *TimeSlot             `json:"auto_resolved"` // best alternative, when conflicts exist
}

// Resolve detects conflicts of requested on calendarID and, if there are any,
// provides alternative time slots of the same length. Hours and days are
// evaluated in loc.
func (r *ConflictResolver) Resolve(ctx context.Context, calendarID string, requested interval.Interval, loc *time.Location) (*ConflictResolution, error) {
	if loc == nil {
		loc = timezone.UTC
	}
	day := timezone.StartOfDay(requested.Start, loc)
	search, err := interval.New(day.AddDate(0, 0, -r.DayRange), day.AddDate(0, 0, r.DayRange+1))
	if err != nil {
		return nil, err
	}
	busy, err := r.fetch(ctx, calendarID, search)
	if err != nil {
		return nil, err
	}

	resolution := &ConflictResolution{
		OriginalStart: requested.Start,
		OriginalEnd:   requested.End,
	}
	for _, b := range busy {
		if interval.Overlaps(b.Interval, requested) {
			resolution.Conflicts = append(resolution.Conflicts, b)
		}
	}

	if len(resolution.Conflicts) == 0 {
		resolution.Alternatives = []TimeSlot{
			{
				Start:      requested.Start,
				End:        requested.End,
				Reason:     requested.Start.In(loc).Format("15:04"),
				Score:      1000,
				IsOriginal: true,
			},
		}
		return resolution, nil
	}

	slog.Info("conflicts detected",
		"calendar_id", calendarID,
		"requested_start", requested.Start,
		"conflict_count", len(resolution.Conflicts),
	)

	resolution.Alternatives = r.findAlternatives(busy, requested, loc)
	if len(resolution.Alternatives) > 0 {
		best := resolution.Alternatives[0]
		resolution.AutoResolved = &best
	}
	return resolution, nil
}

// FindAllFreeSlots lists the free slots of the given length on date's local
// day, one per gap.
func (r *ConflictResolver) FindAllFreeSlots(ctx context.Context, calendarID string, date time.Time, duration time.Duration, loc *time.Location) ([]TimeSlot, error) {
	if loc == nil {
		loc = timezone.UTC
	}
	window, err := r.dayWindow(date, loc)
	if err != nil {
		return nil, err
	}
	busy, err := r.fetch(ctx, calendarID, window)
	if err != nil {
		return nil, err
	}
	return r.slotsIn(busy, window, duration, loc), nil
}

func (r *ConflictResolver) fetch(ctx context.Context, calendarID string, window interval.Interval) ([]freetime.BusyPeriod, error) {
	if r.provider == nil {
		return nil, schederrors.BusyDataUnavailable(fmt.Errorf("no busy-period provider configured"))
	}
	fctx, cancel := context.WithTimeout(ctx, timeout.BusyFetchTimeout)
	defer cancel()
	busy, err := r.provider.ListBusyPeriods(fctx, calendarID, window)
	if err != nil {
		return nil, schederrors.BusyDataUnavailable(err)
	}
	return busy, nil
}

func (r *ConflictResolver) findAlternatives(busy []freetime.BusyPeriod, requested interval.Interval, loc *time.Location) []TimeSlot {
	duration := requested.Duration()
	var all []TimeSlot

	// Same day first.
	if window, err := r.dayWindow(requested.Start, loc); err == nil {
		all = append(all, r.slotsIn(busy, window, duration, loc)...)
	}

	// Neighbouring days only when the day itself offers little.
	if len(all) < 3 {
		for offset := 1; offset <= r.DayRange; offset++ {
			if window, err := r.dayWindow(requested.Start.AddDate(0, 0, -offset), loc); err == nil {
				slots := r.slotsIn(busy, window, duration, loc)
				for i := range slots {
					slots[i].Reason = fmt.Sprintf("days_before:%d", offset)
					slots[i].IsAdjacent = true
				}
				all = append(all, slots...)
			}
			if window, err := r.dayWindow(requested.Start.AddDate(0, 0, offset), loc); err == nil {
				slots := r.slotsIn(busy, window, duration, loc)
				for i := range slots {
					slots[i].Reason = fmt.Sprintf("days_after:%d", offset)
					slots[i].IsAdjacent = true
				}
				all = append(all, slots...)
			}
			if len(all) >= 10 {
				break
			}
		}
	}

	return scoreAlternatives(requested.Start.In(loc), all, loc)
}

// dayWindow is [HourStart, HourEnd) of t's local day.
func (r *ConflictResolver) dayWindow(t time.Time, loc *time.Location) (interval.Interval, error) {
	day := timezone.StartOfDay(t, loc)
	start := time.Date(day.Year(), day.Month(), day.Day(), r.HourStart, 0, 0, 0, loc)
	end := time.Date(day.Year(), day.Month(), day.Day(), r.HourEnd, 0, 0, 0, loc)
	return interval.New(start, end)
}

func (r *ConflictResolver) slotsIn(busy []freetime.BusyPeriod, window interval.Interval, duration time.Duration, loc *time.Location) []TimeSlot {
	var slots []TimeSlot
	for _, free := range freetime.Compute(busy, window) {
		if free.Duration() < duration {
			continue
		}
		slots = append(slots, TimeSlot{
			Start:  free.Start,
			End:    free.Start.Add(duration),
			Reason: free.Start.In(loc).Format("15:04"),
		})
	}
	return slots
}

// scoreAlternatives assigns scores to each alternative and sorts them, best
// first and earlier first among equals.
func scoreAlternatives(requested time.Time, alternatives []TimeSlot, loc *time.Location) []TimeSlot {
	for i := range alternatives {
		alternatives[i].Score = calculateScore(requested, alternatives[i], loc)
	}
	sort.SliceStable(alternatives, func(i, j int) bool {
		if alternatives[i].Score != alternatives[j].Score {
			return alternatives[i].Score > alternatives[j].Score
		}
		return alternatives[i].Start.Before(alternatives[j].Start)
	})
	return alternatives
}

// calculateScore calculates a priority score for a time slot.
// Higher scores indicate better alternatives.
func calculateScore(requested time.Time, alt TimeSlot, loc *time.Location) int {
	start := alt.Start.In(loc)
	score := 0

	// Same day is best.
	if start.YearDay() == requested.YearDay() && start.Year() == requested.Year() {
		score += 100
	}

	// Proximity to the requested hour.
	hourDiff := start.Hour() - requested.Hour()
	if hourDiff < 0 {
		hourDiff = -hourDiff
	}
	if hourDiff == 0 {
		score += 50
	} else {
		score += (24 - hourDiff) * 2
	}

	// Same half of the day.
	if (start.Hour() < 12) == (requested.Hour() < 12) {
		score += 20
	}

	if start.Weekday() == requested.Weekday() {
		score += 10
	}

	// Business hours preference.
	hour := start.Hour()
	if hour >= 9 && hour <= 11 {
		score += 15
	} else if hour >= 14 && hour <= 16 {
		score += 15
	} else if hour >= 11 && hour <= 13 {
		score += 10
	}

	if alt.IsAdjacent {
		score -= 5
	}
	return score
}
