// Package schedule runs the planning pipeline: it fetches a calendar's busy
// periods, derives free slots and candidates, places events by mode, hands
// them to an event creator and reports a SUCCESS, PARTIAL or FAILED result
// with a decision log.
//
// The pipeline never retries a stage; callers retry whole plans.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrygo/slotweaver/plugin/ai/timeout"
	schederrors "github.com/hrygo/slotweaver/server/internal/errors"
	"github.com/hrygo/slotweaver/server/internal/observability"
	"github.com/hrygo/slotweaver/server/scheduler/constraint"
	"github.com/hrygo/slotweaver/server/scheduler/distributor"
	"github.com/hrygo/slotweaver/server/scheduler/freetime"
	"github.com/hrygo/slotweaver/server/scheduler/frequency"
	"github.com/hrygo/slotweaver/server/scheduler/selector"
)

const defaultTitle = "Planned time"

type service struct {
	provider       BusyPeriodProvider
	creator        EventCreator
	selector       *selector.Selector
	metrics        *observability.Metrics
	logger         *slog.Logger
	now            func() time.Time
	minGranularity time.Duration
}

// Option configures NewService.
type Option func(*service)

// WithSelector sets the single-mode selector (and with it the ranker).
func WithSelector(sel *selector.Selector) Option {
	return func(s *service) {
		s.selector = sel
	}
}

// WithClock sets the clock used to build default windows.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithLogger sets the logger for per-plan request contexts.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithMetrics records plan outcomes into m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *service) {
		s.metrics = m
	}
}

// WithMinGranularity drops free slots shorter than d before filtering.
func WithMinGranularity(d time.Duration) Option {
	return func(s *service) {
		s.minGranularity = d
	}
}

// NewService creates a planning service. creator may be nil, in which case
// every plan behaves as a dry run.
func NewService(provider BusyPeriodProvider, creator EventCreator, opts ...Option) Service {
	s := &service{
		provider: provider,
		creator:  creator,
		selector: selector.NewSelector(nil),
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run carries the per-plan state through the stages.
type run struct {
	p      *plan
	rc     *observability.RequestContext
	log    *DecisionLog
	result *Result

	delivered        int
	creationFailures int
}

func (r *run) stage(step, message string, details map[string]any) {
	r.log.Append(step, message, details)
	r.rc.Debug(message, slog.String(observability.LogFieldStage, step))
}

// Plan implements Service.
func (s *service) Plan(ctx context.Context, req *PlanRequest) (*Result, error) {
	p, err := prepare(req, s.now())
	if err != nil {
		return nil, err
	}

	r := &run{
		p:   p,
		rc:  observability.NewRequestContext(s.logger, string(req.Mode), p.calendarID),
		log: &DecisionLog{},
		result: &Result{
			Mode:   req.Mode,
			Events: []constraint.ScheduledEvent{},
		},
	}
	ctx = observability.WithRequestContext(ctx, r.rc)

	s.execute(ctx, r)
	s.classify(r)

	res := r.result
	r.stage(StageComplete,
		fmt.Sprintf("Scheduling complete: %s, %d events created, %d minutes scheduled",
			res.Status, len(res.Created), res.TotalMinutesScheduled),
		map[string]any{
			"status":            string(res.Status),
			"events_planned":    len(res.Events),
			"events_delivered":  r.delivered,
			"minutes_scheduled": res.TotalMinutesScheduled,
			"remaining_minutes": res.RemainingMinutes,
			"unmet":             res.UnmetOccurrences,
		})
	res.DecisionLog = r.log.Entries()

	r.rc.Info("plan finished",
		slog.String(observability.LogFieldStatus, string(res.Status)),
		slog.Int("events", len(res.Events)),
		slog.Int64(observability.LogFieldDuration, r.rc.DurationMs()))
	if s.metrics != nil {
		s.metrics.RecordPlan(string(req.Mode), string(res.Status), r.rc.Duration())
	}
	return res, nil
}

// execute runs the stages in order and stops at the first stage that leaves
// nothing to place.
func (s *service) execute(ctx context.Context, r *run) {
	p, res := r.p, r.result

	r.stage(StageWindow,
		fmt.Sprintf("Scheduling window: %s to %s", p.window.Start.Format(time.RFC3339), p.window.End.Format(time.RFC3339)),
		map[string]any{
			"start":       p.window.Start.Format(time.RFC3339),
			"end":         p.window.End.Format(time.RFC3339),
			"window_days": p.windowDays,
			"timezone":    p.loc.String(),
		})

	busy, ok := s.fetchBusy(ctx, r)
	if !ok {
		return
	}

	var opts []freetime.Option
	if s.minGranularity > 0 {
		opts = append(opts, freetime.WithMinGranularity(s.minGranularity))
	}
	slots := freetime.Compute(busy, p.window, opts...)
	summary := freetime.Summarize(slots)
	r.stage(StageFreeSlots,
		fmt.Sprintf("Found %d available time slots", summary.SlotCount),
		map[string]any{
			"slot_count":              summary.SlotCount,
			"total_available_minutes": summary.TotalMinutes,
		})
	if len(slots) == 0 {
		res.fail(schederrors.ErrCodeNoSlotsAvailable, "No available time slots found in the scheduling window")
		return
	}

	candidates, report := constraint.Filter(slots, p.constraints)
	details := map[string]any{
		"slots_in":             report.SlotsIn,
		"slots_kept":           report.SlotsKept,
		"candidates":           report.Candidates,
		"reject_reasons":       report.RejectReasons,
		"min_duration_minutes": p.constraints.MinDurationMinutes,
		"buffer_minutes":       p.constraints.BufferMinutes,
	}
	if p.constraints.MaxDurationMinutes != nil {
		details["max_duration_minutes"] = *p.constraints.MaxDurationMinutes
	}
	r.stage(StageFilter,
		fmt.Sprintf("Kept %d of %d slots, %d candidate placements", report.SlotsKept, report.SlotsIn, report.Candidates),
		details)
	if len(candidates) == 0 {
		res.fail(schederrors.ErrCodeNoSlotsAvailable, "No free slot satisfies the constraints")
		return
	}

	var events []constraint.ScheduledEvent
	switch p.req.Mode {
	case ModeMinutes:
		events = s.distribute(r, candidates)
	case ModeRecurring:
		events = s.selectRecurring(r, candidates)
	case ModeSingle:
		events = s.selectSingle(ctx, r, candidates)
	}
	if len(events) == 0 {
		if len(res.Errors) == 0 {
			res.fail(schederrors.ErrCodeNoSlotsAvailable, "Could not schedule any events with the given constraints")
		}
		return
	}
	res.Events = events
	for _, e := range events {
		res.TotalMinutesScheduled += e.DurationMinutes
	}

	s.createEvents(ctx, r)
}

func (s *service) fetchBusy(ctx context.Context, r *run) ([]freetime.BusyPeriod, bool) {
	p, res := r.p, r.result

	var (
		busy []freetime.BusyPeriod
		err  error
	)
	if s.provider == nil {
		err = schederrors.BusyDataUnavailable(fmt.Errorf("no busy-period provider configured"))
	} else {
		fctx, cancel := context.WithTimeout(ctx, timeout.BusyFetchTimeout)
		busy, err = s.provider.ListBusyPeriods(fctx, p.calendarID, p.window)
		cancel()
		if err != nil {
			err = schederrors.BusyDataUnavailable(err)
		}
	}

	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordProviderFailure()
		}
		r.rc.Error("busy periods unavailable", err,
			slog.String(observability.LogFieldErrorCode, string(schederrors.ErrCodeBusyDataUnavailable)))
		if !p.req.AssumeFreeOnProviderError {
			res.fail(schederrors.ErrCodeBusyDataUnavailable, err.Error())
			r.stage(StageFetchBusy, "Busy periods unavailable",
				map[string]any{"calendar_id": p.calendarID, "error": err.Error()})
			return nil, false
		}
		res.warn(schederrors.ErrCodeBusyDataUnavailable, err.Error()+"; planning against an empty calendar as requested")
		r.stage(StageFetchBusy, "Busy periods unavailable, assuming a free calendar",
			map[string]any{"calendar_id": p.calendarID, "error": err.Error(), "assumed_free": true})
		return nil, true
	}

	allDay := 0
	for _, b := range busy {
		if b.AllDay {
			allDay++
		}
	}
	r.stage(StageFetchBusy,
		fmt.Sprintf("Found %d existing events in window", len(busy)),
		map[string]any{
			"calendar_id":   p.calendarID,
			"busy_count":    len(busy),
			"all_day_count": allDay,
		})
	return busy, true
}

func (s *service) distribute(r *run, candidates []constraint.Candidate) []constraint.ScheduledEvent {
	b := r.p.budget
	events, remaining := distributor.Distribute(candidates, b)
	count, perEvent := b.OptimalEventCount()

	r.result.RemainingMinutes = remaining
	r.stage(StageDistribute,
		fmt.Sprintf("Planned %d events (%d minutes scheduled)", len(events), b.TotalMinutes-remaining),
		map[string]any{
			"total_minutes":        b.TotalMinutes,
			"min_duration_minutes": b.MinDurationMinutes,
			"max_duration_minutes": b.MaxDurationMinutes,
			"buffer_minutes":       b.BufferMinutes,
			"event_count":          len(events),
			"optimal_event_count":  count,
			"optimal_event_length": perEvent,
			"remaining_minutes":    remaining,
		})
	if remaining > 0 {
		r.result.warn(schederrors.ErrCodeInsufficientCapacity,
			fmt.Sprintf("Could not schedule all %d minutes. Remaining: %d minutes", b.TotalMinutes, remaining))
	}
	return events
}

func (s *service) selectRecurring(r *run, candidates []constraint.Candidate) []constraint.ScheduledEvent {
	p := r.p
	var spacing frequency.Spacing
	label := "custom"
	if p.rule != nil {
		spacing = p.rule.Spacing(p.loc)
		label = p.rule.Label()
	}
	sel := selector.SelectRecurring(candidates, selector.RecurringRequest{
		TargetCount:        p.targetCount,
		MinDurationMinutes: p.requiredMinutes,
		BufferMinutes:      p.constraints.BufferMinutes,
		Spacing:            spacing,
	})

	r.result.UnmetOccurrences = sel.Unmet
	r.stage(StageSelect,
		fmt.Sprintf("Selected %d of %d %s occurrences", len(sel.Events), p.targetCount, label),
		map[string]any{
			"frequency":             label,
			"target_count":          p.targetCount,
			"selected":              len(sel.Events),
			"relaxed":               sel.Relaxed,
			"unmet":                 sel.Unmet,
			"event_minutes":         p.requiredMinutes,
			"min_start_gap_minutes": int(spacing.MinStartGap / time.Minute),
			"period":                string(spacing.Period),
		})
	if sel.Unmet > 0 {
		r.result.warn(schederrors.ErrCodeInsufficientCapacity,
			fmt.Sprintf("Scheduled %d of %d occurrences", len(sel.Events), p.targetCount))
	}
	return sel.Events
}

func (s *service) selectSingle(ctx context.Context, r *run, candidates []constraint.Candidate) []constraint.ScheduledEvent {
	p, req := r.p, r.p.req

	metadata := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["calendar_id"] = p.calendarID

	sel, err := s.selector.SelectSingle(ctx, candidates, selector.Requirement{
		Title:           req.Title,
		Description:     req.Description,
		Priority:        req.Priority,
		DueDate:         req.DueDate,
		RequiredMinutes: p.requiredMinutes,
		Metadata:        metadata,
		Location:        p.loc,
	})
	if err != nil {
		code := schederrors.GetCodeFromError(err, schederrors.ErrCodeNoSlotsAvailable)
		r.result.fail(code, err.Error())
		r.stage(StageSelect, "No candidate can hold the task",
			map[string]any{"required_minutes": p.requiredMinutes, "error": err.Error()})
		return nil
	}

	if sel.FallbackReason != "" && sel.FallbackReason != selector.FallbackNoRanker && s.metrics != nil {
		s.metrics.RecordFallback()
	}
	r.result.FallbackReason = sel.FallbackReason
	r.result.Rationale = sel.Rationale

	details := map[string]any{
		"required_minutes":   p.requiredMinutes,
		"candidate_count":    len(candidates),
		"candidate_index":    sel.CandidateIndex,
		"ranked":             sel.Ranked,
		"correction_minutes": int(sel.Correction / time.Minute),
	}
	if sel.FallbackReason != "" {
		details["fallback_reason"] = sel.FallbackReason
	}
	if sel.ProposalError != "" {
		details["proposal_error"] = sel.ProposalError
	}
	message := fmt.Sprintf("Placed task at %s using ranker proposal", sel.Event.Start.Format(time.RFC3339))
	if !sel.Ranked {
		message = fmt.Sprintf("Placed task at %s using earliest fit (%s)", sel.Event.Start.Format(time.RFC3339), sel.FallbackReason)
	}
	r.stage(StageSelect, message, details)
	return []constraint.ScheduledEvent{sel.Event}
}

func (s *service) createEvents(ctx context.Context, r *run) {
	p, res := r.p, r.result

	if p.req.DryRun || s.creator == nil {
		r.delivered = len(res.Events)
		r.stage(StageCreateEvents,
			fmt.Sprintf("Dry run: %d events not created", len(res.Events)),
			map[string]any{"event_count": len(res.Events), "dry_run": true})
		return
	}

	ids := make([]string, 0, len(res.Events))
	for i, e := range res.Events {
		draft := s.draft(p, e)
		cctx, cancel := context.WithTimeout(ctx, timeout.EventCreateTimeout)
		created, err := s.creator.CreateEvent(cctx, draft)
		cancel()
		if err != nil {
			r.creationFailures++
			if s.metrics != nil {
				s.metrics.RecordCreationFailure()
			}
			cerr := schederrors.EventCreationFailure(
				fmt.Sprintf("failed to create event %d/%d at %s", i+1, len(res.Events), e.Start.Format(time.RFC3339)), err)
			res.warn(cerr.Code, cerr.Error())
			r.rc.Warn("event creation failed",
				slog.String(observability.LogFieldErrorCode, string(cerr.Code)),
				slog.Int("event_index", i),
				slog.String("error", err.Error()))
			continue
		}
		if created == nil {
			created = &CreatedEvent{Title: draft.Title, Start: draft.Start, End: draft.End}
		}
		res.Created = append(res.Created, *created)
		ids = append(ids, created.ID)
	}
	r.delivered = len(res.Created)

	r.stage(StageCreateEvents,
		fmt.Sprintf("Created %d of %d calendar events", len(res.Created), len(res.Events)),
		map[string]any{
			"attempted": len(res.Events),
			"created":   len(res.Created),
			"failed":    r.creationFailures,
			"event_ids": ids,
		})
}

func (s *service) draft(p *plan, e constraint.ScheduledEvent) *EventDraft {
	title := p.req.Title
	if title == "" {
		title = defaultTitle
	}
	var description string
	switch p.req.Mode {
	case ModeMinutes:
		description = fmt.Sprintf("Part of plan: %s\nDuration: %d minutes", title, e.DurationMinutes)
		title = fmt.Sprintf("%s (%d min)", title, e.DurationMinutes)
	default:
		description = p.req.Description
		if description != "" {
			description += "\n"
		}
		description += fmt.Sprintf("Duration: %d minutes", e.DurationMinutes)
	}
	return &EventDraft{
		CalendarID:      p.calendarID,
		Title:           title,
		Description:     description,
		Start:           e.Start,
		End:             e.End,
		DurationMinutes: e.DurationMinutes,
		Timezone:        p.loc.String(),
	}
}

// nothingPlaced reports the whole request as outstanding when a plan ends
// before any placement was made.
func (r *run) nothingPlaced() {
	switch r.p.req.Mode {
	case ModeMinutes:
		r.result.RemainingMinutes = r.p.budget.TotalMinutes
	case ModeRecurring:
		r.result.UnmetOccurrences = r.p.targetCount
	}
}

// classify sets the terminal status: FAILED when nothing was delivered,
// SUCCESS when every requested minute or occurrence was delivered, PARTIAL
// otherwise.
func (s *service) classify(r *run) {
	res := r.result
	switch {
	case r.delivered == 0:
		res.Status = StatusFailed
		if len(res.Events) == 0 {
			r.nothingPlaced()
		}
		if len(res.Events) > 0 && len(res.Errors) == 0 {
			res.fail(schederrors.ErrCodeEventCreationFailure, "No planned event could be created")
		}
	case r.creationFailures == 0 && res.RemainingMinutes == 0 && res.UnmetOccurrences == 0:
		res.Status = StatusSuccess
	default:
		res.Status = StatusPartial
	}
	res.Success = res.Status != StatusFailed
}
