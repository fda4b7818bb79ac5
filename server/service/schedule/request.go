package schedule

import (
	"fmt"
	"time"

	schederrors "github.com/hrygo/slotweaver/server/internal/errors"
	"github.com/hrygo/slotweaver/server/scheduler/constraint"
	"github.com/hrygo/slotweaver/server/scheduler/distributor"
	"github.com/hrygo/slotweaver/server/scheduler/frequency"
	"github.com/hrygo/slotweaver/server/scheduler/interval"
	"github.com/hrygo/slotweaver/server/timezone"
)

// PlanRequest is one planning requirement.
type PlanRequest struct {
	Mode       Mode   `json:"mode" yaml:"mode"`
	CalendarID string `json:"calendar_id,omitempty" yaml:"calendar_id,omitempty"`

	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Priority    string            `json:"priority,omitempty" yaml:"priority,omitempty"`
	DueDate     *time.Time        `json:"due_date,omitempty" yaml:"due_date,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// WindowStart and WindowEnd give an explicit window. When both are
	// unset the window is [now, now+WindowDays).
	WindowStart *time.Time `json:"window_start,omitempty" yaml:"window_start,omitempty"`
	WindowEnd   *time.Time `json:"window_end,omitempty" yaml:"window_end,omitempty"`
	WindowDays  int        `json:"window_days,omitempty" yaml:"window_days,omitempty"`
	// Timezone is the IANA zone weekdays, hours and periods are read in.
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`

	Constraints constraint.Constraints `json:"constraints" yaml:"constraints"`

	// TotalMinutes is the budget of ModeMinutes.
	TotalMinutes int `json:"total_minutes,omitempty" yaml:"total_minutes,omitempty"`
	// Frequency is a name (daily, weekdays, weekly, twice_weekly, monthly)
	// or an RRULE for ModeRecurring.
	Frequency string `json:"frequency,omitempty" yaml:"frequency,omitempty"`
	// TargetCount overrides the occurrence count derived from Frequency.
	TargetCount int `json:"target_count,omitempty" yaml:"target_count,omitempty"`
	// RequiredMinutes is the event length for ModeSingle and ModeRecurring.
	RequiredMinutes int `json:"required_minutes,omitempty" yaml:"required_minutes,omitempty"`

	// DryRun plans without calling the EventCreator.
	DryRun bool `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	// AssumeFreeOnProviderError plans against an empty calendar when busy
	// periods cannot be fetched, instead of failing the plan.
	AssumeFreeOnProviderError bool `json:"assume_free_on_provider_error,omitempty" yaml:"assume_free_on_provider_error,omitempty"`
}

// plan is a validated request with every default resolved.
type plan struct {
	req         *PlanRequest
	calendarID  string
	window      interval.Interval
	windowDays  int
	loc         *time.Location
	constraints constraint.Constraints

	budget distributor.Budget

	rule        *frequency.Rule
	targetCount int

	requiredMinutes int
}

// prepare validates req against now and resolves its defaults.
func prepare(req *PlanRequest, now time.Time) (*plan, error) {
	if req == nil {
		return nil, schederrors.InvalidArgument("request is nil")
	}
	p := &plan{
		req:         req,
		calendarID:  req.CalendarID,
		constraints: req.Constraints,
	}
	if p.calendarID == "" {
		p.calendarID = DefaultCalendarID
	}

	loc, err := timezone.ParseTimezone(req.Timezone)
	if err != nil {
		return nil, schederrors.Wrap(err, schederrors.ErrCodeInvalidArgument, "invalid timezone")
	}
	p.loc = loc
	p.constraints.Location = loc

	if err := p.resolveWindow(now); err != nil {
		return nil, err
	}
	if err := p.constraints.Validate(); err != nil {
		return nil, err
	}

	switch req.Mode {
	case ModeMinutes:
		err = p.prepareMinutes()
	case ModeRecurring:
		err = p.prepareRecurring()
	case ModeSingle:
		err = p.prepareSingle()
	default:
		err = schederrors.InvalidArgument(fmt.Sprintf("unknown mode %q", req.Mode)).
			WithContext("mode", string(req.Mode))
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *plan) resolveWindow(now time.Time) error {
	req := p.req
	if req.WindowStart != nil || req.WindowEnd != nil {
		if req.WindowStart == nil || req.WindowEnd == nil {
			return schederrors.InvalidInterval("window needs both start and end")
		}
		w, err := interval.New(*req.WindowStart, *req.WindowEnd)
		if err != nil {
			return err
		}
		p.window = w
		p.windowDays = int(w.Duration().Hours() / 24)
		return nil
	}

	days := req.WindowDays
	if days == 0 {
		days = DefaultWindowDays
	}
	if days < 1 || days > MaxWindowDays {
		return schederrors.InvalidArgument(fmt.Sprintf("window days must be within 1..%d", MaxWindowDays)).
			WithContext("window_days", days)
	}
	// Whole-minute start so carved placements land on minute boundaries.
	start := now.UTC()
	if t := start.Truncate(time.Minute); !t.Equal(start) {
		start = t.Add(time.Minute)
	}
	w, err := interval.New(start, start.AddDate(0, 0, days))
	if err != nil {
		return err
	}
	p.window = w
	p.windowDays = days
	return nil
}

func (p *plan) prepareMinutes() error {
	c := p.constraints
	maxMinutes := p.req.TotalMinutes
	if c.MaxDurationMinutes != nil {
		maxMinutes = *c.MaxDurationMinutes
	}
	p.budget = distributor.Budget{
		TotalMinutes:       p.req.TotalMinutes,
		MinDurationMinutes: c.MinDurationMinutes,
		MaxDurationMinutes: maxMinutes,
		BufferMinutes:      c.BufferMinutes,
	}
	if err := p.budget.Validate(); err != nil {
		return err
	}
	// Candidates never need to be longer than one event.
	p.constraints = c.WithMax(maxMinutes)
	return nil
}

func (p *plan) prepareRecurring() error {
	req := p.req
	if req.TargetCount < 0 {
		return schederrors.InvalidArgument("target count must not be negative")
	}
	if req.Frequency == "" && req.TargetCount == 0 {
		return schederrors.InvalidArgument("recurring plans need a frequency or a target count")
	}
	if err := p.resolveEventLength(); err != nil {
		return err
	}

	if req.Frequency != "" {
		rule, err := frequency.Parse(req.Frequency)
		if err != nil {
			return err
		}
		p.rule = rule
		if len(p.constraints.DaysOfWeek) == 0 {
			p.constraints.DaysOfWeek = rule.DaysOfWeek()
		}
		if !rule.Until.IsZero() && (p.constraints.NotAfter == nil || rule.Until.Before(*p.constraints.NotAfter)) {
			until := rule.Until
			p.constraints.NotAfter = &until
		}
	}

	p.targetCount = req.TargetCount
	if p.targetCount == 0 {
		p.targetCount = p.rule.TargetCount(p.window, p.loc)
	}
	if p.targetCount == 0 {
		return schederrors.InvalidArgument(
			fmt.Sprintf("frequency %q has no occurrence inside the window", req.Frequency))
	}
	return nil
}

func (p *plan) prepareSingle() error {
	if err := p.resolveEventLength(); err != nil {
		return err
	}
	// A task due at a given time must start before it.
	if due := p.req.DueDate; due != nil && (p.constraints.NotAfter == nil || due.Before(*p.constraints.NotAfter)) {
		d := *due
		p.constraints.NotAfter = &d
	}
	return nil
}

// resolveEventLength fixes the minimum event length of recurring and single
// plans: RequiredMinutes when given, otherwise the minimum duration. An
// explicit RequiredMinutes also caps recurring candidates to that length;
// without it each occurrence fills up to the maximum duration.
func (p *plan) resolveEventLength() error {
	c := p.constraints
	n := p.req.RequiredMinutes
	switch {
	case n < 0:
		return schederrors.InvalidArgument("required duration must not be negative")
	case n == 0:
		n = c.MinDurationMinutes
	case n < c.MinDurationMinutes:
		return schederrors.InvalidArgument(
			fmt.Sprintf("required duration %d is below the minimum duration %d", n, c.MinDurationMinutes))
	}
	if c.MaxDurationMinutes != nil && n > *c.MaxDurationMinutes {
		return schederrors.InvalidArgument(
			fmt.Sprintf("required duration %d exceeds the maximum duration %d", n, *c.MaxDurationMinutes))
	}
	p.requiredMinutes = n
	if p.req.Mode == ModeRecurring && p.req.RequiredMinutes > 0 {
		p.constraints = c.WithMax(n)
	}
	return nil
}
