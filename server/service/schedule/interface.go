package schedule

import (
	"context"
	"time"

	"github.com/hrygo/slotweaver/server/scheduler/freetime"
	"github.com/hrygo/slotweaver/server/scheduler/interval"
)

// Service plans placements for one requirement against one calendar.
// Implementations hold only immutable collaborators and are safe for
// concurrent use.
type Service interface {
	// Plan runs the pipeline once. A Go error is returned only for
	// structurally invalid requests (INVALID_INTERVAL, INVALID_ARGUMENT);
	// every other outcome, including FAILED, is reported in the Result.
	Plan(ctx context.Context, req *PlanRequest) (*Result, error)
}

// BusyPeriodProvider lists the busy periods of a calendar inside window.
type BusyPeriodProvider interface {
	ListBusyPeriods(ctx context.Context, calendarID string, window interval.Interval) ([]freetime.BusyPeriod, error)
}

// EventCreator persists one planned event. It is called once per event.
type EventCreator interface {
	CreateEvent(ctx context.Context, draft *EventDraft) (*CreatedEvent, error)
}

// EventDraft is a planned event handed to the EventCreator.
type EventDraft struct {
	CalendarID      string
	Title           string
	Description     string
	Start           time.Time
	End             time.Time
	DurationMinutes int
	// Timezone is the IANA zone the plan was evaluated in.
	Timezone string
}

// CreatedEvent is the creator's receipt for one event.
type CreatedEvent struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
