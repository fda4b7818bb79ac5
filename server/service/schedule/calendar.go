package schedule

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hrygo/slotweaver/server/scheduler/freetime"
	"github.com/hrygo/slotweaver/server/scheduler/interval"
	"github.com/hrygo/slotweaver/store"
)

// SourcePlanner marks events written by the planner.
const SourcePlanner = "planner"

// StoreCalendar serves busy periods from and writes planned events to the
// local event store.
type StoreCalendar struct {
	store *store.Store
}

// NewStoreCalendar creates a calendar backed by s.
func NewStoreCalendar(s *store.Store) *StoreCalendar {
	return &StoreCalendar{store: s}
}

// ListBusyPeriods implements BusyPeriodProvider.
func (c *StoreCalendar) ListBusyPeriods(ctx context.Context, calendarID string, window interval.Interval) ([]freetime.BusyPeriod, error) {
	return c.store.ListBusyPeriods(ctx, calendarID, window)
}

// CreateEvent implements EventCreator.
func (c *StoreCalendar) CreateEvent(ctx context.Context, draft *EventDraft) (*CreatedEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	event, err := c.store.CreateEvent(ctx, &store.Event{
		UID:         store.NewEventUID(),
		CalendarID:  draft.CalendarID,
		Title:       draft.Title,
		Description: draft.Description,
		StartTs:     draft.Start.Unix(),
		EndTs:       draft.End.Unix(),
		Timezone:    draft.Timezone,
		Source:      SourcePlanner,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create event")
	}
	return &CreatedEvent{
		ID:    event.UID,
		Title: event.Title,
		Start: event.StartTime(),
		End:   event.EndTime(),
	}, nil
}
