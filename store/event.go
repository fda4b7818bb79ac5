package store

import (
	"context"
	"time"

	"github.com/hrygo/slotweaver/server/timezone"
)

// DefaultCalendarID is used when a caller does not name a calendar.
const DefaultCalendarID = "default"

// Event is a calendar entry. Timestamps are unix seconds; EndTs is exclusive.
// For all-day events StartTs and EndTs are local midnights in Timezone.
type Event struct {
	ID          int32
	UID         string
	CalendarID  string
	CreatedTs   int64
	Title       string
	Description string
	StartTs     int64
	EndTs       int64
	AllDay      bool
	Timezone    string
	// Source tells who created the event, e.g. "import" or "planner".
	Source string
}

// FindEvent is the find condition for events.
type FindEvent struct {
	ID         *int32
	UID        *string
	CalendarID *string

	// Events overlapping [StartTs, EndTs).
	StartTs *int64
	EndTs   *int64

	Limit *int
}

// DeleteEvent is the delete request for an event.
type DeleteEvent struct {
	UID string
}

// CreateEvent creates a new event.
func (s *Store) CreateEvent(ctx context.Context, create *Event) (*Event, error) {
	return s.driver.CreateEvent(ctx, create)
}

// ListEvents lists events with filter, ordered by start.
func (s *Store) ListEvents(ctx context.Context, find *FindEvent) ([]*Event, error) {
	return s.driver.ListEvents(ctx, find)
}

// GetEvent gets the first event matching find, or nil.
func (s *Store) GetEvent(ctx context.Context, find *FindEvent) (*Event, error) {
	list, err := s.driver.ListEvents(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// DeleteEvent deletes an event.
func (s *Store) DeleteEvent(ctx context.Context, delete *DeleteEvent) error {
	return s.driver.DeleteEvent(ctx, delete)
}

// StartTime returns the event start as a UTC time.
func (e *Event) StartTime() time.Time {
	return time.Unix(e.StartTs, 0).UTC()
}

// EndTime returns the exclusive event end as a UTC time.
func (e *Event) EndTime() time.Time {
	return time.Unix(e.EndTs, 0).UTC()
}

// Location returns the event's zone, falling back to UTC for unknown names.
func (e *Event) Location() *time.Location {
	loc, _ := timezone.ParseTimezone(e.Timezone)
	return loc
}
