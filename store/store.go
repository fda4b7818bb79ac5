package store

import (
	"context"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/hrygo/slotweaver/internal/profile"
	"github.com/hrygo/slotweaver/server/scheduler/freetime"
	"github.com/hrygo/slotweaver/server/scheduler/interval"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// NewEventUID returns a fresh short UID for an event.
func NewEventUID() string {
	return shortuuid.New()
}

// ListBusyPeriods returns every event of calendarID overlapping window as a
// busy period. All-day events cover whole local days in their own zone.
func (s *Store) ListBusyPeriods(ctx context.Context, calendarID string, window interval.Interval) ([]freetime.BusyPeriod, error) {
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	// All-day rows are stored at local midnight, which may sit up to a day
	// away from the UTC window edges.
	startTs := window.Start.AddDate(0, 0, -1).Unix()
	endTs := window.End.AddDate(0, 0, 1).Unix()
	events, err := s.driver.ListEvents(ctx, &FindEvent{
		CalendarID: &calendarID,
		StartTs:    &startTs,
		EndTs:      &endTs,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list events")
	}

	periods := make([]freetime.BusyPeriod, 0, len(events))
	for _, e := range events {
		period, err := e.busyPeriod()
		if err != nil {
			return nil, errors.Wrapf(err, "event %s has a malformed time range", e.UID)
		}
		if !interval.Overlaps(period.Interval, window) {
			continue
		}
		periods = append(periods, period)
	}
	return periods, nil
}

func (e *Event) busyPeriod() (freetime.BusyPeriod, error) {
	if e.AllDay {
		loc := e.Location()
		p, err := freetime.AllDayPeriod(e.StartTime().In(loc), e.EndTime().In(loc), loc)
		if err != nil {
			return freetime.BusyPeriod{}, err
		}
		p.Source = e.UID
		return p, nil
	}
	iv, err := interval.New(e.StartTime(), e.EndTime())
	if err != nil {
		return freetime.BusyPeriod{}, err
	}
	return freetime.BusyPeriod{Interval: iv, Source: e.UID}, nil
}
