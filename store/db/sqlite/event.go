package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/slotweaver/store"
)

func (d *DB) CreateEvent(ctx context.Context, create *store.Event) (*store.Event, error) {
	fields := []string{
		"uid", "calendar_id", "title", "description",
		"start_ts", "end_ts", "all_day", "timezone", "source",
	}
	placeholderValues := []any{
		create.UID, create.CalendarID, create.Title, create.Description,
		create.StartTs, create.EndTs, create.AllDay, create.Timezone, create.Source,
	}
	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		placeholderValues = append(placeholderValues, create.CreatedTs)
	}

	stmt := `INSERT INTO calendar_event (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id, created_ts`

	if err := d.db.QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
		&create.CreatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return create, nil
}

func (d *DB) ListEvents(ctx context.Context, find *store.FindEvent) ([]*store.Event, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "calendar_event.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "calendar_event.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CalendarID; v != nil {
		where, args = append(where, "calendar_event.calendar_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	// Overlap with [StartTs, EndTs): event.start < EndTs AND event.end > StartTs.
	if v := find.EndTs; v != nil {
		where, args = append(where, "calendar_event.start_ts < "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.StartTs; v != nil {
		where, args = append(where, "calendar_event.end_ts > "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			id, uid, calendar_id, created_ts,
			title, description,
			start_ts, end_ts, all_day, timezone, source
		FROM calendar_event
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY calendar_event.start_ts ASC, calendar_event.id ASC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Event, 0)
	for rows.Next() {
		var event store.Event
		if err := rows.Scan(
			&event.ID,
			&event.UID,
			&event.CalendarID,
			&event.CreatedTs,
			&event.Title,
			&event.Description,
			&event.StartTs,
			&event.EndTs,
			&event.AllDay,
			&event.Timezone,
			&event.Source,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		list = append(list, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) DeleteEvent(ctx context.Context, delete *store.DeleteEvent) error {
	result, err := d.db.ExecContext(ctx, "DELETE FROM calendar_event WHERE uid = ?", delete.UID)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if _, err := result.RowsAffected(); err != nil {
		return err
	}
	return nil
}
