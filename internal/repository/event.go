// Package repository implements event and user persistence for Eventify.
// EventRepository and UserRepository use pgx directly (no ORM); the Memory*
// stores back local development and tests with the same guarantees.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/eventify/internal/model"
)

// registerAttempts bounds how often AddAttendee re-runs its conditional update
// when the row changed between the failed update and the classifying read.
const registerAttempts = 3

const eventColumns = `id, title, description, event_date, event_time, location, category,
	created_by, attendees, max_attendees, created_at, updated_at`

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var (
		e        model.Event
		category string
	)
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Date, &e.Time, &e.Location, &category,
		&e.CreatedBy, &e.Attendees, &e.MaxAttendees, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Category = model.Category(category)
	if e.Attendees == nil {
		e.Attendees = []string{}
	}
	return &e, nil
}

func collectEvents(rows pgx.Rows) ([]model.Event, error) {
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Create inserts a new event, assigning its ID, empty attendee set and timestamps.
func (r *EventRepository) Create(ctx context.Context, e *model.Event) error {
	now := time.Now().UTC()
	e.ID = uuid.New().String()
	e.Attendees = []string{}
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.Title, e.Description, e.Date, e.Time, e.Location, string(e.Category),
		e.CreatedBy, e.Attendees, e.MaxAttendees, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// List returns all events ordered by date ascending.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 ORDER BY event_date ASC, created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return collectEvents(rows)
}

// ListByAttendee returns the events principalID is registered for, ordered by date.
func (r *EventRepository) ListByAttendee(ctx context.Context, principalID string) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 WHERE attendees @> ARRAY[$1::text]
		 ORDER BY event_date ASC, created_at ASC`,
		principalID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events by attendee: %w", err)
	}
	return collectEvents(rows)
}

// GetByID returns a single event or model.ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// Update applies the set fields of upd in one statement. The capacity guard is part of
// the WHERE clause, so a concurrent registration can never be squeezed out by an edit.
func (r *EventRepository) Update(ctx context.Context, id string, upd model.EventUpdate) (*model.Event, error) {
	var category *string
	if upd.Category != nil {
		c := string(*upd.Category)
		category = &c
	}

	e, err := scanEvent(r.db.QueryRow(ctx,
		`UPDATE events SET
		     title         = COALESCE($2, title),
		     description   = COALESCE($3, description),
		     event_date    = COALESCE($4, event_date),
		     event_time    = COALESCE($5, event_time),
		     location      = COALESCE($6, location),
		     category      = COALESCE($7, category),
		     max_attendees = COALESCE($8, max_attendees),
		     updated_at    = now()
		 WHERE id = $1
		   AND cardinality(attendees) <= COALESCE($8, max_attendees)
		 RETURNING `+eventColumns,
		id, upd.Title, upd.Description, upd.Date, upd.Time, upd.Location, category, upd.MaxAttendees,
	))
	if err == nil {
		return e, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update event: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check event: %w", err)
	}
	if !exists {
		return nil, model.ErrNotFound
	}
	return nil, model.ErrCapacityBelowAttendees
}

// Delete removes an event regardless of its registrations.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// AddAttendee appends principalID to the attendee set iff it is absent and the
// event is under capacity.
//
// The membership and capacity checks live in the UPDATE's WHERE clause, so the
// read-check-write happens as one atomic statement on the row:
//
//	request A: UPDATE ... WHERE cardinality(attendees) < max_attendees  → 1 row
//	request B: UPDATE ... WHERE cardinality(attendees) < max_attendees  → waits on A's row lock,
//	           re-evaluates against A's committed row, 0 rows when A filled the last place
//
// When no row is updated a follow-up read classifies why.
func (r *EventRepository) AddAttendee(ctx context.Context, eventID, principalID string) (*model.Event, error) {
	for attempt := 0; attempt < registerAttempts; attempt++ {
		e, err := scanEvent(r.db.QueryRow(ctx,
			`UPDATE events
			 SET attendees = array_append(attendees, $2::text),
			     updated_at = now()
			 WHERE id = $1
			   AND NOT ($2::text = ANY(attendees))
			   AND cardinality(attendees) < max_attendees
			 RETURNING `+eventColumns,
			eventID, principalID,
		))
		if err == nil {
			return e, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("add attendee: %w", err)
		}

		var member, full bool
		err = r.db.QueryRow(ctx,
			`SELECT $2::text = ANY(attendees), cardinality(attendees) >= max_attendees
			 FROM events WHERE id = $1`,
			eventID, principalID,
		).Scan(&member, &full)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, model.ErrNotFound
		case err != nil:
			return nil, fmt.Errorf("classify registration: %w", err)
		case member:
			return nil, model.ErrAlreadyRegistered
		case full:
			return nil, model.ErrEventFull
		}
		// A place opened up between the two statements; try again.
	}
	return nil, fmt.Errorf("add attendee: event %s kept changing under contention", eventID)
}

// RemoveAttendee drops principalID from the attendee set. Removing a non-member
// succeeds without changing the row.
func (r *EventRepository) RemoveAttendee(ctx context.Context, eventID, principalID string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`UPDATE events
		 SET attendees = array_remove(attendees, $2::text),
		     updated_at = CASE WHEN $2::text = ANY(attendees) THEN now() ELSE updated_at END
		 WHERE id = $1
		 RETURNING `+eventColumns,
		eventID, principalID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("remove attendee: %w", err)
	}
	return e, nil
}

// IsAttendee reports whether principalID is currently in the event's attendee set.
func (r *EventRepository) IsAttendee(ctx context.Context, eventID, principalID string) (bool, error) {
	var member bool
	err := r.db.QueryRow(ctx,
		`SELECT $2::text = ANY(attendees) FROM events WHERE id = $1`,
		eventID, principalID,
	).Scan(&member)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, model.ErrNotFound
		}
		return false, fmt.Errorf("check attendee: %w", err)
	}
	return member, nil
}
