package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Shivanand-hulikatti/eventify/internal/model"
	"github.com/Shivanand-hulikatti/eventify/internal/telemetry"
)

// EventService orchestrates event browsing and admin-only event management.
type EventService struct {
	events EventStore
	users  UserStore
	log    *slog.Logger
	tracer trace.Tracer
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, users UserStore, log *slog.Logger, tracer trace.Tracer) *EventService {
	return &EventService{
		events: events,
		users:  users,
		log:    loggerOrDefault(log),
		tracer: tracerOrNoop(tracer),
	}
}

// CreateEvent validates the request and stores a new event owned by p.
func (s *EventService) CreateEvent(ctx context.Context, p model.Principal, req model.CreateEventRequest) (ev *model.Event, err error) {
	ctx, span := s.tracer.Start(ctx, "event.create", trace.WithAttributes(attribute.String("principal.id", p.ID)))
	defer func() { telemetry.End(span, err) }()

	if err := model.AuthorizeAdmin(p); err != nil {
		return nil, err
	}

	ev, err = newEvent(req)
	if err != nil {
		return nil, err
	}
	ev.CreatedBy = p.ID

	if err := s.events.Create(ctx, ev); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.log.InfoContext(ctx, "event created",
		slog.String("event_id", ev.ID),
		slog.String("created_by", p.ID),
		slog.Int("max_attendees", ev.MaxAttendees),
	)
	return ev, s.withOrganizer(ctx, ev)
}

func newEvent(req model.CreateEventRequest) (*model.Event, error) {
	var (
		ev  model.Event
		err error
	)
	if ev.Title, err = requireText("title", req.Title); err != nil {
		return nil, err
	}
	if ev.Description, err = requireText("description", req.Description); err != nil {
		return nil, err
	}
	if _, err = requireText("date", req.Date); err != nil {
		return nil, err
	}
	if ev.Date, err = parseDate(req.Date); err != nil {
		return nil, err
	}
	if ev.Time, err = requireText("time", req.Time); err != nil {
		return nil, err
	}
	if ev.Location, err = requireText("location", req.Location); err != nil {
		return nil, err
	}
	if ev.Category, err = model.ParseCategory(req.Category); err != nil {
		return nil, err
	}

	ev.MaxAttendees = req.MaxAttendees
	if ev.MaxAttendees == 0 {
		ev.MaxAttendees = model.DefaultMaxAttendees
	}
	if err = validateCapacity(ev.MaxAttendees); err != nil {
		return nil, err
	}
	return &ev, nil
}

// UpdateEvent applies an admin edit. Attendees and creator are never changed here.
func (s *EventService) UpdateEvent(ctx context.Context, p model.Principal, id string, req model.UpdateEventRequest) (ev *model.Event, err error) {
	ctx, span := s.tracer.Start(ctx, "event.update", trace.WithAttributes(
		attribute.String("event.id", id),
		attribute.String("principal.id", p.ID),
	))
	defer func() { telemetry.End(span, err) }()

	if err := model.AuthorizeAdmin(p); err != nil {
		return nil, err
	}

	upd, err := toEventUpdate(req)
	if err != nil {
		return nil, err
	}

	ev, err = s.events.Update(ctx, id, upd)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrCapacityBelowAttendees) {
			return nil, err
		}
		return nil, fmt.Errorf("update event: %w", err)
	}

	s.log.InfoContext(ctx, "event updated",
		slog.String("event_id", id),
		slog.String("updated_by", p.ID),
	)
	return ev, s.withOrganizer(ctx, ev)
}

func toEventUpdate(req model.UpdateEventRequest) (model.EventUpdate, error) {
	var upd model.EventUpdate

	text := func(field string, raw *string) (*string, error) {
		if raw == nil {
			return nil, nil
		}
		v, err := requireText(field, *raw)
		if err != nil {
			return nil, err
		}
		return &v, nil
	}

	var err error
	if upd.Title, err = text("title", req.Title); err != nil {
		return upd, err
	}
	if upd.Description, err = text("description", req.Description); err != nil {
		return upd, err
	}
	if upd.Time, err = text("time", req.Time); err != nil {
		return upd, err
	}
	if upd.Location, err = text("location", req.Location); err != nil {
		return upd, err
	}
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			return upd, err
		}
		upd.Date = &d
	}
	if req.Category != nil {
		c, err := model.ParseCategory(*req.Category)
		if err != nil {
			return upd, err
		}
		upd.Category = &c
	}
	if req.MaxAttendees != nil {
		if err := validateCapacity(*req.MaxAttendees); err != nil {
			return upd, err
		}
		n := *req.MaxAttendees
		upd.MaxAttendees = &n
	}
	return upd, nil
}

// DeleteEvent removes an event unconditionally, whatever its registrations.
func (s *EventService) DeleteEvent(ctx context.Context, p model.Principal, id string) (err error) {
	ctx, span := s.tracer.Start(ctx, "event.delete", trace.WithAttributes(
		attribute.String("event.id", id),
		attribute.String("principal.id", p.ID),
	))
	defer func() { telemetry.End(span, err) }()

	if err := model.AuthorizeAdmin(p); err != nil {
		return err
	}
	if err := s.events.Delete(ctx, id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete event: %w", err)
	}

	s.log.InfoContext(ctx, "event deleted",
		slog.String("event_id", id),
		slog.String("deleted_by", p.ID),
	)
	return nil
}

// ListEvents returns all events by date.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if err := s.withOrganizers(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: event id is required", model.ErrValidation)
	}
	ev, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, s.withOrganizer(ctx, ev)
}

// ListAttending returns the events p is registered for.
func (s *EventService) ListAttending(ctx context.Context, p model.Principal) ([]model.Event, error) {
	if err := authorizeParticipant(p); err != nil {
		return nil, err
	}
	events, err := s.events.ListByAttendee(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list attending: %w", err)
	}
	if err := s.withOrganizers(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

// Attendees returns the event's roster in registration order. Emails are
// included, so only admins may see it. Attendees whose account is gone are
// listed by principal id.
func (s *EventService) Attendees(ctx context.Context, p model.Principal, id string) ([]model.Attendee, error) {
	if err := model.AuthorizeAdmin(p); err != nil {
		return nil, err
	}
	ev, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	users, err := s.usersByID(ctx, ev.Attendees)
	if err != nil {
		return nil, err
	}
	roster := make([]model.Attendee, 0, len(ev.Attendees))
	for _, pid := range ev.Attendees {
		a := model.Attendee{ID: pid, Name: pid}
		if u, ok := users[pid]; ok {
			a.Name, a.Email = u.Name, u.Email
		}
		roster = append(roster, a)
	}
	return roster, nil
}

func (s *EventService) withOrganizer(ctx context.Context, ev *model.Event) error {
	events := []model.Event{*ev}
	if err := s.withOrganizers(ctx, events); err != nil {
		return err
	}
	ev.OrganizerName = events[0].OrganizerName
	return nil
}

// withOrganizers fills OrganizerName from the user store with one lookup for
// all distinct creators. Unknown creators show as "Admin".
func (s *EventService) withOrganizers(ctx context.Context, events []model.Event) error {
	var ids []string
	for _, e := range events {
		if e.CreatedBy != "" && !slices.Contains(ids, e.CreatedBy) {
			ids = append(ids, e.CreatedBy)
		}
	}
	users, err := s.usersByID(ctx, ids)
	if err != nil {
		return err
	}
	for i := range events {
		events[i].OrganizerName = defaultOrganizer
		if u, ok := users[events[i].CreatedBy]; ok {
			events[i].OrganizerName = u.Name
		}
	}
	return nil
}

func (s *EventService) usersByID(ctx context.Context, ids []string) (map[string]model.User, error) {
	if len(ids) == 0 || s.users == nil {
		return nil, nil
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	byID := make(map[string]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}
