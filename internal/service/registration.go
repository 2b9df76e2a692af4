package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Shivanand-hulikatti/eventify/internal/certificate"
	"github.com/Shivanand-hulikatti/eventify/internal/model"
	"github.com/Shivanand-hulikatti/eventify/internal/telemetry"
)

// RegistrationService governs how principals join and leave an event's attendee set.
// It keeps no state between calls; every operation reads the store's current value.
type RegistrationService struct {
	events   EventStore
	users    UserStore
	renderer CertificateRenderer
	log      *slog.Logger
	tracer   trace.Tracer
}

// NewRegistrationService constructs a RegistrationService with its dependencies.
func NewRegistrationService(
	events EventStore,
	users UserStore,
	renderer CertificateRenderer,
	log *slog.Logger,
	tracer trace.Tracer,
) *RegistrationService {
	return &RegistrationService{
		events:   events,
		users:    users,
		renderer: renderer,
		log:      loggerOrDefault(log),
		tracer:   tracerOrNoop(tracer),
	}
}

func (s *RegistrationService) start(ctx context.Context, name, eventID string, p model.Principal) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("event.id", eventID),
		attribute.String("principal.id", p.ID),
		attribute.String("principal.role", string(p.Role)),
	))
}

// Register adds p to the event's attendees.
// It fails with ErrNotFound, ErrAlreadyRegistered or ErrEventFull; the store applies
// the membership and capacity checks and the append as one atomic operation.
func (s *RegistrationService) Register(ctx context.Context, eventID string, p model.Principal) (ev *model.Event, err error) {
	ctx, span := s.start(ctx, "registration.register", eventID, p)
	defer func() { telemetry.End(span, err) }()

	if err := authorizeParticipant(p); err != nil {
		return nil, err
	}
	if eventID == "" {
		return nil, fmt.Errorf("%w: event id is required", model.ErrValidation)
	}

	ev, err = s.events.AddAttendee(ctx, eventID, p.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) ||
			errors.Is(err, model.ErrAlreadyRegistered) ||
			errors.Is(err, model.ErrEventFull) {
			return nil, err
		}
		return nil, fmt.Errorf("register for event: %w", err)
	}

	span.SetAttributes(attribute.Int("event.attendees", len(ev.Attendees)))
	s.log.InfoContext(ctx, "attendee registered",
		slog.String("event_id", eventID),
		slog.String("principal_id", p.ID),
		slog.Int("attendees", len(ev.Attendees)),
		slog.Int("max_attendees", ev.MaxAttendees),
	)
	return ev, nil
}

// Unregister removes p from the event's attendees. Removing a non-member succeeds.
func (s *RegistrationService) Unregister(ctx context.Context, eventID string, p model.Principal) (ev *model.Event, err error) {
	ctx, span := s.start(ctx, "registration.unregister", eventID, p)
	defer func() { telemetry.End(span, err) }()

	if err := authorizeParticipant(p); err != nil {
		return nil, err
	}

	ev, err = s.events.RemoveAttendee(ctx, eventID, p.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("unregister from event: %w", err)
	}

	s.log.InfoContext(ctx, "attendee unregistered",
		slog.String("event_id", eventID),
		slog.String("principal_id", p.ID),
		slog.Int("attendees", len(ev.Attendees)),
	)
	return ev, nil
}

// IsAttendee reports whether p is currently registered for the event.
func (s *RegistrationService) IsAttendee(ctx context.Context, eventID string, p model.Principal) (bool, error) {
	if err := authorizeParticipant(p); err != nil {
		return false, err
	}
	ok, err := s.events.IsAttendee(ctx, eventID, p.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return false, err
		}
		return false, fmt.Errorf("check attendance: %w", err)
	}
	return ok, nil
}

// CertificateEligibility reports whether p may download a certificate for the event.
// Eligibility is live membership; there is no record of past attendance.
func (s *RegistrationService) CertificateEligibility(ctx context.Context, eventID string, p model.Principal) (bool, error) {
	return s.IsAttendee(ctx, eventID, p)
}

// Certificate renders the attendance certificate for p, or fails with ErrForbidden
// when p is not currently an attendee.
func (s *RegistrationService) Certificate(ctx context.Context, eventID string, p model.Principal) (doc *certificate.Document, err error) {
	ctx, span := s.start(ctx, "registration.certificate", eventID, p)
	defer func() { telemetry.End(span, err) }()

	if err := authorizeParticipant(p); err != nil {
		return nil, err
	}

	// Membership and printed fields come from the same read.
	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !ev.HasAttendee(p.ID) {
		return nil, fmt.Errorf("%w: not registered for this event", model.ErrForbidden)
	}

	attendee, err := s.displayName(ctx, p.ID, p.ID)
	if err != nil {
		return nil, err
	}
	organizer, err := s.displayName(ctx, ev.CreatedBy, "")
	if err != nil {
		return nil, err
	}

	doc, err = s.renderer.Render(certificate.Data{
		AttendeeName: attendee,
		EventTitle:   ev.Title,
		Date:         ev.Date,
		Location:     ev.Location,
		Organizer:    organizer,
	})
	if err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}

	s.log.InfoContext(ctx, "certificate issued",
		slog.String("event_id", eventID),
		slog.String("principal_id", p.ID),
	)
	return doc, nil
}

// displayName looks up a user's name, returning fallback when the account is gone.
func (s *RegistrationService) displayName(ctx context.Context, userID, fallback string) (string, error) {
	if userID == "" {
		return fallback, nil
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return fallback, nil
		}
		return "", fmt.Errorf("get user: %w", err)
	}
	return u.Name, nil
}
