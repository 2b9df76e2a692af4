// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Shivanand-hulikatti/eventify/internal/certificate"
	"github.com/Shivanand-hulikatti/eventify/internal/model"
)

// EventStore is durable keyed storage of events.
//
// AddAttendee must append atomically: the membership check, the capacity check and
// the append are one indivisible operation against the stored event.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	List(ctx context.Context) ([]model.Event, error)
	ListByAttendee(ctx context.Context, principalID string) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	Update(ctx context.Context, id string, upd model.EventUpdate) (*model.Event, error)
	Delete(ctx context.Context, id string) error
	AddAttendee(ctx context.Context, eventID, principalID string) (*model.Event, error)
	RemoveAttendee(ctx context.Context, eventID, principalID string) (*model.Event, error)
	IsAttendee(ctx context.Context, eventID, principalID string) (bool, error)
}

// UserStore persists user accounts.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.User, error)
}

// CertificateRenderer turns certificate data into a document.
type CertificateRenderer interface {
	Render(d certificate.Data) (*certificate.Document, error)
}

// TokenIssuer signs bearer credentials for a principal.
type TokenIssuer interface {
	Issue(p model.Principal) (string, error)
}

func tracerOrNoop(t trace.Tracer) trace.Tracer {
	if t == nil {
		return noop.NewTracerProvider().Tracer("noop")
	}
	return t
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// authorizeParticipant accepts any principal acting for itself with a known role.
func authorizeParticipant(p model.Principal) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: missing principal", model.ErrUnauthenticated)
	}
	switch p.Role {
	case model.RoleStudent, model.RoleAdmin:
		return nil
	default:
		return fmt.Errorf("%w: unknown role %q", model.ErrForbidden, p.Role)
	}
}

// defaultOrganizer is shown when an event's creator has no account.
const defaultOrganizer = "Admin"

// dateLayouts are the accepted event date formats, tried in order.
var dateLayouts = []string{time.DateOnly, time.RFC3339}

// parseDate reads an event date and truncates it to a UTC calendar day.
// Timestamps with an offset are converted to UTC first.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			y, m, d := t.UTC().Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD or RFC3339, got %q", model.ErrValidation, raw)
}

func requireText(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s is required", model.ErrValidation, field)
	}
	return value, nil
}

func validateCapacity(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: max_attendees must be a positive integer", model.ErrValidation)
	}
	if n > model.MaxAttendeesLimit {
		return fmt.Errorf("%w: max_attendees cannot exceed %d", model.ErrValidation, model.MaxAttendeesLimit)
	}
	return nil
}

// isValidEmail does a basic structural check.
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}
