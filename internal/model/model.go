// Package model defines the core domain types for the Eventify event management system.
package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DefaultMaxAttendees is the capacity given to events created without one.
const DefaultMaxAttendees = 100

// MaxAttendeesLimit caps the capacity an admin may configure.
const MaxAttendeesLimit = 100_000

// Category classifies an event.
type Category string

const (
	CategoryWorkshop    Category = "workshop"
	CategorySeminar     Category = "seminar"
	CategoryCompetition Category = "competition"
	CategoryCultural    Category = "cultural"
	CategorySports      Category = "sports"
	CategoryOther       Category = "other"
)

// ParseCategory maps a raw value to a Category. Empty input yields CategoryOther.
func ParseCategory(raw string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(raw))); c {
	case "":
		return CategoryOther, nil
	case CategoryWorkshop, CategorySeminar, CategoryCompetition,
		CategoryCultural, CategorySports, CategoryOther:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unknown category %q", ErrValidation, raw)
	}
}

// Role is the closed set of roles a principal can hold.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// ParseRole maps a raw value to a Role. Anything outside the enumeration is rejected.
func ParseRole(raw string) (Role, error) {
	switch r := Role(raw); r {
	case RoleStudent, RoleAdmin:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, raw)
	}
}

// Principal is an authenticated identity acting on the system.
type Principal struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// AuthorizeAdmin returns ErrForbidden unless p holds the admin role.
func AuthorizeAdmin(p Principal) error {
	switch p.Role {
	case RoleAdmin:
		return nil
	case RoleStudent:
		return fmt.Errorf("%w: admin access required", ErrForbidden)
	default:
		return fmt.Errorf("%w: unknown role %q", ErrForbidden, p.Role)
	}
}

// Event is a club event students can register for.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Time        string    `json:"time"`
	Location    string    `json:"location"`
	Category    Category  `json:"category"`
	CreatedBy   string    `json:"created_by"`

	// OrganizerName is the creator's display name. Stores leave it empty;
	// the service fills it in on reads.
	OrganizerName string `json:"organizer_name,omitempty"`

	Attendees    []string  `json:"attendees"`
	MaxAttendees int       `json:"max_attendees"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Remaining returns the number of free places.
func (e *Event) Remaining() int {
	return e.MaxAttendees - len(e.Attendees)
}

// IsFull returns true when no places remain.
func (e *Event) IsFull() bool {
	return len(e.Attendees) >= e.MaxAttendees
}

// HasAttendee reports whether principalID is in the attendee set.
func (e *Event) HasAttendee(principalID string) bool {
	return slices.Contains(e.Attendees, principalID)
}

// Clone returns a deep copy so callers never share the attendee slice.
func (e *Event) Clone() *Event {
	c := *e
	c.Attendees = slices.Clone(e.Attendees)
	if c.Attendees == nil {
		c.Attendees = []string{}
	}
	return &c
}

// EventUpdate carries the descriptive fields an admin edit may change.
// Nil fields are left untouched.
type EventUpdate struct {
	Title        *string
	Description  *string
	Date         *time.Time
	Time         *string
	Location     *string
	Category     *Category
	MaxAttendees *int
}

// Apply copies the set fields of u onto e.
func (u EventUpdate) Apply(e *Event) {
	if u.Title != nil {
		e.Title = *u.Title
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.Date != nil {
		e.Date = *u.Date
	}
	if u.Time != nil {
		e.Time = *u.Time
	}
	if u.Location != nil {
		e.Location = *u.Location
	}
	if u.Category != nil {
		e.Category = *u.Category
	}
	if u.MaxAttendees != nil {
		e.MaxAttendees = *u.MaxAttendees
	}
}

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Principal returns the identity the user acts as.
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Role: u.Role}
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	Location     string `json:"location"`
	Category     string `json:"category"`
	MaxAttendees int    `json:"max_attendees"`
}

// UpdateEventRequest is the payload for editing an event. Absent fields are unchanged.
type UpdateEventRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Date         *string `json:"date"`
	Time         *string `json:"time"`
	Location     *string `json:"location"`
	Category     *string `json:"category"`
	MaxAttendees *int    `json:"max_attendees"`
}

// SignupRequest is the payload for creating an account.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginRequest is the payload for exchanging credentials for a token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token string `json:"token"`
	Role  Role   `json:"role"`
}

// MessageResponse is a plain acknowledgement, optionally with the affected event.
type MessageResponse struct {
	Message string `json:"message"`
	Event   *Event `json:"event,omitempty"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Attendee is one row of an event's roster as shown to admins.
type Attendee struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AttendanceResponse reports whether the caller is registered for an event.
type AttendanceResponse struct {
	Attending bool `json:"attending"`
}

// EligibilityResponse reports whether the caller may download a certificate.
type EligibilityResponse struct {
	Eligible bool `json:"eligible"`
}
