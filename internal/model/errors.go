package model

import "errors"

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrEventFull is returned when an event has no remaining capacity.
var ErrEventFull = errors.New("event is full")

// ErrAlreadyRegistered is returned when a principal registers for the same event twice.
var ErrAlreadyRegistered = errors.New("already registered for this event")

// ErrForbidden is returned on a role mismatch or when a non-attendee asks for a certificate.
var ErrForbidden = errors.New("forbidden")

// ErrUnauthenticated is returned for a missing or invalid credential.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrValidation is wrapped by every input validation failure.
var ErrValidation = errors.New("validation error")

// ErrEmailTaken is returned when signing up with an email that already has an account.
var ErrEmailTaken = errors.New("email is already registered")

// ErrCapacityBelowAttendees is returned when an edit would drop max_attendees below
// the number of current attendees.
var ErrCapacityBelowAttendees = errors.New("max_attendees is below current attendee count")
