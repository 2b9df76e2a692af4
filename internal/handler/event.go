package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/eventify/internal/certificate"
	"github.com/Shivanand-hulikatti/eventify/internal/model"
)

// EventManager is the event administration surface the handlers depend on.
type EventManager interface {
	CreateEvent(ctx context.Context, p model.Principal, req model.CreateEventRequest) (*model.Event, error)
	UpdateEvent(ctx context.Context, p model.Principal, id string, req model.UpdateEventRequest) (*model.Event, error)
	DeleteEvent(ctx context.Context, p model.Principal, id string) error
	ListEvents(ctx context.Context) ([]model.Event, error)
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListAttending(ctx context.Context, p model.Principal) ([]model.Event, error)
	Attendees(ctx context.Context, p model.Principal, id string) ([]model.Attendee, error)
}

// Registrar is the registration surface the handlers depend on.
type Registrar interface {
	Register(ctx context.Context, eventID string, p model.Principal) (*model.Event, error)
	Unregister(ctx context.Context, eventID string, p model.Principal) (*model.Event, error)
	IsAttendee(ctx context.Context, eventID string, p model.Principal) (bool, error)
	CertificateEligibility(ctx context.Context, eventID string, p model.Principal) (bool, error)
	Certificate(ctx context.Context, eventID string, p model.Principal) (*certificate.Document, error)
}

// EventHandler holds all HTTP handlers for events and registrations.
type EventHandler struct {
	events EventManager
	reg    Registrar
	log    *slog.Logger
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(events EventManager, reg Registrar, log *slog.Logger) *EventHandler {
	if log == nil {
		log = slog.Default()
	}
	return &EventHandler{events: events, reg: reg, log: log}
}

// CreateEvent handles POST /events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.CreateEvent(r.Context(), p, req)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to create event")
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// ListEvents handles GET /events
// Returns a JSON array of all events ordered by date.
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListEvents(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to list events")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to get event")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent handles PUT /events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req model.UpdateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.UpdateEvent(r.Context(), p, chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to update event")
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	if err := h.events.DeleteEvent(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.log, err, "failed to delete event")
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "event deleted"})
}

// Attendees handles GET /events/{id}/attendees
// Returns the admin-only roster with names and emails.
func (h *EventHandler) Attendees(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	roster, err := h.events.Attendees(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to list attendees")
		return
	}

	writeJSON(w, http.StatusOK, roster)
}

// Register handles POST /events/{id}/register
// The caller is always the principal from the bearer token; the body is ignored.
func (h *EventHandler) Register(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	event, err := h.reg.Register(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to register")
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "registered successfully", Event: event})
}

// Unregister handles POST /events/{id}/unregister
func (h *EventHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	event, err := h.reg.Unregister(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to unregister")
		return
	}

	writeJSON(w, http.StatusOK, model.MessageResponse{Message: "unregistered successfully", Event: event})
}

// Attendance handles GET /events/{id}/attendance
func (h *EventHandler) Attendance(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	attending, err := h.reg.IsAttendee(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to check attendance")
		return
	}

	writeJSON(w, http.StatusOK, model.AttendanceResponse{Attending: attending})
}

// CertificateEligibility handles GET /events/{id}/certificate/eligibility
func (h *EventHandler) CertificateEligibility(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	eligible, err := h.reg.CertificateEligibility(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to check eligibility")
		return
	}

	writeJSON(w, http.StatusOK, model.EligibilityResponse{Eligible: eligible})
}

// Certificate handles GET /events/{id}/certificate
// Streams the rendered PDF as an attachment.
func (h *EventHandler) Certificate(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	doc, err := h.reg.Certificate(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to generate certificate")
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Body)
}

// MyEvents handles GET /me/events
func (h *EventHandler) MyEvents(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	events, err := h.events.ListAttending(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to list events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}

	writeJSON(w, http.StatusOK, events)
}
