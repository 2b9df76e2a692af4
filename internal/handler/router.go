package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/eventify/internal/auth"
)

// RouterDeps collects what NewRouter mounts.
type RouterDeps struct {
	Events     EventManager
	Registrar  Registrar
	Accounts   Accounts
	Resolver   auth.Resolver
	Log        *slog.Logger
	CORSOrigin string
}

// NewRouter builds the HTTP API.
func NewRouter(d RouterDeps) http.Handler {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	origin := d.CORSOrigin
	if origin == "" {
		origin = "*"
	}

	eventHandler := NewEventHandler(d.Events, d.Registrar, log)
	authHandler := NewAuthHandler(d.Accounts, log)
	requireToken := auth.Middleware(d.Resolver)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(log))
	r.Use(CORS(origin))

	r.Get("/health", HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.With(requireToken).Get("/me", authHandler.Me)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", eventHandler.ListEvents)
			r.Get("/{id}", eventHandler.GetEvent)

			r.Group(func(r chi.Router) {
				r.Use(requireToken)
				r.Post("/", eventHandler.CreateEvent)
				r.Put("/{id}", eventHandler.UpdateEvent)
				r.Delete("/{id}", eventHandler.DeleteEvent)
				r.Get("/{id}/attendees", eventHandler.Attendees)
				r.Post("/{id}/register", eventHandler.Register)
				r.Post("/{id}/unregister", eventHandler.Unregister)
				r.Get("/{id}/attendance", eventHandler.Attendance)
				r.Get("/{id}/certificate/eligibility", eventHandler.CertificateEligibility)
				r.Get("/{id}/certificate", eventHandler.Certificate)
			})
		})

		r.With(requireToken).Get("/me/events", eventHandler.MyEvents)
	})

	return r
}
