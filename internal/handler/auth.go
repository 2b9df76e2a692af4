package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/eventify/internal/model"
)

// Accounts is the account surface the auth handlers depend on.
type Accounts interface {
	Signup(ctx context.Context, req model.SignupRequest) (*model.User, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error)
	Me(ctx context.Context, p model.Principal) (*model.User, error)
}

// AuthHandler serves signup, login and the current-user lookup.
type AuthHandler struct {
	accounts Accounts
	log      *slog.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(accounts Accounts, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AuthHandler{accounts: accounts, log: log}
}

// Signup handles POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	u, err := h.accounts.Signup(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to create account")
		return
	}

	writeJSON(w, http.StatusCreated, u)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.accounts.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to log in")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	u, err := h.accounts.Me(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to load account")
		return
	}

	writeJSON(w, http.StatusOK, u)
}
