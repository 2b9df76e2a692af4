package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/eventify/internal/auth"
	"github.com/Shivanand-hulikatti/eventify/internal/certificate"
	"github.com/Shivanand-hulikatti/eventify/internal/model"
	"github.com/Shivanand-hulikatti/eventify/internal/repository"
	"github.com/Shivanand-hulikatti/eventify/internal/service"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type apiFixture struct {
	t      *testing.T
	router http.Handler
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	tokens, err := auth.NewTokens([]byte("0123456789abcdef0123456789abcdef"), "eventify", time.Hour)
	require.NoError(t, err)

	events := repository.NewMemoryEventStore()
	users := repository.NewMemoryUserStore()
	router := NewRouter(RouterDeps{
		Events:    service.NewEventService(events, users, quiet, nil),
		Registrar: service.NewRegistrationService(events, users, certificate.NewPDFRenderer(), quiet, nil),
		Accounts:  service.NewUserService(users, tokens, true, quiet),
		Resolver:  tokens,
		Log:       quiet,
	})
	return &apiFixture{t: t, router: router}
}

func (f *apiFixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// account signs up and logs in, returning the bearer token.
func (f *apiFixture) account(name, role string) string {
	f.t.Helper()
	email := name + "@uni.edu"
	rec := f.do(http.MethodPost, "/api/auth/signup", "", model.SignupRequest{
		Name: name, Email: email, Password: "long-enough", Role: role,
	})
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(http.MethodPost, "/api/auth/login", "", model.LoginRequest{Email: email, Password: "long-enough"})
	require.Equal(f.t, http.StatusOK, rec.Code, rec.Body.String())
	var resp model.LoginResponse
	require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func (f *apiFixture) createEvent(token string, capacity int) model.Event {
	f.t.Helper()
	rec := f.do(http.MethodPost, "/api/events", token, model.CreateEventRequest{
		Title: "Go Night", Description: "talks", Date: "2026-11-14", Time: "18:00",
		Location: "Hall A", Category: "seminar", MaxAttendees: capacity,
	})
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	var ev model.Event
	require.NoError(f.t, json.Unmarshal(rec.Body.Bytes(), &ev))
	return ev
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthCheck(t *testing.T) {
	api := newAPI(t)
	rec := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthRoutes(t *testing.T) {
	api := newAPI(t)
	token := api.account("ada", "")

	rec := api.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	assert.Equal(t, "ada", me["name"])
	assert.Equal(t, "student", me["role"])
	assert.NotContains(t, me, "password_hash")

	rec = api.do(http.MethodPost, "/api/auth/signup", "", model.SignupRequest{
		Name: "ada", Email: "ada@uni.edu", Password: "long-enough",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(http.MethodPost, "/api/auth/login", "", model.LoginRequest{Email: "ada@uni.edu", Password: "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/api/auth/signup", "", `{"name":"x","surprise":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignup_AdminDisabled(t *testing.T) {
	tokens, err := auth.NewTokens([]byte("0123456789abcdef0123456789abcdef"), "eventify", time.Hour)
	require.NoError(t, err)
	api := &apiFixture{t: t, router: NewRouter(RouterDeps{
		Accounts: service.NewUserService(repository.NewMemoryUserStore(), tokens, false, quiet),
		Resolver: tokens,
		Log:      quiet,
	})}

	rec := api.do(http.MethodPost, "/api/auth/signup", "", model.SignupRequest{
		Name: "mallory", Email: "mallory@uni.edu", Password: "long-enough", Role: "admin",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	api.account("sam", "")
}

func TestEventAdministration(t *testing.T) {
	api := newAPI(t)
	adminToken := api.account("club", "admin")
	studentToken := api.account("ada", "")

	rec := api.do(http.MethodPost, "/api/events", "", model.CreateEventRequest{Title: "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/api/events", studentToken, model.CreateEventRequest{
		Title: "x", Description: "x", Date: "2026-11-14", Time: "10:00", Location: "x",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPost, "/api/events", adminToken, model.CreateEventRequest{Title: "missing fields"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ev := api.createEvent(adminToken, 1)
	assert.Equal(t, 1, ev.MaxAttendees)

	rec = api.do(http.MethodGet, "/api/events", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Event](t, rec), 1)

	rec = api.do(http.MethodGet, "/api/events/"+ev.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodGet, "/api/events/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodPut, "/api/events/"+ev.ID, studentToken, map[string]any{"title": "mine now"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPut, "/api/events/"+ev.ID, adminToken, map[string]any{"title": "Go Night II"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Go Night II", decode[model.Event](t, rec).Title)

	rec = api.do(http.MethodPost, "/api/events/"+ev.ID+"/register", studentToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodPut, "/api/events/"+ev.ID, adminToken, map[string]any{"max_attendees": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodDelete, "/api/events/"+ev.ID, studentToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = api.do(http.MethodDelete, "/api/events/"+ev.ID, adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodDelete, "/api/events/"+ev.ID, adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateEvent_CapacityBelowAttendees(t *testing.T) {
	api := newAPI(t)
	adminToken := api.account("club", "admin")
	ev := api.createEvent(adminToken, 5)

	for _, name := range []string{"ada", "bob"} {
		rec := api.do(http.MethodPost, "/api/events/"+ev.ID+"/register", api.account(name, ""), nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := api.do(http.MethodPut, "/api/events/"+ev.ID, adminToken, map[string]any{"max_attendees": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestOrganizerNameAndRoster(t *testing.T) {
	api := newAPI(t)
	adminToken := api.account("club", "admin")
	ada := api.account("ada", "")
	ev := api.createEvent(adminToken, 5)
	assert.Equal(t, "club", ev.OrganizerName)

	rec := api.do(http.MethodGet, "/api/events", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]map[string]any](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "club", list[0]["organizer_name"])

	rec = api.do(http.MethodGet, "/api/events/"+ev.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "club", decode[model.Event](t, rec).OrganizerName)

	rec = api.do(http.MethodPost, "/api/events/"+ev.ID+"/register", ada, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/api/events/"+ev.ID+"/attendees", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	roster := decode[[]model.Attendee](t, rec)
	require.Len(t, roster, 1)
	assert.Equal(t, "ada", roster[0].Name)
	assert.Equal(t, "ada@uni.edu", roster[0].Email)
	assert.NotEmpty(t, roster[0].ID)

	rec = api.do(http.MethodGet, "/api/events/"+ev.ID+"/attendees", ada, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = api.do(http.MethodGet, "/api/events/"+ev.ID+"/attendees", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = api.do(http.MethodGet, "/api/events/missing/attendees", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegistrationFlow(t *testing.T) {
	api := newAPI(t)
	adminToken := api.account("club", "admin")
	ada := api.account("ada", "")
	bob := api.account("bob", "")
	ev := api.createEvent(adminToken, 1)
	base := "/api/events/" + ev.ID

	rec := api.do(http.MethodPost, base+"/register", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, base+"/register", ada, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	msg := decode[model.MessageResponse](t, rec)
	require.NotNil(t, msg.Event)
	assert.Len(t, msg.Event.Attendees, 1)

	rec = api.do(http.MethodPost, base+"/register", ada, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already registered")

	rec = api.do(http.MethodPost, base+"/register", bob, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "fully booked")

	rec = api.do(http.MethodGet, base+"/attendance", ada, nil)
	assert.True(t, decode[model.AttendanceResponse](t, rec).Attending)
	rec = api.do(http.MethodGet, base+"/attendance", bob, nil)
	assert.False(t, decode[model.AttendanceResponse](t, rec).Attending)

	rec = api.do(http.MethodGet, "/api/me/events", ada, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.Event](t, rec), 1)
	rec = api.do(http.MethodGet, "/api/me/events", bob, nil)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = api.do(http.MethodPost, base+"/unregister", ada, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodPost, base+"/unregister", ada, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPost, base+"/register", bob, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPost, "/api/events/missing/register", ada, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = api.do(http.MethodPost, "/api/events/missing/unregister", ada, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCertificateRoutes(t *testing.T) {
	api := newAPI(t)
	adminToken := api.account("club", "admin")
	ada := api.account("ada", "")
	ev := api.createEvent(adminToken, 10)
	base := "/api/events/" + ev.ID

	rec := api.do(http.MethodGet, base+"/certificate/eligibility", ada, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[model.EligibilityResponse](t, rec).Eligible)

	rec = api.do(http.MethodGet, base+"/certificate", ada, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodPost, base+"/register", ada, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, base+"/certificate/eligibility", ada, nil)
	assert.True(t, decode[model.EligibilityResponse](t, rec).Eligible)

	rec = api.do(http.MethodGet, base+"/certificate", ada, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Go_Night_certificate.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = api.do(http.MethodPost, base+"/unregister", ada, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodGet, base+"/certificate", ada, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodGet, "/api/events/missing/certificate", ada, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS_Preflight(t *testing.T) {
	api := newAPI(t)
	rec := api.do(http.MethodOptions, "/api/events", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

type mockRegistrar struct {
	mock.Mock
}

func (m *mockRegistrar) Register(ctx context.Context, eventID string, p model.Principal) (*model.Event, error) {
	args := m.Called(ctx, eventID, p)
	ev, _ := args.Get(0).(*model.Event)
	return ev, args.Error(1)
}

func (m *mockRegistrar) Unregister(ctx context.Context, eventID string, p model.Principal) (*model.Event, error) {
	args := m.Called(ctx, eventID, p)
	ev, _ := args.Get(0).(*model.Event)
	return ev, args.Error(1)
}

func (m *mockRegistrar) IsAttendee(ctx context.Context, eventID string, p model.Principal) (bool, error) {
	args := m.Called(ctx, eventID, p)
	return args.Bool(0), args.Error(1)
}

func (m *mockRegistrar) CertificateEligibility(ctx context.Context, eventID string, p model.Principal) (bool, error) {
	args := m.Called(ctx, eventID, p)
	return args.Bool(0), args.Error(1)
}

func (m *mockRegistrar) Certificate(ctx context.Context, eventID string, p model.Principal) (*certificate.Document, error) {
	args := m.Called(ctx, eventID, p)
	doc, _ := args.Get(0).(*certificate.Document)
	return doc, args.Error(1)
}

type staticResolver model.Principal

func (s staticResolver) Resolve(context.Context, string) (model.Principal, error) {
	return model.Principal(s), nil
}

func TestRegister_StoreFailureIsOpaque(t *testing.T) {
	reg := &mockRegistrar{}
	p := model.Principal{ID: "p1", Role: model.RoleStudent}
	reg.On("Register", mock.Anything, "ev-1", p).
		Return(nil, errors.New("register: pq: connection reset by peer"))

	router := NewRouter(RouterDeps{Registrar: reg, Resolver: staticResolver(p), Log: quiet})
	req := httptest.NewRequest(http.MethodPost, "/api/events/ev-1/register", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"failed to register"}`, rec.Body.String())
	reg.AssertExpectations(t)
}

func TestRegister_PrincipalComesFromToken(t *testing.T) {
	reg := &mockRegistrar{}
	p := model.Principal{ID: "token-user", Role: model.RoleStudent}
	reg.On("Register", mock.Anything, "ev-1", p).Return(&model.Event{ID: "ev-1"}, nil)

	api := &apiFixture{t: t, router: NewRouter(RouterDeps{Registrar: reg, Resolver: staticResolver(p), Log: quiet})}
	rec := api.do(http.MethodPost, "/api/events/ev-1/register", "anything", map[string]string{"user_id": "someone-else"})

	assert.Equal(t, http.StatusOK, rec.Code)
	reg.AssertExpectations(t)
}
