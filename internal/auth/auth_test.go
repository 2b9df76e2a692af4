package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/eventify/internal/model"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestTokens(t *testing.T, now time.Time) *Tokens {
	t.Helper()
	tok, err := NewTokens(testKey, "eventify", time.Hour)
	require.NoError(t, err)
	tok.now = func() time.Time { return now }
	return tok
}

func TestNewTokens_Validation(t *testing.T) {
	_, err := NewTokens(nil, "eventify", time.Hour)
	assert.Error(t, err)
	_, err = NewTokens(testKey, "eventify", 0)
	assert.Error(t, err)
}

func TestTokens_IssueResolveRoundTrip(t *testing.T) {
	tok := newTestTokens(t, time.Now())

	for _, p := range []model.Principal{
		{ID: "u-1", Role: model.RoleStudent},
		{ID: "u-2", Role: model.RoleAdmin},
	} {
		signed, err := tok.Issue(p)
		require.NoError(t, err)

		got, err := tok.Resolve(context.Background(), signed)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestTokens_IssueRejectsUnknownRole(t *testing.T) {
	tok := newTestTokens(t, time.Now())
	_, err := tok.Issue(model.Principal{ID: "u", Role: "superuser"})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestTokens_ResolveRejects(t *testing.T) {
	issuedAt := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	issuer := newTestTokens(t, issuedAt)
	valid, err := issuer.Issue(model.Principal{ID: "u-1", Role: model.RoleStudent})
	require.NoError(t, err)

	otherKey, err := NewTokens([]byte("another-secret-another-secret-xx"), "eventify", time.Hour)
	require.NoError(t, err)
	otherKey.now = issuer.now
	foreign, err := otherKey.Issue(model.Principal{ID: "u-1", Role: model.RoleStudent})
	require.NoError(t, err)

	badRole := signRaw(t, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "eventify",
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
		Role: "Admin",
	})
	noSubject := signRaw(t, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "eventify",
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
		Role: "admin",
	})
	noExpiry := signRaw(t, claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "eventify", Subject: "u-1"},
		Role:             "admin",
	})
	wrongIssuer := signRaw(t, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
		Role: "admin",
	})
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "eventify",
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
		Role: "admin",
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	later := newTestTokens(t, issuedAt.Add(2*time.Hour))

	tests := []struct {
		name     string
		resolver *Tokens
		token    string
	}{
		{"empty", issuer, ""},
		{"garbage", issuer, "not-a-jwt"},
		{"expired", later, valid},
		{"foreign key", issuer, foreign},
		{"unknown role", issuer, badRole},
		{"missing subject", issuer, noSubject},
		{"missing expiry", issuer, noExpiry},
		{"wrong issuer", issuer, wrongIssuer},
		{"alg none", issuer, unsigned},
		{"tampered", issuer, valid + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.resolver.Resolve(context.Background(), tt.token)
			assert.ErrorIs(t, err, model.ErrUnauthenticated)
		})
	}
}

func signRaw(t *testing.T, c claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(testKey)
	require.NoError(t, err)
	return s
}

func TestPassword_HashAndCheck(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	ok, err := CheckPassword(hash, "correct horse")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "wrong horse")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = CheckPassword("not-a-bcrypt-hash", "x")
	assert.Error(t, err)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, credential string) (model.Principal, error) {
	args := m.Called(ctx, credential)
	return args.Get(0).(model.Principal), args.Error(1)
}

func TestMiddleware(t *testing.T) {
	student := model.Principal{ID: "u-1", Role: model.RoleStudent}

	res := &mockResolver{}
	res.On("Resolve", mock.Anything, "good").Return(student, nil)
	res.On("Resolve", mock.Anything, "bad").Return(model.Principal{}, model.ErrUnauthenticated)
	res.On("Resolve", mock.Anything, "broken").Return(model.Principal{}, errors.New("key store down"))

	var seen model.Principal
	h := Middleware(res)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		require.True(t, ok)
		seen = p
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"invalid token", "Bearer bad", http.StatusUnauthorized},
		{"resolver failure", "Bearer broken", http.StatusInternalServerError},
		{"valid token", "Bearer good", http.StatusNoContent},
		{"lowercase scheme", "bearer good", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status >= 400 {
				var body model.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.NotEmpty(t, body.Error)
			}
		})
	}
	assert.Equal(t, student, seen)
}

func TestPrincipalFrom_Empty(t *testing.T) {
	_, ok := PrincipalFrom(context.Background())
	assert.False(t, ok)
}
