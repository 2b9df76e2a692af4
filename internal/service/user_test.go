package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/eventify/internal/auth"
	"github.com/Shivanand-hulikatti/eventify/internal/model"
	"github.com/Shivanand-hulikatti/eventify/internal/repository"
)

func newUserService(t *testing.T, allowAdmin bool) (*UserService, *auth.Tokens) {
	t.Helper()
	tokens, err := auth.NewTokens([]byte("0123456789abcdef0123456789abcdef"), "eventify", time.Hour)
	require.NoError(t, err)
	return NewUserService(repository.NewMemoryUserStore(), tokens, allowAdmin, nil), tokens
}

func TestSignupLoginMe(t *testing.T) {
	ctx := context.Background()
	svc, tokens := newUserService(t, false)

	u, err := svc.Signup(ctx, model.SignupRequest{
		Name: "Ada", Email: " Ada@Uni.edu ", Password: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, u.Role)
	assert.Equal(t, "ada@uni.edu", u.Email)
	assert.NotEqual(t, "s3cret-pass", u.PasswordHash)

	resp, err := svc.Login(ctx, model.LoginRequest{Email: "ada@uni.edu", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleStudent, resp.Role)

	p, err := tokens.Resolve(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.ID)

	me, err := svc.Me(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "Ada", me.Name)

	_, err = svc.Me(ctx, model.Principal{ID: "ghost", Role: model.RoleStudent})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSignup_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUserService(t, false)

	tests := []struct {
		name string
		req  model.SignupRequest
		want error
	}{
		{"missing name", model.SignupRequest{Email: "a@uni.edu", Password: "long-enough"}, model.ErrValidation},
		{"missing email", model.SignupRequest{Name: "A", Password: "long-enough"}, model.ErrValidation},
		{"bad email", model.SignupRequest{Name: "A", Email: "a-at-uni", Password: "long-enough"}, model.ErrValidation},
		{"short password", model.SignupRequest{Name: "A", Email: "a@uni.edu", Password: "short"}, model.ErrValidation},
		{"unknown role", model.SignupRequest{Name: "A", Email: "a@uni.edu", Password: "long-enough", Role: "root"}, model.ErrValidation},
		{"admin not allowed", model.SignupRequest{Name: "A", Email: "a@uni.edu", Password: "long-enough", Role: "admin"}, model.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSignup_AdminWhenAllowed(t *testing.T) {
	svc, _ := newUserService(t, true)
	u, err := svc.Signup(context.Background(), model.SignupRequest{
		Name: "Club", Email: "club@uni.edu", Password: "long-enough", Role: "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUserService(t, false)
	req := model.SignupRequest{Name: "A", Email: "a@uni.edu", Password: "long-enough"}

	_, err := svc.Signup(ctx, req)
	require.NoError(t, err)
	req.Email = "A@UNI.EDU"
	_, err = svc.Signup(ctx, req)
	assert.ErrorIs(t, err, model.ErrEmailTaken)
}

func TestLogin_Rejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUserService(t, false)
	_, err := svc.Signup(ctx, model.SignupRequest{Name: "A", Email: "a@uni.edu", Password: "long-enough"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, model.LoginRequest{Email: "a@uni.edu", Password: "wrong-password"})
	assert.ErrorIs(t, err, model.ErrUnauthenticated)

	_, err = svc.Login(ctx, model.LoginRequest{Email: "nobody@uni.edu", Password: "long-enough"})
	assert.ErrorIs(t, err, model.ErrUnauthenticated)
}
