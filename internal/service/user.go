package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shivanand-hulikatti/eventify/internal/auth"
	"github.com/Shivanand-hulikatti/eventify/internal/model"
)

// UserService handles signup, login and profile lookup.
type UserService struct {
	users            UserStore
	tokens           TokenIssuer
	allowAdminSignup bool
	log              *slog.Logger
}

// NewUserService constructs a UserService.
func NewUserService(users UserStore, tokens TokenIssuer, allowAdminSignup bool, log *slog.Logger) *UserService {
	return &UserService{
		users:            users,
		tokens:           tokens,
		allowAdminSignup: allowAdminSignup,
		log:              loggerOrDefault(log),
	}
}

// Signup validates req and creates the account. Role defaults to student.
func (s *UserService) Signup(ctx context.Context, req model.SignupRequest) (*model.User, error) {
	name, err := requireText("name", req.Name)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", model.ErrValidation)
	}
	if !isValidEmail(email) {
		return nil, fmt.Errorf("%w: email is not a valid email address", model.ErrValidation)
	}
	if len(req.Password) < auth.MinPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", model.ErrValidation, auth.MinPasswordLen)
	}

	role := model.RoleStudent
	if req.Role != "" {
		if role, err = model.ParseRole(req.Role); err != nil {
			return nil, err
		}
	}
	if role == model.RoleAdmin && !s.allowAdminSignup {
		return nil, fmt.Errorf("%w: admin accounts cannot be self-registered", model.ErrForbidden)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := &model.User{Name: name, Email: email, Role: role, PasswordHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.InfoContext(ctx, "user signed up",
		slog.String("user_id", u.ID),
		slog.String("role", string(u.Role)),
	)
	return u, nil
}

// Login checks credentials and issues a bearer token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	invalid := fmt.Errorf("%w: invalid email or password", model.ErrUnauthenticated)

	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	ok, err := auth.CheckPassword(u.PasswordHash, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalid
	}

	token, err := s.tokens.Issue(u.Principal())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &model.LoginResponse{Token: token, Role: u.Role}, nil
}

// Me returns the account behind p.
func (s *UserService) Me(ctx context.Context, p model.Principal) (*model.User, error) {
	u, err := s.users.GetByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
