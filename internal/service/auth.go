package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/metrics"
	"github.com/taskflow/taskflow/internal/model"
	"github.com/taskflow/taskflow/internal/repository"
)

// UserStore is the persistence contract for accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// UserCache caches resolved users. A nil UserCache disables caching.
type UserCache interface {
	GetUser(ctx context.Context, userID string) (*model.User, error)
	SetUser(ctx context.Context, user *model.User) error
}

// RegisterInput defines input for creating an account.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginInput defines input for logging in.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// AuthService handles registration, login and per-request identity.
type AuthService struct {
	users     UserStore
	cache     UserCache
	hasher    auth.Hasher
	tokens    *auth.TokenService
	logger    *slog.Logger
	metrics   metrics.Recorder
	dummyHash string
}

// NewAuthService creates a new AuthService. cache may be nil.
func NewAuthService(users UserStore, cache UserCache, hasher auth.Hasher, tokens *auth.TokenService, logger *slog.Logger, recorder metrics.Recorder) (*AuthService, error) {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	// Compared against when the email is unknown so both login failures cost the same.
	dummy, err := hasher.Hash("taskflow-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	return &AuthService{
		users:     users,
		cache:     cache,
		hasher:    hasher,
		tokens:    tokens,
		logger:    logger,
		metrics:   recorder,
		dummyHash: dummy,
	}, nil
}

// Register creates an account and returns it with a fresh token.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.Username = model.NormalizeUsername(input.Username)
	input.Email = model.NormalizeEmail(input.Email)

	if err := model.Validate(&input); err != nil {
		s.metrics.IncAuthAttempt("register", metrics.AuthFailure)
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, model.NewValidationError("Password must be at most 72 characters")
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) || errors.Is(err, repository.ErrUsernameExists) {
			s.metrics.IncAuthAttempt("register", metrics.AuthFailure)
			return nil, ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.metrics.IncAuthAttempt("register", metrics.AuthSuccess)
	s.logger.Info("user_registered", "user_id", user.ID)
	return result, nil
}

// Login verifies credentials. An unknown email and a wrong password fail
// the same way.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := model.NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, model.NewValidationError("Please provide email and password")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("get user by email: %w", err)
		}
		_, _ = s.hasher.Verify(input.Password, s.dummyHash)
		s.metrics.IncAuthAttempt("login", metrics.AuthFailure)
		return nil, ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		s.logger.Error("stored password hash unreadable", "user_id", user.ID, "error", err)
	}
	if !ok {
		s.metrics.IncAuthAttempt("login", metrics.AuthFailure)
		return nil, ErrInvalidCredentials
	}

	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.metrics.IncAuthAttempt("login", metrics.AuthSuccess)
	return result, nil
}

// Authenticate verifies a bearer token and resolves its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	return s.ResolveUser(ctx, userID)
}

// ResolveUser loads a user by id, through the cache when one is configured.
func (s *AuthService) ResolveUser(ctx context.Context, userID string) (*model.User, error) {
	if s.cache != nil {
		if cached, _ := s.cache.GetUser(ctx, userID); cached != nil {
			return cached, nil
		}
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetUser(ctx, user); err != nil {
			s.logger.Debug("user cache write failed", "user_id", userID, "error", err)
		}
	}

	return publicUser(user), nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{User: publicUser(user), Token: token, ExpiresAt: expiresAt}, nil
}

// publicUser returns a copy without the password hash.
func publicUser(u *model.User) *model.User {
	out := *u
	out.PasswordHash = ""
	return &out
}
