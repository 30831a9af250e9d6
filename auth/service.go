package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/empowerflow/portal/generic"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt int64 // unix seconds
	User      User
	Dashboard Route
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     Role
}

// SignupHook runs after a user is created, e.g. to grant starting balances.
type SignupHook func(ctx context.Context, u User) error

type Service struct {
	users    UserStore
	tokens   *Tokens
	clock    generic.Clock
	onSignup SignupHook
	logger   *zap.Logger
}

func NewService(users UserStore, tokens *Tokens, clock generic.Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = generic.SystemClock{}
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Service{users: users, tokens: tokens, clock: clock, logger: logger.Named("auth.service")}
}

// OnSignup installs a hook run after each successful signup.
func (s *Service) OnSignup(h SignupHook) { s.onSignup = h }

// Tokens exposes the token issuer for middleware.
func (s *Service) Tokens() *Tokens { return s.tokens }

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// Login checks credentials and issues a session token. Unknown emails
// and wrong passwords both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil || CheckPassword(u.PasswordHash, password) != nil {
		s.logger.Info("login rejected", zap.String("email", normalizeEmail(email)))
		return nil, ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(*u)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info("login", zap.String("user_id", u.ID), zap.Stringer("role", u.Role))
	return &Session{Token: token, ExpiresAt: expires.Unix(), User: *u, Dashboard: u.Role.Dashboard()}, nil
}

// Signup creates an account. A taken email returns ErrUserExists. Admin
// roles cannot be self-assigned and return ErrForbidden. If the signup
// hook fails the account is removed again.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*User, error) {
	if !in.Role.Valid() {
		return nil, ErrUnknownRole
	}
	if in.Role.IsAdmin() {
		return nil, fmt.Errorf("%w: %s accounts are provisioned, not self-registered", ErrForbidden, in.Role)
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := User{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(in.Email),
		Name:         strings.TrimSpace(in.Name),
		Role:         in.Role,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, generic.ErrAlreadyExists) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	if s.onSignup != nil {
		if err := s.onSignup(ctx, u); err != nil {
			if derr := s.users.DeleteUser(ctx, u.ID); derr != nil {
				s.logger.Error("signup rollback failed", zap.String("user_id", u.ID), zap.Error(derr))
			}
			return nil, fmt.Errorf("signup hook: %w", err)
		}
	}
	s.logger.Info("signup", zap.String("user_id", u.ID), zap.Stringer("role", u.Role))
	return &u, nil
}

// Authenticate turns a bearer token into an identity.
func (s *Service) Authenticate(token string) (Identity, error) {
	return s.tokens.Parse(token)
}

// =============================================================================
// CONTEXT
// =============================================================================

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
