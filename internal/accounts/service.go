// Package accounts registers users, checks credentials and issues the access
// tokens stored in the session.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"ledgerlite/internal/core"
	"ledgerlite/internal/ports"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Result is what a successful sign-in hands to the client.
type Result struct {
	Token     string
	ExpiresAt time.Time
	User      core.User
}

type Service struct {
	users  ports.UserRepository
	tokens *TokenIssuer
	cost   int
}

func NewService(users ports.UserRepository, tokens *TokenIssuer) *Service {
	return &Service{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *Service) WithHashCost(cost int) *Service {
	s.cost = cost
	return s
}

func (s *Service) Register(ctx context.Context, name, email, password string) (Result, error) {
	if err := core.ValidateRegistration(name, email, password); err != nil {
		return Result{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Result{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.CreateUser(ctx, core.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(name),
		Email:        core.NormalizeEmail(email),
		PasswordHash: string(hash),
	})
	if errors.Is(err, ports.ErrConflict) {
		return Result{}, ErrEmailTaken
	}
	if err != nil {
		return Result{}, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "User registered", "user_id", u.ID)
	return s.issue(u)
}

func (s *Service) Login(ctx context.Context, email, password string) (Result, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, ports.ErrNotFound) {
		return Result{}, ErrInvalidCredentials
	}
	if err != nil {
		return Result{}, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Result{}, ErrInvalidCredentials
	}
	return s.issue(u)
}

// Authenticate maps a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (core.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return core.User{}, err
	}
	u, err := s.users.GetUser(ctx, claims.Subject)
	if errors.Is(err, ports.ErrNotFound) {
		return core.User{}, ErrInvalidToken
	}
	if err != nil {
		return core.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func (s *Service) issue(u core.User) (Result, error) {
	tok, exp, err := s.tokens.Issue(u)
	if err != nil {
		return Result{}, err
	}
	u.PasswordHash = ""
	return Result{Token: tok, ExpiresAt: exp, User: u}, nil
}
