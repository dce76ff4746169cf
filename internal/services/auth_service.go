package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"timetrack/internal/core"
	"timetrack/internal/storage"
)

const (
	unameMin    = 3
	unameMax    = 30
	passwordMin = 6
)

// PasswordHasher hashes and checks user passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
}

// TokenIssuer mints bearer tokens for an authenticated user.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type SignupInput struct {
	Uname    string
	Email    string
	Password string
}

type AuthService struct {
	users  storage.UserStore
	hasher PasswordHasher
	tokens TokenIssuer
	clock  core.Clock
	newID  func() string
}

func NewAuthService(users storage.UserStore, hasher PasswordHasher, tokens TokenIssuer, clock core.Clock) *AuthService {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &AuthService{users: users, hasher: hasher, tokens: tokens, clock: clock, newID: uuid.NewString}
}

// Signup registers a user. Emails are stored lowercased and must be unique.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (core.User, error) {
	uname := strings.TrimSpace(in.Uname)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if n := utf8.RuneCountInString(uname); n < unameMin || n > unameMax {
		return core.User{}, core.FieldError(core.KindValidation, "uname", "Username must be between 3 and 30 characters")
	}
	if _, err := mail.ParseAddress(email); err != nil || strings.ContainsAny(email, "<> ") {
		return core.User{}, core.FieldError(core.KindValidation, "email", "Invalid email address")
	}
	if utf8.RuneCountInString(in.Password) < passwordMin {
		return core.User{}, core.FieldError(core.KindValidation, "password", "Password must be at least 6 characters")
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now().UTC()
	u := core.User{
		ID:           s.newID(),
		Uname:        uname,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return core.User{}, core.FieldError(core.KindConflict, "email", "Email is already registered")
		}
		return core.User{}, fmt.Errorf("save user: %w", err)
	}
	slog.InfoContext(ctx, "User signed up", "user_id", u.ID)
	return u, nil
}

// Login checks credentials and returns a signed token. Unknown emails and
// wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, core.User, error) {
	invalid := core.Errorf(core.KindUnauthorized, "Invalid email or password")

	u, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return "", core.User{}, invalid
		}
		return "", core.User{}, fmt.Errorf("load user: %w", err)
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return "", core.User{}, invalid
	}

	tok, err := s.tokens.Issue(u.ID)
	if err != nil {
		return "", core.User{}, fmt.Errorf("issue token: %w", err)
	}
	return tok, u, nil
}

// User resolves an authenticated user id.
func (s *AuthService) User(ctx context.Context, id string) (core.User, error) {
	return s.users.GetUser(ctx, id)
}
