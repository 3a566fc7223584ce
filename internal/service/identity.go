// Package service holds the business rules of the palette site.
//
// Handlers translate HTTP to calls on these services; the services talk to
// storage only through the repository interfaces:
//
//	Handler (HTTP) → Service (rules) → repository.Store (SQLite)
//
// Every operation receives the caller as an explicit model.Identity. An
// anonymous identity is rejected with apperror.ErrUnauthenticated wherever
// authentication is required.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/block-palettes/internal/apperror"
	"github.com/sakif/block-palettes/internal/model"
	"github.com/sakif/block-palettes/internal/repository"
)

// Username rules.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
)

// Reasons a username is unavailable.
const (
	ReasonLength  = "length"
	ReasonCharset = "charset"
	ReasonTaken   = "taken"
)

// IdentityService maps external identities to user accounts and runs the
// username claim.
type IdentityService struct {
	users  repository.UserRepository
	logger *slog.Logger
}

// NewIdentityService creates an IdentityService.
func NewIdentityService(users repository.UserRepository, logger *slog.Logger) *IdentityService {
	return &IdentityService{users: users, logger: logger}
}

// Resolution is the outcome of ResolveOrCreate.
type Resolution struct {
	UserID             string `json:"userId"`
	IsNew              bool   `json:"isNew"`
	HasCompletedSignup bool   `json:"hasCompletedSignup"`
}

// UsernameCheck is the outcome of CheckUsernameAvailable.
type UsernameCheck struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// ResolveOrCreate returns the caller's account, creating it on first
// contact. Existing accounts get email and avatar refreshed from the
// identity; name and username are left alone.
func (s *IdentityService) ResolveOrCreate(ctx context.Context, caller model.Identity) (*Resolution, error) {
	if caller.Anonymous() {
		return nil, apperror.Unauthenticated()
	}

	u := &model.User{
		ExternalID: caller.Subject,
		Email:      caller.Email,
		AvatarURL:  caller.AvatarURL,
	}
	created, err := s.users.UpsertUser(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("service/identity: resolving %s: %w", caller.Subject, err)
	}

	if created {
		s.logger.Info("user created",
			slog.String("userID", u.ID),
			slog.String("subject", caller.Subject),
		)
	}

	return &Resolution{
		UserID:             u.ID,
		IsNew:              created,
		HasCompletedSignup: u.SignupComplete(),
	}, nil
}

// NormalizeUsername lowercases and trims a candidate username.
func NormalizeUsername(candidate string) string {
	return strings.ToLower(strings.TrimSpace(candidate))
}

// usernameProblem returns the reason a normalized name breaks the format
// rules, or "".
func usernameProblem(name string) string {
	if n := utf8.RuneCountInString(name); n < MinUsernameLength || n > MaxUsernameLength {
		return ReasonLength
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return ReasonCharset
		}
	}
	return ""
}

// CheckUsernameAvailable reports whether candidate could be claimed right
// now. It does not reserve anything.
func (s *IdentityService) CheckUsernameAvailable(ctx context.Context, candidate string) (*UsernameCheck, error) {
	name := NormalizeUsername(candidate)
	if reason := usernameProblem(name); reason != "" {
		return &UsernameCheck{Reason: reason}, nil
	}

	_, err := s.users.GetUserByUsername(ctx, name)
	switch {
	case err == nil:
		return &UsernameCheck{Reason: ReasonTaken}, nil
	case isNotFound(err):
		return &UsernameCheck{Available: true}, nil
	default:
		return nil, fmt.Errorf("service/identity: checking username %q: %w", name, err)
	}
}

// ClaimUsername assigns the normalized candidate to the caller and
// completes signup. The caller's account is created first if needed.
func (s *IdentityService) ClaimUsername(ctx context.Context, caller model.Identity, candidate string) (string, error) {
	if caller.Anonymous() {
		return "", apperror.Unauthenticated()
	}

	name := NormalizeUsername(candidate)
	switch usernameProblem(name) {
	case ReasonLength:
		return "", apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d to %d characters", MinUsernameLength, MaxUsernameLength))
	case ReasonCharset:
		return "", apperror.ValidationFailed("username",
			"username may only contain lowercase letters, digits and underscores")
	}

	if _, err := s.ResolveOrCreate(ctx, caller); err != nil {
		return "", err
	}

	u, err := s.users.ClaimUsername(ctx, caller.Subject, name)
	if err != nil {
		return "", err
	}

	s.logger.Info("username claimed",
		slog.String("userID", u.ID),
		slog.String("username", name),
	)
	return name, nil
}

// Current returns the caller's account, or nil for anonymous callers and
// callers that have never been resolved.
func (s *IdentityService) Current(ctx context.Context, caller model.Identity) (*model.User, error) {
	if caller.Anonymous() {
		return nil, nil
	}
	u, err := s.users.GetUserByExternalID(ctx, caller.Subject)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("service/identity: loading %s: %w", caller.Subject, err)
	}
	return u, nil
}
