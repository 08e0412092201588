// Package auth manages bearer-token sessions and ownership checks.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inkwell-press/inkwell/internal/model"
	"github.com/inkwell-press/inkwell/internal/store"
)

type Service struct {
	store      store.Store
	sessionTTL time.Duration
}

func NewService(st store.Store, sessionTTL time.Duration) *Service {
	return &Service{store: st, sessionTTL: sessionTTL}
}

// CreateSession issues a fresh session for userID. The returned token is
// valid for Validate immediately.
func (s *Service) CreateSession(ctx context.Context, userID int64) (model.Session, error) {
	now := time.Now()
	session := model.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return model.Session{}, err
	}
	return session, nil
}

// Validate resolves a token to the owning user's identity. An unknown or
// expired token yields (nil, nil): expired rows are treated as absent, not
// deleted here. Purging is a maintenance concern.
func (s *Service) Validate(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, nil
	}
	session, identity, err := s.store.GetSessionIdentity(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !time.Now().Before(session.ExpiresAt) {
		return nil, nil
	}
	return &identity, nil
}

// Revoke deletes the session. Revoking an unknown token is not an error.
func (s *Service) Revoke(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// Authenticate extracts the bearer token from r and validates it.
func (s *Service) Authenticate(ctx context.Context, r *http.Request) (*model.Identity, error) {
	return s.Validate(ctx, BearerToken(r))
}

// BearerToken returns the token from an "Authorization: Bearer <token>"
// header, or "" when the header is missing or differently shaped.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return token
}

// CanMutate reports whether identity may mutate a resource owned by ownerID:
// the owner may, and so may an admin.
func CanMutate(identity *model.Identity, ownerID int64) bool {
	if identity == nil {
		return false
	}
	return identity.ID == ownerID || identity.Role == model.RoleAdmin
}
