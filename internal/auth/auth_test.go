package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/inkwell-press/inkwell/internal/model"
	"github.com/inkwell-press/inkwell/internal/store/sqlite"
)

func newTestUser(t *testing.T, st *sqlite.Store, email, username string) int64 {
	t.Helper()
	id, err := st.CreateUser(context.Background(), &model.User{
		Email:        email,
		Username:     username,
		DisplayName:  username,
		Role:         model.RoleUser,
		PasswordHash: "irrelevant",
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return id
}

func TestSessionLifecycle(t *testing.T) {
	st, err := sqlite.Open("file:auth_lifecycle?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	userID := newTestUser(t, st, "ada@example.com", "ada")
	svc := NewService(st, time.Hour)

	session, err := svc.CreateSession(context.Background(), userID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.Token == "" {
		t.Fatal("expected a token")
	}
	if !session.ExpiresAt.After(time.Now()) {
		t.Fatalf("expiry not in the future: %v", session.ExpiresAt)
	}

	identity, err := svc.Validate(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if identity == nil {
		t.Fatal("expected identity for a fresh session")
	}
	if identity.ID != userID || identity.Username != "ada" {
		t.Fatalf("identity mismatch: %+v", identity)
	}

	if err := svc.Revoke(context.Background(), session.Token); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	identity, err = svc.Validate(context.Background(), session.Token)
	if err != nil {
		t.Fatalf("validate after revoke: %v", err)
	}
	if identity != nil {
		t.Fatalf("expected nil identity after revoke, got %+v", identity)
	}

	// Revoking again must not fail.
	if err := svc.Revoke(context.Background(), session.Token); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
}

func TestExpiredSessionTreatedAsAbsent(t *testing.T) {
	st, err := sqlite.Open("file:auth_expired?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	userID := newTestUser(t, st, "basil@example.com", "basil")
	svc := NewService(st, time.Hour)

	// Persist a session whose expiry is already behind us.
	expired := model.Session{
		Token:     "expired-token",
		UserID:    userID,
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := st.CreateSession(context.Background(), expired); err != nil {
		t.Fatalf("create session: %v", err)
	}

	identity, err := svc.Validate(context.Background(), expired.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if identity != nil {
		t.Fatalf("expected nil identity for expired session, got %+v", identity)
	}
}

func TestValidateUnknownToken(t *testing.T) {
	st, err := sqlite.Open("file:auth_unknown?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	svc := NewService(st, time.Hour)
	identity, err := svc.Validate(context.Background(), "no-such-token")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if identity != nil {
		t.Fatalf("expected nil identity, got %+v", identity)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"well formed", "Bearer abc123", "abc123"},
		{"missing", "", ""},
		{"wrong scheme", "Basic abc123", ""},
		{"no space", "Bearerabc123", ""},
		{"lowercase scheme", "bearer abc123", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := BearerToken(r); got != tt.want {
				t.Fatalf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestCanMutate(t *testing.T) {
	owner := &model.Identity{ID: 1, Role: model.RoleUser}
	other := &model.Identity{ID: 2, Role: model.RoleUser}
	admin := &model.Identity{ID: 3, Role: model.RoleAdmin}

	if !CanMutate(owner, 1) {
		t.Fatal("owner should be allowed")
	}
	if CanMutate(other, 1) {
		t.Fatal("non-owner should be denied")
	}
	if !CanMutate(admin, 1) {
		t.Fatal("admin should be allowed")
	}
	if CanMutate(nil, 1) {
		t.Fatal("nil identity should be denied")
	}
}
