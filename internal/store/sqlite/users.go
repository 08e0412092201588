package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/inkwell-press/inkwell/internal/model"
	"github.com/inkwell-press/inkwell/internal/store"
)

func (s *Store) CreateUser(ctx context.Context, user *model.User) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO users (email, username, display_name, role, avatar_url, password_hash, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, user.Email, user.Username, user.DisplayName, user.Role, nullIfEmpty(user.AvatarURL), user.PasswordHash, user.CreatedAt.Unix())
	if err != nil {
		if isUniqueViolation(err, "users.email") {
			return 0, store.ErrDuplicateEmail
		}
		if isUniqueViolation(err, "users.username") {
			return 0, store.ErrDuplicateUsername
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, email, username, display_name, role, avatar_url, password_hash, last_login, created_at
FROM users
WHERE email = ?
`, email)
	return scanUser(row)
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, email, username, display_name, role, avatar_url, password_hash, last_login, created_at
FROM users
WHERE id = ?
`, id)
	return scanUser(row)
}

func (s *Store) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, at.Unix(), id)
	return err
}

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	var avatar sql.NullString
	var lastLogin sql.NullInt64
	var created int64
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.DisplayName, &u.Role, &avatar, &u.PasswordHash, &lastLogin, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, store.ErrNotFound
		}
		return model.User{}, err
	}
	if avatar.Valid {
		u.AvatarURL = avatar.String
	}
	if lastLogin.Valid {
		t := time.Unix(lastLogin.Int64, 0)
		u.LastLogin = &t
	}
	u.CreatedAt = time.Unix(created, 0)
	return u, nil
}

func (s *Store) CreateSession(ctx context.Context, session model.Session) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions (token, user_id, created_at, expires_at)
VALUES (?, ?, ?, ?)
`, session.Token, session.UserID, session.CreatedAt.Unix(), session.ExpiresAt.Unix())
	return err
}

func (s *Store) GetSessionIdentity(ctx context.Context, token string) (model.Session, model.Identity, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT s.token, s.user_id, s.created_at, s.expires_at,
       u.id, u.email, u.username, u.display_name, u.role, u.avatar_url
FROM sessions s
JOIN users u ON u.id = s.user_id
WHERE s.token = ?
`, token)
	var sess model.Session
	var id model.Identity
	var created, expires int64
	var avatar sql.NullString
	err := row.Scan(&sess.Token, &sess.UserID, &created, &expires,
		&id.ID, &id.Email, &id.Username, &id.DisplayName, &id.Role, &avatar)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, model.Identity{}, store.ErrNotFound
		}
		return model.Session{}, model.Identity{}, err
	}
	sess.CreatedAt = time.Unix(created, 0)
	sess.ExpiresAt = time.Unix(expires, 0)
	if avatar.Valid {
		id.AvatarURL = avatar.String
	}
	return sess, id, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}
