package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/inkwell-press/inkwell/internal/model"
	"github.com/inkwell-press/inkwell/internal/store"
)

func (s *Store) CreateComment(ctx context.Context, comment *model.Comment) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO comments (post_id, user_id, parent_id, content, created_at)
VALUES (?, ?, ?, ?, ?)
`, comment.PostID, comment.UserID, nullableInt(comment.ParentID), comment.Content, comment.CreatedAt.Unix())
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, store.ErrInvalidReference
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) ListCommentsByPost(ctx context.Context, postID int64) ([]model.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.id, c.post_id, c.user_id, c.parent_id, c.content, c.created_at,
       u.username, u.display_name, u.avatar_url
FROM comments c
JOIN users u ON u.id = c.user_id
WHERE c.post_id = ?
ORDER BY c.created_at DESC, c.id DESC
`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var c model.Comment
		var parentID sql.NullInt64
		var created int64
		var avatar sql.NullString
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &parentID, &c.Content, &created,
			&c.Username, &c.DisplayName, &avatar); err != nil {
			return nil, err
		}
		if parentID.Valid {
			pid := parentID.Int64
			c.ParentID = &pid
		}
		if avatar.Valid {
			c.AvatarURL = avatar.String
		}
		c.CreatedAt = time.Unix(created, 0)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (s *Store) GetCommentAuthor(ctx context.Context, id int64) (int64, error) {
	var userID int64
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM comments WHERE id = ?`, id).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	return userID, err
}

func (s *Store) DeleteComment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
