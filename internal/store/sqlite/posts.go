package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inkwell-press/inkwell/internal/model"
	"github.com/inkwell-press/inkwell/internal/store"
)

const postColumns = `p.id, p.title, p.slug, p.content, p.excerpt, p.cover_image, p.author_id,
       p.status, p.view_count, p.created_at, p.updated_at, p.published_at,
       u.username, u.display_name, u.avatar_url`

func (s *Store) ListPosts(ctx context.Context, filter store.PostFilter) ([]model.Post, model.Pagination, error) {
	status := filter.Status
	if status == "" {
		status = model.StatusPublished
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}

	// Category/tag filters join through the m2m tables; DISTINCT keeps a
	// post matching several associations from repeating in the page.
	joins := ""
	conditions := []string{"p.status = ?"}
	args := []any{status}
	if filter.Category != "" {
		joins += ` JOIN post_categories pc ON pc.post_id = p.id
 JOIN categories c ON c.id = pc.category_id`
		conditions = append(conditions, "c.slug = ?")
		args = append(args, filter.Category)
	}
	if filter.Tag != "" {
		joins += ` JOIN post_tags pt ON pt.post_id = p.id
 JOIN tags t ON t.id = pt.tag_id`
		conditions = append(conditions, "t.slug = ?")
		args = append(args, filter.Tag)
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	countQuery := `SELECT COUNT(DISTINCT p.id) FROM posts p` + joins + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, model.Pagination{}, err
	}

	query := `SELECT DISTINCT ` + postColumns + `
FROM posts p
JOIN users u ON u.id = p.author_id` + joins + where + `
ORDER BY p.published_at DESC, p.id DESC
LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, model.Pagination{}, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, model.Pagination{}, err
	}

	pagination := model.Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}
	return posts, pagination, nil
}

func (s *Store) GetPost(ctx context.Context, id int64) (model.Post, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+postColumns+`
FROM posts p
JOIN users u ON u.id = p.author_id
WHERE p.id = ?
`, id)
	post, err := scanPost(row)
	if err != nil {
		return model.Post{}, err
	}

	post.Categories, err = s.postCategories(ctx, id)
	if err != nil {
		return model.Post{}, err
	}
	post.Tags, err = s.postTags(ctx, id)
	if err != nil {
		return model.Post{}, err
	}
	return post, nil
}

func (s *Store) GetPostAuthor(ctx context.Context, id int64) (int64, error) {
	var authorID int64
	err := s.db.QueryRowContext(ctx, `SELECT author_id FROM posts WHERE id = ?`, id).Scan(&authorID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	return authorID, err
}

func (s *Store) CreatePost(ctx context.Context, post *model.Post, categoryIDs, tagIDs []int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
INSERT INTO posts (title, slug, content, excerpt, cover_image, author_id, status, view_count, created_at, updated_at, published_at)
VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
`, post.Title, post.Slug, post.Content, nullIfEmpty(post.Excerpt), nullIfEmpty(post.CoverImage),
		post.AuthorID, post.Status, post.CreatedAt.Unix(), post.UpdatedAt.Unix(), nullableUnix(post.PublishedAt))
	if err != nil {
		return 0, err
	}
	postID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, cid := range categoryIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO post_categories (post_id, category_id) VALUES (?, ?)`, postID, cid); err != nil {
			if isForeignKeyViolation(err) {
				return 0, fmt.Errorf("category %d: %w", cid, store.ErrInvalidReference)
			}
			return 0, err
		}
	}
	for _, tid := range tagIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO post_tags (post_id, tag_id) VALUES (?, ?)`, postID, tid); err != nil {
			if isForeignKeyViolation(err) {
				return 0, fmt.Errorf("tag %d: %w", tid, store.ErrInvalidReference)
			}
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return postID, nil
}

func (s *Store) UpdatePost(ctx context.Context, id int64, update store.PostUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var currentStatus string
	var publishedAt sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT status, published_at FROM posts WHERE id = ?`, id).Scan(&currentStatus, &publishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}

	now := time.Now()
	sets := []string{"updated_at = ?"}
	args := []any{now.Unix()}
	if update.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Slug != nil {
		sets = append(sets, "slug = ?")
		args = append(args, *update.Slug)
	}
	if update.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *update.Content)
	}
	if update.Excerpt != nil {
		sets = append(sets, "excerpt = ?")
		args = append(args, nullIfEmpty(*update.Excerpt))
	}
	if update.CoverImage != nil {
		sets = append(sets, "cover_image = ?")
		args = append(args, nullIfEmpty(*update.CoverImage))
	}
	if update.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *update.Status)
		// published_at is set on the first transition to published and
		// never reset afterwards.
		if *update.Status == model.StatusPublished && !publishedAt.Valid {
			sets = append(sets, "published_at = ?")
			args = append(args, now.Unix())
		}
	}
	args = append(args, id)

	if _, err := tx.ExecContext(ctx, `UPDATE posts SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Dependent rows go first so the post delete cannot orphan them.
	if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_categories WHERE post_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
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
	return tx.Commit()
}

func (s *Store) IncrementViewCount(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE posts SET view_count = view_count + 1 WHERE id = ?`, id)
	return err
}

func (s *Store) SearchPosts(ctx context.Context, query string, limit int) ([]model.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+postColumns+`
FROM posts_fts f
JOIN posts p ON p.id = f.rowid
JOIN users u ON u.id = p.author_id
WHERE posts_fts MATCH ? AND p.status = ?
ORDER BY rank
LIMIT ?
`, query, model.StatusPublished, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []model.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (s *Store) postCategories(ctx context.Context, postID int64) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT c.id, c.name, c.slug
FROM categories c
JOIN post_categories pc ON pc.category_id = c.id
WHERE pc.post_id = ?
ORDER BY c.name
`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) postTags(ctx context.Context, postID int64) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT t.id, t.name, t.slug
FROM tags t
JOIN post_tags pt ON pt.tag_id = t.id
WHERE pt.post_id = ?
ORDER BY t.name
`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (model.Post, error) {
	var p model.Post
	var excerpt, cover, avatar sql.NullString
	var created, updated int64
	var published sql.NullInt64
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Content, &excerpt, &cover, &p.AuthorID,
		&p.Status, &p.ViewCount, &created, &updated, &published,
		&p.AuthorUsername, &p.AuthorDisplayName, &avatar)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, store.ErrNotFound
		}
		return model.Post{}, err
	}
	if excerpt.Valid {
		p.Excerpt = excerpt.String
	}
	if cover.Valid {
		p.CoverImage = cover.String
	}
	if avatar.Valid {
		p.AuthorAvatar = avatar.String
	}
	p.CreatedAt = time.Unix(created, 0)
	p.UpdatedAt = time.Unix(updated, 0)
	if published.Valid {
		t := time.Unix(published.Int64, 0)
		p.PublishedAt = &t
	}
	return p, nil
}
