package sqlite

import (
	"context"

	"github.com/inkwell-press/inkwell/internal/model"
	"github.com/inkwell-press/inkwell/internal/store"
)

func (s *Store) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, slug FROM categories ORDER BY name`)
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

func (s *Store) ListTags(ctx context.Context) ([]model.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, slug FROM tags ORDER BY name`)
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

func (s *Store) CreateCategory(ctx context.Context, category *model.Category) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO categories (name, slug) VALUES (?, ?)`, category.Name, category.Slug)
	if err != nil {
		if isUniqueViolation(err, "categories.slug") {
			return 0, store.ErrDuplicateSlug
		}
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) CreateTag(ctx context.Context, tag *model.Tag) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO tags (name, slug) VALUES (?, ?)`, tag.Name, tag.Slug)
	if err != nil {
		if isUniqueViolation(err, "tags.slug") {
			return 0, store.ErrDuplicateSlug
		}
		return 0, err
	}
	return res.LastInsertId()
}
