package store

import (
	"context"
	"errors"
	"time"

	"github.com/inkwell-press/inkwell/internal/model"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateEmail    = errors.New("email already exists")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateSlug     = errors.New("slug already exists")
	// ErrInvalidReference covers an association pointing at a row that does
	// not exist (category, tag, post or parent comment id).
	ErrInvalidReference = errors.New("invalid reference")
)

// PostFilter narrows and pages a post listing. Category and Tag are slugs;
// both filters are conjunctive. Zero values fall back to defaults
// (status published, page 1, limit 10).
type PostFilter struct {
	Status   string
	Category string
	Tag      string
	Page     int
	Limit    int
}

// PostUpdate carries a partial post update; nil fields are left untouched.
type PostUpdate struct {
	Title      *string
	Slug       *string
	Content    *string
	Excerpt    *string
	CoverImage *string
	Status     *string
}

type Store interface {
	UserStore
	SessionStore
	PostStore
	CommentStore
	TaxonomyStore
	SearchStore
	Close() error
}

type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByID(ctx context.Context, id int64) (model.User, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

type SessionStore interface {
	CreateSession(ctx context.Context, session model.Session) error
	// GetSessionIdentity resolves a token to the owning user's identity in a
	// single joined lookup. Expiry is not checked here; callers decide how
	// stale a session may be.
	GetSessionIdentity(ctx context.Context, token string) (model.Session, model.Identity, error)
	DeleteSession(ctx context.Context, token string) error
}

type PostStore interface {
	ListPosts(ctx context.Context, filter PostFilter) ([]model.Post, model.Pagination, error)
	GetPost(ctx context.Context, id int64) (model.Post, error)
	GetPostAuthor(ctx context.Context, id int64) (int64, error)
	CreatePost(ctx context.Context, post *model.Post, categoryIDs, tagIDs []int64) (int64, error)
	UpdatePost(ctx context.Context, id int64, update PostUpdate) error
	DeletePost(ctx context.Context, id int64) error
	IncrementViewCount(ctx context.Context, id int64) error
}

type CommentStore interface {
	CreateComment(ctx context.Context, comment *model.Comment) (int64, error)
	ListCommentsByPost(ctx context.Context, postID int64) ([]model.Comment, error)
	GetCommentAuthor(ctx context.Context, id int64) (int64, error)
	DeleteComment(ctx context.Context, id int64) error
}

type TaxonomyStore interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListTags(ctx context.Context) ([]model.Tag, error)
	CreateCategory(ctx context.Context, category *model.Category) (int64, error)
	CreateTag(ctx context.Context, tag *model.Tag) (int64, error)
}

type SearchStore interface {
	// SearchPosts runs a full-text query over published posts, ranked by
	// the index, capped at limit.
	SearchPosts(ctx context.Context, query string, limit int) ([]model.Post, error)
}
