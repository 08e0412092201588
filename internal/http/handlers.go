package httpapp

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/inkwell-press/inkwell/internal/auth"
	"github.com/inkwell-press/inkwell/internal/model"
	"github.com/inkwell-press/inkwell/internal/password"
	"github.com/inkwell-press/inkwell/internal/slug"
	"github.com/inkwell-press/inkwell/internal/store"
)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// handleRegister godoc
//
//	@Summary		Register a user
//	@Tags			Authentication
//	@Accept			json
//	@Produce		json
//	@Param			body	body		registerRequest	true	"Registration fields"
//	@Success		201		{object}	map[string]interface{}	"message and userId"
//	@Failure		400		{object}	map[string]string	"Missing fields or email/username taken"
//	@Router			/api/auth/register [post]
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if ok, retry := s.limiter.Allow("register:"+clientIP(r), s.cfg.RateLimits.RegisterPerMinute, time.Minute); !ok {
		writeRateLimit(w, retry)
		return
	}

	var req registerRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.Email == "" || req.Password == "" || req.Username == "" {
		writeError(w, http.StatusBadRequest, errors.New("email, password and username are required"))
		return
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		s.internalError(w, err)
		return
	}
	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}
	userID, err := s.store.CreateUser(r.Context(), &model.User{
		Email:        req.Email,
		Username:     req.Username,
		DisplayName:  displayName,
		Role:         model.RoleUser,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		s.storeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "registered",
		"userId":  userID,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin godoc
//
//	@Summary		Log in
//	@Description	Verifies credentials and issues a bearer token backed by a server-side session.
//	@Tags			Authentication
//	@Accept			json
//	@Produce		json
//	@Param			body	body		loginRequest	true	"Credentials"
//	@Success		200		{object}	map[string]interface{}	"message, token and user"
//	@Failure		401		{object}	map[string]string	"Bad credentials"
//	@Router			/api/auth/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if ok, retry := s.limiter.Allow("login:"+clientIP(r), s.cfg.RateLimits.LoginPerMinute, time.Minute); !ok {
		writeRateLimit(w, retry)
		return
	}

	var req loginRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, errors.New("email and password are required"))
		return
	}

	errBadCredentials := errors.New("invalid email or password")
	user, err := s.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, errBadCredentials)
			return
		}
		s.internalError(w, err)
		return
	}
	if !password.Verify(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, errBadCredentials)
		return
	}

	session, err := s.auth.CreateSession(r.Context(), user.ID)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if err := s.store.TouchLastLogin(r.Context(), user.ID, time.Now()); err != nil {
		log.Printf("touch last login for user %d: %v", user.ID, err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "logged in",
		"token":   session.Token,
		"user": model.Identity{
			ID:          user.ID,
			Email:       user.Email,
			Username:    user.Username,
			DisplayName: user.DisplayName,
			Role:        user.Role,
			AvatarURL:   user.AvatarURL,
		},
	})
}

// handleLogout godoc
//
//	@Summary		Log out
//	@Description	Revokes the presented session. Revoking an unknown token succeeds.
//	@Tags			Authentication
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	map[string]string	"message"
//	@Failure		401	{object}	map[string]string	"Missing bearer token"
//	@Router			/api/auth/logout [post]
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := auth.BearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
		return
	}
	if err := s.auth.Revoke(r.Context(), token); err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "logged out"})
}

// handleMe godoc
//
//	@Summary		Current user
//	@Tags			Authentication
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	map[string]interface{}	"user"
//	@Failure		401	{object}	map[string]string	"Absent or invalid token"
//	@Router			/api/auth/me [get]
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := s.requireAuth(w, r)
	if identity == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": identity})
}

// handleListPosts godoc
//
//	@Summary		List posts
//	@Description	Paginated posts filtered by status, category slug and tag slug, newest published first.
//	@Tags			Posts
//	@Produce		json
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			limit		query		int		false	"Page size"		default(10)
//	@Param			category	query		string	false	"Category slug"
//	@Param			tag			query		string	false	"Tag slug"
//	@Param			status		query		string	false	"Post status"	Enums(draft, published)	default(published)
//	@Success		200			{object}	map[string]interface{}	"posts and pagination"
//	@Router			/api/posts [get]
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.PostFilter{
		Status:   q.Get("status"),
		Category: q.Get("category"),
		Tag:      q.Get("tag"),
		Page:     parseIntDefault(q.Get("page"), 1),
		Limit:    parseIntDefault(q.Get("limit"), 10),
	}
	posts, pagination, err := s.store.ListPosts(r.Context(), filter)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if posts == nil {
		posts = []model.Post{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"posts":      posts,
		"pagination": pagination,
	})
}

type createPostRequest struct {
	Title       string  `json:"title"`
	Slug        string  `json:"slug"`
	Content     string  `json:"content"`
	Excerpt     string  `json:"excerpt"`
	CoverImage  string  `json:"coverImage"`
	Status      string  `json:"status"`
	CategoryIDs []int64 `json:"categoryIds"`
	TagIDs      []int64 `json:"tagIds"`
}

// handleCreatePost godoc
//
//	@Summary		Create a post
//	@Tags			Posts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		createPostRequest	true	"Post fields"
//	@Success		201		{object}	map[string]interface{}	"message and postId"
//	@Failure		400		{object}	map[string]string	"Empty title/content or unknown association id"
//	@Router			/api/posts [post]
func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	identity := s.requireAuth(w, r)
	if identity == nil {
		return
	}

	var req createPostRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.Title == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, errors.New("title and content are required"))
		return
	}
	status := req.Status
	if status == "" {
		status = model.StatusDraft
	}
	if status != model.StatusDraft && status != model.StatusPublished {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid status %q", status))
		return
	}
	postSlug := req.Slug
	if postSlug == "" {
		postSlug = slug.Make(req.Title)
	}

	now := time.Now()
	post := model.Post{
		Title:      req.Title,
		Slug:       postSlug,
		Content:    req.Content,
		Excerpt:    req.Excerpt,
		CoverImage: req.CoverImage,
		AuthorID:   identity.ID,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if status == model.StatusPublished {
		post.PublishedAt = &now
	}

	postID, err := s.store.CreatePost(r.Context(), &post, req.CategoryIDs, req.TagIDs)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "post created",
		"postId":  postID,
	})
}

// handleGetPost godoc
//
//	@Summary		Get a post
//	@Description	Returns the post with author, categories and tags. Every fetch counts one view.
//	@Tags			Posts
//	@Produce		json
//	@Param			id	path		int	true	"Post ID"
//	@Success		200	{object}	map[string]interface{}	"post"
//	@Failure		404	{object}	map[string]string	"Post not found"
//	@Router			/api/posts/{id} [get]
func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid post id"))
		return
	}
	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	// The returned snapshot predates this view.
	if err := s.store.IncrementViewCount(r.Context(), id); err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"post": post})
}

type updatePostRequest struct {
	Title      *string `json:"title"`
	Slug       *string `json:"slug"`
	Content    *string `json:"content"`
	Excerpt    *string `json:"excerpt"`
	CoverImage *string `json:"coverImage"`
	Status     *string `json:"status"`
}

// handleUpdatePost godoc
//
//	@Summary		Update a post
//	@Description	Partial update; only supplied fields change. Requires the author or an admin.
//	@Tags			Posts
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int	true	"Post ID"
//	@Param			body	body		updatePostRequest	true	"Fields to change"
//	@Success		200		{object}	map[string]string	"message"
//	@Failure		403		{object}	map[string]string	"Not the author nor admin"
//	@Failure		404		{object}	map[string]string	"Post not found"
//	@Router			/api/posts/{id} [put]
func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request, idStr string) {
	identity := s.requireAuth(w, r)
	if identity == nil {
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid post id"))
		return
	}

	authorID, err := s.store.GetPostAuthor(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if !auth.CanMutate(identity, authorID) {
		writeError(w, http.StatusForbidden, errors.New("not allowed to edit this post"))
		return
	}

	var req updatePostRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.Title != nil && *req.Title == "" {
		writeError(w, http.StatusBadRequest, errors.New("title cannot be empty"))
		return
	}
	if req.Content != nil && *req.Content == "" {
		writeError(w, http.StatusBadRequest, errors.New("content cannot be empty"))
		return
	}
	if req.Status != nil && *req.Status != model.StatusDraft && *req.Status != model.StatusPublished {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid status %q", *req.Status))
		return
	}

	update := store.PostUpdate{
		Title:      req.Title,
		Slug:       req.Slug,
		Content:    req.Content,
		Excerpt:    req.Excerpt,
		CoverImage: req.CoverImage,
		Status:     req.Status,
	}
	if err := s.store.UpdatePost(r.Context(), id, update); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "post updated"})
}

// handleDeletePost godoc
//
//	@Summary		Delete a post
//	@Description	Deletes the post together with its comments and category/tag associations.
//	@Tags			Posts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int	true	"Post ID"
//	@Success		200	{object}	map[string]string	"message"
//	@Failure		403	{object}	map[string]string	"Not the author nor admin"
//	@Failure		404	{object}	map[string]string	"Post not found"
//	@Router			/api/posts/{id} [delete]
func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request, idStr string) {
	identity := s.requireAuth(w, r)
	if identity == nil {
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid post id"))
		return
	}

	authorID, err := s.store.GetPostAuthor(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if !auth.CanMutate(identity, authorID) {
		writeError(w, http.StatusForbidden, errors.New("not allowed to delete this post"))
		return
	}

	if err := s.store.DeletePost(r.Context(), id); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "post deleted"})
}

// handleListComments godoc
//
//	@Summary		List comments for a post
//	@Tags			Comments
//	@Produce		json
//	@Param			postId	query		int	true	"Post ID"
//	@Success		200		{object}	map[string]interface{}	"comments"
//	@Failure		400		{object}	map[string]string	"Missing postId"
//	@Router			/api/comments [get]
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	postIDStr := r.URL.Query().Get("postId")
	if postIDStr == "" {
		writeError(w, http.StatusBadRequest, errors.New("postId is required"))
		return
	}
	postID, err := strconv.ParseInt(postIDStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid postId"))
		return
	}
	comments, err := s.store.ListCommentsByPost(r.Context(), postID)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

type createCommentRequest struct {
	PostID   int64  `json:"postId"`
	Content  string `json:"content"`
	ParentID *int64 `json:"parentId"`
}

// handleCreateComment godoc
//
//	@Summary		Comment on a post
//	@Tags			Comments
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		createCommentRequest	true	"Comment fields"
//	@Success		201		{object}	map[string]interface{}	"message and commentId"
//	@Router			/api/comments [post]
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	identity := s.requireAuth(w, r)
	if identity == nil {
		return
	}
	if ok, retry := s.limiter.Allow(fmt.Sprintf("comment:%d", identity.ID), s.cfg.RateLimits.CommentPerMinute, time.Minute); !ok {
		writeRateLimit(w, retry)
		return
	}

	var req createCommentRequest
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.PostID == 0 || req.Content == "" {
		writeError(w, http.StatusBadRequest, errors.New("postId and content are required"))
		return
	}

	commentID, err := s.store.CreateComment(r.Context(), &model.Comment{
		PostID:    req.PostID,
		UserID:    identity.ID,
		ParentID:  req.ParentID,
		Content:   req.Content,
		CreatedAt: time.Now(),
	})
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":   "comment created",
		"commentId": commentID,
	})
}

// handleDeleteComment godoc
//
//	@Summary		Delete a comment
//	@Tags			Comments
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		int	true	"Comment ID"
//	@Success		200	{object}	map[string]string	"message"
//	@Failure		403	{object}	map[string]string	"Not the author nor admin"
//	@Failure		404	{object}	map[string]string	"Comment not found"
//	@Router			/api/comments/{id} [delete]
func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request, idStr string) {
	identity := s.requireAuth(w, r)
	if identity == nil {
		return
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid comment id"))
		return
	}

	authorID, err := s.store.GetCommentAuthor(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	if !auth.CanMutate(identity, authorID) {
		writeError(w, http.StatusForbidden, errors.New("not allowed to delete this comment"))
		return
	}

	if err := s.store.DeleteComment(r.Context(), id); err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "comment deleted"})
}

// handleListCategories godoc
//
//	@Summary		List categories
//	@Tags			Taxonomy
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}	"categories"
//	@Router			/api/categories [get]
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// handleListTags godoc
//
//	@Summary		List tags
//	@Tags			Taxonomy
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}	"tags"
//	@Router			/api/tags [get]
func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.store.ListTags(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	if tags == nil {
		tags = []model.Tag{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

const maxUploadSize = 32 << 20 // 32 MiB

// handleUpload godoc
//
//	@Summary		Upload a file
//	@Description	Stores a multipart file in object storage keyed by timestamp and filename, returns its public URL.
//	@Tags			Media
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file	formData	file	true	"File to upload"
//	@Success		200		{object}	map[string]string	"url"
//	@Failure		400		{object}	map[string]string	"No file supplied"
//	@Router			/api/upload [post]
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	identity := s.requireAuth(w, r)
	if identity == nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("file is required"))
		return
	}
	defer file.Close()

	key := fmt.Sprintf("uploads/%d-%s", time.Now().UnixMilli(), sanitizeFilename(header.Filename))
	url, err := s.blobs.Put(r.Context(), key, header.Header.Get("Content-Type"), file)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": url})
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, " ", "-")
	if name == "." || name == "" {
		return "file"
	}
	return name
}

// handleSearch godoc
//
//	@Summary		Search published posts
//	@Description	Full-text lookup delegated to the store's index, top 20 results.
//	@Tags			Search
//	@Produce		json
//	@Param			q	query		string	true	"Query string"
//	@Success		200	{object}	map[string]interface{}	"results"
//	@Failure		400	{object}	map[string]string	"Missing query"
//	@Router			/api/search [get]
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, errors.New("q is required"))
		return
	}
	results, err := s.store.SearchPosts(r.Context(), query, 20)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if results == nil {
		results = []model.Post{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
