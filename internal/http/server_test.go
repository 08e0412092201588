package httpapp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/inkwell-press/inkwell/internal/auth"
	"github.com/inkwell-press/inkwell/internal/blob"
	"github.com/inkwell-press/inkwell/internal/config"
	"github.com/inkwell-press/inkwell/internal/model"
	"github.com/inkwell-press/inkwell/internal/password"
	"github.com/inkwell-press/inkwell/internal/rate"
	"github.com/inkwell-press/inkwell/internal/store/sqlite"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		DBPath:        fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")),
		UploadDir:     t.TempDir(),
		PublicBaseURL: "http://blog.test",
		SessionTTL:    time.Hour,
		RateLimits: config.RateLimits{
			LoginPerMinute:    100,
			RegisterPerMinute: 100,
			CommentPerMinute:  100,
		},
		Version: "test",
	}
}

func newTestServer(t *testing.T, cfg config.Config) (*Server, *sqlite.Store) {
	t.Helper()
	st, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	blobs, err := blob.NewFileStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	srv := NewServer(st, auth.NewService(st, cfg.SessionTTL), blobs, rate.NewMemory(), cfg)
	return srv, st
}

func request(t *testing.T, srv *Server, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.RemoteAddr = "203.0.113.7:4242"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return payload
}

func registerAndLogin(t *testing.T, srv *Server, username string) string {
	t.Helper()
	email := username + "@example.com"
	rec := request(t, srv, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": email, "password": "hunter22", "username": username,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", username, rec.Code, rec.Body.String())
	}
	rec = request(t, srv, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": email, "password": "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", username, rec.Code, rec.Body.String())
	}
	token, _ := decode(t, rec)["token"].(string)
	if token == "" {
		t.Fatalf("login %s returned no token", username)
	}
	return token
}

func createPublishedPost(t *testing.T, srv *Server, token, title string) int64 {
	t.Helper()
	rec := request(t, srv, http.MethodPost, "/api/posts", token, map[string]any{
		"title": title, "content": "body of " + title, "status": "published",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create post: %d %s", rec.Code, rec.Body.String())
	}
	id, ok := decode(t, rec)["postId"].(float64)
	if !ok {
		t.Fatalf("create post returned no postId")
	}
	return int64(id)
}

func TestAuthFlow(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))

	rec := request(t, srv, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "ada@example.com", "password": "hunter22",
		"username": "ada", "displayName": "Ada L.",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}

	rec = request(t, srv, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "ada@example.com", "password": "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	payload := decode(t, rec)
	token := payload["token"].(string)
	user := payload["user"].(map[string]any)
	if user["username"] != "ada" || user["displayName"] != "Ada L." {
		t.Fatalf("unexpected login identity: %v", user)
	}

	rec = request(t, srv, http.MethodGet, "/api/auth/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: %d %s", rec.Code, rec.Body.String())
	}

	rec = request(t, srv, http.MethodPost, "/api/auth/logout", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: %d %s", rec.Code, rec.Body.String())
	}
	rec = request(t, srv, http.MethodGet, "/api/auth/me", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: expected 401, got %d", rec.Code)
	}
	// Revoking again still succeeds.
	rec = request(t, srv, http.MethodPost, "/api/auth/logout", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second logout: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRegisterValidation(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))

	rec := request(t, srv, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "ada@example.com",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing fields: expected 400, got %d", rec.Code)
	}

	registerAndLogin(t, srv, "ada")
	rec = request(t, srv, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "ada@example.com", "password": "x", "username": "ada2",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate email: expected 400, got %d", rec.Code)
	}
	rec = request(t, srv, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "ada2@example.com", "password": "x", "username": "ada",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate username: expected 400, got %d", rec.Code)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))
	registerAndLogin(t, srv, "ada")

	for name, body := range map[string]map[string]any{
		"unknown email":  {"email": "nobody@example.com", "password": "hunter22"},
		"wrong password": {"email": "ada@example.com", "password": "nope"},
	} {
		rec := request(t, srv, http.MethodPost, "/api/auth/login", "", body)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", name, rec.Code)
		}
		if msg := decode(t, rec)["error"]; msg != "invalid email or password" {
			t.Errorf("%s: distinguishable error %q", name, msg)
		}
	}
}

func TestPostAuthorization(t *testing.T) {
	srv, st := newTestServer(t, testConfig(t))

	owner := registerAndLogin(t, srv, "owner")
	other := registerAndLogin(t, srv, "bystander")
	postID := createPublishedPost(t, srv, owner, "Guarded Post")

	update := map[string]any{"title": "Renamed"}
	target := fmt.Sprintf("/api/posts/%d", postID)

	if rec := request(t, srv, http.MethodPut, target, "", update); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", rec.Code)
	}
	if rec := request(t, srv, http.MethodPut, target, other, update); rec.Code != http.StatusForbidden {
		t.Fatalf("non-owner: expected 403, got %d", rec.Code)
	}
	if rec := request(t, srv, http.MethodPut, target, owner, update); rec.Code != http.StatusOK {
		t.Fatalf("owner: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := request(t, srv, http.MethodPut, "/api/posts/9999", owner, update); rec.Code != http.StatusNotFound {
		t.Fatalf("missing post: expected 404, got %d", rec.Code)
	}

	// Admins may edit and delete anyone's posts.
	hash, err := password.Hash("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if _, err := st.CreateUser(t.Context(), &model.User{
		Email: "root@example.com", Username: "root", DisplayName: "root",
		Role: model.RoleAdmin, PasswordHash: hash, CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	rec := request(t, srv, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "root@example.com", "password": "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin login: %d %s", rec.Code, rec.Body.String())
	}
	admin := decode(t, rec)["token"].(string)

	if rec := request(t, srv, http.MethodDelete, target, admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("admin delete: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := request(t, srv, http.MethodGet, target, "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("deleted post: expected 404, got %d", rec.Code)
	}
}

func TestCreatePostValidation(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))
	token := registerAndLogin(t, srv, "ada")

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing title", map[string]any{"content": "x"}},
		{"missing content", map[string]any{"title": "x"}},
		{"bad status", map[string]any{"title": "x", "content": "y", "status": "archived"}},
		{"unknown field", map[string]any{"title": "x", "content": "y", "surprise": true}},
		{"unknown category", map[string]any{"title": "x", "content": "y", "categoryIds": []int64{999}}},
	}
	for _, tc := range cases {
		rec := request(t, srv, http.MethodPost, "/api/posts", token, tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d %s", tc.name, rec.Code, rec.Body.String())
		}
	}
}

func TestGetPostCountsViews(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))
	token := registerAndLogin(t, srv, "ada")
	postID := createPublishedPost(t, srv, token, "Popular Post")
	target := fmt.Sprintf("/api/posts/%d", postID)

	rec := request(t, srv, http.MethodGet, target, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("first get: %d", rec.Code)
	}
	post := decode(t, rec)["post"].(map[string]any)
	if post["view_count"].(float64) != 0 {
		t.Fatalf("first snapshot should predate its own view, got %v", post["view_count"])
	}

	rec = request(t, srv, http.MethodGet, target, "", nil)
	post = decode(t, rec)["post"].(map[string]any)
	if post["view_count"].(float64) != 1 {
		t.Fatalf("second fetch should see one view, got %v", post["view_count"])
	}
	if post["author_username"] != "ada" {
		t.Fatalf("expected joined author, got %v", post["author_username"])
	}
}

func TestListCommentsRequiresPostID(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))
	rec := request(t, srv, http.MethodGet, "/api/comments", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCommentFlow(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))
	author := registerAndLogin(t, srv, "author")
	reader := registerAndLogin(t, srv, "reader")
	postID := createPublishedPost(t, srv, author, "Discussed Post")

	if rec := request(t, srv, http.MethodPost, "/api/comments", "", map[string]any{
		"postId": postID, "content": "anonymous",
	}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated comment: expected 401, got %d", rec.Code)
	}

	rec := request(t, srv, http.MethodPost, "/api/comments", reader, map[string]any{
		"postId": postID, "content": "great read",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("comment: %d %s", rec.Code, rec.Body.String())
	}
	commentID := int64(decode(t, rec)["commentId"].(float64))

	rec = request(t, srv, http.MethodGet, fmt.Sprintf("/api/comments?postId=%d", postID), "", nil)
	comments := decode(t, rec)["comments"].([]any)
	if len(comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(comments))
	}
	if comments[0].(map[string]any)["username"] != "reader" {
		t.Fatalf("expected joined commenter: %v", comments[0])
	}

	// The post author owns the post, not the comment.
	target := fmt.Sprintf("/api/comments/%d", commentID)
	if rec := request(t, srv, http.MethodDelete, target, author, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("post author deleting reader's comment: expected 403, got %d", rec.Code)
	}
	if rec := request(t, srv, http.MethodDelete, target, reader, nil); rec.Code != http.StatusOK {
		t.Fatalf("comment author delete: %d %s", rec.Code, rec.Body.String())
	}
}

func TestLoginRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimits.LoginPerMinute = 2
	srv, _ := newTestServer(t, cfg)

	body := map[string]any{"email": "nobody@example.com", "password": "x"}
	for i := 0; i < 2; i++ {
		if rec := request(t, srv, http.MethodPost, "/api/auth/login", "", body); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rec.Code)
		}
	}
	rec := request(t, srv, http.MethodPost, "/api/auth/login", "", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestUpload(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))
	token := registerAndLogin(t, srv, "ada")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "cover image.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	part.Write([]byte("not really a png"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}
	url, _ := decode(t, rec)["url"].(string)
	if !strings.HasPrefix(url, "http://blog.test/uploads/") || !strings.HasSuffix(url, "-cover-image.png") {
		t.Fatalf("unexpected upload url %q", url)
	}

	// Uploads require auth.
	req = httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(""))
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous upload: expected 401, got %d", rec.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))
	token := registerAndLogin(t, srv, "ada")
	createPublishedPost(t, srv, token, "Tuning Postgres Indexes")

	if rec := request(t, srv, http.MethodGet, "/api/search", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing q: expected 400, got %d", rec.Code)
	}
	rec := request(t, srv, http.MethodGet, "/api/search?q=postgres", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search: %d %s", rec.Code, rec.Body.String())
	}
	results := decode(t, rec)["results"].([]any)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestCORSAndPreflight(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))

	req := httptest.NewRequest(http.MethodOptions, "/api/posts", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight: expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS origin header")
	}

	rec = request(t, srv, http.MethodGet, "/api/tags", "", nil)
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("plain responses should carry CORS headers too")
	}
}

func TestUnknownRoutes(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))
	for _, target := range []string{"/api/nope", "/api/posts/1/extra", "/nowhere"} {
		if rec := request(t, srv, http.MethodGet, target, "", nil); rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", target, rec.Code)
		}
	}
	// Wrong method on a known route.
	if rec := request(t, srv, http.MethodDelete, "/api/tags", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("DELETE /api/tags: expected 404, got %d", rec.Code)
	}
}

func TestVersionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))
	rec := request(t, srv, http.MethodGet, "/api/version", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("version: %d", rec.Code)
	}
	if decode(t, rec)["version"] != "test" {
		t.Fatalf("unexpected version payload: %s", rec.Body.String())
	}
}

func TestEmptyCollectionsSerializeAsArrays(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))

	for _, target := range []string{"/api/posts", "/api/categories", "/api/tags"} {
		rec := request(t, srv, http.MethodGet, target, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: %d", target, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "null") {
			t.Errorf("%s: empty collection rendered as null: %s", target, rec.Body.String())
		}
	}
}
