package httpapp

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/inkwell-press/inkwell/internal/auth"
	"github.com/inkwell-press/inkwell/internal/blob"
	"github.com/inkwell-press/inkwell/internal/config"
	"github.com/inkwell-press/inkwell/internal/model"
	"github.com/inkwell-press/inkwell/internal/rate"
	"github.com/inkwell-press/inkwell/internal/store"

	_ "github.com/inkwell-press/inkwell/docs" // swagger docs

	httpSwagger "github.com/swaggo/http-swagger"
)

type Server struct {
	store   store.Store
	auth    *auth.Service
	blobs   blob.Store
	limiter rate.Limiter
	cfg     config.Config
	uploads http.Handler
}

func NewServer(st store.Store, authSvc *auth.Service, blobs blob.Store, limiter rate.Limiter, cfg config.Config) *Server {
	return &Server{
		store:   st,
		auth:    authSvc,
		blobs:   blobs,
		limiter: limiter,
		cfg:     cfg,
		uploads: http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch {
	case strings.HasPrefix(r.URL.Path, "/api/"):
		s.handleAPI(w, r)
	case strings.HasPrefix(r.URL.Path, "/uploads/"):
		s.uploads.ServeHTTP(w, r)
	case strings.HasPrefix(r.URL.Path, "/swagger/"):
		httpSwagger.WrapHandler.ServeHTTP(w, r)
	default:
		notFound(w)
	}
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	// A panicking handler must not leak detail past the dispatch boundary.
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
			writeError(w, http.StatusInternalServerError, errInternal)
		}
	}()

	path := strings.TrimPrefix(r.URL.Path, "/api")
	segments := splitPath(path)

	switch {
	case len(segments) == 2 && segments[0] == "auth" && segments[1] == "register":
		if r.Method == http.MethodPost {
			s.handleRegister(w, r)
			return
		}
	case len(segments) == 2 && segments[0] == "auth" && segments[1] == "login":
		if r.Method == http.MethodPost {
			s.handleLogin(w, r)
			return
		}
	case len(segments) == 2 && segments[0] == "auth" && segments[1] == "logout":
		if r.Method == http.MethodPost {
			s.handleLogout(w, r)
			return
		}
	case len(segments) == 2 && segments[0] == "auth" && segments[1] == "me":
		if r.Method == http.MethodGet {
			s.handleMe(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "posts":
		if r.Method == http.MethodGet {
			s.handleListPosts(w, r)
			return
		}
		if r.Method == http.MethodPost {
			s.handleCreatePost(w, r)
			return
		}
	case len(segments) == 2 && segments[0] == "posts":
		if r.Method == http.MethodGet {
			s.handleGetPost(w, r, segments[1])
			return
		}
		if r.Method == http.MethodPut {
			s.handleUpdatePost(w, r, segments[1])
			return
		}
		if r.Method == http.MethodDelete {
			s.handleDeletePost(w, r, segments[1])
			return
		}
	case len(segments) == 1 && segments[0] == "comments":
		if r.Method == http.MethodGet {
			s.handleListComments(w, r)
			return
		}
		if r.Method == http.MethodPost {
			s.handleCreateComment(w, r)
			return
		}
	case len(segments) == 2 && segments[0] == "comments":
		if r.Method == http.MethodDelete {
			s.handleDeleteComment(w, r, segments[1])
			return
		}
	case len(segments) == 1 && segments[0] == "categories":
		if r.Method == http.MethodGet {
			s.handleListCategories(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "tags":
		if r.Method == http.MethodGet {
			s.handleListTags(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "upload":
		if r.Method == http.MethodPost {
			s.handleUpload(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "search":
		if r.Method == http.MethodGet {
			s.handleSearch(w, r)
			return
		}
	case len(segments) == 1 && segments[0] == "version":
		if r.Method == http.MethodGet {
			writeJSON(w, http.StatusOK, map[string]any{"version": s.cfg.Version})
			return
		}
	}

	notFound(w)
}

// requireAuth resolves the acting identity or writes a 401.
func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) *model.Identity {
	identity, err := s.auth.Authenticate(r.Context(), r)
	if err != nil {
		s.internalError(w, err)
		return nil
	}
	if identity == nil {
		writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
		return nil
	}
	return identity
}

var errInternal = errors.New("internal server error")

// internalError logs the real cause server-side and answers with a generic
// message.
func (s *Server) internalError(w http.ResponseWriter, err error) {
	log.Printf("internal error: %v", err)
	writeError(w, http.StatusInternalServerError, errInternal)
}

// storeError translates store sentinel errors into the response taxonomy.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, store.ErrDuplicateEmail),
		errors.Is(err, store.ErrDuplicateUsername),
		errors.Is(err, store.ErrInvalidReference):
		writeError(w, http.StatusBadRequest, err)
	default:
		s.internalError(w, err)
	}
}

func setCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

func readJSON(body io.ReadCloser, dest any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeRateLimit(w http.ResponseWriter, retry time.Duration) {
	w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
	writeJSON(w, http.StatusTooManyRequests, map[string]any{
		"error":       "rate limit exceeded",
		"retry_after": int(retry.Seconds()),
	})
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, errors.New("not found"))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func parseIntDefault(value string, def int) int {
	if value == "" {
		return def
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return def
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
