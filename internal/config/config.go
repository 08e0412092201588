package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr          string
	DBPath        string
	UploadDir     string
	PublicBaseURL string
	SessionTTL    time.Duration
	RateLimits    RateLimits
	Version       string
}

type RateLimits struct {
	LoginPerMinute    int
	RegisterPerMinute int
	CommentPerMinute  int
}

func Load() Config {
	addr := envString("INKWELL_ADDR", "")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":8080"
		}
	}
	return Config{
		Addr:          addr,
		DBPath:        envString("INKWELL_DB", "inkwell.db"),
		UploadDir:     envString("INKWELL_UPLOAD_DIR", "uploads"),
		PublicBaseURL: envString("INKWELL_BASE_URL", "http://localhost:8080"),
		SessionTTL:    envDuration("INKWELL_SESSION_TTL", 7*24*time.Hour),
		RateLimits: RateLimits{
			LoginPerMinute:    envInt("INKWELL_RL_LOGIN_PER_MIN", 10),
			RegisterPerMinute: envInt("INKWELL_RL_REGISTER_PER_MIN", 5),
			CommentPerMinute:  envInt("INKWELL_RL_COMMENT_PER_MIN", 30),
		},
		Version: envString("INKWELL_VERSION", "dev"),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
