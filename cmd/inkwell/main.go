package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/inkwell-press/inkwell/internal/auth"
	"github.com/inkwell-press/inkwell/internal/blob"
	"github.com/inkwell-press/inkwell/internal/config"
	httpapp "github.com/inkwell-press/inkwell/internal/http"
	"github.com/inkwell-press/inkwell/internal/rate"
	"github.com/inkwell-press/inkwell/internal/store/sqlite"
)

func main() {
	if len(os.Args) < 2 {
		runServer()
		return
	}

	switch os.Args[1] {
	case "serve", "server":
		runServer()
	case "version", "-v", "--version":
		fmt.Println("inkwell " + config.Load().Version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`inkwell - blogging platform API server

Usage: inkwell [command]

Commands:
  serve     Run the API server (default)
  version   Print the version
  help      Show this help

Configuration is read from the environment (and a .env file when present):
  INKWELL_ADDR, PORT, INKWELL_DB, INKWELL_UPLOAD_DIR, INKWELL_BASE_URL,
  INKWELL_SESSION_TTL, INKWELL_RL_LOGIN_PER_MIN, INKWELL_RL_REGISTER_PER_MIN,
  INKWELL_RL_COMMENT_PER_MIN`)
}

func runServer() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()
	cfg := config.Load()

	st, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer st.Close()

	blobs, err := blob.NewFileStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		log.Fatalf("failed to init upload storage: %v", err)
	}

	limiter := rate.NewMemory()
	authSvc := auth.NewService(st, cfg.SessionTTL)
	server := httpapp.NewServer(st, authSvc, blobs, limiter, cfg)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("inkwell listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
}
