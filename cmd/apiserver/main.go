package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/barmart/marketplace/internal/api"
	"github.com/barmart/marketplace/internal/audit"
	"github.com/barmart/marketplace/internal/moderation"
	"github.com/barmart/marketplace/internal/ratelimit"
	"github.com/barmart/marketplace/internal/suspend"
)

func main() {
	log.Println("Starting Bar-Mart API server...")

	listenAddr := ":8080"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		listenAddr = v
	}

	// Redis setup for rate limiting.
	redisAddr := "localhost:6379"
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		redisAddr = v
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(ctx).Err(); err != nil {
		cancel()
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	cancel()

	// Postgres setup for the audit trail.
	postgresDSN := "postgres://localhost:5432/barmart?sslmode=disable"
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		postgresDSN = v
	}

	db, err := sql.Open("postgres", postgresDSN)
	if err != nil {
		log.Fatalf("failed to open Postgres: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("failed to connect to Postgres: %v", err)
	}
	if err := audit.Migrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	alerts := audit.NewStore(db)
	orchestrator := moderation.NewOrchestrator(moderation.NewDetector(), alerts)
	limiter := ratelimit.NewLimiter(rdb)
	suspensions := suspend.NewStore(rdb)

	server := api.NewServer(orchestrator, alerts, limiter, suspensions)
	httpServer := &http.Server{
		Addr:         listenAddr,
		Handler:      server.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("Bar-Mart API server running")
		log.Printf("  listen_addr:  %s", listenAddr)
		log.Printf("  redis_addr:   %s", redisAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http server shutdown: %v", err)
	}

	rdb.Close()
	db.Close()
}
