package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/barmart/marketplace/internal/audit"
	"github.com/barmart/marketplace/internal/chat"
	"github.com/barmart/marketplace/internal/messaging"
	"github.com/barmart/marketplace/internal/metrics"
	"github.com/barmart/marketplace/internal/moderation"
	"github.com/barmart/marketplace/internal/suspend"
)

// snapshotSink persists flags through the audit store, attaching the
// recent thread conversation so admins see context around the flagged
// message.
type snapshotSink struct {
	store  *audit.Store
	buffer *chat.MessageBuffer
}

func (s *snapshotSink) Record(ctx context.Context, flag moderation.Flag) error {
	alert := &audit.Alert{
		UserID:   flag.UserID,
		ThreadID: flag.ThreadID,
		Source:   flag.Source,
		Category: string(flag.Category),
		Text:     flag.Text,
	}
	for _, m := range s.buffer.Get(flag.ThreadID) {
		alert.Context = append(alert.Context, audit.MessageEntry{
			From: m.From,
			Text: m.Text,
			Ts:   m.Ts,
		})
	}
	return s.store.Create(ctx, alert)
}

func main() {
	log.Println("Starting Bar-Mart moderation service...")

	// Redis setup.
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

	// NATS setup.
	natsConfig := messaging.DefaultNATSConfig()
	if v := os.Getenv("NATS_URL"); v != "" {
		natsConfig.URL = v
	}
	natsConfig.Name = "barmart-moderator"

	natsClient, err := messaging.NewNATSClient(natsConfig)
	if err != nil {
		log.Fatalf("failed to connect to NATS: %v", err)
	}

	metricsAddr := ":9091"
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		metricsAddr = v
	}

	buffer := chat.NewMessageBuffer()
	threads := chat.NewThreadStore(rdb)
	suspensions := suspend.NewStore(rdb)
	alerts := audit.NewStore(db)
	orchestrator := moderation.NewOrchestrator(
		moderation.NewDetector(),
		&snapshotSink{store: alerts, buffer: buffer},
	)

	// Subscribe to moderation check requests.
	err = natsClient.SubscribeModerationCheck(func(data []byte) {
		var req moderation.CheckRequest
		if err := json.Unmarshal(data, &req); err != nil {
			log.Printf("[moderator] failed to unmarshal request: %v", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := chat.ValidateMessage(req.Text); err != nil {
			log.Printf("[moderator] invalid message session=%s thread=%s: %v",
				req.SessionID, req.ThreadID, err)
			return
		}

		suspended, remaining, reason, err := suspensions.IsSuspended(ctx, req.SenderID)
		if err != nil {
			log.Printf("[moderator] suspension check user=%s: %v (failing open)", req.SenderID, err)
		} else if suspended {
			log.Printf("[moderator] DROPPED user=%s suspended (%ds left, reason=%s)",
				req.SenderID, remaining, reason)
			return
		}

		thread, err := threads.Get(ctx, req.ThreadID)
		if err != nil {
			log.Printf("[moderator] thread lookup %s: %v", req.ThreadID, err)
			return
		}
		if thread == nil || !thread.IsParticipant(req.SenderID) {
			log.Printf("[moderator] DROPPED user=%s not a participant of thread=%s",
				req.SenderID, req.ThreadID)
			return
		}
		if thread.Status == chat.StatusArchived {
			log.Printf("[moderator] DROPPED thread=%s archived", req.ThreadID)
			return
		}

		start := time.Now()
		result := orchestrator.ModerateChat(ctx, moderation.ChatMessage{
			SenderID: req.SenderID,
			ThreadID: req.ThreadID,
			Text:     req.Text,
		})
		metrics.CheckLatency.Observe(time.Since(start).Seconds())

		ts := req.Ts
		if ts == 0 {
			ts = time.Now().Unix()
		}
		buffer.Add(req.ThreadID, chat.BufferedMessage{
			From: req.SenderID,
			Text: result.DeliveredText,
			Ts:   ts,
		})
		if err := threads.Touch(ctx, req.ThreadID); err != nil {
			log.Printf("[moderator] thread touch %s: %v", req.ThreadID, err)
		}

		if result.WasSubstituted {
			metrics.ChecksTotal.WithLabelValues("chat", "flagged").Inc()
			metrics.FlagsTotal.WithLabelValues(string(result.Category)).Inc()
			log.Printf("[moderator] FLAGGED user=%s thread=%s category=%s",
				req.SenderID, req.ThreadID, result.Category)

			autoSuspended, duration, err := suspensions.FlagAndCheck(ctx, req.SenderID)
			if err != nil {
				log.Printf("[moderator] flag count user=%s: %v", req.SenderID, err)
			} else if autoSuspended {
				metrics.SuspensionsTotal.WithLabelValues("auto").Inc()
				log.Printf("[moderator] SUSPENDED user=%s duration=%s", req.SenderID, duration)
			}
		} else {
			metrics.ChecksTotal.WithLabelValues("chat", "clean").Inc()
		}

		event := chat.ChatEvent{
			Type:        "message",
			From:        req.SenderID,
			Text:        result.DeliveredText,
			Substituted: result.WasSubstituted,
			Category:    string(result.Category),
			Ts:          ts,
		}
		eventData, err := json.Marshal(event)
		if err != nil {
			log.Printf("[moderator] failed to marshal chat event: %v", err)
			return
		}
		if err := natsClient.PublishChatMessage(req.ThreadID, eventData); err != nil {
			log.Printf("[moderator] failed to publish chat event: %v", err)
		}

		checkResult := moderation.CheckResult{
			SessionID:      req.SessionID,
			ThreadID:       req.ThreadID,
			DeliveredText:  result.DeliveredText,
			WasSubstituted: result.WasSubstituted,
			Category:       string(result.Category),
		}
		resultData, err := json.Marshal(checkResult)
		if err != nil {
			log.Printf("[moderator] failed to marshal result: %v", err)
			return
		}
		if err := natsClient.PublishModerationResult(req.SessionID, resultData); err != nil {
			log.Printf("[moderator] failed to publish result: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("failed to subscribe to moderation checks: %v", err)
	}

	// Metrics endpoint for Prometheus scraping.
	metricsServer := &http.Server{Addr: metricsAddr, Handler: metrics.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[moderator] metrics server error: %v", err)
		}
	}()

	log.Printf("Bar-Mart moderation service running")
	log.Printf("  redis_addr:   %s", redisAddr)
	log.Printf("  nats_url:     %s", natsConfig.URL)
	log.Printf("  metrics_addr: %s", metricsAddr)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[moderator] metrics server shutdown: %v", err)
	}

	natsClient.Close()
	rdb.Close()
	db.Close()
}
