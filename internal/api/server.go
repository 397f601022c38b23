// Package api exposes the Bar-Mart moderation HTTP surface: public
// endpoints for description enhancement and message pre-send checks,
// and admin endpoints over the flagged-message backlog.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/barmart/marketplace/internal/audit"
	"github.com/barmart/marketplace/internal/metrics"
	"github.com/barmart/marketplace/internal/moderation"
	"github.com/barmart/marketplace/internal/ratelimit"
)

// AlertStore is the slice of the audit store the admin endpoints need.
type AlertStore interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Alert, error)
	Clear(ctx context.Context, id string) error
	Analytics(ctx context.Context) (audit.Analytics, error)
	ThreadNeedsAttention(ctx context.Context, threadID string) (bool, error)
}

// Moderator runs content policy checks. *moderation.Orchestrator
// satisfies it.
type Moderator interface {
	ModerateChat(ctx context.Context, msg moderation.ChatMessage) moderation.ChatResult
	ModerateListing(ctx context.Context, listing moderation.Listing) moderation.ListingResult
}

// RateLimiter throttles public endpoints per user. *ratelimit.Limiter
// satisfies it.
type RateLimiter interface {
	Allow(ctx context.Context, identifier string, rule ratelimit.Rule) (bool, error)
}

// Suspender manages messaging suspensions for the admin endpoints.
// *suspend.Store satisfies it.
type Suspender interface {
	IsSuspended(ctx context.Context, userID string) (bool, int, string, error)
	Escalate(ctx context.Context, userID string, reason string) (time.Duration, error)
	Lift(ctx context.Context, userID string) error
}

// Server holds the dependencies behind the HTTP handlers.
type Server struct {
	moderator   Moderator
	alerts      AlertStore
	limiter     RateLimiter
	suspensions Suspender
}

// NewServer wires the HTTP surface. limiter may be nil, in which case
// the public endpoints are not throttled.
func NewServer(moderator Moderator, alerts AlertStore, limiter RateLimiter, suspensions Suspender) *Server {
	return &Server{
		moderator:   moderator,
		alerts:      alerts,
		limiter:     limiter,
		suspensions: suspensions,
	}
}

// Router builds the chi router with all routes and middleware attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/descriptions/enhance", s.handleEnhance)
		r.Post("/messages/preview", s.handlePreview)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/flags", s.handleListFlags)
			r.Delete("/flags/{id}", s.handleClearFlag)
			r.Get("/analytics", s.handleAnalytics)
			r.Get("/threads/{id}/attention", s.handleThreadAttention)
			r.Get("/users/{id}/suspension", s.handleSuspensionStatus)
			r.Post("/users/{id}/suspend", s.handleSuspend)
			r.Delete("/users/{id}/suspend", s.handleLiftSuspension)
		})
	})

	return r
}
