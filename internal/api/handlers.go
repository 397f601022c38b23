package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/barmart/marketplace/internal/audit"
	"github.com/barmart/marketplace/internal/chat"
	"github.com/barmart/marketplace/internal/metrics"
	"github.com/barmart/marketplace/internal/moderation"
	"github.com/barmart/marketplace/internal/ratelimit"
	"github.com/barmart/marketplace/internal/suspend"
)

// defaultFlagsLimit bounds GET /v1/admin/flags when no limit is given.
const defaultFlagsLimit = 50

type enhanceRequest struct {
	SellerID    string `json:"seller_id"`
	ListingID   string `json:"listing_id"`
	Description string `json:"description"`
}

type enhanceResponse struct {
	Description string `json:"description"`
	Rejected    bool   `json:"rejected"`
	Category    string `json:"category,omitempty"`
}

type previewRequest struct {
	SenderID string `json:"sender_id"`
	ThreadID string `json:"thread_id"`
	Text     string `json:"text"`
}

type previewResponse struct {
	Text        string `json:"text"`
	Substituted bool   `json:"substituted"`
	Category    string `json:"category,omitempty"`
}

type alertResponse struct {
	ID        string               `json:"id"`
	UserID    string               `json:"user_id"`
	ThreadID  string               `json:"thread_id,omitempty"`
	Source    string               `json:"source"`
	Category  string               `json:"category"`
	Severity  string               `json:"severity"`
	Text      string               `json:"text"`
	Context   []audit.MessageEntry `json:"context,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

type attentionResponse struct {
	ThreadID       string `json:"thread_id"`
	NeedsAttention bool   `json:"needs_attention"`
}

type suspensionResponse struct {
	UserID           string `json:"user_id"`
	Suspended        bool   `json:"suspended"`
	RemainingSeconds int    `json:"remaining_seconds,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

type suspendRequest struct {
	Reason string `json:"reason"`
}

type suspendResponse struct {
	UserID          string `json:"user_id"`
	DurationSeconds int    `json:"duration_seconds"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	var req enhanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SellerID == "" {
		writeError(w, http.StatusBadRequest, "seller_id is required")
		return
	}
	if err := chat.ValidateDescription(req.Description); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.allow(r, req.SellerID, ratelimit.RuleEnhance) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	start := time.Now()
	result := s.moderator.ModerateListing(r.Context(), moderation.Listing{
		SellerID:  req.SellerID,
		ListingID: req.ListingID,
		Text:      req.Description,
	})
	metrics.CheckLatency.Observe(time.Since(start).Seconds())
	observeCheck("listing", result.WasRejected, result.Category)

	resp := enhanceResponse{
		Description: result.ResultText,
		Rejected:    result.WasRejected,
	}
	if result.WasRejected {
		resp.Category = string(result.Category)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SenderID == "" {
		writeError(w, http.StatusBadRequest, "sender_id is required")
		return
	}
	if err := chat.ValidateMessage(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.allow(r, req.SenderID, ratelimit.RulePreview) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	start := time.Now()
	result := s.moderator.ModerateChat(r.Context(), moderation.ChatMessage{
		SenderID: req.SenderID,
		ThreadID: req.ThreadID,
		Text:     req.Text,
	})
	metrics.CheckLatency.Observe(time.Since(start).Seconds())
	observeCheck("chat", result.WasSubstituted, result.Category)

	resp := previewResponse{
		Text:        result.DeliveredText,
		Substituted: result.WasSubstituted,
	}
	if result.WasSubstituted {
		resp.Category = string(result.Category)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListFlags(w http.ResponseWriter, r *http.Request) {
	limit := defaultFlagsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	alerts, err := s.alerts.ListRecent(r.Context(), limit)
	if err != nil {
		log.Printf("[api] list flags: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := make([]alertResponse, 0, len(alerts))
	for _, a := range alerts {
		resp = append(resp, alertResponse{
			ID:        a.ID,
			UserID:    a.UserID,
			ThreadID:  a.ThreadID,
			Source:    a.Source,
			Category:  a.Category,
			Severity:  a.Severity,
			Text:      a.Text,
			Context:   a.Context,
			CreatedAt: a.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClearFlag(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "flag id is required")
		return
	}

	if err := s.alerts.Clear(r.Context(), id); err != nil {
		log.Printf("[api] clear flag %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.alerts.Analytics(r.Context())
	if err != nil {
		log.Printf("[api] analytics: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	metrics.OpenAlerts.Set(float64(analytics.TotalFlagged))
	writeJSON(w, http.StatusOK, analytics)
}

func (s *Server) handleThreadAttention(w http.ResponseWriter, r *http.Request) {
	threadID := strings.TrimSpace(chi.URLParam(r, "id"))
	if threadID == "" {
		writeError(w, http.StatusBadRequest, "thread id is required")
		return
	}

	needs, err := s.alerts.ThreadNeedsAttention(r.Context(), threadID)
	if err != nil {
		log.Printf("[api] thread attention %s: %v", threadID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, attentionResponse{
		ThreadID:       threadID,
		NeedsAttention: needs,
	})
}

func (s *Server) handleSuspensionStatus(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	suspended, remaining, reason, err := s.suspensions.IsSuspended(r.Context(), userID)
	if err != nil {
		log.Printf("[api] suspension status %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, suspensionResponse{
		UserID:           userID,
		Suspended:        suspended,
		RemainingSeconds: remaining,
		Reason:           reason,
	})
}

func (s *Server) handleSuspend(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	var req suspendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = suspend.ReasonOffPlatform
	}

	duration, err := s.suspensions.Escalate(r.Context(), userID, reason)
	if err != nil {
		log.Printf("[api] suspend %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	metrics.SuspensionsTotal.WithLabelValues("manual").Inc()
	writeJSON(w, http.StatusOK, suspendResponse{
		UserID:          userID,
		DurationSeconds: int(duration.Seconds()),
	})
}

func (s *Server) handleLiftSuspension(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "id"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	if err := s.suspensions.Lift(r.Context(), userID); err != nil {
		log.Printf("[api] lift suspension %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// allow applies the rate limit for the given user. A nil limiter
// admits everything.
func (s *Server) allow(r *http.Request, identifier string, rule ratelimit.Rule) bool {
	if s.limiter == nil {
		return true
	}
	allowed, _ := s.limiter.Allow(r.Context(), identifier, rule)
	return allowed
}

func observeCheck(path string, flagged bool, category moderation.Category) {
	verdict := "clean"
	if flagged {
		verdict = "flagged"
		metrics.FlagsTotal.WithLabelValues(string(category)).Inc()
	}
	metrics.ChecksTotal.WithLabelValues(path, verdict).Inc()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
