// Package audit provides PostgreSQL-backed storage for flagged-content
// alerts. Each alert captures who sent the flagged text, the thread it
// appeared in, the matched category, and (for chat flags) a snapshot of
// the last few messages exchanged, for admin review.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/barmart/marketplace/internal/moderation"
)

// Alert severities, ordered by urgency.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// validSeverities is the set of allowed severity values, matching the
// CHECK constraint on the flagged_messages table.
var validSeverities = map[string]bool{
	SeverityLow:    true,
	SeverityMedium: true,
	SeverityHigh:   true,
}

// Alert is one flagged-content record awaiting (or cleared from) admin
// review.
type Alert struct {
	ID        string
	UserID    string
	ThreadID  string // empty for listing flags
	Source    string // "chat" or "listing"
	Category  string
	Severity  string
	Text      string
	Context   []MessageEntry // recent thread messages, chat flags only
	Cleared   bool
	CreatedAt time.Time
}

// MessageEntry is one message in the conversation snapshot attached to
// a chat alert.
type MessageEntry struct {
	From string `json:"from"`
	Text string `json:"text"`
	Ts   int64  `json:"ts"`
}

// Analytics summarises the open (uncleared) alert backlog.
type Analytics struct {
	TotalFlagged int `json:"total_flagged"`
	HighSeverity int `json:"high_severity"`
	MedSeverity  int `json:"medium_severity"`
	LowSeverity  int `json:"low_severity"`
}

// SeverityFor maps a detector category to an alert severity. Concrete
// contact details rank above suggestive bypass language: a phone number
// in a message is actionable immediately, "avoid the fee" needs a human
// look.
func SeverityFor(category moderation.Category) string {
	switch category {
	case moderation.CategoryPhone, moderation.CategoryEmail, moderation.CategorySocialHandle:
		return SeverityHigh
	case moderation.CategoryMeetupLanguage, moderation.CategoryPaymentBypass, moderation.CategoryPlatformBypass:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Store manages flagged-content alerts in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates an alert store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record implements moderation.AuditSink. The alert is stored without a
// conversation snapshot; callers that hold recent thread messages
// should use Create directly.
func (s *Store) Record(ctx context.Context, flag moderation.Flag) error {
	return s.Create(ctx, &Alert{
		UserID:   flag.UserID,
		ThreadID: flag.ThreadID,
		Source:   flag.Source,
		Category: string(flag.Category),
		Severity: SeverityFor(flag.Category),
		Text:     flag.Text,
	})
}

// Create inserts an alert. An empty ID is filled with a fresh UUID and
// an empty severity is derived from the category. The context snapshot
// is marshalled to JSONB.
func (s *Store) Create(ctx context.Context, alert *Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.Severity == "" {
		alert.Severity = SeverityFor(moderation.Category(alert.Category))
	}
	if !validSeverities[alert.Severity] {
		return fmt.Errorf("audit: invalid severity %q", alert.Severity)
	}

	var contextJSON []byte
	if len(alert.Context) > 0 {
		var err error
		contextJSON, err = json.Marshal(alert.Context)
		if err != nil {
			return fmt.Errorf("audit: marshal context: %w", err)
		}
	}

	const query = `
		INSERT INTO flagged_messages (id, user_id, thread_id, source, category, severity, text, context)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		alert.ID,
		alert.UserID,
		alert.ThreadID,
		alert.Source,
		alert.Category,
		alert.Severity,
		alert.Text,
		contextJSON,
	)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// ListRecent returns up to limit open alerts, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Alert, error) {
	const query = `
		SELECT id, user_id, thread_id, source, category, severity, text, context, created_at
		FROM flagged_messages
		WHERE NOT cleared
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: list recent: %w", err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var a Alert
		var contextJSON []byte
		if err := rows.Scan(&a.ID, &a.UserID, &a.ThreadID, &a.Source, &a.Category,
			&a.Severity, &a.Text, &contextJSON, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit: scan alert: %w", err)
		}
		if len(contextJSON) > 0 {
			if err := json.Unmarshal(contextJSON, &a.Context); err != nil {
				return nil, fmt.Errorf("audit: unmarshal context: %w", err)
			}
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// Clear marks an alert as reviewed. Clearing an unknown ID is not an
// error; the reviewer's goal state is already met.
func (s *Store) Clear(ctx context.Context, id string) error {
	const query = `UPDATE flagged_messages SET cleared = TRUE WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("audit: clear: %w", err)
	}
	return nil
}

// Analytics returns counts of open alerts, total and per severity.
func (s *Store) Analytics(ctx context.Context) (Analytics, error) {
	const query = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE severity = 'high'),
			COUNT(*) FILTER (WHERE severity = 'medium'),
			COUNT(*) FILTER (WHERE severity = 'low')
		FROM flagged_messages
		WHERE NOT cleared`

	var a Analytics
	err := s.db.QueryRowContext(ctx, query).Scan(
		&a.TotalFlagged, &a.HighSeverity, &a.MedSeverity, &a.LowSeverity)
	if err != nil {
		return Analytics{}, fmt.Errorf("audit: analytics: %w", err)
	}
	return a, nil
}

// ThreadNeedsAttention reports whether a thread has any open alerts.
func (s *Store) ThreadNeedsAttention(ctx context.Context, threadID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM flagged_messages
			WHERE thread_id = $1 AND NOT cleared
		)`

	var needs bool
	if err := s.db.QueryRowContext(ctx, query, threadID).Scan(&needs); err != nil {
		return false, fmt.Errorf("audit: thread attention: %w", err)
	}
	return needs, nil
}
