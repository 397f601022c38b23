// Package suspend provides user messaging suspensions backed by Redis.
// Suspension records are stored as simple key-value pairs with TTL-based
// expiry:
//
//	Key:   suspend:<user_id>
//	Value: <reason>
//	TTL:   suspension duration
//
// Repeated off-platform attempts escalate the duration.
package suspend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// SuspendPrefix is the Redis key prefix for suspension records.
	SuspendPrefix = "suspend:"

	// FlagsPrefix is the Redis key prefix for per-user flag counters.
	FlagsPrefix = "flags:"

	// Escalating suspension durations.
	Suspend15Min  = 15 * time.Minute // 1st offense
	Suspend1Hour  = 1 * time.Hour    // 2nd offense
	Suspend24Hour = 24 * time.Hour   // 3rd+ offense

	// FlagsTTL is how long the flag counter lives in Redis. After 24h
	// without new flags the counter resets to zero.
	FlagsTTL = 24 * time.Hour

	// AutoSuspendThreshold is the number of flagged messages within
	// FlagsTTL that triggers an automatic suspension.
	AutoSuspendThreshold = 3
)

// ReasonOffPlatform is the canonical reason recorded for suspensions
// triggered by the off-platform detector.
const ReasonOffPlatform = "off_platform_attempts"

// Store manages suspension records in Redis.
type Store struct {
	client *redis.Client
}

// NewStore creates a suspension store using the provided Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// IsSuspended checks if a user is currently suspended from messaging.
// Returns (suspended, remainingSeconds, reason, error). Redis errors are
// returned so callers can decide how to handle them; the recommended
// policy is fail-open so a Redis outage does not silence every user.
func (s *Store) IsSuspended(ctx context.Context, userID string) (bool, int, string, error) {
	key := SuspendPrefix + userID

	reason, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, 0, "", nil
	}
	if err != nil {
		return false, 0, "", err
	}

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		// The suspension exists but the TTL read failed. Report
		// suspended with 0 remaining rather than swallowing it.
		return true, 0, reason, nil
	}

	remaining := 0
	if ttl > 0 {
		remaining = int(ttl.Seconds())
	}

	return true, remaining, reason, nil
}

// Suspend blocks a user from messaging for the given duration. The
// record expires automatically.
func (s *Store) Suspend(ctx context.Context, userID string, duration time.Duration, reason string) error {
	key := SuspendPrefix + userID
	return s.client.Set(ctx, key, reason, duration).Err()
}

// Lift removes a user's suspension immediately.
func (s *Store) Lift(ctx context.Context, userID string) error {
	key := SuspendPrefix + userID
	return s.client.Del(ctx, key).Err()
}

// escalationDuration returns the suspension duration for a given flag count.
func escalationDuration(flagCount int) time.Duration {
	switch {
	case flagCount <= 1:
		return Suspend15Min
	case flagCount == 2:
		return Suspend1Hour
	default:
		return Suspend24Hour
	}
}

// FlagCount returns the current flag counter for a user. Returns 0 if
// the key does not exist (no flags recorded or counter expired).
func (s *Store) FlagCount(ctx context.Context, userID string) (int, error) {
	key := FlagsPrefix + userID
	val, err := s.client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

// Escalate increments the flag counter for a user and applies a
// suspension whose duration escalates with the number of flags:
//
//	1st flag  -> 15 minutes
//	2nd flag  -> 1 hour
//	3rd+ flag -> 24 hours
//
// Intended for manual admin action; the automatic path is FlagAndCheck.
// Returns the suspension duration that was applied.
func (s *Store) Escalate(ctx context.Context, userID string, reason string) (time.Duration, error) {
	key := FlagsPrefix + userID

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("suspend: escalate incr: %w", err)
	}

	if count == 1 {
		if err := s.client.Expire(ctx, key, FlagsTTL).Err(); err != nil {
			return 0, fmt.Errorf("suspend: escalate expire: %w", err)
		}
	}

	duration := escalationDuration(int(count))
	if err := s.Suspend(ctx, userID, duration, reason); err != nil {
		return 0, fmt.Errorf("suspend: escalate apply: %w", err)
	}

	return duration, nil
}

// FlagAndCheck increments the flag counter for a user and checks whether
// the auto-suspend threshold (3 flagged messages in 24h) has been
// reached. At or past the threshold a suspension is applied with the
// escalating duration for that count.
//
// The counter has a 24h TTL set on first increment, so it naturally
// expires when a user stops tripping the detector.
//
// Returns (suspended, duration, error).
func (s *Store) FlagAndCheck(ctx context.Context, userID string) (bool, time.Duration, error) {
	key := FlagsPrefix + userID

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("suspend: flag incr: %w", err)
	}

	// Set TTL only on the first increment so the 24h window doesn't slide.
	if count == 1 {
		if err := s.client.Expire(ctx, key, FlagsTTL).Err(); err != nil {
			return false, 0, fmt.Errorf("suspend: flag expire: %w", err)
		}
	}

	if count >= AutoSuspendThreshold {
		duration := escalationDuration(int(count))
		if err := s.Suspend(ctx, userID, duration, ReasonOffPlatform); err != nil {
			return false, 0, fmt.Errorf("suspend: apply: %w", err)
		}
		return true, duration, nil
	}

	return false, 0, nil
}
