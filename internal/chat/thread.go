// Package chat provides the supporting state for marketplace message
// threads: the Redis-backed thread store, an in-memory buffer of recent
// messages used for audit snapshots, message validation, and the event
// payload delivered over NATS.
package chat

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ThreadPrefix = "thread:"

	// ThreadTTL is refreshed on every Touch; threads idle this long are
	// dropped from Redis (the canonical listing/order history lives
	// elsewhere).
	ThreadTTL = 30 * 24 * time.Hour

	StatusActive   = "active"
	StatusArchived = "archived"
)

// Thread is a buyer/seller conversation about one product.
type Thread struct {
	ThreadID   string
	Buyer      string
	Seller     string
	ProductID  string
	Status     string
	CreatedAt  int64
	LastActive int64
}

// GetPartner returns the other participant's user ID, or "" if userID
// is not a participant.
func (th *Thread) GetPartner(userID string) string {
	if userID == th.Buyer {
		return th.Seller
	}
	if userID == th.Seller {
		return th.Buyer
	}
	return ""
}

// IsParticipant checks if a user is part of this thread.
func (th *Thread) IsParticipant(userID string) bool {
	return userID == th.Buyer || userID == th.Seller
}

// ThreadStore manages thread state in Redis.
type ThreadStore struct {
	rdb *redis.Client
}

// NewThreadStore creates a thread store backed by Redis.
func NewThreadStore(rdb *redis.Client) *ThreadStore {
	return &ThreadStore{rdb: rdb}
}

// Create stores a new active thread between a buyer and a seller.
func (s *ThreadStore) Create(ctx context.Context, threadID, buyer, seller, productID string) error {
	key := ThreadPrefix + threadID
	now := time.Now().Unix()

	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"buyer":       buyer,
		"seller":      seller,
		"product_id":  productID,
		"status":      StatusActive,
		"created_at":  now,
		"last_active": now,
	})
	pipe.Expire(ctx, key, ThreadTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Get retrieves a thread. Returns nil if not found.
func (s *ThreadStore) Get(ctx context.Context, threadID string) (*Thread, error) {
	key := ThreadPrefix + threadID
	result, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}

	createdAt, _ := strconv.ParseInt(result["created_at"], 10, 64)
	lastActive, _ := strconv.ParseInt(result["last_active"], 10, 64)

	return &Thread{
		ThreadID:   threadID,
		Buyer:      result["buyer"],
		Seller:     result["seller"],
		ProductID:  result["product_id"],
		Status:     result["status"],
		CreatedAt:  createdAt,
		LastActive: lastActive,
	}, nil
}

// Touch records activity on a thread and refreshes its TTL.
func (s *ThreadStore) Touch(ctx context.Context, threadID string) error {
	key := ThreadPrefix + threadID

	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, key, "last_active", time.Now().Unix())
	pipe.Expire(ctx, key, ThreadTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Archive marks a thread as archived; archived threads reject new
// messages.
func (s *ThreadStore) Archive(ctx context.Context, threadID string) error {
	key := ThreadPrefix + threadID
	return s.rdb.HSet(ctx, key, "status", StatusArchived).Err()
}

// Delete removes a thread.
func (s *ThreadStore) Delete(ctx context.Context, threadID string) error {
	return s.rdb.Del(ctx, ThreadPrefix+threadID).Err()
}
