package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultStateTTL = 10 * time.Minute

// StateStore keeps OAuth state values so each can be redeemed exactly once.
// Key format: oauth:state:<state>
type StateStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStateStore creates a StateStore. If ttl <= 0, defaultStateTTL is used.
func NewStateStore(client *redis.Client, ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &StateStore{client: client, ttl: ttl}
}

// Save records state until it is consumed or expires.
func (s *StateStore) Save(ctx context.Context, state string) error {
	if err := s.client.Set(ctx, s.key(state), "1", s.ttl).Err(); err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	return nil
}

// Consume deletes state and reports whether it was present.
func (s *StateStore) Consume(ctx context.Context, state string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(state)).Result()
	if err != nil {
		return false, fmt.Errorf("consume oauth state: %w", err)
	}
	return n > 0, nil
}

func (s *StateStore) key(state string) string {
	return "oauth:state:" + state
}
