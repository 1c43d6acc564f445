package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"shop-api/internal/payments/domain"
)

const pendingKeyPrefix = "payments:pending:"

// RedisPendingStore keeps pending payment records in Redis with a TTL, so
// abandoned checkouts expire on their own.
type RedisPendingStore struct {
	client *redis.Client
}

// NewRedisPendingStore creates a new Redis-backed pending payment store
func NewRedisPendingStore(client *redis.Client) *RedisPendingStore {
	return &RedisPendingStore{client: client}
}

func (s *RedisPendingStore) Put(ctx context.Context, pending *domain.PendingPayment, ttl time.Duration) error {
	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to marshal pending payment: %w", err)
	}
	if err := s.client.Set(ctx, pendingKeyPrefix+pending.TxnRef, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store pending payment: %w", err)
	}
	return nil
}

// Get returns the pending payment for txnRef, or nil when it has expired
// or never existed
func (s *RedisPendingStore) Get(ctx context.Context, txnRef string) (*domain.PendingPayment, error) {
	data, err := s.client.Get(ctx, pendingKeyPrefix+txnRef).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pending payment: %w", err)
	}

	var pending domain.PendingPayment
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending payment: %w", err)
	}
	return &pending, nil
}

func (s *RedisPendingStore) Delete(ctx context.Context, txnRef string) error {
	if err := s.client.Del(ctx, pendingKeyPrefix+txnRef).Err(); err != nil {
		return fmt.Errorf("failed to delete pending payment: %w", err)
	}
	return nil
}
