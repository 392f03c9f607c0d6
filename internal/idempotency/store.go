// Package idempotency remembers shipment creation results by idempotency key
// so a repeated request never books a second label.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/tournevent/carrierbridge/pkg/shipper"
)

// DefaultTTL is how long results are remembered when no TTL is configured.
const DefaultTTL = 24 * time.Hour

const (
	keyPrefix  = "carrierbridge:idempotency:"
	pending    = "pending"
	pendingTTL = 2 * time.Minute
)

// ErrInProgress is returned when another request holds the key.
var ErrInProgress = errors.New("request with this idempotency key is in progress")

// Store is a Redis-backed idempotency store.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// Config holds store settings.
type Config struct {
	// URL has the form redis://[:password@]host[:port][/database].
	URL string
	TTL time.Duration
}

// New connects to Redis and checks connectivity.
func New(ctx context.Context, cfg Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewWithClient(client, cfg.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

func storeKey(carrier, key string) string {
	return keyPrefix + carrier + ":" + key
}

// Begin claims key for carrier. It returns the stored response when the key
// was already completed, ErrInProgress when another request holds it, and
// (nil, nil) when the caller now owns the key and must call Save or Release.
func (s *Store) Begin(ctx context.Context, carrier, key string) (*shipper.ShippingResponse, error) {
	k := storeKey(carrier, key)
	claimed, err := s.client.SetNX(ctx, k, pending, pendingTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim key %s: %w", key, err)
	}
	if claimed {
		return nil, nil
	}

	val, err := s.client.Get(ctx, k).Bytes()
	if errors.Is(err, redis.Nil) {
		// Released between the two calls.
		return s.Begin(ctx, carrier, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	if string(val) == pending {
		return nil, ErrInProgress
	}

	var resp shipper.ShippingResponse
	if err := json.Unmarshal(val, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode stored response for %s: %w", key, err)
	}
	return &resp, nil
}

// Save stores the response for a claimed key.
func (s *Store) Save(ctx context.Context, carrier, key string, resp *shipper.ShippingResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response for %s: %w", key, err)
	}
	if err := s.client.Set(ctx, storeKey(carrier, key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Release drops a claim so the request can be attempted again.
func (s *Store) Release(ctx context.Context, carrier, key string) error {
	if err := s.client.Del(ctx, storeKey(carrier, key)).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Ping checks if Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
