package shipper

import (
	"context"
	"errors"
	"sync"
)

// DefaultTokenThreshold bounds how many times an operation is retried after
// its bearer token is rejected.
const DefaultTokenThreshold = 1

// MaxRetriesMessage is reported when the token retry budget is exhausted.
const MaxRetriesMessage = "Max retries of authentication exceeded, could not get access token"

// AcquireFunc obtains a fresh bearer token from the carrier.
type AcquireFunc func(ctx context.Context) (string, error)

// TokenManager caches one bearer token per adapter instance. The token is
// acquired lazily and cleared when an operation reports it invalid.
type TokenManager struct {
	carrier   string
	threshold int
	acquire   AcquireFunc

	// OnAcquire, when set, observes every acquisition attempt.
	OnAcquire func(err error)

	mu    sync.Mutex
	token string
}

// NewTokenManager creates a TokenManager. A non-empty override token is used
// as the cached token and bypasses acquisition until it is invalidated.
func NewTokenManager(carrier string, threshold int, acquire AcquireFunc, override string) *TokenManager {
	if threshold < 0 {
		threshold = DefaultTokenThreshold
	}
	return &TokenManager{
		carrier:   carrier,
		threshold: threshold,
		acquire:   acquire,
		token:     override,
	}
}

// Threshold returns the retry bound.
func (m *TokenManager) Threshold() int {
	return m.threshold
}

// HasToken reports whether a token is cached.
func (m *TokenManager) HasToken() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != ""
}

// Token returns the cached token, acquiring one if none is cached. The lock
// is held across acquisition so concurrent callers share a single request.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" {
		return m.token, nil
	}

	token, err := m.acquire(ctx)
	if m.OnAcquire != nil {
		m.OnAcquire(err)
	}
	if err != nil {
		var shipperErr *ShipperError
		if errors.As(err, &shipperErr) && shipperErr.Kind == KindAuthentication {
			return "", err
		}
		if errors.Is(err, ErrTransport) {
			return "", err
		}
		return "", AuthenticationError(m.carrier, "TOKEN_ACQUISITION", "could not get access token").WithCause(err)
	}
	if token == "" {
		return "", AuthenticationError(m.carrier, "TOKEN_ACQUISITION", "carrier returned an empty access token")
	}
	m.token = token
	return token, nil
}

// Invalidate clears the cached token if it is still stale. A token refreshed
// concurrently by another caller is left in place.
func (m *TokenManager) Invalidate(stale string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == stale {
		m.token = ""
	}
}

// WithToken runs op with the cached token. When op fails with ErrInvalidToken
// the token is invalidated and op is retried with a fresh one, at most
// Threshold times. Retries run sequentially.
func WithToken[T any](ctx context.Context, m *TokenManager, op func(ctx context.Context, token string) (T, error)) (T, error) {
	var zero T
	for retries := 0; ; retries++ {
		token, err := m.Token(ctx)
		if err != nil {
			return zero, err
		}

		result, err := op(ctx, token)
		if !errors.Is(err, ErrInvalidToken) {
			return result, err
		}

		m.Invalidate(token)
		if retries >= m.threshold {
			return zero, AuthenticationError(m.carrier, "MAX_RETRIES", MaxRetriesMessage)
		}
	}
}
