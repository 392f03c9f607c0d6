package transport

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tournevent/carrierbridge/pkg/shipper"
)

// DefaultMaxTries is the number of attempts made for a safe request.
const DefaultMaxTries = 3

// Retrying wraps a Transport and repeats failed requests that are safe to
// repeat: every GET, and POSTs that are either marked with shipper.ReadOnly
// or carry an idempotency key header. Only temporary failures (network
// errors, 429, 5xx) are retried.
type Retrying struct {
	next       shipper.Transport
	maxTries   uint
	maxElapsed time.Duration
	newBackOff func() backoff.BackOff
}

// RetryConfig holds retry settings.
type RetryConfig struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
}

// NewRetrying creates a retrying decorator around next.
func NewRetrying(next shipper.Transport, cfg RetryConfig) *Retrying {
	maxTries := cfg.MaxTries
	if maxTries == 0 {
		maxTries = DefaultMaxTries
	}
	return &Retrying{
		next:       next,
		maxTries:   maxTries,
		maxElapsed: cfg.MaxElapsedTime,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			if cfg.InitialInterval > 0 {
				b.InitialInterval = cfg.InitialInterval
			}
			return b
		},
	}
}

// Get performs a GET request, retrying temporary failures.
func (t *Retrying) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	return t.retry(ctx, func() ([]byte, error) {
		return t.next.Get(ctx, url, headers)
	})
}

// Post performs a POST request. It is retried only when safe to repeat.
func (t *Retrying) Post(ctx context.Context, url string, body []byte, headers map[string]string) ([]byte, error) {
	op := func() ([]byte, error) {
		return t.next.Post(ctx, url, body, headers)
	}
	if !shipper.IsReadOnly(ctx) && headers[shipper.IdempotencyHeader] == "" {
		return op()
	}
	return t.retry(ctx, op)
}

func (t *Retrying) retry(ctx context.Context, op func() ([]byte, error)) ([]byte, error) {
	return backoff.Retry(ctx, func() ([]byte, error) {
		data, err := op()
		if err != nil && !shipper.IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return data, err
	}, t.options()...)
}

func (t *Retrying) options() []backoff.RetryOption {
	opts := []backoff.RetryOption{
		backoff.WithBackOff(t.newBackOff()),
		backoff.WithMaxTries(t.maxTries),
	}
	if t.maxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(t.maxElapsed))
	}
	return opts
}

var _ shipper.Transport = (*Retrying)(nil)
