// Package transport provides shipper.Transport implementations.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// DefaultTimeout is the request timeout used when none is configured.
const DefaultTimeout = 30 * time.Second

// maxBodySize caps how much of a response body is read.
const maxBodySize = 10 << 20

// LoggingRoundTripper logs request method, URL, status and duration.
type LoggingRoundTripper struct {
	// Proxied is the underlying RoundTripper to execute the request.
	Proxied http.RoundTripper
	Logger  *otelzap.Logger
}

// RoundTrip executes the request and logs details.
func (lrt *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	ctx := req.Context()

	lrt.Logger.Ctx(ctx).Debug("HTTP request started",
		zap.String("method", req.Method),
		zap.String("host", req.URL.Host),
		zap.String("path", req.URL.Path),
	)

	resp, err := lrt.Proxied.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		lrt.Logger.Ctx(ctx).Error("HTTP request failed",
			zap.String("method", req.Method),
			zap.String("host", req.URL.Host),
			zap.String("path", req.URL.Path),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	lrt.Logger.Ctx(ctx).Debug("HTTP request completed",
		zap.String("method", req.Method),
		zap.String("host", req.URL.Host),
		zap.String("path", req.URL.Path),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)
	return resp, nil
}

// HTTP is the production Transport backed by net/http.
type HTTP struct {
	client *http.Client
}

// Config holds HTTP transport settings.
type Config struct {
	Timeout time.Duration
}

// NewHTTP creates an HTTP transport that logs through logger. Query strings
// are never logged since some carriers pass credentials in them.
func NewHTTP(cfg Config, logger *otelzap.Logger) *HTTP {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	return &HTTP{
		client: &http.Client{
			Timeout: timeout,
			Transport: &LoggingRoundTripper{
				Proxied: http.DefaultTransport,
				Logger:  logger,
			},
		},
	}
}

// NewHTTPWithClient creates an HTTP transport around an existing client.
func NewHTTPWithClient(client *http.Client) *HTTP {
	return &HTTP{client: client}
}

// Get performs a GET request.
func (t *HTTP) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	return t.do(ctx, http.MethodGet, url, nil, headers)
}

// Post performs a POST request.
func (t *HTTP) Post(ctx context.Context, url string, body []byte, headers map[string]string) ([]byte, error) {
	return t.do(ctx, http.MethodPost, url, body, headers)
}

func (t *HTTP) do(ctx context.Context, method, url string, body []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &shipper.TransportError{Method: method, URL: redact(url), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &shipper.TransportError{Method: method, URL: redact(url), StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &shipper.TransportError{
			Method:     method,
			URL:        redact(url),
			StatusCode: resp.StatusCode,
			Body:       data,
		}
	}
	return data, nil
}

// redact drops the query string, which may carry credentials.
func redact(url string) string {
	if i := strings.IndexByte(url, '?'); i >= 0 {
		return url[:i]
	}
	return url
}

var _ shipper.Transport = (*HTTP)(nil)
