// Package dhl provides integration with the DHL eCommerce (Global Mail) API.
package dhl

import (
	"context"
	"time"

	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/transport"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "dhl"

// DefaultBaseURL is the DHL eCommerce API root.
const DefaultBaseURL = "https://api.dhlglobalmail.com"

// Config holds DHL configuration.
type Config struct {
	Username string
	Password string
	ClientID string
	BaseURL  string
	Test     bool

	// Threshold bounds retries after a rejected token. Zero uses
	// shipper.DefaultTokenThreshold; refreshing cannot be disabled.
	Threshold int

	// AccessToken, when set, is used instead of acquiring a token.
	AccessToken string

	Timeout time.Duration
}

// Client is the DHL API client.
type Client struct {
	config    Config
	transport shipper.Transport
	tokens    *shipper.TokenManager
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new DHL client using the HTTP transport.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) (*Client, error) {
	t := transport.NewRetrying(transport.NewHTTP(transport.Config{Timeout: cfg.Timeout}, logger), transport.RetryConfig{})
	return NewWithTransport(cfg, t, logger, tracer)
}

// NewWithTransport creates a new DHL client with a custom transport.
func NewWithTransport(cfg Config, t shipper.Transport, logger *otelzap.Logger, tracer trace.Tracer) (*Client, error) {
	c := &Client{
		config:    cfg,
		transport: t,
		logger:    logger,
		tracer:    shipper.TracerOrNoop(tracer),
	}
	if err := shipper.CheckRequirements(carrierName, c.Requirements(), c.credentials()); err != nil {
		return nil, err
	}
	if c.config.BaseURL == "" {
		c.config.BaseURL = DefaultBaseURL
	}
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = shipper.DefaultTokenThreshold
	}
	c.tokens = shipper.NewTokenManager(carrierName, threshold, c.RetrieveToken, cfg.AccessToken)
	return c, nil
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// Requirements returns the required credential keys.
func (c *Client) Requirements() []string {
	return []string{"username", "password", "client_id"}
}

func (c *Client) credentials() map[string]string {
	return map[string]string{
		"username":  c.config.Username,
		"password":  c.config.Password,
		"client_id": c.config.ClientID,
	}
}

// Tokens exposes the token manager, e.g. to observe acquisitions.
func (c *Client) Tokens() *shipper.TokenManager {
	return c.tokens
}

// RetrieveToken requests a new access token from DHL.
func (c *Client) RetrieveToken(ctx context.Context) (string, error) {
	ctx, span := shipper.StartSpan(ctx, c.tracer, carrierName, "RetrieveToken")

	c.logger.Ctx(ctx).Info("Retrieving DHL access token")

	body, err := c.get(ctx, tokenURL(c.config))
	if err != nil {
		shipper.EndSpan(span, err)
		return "", err
	}
	token, err := parseTokenResponse(body)
	shipper.EndSpan(span, err)
	return token, err
}

// FindTrackingInfo returns tracking events for a DHL mail item.
func (c *Client) FindTrackingInfo(ctx context.Context, id string, _ shipper.TrackingOptions) (*shipper.TrackingResponse, error) {
	ctx, span := shipper.StartSpan(ctx, c.tracer, carrierName, "FindTrackingInfo",
		attribute.String("tracking_number", id))

	c.logger.Ctx(ctx).Info("Getting DHL tracking info",
		zap.String("tracking_number", id),
	)

	resp, err := shipper.WithToken(ctx, c.tokens, func(ctx context.Context, token string) (*shipper.TrackingResponse, error) {
		body, err := c.get(ctx, trackingURL(c.config, id, token))
		if err != nil {
			return nil, err
		}
		return parseTrackingResponse(body, c.config.Test, lastTrackingRequest(c.config, id))
	})
	if err != nil {
		c.logger.Ctx(ctx).Error("DHL tracking error", zap.String("tracking_number", id), zap.Error(err))
	}
	shipper.EndSpan(span, err)
	return resp, err
}

// get performs a GET and returns error bodies that carry a DHL envelope so
// they can be parsed for business error codes.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	body, err := c.transport.Get(ctx, url, map[string]string{"Accept": "application/json"})
	if err == nil {
		return body, nil
	}
	if envelope, ok := shipper.ErrorBody(err, `"meta"`); ok {
		return envelope, nil
	}
	return nil, err
}

var _ shipper.Tracker = (*Client)(nil)
