// Package fedex provides integration with the FedEx Web Services XML API.
package fedex

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/transport"
	"github.com/tournevent/carrierbridge/pkg/shipper/wire"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "fedex"

const (
	// TestURL is the FedEx sandbox gateway.
	TestURL = "https://gatewaybeta.fedex.com:443/xml"
	// LiveURL is the FedEx production gateway.
	LiveURL = "https://gateway.fedex.com:443/xml"
)

// Config holds FedEx configuration.
type Config struct {
	Key      string
	Password string
	Account  string
	Login    string // meter number
	Test     bool

	// BaseURL overrides the gateway selected by Test.
	BaseURL string
	Timeout time.Duration

	// Now and NewTransactionID default to time.Now and random UUIDs.
	Now              func() time.Time
	NewTransactionID func() string
}

// Client is the FedEx API client.
type Client struct {
	config    Config
	transport shipper.Transport
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new FedEx client using the HTTP transport.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) (*Client, error) {
	t := transport.NewRetrying(transport.NewHTTP(transport.Config{Timeout: cfg.Timeout}, logger), transport.RetryConfig{})
	return NewWithTransport(cfg, t, logger, tracer)
}

// NewWithTransport creates a new FedEx client with a custom transport.
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
		c.config.BaseURL = LiveURL
		if cfg.Test {
			c.config.BaseURL = TestURL
		}
	}
	if c.config.Now == nil {
		c.config.Now = time.Now
	}
	if c.config.NewTransactionID == nil {
		c.config.NewTransactionID = uuid.NewString
	}
	return c, nil
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// Requirements returns the required credential keys.
func (c *Client) Requirements() []string {
	return []string{"key", "password", "account", "login"}
}

func (c *Client) credentials() map[string]string {
	return map[string]string{
		"key":      c.config.Key,
		"password": c.config.Password,
		"account":  c.config.Account,
		"login":    c.config.Login,
	}
}

func (c *Client) auth() credentials {
	return credentials{
		Key:           c.config.Key,
		Password:      c.config.Password,
		Account:       c.config.Account,
		Meter:         c.config.Login,
		TransactionID: c.config.NewTransactionID(),
	}
}

// FindRates returns rate estimates for the packages.
func (c *Client) FindRates(ctx context.Context, origin, destination shipper.Location, packages []shipper.Package, opts shipper.RateOptions) (*shipper.RateResponse, error) {
	ctx, span := shipper.StartSpan(ctx, c.tracer, carrierName, "FindRates",
		attribute.String("origin_postal", origin.PostalCode),
		attribute.String("destination_postal", destination.PostalCode),
		attribute.Int("package_count", len(packages)))

	c.logger.Ctx(ctx).Info("Getting FedEx rates",
		zap.String("origin_postal", origin.PostalCode),
		zap.String("destination_postal", destination.PostalCode),
		zap.Int("package_count", len(packages)),
	)

	if err := shipper.ValidatePackages(carrierName, packages); err != nil {
		shipper.EndSpan(span, err)
		return nil, err
	}

	now := c.config.Now()
	req := buildRateRequest(c.auth(), origin, destination, packages, opts, now)
	body, lastRequest, err := c.commit(shipper.ReadOnly(ctx), req, nil)
	if err != nil {
		c.logger.Ctx(ctx).Error("FedEx rates error", zap.Error(err))
		shipper.EndSpan(span, err)
		return nil, err
	}

	resp, err := parseRateResponse(body, packages, shipDay(now, opts.TurnAroundHours), c.config.Test, lastRequest)
	shipper.EndSpan(span, err)
	return resp, err
}

// FindTrackingInfo returns tracking events for a FedEx package.
func (c *Client) FindTrackingInfo(ctx context.Context, id string, opts shipper.TrackingOptions) (*shipper.TrackingResponse, error) {
	ctx, span := shipper.StartSpan(ctx, c.tracer, carrierName, "FindTrackingInfo",
		attribute.String("tracking_number", id))

	c.logger.Ctx(ctx).Info("Getting FedEx tracking info",
		zap.String("tracking_number", id),
	)

	body, lastRequest, err := c.commit(shipper.ReadOnly(ctx), buildTrackRequest(c.auth(), id, opts), nil)
	if err != nil {
		c.logger.Ctx(ctx).Error("FedEx tracking error", zap.String("tracking_number", id), zap.Error(err))
		shipper.EndSpan(span, err)
		return nil, err
	}

	resp, err := parseTrackResponse(body, c.config.Test, lastRequest)
	shipper.EndSpan(span, err)
	return resp, err
}

// CreateShipment creates a shipment and returns its label.
func (c *Client) CreateShipment(ctx context.Context, origin, destination shipper.Location, pkg shipper.Package, _ []shipper.PackageItem, opts shipper.ShipmentOptions) (*shipper.ShippingResponse, error) {
	ctx, span := shipper.StartSpan(ctx, c.tracer, carrierName, "CreateShipment",
		attribute.String("service_type", opts.ServiceType))

	c.logger.Ctx(ctx).Info("Creating FedEx shipment",
		zap.String("origin_postal", origin.PostalCode),
		zap.String("destination_postal", destination.PostalCode),
		zap.String("service_type", opts.ServiceType),
	)

	if err := shipper.ValidatePackages(carrierName, []shipper.Package{pkg}); err != nil {
		shipper.EndSpan(span, err)
		return nil, err
	}

	var headers map[string]string
	if opts.IdempotencyKey != "" {
		headers = map[string]string{shipper.IdempotencyHeader: opts.IdempotencyKey}
	}

	req := buildShipRequest(c.auth(), origin, destination, pkg, opts, c.config.Now())
	body, lastRequest, err := c.commit(ctx, req, headers)
	if err != nil {
		c.logger.Ctx(ctx).Error("FedEx shipment error", zap.Error(err))
		shipper.EndSpan(span, err)
		return nil, err
	}

	resp, err := parseShipResponse(body, c.config.Test, lastRequest)
	if err == nil && resp.Success {
		c.logger.Ctx(ctx).Info("FedEx shipment created",
			zap.String("tracking_number", resp.TrackingNumber),
		)
	}
	shipper.EndSpan(span, err)
	return resp, err
}

// ValidateAddress asks FedEx to validate and classify an address.
func (c *Client) ValidateAddress(ctx context.Context, loc shipper.Location, opts shipper.ValidationOptions) (*shipper.ValidationResponse, error) {
	ctx, span := shipper.StartSpan(ctx, c.tracer, carrierName, "ValidateAddress",
		attribute.String("postal_code", loc.PostalCode))

	c.logger.Ctx(ctx).Info("Validating address with FedEx",
		zap.String("postal_code", loc.PostalCode),
		zap.String("country", loc.Country),
	)

	if err := shipper.ValidateLocation(carrierName, "address", loc, true); err != nil {
		shipper.EndSpan(span, err)
		return nil, err
	}

	timestamp := opts.RequestTimestamp
	if timestamp.IsZero() {
		timestamp = c.config.Now()
	}
	body, lastRequest, err := c.commit(shipper.ReadOnly(ctx), buildValidationRequest(c.auth(), loc, timestamp), nil)
	if err != nil {
		shipper.EndSpan(span, err)
		return nil, err
	}

	resp, err := parseValidationResponse(body, c.config.Test, lastRequest)
	shipper.EndSpan(span, err)
	return resp, err
}

// commit encodes and posts a request. FedEx reports SOAP-level failures with
// an HTTP error status; bodies carrying notifications are returned for parsing.
func (c *Client) commit(ctx context.Context, req *wire.Node, headers map[string]string) ([]byte, string, error) {
	payload, err := req.Encode()
	if err != nil {
		return nil, "", shipper.NewShipperError(carrierName, "ENCODING", "could not encode request").WithCause(err)
	}
	if headers == nil {
		headers = map[string]string{}
	}
	headers["Content-Type"] = "application/xml"

	body, err := c.transport.Post(ctx, c.config.BaseURL, payload, headers)
	if err != nil {
		if envelope, ok := shipper.ErrorBody(err, "Notifications"); ok {
			return envelope, string(payload), nil
		}
		return nil, string(payload), err
	}
	return body, string(payload), nil
}

var (
	_ shipper.RateFinder       = (*Client)(nil)
	_ shipper.Tracker          = (*Client)(nil)
	_ shipper.ShipmentCreator  = (*Client)(nil)
	_ shipper.AddressValidator = (*Client)(nil)
)
