// Package ontrac provides integration with the OnTrac web services.
package ontrac

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/transport"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "ontrac"

const (
	// TestURL is the OnTrac test service root.
	TestURL = "https://www.shipontrac.net/OnTracTestWebServices/OnTracServices.svc"
	// LiveURL is the OnTrac production service root.
	LiveURL = "https://www.shipontrac.net/OnTracWebServices/OnTracServices.svc"
)

// Config holds OnTrac configuration.
type Config struct {
	Account  string
	Password string
	Test     bool

	// BaseURL overrides the service root selected by Test.
	BaseURL string
	Timeout time.Duration

	// Now and NewUID default to time.Now and random UUIDs.
	Now    func() time.Time
	NewUID func() string
}

// Client is the OnTrac API client.
type Client struct {
	config    Config
	transport shipper.Transport
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new OnTrac client using the HTTP transport.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) (*Client, error) {
	t := transport.NewRetrying(transport.NewHTTP(transport.Config{Timeout: cfg.Timeout}, logger), transport.RetryConfig{})
	return NewWithTransport(cfg, t, logger, tracer)
}

// NewWithTransport creates a new OnTrac client with a custom transport.
func NewWithTransport(cfg Config, t shipper.Transport, logger *otelzap.Logger, tracer trace.Tracer) (*Client, error) {
	c := &Client{
		config:    cfg,
		transport: t,
		logger:    logger,
		tracer:    shipper.TracerOrNoop(tracer),
	}
	if err := shipper.CheckRequirements(carrierName, c.Requirements(), map[string]string{
		"account":  cfg.Account,
		"password": cfg.Password,
	}); err != nil {
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
	if c.config.NewUID == nil {
		c.config.NewUID = uuid.NewString
	}
	return c, nil
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// Requirements returns the required credential keys.
func (c *Client) Requirements() []string {
	return []string{"account", "password"}
}

// FindRates returns rate estimates for the packages.
func (c *Client) FindRates(ctx context.Context, origin, destination shipper.Location, packages []shipper.Package, opts shipper.RateOptions) (*shipper.RateResponse, error) {
	ctx, span := shipper.StartSpan(ctx, c.tracer, carrierName, "FindRates",
		attribute.String("origin_postal", origin.PostalCode),
		attribute.String("destination_postal", destination.PostalCode),
		attribute.Int("package_count", len(packages)))

	c.logger.Ctx(ctx).Info("Getting OnTrac rates",
		zap.String("origin_postal", origin.PostalCode),
		zap.String("destination_postal", destination.PostalCode),
		zap.Int("package_count", len(packages)),
	)

	if err := shipper.ValidatePackages(carrierName, packages); err != nil {
		shipper.EndSpan(span, err)
		return nil, err
	}

	now := c.config.Now()
	u := ratesURL(c.config, packageList(origin, destination, packages, opts, c.config.NewUID))
	body, err := c.get(ctx, u)
	if err != nil {
		c.logger.Ctx(ctx).Error("OnTrac rates error", zap.Error(err))
		shipper.EndSpan(span, err)
		return nil, err
	}

	shipDate := now.Add(time.Duration(opts.TurnAroundHours) * time.Hour)
	resp, err := parseRateResponse(body, shipDate, packages, c.config.Test, redactPassword(c.config, u))
	shipper.EndSpan(span, err)
	return resp, err
}

// CreateShipment books a shipment and returns its label.
func (c *Client) CreateShipment(ctx context.Context, origin, destination shipper.Location, pkg shipper.Package, _ []shipper.PackageItem, opts shipper.ShipmentOptions) (*shipper.ShippingResponse, error) {
	uid := opts.ShipmentID
	if uid == "" {
		uid = c.config.NewUID()
	}

	ctx, span := shipper.StartSpan(ctx, c.tracer, carrierName, "CreateShipment",
		attribute.String("uid", uid))

	c.logger.Ctx(ctx).Info("Creating OnTrac shipment",
		zap.String("uid", uid),
		zap.String("destination_postal", destination.PostalCode),
	)

	if err := shipper.ValidatePackages(carrierName, []shipper.Package{pkg}); err != nil {
		shipper.EndSpan(span, err)
		return nil, err
	}

	payload, err := buildShipmentRequest(uid, origin, destination, pkg, opts, c.config.Now()).Encode()
	if err != nil {
		err = shipper.NewShipperError(carrierName, "ENCODING", "could not encode request").WithCause(err)
		shipper.EndSpan(span, err)
		return nil, err
	}

	headers := map[string]string{"Content-Type": "application/xml"}
	if opts.IdempotencyKey != "" {
		headers[shipper.IdempotencyHeader] = opts.IdempotencyKey
	}

	body, err := c.transport.Post(ctx, shipmentsURL(c.config), payload, headers)
	if err != nil {
		envelope, ok := shipper.ErrorBody(err, "<Error>")
		if !ok {
			c.logger.Ctx(ctx).Error("OnTrac shipment error", zap.String("uid", uid), zap.Error(err))
			shipper.EndSpan(span, err)
			return nil, err
		}
		body = envelope
	}

	resp, err := parseShipmentResponse(body, opts.LabelFormat, c.config.Test, string(payload))
	shipper.EndSpan(span, err)
	return resp, err
}

// FindTrackingInfo returns tracking events for one OnTrac shipment.
func (c *Client) FindTrackingInfo(ctx context.Context, id string, opts shipper.TrackingOptions) (*shipper.TrackingResponse, error) {
	return c.FindTrackingInfoMany(ctx, []string{id}, opts)
}

// FindTrackingInfoMany looks up several shipments in one request. With
// opts.Details set it returns shipment details instead of tracking events.
func (c *Client) FindTrackingInfoMany(ctx context.Context, ids []string, opts shipper.TrackingOptions) (*shipper.TrackingResponse, error) {
	requestType := requestTrack
	if opts.Details {
		requestType = requestDetails
	}

	ctx, span := shipper.StartSpan(ctx, c.tracer, carrierName, "FindTrackingInfo",
		attribute.StringSlice("tracking_numbers", ids),
		attribute.String("request_type", requestType))

	c.logger.Ctx(ctx).Info("Getting OnTrac tracking info",
		zap.Strings("tracking_numbers", ids),
		zap.String("request_type", requestType),
	)

	if len(ids) == 0 {
		err := shipper.ValidationError(carrierName, "NO_TRACKING_NUMBERS", "at least one tracking number is required")
		shipper.EndSpan(span, err)
		return nil, err
	}

	u := trackingURL(c.config, ids, requestType)
	body, err := c.get(ctx, u)
	if err != nil {
		c.logger.Ctx(ctx).Error("OnTrac tracking error", zap.Strings("tracking_numbers", ids), zap.Error(err))
		shipper.EndSpan(span, err)
		return nil, err
	}

	resp, err := parseTrackingResponse(body, requestType, c.config.Test, redactPassword(c.config, u))
	shipper.EndSpan(span, err)
	return resp, err
}

// Zips lists the zip codes OnTrac serves. A non-zero lastUpdate limits the
// list to zips changed since that date.
func (c *Client) Zips(ctx context.Context, lastUpdate time.Time) (*ZipsResponse, error) {
	ctx, span := shipper.StartSpan(ctx, c.tracer, carrierName, "Zips")

	c.logger.Ctx(ctx).Info("Getting OnTrac service zips",
		zap.Time("last_update", lastUpdate),
	)

	u := zipsURL(c.config, lastUpdate)
	body, err := c.get(ctx, u)
	if err != nil {
		shipper.EndSpan(span, err)
		return nil, err
	}

	resp, err := parseZipsResponse(body, c.config.Test, redactPassword(c.config, u))
	shipper.EndSpan(span, err)
	return resp, err
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	body, err := c.transport.Get(ctx, url, map[string]string{"Accept": "application/xml"})
	if err == nil {
		return body, nil
	}
	if envelope, ok := shipper.ErrorBody(err, "<Error>"); ok {
		return envelope, nil
	}
	return nil, err
}

var (
	_ shipper.RateFinder      = (*Client)(nil)
	_ shipper.Tracker         = (*Client)(nil)
	_ shipper.ShipmentCreator = (*Client)(nil)
)
