// Package landmark provides integration with the Landmark Global shipping API.
package landmark

import (
	"context"
	"encoding/hex"
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

const carrierName = "landmark"

// DefaultURL is the Landmark Mercury API endpoint. Test mode is selected
// per request, not by endpoint.
const DefaultURL = "https://mercury.landmarkglobal.com/api/api.php"

// Config holds Landmark configuration.
type Config struct {
	Username string
	Password string
	Test     bool
	BaseURL  string
	Timeout  time.Duration

	// NewReference generates the shipment reference when the caller gives
	// none. Defaults to 12 random hex characters.
	NewReference func() string
}

// Client is the Landmark API client.
type Client struct {
	config    Config
	transport shipper.Transport
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Landmark client using the HTTP transport.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) (*Client, error) {
	t := transport.NewRetrying(transport.NewHTTP(transport.Config{Timeout: cfg.Timeout}, logger), transport.RetryConfig{})
	return NewWithTransport(cfg, t, logger, tracer)
}

// NewWithTransport creates a new Landmark client with a custom transport.
func NewWithTransport(cfg Config, t shipper.Transport, logger *otelzap.Logger, tracer trace.Tracer) (*Client, error) {
	c := &Client{
		config:    cfg,
		transport: t,
		logger:    logger,
		tracer:    shipper.TracerOrNoop(tracer),
	}
	if err := shipper.CheckRequirements(carrierName, c.Requirements(), map[string]string{
		"username": cfg.Username,
		"password": cfg.Password,
	}); err != nil {
		return nil, err
	}
	if c.config.BaseURL == "" {
		c.config.BaseURL = DefaultURL
	}
	if c.config.NewReference == nil {
		c.config.NewReference = randomReference
	}
	return c, nil
}

func randomReference() string {
	id := uuid.New()
	return hex.EncodeToString(id[:6])
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// Requirements returns the required credential keys.
func (c *Client) Requirements() []string {
	return []string{"username", "password"}
}

// FindTrackingInfo returns tracking events for a tracking number, or for a
// customer reference when opts.ByReference is set.
func (c *Client) FindTrackingInfo(ctx context.Context, id string, opts shipper.TrackingOptions) (*shipper.TrackingResponse, error) {
	ctx, span := shipper.StartSpan(ctx, c.tracer, carrierName, "FindTrackingInfo",
		attribute.String("tracking_number", id),
		attribute.Bool("by_reference", opts.ByReference))

	c.logger.Ctx(ctx).Info("Getting Landmark tracking info",
		zap.String("tracking_number", id),
		zap.Bool("by_reference", opts.ByReference),
	)

	body, lastRequest, err := c.commit(shipper.ReadOnly(ctx), buildTrackRequest(c.config, id, opts), nil)
	if err != nil {
		c.logger.Ctx(ctx).Error("Landmark tracking error", zap.String("tracking_number", id), zap.Error(err))
		shipper.EndSpan(span, err)
		return nil, err
	}

	resp, err := parseTrackResponse(body, c.config.Test, lastRequest)
	shipper.EndSpan(span, err)
	return resp, err
}

// CreateShipment books a shipment and returns the label link.
func (c *Client) CreateShipment(ctx context.Context, origin, destination shipper.Location, pkg shipper.Package, items []shipper.PackageItem, opts shipper.ShipmentOptions) (*shipper.ShippingResponse, error) {
	reference := opts.Reference
	if reference == "" {
		reference = c.config.NewReference()
	}

	ctx, span := shipper.StartSpan(ctx, c.tracer, carrierName, "CreateShipment",
		attribute.String("reference", reference))

	c.logger.Ctx(ctx).Info("Creating Landmark shipment",
		zap.String("reference", reference),
		zap.String("destination_country", destination.Country),
		zap.Int("item_count", len(items)),
	)

	if err := c.validateShipment(destination, pkg, items); err != nil {
		shipper.EndSpan(span, err)
		return nil, err
	}

	var headers map[string]string
	if opts.IdempotencyKey != "" {
		headers = map[string]string{shipper.IdempotencyHeader: opts.IdempotencyKey}
	}

	req := buildShipRequest(c.config, reference, origin, destination, pkg, items, opts)
	body, lastRequest, err := c.commit(ctx, req, headers)
	if err != nil {
		c.logger.Ctx(ctx).Error("Landmark shipment error", zap.String("reference", reference), zap.Error(err))
		shipper.EndSpan(span, err)
		return nil, err
	}

	resp, err := parseShipResponse(body, c.config.Test, lastRequest, orDefault(opts.LabelFormat, defaultLabelFormat))
	shipper.EndSpan(span, err)
	return resp, err
}

func (c *Client) validateShipment(destination shipper.Location, pkg shipper.Package, items []shipper.PackageItem) error {
	if err := shipper.ValidateLocation(carrierName, "destination", destination, true); err != nil {
		return err
	}
	if err := shipper.ValidatePackages(carrierName, []shipper.Package{pkg}); err != nil {
		return err
	}
	return shipper.ValidateItems(carrierName, items)
}

// CreateShipmentGroup closes shipments into a group for linehaul. The
// response lists the group ids and the number of grouped shipments.
func (c *Client) CreateShipmentGroup(ctx context.Context, references []string, opts GroupOptions) (*shipper.ShippingResponse, error) {
	ctx, span := shipper.StartSpan(ctx, c.tracer, carrierName, "CreateShipmentGroup",
		attribute.Int("shipment_count", len(references)))

	c.logger.Ctx(ctx).Info("Creating Landmark shipment group",
		zap.Int("shipment_count", len(references)),
		zap.String("region", opts.Region),
	)

	body, lastRequest, err := c.commit(ctx, buildShipmentGroupRequest(c.config, references, opts), nil)
	if err != nil {
		shipper.EndSpan(span, err)
		return nil, err
	}

	resp, err := parseShipmentGroupResponse(body, c.config.Test, lastRequest)
	shipper.EndSpan(span, err)
	return resp, err
}

// commit posts a request. Landmark error envelopes delivered with an HTTP
// error status are returned as bodies for parsing.
func (c *Client) commit(ctx context.Context, req *wire.Node, headers map[string]string) ([]byte, string, error) {
	payload, err := req.Encode()
	if err != nil {
		return nil, "", shipper.NewShipperError(carrierName, "ENCODING", "could not encode request").WithCause(err)
	}
	if headers == nil {
		headers = map[string]string{}
	}
	headers["Content-Type"] = "text/xml"

	body, err := c.transport.Post(ctx, c.config.BaseURL, payload, headers)
	if err != nil {
		if envelope, ok := shipper.ErrorBody(err, "<Errors>"); ok {
			return envelope, string(payload), nil
		}
		return nil, string(payload), err
	}
	return body, string(payload), nil
}

var (
	_ shipper.Tracker         = (*Client)(nil)
	_ shipper.ShipmentCreator = (*Client)(nil)
)
