// Package api turns service requests into carrier adapter calls.
package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/tournevent/carrierbridge/internal/idempotency"
	"github.com/tournevent/carrierbridge/internal/telemetry"
	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// IdempotencyStore remembers shipment results by key. *idempotency.Store
// implements it.
type IdempotencyStore interface {
	Begin(ctx context.Context, carrier, key string) (*shipper.ShippingResponse, error)
	Save(ctx context.Context, carrier, key string, resp *shipper.ShippingResponse) error
	Release(ctx context.Context, carrier, key string) error
}

// multiTracker is implemented by carriers that track several shipments in
// one request.
type multiTracker interface {
	FindTrackingInfoMany(ctx context.Context, ids []string, opts shipper.TrackingOptions) (*shipper.TrackingResponse, error)
}

// Resolver holds the dependencies shared by every request.
type Resolver struct {
	Registry *shipper.Registry
	Store    IdempotencyStore
	Logger   *otelzap.Logger
	Metrics  *telemetry.Metrics
}

// NewResolver creates a new resolver. store may be nil, in which case
// idempotency keys are only forwarded to carriers.
func NewResolver(registry *shipper.Registry, store IdempotencyStore, logger *otelzap.Logger, metrics *telemetry.Metrics) *Resolver {
	return &Resolver{
		Registry: registry,
		Store:    store,
		Logger:   logger,
		Metrics:  metrics,
	}
}

// ============================================================================
// Requests and results
// ============================================================================

// CarrierInfo describes a registered carrier.
type CarrierInfo struct {
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
	Requirements []string `json:"requirements"`
}

// RatesRequest asks one carrier, a list of carriers, or every rate finder
// for rates.
type RatesRequest struct {
	Carrier     string              `json:"carrier,omitempty"`
	Carriers    []string            `json:"carriers,omitempty"`
	Origin      shipper.Location    `json:"origin"`
	Destination shipper.Location    `json:"destination"`
	Packages    []shipper.Package   `json:"packages"`
	Options     shipper.RateOptions `json:"options"`
}

// RatesResult holds the responses of every carrier that answered and the
// failures of those that did not.
type RatesResult struct {
	RequestID string                  `json:"request_id"`
	Responses []*shipper.RateResponse `json:"responses"`
	Errors    []string                `json:"errors,omitempty"`
}

// TrackingRequest asks a carrier for tracking information.
type TrackingRequest struct {
	Carrier         string                  `json:"carrier"`
	TrackingNumber  string                  `json:"tracking_number,omitempty"`
	TrackingNumbers []string                `json:"tracking_numbers,omitempty"`
	Options         shipper.TrackingOptions `json:"options"`
}

// ShipmentRequest asks a carrier to book a shipment.
type ShipmentRequest struct {
	Carrier     string                  `json:"carrier"`
	Origin      shipper.Location        `json:"origin"`
	Destination shipper.Location        `json:"destination"`
	Package     shipper.Package         `json:"package"`
	Items       []shipper.PackageItem   `json:"items,omitempty"`
	Options     shipper.ShipmentOptions `json:"options"`
}

// ShipmentResult wraps a shipping response. Replayed is set when the result
// came from the idempotency store.
type ShipmentResult struct {
	*shipper.ShippingResponse
	Replayed bool `json:"replayed,omitempty"`
}

// ============================================================================
// Operations
// ============================================================================

// Carriers lists the registered carriers.
func (r *Resolver) Carriers(_ context.Context) []CarrierInfo {
	all := r.Registry.All()
	out := make([]CarrierInfo, 0, len(all))
	for _, c := range all {
		out = append(out, CarrierInfo{
			Name:         c.Name(),
			Capabilities: shipper.Capabilities(c),
			Requirements: c.Requirements(),
		})
	}
	return out
}

// Rates fetches rates. Carrier failures in a multi-carrier request are
// reported in the result; the call fails only when nobody answered.
func (r *Resolver) Rates(ctx context.Context, req RatesRequest) (*RatesResult, error) {
	result := &RatesResult{RequestID: uuid.NewString()}

	if req.Carrier != "" {
		start := time.Now()
		rf, err := r.Registry.RateFinder(req.Carrier)
		if err != nil {
			return nil, err
		}
		resp, err := rf.FindRates(ctx, req.Origin, req.Destination, req.Packages, req.Options)
		r.record("FindRates", req.Carrier, start, err)
		if err != nil {
			r.Logger.Ctx(ctx).Warn("Rate request failed",
				zap.String("request_id", result.RequestID),
				zap.String("carrier", req.Carrier),
				zap.Error(err),
			)
			return nil, err
		}
		result.Responses = []*shipper.RateResponse{resp}
		return result, nil
	}

	start := time.Now()
	responses, err := r.Registry.FindRatesFrom(ctx, shipper.RateRequest{
		Origin:      req.Origin,
		Destination: req.Destination,
		Packages:    req.Packages,
		Options:     req.Options,
	}, req.Carriers)
	r.record("FindRates", "all", start, err)

	result.Responses = responses
	if err != nil {
		var merr *multierror.Error
		if errors.As(err, &merr) {
			for _, e := range merr.Errors {
				result.Errors = append(result.Errors, e.Error())
			}
		} else {
			result.Errors = []string{err.Error()}
		}
		r.Logger.Ctx(ctx).Warn("Some carriers failed to quote",
			zap.String("request_id", result.RequestID),
			zap.Strings("errors", result.Errors),
		)
		if len(responses) == 0 {
			return nil, err
		}
	}
	return result, nil
}

// Track fetches tracking information. Several tracking numbers are sent in
// one request to carriers that support it and rejected by the others.
func (r *Resolver) Track(ctx context.Context, req TrackingRequest) (*shipper.TrackingResponse, error) {
	tracker, err := r.Registry.Tracker(req.Carrier)
	if err != nil {
		return nil, err
	}

	ids := req.TrackingNumbers
	if req.TrackingNumber != "" {
		ids = append([]string{req.TrackingNumber}, ids...)
	}
	if len(ids) == 0 {
		return nil, shipper.ValidationError(req.Carrier, "NO_TRACKING_NUMBERS", "a tracking number is required")
	}

	start := time.Now()
	var resp *shipper.TrackingResponse
	switch mt, ok := tracker.(multiTracker); {
	case len(ids) == 1:
		resp, err = tracker.FindTrackingInfo(ctx, ids[0], req.Options)
	case ok:
		resp, err = mt.FindTrackingInfoMany(ctx, ids, req.Options)
	default:
		err = fmt.Errorf("%w: %s tracks one shipment per request", shipper.ErrUnsupported, req.Carrier)
	}
	r.record("FindTrackingInfo", req.Carrier, start, err)
	if err != nil {
		r.Logger.Ctx(ctx).Warn("Tracking request failed", zap.String("carrier", req.Carrier), zap.Error(err))
		return nil, err
	}
	return resp, nil
}

// CreateShipment books a shipment. With an idempotency key and a store, a
// repeated request returns the first result instead of booking again.
func (r *Resolver) CreateShipment(ctx context.Context, req ShipmentRequest) (*ShipmentResult, error) {
	creator, err := r.Registry.ShipmentCreator(req.Carrier)
	if err != nil {
		return nil, err
	}

	key := req.Options.IdempotencyKey
	useStore := key != "" && r.Store != nil
	if useStore {
		prior, err := r.Store.Begin(ctx, req.Carrier, key)
		if err != nil {
			return nil, err
		}
		if prior != nil {
			r.Logger.Ctx(ctx).Info("Replaying shipment", zap.String("carrier", req.Carrier), zap.String("idempotency_key", key))
			if r.Metrics != nil {
				r.Metrics.RecordReplay(req.Carrier)
			}
			return &ShipmentResult{ShippingResponse: prior, Replayed: true}, nil
		}
	}

	start := time.Now()
	resp, err := creator.CreateShipment(ctx, req.Origin, req.Destination, req.Package, req.Items, req.Options)
	r.record("CreateShipment", req.Carrier, start, err)

	if useStore {
		// The booking outcome is recorded even if the caller has gone away.
		storeCtx := context.WithoutCancel(ctx)
		// Only successful bookings are remembered; anything else may be retried.
		if err != nil || !resp.Success {
			if relErr := r.Store.Release(storeCtx, req.Carrier, key); relErr != nil {
				r.Logger.Ctx(ctx).Error("Failed to release idempotency key", zap.String("idempotency_key", key), zap.Error(relErr))
			}
		} else if saveErr := r.Store.Save(storeCtx, req.Carrier, key, resp); saveErr != nil {
			r.Logger.Ctx(ctx).Error("Failed to store shipment result", zap.String("idempotency_key", key), zap.Error(saveErr))
		}
	}

	if err != nil {
		r.Logger.Ctx(ctx).Warn("Shipment request failed", zap.String("carrier", req.Carrier), zap.Error(err))
		return nil, err
	}
	return &ShipmentResult{ShippingResponse: resp}, nil
}

func (r *Resolver) record(operation, carrier string, start time.Time, err error) {
	if r.Metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
		r.Metrics.RecordError(carrier, errorType(err))
	}
	r.Metrics.RecordRequest(operation, carrier, status, time.Since(start).Seconds())
}

var _ IdempotencyStore = (*idempotency.Store)(nil)
