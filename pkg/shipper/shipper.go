// Package shipper provides an abstraction layer for shipping carriers.
package shipper

import (
	"context"
)

// Carrier is implemented by every carrier adapter.
type Carrier interface {
	// Name returns the carrier identifier (e.g., "dhl", "fedex", "landmark", "ontrac").
	Name() string

	// Requirements returns the credential keys the adapter must be configured with.
	Requirements() []string
}

// RateFinder is implemented by carriers that quote shipping rates.
type RateFinder interface {
	Carrier

	// FindRates returns the priced shipping options for the given packages.
	FindRates(ctx context.Context, origin, destination Location, packages []Package, opts RateOptions) (*RateResponse, error)
}

// Tracker is implemented by carriers that report tracking milestones.
type Tracker interface {
	Carrier

	// FindTrackingInfo returns the tracking state of a shipment.
	FindTrackingInfo(ctx context.Context, id string, opts TrackingOptions) (*TrackingResponse, error)
}

// ShipmentCreator is implemented by carriers that book shipments and issue labels.
type ShipmentCreator interface {
	Carrier

	// CreateShipment books a shipment. It is side-effecting and must not be
	// retried blindly.
	CreateShipment(ctx context.Context, origin, destination Location, pkg Package, items []PackageItem, opts ShipmentOptions) (*ShippingResponse, error)
}

// AddressValidator is implemented by carriers that can validate addresses.
type AddressValidator interface {
	Carrier

	ValidateAddress(ctx context.Context, loc Location, opts ValidationOptions) (*ValidationResponse, error)
}

// Transport performs synchronous HTTP exchanges on behalf of an adapter.
// Implementations return *TransportError for non-2xx responses, with the
// response body attached so adapters can parse carrier error envelopes.
type Transport interface {
	Get(ctx context.Context, url string, headers map[string]string) ([]byte, error)
	Post(ctx context.Context, url string, body []byte, headers map[string]string) ([]byte, error)
}

// Capabilities lists the operations a carrier supports.
func Capabilities(c Carrier) []string {
	caps := make([]string, 0, 4)
	if _, ok := c.(RateFinder); ok {
		caps = append(caps, "rates")
	}
	if _, ok := c.(Tracker); ok {
		caps = append(caps, "tracking")
	}
	if _, ok := c.(ShipmentCreator); ok {
		caps = append(caps, "shipments")
	}
	if _, ok := c.(AddressValidator); ok {
		caps = append(caps, "address_validation")
	}
	return caps
}
