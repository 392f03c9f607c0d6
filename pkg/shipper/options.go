package shipper

import (
	"context"
	"time"
)

// RateOptions are optional inputs for FindRates. Carriers ignore fields they
// do not support.
type RateOptions struct {
	// Shipper is the billing party when it differs from the origin.
	Shipper *Location

	ServiceType      string
	DropoffType      string
	PackagingType    string
	SaturdayDelivery bool
	Residential      bool
	COD              float64

	// TurnAroundHours delays the ship date used for delivery estimates.
	TurnAroundHours int

	// PackageID identifies the package on carriers that echo it back.
	PackageID string
}

// TrackingOptions are optional inputs for FindTrackingInfo.
type TrackingOptions struct {
	// IdentifierType selects how the identifier is interpreted (FedEx).
	IdentifierType string

	// ByReference looks the shipment up by customer reference (Landmark).
	ByReference bool

	// IncludeHistory requests historical events (Landmark).
	IncludeHistory bool

	// Details requests shipment details instead of tracking events (OnTrac).
	Details bool

	ShipDateRangeBegin time.Time
	ShipDateRangeEnd   time.Time
}

// ShipmentOptions are optional inputs for CreateShipment.
type ShipmentOptions struct {
	Shipper *Location

	ServiceType   string
	PaymentType   string
	DropoffType   string
	PackagingType string
	LabelFormat   string
	Reference     string

	// IdempotencyKey allows transport-level retries of the creation call.
	IdempotencyKey string

	SignatureRequired bool
	SaturdayDelivery  bool
	Residential       bool
	COD               float64
	CODType           string
	Instructions      string
	BillTo            string
	ShipDate          time.Time

	// ShipmentID overrides the generated client-side shipment identifier.
	ShipmentID string

	SmartPostHubID   string
	SmartPostIndicia string
}

// ValidationOptions are optional inputs for ValidateAddress.
type ValidationOptions struct {
	RequestTimestamp time.Time
}

type readOnlyKey struct{}

// ReadOnly marks ctx as carrying a request with no side effects, which
// transports may retry even when sent as a POST.
func ReadOnly(ctx context.Context) context.Context {
	return context.WithValue(ctx, readOnlyKey{}, true)
}

// IsReadOnly reports whether ctx was marked with ReadOnly.
func IsReadOnly(ctx context.Context) bool {
	v, _ := ctx.Value(readOnlyKey{}).(bool)
	return v
}

// IdempotencyHeader carries the caller supplied idempotency key.
const IdempotencyHeader = "Idempotency-Key"
