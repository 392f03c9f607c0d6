package api_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/carrierbridge/internal/api"
	"github.com/tournevent/carrierbridge/internal/idempotency"
	"github.com/tournevent/carrierbridge/internal/telemetry"
	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/mock"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

var (
	origin      = shipper.Location{Name: "Warehouse", PostalCode: "90210", Country: "US"}
	destination = shipper.Location{Name: "Jane Doe", PostalCode: "94105", Country: "US"}
	box         = shipper.Package{Weight: 2.5, Length: 10, Width: 6, Height: 4, Units: shipper.Imperial}
)

// countingCreator counts bookings made through the mock carrier.
type countingCreator struct {
	*mock.Client
	calls int
	fail  error
	// afterBooking runs once the carrier has accepted the shipment.
	afterBooking func()
}

func (c *countingCreator) CreateShipment(ctx context.Context, o, d shipper.Location, p shipper.Package, items []shipper.PackageItem, opts shipper.ShipmentOptions) (*shipper.ShippingResponse, error) {
	c.calls++
	if c.fail != nil {
		return nil, c.fail
	}
	resp, err := c.Client.CreateShipment(ctx, o, d, p, items, opts)
	if c.afterBooking != nil {
		c.afterBooking()
	}
	return resp, err
}

// singleTracker tracks one shipment per request.
type singleTracker struct{ name string }

func (s singleTracker) Name() string           { return s.name }
func (s singleTracker) Requirements() []string { return []string{"username"} }
func (s singleTracker) FindTrackingInfo(_ context.Context, id string, _ shipper.TrackingOptions) (*shipper.TrackingResponse, error) {
	return &shipper.TrackingResponse{Carrier: s.name, TrackingNumber: id}, nil
}

// manyTracker also tracks several shipments at once.
type manyTracker struct{ singleTracker }

func (m manyTracker) FindTrackingInfoMany(_ context.Context, ids []string, _ shipper.TrackingOptions) (*shipper.TrackingResponse, error) {
	return &shipper.TrackingResponse{Carrier: m.name, TrackingNumbers: ids}, nil
}

func newTestResolver(t *testing.T, store api.IdempotencyStore, carriers ...shipper.Carrier) *api.Resolver {
	t.Helper()
	registry := shipper.NewRegistry()
	for _, c := range carriers {
		registry.Register(c)
	}
	return api.NewResolver(registry, store, otelzap.New(zap.NewNop()), telemetry.NewMetrics(prometheus.NewRegistry()))
}

func newStore(t *testing.T) *idempotency.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := idempotency.New(context.Background(), idempotency.Config{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestResolver_Carriers(t *testing.T) {
	resolver := newTestResolver(t, nil, mock.New("fedex"), singleTracker{name: "landmark"})

	carriers := resolver.Carriers(context.Background())
	require.Len(t, carriers, 2)
	assert.Equal(t, api.CarrierInfo{Name: "fedex", Capabilities: []string{"rates", "tracking", "shipments"}}, carriers[0])
	assert.Equal(t, "landmark", carriers[1].Name)
	assert.Equal(t, []string{"tracking"}, carriers[1].Capabilities)
	assert.Equal(t, []string{"username"}, carriers[1].Requirements)
}

func TestResolver_Rates_SingleCarrier(t *testing.T) {
	resolver := newTestResolver(t, nil, mock.New("fedex"), mock.New("ontrac"))

	result, err := resolver.Rates(context.Background(), api.RatesRequest{
		Carrier:     "ontrac",
		Origin:      origin,
		Destination: destination,
		Packages:    []shipper.Package{box},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.RequestID)
	require.Len(t, result.Responses, 1)
	assert.Equal(t, "ontrac", result.Responses[0].Rates[0].Carrier)
	assert.Empty(t, result.Errors)
}

func TestResolver_Rates_SingleCarrierErrors(t *testing.T) {
	resolver := newTestResolver(t, nil, mock.New("fedex"), singleTracker{name: "landmark"})

	_, err := resolver.Rates(context.Background(), api.RatesRequest{Carrier: "ups", Packages: []shipper.Package{box}})
	assert.True(t, errors.Is(err, shipper.ErrCarrierNotFound))

	_, err = resolver.Rates(context.Background(), api.RatesRequest{Carrier: "landmark", Packages: []shipper.Package{box}})
	assert.True(t, errors.Is(err, shipper.ErrUnsupported))

	_, err = resolver.Rates(context.Background(), api.RatesRequest{Carrier: "fedex"})
	assert.True(t, errors.Is(err, shipper.ErrValidation), "packages are required")
}

func TestResolver_Rates_AllCarriersPartialFailure(t *testing.T) {
	failing := mock.New("dhl")
	failing.Err = shipper.AuthenticationError("dhl", "401", "bad key")
	resolver := newTestResolver(t, nil, failing, mock.New("fedex"))

	result, err := resolver.Rates(context.Background(), api.RatesRequest{
		Origin:      origin,
		Destination: destination,
		Packages:    []shipper.Package{box},
	})
	require.NoError(t, err)
	require.Len(t, result.Responses, 1)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "dhl:")
}

func TestResolver_Rates_AllCarriersFail(t *testing.T) {
	failing := mock.New("dhl")
	failing.Err = shipper.AuthenticationError("dhl", "401", "bad key")
	resolver := newTestResolver(t, nil, failing)

	_, err := resolver.Rates(context.Background(), api.RatesRequest{Packages: []shipper.Package{box}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrAuthentication))
}

func TestResolver_Track(t *testing.T) {
	resolver := newTestResolver(t, nil, singleTracker{name: "landmark"}, manyTracker{singleTracker{name: "ontrac"}})

	resp, err := resolver.Track(context.Background(), api.TrackingRequest{Carrier: "landmark", TrackingNumber: "LTN1"})
	require.NoError(t, err)
	assert.Equal(t, "LTN1", resp.TrackingNumber)

	resp, err = resolver.Track(context.Background(), api.TrackingRequest{Carrier: "ontrac", TrackingNumber: "D1", TrackingNumbers: []string{"D2"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"D1", "D2"}, resp.TrackingNumbers)

	_, err = resolver.Track(context.Background(), api.TrackingRequest{Carrier: "landmark", TrackingNumbers: []string{"A", "B"}})
	assert.True(t, errors.Is(err, shipper.ErrUnsupported))

	_, err = resolver.Track(context.Background(), api.TrackingRequest{Carrier: "landmark"})
	assert.True(t, errors.Is(err, shipper.ErrValidation))
}

func TestResolver_CreateShipment_WithoutStore(t *testing.T) {
	creator := &countingCreator{Client: mock.New("ontrac")}
	resolver := newTestResolver(t, nil, creator)

	req := api.ShipmentRequest{Carrier: "ontrac", Origin: origin, Destination: destination, Package: box,
		Options: shipper.ShipmentOptions{IdempotencyKey: "key-1"}}

	for range 2 {
		result, err := resolver.CreateShipment(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, result.Replayed)
	}
	assert.Equal(t, 2, creator.calls)
}

func TestResolver_CreateShipment_Replay(t *testing.T) {
	creator := &countingCreator{Client: mock.New("ontrac")}
	resolver := newTestResolver(t, newStore(t), creator)

	req := api.ShipmentRequest{Carrier: "ontrac", Origin: origin, Destination: destination, Package: box,
		Options: shipper.ShipmentOptions{IdempotencyKey: "key-1"}}

	first, err := resolver.CreateShipment(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := resolver.CreateShipment(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.TrackingNumber, second.TrackingNumber)
	assert.Equal(t, 1, creator.calls, "the carrier is booked once")

	req.Options.IdempotencyKey = ""
	_, err = resolver.CreateShipment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, creator.calls, "requests without a key are never deduplicated")
}

func TestResolver_CreateShipment_SavesAfterCallerCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	creator := &countingCreator{Client: mock.New("ontrac"), afterBooking: cancel}
	resolver := newTestResolver(t, newStore(t), creator)

	req := api.ShipmentRequest{Carrier: "ontrac", Origin: origin, Destination: destination, Package: box,
		Options: shipper.ShipmentOptions{IdempotencyKey: "key-3"}}

	first, err := resolver.CreateShipment(ctx, req)
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	second, err := resolver.CreateShipment(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.TrackingNumber, second.TrackingNumber)
	assert.Equal(t, 1, creator.calls)
}

func TestResolver_CreateShipment_FailureReleasesKey(t *testing.T) {
	creator := &countingCreator{Client: mock.New("ontrac"), fail: &shipper.TransportError{Method: "POST", URL: "u", StatusCode: 502}}
	resolver := newTestResolver(t, newStore(t), creator)

	req := api.ShipmentRequest{Carrier: "ontrac", Package: box, Options: shipper.ShipmentOptions{IdempotencyKey: "key-2"}}

	_, err := resolver.CreateShipment(context.Background(), req)
	require.Error(t, err)

	creator.fail = nil
	result, err := resolver.CreateShipment(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, result.Replayed)
	assert.Equal(t, 2, creator.calls)
}

func TestResolver_CreateShipment_Unsupported(t *testing.T) {
	resolver := newTestResolver(t, nil, singleTracker{name: "dhl"})

	_, err := resolver.CreateShipment(context.Background(), api.ShipmentRequest{Carrier: "dhl"})
	assert.True(t, errors.Is(err, shipper.ErrUnsupported))
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{shipper.ValidationError("fedex", "521", "bad zip"), http.StatusBadRequest},
		{shipper.AuthenticationError("dhl", "MAX_RETRIES", shipper.MaxRetriesMessage), http.StatusUnauthorized},
		{shipper.ConfigurationError("dhl", "missing"), http.StatusInternalServerError},
		{&shipper.TransportError{Method: "GET", URL: "u", StatusCode: 503}, http.StatusBadGateway},
		{shipper.NewShipperError("fedex", "7777", "odd"), http.StatusBadGateway},
		{shipper.ErrCarrierNotFound, http.StatusNotFound},
		{shipper.ErrUnsupported, http.StatusNotImplemented},
		{idempotency.ErrInProgress, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, api.StatusCode(tt.err), tt.err.Error())
	}
}
