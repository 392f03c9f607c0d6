package shipper_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/mock"
)

// trackOnly implements Tracker but not RateFinder.
type trackOnly struct{ name string }

func (t trackOnly) Name() string           { return t.name }
func (t trackOnly) Requirements() []string { return nil }
func (t trackOnly) FindTrackingInfo(context.Context, string, shipper.TrackingOptions) (*shipper.TrackingResponse, error) {
	return &shipper.TrackingResponse{Carrier: t.name}, nil
}

var rateRequest = shipper.RateRequest{
	Origin:      shipper.Location{PostalCode: "90210", Country: "US"},
	Destination: shipper.Location{PostalCode: "94105", Country: "US"},
	Packages:    []shipper.Package{{Weight: 5, Length: 10, Width: 10, Height: 10, Units: shipper.Imperial}},
}

func TestRegistry_Register(t *testing.T) {
	registry := shipper.NewRegistry()

	registry.Register(mock.New("test-carrier"))

	got, err := registry.Get("test-carrier")
	require.NoError(t, err, "carrier should be registered")
	assert.Equal(t, "test-carrier", got.Name())
}

func TestRegistry_Register_Override(t *testing.T) {
	registry := shipper.NewRegistry()

	registry.Register(mock.New("test-carrier"))
	assert.Equal(t, 1, registry.Count())

	// Register again with same name should override
	registry.Register(mock.New("test-carrier"))
	assert.Equal(t, 1, registry.Count())
}

func TestRegistry_Get_NotFound(t *testing.T) {
	registry := shipper.NewRegistry()

	_, err := registry.Get("nonexistent")
	assert.Error(t, err, "should return error for unregistered carrier")
	assert.True(t, errors.Is(err, shipper.ErrCarrierNotFound))
}

func TestRegistry_Names(t *testing.T) {
	registry := shipper.NewRegistry()

	registry.Register(mock.New("ontrac"))
	registry.Register(mock.New("dhl"))
	registry.Register(mock.New("fedex"))

	assert.Equal(t, []string{"dhl", "fedex", "ontrac"}, registry.Names())
	assert.Len(t, registry.All(), 3)
}

func TestRegistry_Capabilities(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("fedex"))
	registry.Register(trackOnly{name: "landmark"})

	_, err := registry.RateFinder("fedex")
	assert.NoError(t, err)

	_, err = registry.RateFinder("landmark")
	assert.True(t, errors.Is(err, shipper.ErrUnsupported))

	_, err = registry.ShipmentCreator("landmark")
	assert.True(t, errors.Is(err, shipper.ErrUnsupported))

	tracker, err := registry.Tracker("landmark")
	require.NoError(t, err)
	assert.Equal(t, "landmark", tracker.Name())

	_, err = registry.Tracker("ups")
	assert.True(t, errors.Is(err, shipper.ErrCarrierNotFound))
}

func TestCapabilities(t *testing.T) {
	assert.Equal(t, []string{"rates", "tracking", "shipments"}, shipper.Capabilities(mock.New("fedex")))
	assert.Equal(t, []string{"tracking"}, shipper.Capabilities(trackOnly{name: "landmark"}))
}

func TestRegistry_FindAllRates(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("fedex"))
	registry.Register(mock.New("ontrac"))
	registry.Register(trackOnly{name: "landmark"})

	results, err := registry.FindAllRates(context.Background(), rateRequest)
	require.NoError(t, err)
	require.Len(t, results, 2, "only rate finders are queried")
	assert.Equal(t, "fedex", results[0].Rates[0].Carrier)
	assert.Equal(t, "ontrac", results[1].Rates[0].Carrier)
}

func TestRegistry_FindAllRates_Empty(t *testing.T) {
	registry := shipper.NewRegistry()

	results, err := registry.FindAllRates(context.Background(), rateRequest)
	assert.Empty(t, results)
	assert.True(t, errors.Is(err, shipper.ErrCarrierNotFound))
}

func TestRegistry_FindRatesFrom_Subset(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("dhl"))
	registry.Register(mock.New("fedex"))
	registry.Register(mock.New("ontrac"))

	results, err := registry.FindRatesFrom(context.Background(), rateRequest, []string{"ontrac", "dhl"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "ontrac", results[0].Rates[0].Carrier)
	assert.Equal(t, "dhl", results[1].Rates[0].Carrier)
}

func TestRegistry_FindRatesFrom_EmptyCarriers(t *testing.T) {
	registry := shipper.NewRegistry()
	registry.Register(mock.New("dhl"))
	registry.Register(mock.New("fedex"))

	results, err := registry.FindRatesFrom(context.Background(), rateRequest, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2, "should query all carriers when no names are given")
}

func TestRegistry_FindRatesFrom_PartialFailure(t *testing.T) {
	registry := shipper.NewRegistry()
	failing := mock.New("dhl")
	failing.Err = shipper.AuthenticationError("dhl", "401", "bad key")
	registry.Register(failing)
	registry.Register(mock.New("fedex"))

	results, err := registry.FindRatesFrom(context.Background(), rateRequest, []string{"dhl", "fedex", "nonexistent"})
	require.Len(t, results, 1)
	assert.Equal(t, "fedex", results[0].Rates[0].Carrier)

	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrAuthentication))
	assert.True(t, errors.Is(err, shipper.ErrCarrierNotFound))
	assert.Contains(t, err.Error(), "dhl:")
}
