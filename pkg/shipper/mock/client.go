// Package mock provides a mock carrier implementation for testing.
package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/tournevent/carrierbridge/pkg/shipper"
)

// Client is a mock carrier for testing. It quotes two services, tracks any
// number and creates shipments without calling out.
type Client struct {
	name string

	// Err, when set, is returned by every operation.
	Err error

	// Now defaults to time.Now.
	Now func() time.Time
}

// New creates a new mock carrier.
func New(name string) *Client {
	return &Client{name: name, Now: time.Now}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return c.name
}

// Requirements returns no credential keys.
func (c *Client) Requirements() []string {
	return nil
}

// FindRates returns a standard and an express rate.
func (c *Client) FindRates(ctx context.Context, origin, destination shipper.Location, packages []shipper.Package, opts shipper.RateOptions) (*shipper.RateResponse, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	if err := shipper.ValidatePackages(c.name, packages); err != nil {
		return nil, err
	}
	now := c.Now()
	return &shipper.RateResponse{
		Response: shipper.NewResponse(true, "mock rates", nil, true, ""),
		Rates: []shipper.RateEstimate{
			{
				Carrier:       c.name,
				ServiceName:   c.name + " Standard",
				ServiceCode:   "STANDARD",
				TotalPrice:    15.82,
				Currency:      "USD",
				TransitDays:   5,
				DeliveryRange: shipper.EstimateDelivery(now, 3, 5),
				Packages:      packages,
			},
			{
				Carrier:       c.name,
				ServiceName:   c.name + " Express",
				ServiceCode:   "EXPRESS",
				TotalPrice:    29.95,
				Currency:      "USD",
				TransitDays:   2,
				DeliveryRange: shipper.EstimateDelivery(now, 2, 2),
				Packages:      packages,
			},
		},
	}, nil
}

// FindTrackingInfo returns a picked-up and a delivered event.
func (c *Client) FindTrackingInfo(ctx context.Context, id string, opts shipper.TrackingOptions) (*shipper.TrackingResponse, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	now := c.Now().UTC()
	events := shipper.SortEvents([]shipper.ShipmentEvent{
		{Name: "Delivered", Code: "DL", Time: now.Add(-time.Hour)},
		{Name: "Picked up", Code: "PU", Time: now.Add(-48 * time.Hour)},
	})
	return &shipper.TrackingResponse{
		Response:        shipper.NewResponse(true, "mock tracking", nil, true, ""),
		Carrier:         c.name,
		Status:          "Delivered",
		StatusCode:      "DL",
		TrackingNumber:  id,
		TrackingNumbers: []string{id},
		ShipmentEvents:  events,
	}, nil
}

// CreateShipment returns a tracking number and a label link.
func (c *Client) CreateShipment(ctx context.Context, origin, destination shipper.Location, pkg shipper.Package, items []shipper.PackageItem, opts shipper.ShipmentOptions) (*shipper.ShippingResponse, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	now := c.Now()
	trackingNumber := fmt.Sprintf("MOCK%d", now.UnixNano()%1000000000)
	format := opts.LabelFormat
	if format == "" {
		format = "PDF"
	}
	return &shipper.ShippingResponse{
		Response:       shipper.NewResponse(true, "mock shipment", nil, true, ""),
		Carrier:        c.name,
		TrackingNumber: trackingNumber,
		ShippingID:     fmt.Sprintf("%s-%d", c.name, now.UnixNano()),
		Label: &shipper.Label{
			TrackingNumber: trackingNumber,
			Format:         format,
			URL:            fmt.Sprintf("https://labels.%s.mock/%s.pdf", c.name, trackingNumber),
		},
		ShipmentCharges: 15.82,
		CurrencyCode:    "USD",
	}, nil
}

var (
	_ shipper.RateFinder      = (*Client)(nil)
	_ shipper.Tracker         = (*Client)(nil)
	_ shipper.ShipmentCreator = (*Client)(nil)
)
