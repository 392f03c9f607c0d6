package shipper

import (
	"time"
)

// DefaultFailureMessage is used when a carrier reports a failure without a message.
const DefaultFailureMessage = "Unknown carrier error"

// Response is the outcome of any carrier call.
type Response struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	RawPayload  any    `json:"-"`
	Test        bool   `json:"test"`
	LastRequest string `json:"-"`
}

// NewResponse builds a Response. A failed response always carries a message.
func NewResponse(success bool, message string, raw any, test bool, lastRequest string) Response {
	if !success && message == "" {
		message = DefaultFailureMessage
	}
	return Response{
		Success:     success,
		Message:     message,
		RawPayload:  raw,
		Test:        test,
		LastRequest: lastRequest,
	}
}

// RateResponse carries rate estimates.
type RateResponse struct {
	Response
	Rates []RateEstimate `json:"rates,omitempty"`
}

// TrackingResponse carries the tracking state of one or more packages.
type TrackingResponse struct {
	Response
	Carrier               string          `json:"carrier"`
	Status                string          `json:"status,omitempty"`
	StatusCode            string          `json:"status_code,omitempty"`
	StatusDescription     string          `json:"status_description,omitempty"`
	TrackingNumber        string          `json:"tracking_number,omitempty"`
	TrackingNumbers       []string        `json:"tracking_numbers,omitempty"`
	ServiceName           string          `json:"service_name,omitempty"`
	ShipmentEvents        []ShipmentEvent `json:"shipment_events"`
	Origin                *Location       `json:"origin,omitempty"`
	Destination           *Location       `json:"destination,omitempty"`
	ScheduledDeliveryDate *time.Time      `json:"scheduled_delivery_date,omitempty"`
	DeliverySignature     string          `json:"delivery_signature,omitempty"`
}

// LatestEvent returns the most recent event, if any.
func (r *TrackingResponse) LatestEvent() (ShipmentEvent, bool) {
	if len(r.ShipmentEvents) == 0 {
		return ShipmentEvent{}, false
	}
	return r.ShipmentEvents[len(r.ShipmentEvents)-1], true
}

// ShippingResponse carries the result of a shipment creation.
type ShippingResponse struct {
	Response
	Carrier           string   `json:"carrier"`
	TrackingNumber    string   `json:"tracking_number,omitempty"`
	ShippingID        string   `json:"shipping_id,omitempty"`
	ShippingIDs       []string `json:"shipping_ids,omitempty"`
	Label             *Label   `json:"label,omitempty"`
	ShipmentCharges   float64  `json:"shipment_charges,omitempty"`
	CurrencyCode      string   `json:"currency_code,omitempty"`
	BarcodeData       string   `json:"barcode_data,omitempty"`
	SortCode          string   `json:"sort_code,omitempty"`
	NumberOfShipments int      `json:"number_of_shipments,omitempty"`
}

// ValidationResponse carries the result of an address validation.
type ValidationResponse struct {
	Response
	Score   int       `json:"score"`
	Address *Location `json:"address,omitempty"`
	Changes []string  `json:"changes,omitempty"`
}
