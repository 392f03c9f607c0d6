package landmark

import (
	"encoding/xml"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/tournevent/carrierbridge/pkg/shipper"
)

const (
	shipmentCreatedMessage = "Successfully created shipment"
	trackingMessage        = "Successfully received package data"
)

var classifier = shipper.Classifier{
	Codes: map[string]shipper.ErrorKind{
		"101": shipper.KindAuthentication,
		"102": shipper.KindAuthentication,
		"201": shipper.KindValidation,
		"202": shipper.KindValidation,
		"203": shipper.KindValidation,
		"204": shipper.KindValidation,
		"205": shipper.KindValidation,
		"206": shipper.KindValidation,
		"301": shipper.KindBusiness,
	},
}

// Landmark reports US style dates without a zone.
var timeLayouts = []string{
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006 3:04 PM",
	"01/02/2006 03:04 PM",
	"01/02/2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ============================================================================
// Wire types
// ============================================================================

// APIError is a Landmark error entry.
type APIError struct {
	Code    string `xml:"ErrorCode"`
	Message string `xml:"ErrorMessage"`
}

type errorList struct {
	Errors []APIError `xml:"Errors>Error"`
}

// failure joins every reported error. The first code decides the kind.
func (l errorList) failure() (codes, messages string, kind shipper.ErrorKind, failed bool) {
	if len(l.Errors) == 0 {
		return "", "", "", false
	}
	codes = strings.Join(lo.Map(l.Errors, func(e APIError, _ int) string { return e.Code }), ",")
	messages = strings.Join(lo.Map(l.Errors, func(e APIError, _ int) string { return e.Message }), ",")
	first := l.Errors[0]
	return codes, messages, classifier.Classify(first.Code, first.Message), true
}

func (l errorList) check() (codes, messages string, err error) {
	codes, messages, kind, failed := l.failure()
	if !failed || kind == shipper.KindBusiness {
		return codes, messages, nil
	}
	return codes, messages, shipper.NewShipperError(carrierName, codes, messages).WithKind(kind)
}

// ShipResponse is the decoded shipment reply, kept as the raw payload.
type ShipResponse struct {
	XMLName xml.Name `xml:"ShipResponse"`
	errorList
	Packages []ShippedPackage `xml:"Result>Packages>Package"`
}

// ShippedPackage is a package booked by Landmark.
type ShippedPackage struct {
	PackageID      string `xml:"PackageID"`
	PackageRef     string `xml:"PackageReference"`
	TrackingNumber string `xml:"TrackingNumber"`
	LabelLink      string `xml:"LabelLink"`
	BarcodeData    string `xml:"BarcodeData"`
	SortCode       string `xml:"SortCode"`
}

// TrackResponse is the decoded tracking reply, kept as the raw payload.
type TrackResponse struct {
	XMLName xml.Name `xml:"TrackResponse"`
	errorList
	Packages []TrackedPackage `xml:"Result>Packages>Package"`
}

// TrackedPackage is the tracking state of one package.
type TrackedPackage struct {
	TrackingNumber   string  `xml:"TrackingNumber"`
	PackageReference string  `xml:"PackageReference"`
	ExpectedDelivery string  `xml:"ExpectedDelivery"`
	Events           []Event `xml:"Events>Event"`
}

// Event is a Landmark tracking event.
type Event struct {
	Status   string `xml:"Status"`
	DateTime string `xml:"DateTime"`
	Location string `xml:"Location"`
}

// ShipmentGroupResponse is the decoded shipment group reply.
type ShipmentGroupResponse struct {
	XMLName xml.Name `xml:"CreateShipmentGroupResponse"`
	errorList
	ResultMessage     string   `xml:"Result>ResultMessage"`
	NumberOfShipments int      `xml:"Result>NumberOfShipments"`
	GroupIDs          []string `xml:"ShipmentGroups>ShipmentGroup>ID"`
}

// ============================================================================
// Parsers
// ============================================================================

func decode(body []byte, v any) error {
	if err := xml.Unmarshal(body, v); err != nil {
		return shipper.NewShipperError(carrierName, "INVALID_RESPONSE", "unreadable reply").WithCause(err)
	}
	return nil
}

func parseShipResponse(body []byte, test bool, lastRequest string, labelFormat string) (*shipper.ShippingResponse, error) {
	var reply ShipResponse
	if err := decode(body, &reply); err != nil {
		return nil, err
	}
	_, messages, err := reply.check()
	if err != nil {
		return nil, err
	}
	if len(reply.Errors) > 0 {
		return &shipper.ShippingResponse{
			Response: shipper.NewResponse(false, messages, reply, test, lastRequest),
			Carrier:  carrierName,
		}, nil
	}

	resp := &shipper.ShippingResponse{
		Response: shipper.NewResponse(true, shipmentCreatedMessage, reply, test, lastRequest),
		Carrier:  carrierName,
	}
	if len(reply.Packages) == 0 {
		return resp, nil
	}
	pkg := reply.Packages[0]
	resp.TrackingNumber = pkg.TrackingNumber
	resp.ShippingID = pkg.PackageID
	resp.BarcodeData = pkg.BarcodeData
	resp.SortCode = pkg.SortCode
	if pkg.LabelLink != "" {
		resp.Label = &shipper.Label{
			TrackingNumber: pkg.TrackingNumber,
			Format:         labelFormat,
			URL:            pkg.LabelLink,
		}
	}
	return resp, nil
}

func parseTrackResponse(body []byte, test bool, lastRequest string) (*shipper.TrackingResponse, error) {
	var reply TrackResponse
	if err := decode(body, &reply); err != nil {
		return nil, err
	}
	codes, messages, err := reply.check()
	if err != nil {
		return nil, err
	}
	if len(reply.Errors) > 0 {
		return &shipper.TrackingResponse{
			Response:          shipper.NewResponse(false, messages, reply, test, lastRequest),
			Carrier:           carrierName,
			StatusCode:        codes,
			StatusDescription: messages,
			ShipmentEvents:    []shipper.ShipmentEvent{},
		}, nil
	}

	events := lo.FlatMap(reply.Packages, func(p TrackedPackage, _ int) []shipper.ShipmentEvent {
		// Events without a readable timestamp cannot be ordered and are dropped.
		return lo.FilterMap(p.Events, func(ev Event, _ int) (shipper.ShipmentEvent, bool) {
			t, ok := parseTime(ev.DateTime)
			return shipper.ShipmentEvent{
				Name:     ev.Status,
				Time:     t,
				Location: eventLocation(ev.Location),
				Data:     ev,
			}, ok
		})
	})

	resp := &shipper.TrackingResponse{
		Response:        shipper.NewResponse(true, trackingMessage, reply, test, lastRequest),
		Carrier:         carrierName,
		TrackingNumbers: lo.Compact(lo.Map(reply.Packages, func(p TrackedPackage, _ int) string { return p.TrackingNumber })),
		ShipmentEvents:  shipper.SortEvents(events),
	}
	if len(resp.TrackingNumbers) > 0 {
		resp.TrackingNumber = resp.TrackingNumbers[0]
	}

	deliveries := lo.FilterMap(reply.Packages, func(p TrackedPackage, _ int) (time.Time, bool) {
		return parseTime(p.ExpectedDelivery)
	})
	if len(deliveries) > 0 {
		latest := lo.MaxBy(deliveries, func(a, b time.Time) bool { return a.After(b) })
		resp.ScheduledDeliveryDate = &latest
	}

	if latest, ok := resp.LatestEvent(); ok {
		resp.Status = latest.Name
		resp.StatusDescription = latest.Name
	}
	return resp, nil
}

func parseShipmentGroupResponse(body []byte, test bool, lastRequest string) (*shipper.ShippingResponse, error) {
	var reply ShipmentGroupResponse
	if err := decode(body, &reply); err != nil {
		return nil, err
	}
	_, messages, err := reply.check()
	if err != nil {
		return nil, err
	}
	if len(reply.Errors) > 0 {
		return &shipper.ShippingResponse{
			Response: shipper.NewResponse(false, messages, reply, test, lastRequest),
			Carrier:  carrierName,
		}, nil
	}
	return &shipper.ShippingResponse{
		Response:          shipper.NewResponse(true, reply.ResultMessage, reply, test, lastRequest),
		Carrier:           carrierName,
		ShippingIDs:       reply.GroupIDs,
		NumberOfShipments: reply.NumberOfShipments,
	}, nil
}

// parseTime reads a zoneless Landmark timestamp as UTC.
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// eventLocation splits "City, ST" or "City, ST, Country".
func eventLocation(s string) shipper.Location {
	parts := lo.Map(strings.Split(s, ","), func(p string, _ int) string { return strings.TrimSpace(p) })
	loc := shipper.Location{City: parts[0]}
	if len(parts) > 1 {
		loc.Province = parts[1]
	}
	if len(parts) > 2 {
		loc.Country = parts[2]
	}
	return loc
}
