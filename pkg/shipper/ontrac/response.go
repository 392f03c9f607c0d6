package ontrac

import (
	"encoding/base64"
	"encoding/xml"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/tournevent/carrierbridge/pkg/shipper"
)

const (
	rateMessage     = "Successfully Retrieved rate"
	shipmentMessage = "Successfully created shipment"
	trackingMessage = "Successfully retrieved tracking info"
	detailsMessage  = "Successfully retrieved shipment details"
	zipsMessage     = "Successfully Retrieved zips"

	// errorCode is reported for OnTrac errors, which carry no code.
	errorCode = "ERROR"
)

var services = map[string]string{
	"S": "Sunrise",
	"G": "Gold",
	"H": "Palletized Freight",
	"C": "OnTrac Ground",
}

// ServiceName returns the display name of an OnTrac service code.
func ServiceName(code string) string {
	return services[strings.TrimSpace(code)]
}

// OnTrac reports errors as free text only.
var classifier = shipper.Classifier{
	Match: shipper.MessageContains([]shipper.KeywordKind{
		{Keyword: "password", Kind: shipper.KindAuthentication},
		{Keyword: "account", Kind: shipper.KindAuthentication},
		{Keyword: "unauthorized", Kind: shipper.KindAuthentication},
		{Keyword: "not found", Kind: shipper.KindBusiness},
		{Keyword: "no data", Kind: shipper.KindBusiness},
		{Keyword: "no rates", Kind: shipper.KindBusiness},
		{Keyword: "invalid", Kind: shipper.KindValidation},
		{Keyword: "zip", Kind: shipper.KindValidation},
	}),
}

// ============================================================================
// Wire types
// ============================================================================

// RateReply is the decoded rate reply, kept as the raw payload.
type RateReply struct {
	XMLName   xml.Name        `xml:"OnTracRateResponse"`
	Error     string          `xml:"Error"`
	Shipments []RatedShipment `xml:"Shipments>Shipment"`
}

// RatedShipment holds the quotes for one package.
type RatedShipment struct {
	UID   string `xml:"UID"`
	Error string `xml:"Error"`
	Rates []Rate `xml:"Rates>Rate"`
}

// Rate is an OnTrac service quote.
type Rate struct {
	Service     string  `xml:"Service"`
	ServiceChrg float64 `xml:"ServiceChrg"`
	FuelCharge  float64 `xml:"FuelCharge"`
	TotalCharge float64 `xml:"TotalCharge"`
	TransitDays int     `xml:"TransitDays"`
	GlobalRate  float64 `xml:"GlobalRate"`
}

// ShipmentReply is the decoded shipment reply, kept as the raw payload.
type ShipmentReply struct {
	XMLName   xml.Name `xml:"OnTracShipmentResponse"`
	Error     string   `xml:"Error"`
	Shipments []struct {
		UID       string  `xml:"UID"`
		Tracking  string  `xml:"Tracking"`
		Error     string  `xml:"Error"`
		Label     string  `xml:"Label"`
		SortCode  string  `xml:"SortCode"`
		TotalChrg float64 `xml:"TotalChrg"`
	} `xml:"Shipments>Shipment"`
}

// TrackingReply is the decoded tracking or details reply, kept as the raw payload.
type TrackingReply struct {
	XMLName   xml.Name
	Error     string            `xml:"Error"`
	Logo      string            `xml:"Logo"`
	Shipments []TrackedShipment `xml:"Shipments>Shipment"`
}

// TrackedShipment is the tracking state of one OnTrac shipment.
type TrackedShipment struct {
	Tracking   string  `xml:"Tracking"`
	Error      string  `xml:"Error"`
	Service    string  `xml:"Service"`
	Name       string  `xml:"Name"`
	Addr1      string  `xml:"Addr1"`
	City       string  `xml:"City"`
	State      string  `xml:"State"`
	Zip        string  `xml:"Zip"`
	Signature  string  `xml:"Signature"`
	ExpDelDate string  `xml:"Exp_Del_Date"`
	Events     []Event `xml:"Events>Event"`
}

// Event is an OnTrac tracking event.
type Event struct {
	Status      string `xml:"Status"`
	Description string `xml:"Description"`
	EventTime   string `xml:"EventTime"`
	Facility    string `xml:"Facility"`
	City        string `xml:"City"`
	State       string `xml:"State"`
	Zip         string `xml:"Zip"`
}

type zipField struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// ZipsReply is the decoded service-area reply.
type ZipsReply struct {
	XMLName xml.Name `xml:"OnTracZipResponse"`
	Error   string   `xml:"Error"`
	Zips    []struct {
		Fields []zipField `xml:",any"`
	} `xml:"Zips>Zip"`
}

// ZipsResponse lists the zip codes OnTrac serves, keyed by zip code. Each
// entry holds the remaining attributes OnTrac reports for the zip.
type ZipsResponse struct {
	shipper.Response
	Zips map[string]map[string]string `json:"zips"`
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

// firstError returns the envelope error or the first per-shipment error.
func firstError(top string, perShipment ...string) string {
	if msg := strings.TrimSpace(top); msg != "" {
		return msg
	}
	for _, msg := range perShipment {
		if msg = strings.TrimSpace(msg); msg != "" {
			return msg
		}
	}
	return ""
}

func parseRateResponse(body []byte, shipDate time.Time, packages []shipper.Package, test bool, lastRequest string) (*shipper.RateResponse, error) {
	var reply RateReply
	if err := decode(body, &reply); err != nil {
		return nil, err
	}
	shipmentErrors := lo.Map(reply.Shipments, func(s RatedShipment, _ int) string { return s.Error })
	if msg := firstError(reply.Error, shipmentErrors...); msg != "" {
		if err := classifier.Check(carrierName, errorCode, msg); err != nil {
			return nil, err
		}
		return &shipper.RateResponse{Response: shipper.NewResponse(false, msg, reply, test, lastRequest)}, nil
	}

	var rates []shipper.RateEstimate
	for _, s := range reply.Shipments {
		for _, r := range s.Rates {
			code := strings.TrimSpace(r.Service)
			rates = append(rates, shipper.RateEstimate{
				Carrier:       carrierName,
				ServiceName:   ServiceName(code),
				ServiceCode:   code,
				TotalPrice:    r.TotalCharge,
				Currency:      "USD",
				ServiceCharge: r.ServiceChrg,
				FuelCharge:    r.FuelCharge,
				TransitDays:   r.TransitDays,
				DeliveryRange: shipper.EstimateDelivery(shipDate, r.TransitDays, r.TransitDays),
				Packages:      packages,
			})
		}
	}
	return &shipper.RateResponse{
		Response: shipper.NewResponse(true, rateMessage, reply, test, lastRequest),
		Rates:    rates,
	}, nil
}

func parseShipmentResponse(body []byte, labelFormat string, test bool, lastRequest string) (*shipper.ShippingResponse, error) {
	var reply ShipmentReply
	if err := decode(body, &reply); err != nil {
		return nil, err
	}
	var shipmentError string
	if len(reply.Shipments) > 0 {
		shipmentError = reply.Shipments[0].Error
	}
	if msg := firstError(reply.Error, shipmentError); msg != "" {
		if err := classifier.Check(carrierName, errorCode, msg); err != nil {
			return nil, err
		}
		return &shipper.ShippingResponse{
			Response: shipper.NewResponse(false, msg, reply, test, lastRequest),
			Carrier:  carrierName,
		}, nil
	}

	resp := &shipper.ShippingResponse{
		Response: shipper.NewResponse(true, shipmentMessage, reply, test, lastRequest),
		Carrier:  carrierName,
	}
	if len(reply.Shipments) == 0 {
		return resp, nil
	}
	s := reply.Shipments[0]
	resp.TrackingNumber = s.Tracking
	resp.ShippingID = s.UID
	resp.SortCode = s.SortCode
	resp.ShipmentCharges = s.TotalChrg
	resp.CurrencyCode = "USD"
	if label := strings.TrimSpace(s.Label); label != "" {
		resp.Label = &shipper.Label{
			TrackingNumber: s.Tracking,
			Format:         strings.ToUpper(labelFormat),
			ImageData:      labelData(label),
		}
	}
	return resp, nil
}

// labelData decodes base64 encoded image labels. Printer labels such as
// ZPL are returned as text.
func labelData(label string) []byte {
	if data, err := base64.StdEncoding.DecodeString(label); err == nil {
		return data
	}
	return []byte(label)
}

func parseTrackingResponse(body []byte, requestType string, test bool, lastRequest string) (*shipper.TrackingResponse, error) {
	var reply TrackingReply
	if err := decode(body, &reply); err != nil {
		return nil, err
	}
	want := "OnTracTrackingResult"
	if requestType == requestDetails {
		want = "OnTracUpdateResponse"
	}
	if reply.XMLName.Local != want {
		return nil, shipper.NewShipperError(carrierName, "INVALID_RESPONSE", "unexpected reply "+reply.XMLName.Local)
	}

	shipmentErrors := lo.Map(reply.Shipments, func(s TrackedShipment, _ int) string { return s.Error })
	if msg := firstError(reply.Error, shipmentErrors...); msg != "" {
		if err := classifier.Check(carrierName, errorCode, msg); err != nil {
			return nil, err
		}
		return &shipper.TrackingResponse{
			Response:       shipper.NewResponse(false, msg, reply, test, lastRequest),
			Carrier:        carrierName,
			ShipmentEvents: []shipper.ShipmentEvent{},
		}, nil
	}

	numbers := lo.Compact(lo.Map(reply.Shipments, func(s TrackedShipment, _ int) string { return strings.TrimSpace(s.Tracking) }))
	resp := &shipper.TrackingResponse{
		Carrier:         carrierName,
		TrackingNumbers: numbers,
		ShipmentEvents:  []shipper.ShipmentEvent{},
	}
	if len(numbers) > 0 {
		resp.TrackingNumber = numbers[0]
	}

	if requestType == requestDetails {
		resp.Response = shipper.NewResponse(true, detailsMessage, reply, test, lastRequest)
		return resp, nil
	}

	resp.Response = shipper.NewResponse(true, trackingMessage, reply, test, lastRequest)
	if len(reply.Shipments) == 0 {
		return resp, nil
	}
	first := reply.Shipments[0]
	resp.ServiceName = ServiceName(first.Service)
	resp.DeliverySignature = strings.TrimSpace(first.Signature)
	resp.Origin = &shipper.Location{}
	resp.Destination = &shipper.Location{
		Name:       first.Name,
		Address1:   first.Addr1,
		City:       first.City,
		Province:   first.State,
		PostalCode: first.Zip,
	}
	if t, ok := parseEventTime(first.ExpDelDate); ok {
		resp.ScheduledDeliveryDate = &t
	}

	events := lo.FlatMap(reply.Shipments, func(s TrackedShipment, _ int) []shipper.ShipmentEvent {
		return lo.FilterMap(s.Events, func(ev Event, _ int) (shipper.ShipmentEvent, bool) {
			t, ok := parseEventTime(ev.EventTime)
			if !ok {
				return shipper.ShipmentEvent{}, false
			}
			return shipper.ShipmentEvent{
				Name: ev.Description,
				Time: t,
				Code: strings.TrimSpace(ev.Status),
				Location: shipper.Location{
					Name:       strings.TrimSpace(ev.Facility),
					City:       ev.City,
					Province:   ev.State,
					PostalCode: ev.Zip,
				},
				Data: ev,
			}, true
		})
	})
	resp.ShipmentEvents = shipper.SortEvents(events)
	if latest, ok := resp.LatestEvent(); ok {
		resp.Status = latest.Name
		resp.StatusCode = latest.Code
		resp.StatusDescription = latest.Name
	}
	return resp, nil
}

// parseEventTime reads the wall clock OnTrac reports and treats it as UTC,
// discarding any offset.
func parseEventTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", dateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return shipper.ZonelessUTC(t), true
		}
	}
	return time.Time{}, false
}

func parseZipsResponse(body []byte, test bool, lastRequest string) (*ZipsResponse, error) {
	var reply ZipsReply
	if err := decode(body, &reply); err != nil {
		return nil, err
	}
	if msg := strings.TrimSpace(reply.Error); msg != "" {
		if err := classifier.Check(carrierName, errorCode, msg); err != nil {
			return nil, err
		}
		return &ZipsResponse{Response: shipper.NewResponse(false, msg, reply, test, lastRequest)}, nil
	}

	zips := make(map[string]map[string]string, len(reply.Zips))
	for _, z := range reply.Zips {
		info := make(map[string]string, len(z.Fields))
		var code string
		for _, f := range z.Fields {
			if f.XMLName.Local == "zipCode" {
				code = strings.TrimSpace(f.Value)
				continue
			}
			info[f.XMLName.Local] = strings.TrimSpace(f.Value)
		}
		if code != "" {
			zips[code] = info
		}
	}
	return &ZipsResponse{
		Response: shipper.NewResponse(true, zipsMessage, reply, test, lastRequest),
		Zips:     zips,
	}, nil
}
