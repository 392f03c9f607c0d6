package fedex

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/tournevent/carrierbridge/pkg/shipper"
)

// NoRatesMessage is reported when FedEx accepts a rate request but offers no service.
const NoRatesMessage = "No shipping rates could be found for the destination address"

var classifier = shipper.Classifier{
	Codes: map[string]shipper.ErrorKind{
		"1000": shipper.KindAuthentication,
		"9040": shipper.KindBusiness,
		"556":  shipper.KindBusiness,
		"9045": shipper.KindBusiness,
		"521":  shipper.KindValidation,
		"526":  shipper.KindValidation,
		"2":    shipper.KindValidation,
	},
}

var successSeverities = map[string]bool{
	"SUCCESS": true,
	"WARNING": true,
	"NOTE":    true,
}

// ============================================================================
// Wire types
// ============================================================================

// Notification is a FedEx reply status entry.
type Notification struct {
	Severity string `xml:"Severity"`
	Source   string `xml:"Source"`
	Code     string `xml:"Code"`
	Message  string `xml:"Message"`
}

type replyHeader struct {
	Notifications []Notification `xml:"Notifications"`
}

// Money is a FedEx amount with its currency.
type Money struct {
	Currency string  `xml:"Currency"`
	Amount   float64 `xml:"Amount"`
}

// Weight is a FedEx weight with its unit.
type Weight struct {
	Units string  `xml:"Units"`
	Value float64 `xml:"Value"`
}

// Address is a FedEx reply address.
type Address struct {
	StreetLines         []string `xml:"StreetLines"`
	City                string   `xml:"City"`
	StateOrProvinceCode string   `xml:"StateOrProvinceCode"`
	PostalCode          string   `xml:"PostalCode"`
	CountryCode         string   `xml:"CountryCode"`
	Residential         bool     `xml:"Residential"`
}

func (a *Address) location() *shipper.Location {
	if a == nil {
		return nil
	}
	loc := &shipper.Location{
		City:       a.City,
		Province:   a.StateOrProvinceCode,
		PostalCode: a.PostalCode,
		Country:    a.CountryCode,
	}
	if len(a.StreetLines) > 0 {
		loc.Address1 = a.StreetLines[0]
	}
	if len(a.StreetLines) > 1 {
		loc.Address2 = a.StreetLines[1]
	}
	return loc
}

// RateReply is the decoded rate reply, kept as the raw payload.
type RateReply struct {
	XMLName xml.Name `xml:"RateReply"`
	replyHeader
	Details []RateReplyDetail `xml:"RateReplyDetails"`
}

// RateReplyDetail is one rated service.
type RateReplyDetail struct {
	ServiceType        string   `xml:"ServiceType"`
	AppliedOptions     []string `xml:"AppliedOptions"`
	DeliveryTimestamp  string   `xml:"DeliveryTimestamp"`
	TransitTime        string   `xml:"TransitTime"`
	MaximumTransitTime string   `xml:"MaximumTransitTime"`
	RatedShipments     []struct {
		TotalNetCharge Money `xml:"ShipmentRateDetail>TotalNetCharge"`
	} `xml:"RatedShipmentDetails"`
}

// TrackReply is the decoded tracking reply, kept as the raw payload.
type TrackReply struct {
	XMLName xml.Name `xml:"TrackReply"`
	replyHeader
	Details []TrackDetail `xml:"TrackDetails"`
}

// TrackDetail is the tracking state of one package.
type TrackDetail struct {
	TrackingNumber                    string       `xml:"TrackingNumber"`
	StatusCode                        string       `xml:"StatusCode"`
	StatusDescription                 string       `xml:"StatusDescription"`
	ServiceType                       string       `xml:"ServiceType"`
	SignatureProofOfDeliveryAvailable bool         `xml:"SignatureProofOfDeliveryAvailable"`
	DeliverySignatureName             string       `xml:"DeliverySignatureName"`
	EstimatedDeliveryTimestamp        string       `xml:"EstimatedDeliveryTimestamp"`
	OriginLocationAddress             *Address     `xml:"OriginLocationAddress"`
	DestinationAddress                *Address     `xml:"DestinationAddress"`
	ActualDeliveryAddress             *Address     `xml:"ActualDeliveryAddress"`
	Events                            []TrackEvent `xml:"Events"`
}

// TrackEvent is a FedEx scan event.
type TrackEvent struct {
	Timestamp        string  `xml:"Timestamp"`
	EventType        string  `xml:"EventType"`
	EventDescription string  `xml:"EventDescription"`
	Address          Address `xml:"Address"`
}

// ShipReply is the decoded shipment reply, kept as the raw payload.
type ShipReply struct {
	XMLName xml.Name `xml:"ProcessShipmentReply"`
	replyHeader
	JobID     string `xml:"JobId"`
	Completed struct {
		Rating struct {
			ActualRateType string `xml:"ActualRateType"`
			Details        []struct {
				RateType           string `xml:"RateType"`
				TotalNetCharge     Money  `xml:"TotalNetCharge"`
				TotalBillingWeight Weight `xml:"TotalBillingWeight"`
			} `xml:"ShipmentRateDetails"`
		} `xml:"ShipmentRating"`
		Package struct {
			TrackingNumber string `xml:"TrackingIds>TrackingNumber"`
			Image          string `xml:"Label>Parts>Image"`
			ImageType      string `xml:"Label>ImageType"`
		} `xml:"CompletedPackageDetails"`
	} `xml:"CompletedShipmentDetail"`
}

// ValidationReply is the decoded address validation reply.
type ValidationReply struct {
	XMLName xml.Name `xml:"AddressValidationReply"`
	replyHeader
	Proposed []struct {
		Score             int      `xml:"Score"`
		Changes           []string `xml:"Changes"`
		ResidentialStatus string   `xml:"ResidentialStatus"`
		Address           Address  `xml:"Address"`
	} `xml:"AddressResults>ProposedAddressDetails"`
}

// ============================================================================
// Parsers
// ============================================================================

// outcome reads the first notification. Business failures yield
// success=false with a nil error; other failures yield an error.
func (h replyHeader) outcome() (bool, string, error) {
	if len(h.Notifications) == 0 {
		return false, "", shipper.NewShipperError(carrierName, "INVALID_RESPONSE", "reply carries no notifications")
	}
	n := h.Notifications[0]
	message := fmt.Sprintf("%s - %s: %s", n.Severity, n.Code, n.Message)
	if successSeverities[n.Severity] {
		return true, message, nil
	}
	if err := classifier.Check(carrierName, n.Code, message); err != nil {
		return false, message, err
	}
	return false, message, nil
}

func decode(body []byte, v any) error {
	if err := xml.Unmarshal(body, v); err != nil {
		return shipper.NewShipperError(carrierName, "INVALID_RESPONSE", "unreadable reply").WithCause(err)
	}
	return nil
}

func parseRateResponse(body []byte, packages []shipper.Package, shipDate time.Time, test bool, lastRequest string) (*shipper.RateResponse, error) {
	var reply RateReply
	if err := decode(body, &reply); err != nil {
		return nil, err
	}
	success, message, err := reply.outcome()
	if err != nil {
		return nil, err
	}

	rates := lo.Map(reply.Details, func(d RateReplyDetail, _ int) shipper.RateEstimate {
		return rateEstimate(d, packages, shipDate)
	})
	if success && len(rates) == 0 {
		success = false
		if strings.TrimSpace(reply.Notifications[0].Message) == "" {
			message = NoRatesMessage
		}
	}
	return &shipper.RateResponse{
		Response: shipper.NewResponse(success, message, reply, test, lastRequest),
		Rates:    rates,
	}, nil
}

func rateEstimate(d RateReplyDetail, packages []shipper.Package, shipDate time.Time) shipper.RateEstimate {
	serviceType := d.ServiceType
	if lo.Contains(d.AppliedOptions, "SATURDAY_DELIVERY") {
		serviceType += "_SATURDAY_DELIVERY"
	}

	var charge Money
	if len(d.RatedShipments) > 0 {
		charge = d.RatedShipments[0].TotalNetCharge
	}

	est := shipper.RateEstimate{
		Carrier:     carrierName,
		ServiceName: ServiceName(serviceType),
		ServiceCode: d.ServiceType,
		TotalPrice:  charge.Amount,
		Currency:    shipper.NormalizeCurrency(charge.Currency),
		Packages:    packages,
	}

	// Transit times are only meaningful for ground services.
	var transit, maxTransit string
	if d.ServiceType == "FEDEX_GROUND" {
		transit, maxTransit = d.TransitTime, d.MaximumTransitTime
	}
	switch {
	case d.DeliveryTimestamp != "":
		if t, ok := parseTimestamp(d.DeliveryTimestamp); ok {
			est.DeliveryRange = shipper.DateRange{Earliest: t, Latest: t}
		}
	case transit != "":
		if maxTransit == "" {
			maxTransit = transit
		}
		est.TransitDays = TransitDays(transit)
		est.DeliveryRange = shipper.EstimateDelivery(shipDate, est.TransitDays, TransitDays(maxTransit))
	}
	return est
}

func parseTrackResponse(body []byte, test bool, lastRequest string) (*shipper.TrackingResponse, error) {
	var reply TrackReply
	if err := decode(body, &reply); err != nil {
		return nil, err
	}
	success, message, err := reply.outcome()
	if err != nil {
		return nil, err
	}

	resp := &shipper.TrackingResponse{
		Response:       shipper.NewResponse(success, message, reply, test, lastRequest),
		Carrier:        carrierName,
		ShipmentEvents: []shipper.ShipmentEvent{},
	}
	if !success || len(reply.Details) == 0 {
		return resp, nil
	}

	d := reply.Details[0]
	resp.TrackingNumber = d.TrackingNumber
	resp.StatusCode = d.StatusCode
	resp.StatusDescription = d.StatusDescription
	resp.Status = TrackingStatus(d.StatusCode)
	if d.ServiceType != "" {
		resp.ServiceName = ServiceName(d.ServiceType)
	}
	if d.StatusCode == "DL" && d.SignatureProofOfDeliveryAvailable {
		resp.DeliverySignature = d.DeliverySignatureName
	}
	if t, ok := parseTimestamp(d.EstimatedDeliveryTimestamp); ok {
		resp.ScheduledDeliveryDate = &t
	}

	resp.Origin = d.OriginLocationAddress.location()
	if d.DestinationAddress != nil {
		resp.Destination = d.DestinationAddress.location()
	} else {
		resp.Destination = d.ActualDeliveryAddress.location()
	}

	events := lo.FilterMap(d.Events, func(ev TrackEvent, _ int) (shipper.ShipmentEvent, bool) {
		if ev.Address.CountryCode == "" {
			return shipper.ShipmentEvent{}, false
		}
		t, ok := parseTimestamp(ev.Timestamp)
		if !ok {
			return shipper.ShipmentEvent{}, false
		}
		return shipper.ShipmentEvent{
			Name:     ev.EventDescription,
			Time:     t,
			Location: *ev.Address.location(),
			Code:     ev.EventType,
			Data:     ev,
		}, true
	})
	resp.ShipmentEvents = shipper.SortEvents(events)
	return resp, nil
}

func parseShipResponse(body []byte, test bool, lastRequest string) (*shipper.ShippingResponse, error) {
	var reply ShipReply
	if err := decode(body, &reply); err != nil {
		return nil, err
	}
	success, message, err := reply.outcome()
	if err != nil {
		return nil, err
	}

	resp := &shipper.ShippingResponse{
		Response: shipper.NewResponse(success, message, reply, test, lastRequest),
		Carrier:  carrierName,
	}
	if !success {
		return resp, nil
	}

	rating := reply.Completed.Rating
	for _, d := range rating.Details {
		if d.RateType == rating.ActualRateType {
			resp.ShipmentCharges = d.TotalNetCharge.Amount
			resp.CurrencyCode = shipper.NormalizeCurrency(d.TotalNetCharge.Currency)
			break
		}
	}

	pkg := reply.Completed.Package
	resp.TrackingNumber = pkg.TrackingNumber
	resp.ShippingID = reply.JobID
	if pkg.Image != "" {
		image, err := base64.StdEncoding.DecodeString(strings.TrimSpace(pkg.Image))
		if err != nil {
			return nil, shipper.NewShipperError(carrierName, "INVALID_RESPONSE", "unreadable label image").WithCause(err)
		}
		resp.Label = &shipper.Label{
			TrackingNumber: pkg.TrackingNumber,
			Format:         lo.Ternary(pkg.ImageType != "", pkg.ImageType, "PDF"),
			ImageData:      image,
		}
	}
	return resp, nil
}

func parseValidationResponse(body []byte, test bool, lastRequest string) (*shipper.ValidationResponse, error) {
	var reply ValidationReply
	if err := decode(body, &reply); err != nil {
		return nil, err
	}
	success, message, err := reply.outcome()
	if err != nil {
		return nil, err
	}

	resp := &shipper.ValidationResponse{
		Response: shipper.NewResponse(success, message, reply, test, lastRequest),
	}
	if !success || len(reply.Proposed) == 0 {
		return resp, nil
	}

	proposed := reply.Proposed[0]
	resp.Score = proposed.Score
	resp.Changes = proposed.Changes
	resp.Address = proposed.Address.location()
	resp.Address.Residential = proposed.ResidentialStatus != "BUSINESS"
	return resp, nil
}

// parseTimestamp accepts FedEx timestamps with or without a zone offset.
// Zoneless values are read as UTC.
func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// shipDay is the calendar day a shipment leaves, used for transit estimates.
func shipDay(now time.Time, turnAroundHours int) time.Time {
	t := now.Add(time.Duration(turnAroundHours) * time.Hour)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
