package dhl

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // DHL reports US time zone abbreviations

	"github.com/goccy/go-json"
	"github.com/tournevent/carrierbridge/pkg/shipper"
)

const (
	statusOK        = 200
	successMessage  = "Successfully retrieved tracking info"
	eventTimeLayout = "2006-01-02 15:04:05"
)

var classifier = shipper.Classifier{
	Codes: map[string]shipper.ErrorKind{
		"INVALID_LOGIN":    shipper.KindAuthentication,
		"INVALID_TOKEN":    shipper.KindInvalidToken,
		"NO_DATA":          shipper.KindBusiness,
		"VALIDATION_ERROR": shipper.KindValidation,
	},
}

var timeZones = map[string]string{
	"ET":  "America/New_York",
	"CT":  "America/Chicago",
	"MT":  "America/Denver",
	"PT":  "America/Los_Angeles",
	"AKT": "America/Anchorage",
	"HT":  "Pacific/Honolulu",
}

// ============================================================================
// Wire types
// ============================================================================

type apiError struct {
	Type    string `json:"error_type"`
	Message string `json:"error_message"`
}

type meta struct {
	Code      int        `json:"code"`
	Timestamp string     `json:"timestamp"`
	Errors    []apiError `json:"error"`
}

// firstError returns the first reported error, as DHL lists the cause first.
func (m meta) firstError() apiError {
	if len(m.Errors) == 0 {
		return apiError{Type: "UNKNOWN", Message: fmt.Sprintf("DHL returned code %d", m.Code)}
	}
	return m.Errors[0]
}

type tokenEnvelope struct {
	Meta *meta `json:"meta"`
	Data struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	} `json:"data"`
}

// TrackingEnvelope is the decoded tracking reply, kept as the raw payload.
type TrackingEnvelope struct {
	Meta *meta `json:"meta"`
	Data struct {
		MailItems []MailItem `json:"mailItems"`
	} `json:"data"`
}

// MailItem is a tracked DHL mail piece.
type MailItem struct {
	Recipient struct {
		SignedForName string `json:"signedForName"`
	} `json:"recipient"`
	Mail struct {
		MailIdentifier        string `json:"mailIdentifier"`
		ConsignmentNoteNumber string `json:"consignmentNoteNumber"`
		ProductCategory       string `json:"productCategory"`
	} `json:"mail"`
	Events []Event `json:"events"`
}

// Event is a DHL tracking event.
type Event struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Location    string `json:"location"`
	PostalCode  string `json:"postalCode"`
	Country     string `json:"country"`
	TimeZone    string `json:"timeZone"`
}

// ============================================================================
// Parsers
// ============================================================================

func parseTokenResponse(body []byte) (string, error) {
	var env tokenEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Meta == nil {
		return "", shipper.AuthenticationError(carrierName, "INVALID_RESPONSE", "Unable to authenticate: unreadable token response").WithCause(err)
	}
	if env.Meta.Code != statusOK {
		apiErr := env.Meta.firstError()
		return "", shipper.AuthenticationError(carrierName, apiErr.Type, "Unable to authenticate:"+apiErr.Message)
	}
	return env.Data.AccessToken, nil
}

func parseTrackingResponse(body []byte, test bool, lastRequest string) (*shipper.TrackingResponse, error) {
	var env TrackingEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Meta == nil {
		return nil, shipper.NewShipperError(carrierName, "INVALID_RESPONSE", "unreadable tracking response").WithCause(err)
	}

	if env.Meta.Code != statusOK {
		apiErr := env.Meta.firstError()
		switch classifier.Classify(apiErr.Type, apiErr.Message) {
		case shipper.KindBusiness:
			return &shipper.TrackingResponse{
				Response:       shipper.NewResponse(false, apiErr.Message, env, test, lastRequest),
				Carrier:        carrierName,
				ShipmentEvents: []shipper.ShipmentEvent{},
			}, nil
		case shipper.KindInvalidToken:
			return nil, shipper.NewShipperError(carrierName, apiErr.Type, apiErr.Message).WithKind(shipper.KindInvalidToken)
		case shipper.KindAuthentication:
			return nil, shipper.AuthenticationError(carrierName, apiErr.Type, "Unable to authenticate:"+apiErr.Message)
		case shipper.KindValidation:
			return nil, shipper.ValidationError(carrierName, apiErr.Type, "Bad format of tracking number:"+apiErr.Message)
		default:
			return nil, shipper.NewShipperError(carrierName, apiErr.Type, "Error calling Tracking API:"+apiErr.Message)
		}
	}

	resp := &shipper.TrackingResponse{
		Response:       shipper.NewResponse(true, successMessage, env, test, lastRequest),
		Carrier:        carrierName,
		ShipmentEvents: []shipper.ShipmentEvent{},
	}
	if len(env.Data.MailItems) == 0 {
		return resp, nil
	}

	item := env.Data.MailItems[0]
	events := make([]shipper.ShipmentEvent, 0, len(item.Events))
	for _, ev := range item.Events {
		t, err := eventTime(ev)
		if err != nil {
			return nil, shipper.NewShipperError(carrierName, "INVALID_RESPONSE", "unreadable event time").WithCause(err)
		}
		events = append(events, shipper.ShipmentEvent{
			Name:     ev.Description,
			Time:     t,
			Location: eventLocation(ev),
			Code:     strconv.Itoa(ev.ID),
			Data:     ev,
		})
	}
	resp.ShipmentEvents = shipper.SortEvents(events)
	resp.TrackingNumber = item.Mail.MailIdentifier
	resp.DeliverySignature = item.Recipient.SignedForName

	if latest, ok := resp.LatestEvent(); ok {
		resp.Status = latest.Name
		resp.StatusCode = latest.Code
		resp.StatusDescription = latest.Name
	}
	return resp, nil
}

func eventTime(ev Event) (time.Time, error) {
	loc := time.UTC
	if name, ok := timeZones[ev.TimeZone]; ok {
		if l, err := time.LoadLocation(name); err == nil {
			loc = l
		}
	}
	t, err := time.ParseInLocation(eventTimeLayout, ev.Date+" "+ev.Time, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// eventLocation splits DHL's "City,ST,CC" location string.
func eventLocation(ev Event) shipper.Location {
	loc := shipper.Location{PostalCode: ev.PostalCode, Country: ev.Country}
	parts := strings.Split(ev.Location, ",")
	if len(parts) > 0 {
		loc.City = strings.TrimSpace(parts[0])
	}
	if len(parts) > 1 {
		loc.Province = strings.TrimSpace(parts[1])
	}
	return loc
}
