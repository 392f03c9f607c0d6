package shipper_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/carrierbridge/pkg/shipper"
)

func TestShipperError_Error(t *testing.T) {
	err := shipper.NewShipperError("fedex", "521", "Invalid postal code")
	assert.Equal(t, "fedex error (521): Invalid postal code", err.Error())
}

func TestShipperError_ErrorWithCause(t *testing.T) {
	cause := errors.New("network timeout")
	err := shipper.NewShipperError("fedex", "API_ERROR", "API call failed").WithCause(cause)
	assert.Contains(t, err.Error(), "API call failed")
	assert.Contains(t, err.Error(), "network timeout")
}

func TestShipperError_Unwrap(t *testing.T) {
	cause := errors.New("network timeout")
	err := shipper.NewShipperError("fedex", "API_ERROR", "API call failed").WithCause(cause)
	assert.True(t, errors.Is(err, cause))
}

func TestShipperError_Is(t *testing.T) {
	err1 := shipper.NewShipperError("fedex", "INVALID_ADDRESS", "Invalid postal code")
	err2 := shipper.NewShipperError("landmark", "INVALID_ADDRESS", "Different message")

	// Same code should match
	assert.True(t, errors.Is(err1, err2))
}

func TestShipperError_IsNot(t *testing.T) {
	err1 := shipper.NewShipperError("fedex", "INVALID_ADDRESS", "Invalid postal code")
	err2 := shipper.NewShipperError("fedex", "DIFFERENT_CODE", "Different error")

	// Different codes should not match
	assert.False(t, errors.Is(err1, err2))
}

func TestShipperError_KindSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"configuration", shipper.ConfigurationError("dhl", "missing key"), shipper.ErrConfiguration},
		{"authentication", shipper.AuthenticationError("dhl", "401", "bad key"), shipper.ErrAuthentication},
		{"validation", shipper.ValidationError("dhl", "400", "bad zip"), shipper.ErrValidation},
		{"invalid token", shipper.NewShipperError("dhl", "INVALID_TOKEN", "expired").WithKind(shipper.KindInvalidToken), shipper.ErrInvalidToken},
		{"unrecognized", shipper.NewShipperError("dhl", "999", "boom"), shipper.ErrUnrecognized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.want))
			assert.True(t, errors.Is(fmt.Errorf("wrapped: %w", tt.err), tt.want))
			assert.False(t, errors.Is(tt.err, shipper.ErrTransport))
		})
	}
}

func TestShipperError_WithStatusCode(t *testing.T) {
	err := shipper.NewShipperError("fedex", "AUTH_ERROR", "Unauthorized").WithStatusCode(401)
	assert.Equal(t, 401, err.StatusCode)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"retryable shipper error", shipper.NewShipperError("fedex", "RATE_LIMIT", "Too many requests").WithRetryable(true), true},
		{"plain shipper error", shipper.ValidationError("fedex", "521", "Bad address"), false},
		{"network failure", &shipper.TransportError{Method: "GET", URL: "http://x", Err: errors.New("reset")}, true},
		{"too many requests", &shipper.TransportError{Method: "GET", URL: "http://x", StatusCode: 429}, true},
		{"server error", &shipper.TransportError{Method: "GET", URL: "http://x", StatusCode: 502}, true},
		{"client error", &shipper.TransportError{Method: "GET", URL: "http://x", StatusCode: 400}, false},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shipper.IsRetryable(tt.err))
		})
	}
}

func TestTransportError(t *testing.T) {
	err := &shipper.TransportError{Method: "POST", URL: "https://api.example.com", StatusCode: 503}
	assert.Equal(t, "transport: POST https://api.example.com returned HTTP 503", err.Error())
	assert.True(t, errors.Is(err, shipper.ErrTransport))
	assert.Equal(t, shipper.KindTransport, shipper.KindOf(err))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, shipper.KindValidation, shipper.KindOf(shipper.ValidationError("fedex", "521", "bad")))
	assert.Equal(t, shipper.KindCarrier, shipper.KindOf(shipper.NewShipperError("fedex", "1", "x")))
	assert.Equal(t, shipper.ErrorKind(""), shipper.KindOf(errors.New("plain")))
}

func TestErrorBody(t *testing.T) {
	envelope := []byte(`{"meta":{"error":{"type":"NOT_FOUND"}}}`)
	err := fmt.Errorf("call: %w", &shipper.TransportError{Method: "GET", URL: "u", StatusCode: 404, Body: envelope})

	body, ok := shipper.ErrorBody(err, `"meta"`)
	require.True(t, ok)
	assert.Equal(t, envelope, body)

	_, ok = shipper.ErrorBody(err, "<Errors>")
	assert.False(t, ok, "marker absent")

	_, ok = shipper.ErrorBody(&shipper.TransportError{Method: "GET", URL: "u", StatusCode: 500}, `"meta"`)
	assert.False(t, ok, "no body")

	_, ok = shipper.ErrorBody(errors.New("plain"), `"meta"`)
	assert.False(t, ok)
}

func TestClassifier(t *testing.T) {
	c := shipper.Classifier{
		Codes: map[string]shipper.ErrorKind{
			"101": shipper.KindAuthentication,
			"301": shipper.KindBusiness,
		},
		Match: shipper.MessageContains([]shipper.KeywordKind{
			{Keyword: "password", Kind: shipper.KindAuthentication},
			{Keyword: "not found", Kind: shipper.KindBusiness},
			{Keyword: "invalid", Kind: shipper.KindValidation},
		}),
	}

	assert.Equal(t, shipper.KindAuthentication, c.Classify("101", "whatever"))
	assert.Equal(t, shipper.KindAuthentication, c.Classify("", "Invalid Password"), "keywords match in table order")
	assert.Equal(t, shipper.KindValidation, c.Classify("", "INVALID ZIP"))
	assert.Equal(t, shipper.KindCarrier, c.Classify("555", "mystery"))

	assert.NoError(t, c.Check("landmark", "301", "No data found"), "business outcomes are not errors")
	assert.NoError(t, c.Check("ontrac", "", "Tracking number not found"))

	err := c.Check("landmark", "101", "Login failed")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shipper.ErrAuthentication))

	var se *shipper.ShipperError
	require.True(t, errors.As(c.Check("landmark", "555", "mystery"), &se))
	assert.Equal(t, "555", se.Code)
	assert.Equal(t, shipper.KindCarrier, se.Kind)
}
