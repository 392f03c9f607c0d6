package shipper

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind is the canonical classification of a carrier failure.
type ErrorKind string

const (
	KindConfiguration  ErrorKind = "configuration"
	KindAuthentication ErrorKind = "authentication"
	KindValidation     ErrorKind = "validation"
	KindTransport      ErrorKind = "transport"
	KindBusiness       ErrorKind = "business"
	KindInvalidToken   ErrorKind = "invalid_token"
	KindCarrier        ErrorKind = "carrier" // unrecognized carrier error
)

// ShipperError represents an error from a shipping carrier.
type ShipperError struct {
	Carrier    string
	Kind       ErrorKind
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *ShipperError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Carrier, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Carrier, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ShipperError) Unwrap() error {
	return e.Cause
}

// Is matches another ShipperError by code, or the sentinel of the error's kind.
func (e *ShipperError) Is(target error) bool {
	if t, ok := target.(*ShipperError); ok {
		return e.Code == t.Code
	}
	if sentinel, ok := kindSentinels[e.Kind]; ok {
		return sentinel == target
	}
	return false
}

// NewShipperError creates a new ShipperError of KindCarrier.
func NewShipperError(carrier, code, message string) *ShipperError {
	return &ShipperError{
		Carrier: carrier,
		Kind:    KindCarrier,
		Code:    code,
		Message: message,
	}
}

// WithKind sets the error classification.
func (e *ShipperError) WithKind(kind ErrorKind) *ShipperError {
	e.Kind = kind
	return e
}

// WithCause adds a cause to the error.
func (e *ShipperError) WithCause(err error) *ShipperError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *ShipperError) WithStatusCode(code int) *ShipperError {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable.
func (e *ShipperError) WithRetryable(retryable bool) *ShipperError {
	e.Retryable = retryable
	return e
}

// ConfigurationError reports adapter configuration that cannot work.
func ConfigurationError(carrier, message string) *ShipperError {
	return NewShipperError(carrier, "CONFIGURATION", message).WithKind(KindConfiguration)
}

// AuthenticationError reports rejected credentials or an exhausted token retry budget.
func AuthenticationError(carrier, code, message string) *ShipperError {
	return NewShipperError(carrier, code, message).WithKind(KindAuthentication)
}

// ValidationError reports caller input rejected before or by the carrier.
func ValidationError(carrier, code, message string) *ShipperError {
	return NewShipperError(carrier, code, message).WithKind(KindValidation)
}

// TransportError is a network or HTTP-layer failure.
type TransportError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transport: %s %s returned HTTP %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("transport: %s %s: %v", e.Method, e.URL, e.Err)
}

// Unwrap returns the underlying network error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// Temporary reports whether repeating the request may succeed.
func (e *TransportError) Temporary() bool {
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// Sentinel errors for the canonical error taxonomy.
var (
	// ErrConfiguration indicates missing or invalid adapter configuration.
	ErrConfiguration = errors.New("configuration error")

	// ErrAuthentication indicates carrier authentication failed.
	ErrAuthentication = errors.New("authentication failed")

	// ErrValidation indicates malformed caller input.
	ErrValidation = errors.New("validation failed")

	// ErrTransport indicates a network or HTTP-layer failure.
	ErrTransport = errors.New("transport failure")

	// ErrInvalidToken indicates a previously acquired bearer token was rejected.
	ErrInvalidToken = errors.New("invalid token")

	// ErrUnrecognized indicates a carrier error code with no known classification.
	ErrUnrecognized = errors.New("unrecognized carrier error")

	// ErrCarrierNotFound indicates the requested carrier is not registered.
	ErrCarrierNotFound = errors.New("carrier not found")

	// ErrUnsupported indicates the carrier does not implement the operation.
	ErrUnsupported = errors.New("operation not supported by carrier")
)

var kindSentinels = map[ErrorKind]error{
	KindConfiguration:  ErrConfiguration,
	KindAuthentication: ErrAuthentication,
	KindValidation:     ErrValidation,
	KindInvalidToken:   ErrInvalidToken,
	KindCarrier:        ErrUnrecognized,
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var shipperErr *ShipperError
	if errors.As(err, &shipperErr) {
		return shipperErr.Retryable
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr.Temporary()
	}
	return false
}

// ErrorBody returns the response body of a non-2xx TransportError when it
// contains marker, so carriers that report business errors with an HTTP error
// status can still parse their envelope.
func ErrorBody(err error, marker string) ([]byte, bool) {
	var te *TransportError
	if !errors.As(err, &te) || len(te.Body) == 0 {
		return nil, false
	}
	if !bytes.Contains(te.Body, []byte(marker)) {
		return nil, false
	}
	return te.Body, true
}

// KindOf returns the canonical kind of err, or "" when err is not a carrier error.
func KindOf(err error) ErrorKind {
	var shipperErr *ShipperError
	if errors.As(err, &shipperErr) {
		return shipperErr.Kind
	}
	if errors.Is(err, ErrTransport) {
		return KindTransport
	}
	return ""
}

// ============================================================================
// Classification
// ============================================================================

// Classifier maps carrier-reported error codes to canonical kinds.
type Classifier struct {
	// Codes maps exact carrier codes to kinds.
	Codes map[string]ErrorKind

	// Match is consulted for codes absent from Codes, e.g. carriers that
	// only report free-text messages.
	Match func(code, message string) (ErrorKind, bool)
}

// Classify returns the kind of a carrier-reported error.
func (c Classifier) Classify(code, message string) ErrorKind {
	if kind, ok := c.Codes[code]; ok {
		return kind
	}
	if c.Match != nil {
		if kind, ok := c.Match(code, message); ok {
			return kind
		}
	}
	return KindCarrier
}

// Check returns nil for business outcomes, which callers surface as a failed
// Response, and a *ShipperError for every other kind.
func (c Classifier) Check(carrier, code, message string) error {
	kind := c.Classify(code, message)
	if kind == KindBusiness {
		return nil
	}
	return NewShipperError(carrier, code, message).WithKind(kind)
}

// MessageContains builds a Classifier.Match function from keyword tables.
// Keywords are matched case-insensitively in table order.
func MessageContains(table []KeywordKind) func(code, message string) (ErrorKind, bool) {
	return func(_, message string) (ErrorKind, bool) {
		lower := strings.ToLower(message)
		for _, entry := range table {
			if strings.Contains(lower, entry.Keyword) {
				return entry.Kind, true
			}
		}
		return "", false
	}
}

// KeywordKind pairs a lowercase message keyword with a kind.
type KeywordKind struct {
	Keyword string
	Kind    ErrorKind
}
