package api

import (
	"errors"
	"net/http"

	"github.com/tournevent/carrierbridge/internal/idempotency"
	"github.com/tournevent/carrierbridge/pkg/shipper"
)

// errorType returns the metric label for err.
func errorType(err error) string {
	if kind := shipper.KindOf(err); kind != "" {
		return string(kind)
	}
	switch {
	case errors.Is(err, shipper.ErrCarrierNotFound):
		return "not_found"
	case errors.Is(err, shipper.ErrUnsupported):
		return "unsupported"
	default:
		return "internal"
	}
}

// StatusCode maps an operation error to an HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, shipper.ErrCarrierNotFound):
		return http.StatusNotFound
	case errors.Is(err, shipper.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, idempotency.ErrInProgress):
		return http.StatusConflict
	}
	switch shipper.KindOf(err) {
	case shipper.KindValidation:
		return http.StatusBadRequest
	case shipper.KindAuthentication, shipper.KindInvalidToken:
		return http.StatusUnauthorized
	case shipper.KindConfiguration:
		return http.StatusInternalServerError
	case shipper.KindTransport, shipper.KindCarrier:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
