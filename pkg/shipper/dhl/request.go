package dhl

import (
	"net/url"
	"strings"
)

const (
	tokenPath    = "/v1/auth/access_token.json"
	trackingPath = "/v1/mailitems/track.json"
)

// query renders parameters in the given order.
func query(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(pairs[i])
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(pairs[i+1]))
	}
	return b.String()
}

func tokenURL(cfg Config) string {
	return cfg.BaseURL + tokenPath + "?" + query(
		"username", cfg.Username,
		"password", cfg.Password,
	)
}

func trackingURL(cfg Config, number, token string) string {
	return cfg.BaseURL + trackingPath + "?" + query(
		"access_token", token,
		"client_id", cfg.ClientID,
		"number", number,
	)
}

// lastTrackingRequest is the tracking URL without the bearer token.
func lastTrackingRequest(cfg Config, number string) string {
	return cfg.BaseURL + trackingPath + "?" + query(
		"client_id", cfg.ClientID,
		"number", number,
	)
}
