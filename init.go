package main

import (
	"context"
	"fmt"

	"github.com/tournevent/carrierbridge/internal/config"
	"github.com/tournevent/carrierbridge/internal/idempotency"
	"github.com/tournevent/carrierbridge/internal/telemetry"
	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/tournevent/carrierbridge/pkg/shipper/dhl"
	"github.com/tournevent/carrierbridge/pkg/shipper/fedex"
	"github.com/tournevent/carrierbridge/pkg/shipper/landmark"
	"github.com/tournevent/carrierbridge/pkg/shipper/ontrac"
	"github.com/tournevent/carrierbridge/pkg/shipper/transport"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(cfg *config.Config) (*otelzap.Logger, error) {
	return telemetry.NewLogger(cfg.LogLevel, zap.String("service", cfg.ServiceName))
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.OTELEnabled {
		return otel.Tracer(cfg.ServiceName), noop, nil
	}
	tracer, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version, cfg.Attributes()...)
	if err != nil {
		return otel.Tracer(cfg.ServiceName), noop, err
	}
	return tracer, shutdown, nil
}

// initIdempotencyStore connects to Redis when a URL is configured. A nil
// store disables server-side deduplication of shipment requests.
func initIdempotencyStore(ctx context.Context, cfg *config.Config) (*idempotency.Store, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	return idempotency.New(ctx, idempotency.Config{URL: cfg.RedisURL, TTL: cfg.IdempotencyTTL})
}

func newTransport(cfg *config.Config, logger *otelzap.Logger) shipper.Transport {
	return transport.NewRetrying(
		transport.NewHTTP(transport.Config{Timeout: cfg.HTTPTimeout}, logger),
		transport.RetryConfig{MaxTries: cfg.HTTPMaxTries},
	)
}

// initShipperRegistry registers every enabled carrier. A carrier with
// missing credentials fails startup.
func initShipperRegistry(cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer, metrics *telemetry.Metrics) (*shipper.Registry, error) {
	registry := shipper.NewRegistry()
	t := newTransport(cfg, logger)

	if cfg.DHLEnabled {
		c, err := dhl.NewWithTransport(dhl.Config{
			Username:  cfg.DHLUsername,
			Password:  cfg.DHLPassword,
			ClientID:  cfg.DHLClientID,
			BaseURL:   cfg.DHLBaseURL,
			Threshold: cfg.DHLThreshold,
			Test:      cfg.DHLTest,
		}, t, logger, tracer)
		if err != nil {
			return nil, fmt.Errorf("dhl: %w", err)
		}
		if metrics != nil {
			c.Tokens().OnAcquire = metrics.TokenObserver(c.Name())
		}
		registry.Register(c)
	}

	if cfg.FedExEnabled {
		c, err := fedex.NewWithTransport(fedex.Config{
			Key:      cfg.FedExKey,
			Password: cfg.FedExPassword,
			Account:  cfg.FedExAccount,
			Login:    cfg.FedExLogin,
			BaseURL:  cfg.FedExBaseURL,
			Test:     cfg.FedExTest,
		}, t, logger, tracer)
		if err != nil {
			return nil, fmt.Errorf("fedex: %w", err)
		}
		registry.Register(c)
	}

	if cfg.LandmarkEnabled {
		c, err := landmark.NewWithTransport(landmark.Config{
			Username: cfg.LandmarkUsername,
			Password: cfg.LandmarkPassword,
			BaseURL:  cfg.LandmarkBaseURL,
			Test:     cfg.LandmarkTest,
		}, t, logger, tracer)
		if err != nil {
			return nil, fmt.Errorf("landmark: %w", err)
		}
		registry.Register(c)
	}

	if cfg.OnTracEnabled {
		c, err := newOnTrac(cfg, t, logger, tracer)
		if err != nil {
			return nil, err
		}
		registry.Register(c)
	}

	return registry, nil
}

func newOnTrac(cfg *config.Config, t shipper.Transport, logger *otelzap.Logger, tracer trace.Tracer) (*ontrac.Client, error) {
	c, err := ontrac.NewWithTransport(ontrac.Config{
		Account:  cfg.OnTracAccount,
		Password: cfg.OnTracPassword,
		BaseURL:  cfg.OnTracBaseURL,
		Test:     cfg.OnTracTest,
	}, t, logger, tracer)
	if err != nil {
		return nil, fmt.Errorf("ontrac: %w", err)
	}
	return c, nil
}
