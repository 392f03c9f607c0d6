package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/tournevent/carrierbridge/internal/api"
	"github.com/tournevent/carrierbridge/internal/server"
	"github.com/tournevent/carrierbridge/internal/telemetry"
	"github.com/tournevent/carrierbridge/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "carrierbridge",
	Short:   "Carrier Bridge - rates, tracking and shipments across DHL, FedEx, Landmark and OnTrac",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var trackCmd = &cobra.Command{
	Use:   "track <carrier> <tracking-number>...",
	Short: "Print tracking information for one or more shipments",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTrack,
}

var ratesCmd = &cobra.Command{
	Use:   "rates [carrier]",
	Short: "Quote a rate request read as JSON from --file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRates,
}

var zipsCmd = &cobra.Command{
	Use:   "zips",
	Short: "List the zip codes OnTrac serves",
	RunE:  runZips,
}

func init() {
	trackCmd.Flags().Bool("details", false, "request detailed tracking where the carrier supports it")
	ratesCmd.Flags().StringP("file", "f", "", "JSON rate request (defaults to stdin)")
	zipsCmd.Flags().String("since", "", "only zips changed since this date (YYYY-MM-DD)")

	rootCmd.AddCommand(serveCmd, trackCmd, ratesCmd, zipsCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tracer, tracerShutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
	}
	defer tracerShutdown(context.Background())

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)

	registry, err := initShipperRegistry(cfg, logger, tracer, metrics)
	if err != nil {
		return err
	}
	if registry.Count() == 0 {
		logger.Warn("No carriers enabled")
	}

	var store api.IdempotencyStore
	redisStore, err := initIdempotencyStore(ctx, cfg)
	if err != nil {
		return err
	}
	if redisStore != nil {
		defer redisStore.Close()
		store = redisStore
	}

	logger.Info("Starting Carrier Bridge",
		zap.Int("port", cfg.Port),
		zap.String("version", cfg.Version),
		zap.Strings("carriers", registry.Names()),
		zap.Bool("idempotency", store != nil),
	)

	resolver := api.NewResolver(registry, store, logger, metrics)
	srv := server.New(server.Config{Port: cfg.Port}, resolver, reg, logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// newCLIResolver builds a resolver without metrics or an idempotency store.
func newCLIResolver() (*api.Resolver, *otelzap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := initLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	registry, err := initShipperRegistry(cfg, logger, otel.Tracer(cfg.ServiceName), nil)
	if err != nil {
		return nil, nil, err
	}
	return api.NewResolver(registry, nil, logger, nil), logger, nil
}

func runTrack(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	resolver, logger, err := newCLIResolver()
	if err != nil {
		return err
	}
	defer logger.Sync()

	details, _ := cmd.Flags().GetBool("details")
	resp, err := resolver.Track(ctx, api.TrackingRequest{
		Carrier:         args[0],
		TrackingNumbers: args[1:],
		Options:         shipper.TrackingOptions{Details: details},
	})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}

func runRates(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	resolver, logger, err := newCLIResolver()
	if err != nil {
		return err
	}
	defer logger.Sync()

	in := cmd.InOrStdin()
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	var req api.RatesRequest
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return fmt.Errorf("reading rate request: %w", err)
	}
	if len(args) == 1 {
		req.Carrier = args[0]
	}

	result, err := resolver.Rates(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func runZips(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	var since time.Time
	if s, _ := cmd.Flags().GetString("since"); s != "" {
		if since, err = time.Parse(time.DateOnly, s); err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
	}

	client, err := newOnTrac(cfg, newTransport(cfg, logger), logger, nil)
	if err != nil {
		return err
	}
	resp, err := client.Zips(ctx, since)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), resp)
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
