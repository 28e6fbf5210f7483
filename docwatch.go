package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vothanachyes/telegram-user-tracking-sub004/admin"
	"github.com/vothanachyes/telegram-user-tracking-sub004/cfg"
	"github.com/vothanachyes/telegram-user-tracking-sub004/event"
	"github.com/vothanachyes/telegram-user-tracking-sub004/relay"
	_ "github.com/vothanachyes/telegram-user-tracking-sub004/relay/sink"
	_ "github.com/vothanachyes/telegram-user-tracking-sub004/relay/transformer"
	"github.com/vothanachyes/telegram-user-tracking-sub004/telemetry"
	"github.com/vothanachyes/telegram-user-tracking-sub004/transport"
	"github.com/vothanachyes/telegram-user-tracking-sub004/watch"
)

const (
	collectInterval = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	flag.Parse()

	// Load configuration
	err := cfg.Load(*cfg.ConfigPathFlag)
	if err != nil {
		panic(err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	// Setup logging
	var writer io.Writer = zerolog.NewConsoleWriter()
	if cfg.Config.Logging.Format == "json" {
		writer = os.Stdout
	}
	gLog := zerolog.New(writer).
		With().
		Timestamp().
		Str("instance_id", cfg.Config.InstanceID).
		Logger()

	if cfg.Config.Logging.Verbose {
		log.Logger = gLog.Level(zerolog.DebugLevel)
	} else {
		log.Logger = gLog.Level(zerolog.InfoLevel)
	}

	log.Info().Msg("docwatch - real-time document watch")
	log.Debug().Msg("Initializing telemetry")
	telemetry.InitializeTelemetry()
	telemetry.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := event.NewBus()
	defer bus.Clear()

	if cfg.Config.Logging.Verbose {
		cancel := bus.SubscribeFunc(event.KindChange, func(e event.Event) error {
			log.Debug().
				Str("kind", string(e.Kind())).
				Str("target", e.Target().String()).
				Str("document_id", e.DocumentID()).
				Msg("Change observed")
			return nil
		})
		defer cancel()
	}

	// Relay must subscribe before listeners start so initial results are mirrored
	if cfg.Config.Relay.Enabled {
		registry, err := relay.NewRegistry(relay.RegistryConfig{
			Source:      cfg.Config.InstanceID,
			SinkConfigs: cfg.Config.Relay.Sinks,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize relay")
			return
		}
		if err := registry.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start relay")
			return
		}
		defer registry.Stop()
		defer registry.Attach(bus)()
	}

	svc, err := transport.New(ctx, cfg.Config.Watch, transport.Deps{Publisher: bus})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize watch transport")
		return
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warn().Err(err).Msg("Watch transport did not close cleanly")
		}
	}()

	started := startTargets(ctx, svc, cfg.Config.Watch.Targets)
	log.Info().
		Bool("available", svc.Available()).
		Int("listeners", started).
		Msg("Watch service ready")

	if lister, ok := svc.(telemetry.StateLister); ok {
		collector := telemetry.NewMetricsCollector(collectInterval, watch.StateNames(), lister)
		collector.Start()
		defer collector.Stop()
	}

	server := startHTTP(svc)
	if server != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("Admin server shutdown failed")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down")
}

// startHTTP serves the admin API and /metrics. Returns nil when neither is enabled.
func startHTTP(svc watch.Service) *http.Server {
	metrics := telemetry.GetMetricsHandler()
	if !cfg.Config.Admin.Enabled && metrics == nil {
		return nil
	}

	mux := http.NewServeMux()
	if cfg.Config.Admin.Enabled {
		admin.RegisterRoutes(mux, admin.NewAdminHandlers(svc), cfg.Config.Admin.Secret)
	}
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	addr := net.JoinHostPort(cfg.Config.Admin.BindAddress, strconv.Itoa(cfg.Config.Admin.Port))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("address", addr).Msg("Starting admin HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Admin HTTP server failed")
		}
	}()
	return server
}
