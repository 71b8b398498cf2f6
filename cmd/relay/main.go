// Command relay runs the translate-relay anti-flicker translation service:
// it subscribes to transcriber output on the message bus, translates it
// for the targets it is responsible for, and republishes the results.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"translate-relay/internal/app"
	"translate-relay/internal/bus"
	"translate-relay/internal/config"
	"translate-relay/internal/observability"
	"translate-relay/internal/observability/metrics"
	"translate-relay/internal/pipeline"
	"translate-relay/internal/translate"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	application := app.New(cfg)
	logger := application.Logger

	logger.Info().
		Str("provider", cfg.Translate.Provider).
		Float64("changeThreshold", cfg.Gates.ChangeThreshold).
		Dur("partialDebounce", cfg.Gates.PartialDebounce).
		Dur("maxHoldSeconds", cfg.Gates.MaxHoldSeconds).
		Msg("gate configuration")

	provider, err := translate.NewFromConfig(cfg.Translate)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to construct translation provider")
	}

	m := metrics.NewMetrics()

	adapter := bus.NewAdapter(bus.Config{
		Host:           cfg.Broker.Host,
		Port:           cfg.Broker.Port,
		TranslatorName: cfg.TranslatorName,
		Languages:      config.EULanguages,
	}, m)

	pipe := pipeline.New(provider, adapter.PublishTranslation, cfg.Gates, m)
	adapter.SetHandler(pipe)

	var obsServer *observability.Server
	if cfg.Observability.MetricsEnabled {
		obsServer = observability.NewServer(":"+cfg.Observability.MetricsPort, adapter.IsConnected)
		obsServer.Start()
	}

	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("application start failed")
	}

	if err := adapter.Connect(); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to MQTT broker")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pipe.StartStatsLogger(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info().Msg("received shutdown signal")

	pipe.Stop()
	adapter.Shutdown()

	if obsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := obsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("error shutting down observability server")
		}
	}

	application.Shutdown()
}
