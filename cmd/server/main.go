package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vidyutseva/voice-line/internal/callflow"
	"github.com/vidyutseva/voice-line/internal/config"
	"github.com/vidyutseva/voice-line/internal/observability"
	"github.com/vidyutseva/voice-line/internal/pipeline"
	"github.com/vidyutseva/voice-line/internal/sarvam"
	"github.com/vidyutseva/voice-line/internal/telephony"
	"github.com/vidyutseva/voice-line/internal/twilio"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("public_url", cfg.PublicURL).
		Str("chat_model", cfg.ChatModel).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voice line service starting")

	provider := sarvam.NewClient(cfg)
	twilioClient := twilio.NewClient(cfg)
	voicePipeline := pipeline.New(provider, logger)

	mux := http.NewServeMux()

	// Recording-webhook dialogue
	callflow.NewHandler(cfg, voicePipeline, twilioClient).Register(mux)

	// Media Streams transport
	mux.HandleFunc("/streams/twilio", telephony.StreamHandler(cfg, voicePipeline))

	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(map[string]observability.HealthCheckFunc{
		"sarvam": func(ctx context.Context) (bool, error) {
			return provider.Ping(ctx)
		},
		"twilio": func(ctx context.Context) (bool, error) {
			if twilioClient.AccountSID() == "" {
				return false, fmt.Errorf("twilio credentials not configured")
			}
			return true, nil
		},
	}))

	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("webhook", fmt.Sprintf("%s/voice/incoming", cfg.PublicURL)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited gracefully")
}
