package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	grpcapi "indic-speech-stream-service/internal/api/grpc"
	"indic-speech-stream-service/internal/api/ws"
	"indic-speech-stream-service/internal/app"
	"indic-speech-stream-service/internal/config"
	"indic-speech-stream-service/internal/events"
	httpapi "indic-speech-stream-service/internal/http"
	"indic-speech-stream-service/internal/observability"
	"indic-speech-stream-service/internal/observability/logging"
	"indic-speech-stream-service/internal/observability/metrics"
	"indic-speech-stream-service/internal/schema"
	"indic-speech-stream-service/internal/service/audio"
	"indic-speech-stream-service/internal/service/diarization"
	diarmock "indic-speech-stream-service/internal/service/diarization/mock"
	"indic-speech-stream-service/internal/service/hub"
	"indic-speech-stream-service/internal/service/inference"
	"indic-speech-stream-service/internal/service/language"
	"indic-speech-stream-service/internal/service/stt"
	sttgoogle "indic-speech-stream-service/internal/service/stt/google"
	sttmock "indic-speech-stream-service/internal/service/stt/mock"
	sttsidecar "indic-speech-stream-service/internal/service/stt/sidecar"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	application := app.New(cfg)
	logger := application.Logger
	if err := application.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics and probes come up first so orchestrators see "not ready"
	// while models load.
	obs := observability.NewServer(cfg.Observability.MetricsAddr, application.Ready)
	obs.Start()

	grpcServer := grpcapi.NewServer(metrics.DefaultMetrics)
	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		logger.Fatal().Err(err).Str("port", cfg.Service.GRPCPort).Msg("Failed to listen for gRPC")
	}
	go func() {
		logger.Info().Str("port", cfg.Service.GRPCPort).Msg("gRPC health server started")
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error().Err(err).Msg("gRPC serve failed")
		}
	}()

	policy, err := inference.ParsePolicy(cfg.Inference.Policy)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid inference policy")
	}
	executor := inference.NewExecutor(policy, cfg.Inference.PoolSize)
	logger.Info().
		Str("policy", string(executor.Policy())).
		Int("slots", executor.Slots()).
		Msg("Inference executor configured")

	var client *inference.Client
	if cfg.STT.Provider == "sidecar" || (cfg.Diarization.Enabled && cfg.Diarization.Provider == "sidecar") {
		client, err = inference.NewClient(inference.ClientConfig{
			Endpoint:   cfg.Inference.Endpoint,
			APIKey:     cfg.Inference.APIKey,
			Timeout:    cfg.Inference.Timeout,
			MaxRetries: cfg.Inference.MaxRetries,
			Backoff:    cfg.Inference.Backoff,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create inference client")
		}
		if cfg.Inference.HFToken == "" {
			logger.Warn().Msg("HF_TOKEN is not set, gated checkpoints will fail to load")
		}
	}

	loadCtx, cancelLoad := context.WithTimeout(ctx, cfg.Inference.LoadTimeout)
	sttModel := loadSTT(loadCtx, cfg, client, logger)
	diarizer := loadDiarizer(loadCtx, cfg, client, logger)
	cancelLoad()

	transcriber := stt.NewTranscriber(sttModel, executor, cfg.STT.Provider)

	initial := cfg.STT.DefaultLanguage
	var mirror *language.RedisMirror
	if cfg.Redis.Enabled {
		rdb, err := language.NewRedisClient(ctx, cfg.Redis.Addr)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, language is not shared across replicas")
		} else {
			defer rdb.Close()
			mirror = language.NewRedisMirror(rdb, cfg.Redis.Key)
			initial = restoreLanguage(ctx, mirror, initial, logger)
		}
	}

	store, err := language.NewStore(initial, logging.WithComponent("language"))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create language store")
	}
	if mirror != nil {
		store.SetMirror(mirror)
	}
	go store.Run(ctx)

	publisher := events.New(&events.Config{
		Enabled:         cfg.Kafka.Enabled,
		Brokers:         cfg.Kafka.Brokers,
		TopicTranscript: cfg.Kafka.TopicTranscript,
		TopicLanguage:   cfg.Kafka.TopicLanguage,
		Principal:       cfg.Kafka.Principal,
	})
	defer publisher.Close()

	clients := hub.New(logging.WithComponent("hub"))

	pipeline := &audio.Pipeline{
		Transcriber: transcriber,
		Diarizer:    diarizer,
		Executor:    executor,
		Language:    store,
		Hub:         clients,
		Events:      publisher,
		Validator:   schema.New(),
		Config: audio.PipelineConfig{
			ThresholdBytes: cfg.Audio.ThresholdBytes,
			Diarization: diarization.Config{
				WindowSeconds: cfg.Diarization.WindowSeconds,
				SampleRate:    cfg.Audio.SampleRate,
				MinSegment:    cfg.Diarization.MinSegmentSeconds,
				Params: diarization.Params{
					NumSpeakers: cfg.Diarization.NumSpeakers,
					MinSpeakers: cfg.Diarization.MinSpeakers,
					MaxSpeakers: cfg.Diarization.MaxSpeakers,
				},
			},
		},
		Logger: logging.WithComponent("stream"),
	}

	stream := ws.NewHandler(pipeline, clients, application.Ready, ws.DefaultConfig(), logging.WithComponent("ws"))
	httpServer := &http.Server{
		Addr:              ":" + cfg.Service.HTTPPort,
		Handler:           httpapi.NewRouter(application, stream),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("port", cfg.Service.HTTPPort).Msg("HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	ready := transcriber.Loaded()
	application.SetReady(ready)
	grpcServer.SetReady(ready)
	if !ready {
		logger.Error().Str("provider", transcriber.Provider()).Msg("Acoustic model not loaded, streams will be refused")
	}

	<-ctx.Done()
	logger.Info().Msg("Shutdown signal received")

	application.Shutdown()
	grpcServer.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP shutdown incomplete")
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Observability shutdown incomplete")
	}
	grpcServer.GracefulStop()
	if closer, ok := sttModel.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	log.Info().Msg("Shutdown complete")
}

// loadSTT builds the acoustic model. It returns nil when loading fails so
// the service stays up but not ready.
func loadSTT(ctx context.Context, cfg *config.Configuration, client *inference.Client, logger zerolog.Logger) stt.Model {
	start := time.Now()
	switch cfg.STT.Provider {
	case "mock":
		logger.Info().Msg("Using mock acoustic model")
		return sttmock.New(cfg.Audio.SampleRate)
	case "google":
		gcfg := sttgoogle.DefaultConfig()
		gcfg.Model = cfg.STT.GoogleModel
		a, err := sttgoogle.New(ctx, gcfg)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to create Google Speech client")
			return nil
		}
		logger.Info().Str("model", gcfg.Model).Msg("Using Google Speech-to-Text")
		return a
	default:
		a := sttsidecar.New(client, cfg.Audio.SampleRate)
		err := a.Load(ctx, cfg.STTLoadOptions())
		if err != nil {
			logger.Error().Err(err).Str("model", cfg.STT.ModelID).Msg("Failed to load acoustic model")
			return nil
		}
		logger.Info().
			Str("model", cfg.STT.ModelID).
			Dur("elapsed", time.Since(start)).
			Msg("Acoustic model loaded")
		return a
	}
}

// loadDiarizer builds the diarization model. nil disables speaker tracking.
func loadDiarizer(ctx context.Context, cfg *config.Configuration, client *inference.Client, logger zerolog.Logger) diarization.Model {
	if !cfg.Diarization.Enabled {
		logger.Info().Msg("Diarization disabled")
		return nil
	}
	if cfg.Diarization.Provider == "mock" {
		logger.Info().Msg("Using mock diarization model")
		return diarmock.New()
	}

	m := diarization.NewSidecarModel(client)
	err := m.Load(ctx, cfg.DiarizationLoadOptions())
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to load diarization model, continuing without speakers")
		return nil
	}
	logger.Info().Str("model", cfg.Diarization.ModelID).Msg("Diarization model loaded")
	return m
}

// restoreLanguage returns the language last written by another replica, or
// fallback when none is stored.
func restoreLanguage(ctx context.Context, mirror *language.RedisMirror, fallback string, logger zerolog.Logger) string {
	lang, found, err := mirror.Load(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read shared language")
		return fallback
	}
	if !found || !stt.IsSupported(lang) {
		return fallback
	}
	logger.Info().Str("language", lang).Msg("Restored shared language")
	return lang
}
