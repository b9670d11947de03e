package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"github.com/gin-gonic/gin"

	"github.com/srgchrksv/pdfpodcaster/config"
	"github.com/srgchrksv/pdfpodcaster/handlers"
	"github.com/srgchrksv/pdfpodcaster/logger"
	"github.com/srgchrksv/pdfpodcaster/routes"
	"github.com/srgchrksv/pdfpodcaster/services"
	"github.com/srgchrksv/pdfpodcaster/storage"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (default $CONFIG_FILE or config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	log := logger.New(cfg.LogLevel, cfg.LogFormat, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if missing := cfg.MissingCredentials(); len(missing) > 0 {
		log.Warn().Strs("missing", missing).Msg("credentials not configured; uploads will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: 5 * time.Minute}
	openai := services.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, httpClient)

	var extractor services.TextExtractor
	switch cfg.OCRProvider {
	case "local":
		extractor = services.PDFTextExtractor{}
	default:
		mistral := services.NewMistralClient(cfg.MistralAPIKey, cfg.MistralBaseURL, httpClient)
		extractor = services.NewOCRExtractor(mistral, cfg.OCRModel)
	}

	var completer services.Completer
	switch cfg.LLMProvider {
	case "openai":
		completer = services.NewOpenAICompleter(openai, cfg.OpenAIModel)
	default:
		gemini, err := services.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatal().Err(err).Msg("create gemini client")
		}
		defer gemini.Close()
		completer = gemini
	}

	var speech services.SpeechSynthesizer
	switch cfg.TTSProvider {
	case "google":
		client, err := texttospeech.NewClient(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("create text-to-speech client")
		}
		defer client.Close()
		speech = services.NewGoogleSpeech(client, cfg.GoogleTTSLanguage)
	default:
		speech = services.NewOpenAISpeech(openai)
	}

	publisher, err := newPublisher(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create audio publisher")
	}

	db := storage.NewGridDB(cfg.GridDBURL, cfg.GridDBUsername, cfg.GridDBPassword, &http.Client{Timeout: 30 * time.Second})
	artifacts := storage.NewArtifactStore(db, cfg.GridDBContainer, log)
	if err := artifacts.EnsureContainer(ctx); err != nil {
		log.Warn().Err(err).Str("container", cfg.GridDBContainer).Msg("container not ready; retrying on first insert")
	}

	if err := os.MkdirAll(cfg.AudioDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("create audio dir")
	}

	pipeline := services.NewPipeline(services.PipelineConfig{
		Extractor: extractor,
		Scripts:   services.NewScriptGenerator(completer),
		Audio:     services.NewAudioSynthesizer(speech, log),
		Publisher: publisher,
		Store:     artifacts,
		AudioOpts: services.AudioOptions{
			Model:        cfg.TTSModel,
			Voice:        cfg.TTSVoice,
			Instructions: cfg.TTSInstructions,
			Format:       cfg.TTSFormat,
			OutputDir:    cfg.AudioDir,
		},
		ScratchDir: cfg.ScratchDir,
		Logger:     log,
	})

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	h := handlers.New(pipeline, artifacts, storage.NewStorage(), cfg.AllowedOrigins, log)
	if err := routes.RegisterRoutes(r, h, routes.Options{
		SessionSecret:  cfg.SessionSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		PublicDir:      cfg.PublicDir,
		AudioDir:       cfg.AudioDir,
		Logger:         log,
	}); err != nil {
		log.Fatal().Err(err).Msg("register routes")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		// Generation runs inside the request.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Str("ocr", cfg.OCRProvider).Str("llm", cfg.LLMProvider).Str("tts", cfg.TTSProvider).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}

func newPublisher(ctx context.Context, cfg config.Config) (services.AudioPublisher, error) {
	if cfg.MinioEndpoint != "" {
		p, err := storage.NewMinioPublisher(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL, cfg.MinioURLExpiry)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	p, err := storage.NewLocalPublisher(cfg.PublicDir)
	if err != nil {
		return nil, err
	}
	return p, nil
}
