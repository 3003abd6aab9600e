package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/user/vidnest/internal/auth"
	"github.com/user/vidnest/internal/bot"
	"github.com/user/vidnest/internal/config"
	"github.com/user/vidnest/internal/library"
	"github.com/user/vidnest/internal/mail"
	"github.com/user/vidnest/internal/metadata"
	"github.com/user/vidnest/internal/preview"
	"github.com/user/vidnest/internal/scheduler"
	"github.com/user/vidnest/internal/server"
	"github.com/user/vidnest/internal/store"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout = 30 * time.Second
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to read .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Open(&cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	log.Info().Str("driver", cfg.DB.Driver).Msg("Database connection established")

	fetcher := metadata.NewMicrolinkFetcher(&metadata.FetcherConfig{
		APIURL:    cfg.Metadata.APIURL,
		APIKey:    cfg.Metadata.APIKey,
		Timeout:   cfg.Metadata.Timeout,
		UserAgent: cfg.Metadata.UserAgent,
		RateLimit: cfg.Metadata.RateLimit,
	})
	pipeline := metadata.NewPipeline(fetcher)

	previewCfg := preview.DefaultConfig()
	previewCfg.Timeout = cfg.Preview.Timeout
	previewCfg.BrowserEnabled = cfg.Preview.BrowserEnabled
	var renderer preview.Renderer
	if cfg.Preview.BrowserEnabled {
		renderer = preview.NewBrowser(previewCfg.UserAgent)
		log.Info().Msg("Headless browser preview fallback enabled")
	}
	previews := preview.NewService(previewCfg, renderer)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL)
	lib := library.NewService(db, pipeline)
	accounts := library.NewAccounts(db, tokens, mail.New(&cfg.Mail), library.AccountsConfig{
		PublicURL:     cfg.Server.PublicURL,
		ResetTokenTTL: cfg.Auth.ResetTokenTTL,
		LinkCodeTTL:   cfg.Auth.LinkCodeTTL,
	})

	httpServer := server.NewServer(cfg, server.Deps{
		Store:    db,
		Library:  lib,
		Accounts: accounts,
		Tokens:   tokens,
		Preview:  previews,
	})

	sched := scheduler.NewScheduler(db, &cfg.Maintenance)

	var telegramClient *bot.Client
	if cfg.Bot.Enabled() {
		telegramClient, err = bot.NewClient(cfg.Bot.Token)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Telegram client")
		}
		log.Info().Str("username", telegramClient.Username()).Msg("Telegram share bot initialized")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpServer.Start(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	sched.Start(ctx)

	if telegramClient != nil {
		botHandler := bot.NewHandler(lib, accounts, telegramClient)
		go func() {
			log.Info().Msg("Starting Telegram bot polling")
			botHandler.Run(ctx, telegramClient.GetUpdates())
		}()
	}

	log.Info().Msg("VidNest started successfully")

	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	log.Info().Msg("Starting graceful shutdown...")

	sched.Stop()

	if telegramClient != nil {
		telegramClient.StopReceivingUpdates()
		log.Info().Msg("Telegram bot polling stopped")
	}

	if err := httpServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping HTTP server")
	} else {
		log.Info().Msg("HTTP server stopped")
	}

	if err := previews.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing preview browser")
	}

	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database connection")
	} else {
		log.Info().Msg("Database connection closed")
	}

	cancel()

	select {
	case <-shutdownCtx.Done():
		if shutdownCtx.Err() == context.DeadlineExceeded {
			log.Warn().Msg("Shutdown timeout exceeded, forcing exit")
		}
	default:
		log.Info().Msg("Graceful shutdown completed")
	}
}
