package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"baitboard/internal/audit"
	"baitboard/internal/auth"
	"baitboard/internal/calls"
	"baitboard/internal/config"
	"baitboard/internal/health"
	"baitboard/internal/httpapi"
	"baitboard/internal/settings"
	"baitboard/internal/social"
	"baitboard/internal/storage"
	"baitboard/internal/telephony"
	"baitboard/pkg/logger"
	"baitboard/pkg/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	callRepo := calls.NewPostgresRepo(db)
	if err := callRepo.EnsureSchema(rootCtx); err != nil {
		log.Error("call schema init failed", "err", err)
		os.Exit(1)
	}
	auditRepo := audit.NewPostgresRepo(db)
	if err := auditRepo.EnsureSchema(rootCtx); err != nil {
		log.Error("audit schema init failed", "err", err)
		os.Exit(1)
	}

	settingsStore := settings.NewStore(cfg.Settings.Path)
	if err := settingsStore.Load(); err != nil {
		// A corrupt settings file must not silently fall back to defaults.
		log.Error("settings load failed", "err", err)
		os.Exit(1)
	}

	auditSvc := audit.NewService(auditRepo)
	callSvc := calls.NewService(callRepo, settingsStore, auditSvc)
	statsSvc := calls.NewStatsService(callRepo, rdb, 0)

	// Provider and storage integrations are optional: the read-side dashboard
	// works without them and health reports the degradation.
	var (
		validator *telephony.SignatureValidator
		fetcher   telephony.RecordingFetcher
	)
	if cfg.Twilio.Configured() {
		validator = telephony.NewSignatureValidator(cfg.Twilio.AuthToken)
		fetcher = telephony.NewClient(cfg.Twilio)
	} else {
		log.Warn("twilio credentials missing; webhooks disabled")
	}

	var uploads storage.Uploader
	if cfg.Storage.Configured() {
		s3, err := storage.NewS3Store(rootCtx, cfg.Storage)
		if err != nil {
			log.Error("storage init failed", "err", err)
			os.Exit(1)
		}
		uploads = s3
	} else {
		log.Warn("object storage not configured; recordings and share cards disabled")
	}

	handlers := httpapi.Handlers{
		Auth:              authManager,
		Calls:             callSvc,
		Stats:             statsSvc,
		Settings:          settingsStore,
		Audit:             auditSvc,
		Cards:             social.Renderer{},
		Uploads:           uploads,
		AdminPasswordHash: cfg.Auth.AdminPasswordHash,
		Env:               cfg.App.Env,
		SiteName:          cfg.App.PublicBaseURL,
		Health: health.Checker{
			PingDB: func(ctx context.Context) error {
				return utils.PingPostgres(ctx, db, 2*time.Second)
			},
			TelephonyConfigured: cfg.Twilio.Configured(),
			StorageConfigured:   cfg.Storage.Configured(),
		},
	}

	webhooks := webhookHandlers{
		incoming: telephony.IncomingWebhookHandler{
			Calls:         callSvc,
			Validator:     validator,
			Personas:      settingsStore,
			PublicBaseURL: cfg.App.PublicBaseURL,
		},
		status: telephony.StatusWebhookHandler{
			Calls:         callSvc,
			Validator:     validator,
			PublicBaseURL: cfg.App.PublicBaseURL,
		},
		recording: telephony.RecordingWebhookHandler{
			Calls:         callSvc,
			Validator:     validator,
			Fetcher:       fetcher,
			Store:         uploads,
			PublicBaseURL: cfg.App.PublicBaseURL,
		},
	}

	r := gin.New()
	// Non-POST on webhook routes must answer 405, not 404.
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, handlers, webhooks, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
