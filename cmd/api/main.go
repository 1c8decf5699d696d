package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"checkin-calls/internal/auth"
	"checkin-calls/internal/calls"
	"checkin-calls/internal/config"
	"checkin-calls/internal/conversation"
	"checkin-calls/internal/httpapi"
	"checkin-calls/internal/observability"
	"checkin-calls/internal/speech"
	"checkin-calls/internal/summary"
	"checkin-calls/internal/telephony"
	"checkin-calls/pkg/logger"
	"checkin-calls/pkg/utils"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

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

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	var locker telephony.TurnLocker = telephony.NewMemoryTurnLocker()
	if cfg.RedisEnabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		locker = telephony.NewRedisTurnLocker(rdb, 15*time.Second)
	} else {
		log.Info("REDIS_HOST not set; turn locks are process-local")
	}

	metrics := observability.NewMetrics("checkin", prometheus.DefaultRegisterer)

	cache := speech.NewCache(speech.CacheConfig{
		TTL:        cfg.Speech.CacheTTL,
		MaxEntries: cfg.Speech.CacheMaxEntries,
		MaxBytes:   cfg.Speech.CacheMaxBytes,
		Metrics:    metrics,
	})
	go cache.Run(rootCtx)

	synth := speech.NewSynthesizer(cache, speech.NewOpenAIBackend(cfg.OpenAI.APIKey, cfg.OpenAI.TTSModel), speech.SynthesizerConfig{
		BaseURL: cfg.App.BaseURL,
		Timeout: cfg.Speech.SpeechTimeout,
		Metrics: metrics,
	})
	summarizer := summary.New(summary.NewOpenAICompleter(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel), cfg.Speech.SummaryTimeout, metrics)

	repo := calls.NewPostgresRepo(db)
	originator := telephony.NewTwilioOriginator(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.PhoneNumber)

	deps := routeDeps{
		DB: db,
		Webhooks: telephony.WebhookHandler{
			Calls:   repo,
			Speech:  synth,
			Summary: summarizer,
			Locker:  locker,
			Secrets: conversation.RandomSecrets{},
			Metrics: metrics,
			BaseURL: cfg.App.BaseURL,
		},
		Signatures: telephony.NewSignatureValidator(cfg.Twilio.AuthToken, cfg.App.BaseURL, cfg.IsProduction()),
		Audio:      speech.AudioHandler{Cache: cache},
		API: httpapi.Handlers{
			Auth:    authManager,
			Calls:   calls.NewService(repo, originator, cfg.App.BaseURL),
			Metrics: metrics,
		},
		AuthMW: auth.RequireAccessToken(authManager),
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))
	registerRoutes(r, deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env, "base_url", cfg.App.BaseURL)
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

type routeDeps struct {
	DB         *sql.DB
	Webhooks   telephony.WebhookHandler
	Signatures *telephony.SignatureValidator
	Audio      speech.AudioHandler
	API        httpapi.Handlers
	AuthMW     gin.HandlerFunc
}
