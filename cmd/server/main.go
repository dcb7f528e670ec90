package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yourname/inkjournal/internal"
	"github.com/yourname/inkjournal/internal/api"
	"github.com/yourname/inkjournal/internal/auth"
	"github.com/yourname/inkjournal/internal/config"
	"github.com/yourname/inkjournal/internal/insight"
	"github.com/yourname/inkjournal/internal/llm"
	"github.com/yourname/inkjournal/internal/storage"
)

const shutdownTimeout = 10 * time.Second

type app struct {
	logger   internal.Logger
	cfg      *config.Config
	auth     auth.Provider
	insights *insight.Service
	llm      *llm.Client
}

func (a *app) Logger() internal.Logger        { return a.logger }
func (a *app) Config() *config.Config         { return a.cfg }
func (a *app) Auth() auth.Provider            { return a.auth }
func (a *app) Insights() api.InsightGenerator { return a.insights }
func (a *app) Provider() api.ProviderProbe    { return a.llm }

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := internal.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("failed to init storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Errorw("failed to close storage", "error", err)
		}
	}()

	anonCache, err := insight.NewMemoryCache(cfg.AnonCacheSize)
	if err != nil {
		logger.Fatalf("failed to init anonymous insight cache: %v", err)
	}
	cache := insight.NewOwnerCache(insight.NewStoreCache(store), anonCache)

	client := llm.NewClient(llm.Config{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		Model:      cfg.OpenAIModel,
		Timeout:    cfg.LLMTimeout,
		RatePerSec: cfg.LLMRatePerSec,
		Burst:      cfg.LLMBurst,
	}, logger)
	if !client.Available() {
		logger.Warnw("OPENAI_API_KEY not set, weekly insights will fail and future-self will fall back")
	}

	var authProvider auth.Provider
	if cfg.AuthServiceURL != "" {
		authProvider = auth.NewRemoteAuthProvider(cfg.AuthServiceURL, logger)
	} else {
		authProvider = auth.NewLocalAuthProvider(cfg.JWTSecret, logger)
	}

	a := &app{
		logger:   logger,
		cfg:      cfg,
		auth:     authProvider,
		insights: insight.NewService(store, cache, client, logger, insight.WithCacheTTL(cfg.InsightCacheTTL)),
		llm:      client,
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infow("server listening", "addr", srv.Addr, "env", cfg.Env, "storage", cfg.StorageBackend, "model", client.Model())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("graceful shutdown failed", "error", err)
	}
}
