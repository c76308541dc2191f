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

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"aurora-dashboard/internal/apikey"
	"aurora-dashboard/internal/audit"
	"aurora-dashboard/internal/auth"
	"aurora-dashboard/internal/cache"
	"aurora-dashboard/internal/calls"
	"aurora-dashboard/internal/config"
	"aurora-dashboard/internal/customers"
	"aurora-dashboard/internal/events"
	"aurora-dashboard/internal/httpapi"
	"aurora-dashboard/internal/ingest"
	"aurora-dashboard/internal/llm"
	"aurora-dashboard/internal/migrations"
	"aurora-dashboard/internal/notify"
	"aurora-dashboard/internal/payload"
	"aurora-dashboard/internal/realtime"
	"aurora-dashboard/internal/reporting"
	"aurora-dashboard/internal/satisfaction"
	"aurora-dashboard/internal/vapi"
	"aurora-dashboard/pkg/logger"
	"aurora-dashboard/pkg/utils"
)

func main() {
	// A missing .env is normal outside local development.
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

	if err := migrations.Apply(rootCtx, db); err != nil {
		log.Error("schema migration failed", "err", err)
		os.Exit(1)
	}

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr(), Password: cfg.Redis.Password})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Realtime: NATS when configured, else the in-process hub.
	var (
		bus       realtime.Bus
		natsReady func() bool
	)
	if cfg.NATS.URL != "" {
		nb, err := realtime.Connect(cfg.NATS.URL, "aurora-dashboard")
		if err != nil {
			log.Error("nats init failed", "err", err)
			os.Exit(1)
		}
		defer nb.Close()
		bus, natsReady = nb, nb.Ready
	} else {
		log.Warn("NATS_URL not set; realtime limited to this instance")
		bus = realtime.NewHub()
	}

	// Provider key: env > operator override (Redis) > built-in default.
	keys := apikey.NewResolver(
		map[string]string{apikey.ProviderPrivateKey: cfg.VAPI.APIKey},
		apikey.NewRedisStore(rdb, ""),
		map[string]string{apikey.ProviderPrivateKey: cfg.VAPI.DefaultAPIKey},
		log,
	)
	provider := vapi.NewClient(cfg.VAPI.BaseURL, cfg.VAPI.Timeout, keys.Source(apikey.ProviderPrivateKey), log)

	customerSvc := customers.NewService(customers.NewPostgresRepo(db))
	callRepo := calls.NewPostgresRepo(db)
	syncSvc := calls.NewSyncService(callRepo, provider, customerSvc, utils.NewSlotLimiter(rdb, cfg.Sync.LockTTL), log)
	syncSvc.Lookback = cfg.Sync.Lookback

	stats := reporting.NewService(reporting.NewPostgresRepo(db), cache.NewRedis(rdb, "aurora:cache:"), log)
	stats.CacheTTL = cfg.Stats.CacheTTL
	stats.DurationCap = cfg.Stats.DurationCap

	// Call ratings use the model when configured, else keywords only.
	var model satisfaction.Completer
	if cfg.LLM.Enabled() {
		model = llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout, log)
	} else {
		log.Info("LLM_BASE_URL not set; call ratings use keywords only")
	}
	rater := satisfaction.NewRater(model, cache.NewRedis(rdb, "aurora:cache:"), cfg.LLM.CacheTTL, log)

	eventRepo := events.NewPostgresRepo(db)
	notifier := notify.New(cfg.Notify.PickupURLs, cfg.Notify.Timeout, log)

	handlers := httpapi.Handlers{
		Stats:         stats,
		Plans:         customerSvc,
		Agents:        customerSvc,
		Assistants:    provider,
		Calls:         callRepo,
		Rater:         rater,
		Sync:          syncSvc,
		Events:        eventRepo,
		Stream:        bus,
		Notifier:      notifier,
		Settings:      keys,
		Audit:         audit.NewService(audit.NewPostgresRepo(db)),
		DefaultLocale: payload.Locale(cfg.App.DefaultLocale),
	}
	webhook := ingest.Handler{Events: eventRepo, Publisher: bus}

	health := httpapi.Health{Checks: map[string]httpapi.Check{
		"postgres": func(ctx context.Context) error { return utils.HealthCheck(ctx, db, 2*time.Second) },
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}}
	if natsReady != nil {
		health.Checks["nats"] = func(context.Context) error {
			if !natsReady() {
				return errors.New("nats disconnected")
			}
			return nil
		}
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, routeDeps{
		auth:     auth.RequireAccessToken(authManager),
		handlers: handlers,
		webhook:  webhook,
		health:   health,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: the SSE stream is long-lived.
		IdleTimeout: 60 * time.Second,
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

	done := make(chan struct{})
	go func() {
		notifier.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn("pickup notifications still in flight at shutdown")
	}
}
