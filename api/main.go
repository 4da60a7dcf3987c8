package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"deadman/api/cache"
	"deadman/api/config"
	"deadman/api/handler"
	"deadman/api/health"
	"deadman/api/hub"
	"deadman/api/ingest"
	"deadman/api/notify"
	"deadman/api/schedule"
	"deadman/api/store"
	"deadman/api/sweep"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogDev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := store.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer db.Close()

	if err := store.Migrate(db); err != nil {
		logger.Fatal("migration", zap.Error(err))
	}

	var fastCache cache.Cache = cache.Nop{}
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(cfg.RedisURL, cfg.Tuning.CacheTTL)
		if err != nil {
			logger.Warn("cache unavailable, using store only", zap.Error(err))
		} else {
			defer rc.Close()
			fastCache = rc
			logger.Info("cache enabled", zap.Duration("ttl", cfg.Tuning.CacheTTL))
		}
	}

	var mailer notify.Mailer
	smtp, err := notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		Timeout:  cfg.Tuning.NotifyTimeout,
	})
	switch {
	case err == nil:
		mailer = smtp
	case errors.Is(err, notify.ErrNoTransport):
		logger.Warn("DEADMAN_SMTP_HOST not set, email alerts will be recorded as failed")
	default:
		logger.Fatal("smtp", zap.Error(err))
	}

	// Parse allowed origins: always include localhost, plus configured extras.
	allowedOrigins := []string{"http://localhost:5173", "http://localhost:3000"}
	if cfg.AllowedOrigins != "" {
		for _, o := range strings.Split(cfg.AllowedOrigins, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	ws := hub.New(allowedOrigins, logger)
	go ws.Run(bgCtx)

	dispatcher := notify.NewDispatcher(db, mailer, cfg.Tuning.NotifyTimeout, ws, logger)
	dispatcher.PublicURL = strings.TrimRight(cfg.PublicURL, "/")

	ingestor := &ingest.Ingestor{
		Store:    db,
		Cache:    fastCache,
		Notifier: dispatcher,
		Hub:      ws,
		Log:      logger,
	}

	sweeper := &sweep.Sweeper{
		Store:    db,
		Cache:    fastCache,
		Notifier: dispatcher,
		Hub:      ws,
		Log:      logger,
		PageSize: cfg.Tuning.SweepPageSize,
		MaxRows:  cfg.Tuning.SweepMaxRows,
		Now:      time.Now,
	}

	retrier := &notify.Retrier{
		Store:      db,
		Dispatcher: dispatcher,
		BatchSize:  cfg.Tuning.RetryBatchSize,
		Log:        logger,
		Now:        time.Now,
	}

	scheduler := schedule.New(logger)
	err = scheduler.Add("sweep", cfg.Tuning.SweepSchedule, func(ctx context.Context) error {
		res, err := sweeper.RunOnce(ctx)
		if res.Down > 0 || res.Errors > 0 {
			logger.Info("sweep: cycle done",
				zap.Int("scanned", res.Scanned),
				zap.Int("down", res.Down),
				zap.Int("suppressed", res.Suppressed),
				zap.Int("errors", res.Errors),
			)
		}
		return err
	})
	if err != nil {
		logger.Fatal("schedule sweep", zap.Error(err))
	}
	err = scheduler.Add("retry", cfg.Tuning.SweepSchedule, func(ctx context.Context) error {
		n, err := retrier.RunOnce(ctx)
		if n > 0 {
			logger.Info("retry: delivered", zap.Int("alerts", n))
		}
		return err
	})
	if err != nil {
		logger.Fatal("schedule retry", zap.Error(err))
	}
	scheduler.Start()

	probes := []health.Probe{
		{Name: "postgres", Check: db.Healthy},
		{Name: "cache", Check: fastCache.Healthy, Optional: true},
	}
	if smtp != nil {
		probes = append(probes, health.Probe{Name: "smtp", Check: smtp.Healthy, Optional: true})
	}
	poller := &health.Poller{Probes: probes, Log: logger}
	go poller.Run(bgCtx)

	h := handler.New(db, fastCache, ingestor, scheduler, poller, cfg, logger)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	// Optional bearer token auth when DEADMAN_API_TOKEN is set
	if cfg.APIToken != "" {
		r.Use(bearerAuth(cfg.APIToken))
		logger.Info("API token auth enabled")
	}

	h.Mount(r, Version)
	r.Get("/ws", ws.HandleConnect)

	srv := &http.Server{
		Addr:              cfg.BindAddr + ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("deadman listening",
			zap.String("version", Version),
			zap.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
	scheduler.Stop()
	bgCancel()
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Pings, the websocket and health stay open
			if r.URL.Path == "/ws" || r.URL.Path == "/api/health" || r.URL.Path == "/api/version" ||
				strings.HasPrefix(r.URL.Path, "/ping/") {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if subtle.ConstantTimeCompare([]byte(auth[7:]), []byte(token)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
