package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Zachkp/folio/internal/analytics"
	"github.com/Zachkp/folio/internal/config"
	"github.com/Zachkp/folio/internal/contact"
	"github.com/Zachkp/folio/internal/draft"
	"github.com/Zachkp/folio/internal/gate"
	"github.com/Zachkp/folio/internal/kv"
	"github.com/Zachkp/folio/internal/logging"
	"github.com/Zachkp/folio/internal/portfolio"
	"github.com/Zachkp/folio/internal/prompts"
	"github.com/Zachkp/folio/internal/viewport"
	"github.com/Zachkp/folio/web"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 10 * time.Second
	maxLoadBackoff  = 30 * time.Second
)

func main() {
	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Release())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, cleanup, err := newServer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialise server", zap.Error(err))
	}
	defer cleanup()

	go loadProjects(ctx, s.projects, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: viewport event streams stay open for the page's lifetime.
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Port), zap.String("store", cfg.Store.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Server shutting down...")

	// End event streams first so Shutdown is not left waiting on them.
	s.views.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited")
}

// newServer opens storage and builds every component. cleanup releases them
// in reverse order.
func newServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*server, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*server, func(), error) {
		cleanup()
		return nil, nil, err
	}

	var db *sql.DB
	if cfg.Store.Backend == kv.BackendSQLite || cfg.Analytics.Enabled {
		if dir := filepath.Dir(cfg.Store.SQLitePath); dir != "." && cfg.Store.SQLitePath != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fail(fmt.Errorf("create data directory: %w", err))
			}
		}
		var err error
		db, err = kv.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, func() { _ = db.Close() })
	}

	store, err := kv.Open(ctx, kv.Options{
		Backend:       cfg.Store.Backend,
		SQLite:        db,
		RedisAddr:     cfg.Store.RedisAddr,
		RedisPassword: cfg.Store.RedisPassword,
		RedisDB:       cfg.Store.RedisDB,
		PostgresURL:   cfg.Store.DatabaseURL,
		QuotaBytes:    cfg.Store.QuotaBytes,
	})
	if err != nil {
		return fail(fmt.Errorf("open %s store: %w", cfg.Store.Backend, err))
	}
	closers = append(closers, func() { _ = store.Close() })

	completer, err := draft.NewCompleter(cfg.AI.Provider, cfg.AI.APIKey, cfg.AI.BaseURL)
	if err != nil {
		return fail(err)
	}
	model := cfg.AI.Model
	if model == "" {
		model = draft.DefaultModels[cfg.AI.Provider]
	}

	hub := viewport.NewHub(Sections, viewport.Options{
		Mode:     viewport.Mode(cfg.Viewport.Mode),
		LeadIn:   cfg.Viewport.LeadIn,
		Interval: cfg.Viewport.Throttle,
	}, logger)
	hub.SetMaxViews(cfg.Viewport.MaxViews)
	closers = append(closers, hub.Close)

	tmpl, err := web.Templates()
	if err != nil {
		return fail(fmt.Errorf("parse templates: %w", err))
	}
	library, err := prompts.Load(cfg.Prompts.File)
	if err != nil {
		return fail(err)
	}

	s := &server{
		cfg:       cfg,
		logger:    logger,
		projects:  portfolio.NewStore(store, logger, portfolio.WithKey(cfg.Store.ProjectsKey)),
		gate:      gate.New(cfg.Admin.Passphrase, cfg.Admin.SessionSecret, cfg.SecureCookies, logger),
		drafts:    draft.NewAssistant(completer, model, cfg.AI.Timeout, logger),
		views:     hub,
		mailer:    contact.NewSMTPMailer(contactConfig(cfg), logger),
		limiter:   contact.NewLimiter(cfg.Contact.PerHour, cfg.Contact.Burst),
		templates: tmpl,
		terminal:  contact.NewLimiter(cfg.Terminal.PerHour, cfg.Terminal.Burst),
		library:   library,
	}

	var jobs *cron.Cron
	if cfg.Analytics.Enabled {
		s.visitors, err = analytics.New(ctx, db, cfg.Analytics.Salt, logger)
		if err != nil {
			return fail(fmt.Errorf("initialise visitor tracking: %w", err))
		}
		if err := s.visitors.EnsureLink(ctx, xcloudCode, cfg.Analytics.XCloudURL); err != nil {
			return fail(err)
		}
		jobs, err = s.visitors.ScheduleCleanup(cfg.Analytics.CleanupSchedule, cfg.Analytics.Retention)
		if err != nil {
			return fail(fmt.Errorf("schedule visitor cleanup: %w", err))
		}
		logger.Info("Privacy-conscious visitor tracking initialized")
	} else {
		jobs = cron.New()
		jobs.Start()
	}
	closers = append(closers, func() { <-jobs.Stop().Done() })

	if _, err := jobs.AddFunc("@hourly", func() {
		s.limiter.Prune(time.Hour)
		s.terminal.Prune(time.Hour)
	}); err != nil {
		return fail(err)
	}

	if s.drafts.Enabled() {
		logger.Info("Description drafting enabled", zap.String("provider", cfg.AI.Provider), zap.String("model", model))
	}
	return s, cleanup, nil
}

func contactConfig(cfg *config.Config) contact.SMTPConfig {
	return contact.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		To:       cfg.SMTP.To,
	}
}

// loadProjects retries Load with backoff until the store is ready or ctx ends.
// Until then the site renders placeholders and mutations report not ready.
func loadProjects(ctx context.Context, projects *portfolio.Store, logger *zap.Logger) {
	backoff := time.Second
	for {
		err := projects.Load(ctx)
		if err == nil {
			return
		}
		logger.Warn("Project load failed, retrying", zap.Duration("backoff", backoff), zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < maxLoadBackoff {
			backoff *= 2
		}
	}
}
