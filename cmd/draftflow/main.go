package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmt-lab/draftflow/internal/auth"
	"github.com/mmt-lab/draftflow/internal/catalog"
	corecfg "github.com/mmt-lab/draftflow/internal/core/config"
	"github.com/mmt-lab/draftflow/internal/core/storage"
	"github.com/mmt-lab/draftflow/internal/core/storage/memory"
	"github.com/mmt-lab/draftflow/internal/core/storage/postgres"
	"github.com/mmt-lab/draftflow/internal/lifecycle"
	"github.com/mmt-lab/draftflow/internal/metrics"
	"github.com/mmt-lab/draftflow/internal/migrations"
	"github.com/mmt-lab/draftflow/internal/notify"
	"github.com/mmt-lab/draftflow/internal/pagemap"
	"github.com/mmt-lab/draftflow/internal/server"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)
	slog.Info("Loaded config",
		"database", cfg.Database.Type,
		"catalog", cfg.Catalog.BaseURL,
		"notification_backend", cfg.Notification.Backend,
		"metrics", cfg.Metrics.Enabled)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Draftflow stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}

func run(ctx context.Context, cfg *corecfg.Config) error {
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), cfg.Server.Mode)

	// 2. Metrics
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
		srv.MountMetrics(m.Handler())
	}

	// 3. Draft storage
	store, closeStore, err := openStore(cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()
	srv.AddHealthCheck("database", store)

	// 4. Catalog client and page mapping
	pages, err := pagemap.LoadFile(cfg.Catalog.PageMapFile)
	if err != nil {
		return fmt.Errorf("failed to load page map: %w", err)
	}
	catalogOpts := catalog.Options{
		BaseURL:     cfg.Catalog.BaseURL,
		Timeout:     cfg.Catalog.Timeout,
		TokenHeader: cfg.Catalog.TokenHeader,
		ClientID:    cfg.Catalog.ClientID,
	}
	if m != nil {
		catalogOpts.Observer = m
	}
	catalogClient := catalog.NewClient(catalogOpts)

	// 5. Notifications
	var notifyObserver notify.Observer
	if m != nil {
		notifyObserver = m
	}
	dispatcher, startNotifier, err := openDispatcher(ctx, cfg.Notification, notifyObserver)
	if err != nil {
		return err
	}
	if checker, ok := dispatcher.(server.HealthChecker); ok {
		srv.AddHealthCheck("notifications", checker)
	}

	// 6. Lifecycle
	var recorder lifecycle.Recorder
	if m != nil {
		recorder = m
	}
	manager := lifecycle.NewManager(store, catalogClient, pages, dispatcher, recorder)
	handler := lifecycle.NewHandler(manager, cfg.Server.MaxBodySizeMB)

	authenticator := auth.New(auth.Options{
		SigningKey:          cfg.Auth.SigningKey,
		Issuer:              cfg.Auth.Issuer,
		Audience:            cfg.Auth.Audience,
		UserClaim:           cfg.Auth.UserClaim,
		ProviderClaim:       cfg.Auth.ProviderClaim,
		AllowProviderHeader: cfg.Auth.AllowProviderHeader,
		InsecureSkipVerify:  cfg.Auth.InsecureSkipVerify,
	})
	if cfg.Auth.SigningKey == "" {
		slog.Warn("auth.insecure_skip_verify is set; caller token signatures are not verified")
	}
	handler.RegisterRoutes(srv.API(authenticator.Middleware()))

	// 7. Start Services
	g, gctx := errgroup.WithContext(ctx)
	if startNotifier != nil {
		g.Go(func() error {
			return startNotifier(gctx)
		})
	}
	g.Go(func() error {
		return srv.Run(gctx)
	})
	return g.Wait()
}

func openStore(cfg corecfg.DatabaseConfig) (storage.DraftStore, func(), error) {
	if cfg.Type == "memory" {
		slog.Warn("Using in-memory draft store; drafts are lost on restart")
		return memory.NewDraftStore(), func() {}, nil
	}

	db, err := postgres.Open(cfg.DSN, cfg.MaxOpenConns, cfg.MaxIdleConns)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Migrations run before the adapter prepares statements against the schema.
	if err := migrations.RunMigrations(db, cfg.AutoMigrate); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	adapter, err := postgres.NewAdapter(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to initialize draft store: %w", err)
	}
	return adapter, func() {
		if err := adapter.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}, nil
}

// openDispatcher builds the configured notification dispatcher and the
// function running its workers. start is nil when nothing runs in background.
func openDispatcher(ctx context.Context, cfg corecfg.NotificationConfig, observer notify.Observer) (notify.Dispatcher, func(context.Context) error, error) {
	if cfg.Backend == "none" {
		slog.Info("Notifications disabled by config")
		return notify.Noop{}, nil, nil
	}

	var sender notify.Sender
	switch cfg.Sender {
	case "smtp":
		smtpSender, err := notify.NewSMTPSender(notify.SMTPOptions{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize smtp sender: %w", err)
		}
		sender = smtpSender
	default:
		sender = notify.LogSender{}
	}

	switch cfg.Backend {
	case "redis":
		q, err := notify.NewRedisQueue(ctx, sender, notify.RedisOptions{
			Addr:        cfg.Redis.Addr,
			Username:    cfg.Redis.Username,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			Stream:      cfg.Redis.Stream,
			Group:       cfg.Redis.Group,
			Consumer:    cfg.Redis.Consumer,
			Workers:     cfg.Workers,
			SendTimeout: cfg.SendTimeout,
			Observer:    observer,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis notification queue: %w", err)
		}
		start := func(ctx context.Context) error {
			defer q.Close()
			if err := q.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		}
		slog.Info("Notification queue initialized", "backend", "redis", "stream", cfg.Redis.Stream, "workers", cfg.Workers)
		return q, start, nil
	default:
		q := notify.NewQueue(sender, notify.QueueOptions{
			Workers:     cfg.Workers,
			BufferSize:  cfg.BufferSize,
			SendTimeout: cfg.SendTimeout,
			Observer:    observer,
		})
		slog.Info("Notification queue initialized", "backend", "memory", "workers", cfg.Workers, "buffer_size", cfg.BufferSize)
		return q, q.Start, nil
	}
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
