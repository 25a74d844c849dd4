package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/neuland-ingolstadt/campus-client/internal/adapter/outbound/file"
	"github.com/neuland-ingolstadt/campus-client/internal/adapter/outbound/memory"
	redisadapter "github.com/neuland-ingolstadt/campus-client/internal/adapter/outbound/redis"
	"github.com/neuland-ingolstadt/campus-client/internal/adapter/outbound/sqlite"
	"github.com/neuland-ingolstadt/campus-client/internal/adapter/outbound/thi"
	"github.com/neuland-ingolstadt/campus-client/internal/config"
	"github.com/neuland-ingolstadt/campus-client/internal/domain/campus"
	"github.com/neuland-ingolstadt/campus-client/internal/domain/session"
	"github.com/neuland-ingolstadt/campus-client/internal/metrics"
	"github.com/neuland-ingolstadt/campus-client/internal/service"
)

// app bundles the wired services for one CLI invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	sessions *service.SessionService
	client   *service.CampusService
	library  *service.LibraryService
	closers  []io.Closer
}

// newApp loads the configuration and wires transport, stores and services.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))

	transportOpts := []thi.Option{
		thi.WithTimeout(cfg.HTTPTimeout()),
		thi.WithLogger(logger),
	}
	if cfg.UserAgent != "" {
		transportOpts = append(transportOpts, thi.WithUserAgent(cfg.UserAgent))
	}
	transport := thi.New(cfg.Endpoint, transportOpts...)

	a := &app{cfg: cfg, logger: logger}

	cache, err := a.buildCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	sessionStore := file.NewSessionStore(cfg.Session.Path, logger)
	creds := session.Static(cfg.Username, cfg.Password)
	m := metrics.New(prometheus.NewRegistry())

	a.sessions = service.NewSessionService(transport, sessionStore, creds,
		service.WithSessionLogger(logger),
		service.WithSessionMetrics(m),
	)
	a.sessions.Resume(ctx)

	a.client = service.NewCampusService(transport, a.sessions, cache,
		service.WithCampusLogger(logger),
		service.WithCampusMetrics(m),
	)
	a.library = service.NewLibraryService(a.client,
		service.WithLibraryLogger(logger),
		service.WithLibraryMetrics(m),
	)

	return a, nil
}

// buildCache selects the cache store per configuration.
func (a *app) buildCache(ctx context.Context, cfg *config.Config) (campus.CacheStore, error) {
	switch cfg.Cache.Backend {
	case "sqlite":
		cache, err := sqlite.New(cfg.Cache.Path, a.logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite cache: %w", err)
		}
		a.closers = append(a.closers, cache)
		return cache, nil

	case "redis":
		cache, err := redisadapter.New(ctx, redisadapter.Config{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.RedisEntryTTL(),
		})
		if err != nil {
			return nil, fmt.Errorf("open redis cache: %w", err)
		}
		a.closers = append(a.closers, cache)
		return cache, nil

	default:
		return memory.NewCache(), nil
	}
}

// close releases backend connections.
func (a *app) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

// parseLogLevel converts a string log level to slog.Level.
// Returns slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
