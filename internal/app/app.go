// Package app assembles the translation service from configuration: the
// SQLite store, the notification pipeline, the shared cache tier, the
// resolution engine, the search predicates, and the HTTP router.
//
// Commands build an App once, use the pieces they need, and Close it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-polyglot/docs"
	"github.com/tbourn/go-polyglot/internal/cache"
	"github.com/tbourn/go-polyglot/internal/config"
	"github.com/tbourn/go-polyglot/internal/domain"
	"github.com/tbourn/go-polyglot/internal/events"
	httpapi "github.com/tbourn/go-polyglot/internal/http"
	"github.com/tbourn/go-polyglot/internal/locale"
	"github.com/tbourn/go-polyglot/internal/observability"
	"github.com/tbourn/go-polyglot/internal/predicate"
	"github.com/tbourn/go-polyglot/internal/repo"
	"github.com/tbourn/go-polyglot/internal/services"
	"github.com/tbourn/go-polyglot/internal/translation"
)

// Version is stamped at build time with -ldflags "-X ...app.Version=...".
var Version = "dev"

// eventBuffer bounds the asynchronous notification queue.
const eventBuffer = 256

// shutdownTimeout caps graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// App holds the wired components. Fields are read-only after Build.
type App struct {
	Config config.Config
	Log    zerolog.Logger

	DB          *gorm.DB
	Locales     *locale.Registry
	Store       *repo.TranslationStore
	Entities    *repo.EntityRegistry
	Cache       *cache.TranslationCache
	Engine      *translation.Engine
	Search      *predicate.Builder
	Posts       *services.PostService
	Maintenance *services.Maintenance
	Idempotency *services.Idempotency

	closers []func(context.Context) error
}

// Build opens the database, migrates it and wires every component. Tracing
// is installed when cfg.OTEL.Enabled. The caller owns the returned App and
// must Close it.
func Build(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	shutdown, err := observability.SetupOTel(ctx, cfg.OTEL, observability.TracingInfo{
		Version:          Version,
		SourceLocale:     cfg.Polyglot.SourceLocale,
		SupportedLocales: cfg.Polyglot.SupportedLocales,
	})
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	db, err := repo.OpenSQLite(cfg.DBPath, &gorm.Config{Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel))})
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	if cfg.OTEL.Enabled {
		if err := observability.InstrumentDB(db); err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("instrument database: %w", err)
		}
	}
	if err := repo.AutoMigrate(db, cfg.Polyglot.TableName); err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a.Locales = locale.NewRegistry(cfg.Polyglot)
	a.Entities = repo.DefaultEntities(db)

	sink := events.NewAsyncSink(events.Fanout{
		events.LogSink{Log: log.With().Str("component", "events").Logger()},
		events.MetricsSink{},
	}, eventBuffer)
	// Closed before the database so queued events can still be logged.
	a.closers = append(a.closers, func(context.Context) error { sink.Close(); return nil })
	a.Store = repo.NewTranslationStore(db, cfg.Polyglot.TableName, events.NewDispatcher(cfg.Polyglot.EventsEnabled, sink))

	a.Cache = cache.New(SharedCache(cfg.Polyglot.Cache, db), cache.Options{
		Enabled: cfg.Polyglot.Cache.Enabled,
		TTL:     cfg.Polyglot.Cache.TTL,
		Prefix:  cfg.Polyglot.Cache.Prefix,
	})

	ambient := locale.ContextProvider{Default: a.Locales.Default()}
	a.Engine = translation.NewEngine(a.Locales, a.Store, a.Cache, repo.EntityWriter{DB: db}, ambient)

	postType, ok := a.Entities.Lookup(domain.PostType)
	if !ok {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("entity type %q is not registered", domain.PostType)
	}
	a.Search, err = predicate.New(cfg.Polyglot.TableName, postType, a.Entities, a.Locales.Source(), ambient)
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("search predicates: %w", err)
	}

	a.Posts = services.NewPostService(db, a.Engine, a.Search)
	a.Maintenance = services.NewMaintenance(a.Store, a.Entities)
	a.Idempotency = services.NewIdempotency(db, cfg.IdempotencyTTL)

	log.Info().
		Str("db_path", cfg.DBPath).
		Str("source_locale", a.Locales.Source()).
		Str("fallback_locale", a.Locales.Fallback()).
		Strs("supported_locales", a.Locales.Supported()).
		Str("cache_driver", cfg.Polyglot.Cache.Driver).
		Bool("cache_enabled", cfg.Polyglot.Cache.Enabled).
		Bool("events_enabled", cfg.Polyglot.EventsEnabled).
		Msg("polyglot ready")
	return a, nil
}

// SharedCache picks the shared tier for the configured driver.
func SharedCache(cc config.CacheConfig, db *gorm.DB) cache.Shared {
	switch cc.Driver {
	case config.CacheDriverDatabase:
		return repo.NewDBCache(db)
	case config.CacheDriverNone:
		return cache.Noop{}
	default:
		return cache.NewMemory(cc.Capacity, cc.TTL)
	}
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		return logger.Info
	case "info", "warn":
		return logger.Warn
	case "error":
		return logger.Error
	default:
		return logger.Silent
	}
}

// Router returns the gin engine with every route registered.
func (a *App) Router() *gin.Engine {
	gin.SetMode(a.Config.GinMode)
	docs.SwaggerInfo.Version = Version

	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		Locales:     a.Locales,
		Posts:       a.Posts,
		Maintenance: a.Maintenance,
		Idempotency: a.Idempotency,
	}, a.Config)
	return r
}

// Server returns an http.Server for the router using the configured
// timeouts and header limit.
func (a *App) Server() *http.Server {
	return &http.Server{
		Addr:              ":" + a.Config.Port,
		Handler:           a.Router(),
		ReadTimeout:       a.Config.ReadTimeout,
		ReadHeaderTimeout: a.Config.ReadHeaderTimeout,
		WriteTimeout:      a.Config.WriteTimeout,
		IdleTimeout:       a.Config.IdleTimeout,
		MaxHeaderBytes:    a.Config.MaxHeaderBytes,
	}
}

// ListenAndServe listens on the configured port and serves until ctx is
// cancelled.
func (a *App) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+a.Config.Port)
	if err != nil {
		return err
	}
	return a.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts the
// server down gracefully. A clean shutdown returns nil.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := a.Server()
	errc := make(chan error, 1)
	go func() {
		a.Log.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.Log.Info().Msg("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases resources in reverse order of acquisition and returns
// the first error.
func (a *App) Close(ctx context.Context) error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}
