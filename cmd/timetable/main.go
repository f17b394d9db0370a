package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/example/academy-timetable/internal/application"
	"github.com/example/academy-timetable/internal/config"
	httptransport "github.com/example/academy-timetable/internal/http"
	"github.com/example/academy-timetable/internal/logging"
	"github.com/example/academy-timetable/internal/notify"
	"github.com/example/academy-timetable/internal/persistence"
	"github.com/example/academy-timetable/internal/persistence/postgres"
	"github.com/example/academy-timetable/internal/persistence/sqlite"
	"github.com/example/academy-timetable/internal/persistence/sqlite/migration"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		slog.Error("failed to build logger", "error", err)
		os.Exit(1)
	}

	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := backend.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	origin := uuid.NewString()
	now := time.Now

	var (
		notifier application.ChangeNotifier
		rdb      *redis.Client
	)
	if cfg.RedisURL != "" {
		rdb, err = notify.NewRedisClient(ctx, cfg.RedisURL, logger)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		notifier = notify.NewPublisher(rdb, origin, now)
	}

	timetable, presets := newServices(backend, notifier, uuid.NewString, now, cfg.Location, logger)

	if rdb != nil {
		listener := notify.NewListener(timetable, origin, logger)
		go func() {
			if err := listener.Run(ctx, rdb); err != nil {
				logger.Error("change listener stopped", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           newHandler(timetable, presets, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("timetable API listening", "addr", server.Addr, "timezone", cfg.Timezone, "postgres", cfg.UsesPostgres())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// backend is the storage selected by the database URL.
type backend struct {
	sessions persistence.SessionRepository
	presets  persistence.PresetRepository
	close    func() error
}

func (b *backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// openBackend opens and migrates PostgreSQL for postgres:// URLs and SQLite otherwise.
func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	if cfg.UsesPostgres() {
		storage, err := postgres.Open(ctx, cfg.DatabaseURL, int32(cfg.DBMaxConns), logger)
		if err != nil {
			return nil, err
		}
		if err := storage.Migrate(ctx); err != nil {
			_ = storage.Close()
			return nil, err
		}
		return &backend{sessions: storage.Sessions(), presets: storage.Presets(), close: storage.Close}, nil
	}

	sqliteCfg := migration.DefaultSQLiteConfig(cfg.DatabaseURL)
	if cfg.DBMaxConns > 0 {
		sqliteCfg.MaxOpenConns = cfg.DBMaxConns
		sqliteCfg.MaxIdleConns = min(sqliteCfg.MaxIdleConns, cfg.DBMaxConns)
	}
	storage, err := sqlite.Open(sqliteCfg, logger)
	if err != nil {
		return nil, err
	}
	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		return nil, err
	}
	return &backend{sessions: storage.Sessions(), presets: storage.Presets(), close: storage.Close}, nil
}

func newServices(b *backend, notifier application.ChangeNotifier, idGenerator func() string, now func() time.Time, location *time.Location, logger *slog.Logger) (*application.TimetableService, *application.PresetService) {
	timetable := application.NewTimetableServiceWithLogger(newSessionStore(b.sessions), notifier, idGenerator, now, location, logger)
	presets := application.NewPresetServiceWithLogger(newPresetStore(b.presets), timetable, idGenerator, now, logger)
	return timetable, presets
}

func newHandler(timetable *application.TimetableService, presets *application.PresetService, logger *slog.Logger) http.Handler {
	return httptransport.NewRouter(httptransport.RouterConfig{
		Sessions: httptransport.NewSessionHandler(timetable, logger),
		Presets:  httptransport.NewPresetHandler(presets, logger),
		Middleware: []func(http.Handler) http.Handler{
			httptransport.RequestLogger(logger),
			httptransport.RequireOwner(logger),
		},
	})
}
