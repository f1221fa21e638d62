package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yigit/unisync/internal/app/projectors"
	appRepos "github.com/yigit/unisync/internal/app/repositories"
	appServices "github.com/yigit/unisync/internal/app/services"
	"github.com/yigit/unisync/internal/config"
	"github.com/yigit/unisync/internal/db"
	"github.com/yigit/unisync/internal/db/memory"
	"github.com/yigit/unisync/internal/pkg/filestorage"
	"github.com/yigit/unisync/internal/pkg/logger"
	"github.com/yigit/unisync/internal/pkg/metrics"
)

// DerivedStore is the lifecycle every derived store adapter shares.
type DerivedStore interface {
	Reset(ctx context.Context) error
	Close(ctx context.Context) error
}

// Stores holds the opened store of record and the enabled derived stores.
type Stores struct {
	Relational appRepos.RelationalStore

	Graph    projectors.GraphStore
	Document projectors.DocumentStore
	Cache    projectors.CacheStore
	Search   projectors.SearchStore

	// derived is in projector order so Reset and Close are deterministic
	derived []namedStore
}

type namedStore struct {
	name  string
	store DerivedStore
}

// Dependencies holds everything a command needs once the stores are open
type Dependencies struct {
	Config      *config.Config
	Stores      *Stores
	Metrics     *metrics.Recorder
	Registry    *prometheus.Registry
	Retry       *appServices.RetryPolicy
	Archive     *appServices.ReportArchive
	SyncService *appServices.SyncService
	Logger      zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupRelational connects to the store of record and applies the schema.
func SetupRelational(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (appRepos.RelationalStore, error) {
	lgr.Info().Str("driver", cfg.Relational.Driver).Msg("Establishing database connection...")

	var store interface {
		appRepos.RelationalStore
		Migrate(ctx context.Context) error
	}
	switch cfg.Relational.Driver {
	case "postgres":
		pg, err := db.NewPostgresDB(ctx, cfg)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to connect to database")
			return nil, err
		}
		store = appRepos.NewPostgresWriter(pg, cfg.Relational.BatchSize)
	case "sqlite":
		lite, err := db.OpenSQLite(ctx, cfg.Relational.SQLitePath)
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to open database")
			return nil, err
		}
		store = appRepos.NewSQLiteWriter(lite, cfg.Relational.BatchSize)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Relational.Driver)
	}
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	if err := store.Migrate(ctx); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		_ = store.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	return store, nil
}

// OpenStores opens the store of record and every enabled derived store. Stores opened
// before a failure are closed again.
func OpenStores(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (*Stores, error) {
	relational, err := SetupRelational(ctx, cfg, lgr)
	if err != nil {
		return nil, err
	}
	s := &Stores{Relational: relational}

	open := func(name string, enabled bool, driver string, connect func() (DerivedStore, error), inMemory func() DerivedStore) error {
		if !enabled {
			lgr.Info().Str("store", name).Msg("Derived store disabled")
			return nil
		}
		var store DerivedStore
		if driver == "memory" {
			store = inMemory()
		} else {
			var err error
			if store, err = connect(); err != nil {
				lgr.Error().Err(err).Str("store", name).Msg("Failed to connect to derived store")
				return fmt.Errorf("failed to open %s store: %w", name, err)
			}
		}
		s.derived = append(s.derived, namedStore{name: name, store: store})
		lgr.Info().Str("store", name).Str("driver", driver).Msg("Derived store connected")
		return nil
	}

	err = errors.Join(
		open(projectors.StoreGraph, cfg.Graph.Enabled, cfg.Graph.Driver,
			func() (DerivedStore, error) { return db.NewNeo4jGraph(ctx, cfg) },
			func() DerivedStore { return memory.NewGraph() }),
		open(projectors.StoreDocument, cfg.Document.Enabled, cfg.Document.Driver,
			func() (DerivedStore, error) { return db.NewMongoDocuments(ctx, cfg) },
			func() DerivedStore { return memory.NewDocuments() }),
		open(projectors.StoreCache, cfg.Cache.Enabled, cfg.Cache.Driver,
			func() (DerivedStore, error) { return db.NewRedisCache(ctx, cfg) },
			func() DerivedStore { return memory.NewCache() }),
		open(projectors.StoreSearch, cfg.Search.Enabled, cfg.Search.Driver,
			func() (DerivedStore, error) { return db.NewElasticSearch(ctx, cfg) },
			func() DerivedStore { return memory.NewSearch() }),
	)
	if err != nil {
		_ = s.Close(context.WithoutCancel(ctx))
		return nil, err
	}

	for _, d := range s.derived {
		switch d.name {
		case projectors.StoreGraph:
			s.Graph = d.store.(projectors.GraphStore)
		case projectors.StoreDocument:
			s.Document = d.store.(projectors.DocumentStore)
		case projectors.StoreCache:
			s.Cache = d.store.(projectors.CacheStore)
		case projectors.StoreSearch:
			s.Search = d.store.(projectors.SearchStore)
		}
	}
	return s, nil
}

// Projectors builds one projector per enabled derived store.
func (s *Stores) Projectors(cfg *config.Config, retry projectors.Retrier, lgr zerolog.Logger) []projectors.Projector {
	var out []projectors.Projector
	if s.Graph != nil {
		out = append(out, projectors.NewGraphProjector(s.Graph, retry, lgr))
	}
	if s.Document != nil {
		out = append(out, projectors.NewDocumentProjector(s.Document, retry, lgr))
	}
	if s.Cache != nil {
		out = append(out, projectors.NewCacheProjector(s.Cache, retry, lgr))
	}
	if s.Search != nil {
		out = append(out, projectors.NewSearchIndexer(s.Search, retry, projectors.SearchIndexes{
			Sessions:  cfg.Search.SessionsIndex,
			Materials: cfg.Search.MaterialsIndex,
		}, lgr))
	}
	return out
}

// Reset empties every store: derived views first, then the store of record.
func (s *Stores) Reset(ctx context.Context) error {
	var errs []error
	for _, d := range s.derived {
		if err := d.store.Reset(ctx); err != nil {
			errs = append(errs, fmt.Errorf("reset %s: %w", d.name, err))
		}
	}
	if s.Relational != nil {
		if err := s.Relational.Reset(ctx); err != nil {
			errs = append(errs, fmt.Errorf("reset %s: %w", appRepos.StoreName, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases every opened store.
func (s *Stores) Close(ctx context.Context) error {
	var errs []error
	for _, d := range s.derived {
		if err := d.store.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", d.name, err))
		}
	}
	if s.Relational != nil {
		if err := s.Relational.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", appRepos.StoreName, err))
		}
	}
	return errors.Join(errs...)
}

// SetupArchive opens the report archive on the configured file storage.
func SetupArchive(ctx context.Context, cfg *config.Config) (*appServices.ReportArchive, error) {
	storage, err := filestorage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open report storage: %w", err)
	}
	return appServices.NewReportArchive(storage), nil
}

// BuildDependencies wires the coordinator on top of opened stores.
func BuildDependencies(ctx context.Context, cfg *config.Config, stores *Stores, reg *prometheus.Registry, lgr zerolog.Logger) (*Dependencies, error) {
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	archive, err := SetupArchive(ctx, cfg)
	if err != nil {
		return nil, err
	}

	retry := appServices.NewRetryPolicy(cfg, recorder, lgr)
	svc := appServices.NewSyncService(stores.Relational, stores.Projectors(cfg, retry, lgr), retry, archive, recorder, lgr)

	return &Dependencies{
		Config:      cfg,
		Stores:      stores,
		Metrics:     recorder,
		Registry:    reg,
		Retry:       retry,
		Archive:     archive,
		SyncService: svc,
		Logger:      lgr,
	}, nil
}

// WithStores opens the stores, runs fn with the wired dependencies and closes the stores
// once fn returns, whatever its outcome.
func WithStores(ctx context.Context, cfg *config.Config, lgr zerolog.Logger, fn func(ctx context.Context, deps *Dependencies) error) (err error) {
	stores, err := OpenStores(ctx, cfg, lgr)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stores.Close(context.WithoutCancel(ctx)); cerr != nil {
			lgr.Error().Err(cerr).Msg("Failed to close stores")
			err = errors.Join(err, cerr)
		}
	}()

	deps, err := BuildDependencies(ctx, cfg, stores, prometheus.NewRegistry(), lgr)
	if err != nil {
		return err
	}
	return fn(ctx, deps)
}
