// Package wire provides dependency injection for the projector
// application. It creates singleton services with lazy initialization.
package wire

import (
	"database/sql"
	"io"
	"log"
	"os"
	"sync"

	cliadapter "github.com/example/projector/internal/adapters/cli"
	"github.com/example/projector/internal/adapters/feed"
	"github.com/example/projector/internal/adapters/sqlite"
	"github.com/example/projector/internal/app"
	"github.com/example/projector/internal/config"
	"github.com/example/projector/internal/core/derive"
	"github.com/example/projector/internal/db"
	"github.com/example/projector/internal/ports/primary"
	"github.com/example/projector/internal/ports/secondary"
)

var (
	cfg            *config.Config
	syncService    primary.SyncService
	monitorService primary.MonitorService
	readService    primary.ReadService
	importService  primary.ImportService
	once           sync.Once
)

// Cfg returns the loaded configuration.
func Cfg() *config.Config {
	once.Do(initServices)
	return cfg
}

// SyncService returns the singleton SyncService instance.
func SyncService() primary.SyncService {
	once.Do(initServices)
	return syncService
}

// MonitorService returns the singleton MonitorService instance.
func MonitorService() primary.MonitorService {
	once.Do(initServices)
	return monitorService
}

// ReadService returns the singleton ReadService instance.
func ReadService() primary.ReadService {
	once.Do(initServices)
	return readService
}

// ImportService returns the singleton ImportService instance.
func ImportService() primary.ImportService {
	once.Do(initServices)
	return importService
}

// FeedReader returns a new feed reader over the singleton synchronizer.
func FeedReader() *feed.Reader {
	once.Do(initServices)
	return feed.NewReader(syncService)
}

// FeedTailer returns a new tailer for the given feed file.
func FeedTailer(path string) *feed.Tailer {
	once.Do(initServices)
	return feed.NewTailer(syncService, path)
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	var err error
	cfg, err = config.LoadConfig(".")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	path := cfg.DBPath
	if path == "" {
		path, err = db.DefaultPath()
		if err != nil {
			log.Fatalf("failed to resolve database path: %v", err)
		}
	}

	database, err := db.GetDB(path)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// Create repository adapters (secondary ports) - sqlite adapters with injected DB
	store := storeForMode(database, cfg.Mode)
	baseRepo := sqlite.NewBaseRepository(database)
	driftRepo := sqlite.NewDriftRepository(database)

	rule := derive.FreeCores{}

	staleness, err := cfg.Staleness()
	if err != nil {
		log.Fatalf("invalid staleness_window: %v", err)
	}
	timeout, err := cfg.Timeout()
	if err != nil {
		log.Fatalf("invalid write_timeout: %v", err)
	}

	// Create services (primary ports implementation)
	syncService = app.NewSyncService(store, baseRepo, driftRepo, rule, app.SyncOptions{
		RetryLimit:   cfg.RetryLimit,
		Staleness:    staleness,
		WriteTimeout: timeout,
		BackoffBase:  config.DefaultBackoffBase,
		BackoffMax:   config.DefaultBackoffMax,
	})
	monitorService = app.NewMonitorService(store, baseRepo, driftRepo, rule, syncService, cfg.SelfHeal)
	readService = app.NewReadService(store)
	importService = app.NewImportService(baseRepo, syncService)
}

// storeForMode selects the projection store adapter for the configured
// mode. The mode was validated at config load.
func storeForMode(database *sql.DB, mode string) secondary.ProjectionStore {
	switch mode {
	case config.ModeIndexedView:
		return sqlite.NewViewStore(database)
	case config.ModeSummaryTable:
		return sqlite.NewSummaryStore(database)
	default:
		return sqlite.NewInlineStore(database)
	}
}

// DerivedAdapter returns a new DerivedAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func DerivedAdapter() *cliadapter.DerivedAdapter {
	return DerivedAdapterWithOutput(os.Stdout)
}

// DerivedAdapterWithOutput returns a new DerivedAdapter writing to the given output.
// This variant allows testing or alternate output destinations.
func DerivedAdapterWithOutput(out io.Writer) *cliadapter.DerivedAdapter {
	once.Do(initServices)
	return cliadapter.NewDerivedAdapter(readService, out)
}

// DriftAdapter returns a new DriftAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func DriftAdapter() *cliadapter.DriftAdapter {
	return DriftAdapterWithOutput(os.Stdout)
}

// DriftAdapterWithOutput returns a new DriftAdapter writing to the given output.
// This variant allows testing or alternate output destinations.
func DriftAdapterWithOutput(out io.Writer) *cliadapter.DriftAdapter {
	once.Do(initServices)
	return cliadapter.NewDriftAdapter(monitorService, out)
}
