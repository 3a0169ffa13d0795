package app

import (
	"context"
	"io"
	"log"
	"time"

	"partscatalog_api/config"
	"partscatalog_api/internal/farnell/app/web"
	"partscatalog_api/internal/farnell/app/web/handlers"
	"partscatalog_api/internal/farnell/business/services/get"
	"partscatalog_api/internal/farnell/business/services/resolve"
	"partscatalog_api/internal/farnell/business/services/update"
	"partscatalog_api/internal/farnell/storage"
	"partscatalog_api/migrations/catalog"
	"partscatalog_api/pkg/dbconnect"
	"partscatalog_api/pkg/dbconnect/migration"
	"partscatalog_api/pkg/logger"
)

type FarnellServer struct {
	dbconnect.Database
	cfg    config.AppConfig
	log    logger.Logger
	writer io.Writer
}

func NewFarnellServer(connector dbconnect.Database, cfg config.AppConfig, writer io.Writer) *FarnellServer {
	return &FarnellServer{
		Database: connector,
		cfg:      cfg,
		log:      logger.NewLogger(writer, "[FarnellServer]"),
		writer:   writer,
	}
}

func (s *FarnellServer) Run(addr string) {
	db, err := s.Connect()
	if err != nil {
		log.Fatalf("Error connecting to PostgreSQL: %s", err)
	}
	defer db.Close()

	migrationApply := []migration.MigrationInterface{
		&catalog.MigrationsSchema{},
		&catalog.CreateCatalogSchema{},
		&catalog.CreateCatalogEntriesTable{},
	}
	for _, _migration := range migrationApply {
		if err := _migration.UpMigration(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	}
	s.log.Log("Catalog migrations applied successfully!")

	farnell := s.cfg.Farnell
	syncValues := farnell.Sync

	repo := storage.NewCatalogueRepository(db)
	engine := get.NewSearchEngine(farnell, get.Config{}, s.writer)
	paginator := update.NewPaginator(engine, syncValues.PageSize, syncValues.PageDelay,
		syncValues.PaginationMode, farnell.ResponseGroup, s.writer)
	syncService := update.NewSyncService(paginator, repo, syncValues, s.writer)

	cache := resolve.NewCache(syncValues.CacheTTL, resolve.DefaultCacheCapacity, nil)
	resolver := resolve.NewResolver(repo, engine, cache, farnell.ResponseGroup, s.writer)

	go s.scheduleSync(syncService, syncValues.SyncInterval)

	web.SetupRoutes(addr, web.Routes{
		Search:      handlers.NewSearchHandler(resolver),
		BatchSearch: handlers.NewBatchSearchHandler(resolver),
		Entries:     handlers.NewEntryHandler(repo, engine, farnell.ResponseGroup),
		Sync:        handlers.NewSyncHandler(syncService),
	})
}

// scheduleSync fires the sync job on a fixed interval. The coordinator's
// single-flight guard makes overlapping ticks a logged no-op.
func (s *FarnellServer) scheduleSync(syncService *update.SyncService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		syncService.RunSync(context.Background())
	}
}
