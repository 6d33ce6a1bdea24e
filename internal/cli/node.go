package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/LeJamon/goMarble/internal/config"
	"github.com/LeJamon/goMarble/internal/core/collection"
	"github.com/LeJamon/goMarble/internal/core/drop"
	"github.com/LeJamon/goMarble/internal/core/registry"
	"github.com/LeJamon/goMarble/internal/host"
	"github.com/LeJamon/goMarble/internal/storage/database"
	"github.com/LeJamon/goMarble/internal/storage/database/leveldb"
	"github.com/LeJamon/goMarble/internal/storage/database/pebble"
	"github.com/LeJamon/goMarble/internal/storage/relationaldb"
	"github.com/LeJamon/goMarble/internal/storage/relationaldb/postgres"
	"github.com/LeJamon/goMarble/internal/storage/relationaldb/sqlite"
)

const stateDBName = "state"

// openStateDB opens the contract state store. The returned function closes
// it.
func openStateDB(cfg config.DatabaseConfig) (database.DB, func() error, error) {
	switch cfg.Backend {
	case database.BackendPebble:
		m := pebble.NewManager(cfg.Path)
		db, err := m.OpenDB(stateDBName)
		if err != nil {
			return nil, nil, err
		}
		return db, m.Close, nil
	case database.BackendLevelDB:
		db, err := leveldb.Open(filepath.Join(cfg.Path, stateDBName+".ldb"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database %s: %w", stateDBName, err)
		}
		return db, db.Close, nil
	case config.BackendMemory:
		db, err := pebble.OpenInMemory()
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown database backend %q", cfg.Backend)
	}
}

// newChain creates the host with every marketplace contract registered.
func newChain(db database.DB, logger *zap.Logger) *host.Chain {
	chain := host.New(db, host.WithLogger(logger))
	chain.Register(collection.CodeID, collection.New())
	chain.Register(registry.CodeID, registry.New())
	chain.Register(drop.CodeID, drop.New())
	return chain
}

// openArchive opens the settlement archive described by cfg.
func openArchive(ctx context.Context, cfg relationaldb.Config, logger *zap.Logger) (*relationaldb.Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var (
		db  *relationaldb.SQLDatabase
		err error
	)
	switch cfg.Driver {
	case relationaldb.DriverSQLite:
		db, err = sqlite.NewDatabase(&cfg)
	case relationaldb.DriverPostgres:
		db, err = postgres.NewDatabase(&cfg)
	default:
		err = fmt.Errorf("unsupported archive driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	m := relationaldb.NewManager(db, &cfg, relationaldb.WithLogger(logger))
	if err := m.Open(ctx); err != nil {
		return nil, err
	}
	return m, nil
}
