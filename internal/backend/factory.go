package backend

import (
	"context"
	"fmt"

	applog "timetrack/internal/log"
	"timetrack/internal/storage"
	"timetrack/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// CreateBackend opens the configured store. SQL stores are migrated before
// they are returned.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		store, err := storage.OpenSQLite(ctx, config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &BackendResult{Store: store, Cleanup: store.Close}, nil

	case MySQLBackend:
		store, err := storage.OpenMySQL(ctx, config.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MySQL store: %w", err)
		}
		f.logger.Info("Initialized MySQL backend")
		return &BackendResult{Store: store, Cleanup: store.Close}, nil

	case MemoryBackend:
		f.logger.Warn("Using in-memory backend, data is lost on restart")
		store := memory.New()
		return &BackendResult{Store: store, Cleanup: store.Close}, nil
	}
	return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
}
