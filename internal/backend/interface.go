package backend

import (
	"context"

	"timetrack/internal/storage"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the store and its cleanup function
type BackendResult struct {
	Store   storage.Store
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string
	MySQLDSN     string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MySQLBackend  BackendType = "mysql"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MySQLBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
