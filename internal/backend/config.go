package backend

import (
	"fmt"

	"timetrack/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		MySQLDSN:     appConfig.MySQLDSN,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MySQLBackend:
		if c.MySQLDSN == "" {
			return fmt.Errorf("MySQL DSN is required for mysql backend")
		}
	case MemoryBackend:
	default:
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	return nil
}
