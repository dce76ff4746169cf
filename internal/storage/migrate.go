package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/mysql/*.sql
var migrationsFS embed.FS

// Dialect selects the SQL flavour and its migration set.
type Dialect string

const (
	DialectSQLite Dialect = "sqlite"
	DialectMySQL  Dialect = "mysql"
)

func (d Dialect) driverName() string {
	return string(d)
}

// RunMigrations applies all pending up migrations for dialect.
//
// A dedicated connection is used because closing the migrator closes the
// database handle it was given.
func RunMigrations(dialect Dialect, dsn string) error {
	migrateDB, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	var driver database.Driver
	switch dialect {
	case DialectSQLite:
		driver, err = sqlite.WithInstance(migrateDB, &sqlite.Config{})
	case DialectMySQL:
		driver, err = migratemysql.WithInstance(migrateDB, &migratemysql.Config{})
	default:
		return fmt.Errorf("unsupported dialect %q", dialect)
	}
	if err != nil {
		return fmt.Errorf("create %s driver: %w", dialect, err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(dialect), driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// NormalizeMySQLDSN enables the driver options the store relies on. The DSN
// is otherwise left as given.
func NormalizeMySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.MultiStatements = true
	// UPDATE reports matched rows, not changed rows, so no-op updates are not "not found".
	cfg.ClientFoundRows = true
	if cfg.Collation == "" {
		cfg.Collation = "utf8mb4_unicode_ci"
	}
	return cfg.FormatDSN(), nil
}
