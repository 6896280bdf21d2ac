package db

import (
	"embed"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFiles embed.FS

// newMigrator binds the embedded migrations of the connection's driver to
// conn. The migrator is never closed: closing it would close conn as well.
func newMigrator(conn *sqlx.DB) (*migrate.Migrate, error) {
	var (
		driver database.Driver
		dir    string
		err    error
	)
	switch conn.DriverName() {
	case DriverPostgres:
		dir = "migrations/postgres"
		driver, err = postgres.WithInstance(conn.DB, &postgres.Config{})
	case DriverSQLite:
		dir = "migrations/sqlite"
		driver, err = sqlite3.WithInstance(conn.DB, &sqlite3.Config{})
	default:
		return nil, errors.Errorf("unsupported driver %q", conn.DriverName())
	}
	if err != nil {
		return nil, errors.Wrap(err, "create migration driver")
	}
	source, err := iofs.New(migrationFiles, dir)
	if err != nil {
		return nil, errors.Wrap(err, "open embedded migrations")
	}
	m, err := migrate.NewWithInstance("iofs", source, conn.DriverName(), driver)
	if err != nil {
		return nil, errors.Wrap(err, "create migrator")
	}
	return m, nil
}

// RunMigrations applies every pending migration.
func RunMigrations(conn *sqlx.DB) error {
	m, err := newMigrator(conn)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Debug("database schema up to date")
			return nil
		}
		return errors.Wrap(err, "run migrations")
	}
	version, _, _ := m.Version()
	slog.Info("migrations applied", "version", version)
	return nil
}

// MigrationVersion reports the applied schema version. A database without
// migrations reports version 0.
func MigrationVersion(conn *sqlx.DB) (uint, bool, error) {
	m, err := newMigrator(conn)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, errors.Wrap(err, "read migration version")
}

// MigrateDown reverts the given number of migrations.
func MigrateDown(conn *sqlx.DB, steps int) error {
	m, err := newMigrator(conn)
	if err != nil {
		return err
	}
	if steps <= 0 {
		steps = 1
	}
	return errors.Wrap(m.Steps(-steps), "revert migrations")
}
