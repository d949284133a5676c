// Package migration wraps golang-migrate with the schema lifecycle commands
// the migrate CLI exposes.
package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Migrator drives versioned SQL migrations against one database.
type Migrator struct {
	m   *migrate.Migrate
	log *zap.Logger
}

// New builds a Migrator over an open postgres connection and a directory of
// versioned SQL files.
func New(db *sql.DB, dir string, log *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("open migration source %s: %w", dir, err)
	}
	return &Migrator{m: m, log: log}, nil
}

// Up applies every pending migration.
func (mg *Migrator) Up() error {
	err := mg.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		mg.log.Info("schema already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return mg.logVersion("schema migrated")
}

// Down rolls every applied migration back.
func (mg *Migrator) Down() error {
	err := mg.m.Down()
	if errors.Is(err, migrate.ErrNoChange) {
		mg.log.Info("nothing to roll back")
		return nil
	}
	if err != nil {
		return fmt.Errorf("roll back migrations: %w", err)
	}
	mg.log.Info("schema rolled back")
	return nil
}

// Steps applies n migrations forward, or -n backward.
func (mg *Migrator) Steps(n int) error {
	err := mg.m.Steps(n)
	if errors.Is(err, migrate.ErrNoChange) {
		mg.log.Info("schema already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply %d migration steps: %w", n, err)
	}
	return mg.logVersion("schema migrated")
}

// Version reports the current schema version, or 0/false when no migration
// has been applied yet.
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return v, dirty, nil
}

// Force overwrites the recorded version without running any SQL. This is the
// escape hatch for a schema left dirty by a failed migration.
func (mg *Migrator) Force(version int) error {
	mg.log.Warn("forcing schema version", zap.Int("version", version))
	if err := mg.m.Force(version); err != nil {
		return fmt.Errorf("force schema version %d: %w", version, err)
	}
	return nil
}

// Close releases the migration source and database handles.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	if srcErr != nil {
		return fmt.Errorf("close migration source: %w", srcErr)
	}
	return dbErr
}

func (mg *Migrator) logVersion(msg string) error {
	v, dirty, err := mg.m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}
	mg.log.Info(msg, zap.Uint("version", v), zap.Bool("dirty", dirty))
	return nil
}
