// internal/db/db.go
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/codr1/leaguehub/internal/config"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type DB struct {
	*sqlx.DB
	Queries *Queries
}

// New opens a SQLite database for the given data source name, ensures SQLite
// foreign keys and a busy timeout are set in the DSN, applies embedded
// migrations, and returns a DB with queries bound to the connection.
func New(dataSourceName string) (*DB, error) {
	return open(DriverSQLite, sqliteDSN(dataSourceName))
}

// NewFromConfig opens the configured database and applies migrations.
// It supports "sqlite" (creates the database directory if needed) and
// "postgres" (connects to the configured URL through lib/pq).
func NewFromConfig(cfg *config.Config) (*DB, error) {
	switch cfg.Database.Driver {
	case DriverSQLite:
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Filename), 0755); err != nil {
			return nil, fmt.Errorf("error creating database directory: %w", err)
		}
		return open(DriverSQLite, sqliteDSN(cfg.Database.Filename))
	case DriverPostgres:
		return open(DriverPostgres, cfg.Database.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

func open(driver, dataSourceName string) (*DB, error) {
	sqlDriver := "sqlite3"
	if driver == DriverPostgres {
		sqlDriver = "postgres"
	}

	conn, err := sqlx.Open(sqlDriver, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if err := runMigrations(conn.DB, driver); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}

	return &DB{
		DB:      conn,
		Queries: NewQueries(conn),
	}, nil
}

// sqliteDSN enables foreign keys and a busy timeout on a SQLite DSN unless
// the caller already set them. The timeout makes concurrent writers wait
// for the lock instead of failing with "database is locked".
func sqliteDSN(dataSourceName string) string {
	dsn := addDSNParam(dataSourceName, "_fk", "1")
	return addDSNParam(dsn, "_busy_timeout", "5000")
}

func addDSNParam(dataSourceName, key, value string) string {
	if strings.Contains(dataSourceName, key+"=") {
		return dataSourceName
	}
	if strings.Contains(dataSourceName, "?") {
		return dataSourceName + "&" + key + "=" + value
	}
	return dataSourceName + "?" + key + "=" + value
}

// runMigrations applies the embedded migrations for driver. A "no change"
// result is not treated as an error.
func runMigrations(db *sql.DB, driver string) error {
	var (
		instance database.Driver
		dbName   string
		err      error
	)
	switch driver {
	case DriverSQLite:
		instance, err = sqlite3.WithInstance(db, &sqlite3.Config{})
		dbName = "sqlite3"
	case DriverPostgres:
		instance, err = postgres.WithInstance(db, &postgres.Config{})
		dbName = "postgres"
	default:
		return fmt.Errorf("unsupported database driver: %s", driver)
	}
	if err != nil {
		return fmt.Errorf("could not create migrate driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return fmt.Errorf("could not create source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, dbName, instance)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

// WithTx creates a new DB instance whose queries run on tx
func (db *DB) WithTx(tx *sqlx.Tx) *DB {
	return &DB{
		DB:      db.DB,
		Queries: NewQueries(tx),
	}
}

// BeginTx starts a transaction
func (db *DB) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error beginning transaction: %w", err)
	}
	return tx, nil
}

// RunInTx runs the given function in a transaction
func (db *DB) RunInTx(ctx context.Context, fn func(*DB) error) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	txDB := db.WithTx(tx)
	if err := fn(txDB); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("error rolling back: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing: %w", err)
	}

	return nil
}

// IsNotFound reports whether err means a lookup matched no rows.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
