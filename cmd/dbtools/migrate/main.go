// cmd/dbtools/migrate/main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func databaseURL(driver, target string) (string, error) {
	switch driver {
	case "sqlite":
		return "sqlite3://" + target, nil
	case "postgres":
		if !strings.HasPrefix(target, "postgres://") && !strings.HasPrefix(target, "postgresql://") {
			return "", fmt.Errorf("postgres target must be a postgres:// URL")
		}
		return target, nil
	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var (
		driver         = flag.String("driver", "sqlite", "Database driver (sqlite, postgres)")
		target         = flag.String("db", "", "SQLite file path or postgres URL (defaults to DATABASE_URL for postgres)")
		migrationsPath = flag.String("migrations", "", "Path to migrations directory (defaults to internal/db/migrations/<driver>)")
		command        = flag.String("command", "", "Command to run (up, down, version)")
	)
	flag.Parse()

	if *target == "" && *driver == "postgres" {
		*target = os.Getenv("DATABASE_URL")
	}
	if *migrationsPath == "" {
		*migrationsPath = filepath.Join("internal", "db", "migrations", *driver)
	}
	if *target == "" || *command == "" {
		flag.Usage()
		os.Exit(1)
	}

	dbURL, err := databaseURL(*driver, *target)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid database target")
	}

	m, err := migrate.New("file://"+*migrationsPath, dbURL)
	if err != nil {
		log.Fatal().Err(err).Str("migrations", *migrationsPath).Msg("Migration init failed")
	}
	defer m.Close()

	switch *command {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("Migration up failed")
		}
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatal().Err(err).Msg("Migration down failed")
		}
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatal().Err(err).Msg("Get version failed")
		}
		fmt.Printf("Version: %d, Dirty: %v\n", version, dirty)
		return
	default:
		log.Fatal().Str("command", *command).Msg("Unknown command")
	}
	log.Info().Str("driver", *driver).Str("command", *command).Msg("Migration complete")
}
