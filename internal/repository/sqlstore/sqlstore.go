package sqlstore

import (
	"club-backend/internal/config"
	"club-backend/internal/logger"
	"club-backend/internal/repository/db"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations
var migrationsFS embed.FS

// Ensure Store implements db.Database interface
var _ db.Database = (*Store)(nil)

// Store implements db.Database on database/sql for PostgreSQL and SQLite
type Store struct {
	conn   *sql.DB
	driver string
}

// New opens the database described by dbConfig and applies migrations
func New(dbConfig config.DatabaseConfig) (*Store, error) {
	return Open(dbConfig.Driver, dbConfig.GetDSN())
}

// Open connects with the given driver name and DSN and applies migrations
func Open(driver, dsn string) (*Store, error) {
	logger.Log.WithField("driver", driver).Info("Connecting to database")

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if driver == config.DriverSQLite {
		// SQLite allows one writer; a single connection also keeps :memory: databases shared
		conn.SetMaxOpenConns(1)
	}

	if err = conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	logger.Log.WithField("driver", driver).Info("Successfully connected to database")

	store := &Store{conn: conn, driver: driver}

	if err = store.RunMigrations(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error running migrations: %w", err)
	}

	logger.Log.Info("Migrations completed successfully")

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// RunMigrations applies the embedded migrations for the store's driver using golang-migrate
func (s *Store) RunMigrations() error {
	var (
		instance database.Driver
		err      error
	)
	switch s.driver {
	case config.DriverPostgres:
		instance, err = postgres.WithInstance(s.conn, &postgres.Config{})
	case config.DriverSQLite:
		instance, err = sqlite3.WithInstance(s.conn, &sqlite3.Config{})
	default:
		return fmt.Errorf("unsupported database driver %q", s.driver)
	}
	if err != nil {
		return fmt.Errorf("error creating migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+s.driver)
	if err != nil {
		return fmt.Errorf("error reading embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, s.driver, instance)
	if err != nil {
		return fmt.Errorf("error creating migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error running migrations: %w", err)
	}

	logger.Log.WithField("driver", s.driver).Info("Database migrations applied successfully")
	return nil
}
