package repositories

import (
	"database/sql"
	"fmt"
	"os"
	"package-tracking-service/internal/config"
	"package-tracking-service/internal/platform/db"
	"package-tracking-service/internal/platform/logger"
	"package-tracking-service/internal/ports"
	"path/filepath"
)

// Store is an opened package repository with its backing connection.
// DB is nil for the memory driver.
type Store struct {
	Repo    ports.PackageRepository
	DB      *sql.DB
	Dialect db.Dialect
}

// OpenStore opens the repository selected by driver (see config.Driver*).
func OpenStore(driver, dbPath, databaseURL string, log *logger.Logger) (*Store, error) {
	switch driver {
	case config.DriverMemory:
		return &Store{Repo: NewMemoryPackageRepository()}, nil

	case config.DriverSQLite:
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("open store: create %q: %w", dir, err)
			}
		}
		conn, err := db.OpenSQLite(dbPath)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		return &Store{Repo: NewSQLPackageRepository(conn, db.SQLite, log), DB: conn, Dialect: db.SQLite}, nil

	case config.DriverPostgres:
		conn, err := db.Open(databaseURL)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		return &Store{Repo: NewSQLPackageRepository(conn, db.Postgres, log), DB: conn, Dialect: db.Postgres}, nil

	default:
		return nil, fmt.Errorf("open store: unknown driver %q", driver)
	}
}

func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
