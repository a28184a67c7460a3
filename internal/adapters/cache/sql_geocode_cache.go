package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"package-tracking-service/internal/domain"
	"package-tracking-service/internal/platform/db"
	"package-tracking-service/internal/platform/logger"
	"package-tracking-service/internal/platform/obs"
	"strings"
)

// SQLGeocodeCache is a SQL-backed cache mapping normalized addresses to
// coordinates. The geocode_cache table is created by repositories.InitSchema.
type SQLGeocodeCache struct {
	DB      *sql.DB
	Dialect db.Dialect
	Log     *logger.Logger
}

func NewSQLGeocodeCache(conn *sql.DB, dialect db.Dialect, log *logger.Logger) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: conn, Dialect: dialect, Log: log}
}

// Fetch cached coordinates for one address.
func (s *SQLGeocodeCache) Get(ctx context.Context, address string) (_ domain.Coordinates, _ bool, err error) {
	defer obs.Time(ctx, s.Log, "geocode.cache.Get")(&err)

	if s.DB == nil {
		return domain.Coordinates{}, false, errors.New("geocode cache: db is nil")
	}

	address = strings.TrimSpace(address)
	if address == "" {
		return domain.Coordinates{}, false, errors.New("get geocode cache: address must not be empty")
	}

	var c domain.Coordinates
	q := s.Dialect.Rebind(`SELECT lat, lng FROM geocode_cache WHERE address = ?;`)
	err = s.DB.QueryRowContext(ctx, q, address).Scan(&c.Lat, &c.Lng)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Coordinates{}, false, nil
	}
	if err != nil {
		return domain.Coordinates{}, false, fmt.Errorf("get geocode cache: query geocode_cache table: %w", err)
	}
	return c, true, nil
}

// Store an address -> coordinate mapping, replacing any previous value.
func (s *SQLGeocodeCache) Put(ctx context.Context, address string, c domain.Coordinates) error {
	if s.DB == nil {
		return errors.New("geocode cache: db is nil")
	}

	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("insert geocode cache: empty address key")
	}

	q := s.Dialect.Rebind(`
	INSERT INTO geocode_cache (address, lat, lng)
	VALUES (?, ?, ?)
	ON CONFLICT (address) DO UPDATE
	SET lat = excluded.lat,
		lng = excluded.lng;
	`)
	if _, err := s.DB.ExecContext(ctx, q, address, c.Lat, c.Lng); err != nil {
		return fmt.Errorf("insert geocode cache coord=%q: %w", address, err)
	}
	return nil
}
