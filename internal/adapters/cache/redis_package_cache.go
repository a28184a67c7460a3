package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"package-tracking-service/internal/domain"
	"package-tracking-service/internal/platform/logger"
	"package-tracking-service/internal/platform/obs"
	"package-tracking-service/internal/ports"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	packageKeyPrefix = "tracking:pkg:"
	versionKeyPrefix = "tracking:ver:"

	// Counters outlive any in-flight read by a wide margin.
	versionTTL = 24 * time.Hour
)

// RedisPackageCache keeps package snapshots as JSON with a TTL. Only stored
// fields are cached; derived fields are recomputed by readers.
type RedisPackageCache struct {
	rdb *goredis.Client
	ttl time.Duration
	log *logger.Logger
}

func NewRedisPackageCache(rdb *goredis.Client, ttl time.Duration, log *logger.Logger) *RedisPackageCache {
	return &RedisPackageCache{rdb: rdb, ttl: ttl, log: log}
}

// DialRedis connects and pings before handing the client out.
func DialRedis(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

var _ ports.PackageCache = (*RedisPackageCache)(nil)

func (c *RedisPackageCache) Get(ctx context.Context, trackingNumber string) (_ *domain.Package, _ bool, err error) {
	defer obs.Time(ctx, c.log, "package.cache.Get")(&err)

	raw, err := c.rdb.Get(ctx, packageKeyPrefix+trackingNumber).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get package cache %q: %w", trackingNumber, err)
	}

	var pkg domain.Package
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return nil, false, fmt.Errorf("get package cache %q: decode: %w", trackingNumber, err)
	}
	return &pkg, true, nil
}

func (c *RedisPackageCache) Version(ctx context.Context, trackingNumber string) (int64, error) {
	v, err := c.rdb.Get(ctx, versionKeyPrefix+trackingNumber).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get cache version %q: %w", trackingNumber, err)
	}
	return v, nil
}

// SetIfVersion writes the snapshot in a MULTI guarded by WATCH on the version
// key. A concurrent Invalidate aborts the transaction.
func (c *RedisPackageCache) SetIfVersion(ctx context.Context, pkg *domain.Package, version int64) (stored bool, err error) {
	defer obs.Time(ctx, c.log, "package.cache.SetIfVersion")(&err)

	raw, err := json.Marshal(pkg)
	if err != nil {
		return false, fmt.Errorf("set package cache %q: encode: %w", pkg.TrackingNumber, err)
	}

	verKey := versionKeyPrefix + pkg.TrackingNumber
	err = c.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		cur, err := tx.Get(ctx, verKey).Int64()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		if cur != version {
			return errStaleVersion
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, packageKeyPrefix+pkg.TrackingNumber, raw, c.ttl)
			return nil
		})
		return err
	}, verKey)
	if errors.Is(err, errStaleVersion) || errors.Is(err, goredis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("set package cache %q: %w", pkg.TrackingNumber, err)
	}
	return true, nil
}

// Invalidate bumps the version and drops the snapshot atomically.
func (c *RedisPackageCache) Invalidate(ctx context.Context, trackingNumber string) error {
	verKey := versionKeyPrefix + trackingNumber
	_, err := c.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Incr(ctx, verKey)
		pipe.Expire(ctx, verKey, versionTTL)
		pipe.Del(ctx, packageKeyPrefix+trackingNumber)
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate package cache %q: %w", trackingNumber, err)
	}
	return nil
}

var errStaleVersion = errors.New("cache version moved")

// NoopPackageCache always misses. Used when REDIS_ADDR is unset.
type NoopPackageCache struct{}

func (NoopPackageCache) Get(context.Context, string) (*domain.Package, bool, error) {
	return nil, false, nil
}
func (NoopPackageCache) Version(context.Context, string) (int64, error) { return 0, nil }
func (NoopPackageCache) SetIfVersion(context.Context, *domain.Package, int64) (bool, error) {
	return false, nil
}
func (NoopPackageCache) Invalidate(context.Context, string) error { return nil }
