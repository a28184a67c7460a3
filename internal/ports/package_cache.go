package ports

import (
	"context"
	"package-tracking-service/internal/domain"
)

// Snapshot cache in front of the repository for the public read path.
//
// Each tracking number carries an invalidation counter. Readers take the
// counter before loading from the repository and fill the cache only if it
// has not moved, so a snapshot read before a mutation is never stored after
// that mutation's invalidation.
type PackageCache interface {
	// Return the cached snapshot; ok is false on a miss.
	Get(ctx context.Context, trackingNumber string) (pkg *domain.Package, ok bool, err error)
	// Return the current invalidation counter; zero if never invalidated.
	Version(ctx context.Context, trackingNumber string) (int64, error)
	// Store pkg only while the counter still equals version.
	SetIfVersion(ctx context.Context, pkg *domain.Package, version int64) (stored bool, err error)
	// Advance the counter and drop the snapshot.
	Invalidate(ctx context.Context, trackingNumber string) error
}
