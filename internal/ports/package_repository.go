package ports

import (
	"context"
	"package-tracking-service/internal/domain"
	"time"
)

// PackageFilter narrows List results. Zero values mean "any".
type PackageFilter struct {
	AdminID string
	Status  domain.Status
	Limit   int
	Offset  int
}

// Port: persistence boundary for Package aggregates.
//
// Every method is atomic with respect to the checkpoint ledger embedded in the
// package. Writers are serialized per tracking number through Update's
// expectedUpdatedAt guard.
type PackageRepository interface {
	// Prepare the backing store (schema, indexes). Safe to call repeatedly.
	Initialize(ctx context.Context) error
	// Return the package or domain.ErrNotFound.
	Get(ctx context.Context, trackingNumber string) (*domain.Package, error)
	// Return packages ordered by creation time, newest first.
	List(ctx context.Context, filter PackageFilter) ([]*domain.Package, error)
	// Store a new package; domain.ErrConflict if the tracking number exists.
	Create(ctx context.Context, pkg *domain.Package) error
	// Replace the stored package if its updated_at still equals expectedUpdatedAt.
	// domain.ErrConflict on a stale write, domain.ErrNotFound if it is gone.
	Update(ctx context.Context, pkg *domain.Package, expectedUpdatedAt time.Time) error
	// Remove the package with its checkpoints and file references together and
	// return the removed snapshot, read in the same transaction.
	Delete(ctx context.Context, trackingNumber string) (*domain.Package, error)
}
