package repositories

import (
	"context"
	"fmt"
	"package-tracking-service/internal/domain"
	"package-tracking-service/internal/ports"
	"sort"
	"sync"
	"time"
)

// In-memory PackageRepository. It stores deep copies, so callers can never
// mutate stored state without going through Update.
type MemoryPackageRepository struct {
	mu   sync.RWMutex
	pkgs map[string]*domain.Package
}

func NewMemoryPackageRepository() *MemoryPackageRepository {
	return &MemoryPackageRepository{pkgs: make(map[string]*domain.Package)}
}

var _ ports.PackageRepository = (*MemoryPackageRepository)(nil)

func (m *MemoryPackageRepository) Initialize(ctx context.Context) error { return nil }

func (m *MemoryPackageRepository) Get(ctx context.Context, trackingNumber string) (*domain.Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pkg, ok := m.pkgs[trackingNumber]
	if !ok {
		return nil, fmt.Errorf("get package %q: %w", trackingNumber, domain.ErrNotFound)
	}
	return pkg.Clone(), nil
}

func (m *MemoryPackageRepository) List(ctx context.Context, filter ports.PackageFilter) ([]*domain.Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Package, 0, len(m.pkgs))
	for _, pkg := range m.pkgs {
		if filter.AdminID != "" && pkg.AdminID != filter.AdminID {
			continue
		}
		if filter.Status != "" && pkg.Status != filter.Status {
			continue
		}
		out = append(out, pkg.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].TrackingNumber < out[j].TrackingNumber
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if filter.Offset >= len(out) {
		return []*domain.Package{}, nil
	}
	if filter.Offset > 0 {
		out = out[filter.Offset:]
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryPackageRepository) Create(ctx context.Context, pkg *domain.Package) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pkgs[pkg.TrackingNumber]; ok {
		return fmt.Errorf("create package %q: %w", pkg.TrackingNumber, domain.ErrConflict)
	}
	m.pkgs[pkg.TrackingNumber] = pkg.Clone()
	return nil
}

func (m *MemoryPackageRepository) Update(ctx context.Context, pkg *domain.Package, expectedUpdatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.pkgs[pkg.TrackingNumber]
	if !ok {
		return fmt.Errorf("update package %q: %w", pkg.TrackingNumber, domain.ErrNotFound)
	}
	if !cur.UpdatedAt.Equal(expectedUpdatedAt) {
		return fmt.Errorf("update package %q: stale write: %w", pkg.TrackingNumber, domain.ErrConflict)
	}

	next := pkg.Clone()
	next.CreatedAt = cur.CreatedAt
	m.pkgs[pkg.TrackingNumber] = next
	return nil
}

func (m *MemoryPackageRepository) Delete(ctx context.Context, trackingNumber string) (*domain.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.pkgs[trackingNumber]
	if !ok {
		return nil, fmt.Errorf("delete package %q: %w", trackingNumber, domain.ErrNotFound)
	}
	delete(m.pkgs, trackingNumber)
	return cur.Clone(), nil
}
