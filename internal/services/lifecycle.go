package services

import (
	"context"
	"errors"
	"fmt"
	"package-tracking-service/internal/domain"
	"package-tracking-service/internal/platform/logger"
	"package-tracking-service/internal/platform/obs"
	"package-tracking-service/internal/ports"
	"strings"
	"time"
)

// Number of attempts at issuing a fresh tracking number before giving up.
const issueAttempts = 5

type LifecycleDeps struct {
	Repo     ports.PackageRepository
	Cache    ports.PackageCache
	Geocoder ports.Geocoder
	Notifier ports.Notifier
	Files    ports.FileStore
	Log      *logger.Logger

	TrackingPrefix string
	Now            func() time.Time
}

// Lifecycle orchestrates operator mutations of the package aggregate. Each
// mutation is a single read-modify-write guarded by the repository's
// updated_at check; a concurrent writer surfaces as domain.ErrConflict.
//
// Geocoder, Files and Notifier are optional.
type Lifecycle struct {
	repo     ports.PackageRepository
	cache    ports.PackageCache
	geocoder ports.Geocoder
	notifier ports.Notifier
	files    ports.FileStore
	log      *logger.Logger
	prefix   string
	now      func() time.Time
}

func NewLifecycle(deps LifecycleDeps) *Lifecycle {
	l := &Lifecycle{
		repo:     deps.Repo,
		cache:    deps.Cache,
		geocoder: deps.Geocoder,
		notifier: deps.Notifier,
		files:    deps.Files,
		log:      deps.Log,
		prefix:   deps.TrackingPrefix,
		now:      deps.Now,
	}
	if l.log == nil {
		l.log = logger.Nop()
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

func (l *Lifecycle) Get(ctx context.Context, trackingNumber string) (_ *domain.Package, err error) {
	defer obs.Time(ctx, l.log, "lifecycle.Get")(&err)

	pkg, err := l.repo.Get(ctx, trackingNumber)
	if err != nil {
		return nil, fmt.Errorf("get package %s: %w", trackingNumber, err)
	}
	return pkg, nil
}

func (l *Lifecycle) List(ctx context.Context, filter ports.PackageFilter) (_ []*domain.Package, err error) {
	defer obs.Time(ctx, l.log, "lifecycle.List")(&err)

	pkgs, err := l.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	return pkgs, nil
}

// Create registers a package in the pending state. When no tracking number is
// supplied one is issued, retrying on collisions.
func (l *Lifecycle) Create(ctx context.Context, in domain.CreateInput) (_ *domain.Package, err error) {
	defer obs.Time(ctx, l.log, "lifecycle.Create")(&err)

	in.CurrentLocation = l.geocodeLocation(ctx, in.CurrentLocation)

	generated := strings.TrimSpace(in.TrackingNumber) == ""
	attempts := 1
	if generated {
		attempts = issueAttempts
	}

	var pkg *domain.Package
	for attempt := 1; attempt <= attempts; attempt++ {
		if generated {
			tn, err := domain.NewTrackingNumber(l.prefix)
			if err != nil {
				return nil, fmt.Errorf("create package: issue tracking number: %w", err)
			}
			in.TrackingNumber = tn
		}

		pkg, err = domain.NewPackage(in, l.now())
		if err != nil {
			return nil, fmt.Errorf("create package: %w", err)
		}

		err = l.repo.Create(ctx, pkg)
		if err == nil {
			break
		}
		if !generated || !errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("create package %s: %w", pkg.TrackingNumber, err)
		}
		l.log.Warn("tracking number collision, reissuing", "tracking_number", pkg.TrackingNumber, "attempt", attempt)
	}
	if err != nil {
		return nil, fmt.Errorf("create package: %w", err)
	}

	l.log.Info("package created", "tracking_number", pkg.TrackingNumber, "admin_id", pkg.AdminID)
	l.notify(ctx, pkg, registeredMail)
	return pkg, nil
}

// Edit merges patch into the package. Status is written verbatim.
func (l *Lifecycle) Edit(ctx context.Context, trackingNumber string, patch domain.EditPatch) (_ *domain.Package, err error) {
	defer obs.Time(ctx, l.log, "lifecycle.Edit")(&err)

	patch.CurrentLocation = l.geocodeLocation(ctx, patch.CurrentLocation)

	pkg, err := l.mutate(ctx, trackingNumber, func(pkg *domain.Package, now time.Time) error {
		return pkg.ApplyEdit(patch, now)
	})
	if err != nil {
		return nil, fmt.Errorf("edit package %s: %w", trackingNumber, err)
	}
	return pkg, nil
}

// Delete purges the package with its ledger, then removes the files listed in
// the deleted snapshot on a best-effort basis.
func (l *Lifecycle) Delete(ctx context.Context, trackingNumber string) (err error) {
	defer obs.Time(ctx, l.log, "lifecycle.Delete")(&err)

	pkg, err := l.repo.Delete(ctx, trackingNumber)
	if err != nil {
		return fmt.Errorf("delete package %s: %w", trackingNumber, err)
	}
	l.invalidate(ctx, trackingNumber)

	if l.files != nil {
		refs := append(append([]string{}, pkg.Images...), pkg.PDFs...)
		for _, ref := range refs {
			if err := l.files.Delete(ctx, ref); err != nil {
				l.log.Warn("failed to delete stored file (ignored)", "tracking_number", trackingNumber, "ref", ref, "err", err)
			}
		}
	}

	l.log.Info("package deleted", "tracking_number", trackingNumber)
	return nil
}

// AddCheckpoint appends to the ledger and advances status and location.
// Recipients are mailed when the status changes.
func (l *Lifecycle) AddCheckpoint(ctx context.Context, trackingNumber string, in domain.CheckpointInput) (_ *domain.Package, _ domain.Checkpoint, err error) {
	defer obs.Time(ctx, l.log, "lifecycle.AddCheckpoint")(&err)

	if in.Coordinates == nil {
		in.Coordinates = l.geocode(ctx, in.Location)
	}

	var (
		cp     domain.Checkpoint
		before domain.Status
	)
	pkg, err := l.mutate(ctx, trackingNumber, func(pkg *domain.Package, now time.Time) error {
		before = pkg.Status
		var err error
		cp, err = pkg.AddCheckpoint(in, now)
		return err
	})
	if err != nil {
		return nil, domain.Checkpoint{}, fmt.Errorf("add checkpoint to %s: %w", trackingNumber, err)
	}

	if pkg.Status != before {
		l.notify(ctx, pkg, func(p *domain.Package) (ports.Mail, error) { return statusMail(p, cp) })
	}
	return pkg, cp, nil
}

// UpdateCheckpoint patches one ledger entry; package status is unchanged.
func (l *Lifecycle) UpdateCheckpoint(ctx context.Context, trackingNumber, id string, patch domain.CheckpointPatch) (_ *domain.Package, _ domain.Checkpoint, err error) {
	defer obs.Time(ctx, l.log, "lifecycle.UpdateCheckpoint")(&err)

	if patch.Location != nil && patch.Coordinates == nil {
		patch.Coordinates = l.geocode(ctx, *patch.Location)
	}

	var cp domain.Checkpoint
	pkg, err := l.mutate(ctx, trackingNumber, func(pkg *domain.Package, now time.Time) error {
		var err error
		cp, err = pkg.UpdateCheckpoint(id, patch, now)
		return err
	})
	if err != nil {
		return nil, domain.Checkpoint{}, fmt.Errorf("update checkpoint %s/%s: %w", trackingNumber, id, err)
	}
	return pkg, cp, nil
}

func (l *Lifecycle) DeleteCheckpoint(ctx context.Context, trackingNumber, id string) (_ *domain.Package, err error) {
	defer obs.Time(ctx, l.log, "lifecycle.DeleteCheckpoint")(&err)

	pkg, err := l.mutate(ctx, trackingNumber, func(pkg *domain.Package, now time.Time) error {
		return pkg.DeleteCheckpoint(id, now)
	})
	if err != nil {
		return nil, fmt.Errorf("delete checkpoint %s/%s: %w", trackingNumber, id, err)
	}
	return pkg, nil
}

// Notify sends a free-form operator message to the package recipient.
func (l *Lifecycle) Notify(ctx context.Context, trackingNumber, subject, message string) (err error) {
	defer obs.Time(ctx, l.log, "lifecycle.Notify")(&err)

	if strings.TrimSpace(subject) == "" {
		return &domain.ValidationError{Field: "subject", Reason: "is required"}
	}
	if strings.TrimSpace(message) == "" {
		return &domain.ValidationError{Field: "message", Reason: "is required"}
	}

	pkg, err := l.repo.Get(ctx, trackingNumber)
	if err != nil {
		return fmt.Errorf("notify %s: %w", trackingNumber, err)
	}
	if pkg.Recipient.Email == "" {
		return &domain.ValidationError{Field: "recipient.email", Reason: "is not set"}
	}
	if l.notifier == nil {
		return fmt.Errorf("notify %s: no notifier configured", trackingNumber)
	}

	m, err := operatorMail(pkg, subject, message)
	if err != nil {
		return fmt.Errorf("notify %s: %w", trackingNumber, err)
	}
	if err := l.notifier.Send(ctx, m); err != nil {
		return fmt.Errorf("notify %s: %w", trackingNumber, err)
	}
	return nil
}

// mutate loads the package, applies fn and writes it back guarded by the
// loaded updated_at. The cache entry is dropped on success.
func (l *Lifecycle) mutate(ctx context.Context, trackingNumber string, fn func(pkg *domain.Package, now time.Time) error) (*domain.Package, error) {
	pkg, err := l.repo.Get(ctx, trackingNumber)
	if err != nil {
		return nil, err
	}
	expected := pkg.UpdatedAt

	if err := fn(pkg, l.now()); err != nil {
		return nil, err
	}
	if err := l.repo.Update(ctx, pkg, expected); err != nil {
		return nil, err
	}

	l.invalidate(ctx, trackingNumber)
	return pkg, nil
}

func (l *Lifecycle) invalidate(ctx context.Context, trackingNumber string) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Invalidate(ctx, trackingNumber); err != nil {
		l.log.Warn("cache invalidation failed", "tracking_number", trackingNumber, "err", err)
	}
}

func (l *Lifecycle) notify(ctx context.Context, pkg *domain.Package, build func(*domain.Package) (ports.Mail, error)) {
	if l.notifier == nil || pkg.Recipient.Email == "" {
		return
	}
	m, err := build(pkg)
	if err != nil {
		l.log.Error("failed to build mail", "tracking_number", pkg.TrackingNumber, "err", err)
		return
	}
	if err := l.notifier.Send(ctx, m); err != nil {
		l.log.Warn("failed to send mail (ignored)", "tracking_number", pkg.TrackingNumber, "subject", m.Subject, "err", err)
	}
}

// geocode returns nil when no geocoder is configured or the lookup fails.
func (l *Lifecycle) geocode(ctx context.Context, address string) *domain.Coordinates {
	if l.geocoder == nil || strings.TrimSpace(address) == "" {
		return nil
	}
	c, err := l.geocoder.Geocode(ctx, address)
	if err != nil {
		l.log.Warn("geocode failed, storing without coordinates", "address", address, "err", err)
		return nil
	}
	return &c
}

// geocodeLocation returns loc, or a copy of it with coordinates filled in.
func (l *Lifecycle) geocodeLocation(ctx context.Context, loc *domain.Location) *domain.Location {
	if loc == nil || loc.Coordinates != nil {
		return loc
	}
	c := l.geocode(ctx, loc.Address)
	if c == nil {
		return loc
	}
	return &domain.Location{Address: loc.Address, Coordinates: c}
}
