package services

import (
	"context"
	"fmt"
	"package-tracking-service/internal/domain"
	"package-tracking-service/internal/platform/logger"
	"package-tracking-service/internal/platform/obs"
	"package-tracking-service/internal/ports"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

// Upper bound on a repository read shared by coalesced lookups.
const sharedReadTimeout = 10 * time.Second

// Tracker serves the anonymous lookup path. Snapshots come from the cache
// when possible; concurrent misses for the same number share one repository
// read.
type Tracker struct {
	repo  ports.PackageRepository
	cache ports.PackageCache
	log   *logger.Logger
	group singleflight.Group
}

func NewTracker(repo ports.PackageRepository, cache ports.PackageCache, log *logger.Logger) *Tracker {
	if log == nil {
		log = logger.Nop()
	}
	return &Tracker{repo: repo, cache: cache, log: log}
}

// Track returns the public view of a package. Unknown or malformed numbers
// yield domain.ErrNotFound.
func (t *Tracker) Track(ctx context.Context, trackingNumber string) (_ domain.TrackingView, err error) {
	defer obs.Time(ctx, t.log, "tracker.Track")(&err)

	tn := strings.TrimSpace(trackingNumber)
	if domain.ValidateTrackingNumber(tn) != nil {
		return domain.TrackingView{}, fmt.Errorf("track %q: %w", tn, domain.ErrNotFound)
	}

	if t.cache != nil {
		pkg, ok, err := t.cache.Get(ctx, tn)
		if err != nil {
			t.log.Warn("tracking cache read failed", "tracking_number", tn, "err", err)
		} else if ok {
			return domain.PublicView(pkg), nil
		}
	}

	// Waiters share one read but each gives up on its own context.
	ch := t.group.DoChan(tn, func() (any, error) {
		return t.load(ctx, tn)
	})
	select {
	case <-ctx.Done():
		return domain.TrackingView{}, fmt.Errorf("track %s: %w", tn, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return domain.TrackingView{}, fmt.Errorf("track %s: %w", tn, res.Err)
		}
		return domain.PublicView(res.Val.(*domain.Package)), nil
	}
}

// load reads the package for all coalesced callers. It is detached from the
// first caller's cancellation and bounded by sharedReadTimeout instead. The
// cache is filled only if no invalidation happened since the version read.
func (t *Tracker) load(ctx context.Context, tn string) (*domain.Package, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedReadTimeout)
	defer cancel()

	var (
		version   int64
		versioned bool
	)
	if t.cache != nil {
		v, err := t.cache.Version(ctx, tn)
		if err != nil {
			t.log.Warn("tracking cache version read failed", "tracking_number", tn, "err", err)
		} else {
			version, versioned = v, true
		}
	}

	pkg, err := t.repo.Get(ctx, tn)
	if err != nil {
		return nil, err
	}

	if versioned {
		stored, err := t.cache.SetIfVersion(ctx, pkg, version)
		switch {
		case err != nil:
			t.log.Warn("tracking cache write failed", "tracking_number", tn, "err", err)
		case !stored:
			t.log.Debug("tracking cache fill skipped", "tracking_number", tn, "version", version)
		}
	}
	return pkg, nil
}
