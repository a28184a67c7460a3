package services

import (
	"context"
	"errors"
	"package-tracking-service/internal/adapters/repositories"
	"package-tracking-service/internal/domain"
	"package-tracking-service/internal/ports"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

// stepClock advances one minute per call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	now := t0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Minute)
		return now
	}
}

func createInput(tn string) domain.CreateInput {
	return domain.CreateInput{
		TrackingNumber: tn,
		Description:    "Box of books",
		Weight:         2.5,
		Dimensions:     domain.Dimensions{Length: 30, Width: 20, Height: 10},
		Sender:         domain.Party{FullName: "Ada Sender", Email: "ada@example.com"},
		Recipient:      domain.Party{FullName: "Bo Recipient", Email: "bo@example.com", Address: "1 Main St, Springfield"},
		Payment:        domain.Payment{Amount: decimal.RequireFromString("19.99"), IsPaid: true},
		AdminID:        "admin-1",
	}
}

type memCache struct {
	mu            sync.Mutex
	m             map[string]*domain.Package
	versions      map[string]int64
	invalidations int
}

func newMemCache() *memCache {
	return &memCache{m: map[string]*domain.Package{}, versions: map[string]int64{}}
}

func (c *memCache) Get(_ context.Context, tn string) (*domain.Package, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.m[tn]
	if !ok {
		return nil, false, nil
	}
	return p.Clone(), true, nil
}

func (c *memCache) Version(_ context.Context, tn string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.versions[tn], nil
}

func (c *memCache) SetIfVersion(_ context.Context, p *domain.Package, version int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[p.TrackingNumber] != version {
		return false, nil
	}
	c.m[p.TrackingNumber] = p.Clone()
	return true, nil
}

func (c *memCache) Invalidate(_ context.Context, tn string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	c.versions[tn]++
	delete(c.m, tn)
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []ports.Mail
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, m ports.Mail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, m)
	return n.err
}

type stubGeocoder struct {
	coords map[string]domain.Coordinates
	calls  int
}

func (g *stubGeocoder) Geocode(_ context.Context, address string) (domain.Coordinates, error) {
	g.calls++
	c, ok := g.coords[address]
	if !ok {
		return domain.Coordinates{}, errors.New("no results")
	}
	return c, nil
}

type memFiles struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	deleted []string
}

func newMemFiles() *memFiles { return &memFiles{blobs: map[string][]byte{}} }

func (f *memFiles) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := "/files/" + key
	f.blobs[ref] = data
	return ref, nil
}

func (f *memFiles) Delete(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ref)
	delete(f.blobs, ref)
	return nil
}

type stubRenderer struct {
	files *memFiles
	err   error
	calls int
}

func (r *stubRenderer) Render(ctx context.Context, p *domain.ExportPayload) (string, error) {
	r.calls++
	if r.err != nil {
		return "", r.err
	}
	return r.files.Put(ctx, "documents/"+p.Bundle.TrackingNumber+".pdf", "application/pdf", p.QRCode)
}

type fixture struct {
	repo     *repositories.MemoryPackageRepository
	cache    *memCache
	notifier *recordingNotifier
	geocoder *stubGeocoder
	files    *memFiles
	life     *Lifecycle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     repositories.NewMemoryPackageRepository(),
		cache:    newMemCache(),
		notifier: &recordingNotifier{},
		geocoder: &stubGeocoder{coords: map[string]domain.Coordinates{
			"Denver, CO": {Lat: 39.7392, Lng: -104.9903},
		}},
		files: newMemFiles(),
	}
	f.life = NewLifecycle(LifecycleDeps{
		Repo:           f.repo,
		Cache:          f.cache,
		Geocoder:       f.geocoder,
		Notifier:       f.notifier,
		Files:          f.files,
		TrackingPrefix: "DU",
		Now:            stepClock(),
	})
	return f
}

func (f *fixture) create(t *testing.T, tn string) *domain.Package {
	t.Helper()
	pkg, err := f.life.Create(context.Background(), createInput(tn))
	require.NoError(t, err)
	return pkg
}
