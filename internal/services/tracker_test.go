package services

import (
	"context"
	"package-tracking-service/internal/adapters/repositories"
	"package-tracking-service/internal/domain"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackRedactsPayment(t *testing.T) {
	f := newFixture(t)
	f.create(t, "DU1234567890")
	tracker := NewTracker(f.repo, f.cache, nil)

	v, err := tracker.Track(context.Background(), "DU1234567890")
	require.NoError(t, err)
	assert.Nil(t, v.Payment)
	assert.Equal(t, "Pending", v.StatusText)
	assert.Equal(t, 10, v.Progress)
	assert.Equal(t, domain.UnknownLocation, v.CurrentLocation)
	assert.NotNil(t, v.Checkpoints)

	visible := domain.Payment{IsVisible: true, Currency: "USD", IsPaid: true}
	_, err = f.life.Edit(context.Background(), "DU1234567890", domain.EditPatch{Payment: &visible})
	require.NoError(t, err)

	v, err = tracker.Track(context.Background(), "DU1234567890")
	require.NoError(t, err)
	require.NotNil(t, v.Payment)
	assert.True(t, v.Payment.IsPaid)
}

func TestTrackUsesCacheAndSeesInvalidation(t *testing.T) {
	f := newFixture(t)
	f.create(t, "DU1234567890")
	tracker := NewTracker(f.repo, f.cache, nil)
	ctx := context.Background()

	_, err := tracker.Track(ctx, "DU1234567890")
	require.NoError(t, err)
	_, cached, _ := f.cache.Get(ctx, "DU1234567890")
	assert.True(t, cached)

	_, _, err = f.life.AddCheckpoint(ctx, "DU1234567890", domain.CheckpointInput{
		Status:   domain.StatusInTransit,
		Location: "Denver, CO",
	})
	require.NoError(t, err)

	v, err := tracker.Track(ctx, "DU1234567890")
	require.NoError(t, err)
	assert.Equal(t, 50, v.Progress)
	assert.Equal(t, "Denver, CO", v.CurrentLocation.Address)
}

func TestTrackNotFound(t *testing.T) {
	f := newFixture(t)
	tracker := NewTracker(f.repo, f.cache, nil)

	for _, tn := range []string{"DU0000000000", "", "../etc/passwd"} {
		_, err := tracker.Track(context.Background(), tn)
		assert.ErrorIs(t, err, domain.ErrNotFound, tn)
	}
}

func TestTrackSkipsCacheFillWhenDeletedDuringRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "DU1234567890")

	repo := &racingRepo{MemoryPackageRepository: f.repo}
	repo.race = func() { require.NoError(t, f.life.Delete(ctx, "DU1234567890")) }
	tracker := NewTracker(repo, f.cache, nil)

	// The lookup that overlapped the delete answers with what it read.
	_, err := tracker.Track(ctx, "DU1234567890")
	require.NoError(t, err)

	_, cached, _ := f.cache.Get(ctx, "DU1234567890")
	assert.False(t, cached)

	_, err = tracker.Track(ctx, "DU1234567890")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTrackSkipsCacheFillWhenCheckpointAddedDuringRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, "DU1234567890")

	repo := &racingRepo{MemoryPackageRepository: f.repo}
	repo.race = func() {
		_, _, err := f.life.AddCheckpoint(ctx, "DU1234567890", domain.CheckpointInput{
			Status:   domain.StatusInTransit,
			Location: "Denver, CO",
		})
		require.NoError(t, err)
	}
	tracker := NewTracker(repo, f.cache, nil)

	v, err := tracker.Track(ctx, "DU1234567890")
	require.NoError(t, err)
	assert.Equal(t, 10, v.Progress)

	v, err = tracker.Track(ctx, "DU1234567890")
	require.NoError(t, err)
	assert.Equal(t, 50, v.Progress)
	assert.Equal(t, "In Transit", v.StatusText)
}

// blockingRepo holds Get until released and records the context state the
// read observed.
type blockingRepo struct {
	*repositories.MemoryPackageRepository
	once    sync.Once
	started chan struct{}
	release chan struct{}
	ctxErr  error
}

func (r *blockingRepo) Get(ctx context.Context, tn string) (*domain.Package, error) {
	r.once.Do(func() { close(r.started) })
	<-r.release
	r.ctxErr = ctx.Err()
	if r.ctxErr != nil {
		return nil, r.ctxErr
	}
	return r.MemoryPackageRepository.Get(ctx, tn)
}

func TestTrackSharedReadSurvivesCallerCancellation(t *testing.T) {
	f := newFixture(t)
	f.create(t, "DU1234567890")

	repo := &blockingRepo{
		MemoryPackageRepository: f.repo,
		started:                 make(chan struct{}),
		release:                 make(chan struct{}),
	}
	tracker := NewTracker(repo, f.cache, nil)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := tracker.Track(first, "DU1234567890")
		firstErr <- err
	}()
	<-repo.started
	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	// The read is still in flight; a second caller joins it.
	type result struct {
		v   domain.TrackingView
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, err := tracker.Track(context.Background(), "DU1234567890")
		second <- result{v, err}
	}()
	close(repo.release)

	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, "DU1234567890", res.v.TrackingNumber)
	assert.NoError(t, repo.ctxErr)
}
