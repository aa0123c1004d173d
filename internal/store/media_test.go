package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/streamnestapp/streamnest-server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMedia(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	media := testMediaItem("med_1", domain.MediaKindVideo, 120)

	err := store.CreateMedia(ctx, media)
	require.NoError(t, err)

	retrieved, err := store.GetMedia(ctx, "med_1")
	require.NoError(t, err)
	assert.Equal(t, media.ID, retrieved.ID)
	assert.Equal(t, media.Title, retrieved.Title)
	assert.Equal(t, domain.MediaKindVideo, retrieved.Kind)
	assert.Equal(t, 120.0, retrieved.DurationSec)
	assert.Equal(t, int64(0), retrieved.ViewCount)
}

func TestCreateMedia_DuplicateID(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	media := testMediaItem("med_1", domain.MediaKindVideo, 120)

	require.NoError(t, store.CreateMedia(ctx, media))

	err := store.CreateMedia(ctx, media)
	assert.ErrorIs(t, err, ErrMediaExists)
}

func TestGetMedia_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.GetMedia(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrMediaNotFound)
}

func TestListMedia_NewestFirst(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"med_a", "med_b", "med_c"} {
		media := testMediaItem(id, domain.MediaKindVideo, 60)
		media.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.CreateMedia(ctx, media))
	}

	items, err := store.ListMedia(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "med_c", items[0].ID)
	assert.Equal(t, "med_b", items[1].ID)
	assert.Equal(t, "med_a", items[2].ID)
}

func TestIncrementCounter(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.CreateMedia(ctx, testMediaItem("med_1", domain.MediaKindAudio, 300)))

	count, err := store.IncrementCounter(ctx, "med_1", domain.CounterListens)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = store.IncrementCounter(ctx, "med_1", domain.CounterListens)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// The two counters are independent.
	media, err := store.GetMedia(ctx, "med_1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), media.ListenCount)
	assert.Equal(t, int64(0), media.ViewCount)
}

func TestIncrementCounter_MissingMedia(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.IncrementCounter(context.Background(), "missing", domain.CounterViews)
	assert.ErrorIs(t, err, ErrMediaNotFound)
}

func TestIncrementCounter_Concurrent(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, store.CreateMedia(ctx, testMediaItem("med_1", domain.MediaKindVideo, 60)))

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.IncrementCounter(ctx, "med_1", domain.CounterViews)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	media, err := store.GetMedia(ctx, "med_1")
	require.NoError(t, err)
	assert.Equal(t, int64(workers), media.ViewCount)
}
