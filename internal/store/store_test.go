package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/streamnestapp/streamnest-server/internal/domain"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary store for testing
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	// Create temp directory for test database
	tmpDir, err := os.MkdirTemp("", "streamnest-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := New(dbPath, nil)
	require.NoError(t, err)
	require.NotNil(t, store)

	// Return cleanup function
	cleanup := func() {
		store.Close()
		os.RemoveAll(tmpDir)
	}

	return store, cleanup
}

// testMediaItem builds a media item for store tests.
func testMediaItem(id string, kind domain.MediaKind, durationSec float64) *domain.MediaItem {
	now := time.Now()
	return &domain.MediaItem{
		ID:          id,
		Title:       "Test " + id,
		Kind:        kind,
		DurationSec: durationSec,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
