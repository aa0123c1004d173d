package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/streamnestapp/streamnest-server/internal/domain"
	domainerrors "github.com/streamnestapp/streamnest-server/internal/errors"
	"github.com/streamnestapp/streamnest-server/internal/qualify"
	"github.com/streamnestapp/streamnest-server/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServices(t *testing.T) (*PlaybackService, *ViewService, *MediaService, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "playback-service-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	testStore, err := store.New(dbPath, nil)
	require.NoError(t, err)

	logger := slog.New(slog.DiscardHandler)
	viewSvc := NewViewService(testStore, qualify.DefaultEngine(), logger)
	playbackSvc := NewPlaybackService(testStore, viewSvc, 24*time.Hour, logger)
	mediaSvc := NewMediaService(testStore, viewSvc, logger)

	cleanup := func() {
		testStore.Close()
		os.RemoveAll(tmpDir)
	}

	return playbackSvc, viewSvc, mediaSvc, cleanup
}

func createTestMedia(t *testing.T, mediaSvc *MediaService, kind string, durationSec float64) *domain.MediaItem {
	t.Helper()
	media, err := mediaSvc.Create(context.Background(), CreateMediaRequest{
		Title:       "Test Media",
		Kind:        kind,
		DurationSec: durationSec,
	})
	require.NoError(t, err)
	return media
}

func TestStart_NewSession(t *testing.T) {
	playbackSvc, _, mediaSvc, cleanup := setupTestServices(t)
	defer cleanup()

	ctx := context.Background()
	media := createTestMedia(t, mediaSvc, "video", 120)

	resp, err := playbackSvc.Start(ctx, "user_1", media.ID, StartSessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, resp.Session.State)
	assert.Equal(t, media.ID, resp.Session.MediaID)
	assert.Equal(t, domain.MediaKindVideo, resp.Session.MediaKind)
	assert.Equal(t, 120.0, resp.Session.DurationSec)
	assert.Equal(t, 0.0, resp.ResumeFrom)

	active, err := playbackSvc.GetActive(ctx, "user_1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, resp.Session.ID, active.ID)
}

func TestStart_UnknownMedia(t *testing.T) {
	playbackSvc, _, _, cleanup := setupTestServices(t)
	defer cleanup()

	_, err := playbackSvc.Start(context.Background(), "user_1", "missing", StartSessionRequest{})
	assert.ErrorIs(t, err, store.ErrMediaNotFound)
}

func TestStart_SupersedesAndRecordsView(t *testing.T) {
	playbackSvc, viewSvc, mediaSvc, cleanup := setupTestServices(t)
	defer cleanup()

	ctx := context.Background()
	first := createTestMedia(t, mediaSvc, "video", 120)
	second := createTestMedia(t, mediaSvc, "video", 120)

	resp1, err := playbackSvc.Start(ctx, "user_1", first.ID, StartSessionRequest{})
	require.NoError(t, err)

	// Watch enough of the first item to qualify.
	_, err = playbackSvc.Progress(ctx, "user_1", ProgressRequest{
		SessionID:   resp1.Session.ID,
		PositionSec: 40,
	})
	require.NoError(t, err)

	// Switching content ends the first session and its view still counts.
	resp2, err := playbackSvc.Start(ctx, "user_1", second.ID, StartSessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, second.ID, resp2.Session.MediaID)

	old, err := playbackSvc.store.GetSession(ctx, resp1.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionEnded, old.State)

	viewed, err := viewSvc.HasViewed(ctx, "user_1", first.ID)
	require.NoError(t, err)
	assert.True(t, viewed)

	active, err := playbackSvc.GetActive(ctx, "user_1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, resp2.Session.ID, active.ID)
}

func TestStart_ResumesFromSavedPosition(t *testing.T) {
	playbackSvc, _, mediaSvc, cleanup := setupTestServices(t)
	defer cleanup()

	ctx := context.Background()
	media := createTestMedia(t, mediaSvc, "video", 120)

	resp, err := playbackSvc.Start(ctx, "user_1", media.ID, StartSessionRequest{})
	require.NoError(t, err)

	_, err = playbackSvc.Progress(ctx, "user_1", ProgressRequest{
		SessionID:   resp.Session.ID,
		PositionSec: 55,
	})
	require.NoError(t, err)

	_, err = playbackSvc.End(ctx, "user_1", EndSessionRequest{SessionID: resp.Session.ID})
	require.NoError(t, err)

	// Coming back to the same item picks up where playback stopped.
	again, err := playbackSvc.Start(ctx, "user_1", media.ID, StartSessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, 55.0, again.ResumeFrom)

	// An explicit position overrides the saved one.
	pos := 0.0
	fresh, err := playbackSvc.Start(ctx, "user_1", media.ID, StartSessionRequest{PositionSec: &pos})
	require.NoError(t, err)
	assert.Equal(t, 0.0, fresh.ResumeFrom)
}

func TestProgress_UpdatesSession(t *testing.T) {
	playbackSvc, _, mediaSvc, cleanup := setupTestServices(t)
	defer cleanup()

	ctx := context.Background()
	media := createTestMedia(t, mediaSvc, "video", 100)

	resp, err := playbackSvc.Start(ctx, "user_1", media.ID, StartSessionRequest{})
	require.NoError(t, err)

	session, err := playbackSvc.Progress(ctx, "user_1", ProgressRequest{
		SessionID:   resp.Session.ID,
		PositionSec: 25,
	})
	require.NoError(t, err)
	assert.Equal(t, 25.0, session.PositionSec)
	assert.Equal(t, int64(25000), session.WatchedMs)
	assert.Equal(t, 25.0, session.ProgressPct)
}

func TestProgress_NotOwnerReportsNotFound(t *testing.T) {
	playbackSvc, _, mediaSvc, cleanup := setupTestServices(t)
	defer cleanup()

	ctx := context.Background()
	media := createTestMedia(t, mediaSvc, "video", 100)

	resp, err := playbackSvc.Start(ctx, "user_1", media.ID, StartSessionRequest{})
	require.NoError(t, err)

	// Another user probing the session ID learns nothing.
	_, err = playbackSvc.Progress(ctx, "user_2", ProgressRequest{
		SessionID:   resp.Session.ID,
		PositionSec: 10,
	})
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestProgress_EndedSessionRejected(t *testing.T) {
	playbackSvc, _, mediaSvc, cleanup := setupTestServices(t)
	defer cleanup()

	ctx := context.Background()
	media := createTestMedia(t, mediaSvc, "video", 100)

	resp, err := playbackSvc.Start(ctx, "user_1", media.ID, StartSessionRequest{})
	require.NoError(t, err)

	_, err = playbackSvc.End(ctx, "user_1", EndSessionRequest{SessionID: resp.Session.ID})
	require.NoError(t, err)

	_, err = playbackSvc.Progress(ctx, "user_1", ProgressRequest{
		SessionID:   resp.Session.ID,
		PositionSec: 10,
	})
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyTerminal)
}

func TestProgress_Validation(t *testing.T) {
	playbackSvc, _, _, cleanup := setupTestServices(t)
	defer cleanup()

	_, err := playbackSvc.Progress(context.Background(), "user_1", ProgressRequest{
		PositionSec: 10,
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = playbackSvc.Progress(context.Background(), "user_1", ProgressRequest{
		SessionID:   "ps_x",
		PositionSec: -5,
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestPauseAndResume(t *testing.T) {
	playbackSvc, viewSvc, mediaSvc, cleanup := setupTestServices(t)
	defer cleanup()

	ctx := context.Background()
	media := createTestMedia(t, mediaSvc, "video", 100)

	resp, err := playbackSvc.Start(ctx, "user_1", media.ID, StartSessionRequest{})
	require.NoError(t, err)

	_, err = playbackSvc.Progress(ctx, "user_1", ProgressRequest{
		SessionID:   resp.Session.ID,
		PositionSec: 30,
	})
	require.NoError(t, err)

	paused, err := playbackSvc.Pause(ctx, "user_1", resp.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionPaused, paused.State)

	// Pausing after enough watch time already records the view.
	viewed, err := viewSvc.HasViewed(ctx, "user_1", media.ID)
	require.NoError(t, err)
	assert.True(t, viewed)

	resumed, err := playbackSvc.Resume(ctx, "user_1", resp.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, resumed.State)
}

func TestPause_EndedSessionRejected(t *testing.T) {
	playbackSvc, _, mediaSvc, cleanup := setupTestServices(t)
	defer cleanup()

	ctx := context.Background()
	media := createTestMedia(t, mediaSvc, "video", 100)

	resp, err := playbackSvc.Start(ctx, "user_1", media.ID, StartSessionRequest{})
	require.NoError(t, err)
	_, err = playbackSvc.End(ctx, "user_1", EndSessionRequest{SessionID: resp.Session.ID})
	require.NoError(t, err)

	_, err = playbackSvc.Pause(ctx, "user_1", resp.Session.ID)
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyTerminal)

	_, err = playbackSvc.Resume(ctx, "user_1", resp.Session.ID)
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyTerminal)
}

func TestEnd_QualifyingViewRecordedOnce(t *testing.T) {
	playbackSvc, _, mediaSvc, cleanup := setupTestServices(t)
	defer cleanup()

	ctx := context.Background()
	media := createTestMedia(t, mediaSvc, "video", 100)

	resp, err := playbackSvc.Start(ctx, "user_1", media.ID, StartSessionRequest{})
	require.NoError(t, err)

	_, err = playbackSvc.Progress(ctx, "user_1", ProgressRequest{
		SessionID:   resp.Session.ID,
		PositionSec: 50,
	})
	require.NoError(t, err)

	ended, err := playbackSvc.End(ctx, "user_1", EndSessionRequest{SessionID: resp.Session.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionEnded, ended.Session.State)
	assert.True(t, ended.ViewRecorded)

	fetched, err := mediaSvc.Get(ctx, "user_1", media.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fetched.ViewCount)
	assert.True(t, fetched.HasViewed)

	// Retrying the end is a no-op: same terminal state, no second view.
	again, err := playbackSvc.End(ctx, "user_1", EndSessionRequest{SessionID: resp.Session.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.SessionEnded, again.Session.State)
	assert.False(t, again.ViewRecorded)

	fetched, err = mediaSvc.Get(ctx, "user_1", media.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fetched.ViewCount)
}

func TestEnd_NonQualifyingRecordsNothing(t *testing.T) {
	playbackSvc, viewSvc, mediaSvc, cleanup := setupTestServices(t)
	defer cleanup()

	ctx := context.Background()
	media := createTestMedia(t, mediaSvc, "video", 100)

	resp, err := playbackSvc.Start(ctx, "user_1", media.ID, StartSessionRequest{})
	require.NoError(t, err)

	// One second of watching isn't enough.
	_, err = playbackSvc.Progress(ctx, "user_1", ProgressRequest{
		SessionID:   resp.Session.ID,
		PositionSec: 1,
	})
	require.NoError(t, err)

	ended, err := playbackSvc.End(ctx, "user_1", EndSessionRequest{SessionID: resp.Session.ID})
	require.NoError(t, err)
	assert.False(t, ended.ViewRecorded)

	viewed, err := viewSvc.HasViewed(ctx, "user_1", media.ID)
	require.NoError(t, err)
	assert.False(t, viewed)
}

func TestEnd_RetryCannotUpgradeFinalState(t *testing.T) {
	playbackSvc, viewSvc, mediaSvc, cleanup := setupTestServices(t)
	defer cleanup()

	ctx := context.Background()
	media := createTestMedia(t, mediaSvc, "video", 100)

	resp, err := playbackSvc.Start(ctx, "user_1", media.ID, StartSessionRequest{})
	require.NoError(t, err)

	// End after one second of watching; not enough to qualify.
	final := 1.0
	ended, err := playbackSvc.End(ctx, "user_1", EndSessionRequest{
		SessionID:   resp.Session.ID,
		PositionSec: &final,
	})
	require.NoError(t, err)
	assert.False(t, ended.ViewRecorded)

	// A second end with a larger position must not accumulate watched time
	// on the terminal session or smuggle in a view after the fact.
	late := 50.0
	again, err := playbackSvc.End(ctx, "user_1", EndSessionRequest{
		SessionID:   resp.Session.ID,
		PositionSec: &late,
		IsComplete:  true,
	})
	require.NoError(t, err)
	assert.False(t, again.ViewRecorded)
	assert.Equal(t, int64(1000), again.Session.WatchedMs)
	assert.Equal(t, 1.0, again.Session.PositionSec)
	assert.False(t, again.Session.IsComplete)

	viewed, err := viewSvc.HasViewed(ctx, "user_1", media.ID)
	require.NoError(t, err)
	assert.False(t, viewed)
}

func TestEnd_FinalPositionCountsTowardQualification(t *testing.T) {
	playbackSvc, _, mediaSvc, cleanup := setupTestServices(t)
	defer cleanup()

	ctx := context.Background()
	media := createTestMedia(t, mediaSvc, "video", 100)

	resp, err := playbackSvc.Start(ctx, "user_1", media.ID, StartSessionRequest{})
	require.NoError(t, err)

	// No intermediate progress; the end report carries the final position.
	final := 30.0
	ended, err := playbackSvc.End(ctx, "user_1", EndSessionRequest{
		SessionID:   resp.Session.ID,
		PositionSec: &final,
	})
	require.NoError(t, err)
	assert.True(t, ended.ViewRecorded)
	assert.Equal(t, int64(30000), ended.Session.WatchedMs)
}

func TestGetActive_NoneReturnsNil(t *testing.T) {
	playbackSvc, _, _, cleanup := setupTestServices(t)
	defer cleanup()

	active, err := playbackSvc.GetActive(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestGetHistory(t *testing.T) {
	playbackSvc, _, mediaSvc, cleanup := setupTestServices(t)
	defer cleanup()

	ctx := context.Background()
	media := createTestMedia(t, mediaSvc, "video", 100)

	var lastID string
	for range 3 {
		resp, err := playbackSvc.Start(ctx, "user_1", media.ID, StartSessionRequest{})
		require.NoError(t, err)
		lastID = resp.Session.ID
	}

	history, err := playbackSvc.GetHistory(ctx, "user_1", store.PaginationParams{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, history.Total)
	assert.True(t, history.HasMore)
	require.Len(t, history.Items, 2)
	assert.Equal(t, lastID, history.Items[0].ID)
}

func TestEndStale(t *testing.T) {
	playbackSvc, viewSvc, mediaSvc, cleanup := setupTestServices(t)
	defer cleanup()

	ctx := context.Background()
	media := createTestMedia(t, mediaSvc, "video", 100)

	resp, err := playbackSvc.Start(ctx, "user_1", media.ID, StartSessionRequest{})
	require.NoError(t, err)

	_, err = playbackSvc.Progress(ctx, "user_1", ProgressRequest{
		SessionID:   resp.Session.ID,
		PositionSec: 50,
	})
	require.NoError(t, err)

	// Backdate the session past the idle cutoff.
	_, err = playbackSvc.store.MutateSession(ctx, resp.Session.ID, func(s *domain.PlaybackSession) error {
		s.LastProgressAt = time.Now().Add(-48 * time.Hour)
		return nil
	})
	require.NoError(t, err)

	ended, err := playbackSvc.EndStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, ended)

	active, err := playbackSvc.GetActive(ctx, "user_1")
	require.NoError(t, err)
	assert.Nil(t, active)

	// Sweeps never run qualification; abandoned engagement doesn't count.
	viewed, err := viewSvc.HasViewed(ctx, "user_1", media.ID)
	require.NoError(t, err)
	assert.False(t, viewed)
}
