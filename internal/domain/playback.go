package domain

import "time"

// SessionState is the lifecycle state of a playback session.
type SessionState string

// Session lifecycle: (none) -> Active -> {Paused <-> Active} -> Ended.
// Ended is terminal.
const (
	SessionActive SessionState = "active"
	SessionPaused SessionState = "paused"
	SessionEnded  SessionState = "ended"
)

// PlaybackSession tracks one continuous playback attempt of a media item.
// At most one session per user is non-Ended at any instant; starting a new
// session supersedes (ends) the previous one at the store layer.
type PlaybackSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	MediaID   string    `json:"media_id"`
	MediaKind MediaKind `json:"media_kind"`

	PositionSec float64 `json:"position_sec"`
	DurationSec float64 `json:"duration_sec,omitempty"`
	ProgressPct float64 `json:"progress_pct"`

	// WatchedMs accumulates forward playback only. Seeks and rewinds don't
	// contribute, so this is the engagement signal fed to view qualification.
	WatchedMs  int64 `json:"watched_ms"`
	IsComplete bool  `json:"is_complete"`

	State          SessionState `json:"state"`
	StartedAt      time.Time    `json:"started_at"`
	LastProgressAt time.Time    `json:"last_progress_at"`
	EndedAt        *time.Time   `json:"ended_at,omitempty"`
}

// NewPlaybackSession creates an Active session starting at the given position.
func NewPlaybackSession(id, userID, mediaID string, kind MediaKind, positionSec, durationSec float64) *PlaybackSession {
	now := time.Now()
	s := &PlaybackSession{
		ID:             id,
		UserID:         userID,
		MediaID:        mediaID,
		MediaKind:      kind,
		PositionSec:    positionSec,
		DurationSec:    durationSec,
		State:          SessionActive,
		StartedAt:      now,
		LastProgressAt: now,
	}
	s.recalcProgress()
	return s
}

// IsTerminal reports whether the session has ended.
func (s *PlaybackSession) IsTerminal() bool {
	return s.State == SessionEnded
}

// ApplyProgress records a position update. Position only moves forward unless
// seek is set (rewinds don't reset progress); forward movement accumulates
// watched time. If the session was Paused, a progress report is treated as an
// implicit resume. Duration is adopted once, when first reported.
func (s *PlaybackSession) ApplyProgress(positionSec float64, durationSec *float64, seek, isComplete bool) {
	if durationSec != nil && *durationSec > 0 && s.DurationSec == 0 {
		s.DurationSec = *durationSec
	}

	switch {
	case seek:
		s.PositionSec = positionSec
	case positionSec > s.PositionSec:
		s.WatchedMs += int64((positionSec - s.PositionSec) * 1000)
		s.PositionSec = positionSec
	}

	if isComplete {
		s.IsComplete = true
	}
	if s.State == SessionPaused {
		s.State = SessionActive
	}
	s.LastProgressAt = time.Now()
	s.recalcProgress()
}

// Pause transitions Active -> Paused.
func (s *PlaybackSession) Pause() {
	s.State = SessionPaused
	s.LastProgressAt = time.Now()
}

// Resume transitions Paused -> Active without creating a new session.
func (s *PlaybackSession) Resume() {
	s.State = SessionActive
	s.LastProgressAt = time.Now()
}

// End finalizes the session. A final position behind the last reported one
// is ignored. Ending an already-Ended session is a no-op: the stored final
// state stands, however the retry arrives.
func (s *PlaybackSession) End(finalPositionSec *float64, isComplete bool) {
	if s.IsTerminal() {
		return
	}
	if finalPositionSec != nil && *finalPositionSec > s.PositionSec {
		s.WatchedMs += int64((*finalPositionSec - s.PositionSec) * 1000)
		s.PositionSec = *finalPositionSec
	}
	if isComplete {
		s.IsComplete = true
	}
	now := time.Now()
	s.State = SessionEnded
	s.EndedAt = &now
	s.recalcProgress()
}

// IsStale reports whether the session has seen no progress since the cutoff.
// Stale non-Ended sessions are swept by the cleanup job.
func (s *PlaybackSession) IsStale(now time.Time, maxIdle time.Duration) bool {
	return !s.IsTerminal() && now.Sub(s.LastProgressAt) > maxIdle
}

// Sample snapshots the session's engagement metrics for view qualification.
func (s *PlaybackSession) Sample() EngagementSample {
	return EngagementSample{
		DurationMs:  s.WatchedMs,
		ProgressPct: s.ProgressPct,
		IsComplete:  s.IsComplete,
	}
}

// recalcProgress derives the progress percentage, clamped to [0, 100].
func (s *PlaybackSession) recalcProgress() {
	if s.DurationSec <= 0 {
		return
	}
	pct := s.PositionSec / s.DurationSec * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	s.ProgressPct = pct
}
