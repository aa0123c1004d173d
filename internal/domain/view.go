package domain

import "time"

// InteractionView is the interaction type recorded by the view ledger.
const InteractionView = "view"

// EngagementSample is a snapshot of how much of a media item a user consumed.
// It is the input to view qualification and the payload merged into ViewRecords.
type EngagementSample struct {
	DurationMs  int64   `json:"duration_ms"`
	ProgressPct float64 `json:"progress_pct"`
	IsComplete  bool    `json:"is_complete"`
}

// ViewRecord is the durable proof that a user produced at least one qualifying
// view of a content item. Its existence is exactly the "hasViewed" fact.
// Created once per (user, content); subsequent qualifying samples merge into
// the running maxima and refresh LastViewedAt, but never touch the aggregate
// counter again.
type ViewRecord struct {
	UserID          string `json:"user_id"`
	ContentID       string `json:"content_id"`
	InteractionType string `json:"interaction_type"`

	MaxDurationMs  int64   `json:"max_duration_ms"`
	MaxProgressPct float64 `json:"max_progress_pct"`
	IsComplete     bool    `json:"is_complete"`

	FirstQualifiedAt time.Time `json:"first_qualified_at"`
	LastViewedAt     time.Time `json:"last_viewed_at"`
}

// ViewRecordID generates the composite key: "userID:contentID".
func ViewRecordID(userID, contentID string) string {
	return userID + ":" + contentID
}

// NewViewRecord creates a record from the first qualifying sample.
func NewViewRecord(userID, contentID string, sample EngagementSample) *ViewRecord {
	now := time.Now()
	return &ViewRecord{
		UserID:           userID,
		ContentID:        contentID,
		InteractionType:  InteractionView,
		MaxDurationMs:    sample.DurationMs,
		MaxProgressPct:   sample.ProgressPct,
		IsComplete:       sample.IsComplete,
		FirstQualifiedAt: now,
		LastViewedAt:     now,
	}
}

// Merge folds a later sample into the record's best-ever values and stamps
// LastViewedAt. Every qualifying repeat view refreshes the timestamp, even
// when it raises no maximum; completion never unsets once recorded.
func (r *ViewRecord) Merge(sample EngagementSample) {
	if sample.DurationMs > r.MaxDurationMs {
		r.MaxDurationMs = sample.DurationMs
	}
	if sample.ProgressPct > r.MaxProgressPct {
		r.MaxProgressPct = sample.ProgressPct
	}
	if sample.IsComplete {
		r.IsComplete = true
	}
	r.LastViewedAt = time.Now()
}
