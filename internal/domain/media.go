package domain

import "time"

// MediaKind classifies content for playback tracking and view qualification.
type MediaKind string

// Supported media kinds.
const (
	MediaKindVideo MediaKind = "video"
	MediaKindAudio MediaKind = "audio"
	MediaKindEbook MediaKind = "ebook"
)

// ParseMediaKind converts a string to a MediaKind.
// Returns false if the string is not a known kind.
func ParseMediaKind(s string) (MediaKind, bool) {
	switch MediaKind(s) {
	case MediaKindVideo, MediaKindAudio, MediaKindEbook:
		return MediaKind(s), true
	default:
		return "", false
	}
}

// CounterField identifies which aggregate counter a media item accumulates.
type CounterField string

// Aggregate counter fields on MediaItem.
const (
	CounterViews   CounterField = "view_count"
	CounterListens CounterField = "listen_count"
)

// Counter returns the aggregate counter fed by qualifying engagement
// with this kind of media. Audio accumulates listens, everything else views.
func (k MediaKind) Counter() CounterField {
	if k == MediaKindAudio {
		return CounterListens
	}
	return CounterViews
}

// MediaItem is the content entity this service tracks engagement against.
// The catalog itself (upload, metadata, moderation) lives elsewhere; only the
// aggregate counters are owned here, and they are mutated exclusively through
// the store's atomic increment.
type MediaItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Kind        MediaKind `json:"kind"`
	DurationSec float64   `json:"duration_sec,omitempty"`

	ViewCount   int64 `json:"view_count"`
	ListenCount int64 `json:"listen_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CounterValue returns the current value of the given aggregate counter.
func (m *MediaItem) CounterValue(field CounterField) int64 {
	if field == CounterListens {
		return m.ListenCount
	}
	return m.ViewCount
}

// AddToCounter bumps the given counter by delta and returns the new value.
func (m *MediaItem) AddToCounter(field CounterField, delta int64) int64 {
	if field == CounterListens {
		m.ListenCount += delta
		return m.ListenCount
	}
	m.ViewCount += delta
	return m.ViewCount
}
