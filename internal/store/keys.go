package store

import (
	"fmt"
	"time"
)

// Key layout. Every record lives under a typed prefix; secondary lookups are
// explicit index keys maintained in the same transaction as the primary row.
const (
	mediaPrefix = "media:"

	playbackPrefix       = "psession:"
	currentSessionPrefix = "psession:idx:current:" // + userID -> session ID of the one non-ended session
	sessionByUserPrefix  = "psession:idx:user:"    // + userID:startedAtNano:sessionID -> session ID
	resumePrefix         = "psession:resume:"      // + userID:mediaID -> last position in seconds

	viewPrefix = "view:" // + userID:contentID -> ViewRecord
)

func mediaKey(mediaID string) []byte {
	return []byte(mediaPrefix + mediaID)
}

func playbackKey(sessionID string) []byte {
	return []byte(playbackPrefix + sessionID)
}

func currentSessionKey(userID string) []byte {
	return []byte(currentSessionPrefix + userID)
}

// sessionByUserKey orders a user's sessions by start time. The nanosecond
// timestamp is zero-padded so lexicographic key order matches time order.
func sessionByUserKey(userID string, startedAt time.Time, sessionID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%020d:%s", sessionByUserPrefix, userID, startedAt.UnixNano(), sessionID))
}

func resumeKey(userID, mediaID string) []byte {
	return []byte(resumePrefix + userID + ":" + mediaID)
}

func viewKey(userID, contentID string) []byte {
	return []byte(viewPrefix + userID + ":" + contentID)
}
