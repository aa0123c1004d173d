package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/streamnestapp/streamnest-server/internal/domain"
)

// Sentinel errors for playback session operations.
var (
	ErrSessionNotFound  = ErrNotFound.WithMessage("playback session not found")
	ErrNoActiveSession  = ErrNotFound.WithMessage("no active playback session")
	ErrResumeNotFound   = ErrNotFound.WithMessage("no saved position")
	ErrSessionCorrupted = ErrInvalidInput.WithMessage("playback session record corrupted")
)

// StartSession atomically makes session the user's single non-ended session.
//
// In one transaction: any current session for the user is ended (its position
// saved for later resume), the starting position is resolved (explicit hint
// wins over the saved position for this media, which wins over zero), and the
// new session plus its indexes are written. Concurrent starts for the same
// user conflict on the current-session index, so one retries and supersedes
// the other; at most one session stays non-ended.
//
// Returns the superseded session (nil if none) so the caller can feed its
// final engagement metrics to view qualification.
func (s *Store) StartSession(
	ctx context.Context,
	session *domain.PlaybackSession,
	resumeHint *float64,
) (*domain.PlaybackSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var preempted *domain.PlaybackSession

	err := s.update(func(txn *badger.Txn) error {
		preempted = nil

		// End whatever the user is currently playing.
		prior, err := s.currentSessionTxn(txn, session.UserID)
		if err != nil && !errors.Is(err, ErrNoActiveSession) {
			return err
		}
		if prior != nil && !prior.IsTerminal() {
			prior.End(nil, false)
			if err := s.finishSessionTxn(txn, prior); err != nil {
				return err
			}
			preempted = prior
		}

		// Resolve the starting position.
		switch {
		case resumeHint != nil:
			session.ApplyProgress(*resumeHint, nil, true, false)
		default:
			if pos, err := resumePositionTxn(txn, session.UserID, session.MediaID); err == nil {
				session.ApplyProgress(pos, nil, true, false)
			} else if !errors.Is(err, ErrResumeNotFound) {
				return err
			}
		}

		if err := setJSON(txn, playbackKey(session.ID), session); err != nil {
			return fmt.Errorf("set session: %w", err)
		}
		if err := txn.Set(currentSessionKey(session.UserID), []byte(session.ID)); err != nil {
			return fmt.Errorf("set current index: %w", err)
		}
		if err := txn.Set(sessionByUserKey(session.UserID, session.StartedAt, session.ID), []byte(session.ID)); err != nil {
			return fmt.Errorf("set user index: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}
	return preempted, nil
}

// GetSession retrieves a playback session by ID.
func (s *Store) GetSession(ctx context.Context, id string) (*domain.PlaybackSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var session domain.PlaybackSession
	if err := s.get(playbackKey(id), &session); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &session, nil
}

// GetActiveSession returns the user's current non-ended session.
// Returns ErrNoActiveSession if the user isn't playing anything.
func (s *Store) GetActiveSession(ctx context.Context, userID string) (*domain.PlaybackSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var session *domain.PlaybackSession
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		session, err = s.currentSessionTxn(txn, userID)
		return err
	})

	if err != nil {
		return nil, err
	}
	return session, nil
}

// MutateSession applies mutate to the stored session in one conflict-retried
// transaction and persists the result. On retry the session is re-read, so
// mutate observes the state left by whichever concurrent writer won (a
// pre-empting start included). If the mutation ends the session, its position
// is saved for resume and the current-session index is released.
func (s *Store) MutateSession(
	ctx context.Context,
	sessionID string,
	mutate func(*domain.PlaybackSession) error,
) (*domain.PlaybackSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var session *domain.PlaybackSession
	err := s.update(func(txn *badger.Txn) error {
		session = new(domain.PlaybackSession)
		if err := getJSON(txn, playbackKey(sessionID), session); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrSessionNotFound
			}
			return fmt.Errorf("get session: %w", err)
		}

		if err := mutate(session); err != nil {
			return err
		}

		if session.IsTerminal() {
			return s.finishSessionTxn(txn, session)
		}
		return setJSON(txn, playbackKey(session.ID), session)
	})

	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetUserSessions returns a page of the user's sessions, most recent first,
// along with the total session count.
func (s *Store) GetUserSessions(ctx context.Context, userID string, page, limit int) ([]*domain.PlaybackSession, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	prefix := []byte(sessionByUserPrefix + userID + ":")
	var sessions []*domain.PlaybackSession
	var total int

	err := s.db.View(func(txn *badger.Txn) error {
		// First pass: collect session IDs from the index. Keys sort by start
		// time ascending, so walk them into a slice and read it backwards.
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		var ids []string
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				ids = append(ids, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}

		total = len(ids)
		start := (page - 1) * limit
		if start >= total {
			return nil
		}

		// Second pass: fetch the page in the same transaction (no N+1).
		sessions = make([]*domain.PlaybackSession, 0, limit)
		for i := total - 1 - start; i >= 0 && len(sessions) < limit; i-- {
			var session domain.PlaybackSession
			if err := getJSON(txn, playbackKey(ids[i]), &session); err != nil {
				continue // Skip missing sessions
			}
			sessions = append(sessions, &session)
		}

		return nil
	})

	if err != nil {
		return nil, 0, fmt.Errorf("list user sessions: %w", err)
	}

	return sessions, total, nil
}

// GetResumePosition returns the saved position for a user and media item.
// Returns ErrResumeNotFound when the user never played it.
func (s *Store) GetResumePosition(ctx context.Context, userID, mediaID string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var pos float64
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		pos, err = resumePositionTxn(txn, userID, mediaID)
		return err
	})

	if err != nil {
		return 0, err
	}
	return pos, nil
}

// EndStaleSessions ends every non-ended session with no progress for longer
// than maxIdle. Each session is ended in its own transaction so a client that
// wakes up mid-sweep conflicts and wins or loses cleanly. Returns the number
// of sessions ended.
func (s *Store) EndStaleSessions(ctx context.Context, maxIdle time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := time.Now()
	prefix := []byte(playbackPrefix)
	var staleIDs []string

	// First pass: find stale sessions. The index prefixes share the session
	// prefix, so skip keys that aren't primary records.
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			if strings.HasPrefix(key, currentSessionPrefix) ||
				strings.HasPrefix(key, sessionByUserPrefix) ||
				strings.HasPrefix(key, resumePrefix) {
				continue
			}

			err := it.Item().Value(func(val []byte) error {
				var session domain.PlaybackSession
				if unmarshalErr := json.Unmarshal(val, &session); unmarshalErr != nil {
					// Skip malformed sessions - log but don't fail
					return nil
				}
				if session.IsStale(now, maxIdle) {
					staleIDs = append(staleIDs, session.ID)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return 0, fmt.Errorf("find stale sessions: %w", err)
	}

	// Second pass: end them.
	ended := 0
	for _, id := range staleIDs {
		_, err := s.MutateSession(ctx, id, func(session *domain.PlaybackSession) error {
			if !session.IsStale(now, maxIdle) {
				return errSkipSweep // Client came back between passes
			}
			session.End(nil, false)
			return nil
		})
		if err != nil {
			if errors.Is(err, errSkipSweep) || errors.Is(err, ErrSessionNotFound) {
				continue
			}
			if s.logger != nil {
				s.logger.Warn("failed to end stale session", "session_id", id, "error", err)
			}
			continue
		}
		ended++
	}

	return ended, nil
}

// errSkipSweep aborts a sweep mutation without treating it as a failure.
var errSkipSweep = errors.New("session no longer stale")

// currentSessionTxn loads the user's current session inside a transaction.
func (s *Store) currentSessionTxn(txn *badger.Txn, userID string) (*domain.PlaybackSession, error) {
	item, err := txn.Get(currentSessionKey(userID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("get current index: %w", err)
	}

	var sessionID string
	if err := item.Value(func(val []byte) error {
		sessionID = string(val)
		return nil
	}); err != nil {
		return nil, err
	}

	var session domain.PlaybackSession
	if err := getJSON(txn, playbackKey(sessionID), &session); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			// Dangling index; treat as no active session.
			return nil, ErrNoActiveSession
		}
		return nil, fmt.Errorf("get current session: %w", err)
	}
	if session.IsTerminal() {
		return nil, ErrNoActiveSession
	}

	return &session, nil
}

// finishSessionTxn persists an ended session, saves its position for resume,
// and releases the current-session index if it still points at it.
func (s *Store) finishSessionTxn(txn *badger.Txn, session *domain.PlaybackSession) error {
	if err := setJSON(txn, playbackKey(session.ID), session); err != nil {
		return fmt.Errorf("set session: %w", err)
	}

	pos := strconv.FormatFloat(session.PositionSec, 'f', -1, 64)
	if err := txn.Set(resumeKey(session.UserID, session.MediaID), []byte(pos)); err != nil {
		return fmt.Errorf("set resume position: %w", err)
	}

	item, err := txn.Get(currentSessionKey(session.UserID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get current index: %w", err)
	}

	var currentID string
	if err := item.Value(func(val []byte) error {
		currentID = string(val)
		return nil
	}); err != nil {
		return err
	}

	if currentID == session.ID {
		if err := txn.Delete(currentSessionKey(session.UserID)); err != nil {
			return fmt.Errorf("delete current index: %w", err)
		}
	}
	return nil
}

// resumePositionTxn reads a saved position inside a transaction.
func resumePositionTxn(txn *badger.Txn, userID, mediaID string) (float64, error) {
	item, err := txn.Get(resumeKey(userID, mediaID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, ErrResumeNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get resume position: %w", err)
	}

	var pos float64
	err = item.Value(func(val []byte) error {
		var parseErr error
		pos, parseErr = strconv.ParseFloat(string(val), 64)
		return parseErr
	})
	if err != nil {
		return 0, ErrSessionCorrupted.WithCause(err)
	}

	return pos, nil
}
