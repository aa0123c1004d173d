package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/streamnestapp/streamnest-server/internal/domain"
)

// Sentinel errors for view ledger operations.
var ErrViewRecordNotFound = ErrNotFound.WithMessage("view record not found")

// RecordView folds a qualifying engagement sample into the view ledger for
// one (user, content) pair and keeps the aggregate counter consistent with
// it, all in a single conflict-retried transaction:
//
//   - record exists: merge the sample's running maxima and refresh the view
//     timestamp, never touch the counter again
//   - record missing and the sample qualifies: create the record and bump the
//     counter in the same transaction
//   - record missing and the sample doesn't qualify: write nothing
//
// Concurrent first views of the same pair conflict on the record key; the
// loser retries, finds the winner's record, and merges instead of creating.
// The counter therefore moves exactly once per distinct viewer.
//
// Returns whether a record was created and the counter's current value.
func (s *Store) RecordView(
	ctx context.Context,
	userID, contentID string,
	field domain.CounterField,
	sample domain.EngagementSample,
	qualifies bool,
) (bool, int64, error) {
	if err := ctx.Err(); err != nil {
		return false, 0, err
	}

	key := viewKey(userID, contentID)
	var created bool
	var count int64

	err := s.update(func(txn *badger.Txn) error {
		created = false

		var record domain.ViewRecord
		err := getJSON(txn, key, &record)

		switch {
		case err == nil:
			if qualifies {
				record.Merge(sample)
				if err := setJSON(txn, key, &record); err != nil {
					return fmt.Errorf("set view record: %w", err)
				}
			}
			count, err = counterValueTxn(txn, contentID, field)
			return err

		case errors.Is(err, badger.ErrKeyNotFound):
			if !qualifies {
				count, err = counterValueTxn(txn, contentID, field)
				return err
			}

			fresh := domain.NewViewRecord(userID, contentID, sample)
			if err := setJSON(txn, key, fresh); err != nil {
				return fmt.Errorf("set view record: %w", err)
			}
			count, err = applyCounterIncrement(txn, contentID, field)
			if err != nil {
				return err
			}
			created = true
			return nil

		default:
			return fmt.Errorf("get view record: %w", err)
		}
	})

	if err != nil {
		return false, 0, err
	}
	return created, count, nil
}

// GetViewRecord retrieves the view record for a (user, content) pair.
func (s *Store) GetViewRecord(ctx context.Context, userID, contentID string) (*domain.ViewRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record domain.ViewRecord
	if err := s.get(viewKey(userID, contentID), &record); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrViewRecordNotFound
		}
		return nil, fmt.Errorf("get view record: %w", err)
	}

	return &record, nil
}

// HasViewed reports whether the user has a qualifying view of the content.
// The record's existence is the answer; no metrics are read.
func (s *Store) HasViewed(ctx context.Context, userID, contentID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.exists(viewKey(userID, contentID))
}

// HasViewedBatch answers HasViewed for many content IDs in one transaction.
// Used to enrich media listings without N round trips.
func (s *Store) HasViewedBatch(ctx context.Context, userID string, contentIDs []string) (map[string]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := make(map[string]bool, len(contentIDs))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, contentID := range contentIDs {
			_, err := txn.Get(viewKey(userID, contentID))
			switch {
			case err == nil:
				result[contentID] = true
			case errors.Is(err, badger.ErrKeyNotFound):
				result[contentID] = false
			default:
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("batch view lookup: %w", err)
	}
	return result, nil
}

// counterValueTxn reads the current value of a media counter in a transaction.
func counterValueTxn(txn *badger.Txn, contentID string, field domain.CounterField) (int64, error) {
	var media domain.MediaItem
	if err := getJSON(txn, mediaKey(contentID), &media); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, ErrMediaNotFound
		}
		return 0, fmt.Errorf("get media: %w", err)
	}
	return media.CounterValue(field), nil
}
