package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/streamnestapp/streamnest-server/internal/domain"
)

// Sentinel errors for media operations.
var (
	ErrMediaNotFound = ErrNotFound.WithMessage("media not found")
	ErrMediaExists   = ErrAlreadyExists.WithMessage("media already exists")
)

// CreateMedia stores a new media item.
func (s *Store) CreateMedia(ctx context.Context, media *domain.MediaItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := mediaKey(media.ID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check media exists: %w", err)
	}
	if exists {
		return ErrMediaExists
	}

	return s.set(key, media)
}

// GetMedia retrieves a media item by ID.
func (s *Store) GetMedia(ctx context.Context, id string) (*domain.MediaItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var media domain.MediaItem
	if err := s.get(mediaKey(id), &media); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("get media: %w", err)
	}

	return &media, nil
}

// ListMedia returns all media items, newest first.
func (s *Store) ListMedia(ctx context.Context) ([]*domain.MediaItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(mediaPrefix)
	var items []*domain.MediaItem

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var media domain.MediaItem
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &media)
			})
			if err != nil {
				return err
			}
			items = append(items, &media)
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}

	slices.SortFunc(items, func(a, b *domain.MediaItem) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return items, nil
}

// IncrementCounter atomically bumps one aggregate counter on a media item
// and returns the new value. Concurrent increments each land exactly once;
// conflicting transactions are retried against the fresh count.
func (s *Store) IncrementCounter(ctx context.Context, contentID string, field domain.CounterField) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var newValue int64
	err := s.update(func(txn *badger.Txn) error {
		var err error
		newValue, err = applyCounterIncrement(txn, contentID, field)
		return err
	})
	if err != nil {
		return 0, err
	}

	return newValue, nil
}

// applyCounterIncrement bumps a counter inside an open transaction so callers
// can make the increment atomic with their own writes.
func applyCounterIncrement(txn *badger.Txn, contentID string, field domain.CounterField) (int64, error) {
	key := mediaKey(contentID)

	var media domain.MediaItem
	if err := getJSON(txn, key, &media); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return 0, ErrMediaNotFound
		}
		return 0, fmt.Errorf("get media for increment: %w", err)
	}

	newValue := media.AddToCounter(field, 1)
	media.UpdatedAt = time.Now()

	if err := setJSON(txn, key, &media); err != nil {
		return 0, fmt.Errorf("set media: %w", err)
	}

	return newValue, nil
}
