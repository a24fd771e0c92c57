// Package store persists small JSON documents under string keys: per-driver
// notification queues, trip history, earnings logs and the active trip
// snapshot.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"blueway/internal/domain"
)

// Documents is a key/value store of JSON bodies.
type Documents interface {
	// Get returns domain.ErrNotFound when key has never been written or was deleted.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte) error
	// Delete is a no-op for missing keys.
	Delete(ctx context.Context, key string) error
}

const CurrentTripKey = "current_live_trip"

func NotificationsKey(driverID string) string { return "driver_notifications_" + driverID }

func HistoryKey(driverID string) string { return "trip_history_" + driverID }

func EarningsKey(driverID string) string { return "driver_earnings_" + driverID }

// LoadList reads a JSON array stored under key. A missing document is an empty
// list. A document that does not decode is logged and also read as empty.
func LoadList[T any](ctx context.Context, docs Documents, key string) ([]T, error) {
	body, err := docs.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store.LoadList: %w", err)
	}
	var out []T
	if err := json.Unmarshal(body, &out); err != nil {
		slog.WarnContext(ctx, "corrupt document, reading as empty", "key", key, "error", err)
		return []T{}, nil
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// PrependCapped puts item at the head of the list stored under key and drops
// entries beyond limit. A limit of zero or less keeps everything.
func PrependCapped[T any](ctx context.Context, docs Documents, key string, item T, limit int) ([]T, error) {
	list, err := LoadList[T](ctx, docs, key)
	if err != nil {
		return nil, err
	}
	list = append([]T{item}, list...)
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	if err := SaveValue(ctx, docs, key, list); err != nil {
		return nil, err
	}
	return list, nil
}

// LoadValue decodes the document under key into a T. ok is false when the
// document is missing or corrupt.
func LoadValue[T any](ctx context.Context, docs Documents, key string) (v T, ok bool, err error) {
	body, err := docs.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return v, false, nil
	}
	if err != nil {
		return v, false, fmt.Errorf("store.LoadValue: %w", err)
	}
	if err := json.Unmarshal(body, &v); err != nil {
		slog.WarnContext(ctx, "corrupt document, ignoring", "key", key, "error", err)
		var zero T
		return zero, false, nil
	}
	return v, true, nil
}

func SaveValue(ctx context.Context, docs Documents, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store.SaveValue: marshal %s: %w", key, err)
	}
	if err := docs.Put(ctx, key, body); err != nil {
		return fmt.Errorf("store.SaveValue: %w", err)
	}
	return nil
}
