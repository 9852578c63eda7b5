package store

import "errors"

var (
	// ErrNotFound is returned when an item doesn't exist or has expired (ttl <= now).
	ErrNotFound = errors.New("itemsvc: item not found")

	// ErrUnavailable wraps failures of the underlying engine.
	ErrUnavailable = errors.New("itemsvc: store unavailable")

	// ErrInvalidCursor is returned when a list cursor is malformed.
	ErrInvalidCursor = errors.New("itemsvc: invalid list cursor")
)
