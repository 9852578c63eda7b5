package store

import (
	"encoding/base64"
	"fmt"
)

// encodeCursor turns the last id of a page into an opaque continuation token.
func encodeCursor(lastID string) string {
	if lastID == "" {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(lastID))
}

// decodeCursor returns the id to resume after. An empty cursor yields "".
func decodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if len(b) == 0 {
		return "", ErrInvalidCursor
	}
	return string(b), nil
}
