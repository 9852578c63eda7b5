package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jacentio/itemsvc/item"
	"github.com/jacentio/itemsvc/store"
)

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports that the target item is absent or expired.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("item %q not found", e.ID) }

// RouteError reports a request that no route accepts.
type RouteError struct {
	Method string
	Path   string

	// Allowed lists the methods the path does accept. Empty means the path
	// itself is unknown.
	Allowed []string
}

func (e *RouteError) Error() string {
	if e.MethodNotAllowed() {
		return fmt.Sprintf("method %s not allowed on %s (allowed: %s)", e.Method, e.Path, strings.Join(e.Allowed, ", "))
	}
	return fmt.Sprintf("endpoint not found: %s %s", e.Method, e.Path)
}

// MethodNotAllowed reports whether the path exists under another method.
func (e *RouteError) MethodNotAllowed() bool { return len(e.Allowed) > 0 }

// TooLargeError reports a request body over the accepted size.
type TooLargeError struct {
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("request body exceeds %d bytes", e.Limit)
}

// StoreUnavailableError wraps an engine failure.
type StoreUnavailableError struct {
	Err error
}

func (e *StoreUnavailableError) Error() string { return "store unavailable: " + e.Err.Error() }
func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// InternalError wraps anything unanticipated, including recovered panics.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string { return "internal error: " + e.Err.Error() }
func (e *InternalError) Unwrap() error { return e.Err }

func validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// translateStoreError maps store and item errors onto the api taxonomy.
func translateStoreError(err error, id string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return &NotFoundError{ID: id}
	case errors.Is(err, store.ErrInvalidCursor):
		return validationf("invalid cursor")
	case errors.Is(err, item.ErrEmptyID),
		errors.Is(err, item.ErrReservedKey),
		errors.Is(err, item.ErrNegativeTTL):
		return &ValidationError{Message: strings.TrimPrefix(err.Error(), "itemsvc: ")}
	case errors.Is(err, store.ErrUnavailable):
		return &StoreUnavailableError{Err: err}
	default:
		return &InternalError{Err: err}
	}
}
