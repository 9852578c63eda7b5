package store

import (
	"context"

	"github.com/jacentio/itemsvc/item"
)

// Store is the single-key contract every engine implements.
// Each operation is atomic for one id; nothing spans several items.
type Store interface {
	// Put unconditionally upserts it and returns the stored item.
	Put(ctx context.Context, it item.Item) (item.Item, error)

	// Get returns the live item for id, or ErrNotFound.
	Get(ctx context.Context, id string) (item.Item, error)

	// Merge overlays partial onto the live item for id and stores the result.
	// Keys with nil values are removed. Returns ErrNotFound, without creating
	// anything, when no live item exists.
	Merge(ctx context.Context, id string, partial item.Attributes) (item.Item, error)

	// Delete removes id. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// List returns one page of live items in engine order.
	List(ctx context.Context, in ListInput) (Page, error)
}

// ListInput defines parameters for listing items.
type ListInput struct {
	// Limit is the maximum number of items to return (0 = Config.DefaultPageSize).
	Limit int

	// Cursor continues a previous List call. Empty starts from the beginning.
	Cursor string
}

// Page is one page of List results.
type Page struct {
	// Items are the live items on this page.
	Items []item.Item

	// Cursor is set when more items may follow. Pass it back in ListInput.
	Cursor string
}
