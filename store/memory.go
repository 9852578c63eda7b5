package store

import (
	"context"
	"sort"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/jacentio/itemsvc/item"
)

// MemoryStore keeps items in process memory. Items are listed in id order.
// It is safe for concurrent use.
type MemoryStore struct {
	items  *xsync.MapOf[string, item.Item]
	config Config
}

var _ Store = (*MemoryStore)(nil)

// NewMemory creates an empty MemoryStore.
func NewMemory(config Config) *MemoryStore {
	config.validate()
	return &MemoryStore{
		items:  xsync.NewMapOf[string, item.Item](),
		config: config,
	}
}

// Put stores a copy of it.
func (s *MemoryStore) Put(_ context.Context, it item.Item) (item.Item, error) {
	if err := it.Validate(); err != nil {
		return item.Item{}, err
	}
	it.Attributes = it.Attributes.Clone()
	s.items.Store(it.ID, it)
	return copyItem(it), nil
}

// Get returns a copy of the live item for id.
func (s *MemoryStore) Get(_ context.Context, id string) (item.Item, error) {
	it, ok := s.items.Load(id)
	if !ok || it.Expired(time.Now()) {
		return item.Item{}, ErrNotFound
	}
	return copyItem(it), nil
}

// Merge applies partial atomically for id.
func (s *MemoryStore) Merge(_ context.Context, id string, partial item.Attributes) (item.Item, error) {
	if err := partial.Validate(); err != nil {
		return item.Item{}, err
	}

	now := time.Now()
	found := false
	merged, _ := s.items.Compute(id, func(current item.Item, loaded bool) (item.Item, bool) {
		if !loaded {
			// Returning delete=true for a missing key leaves the map untouched
			return current, true
		}
		if current.Expired(now) {
			return current, false
		}
		found = true
		current.Attributes = current.Attributes.Merge(partial)
		return current, false
	})
	if !found {
		return item.Item{}, ErrNotFound
	}
	return copyItem(merged), nil
}

// Delete removes id.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.items.Delete(id)
	return nil
}

// List returns live items sorted by id, starting after the cursor.
func (s *MemoryStore) List(_ context.Context, in ListInput) (Page, error) {
	limit := s.config.PageLimit(in.Limit)
	after, err := decodeCursor(in.Cursor)
	if err != nil {
		return Page{}, err
	}

	now := time.Now()
	var live []item.Item
	s.items.Range(func(id string, it item.Item) bool {
		if id > after && !it.Expired(now) {
			live = append(live, copyItem(it))
		}
		return true
	})
	sort.Slice(live, func(i, j int) bool { return live[i].ID < live[j].ID })

	page := Page{Items: []item.Item{}}
	if len(live) > limit {
		page.Items = append(page.Items, live[:limit]...)
		page.Cursor = encodeCursor(live[limit-1].ID)
		return page, nil
	}
	page.Items = append(page.Items, live...)
	return page, nil
}

func copyItem(it item.Item) item.Item {
	it.Attributes = it.Attributes.Clone()
	return it
}
