// Package storetest provides a contract test suite shared by every store engine.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/jacentio/itemsvc/item"
	"github.com/jacentio/itemsvc/store"
)

// Factory returns a fresh, empty Store. Engines that need cleanup register
// it with t.Cleanup.
type Factory func(t *testing.T) store.Store

// RunStoreTests runs the contract suite for a Store implementation.
func RunStoreTests(t *testing.T, name string, factory Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("CreateThenGet", func(t *testing.T) {
			testCreateThenGet(t, factory(t))
		})

		t.Run("PutOverwrites", func(t *testing.T) {
			testPutOverwrites(t, factory(t))
		})

		t.Run("DeleteThenGet", func(t *testing.T) {
			testDeleteThenGet(t, factory(t))
		})

		t.Run("Merge", func(t *testing.T) {
			testMerge(t, factory(t))
		})

		t.Run("MergeClearsField", func(t *testing.T) {
			testMergeClearsField(t, factory(t))
		})

		t.Run("MergeMissing", func(t *testing.T) {
			testMergeMissing(t, factory(t))
		})

		t.Run("Expiry", func(t *testing.T) {
			testExpiry(t, factory(t))
		})

		t.Run("ListPagination", func(t *testing.T) {
			testListPagination(t, factory(t))
		})

		t.Run("ListSkipsExpired", func(t *testing.T) {
			testListSkipsExpired(t, factory(t))
		})

		t.Run("ListInvalidCursor", func(t *testing.T) {
			testListInvalidCursor(t, factory(t))
		})

		t.Run("RejectsInvalidItems", func(t *testing.T) {
			testRejectsInvalidItems(t, factory(t))
		})

		t.Run("ConcurrentMerges", func(t *testing.T) {
			testConcurrentMerges(t, factory(t))
		})

		t.Run("LargeIntegerRoundTrip", func(t *testing.T) {
			testLargeIntegerRoundTrip(t, factory(t))
		})

		t.Run("ReturnedItemsAreCopies", func(t *testing.T) {
			testReturnedItemsAreCopies(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func mustPut(t *testing.T, s store.Store, it item.Item) item.Item {
	t.Helper()
	stored, err := s.Put(context.Background(), it)
	if err != nil {
		t.Fatalf("Put(%q): %v", it.ID, err)
	}
	return stored
}

func mustGet(t *testing.T, s store.Store, id string) item.Item {
	t.Helper()
	it, err := s.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get(%q): %v", id, err)
	}
	return it
}

func requireNotFound(t *testing.T, s store.Store, id string) {
	t.Helper()
	_, err := s.Get(context.Background(), id)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Get(%q): expected ErrNotFound, got %v", id, err)
	}
}

func future() int64 { return time.Now().Add(time.Hour).Unix() }

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testCreateThenGet(t *testing.T, s store.Store) {
	want := item.Item{
		ID: "item-1",
		Attributes: item.Attributes{
			"name":   "x",
			"price":  json.Number("9.5"),
			"active": true,
			"tags":   []any{"a", "b"},
			"dims":   map[string]any{"w": json.Number("2")},
		},
		TTL: future(),
	}

	stored := mustPut(t, s, want)
	if !reflect.DeepEqual(stored, want) {
		t.Errorf("Put returned %+v, want %+v", stored, want)
	}

	got := mustGet(t, s, want.ID)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get returned %+v, want %+v", got, want)
	}
}

func testPutOverwrites(t *testing.T, s store.Store) {
	mustPut(t, s, item.Item{ID: "dup", Attributes: item.Attributes{"a": json.Number("1"), "b": "old"}})
	mustPut(t, s, item.Item{ID: "dup", Attributes: item.Attributes{"a": json.Number("2")}})

	got := mustGet(t, s, "dup")
	want := item.Attributes{"a": json.Number("2")}
	if !reflect.DeepEqual(got.Attributes, want) {
		t.Errorf("expected full replace %v, got %v", want, got.Attributes)
	}
}

func testDeleteThenGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustPut(t, s, item.Item{ID: "del", Attributes: item.Attributes{"a": "b"}})

	if err := s.Delete(ctx, "del"); err != nil {
		t.Fatalf("Delete existing: %v", err)
	}
	requireNotFound(t, s, "del")

	// Deleting again, or deleting something that never existed, is not an error
	if err := s.Delete(ctx, "del"); err != nil {
		t.Fatalf("Delete twice: %v", err)
	}
	if err := s.Delete(ctx, "never-existed"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
	requireNotFound(t, s, "never-existed")
}

func testMerge(t *testing.T, s store.Store) {
	mustPut(t, s, item.Item{ID: "m", Attributes: item.Attributes{"a": json.Number("1")}})

	merged, err := s.Merge(context.Background(), "m", item.Attributes{"b": json.Number("2")})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	want := item.Attributes{"a": json.Number("1"), "b": json.Number("2")}
	if !reflect.DeepEqual(merged.Attributes, want) {
		t.Errorf("Merge returned %v, want %v", merged.Attributes, want)
	}
	if merged.ID != "m" {
		t.Errorf("Merge returned id %q", merged.ID)
	}

	got := mustGet(t, s, "m")
	if !reflect.DeepEqual(got.Attributes, want) {
		t.Errorf("Get after Merge returned %v, want %v", got.Attributes, want)
	}
}

func testMergeClearsField(t *testing.T, s store.Store) {
	ttl := future()
	mustPut(t, s, item.Item{ID: "c", Attributes: item.Attributes{"a": json.Number("1"), "b": "x"}, TTL: ttl})

	merged, err := s.Merge(context.Background(), "c", item.Attributes{"b": nil, "d": "new"})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	want := item.Attributes{"a": json.Number("1"), "d": "new"}
	if !reflect.DeepEqual(merged.Attributes, want) {
		t.Errorf("Merge returned %v, want %v", merged.Attributes, want)
	}
	if merged.TTL != ttl {
		t.Errorf("Merge changed TTL: got %d, want %d", merged.TTL, ttl)
	}
}

func testMergeMissing(t *testing.T, s store.Store) {
	_, err := s.Merge(context.Background(), "ghost", item.Attributes{"a": json.Number("1")})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	requireNotFound(t, s, "ghost")
}

func testExpiry(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustPut(t, s, item.Item{ID: "old", Attributes: item.Attributes{"a": "b"}, TTL: 1_000_000_000})

	requireNotFound(t, s, "old")

	_, err := s.Merge(ctx, "old", item.Attributes{"a": "c"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Merge on expired item: expected ErrNotFound, got %v", err)
	}

	// Re-creating an expired id brings it back
	mustPut(t, s, item.Item{ID: "old", Attributes: item.Attributes{"a": "d"}})
	if got := mustGet(t, s, "old"); got.Attributes["a"] != "d" {
		t.Errorf("expected recreated item, got %+v", got)
	}
}

func testListPagination(t *testing.T, s store.Store) {
	ctx := context.Background()
	const total = 7
	for i := 0; i < total; i++ {
		mustPut(t, s, item.Item{ID: fmt.Sprintf("p%02d", i), Attributes: item.Attributes{"n": i}})
	}

	seen := make(map[string]bool)
	cursor := ""
	pages := 0
	for {
		page, err := s.List(ctx, store.ListInput{Limit: 3, Cursor: cursor})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		pages++
		if len(page.Items) > 3 {
			t.Fatalf("page %d has %d items, limit 3", pages, len(page.Items))
		}
		for _, it := range page.Items {
			if seen[it.ID] {
				t.Errorf("item %q returned twice", it.ID)
			}
			seen[it.ID] = true
		}
		if page.Cursor == "" {
			break
		}
		cursor = page.Cursor
		if pages > total {
			t.Fatal("pagination did not terminate")
		}
	}

	if len(seen) != total {
		t.Errorf("expected %d items across pages, got %d", total, len(seen))
	}
}

func testListSkipsExpired(t *testing.T, s store.Store) {
	mustPut(t, s, item.Item{ID: "live-1", Attributes: item.Attributes{}})
	mustPut(t, s, item.Item{ID: "dead-1", Attributes: item.Attributes{}, TTL: 1_000_000_000})
	mustPut(t, s, item.Item{ID: "live-2", Attributes: item.Attributes{}, TTL: future()})
	mustPut(t, s, item.Item{ID: "dead-2", Attributes: item.Attributes{}, TTL: time.Now().Unix() - 1})

	page, err := s.List(context.Background(), store.ListInput{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, it := range page.Items {
		if it.Expired(time.Now()) {
			t.Errorf("List returned expired item %q", it.ID)
		}
	}
	if len(page.Items) != 2 {
		t.Errorf("expected 2 live items, got %d", len(page.Items))
	}
	if page.Cursor != "" {
		t.Errorf("expected no cursor on the only page, got %q", page.Cursor)
	}
}

func testListInvalidCursor(t *testing.T, s store.Store) {
	_, err := s.List(context.Background(), store.ListInput{Cursor: "%%%not-base64"})
	if !errors.Is(err, store.ErrInvalidCursor) {
		t.Errorf("expected ErrInvalidCursor, got %v", err)
	}
}

func testRejectsInvalidItems(t *testing.T, s store.Store) {
	ctx := context.Background()
	if _, err := s.Put(ctx, item.Item{}); !errors.Is(err, item.ErrEmptyID) {
		t.Errorf("Put empty id: expected ErrEmptyID, got %v", err)
	}
	if _, err := s.Put(ctx, item.Item{ID: "r", Attributes: item.Attributes{"ttl": json.Number("1")}}); !errors.Is(err, item.ErrReservedKey) {
		t.Errorf("Put reserved key: expected ErrReservedKey, got %v", err)
	}

	mustPut(t, s, item.Item{ID: "r", Attributes: item.Attributes{}})
	if _, err := s.Merge(ctx, "r", item.Attributes{"id": "other"}); !errors.Is(err, item.ErrReservedKey) {
		t.Errorf("Merge reserved key: expected ErrReservedKey, got %v", err)
	}
}

func testConcurrentMerges(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustPut(t, s, item.Item{ID: "cc", Attributes: item.Attributes{}})

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.Merge(ctx, "cc", item.Attributes{fmt.Sprintf("k%d", i): i}); err != nil {
				t.Errorf("Merge %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	// Every engine here merges atomically per key, so no update is lost
	got := mustGet(t, s, "cc")
	if len(got.Attributes) != writers {
		t.Errorf("expected %d attributes, got %d: %v", writers, len(got.Attributes), got.Attributes)
	}
}

func testLargeIntegerRoundTrip(t *testing.T, s store.Store) {
	// 2^53+1 is the first integer float64 cannot represent
	want := item.Attributes{
		"big":    json.Number("9007199254740993"),
		"huge":   json.Number("123456789012345678901234567890"),
		"nested": map[string]any{"n": json.Number("9007199254740995")},
		"list":   []any{json.Number("18014398509481985")},
	}
	mustPut(t, s, item.Item{ID: "big", Attributes: want})

	got := mustGet(t, s, "big")
	if !reflect.DeepEqual(got.Attributes, want) {
		t.Errorf("Get returned %v, want %v", got.Attributes, want)
	}

	merged, err := s.Merge(context.Background(), "big", item.Attributes{"more": json.Number("9007199254740997")})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if merged.Attributes["more"] != json.Number("9007199254740997") {
		t.Errorf("Merge returned %#v, want 9007199254740997", merged.Attributes["more"])
	}
	if merged.Attributes["big"] != json.Number("9007199254740993") {
		t.Errorf("Merge changed big to %#v", merged.Attributes["big"])
	}
}

func testReturnedItemsAreCopies(t *testing.T, s store.Store) {
	nested := map[string]any{"k": "v"}
	tags := []any{"a"}
	stored := mustPut(t, s, item.Item{ID: "alias", Attributes: item.Attributes{"nested": nested, "tags": tags}})

	// Mutating the caller's values or a returned item must not reach the store
	nested["k"] = "caller"
	tags[0] = "caller"
	stored.Attributes["nested"].(map[string]any)["k"] = "put-result"

	got := mustGet(t, s, "alias")
	got.Attributes["nested"].(map[string]any)["k"] = "get-result"
	got.Attributes["tags"].([]any)[0] = "get-result"

	again := mustGet(t, s, "alias")
	if v := again.Attributes["nested"].(map[string]any)["k"]; v != "v" {
		t.Errorf("nested map was aliased: k=%v", v)
	}
	if v := again.Attributes["tags"].([]any)[0]; v != "a" {
		t.Errorf("list was aliased: [0]=%v", v)
	}
}
