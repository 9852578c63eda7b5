package store_test

import (
	"testing"

	"github.com/jacentio/itemsvc/store"
	"github.com/jacentio/itemsvc/store/storetest"
)

func TestMemoryStore(t *testing.T) {
	storetest.RunStoreTests(t, "MemoryStore", func(t *testing.T) store.Store {
		return store.NewMemory(store.DefaultConfig())
	})
}
