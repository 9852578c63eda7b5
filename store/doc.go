// Package store provides the key-value data access layer for items.
//
// Every engine implements the same single-key contract, [Store]:
//
//	type Store interface {
//	    Put(ctx context.Context, it item.Item) (item.Item, error)
//	    Get(ctx context.Context, id string) (item.Item, error)
//	    Merge(ctx context.Context, id string, partial item.Attributes) (item.Item, error)
//	    Delete(ctx context.Context, id string) error
//	    List(ctx context.Context, in ListInput) (Page, error)
//	}
//
// # Expiry
//
// An item whose TTL has elapsed is logically deleted. Engines may reclaim
// expired items in the background (DynamoDB TTL, [BoltStore.Purge]), but
// every read checks the TTL at call time and never returns an expired item.
//
// # Engines
//
//   - [DynamoStore] - a DynamoDB table keyed by "id", TTL attribute "ttl"
//   - [BoltStore] - a local bbolt file, for development
//   - [MemoryStore] - process memory, for tests
//
// # Configuration
//
// Use [DefaultConfig] and override what you need:
//
//	cfg := store.DefaultConfig()
//	cfg.Table = os.Getenv("DYNAMODB_TABLE")
//	s := store.NewDynamo(client, cfg)
//
// # Errors
//
//   - [ErrNotFound] - item doesn't exist or has expired
//   - [ErrUnavailable] - the underlying engine failed
//   - [ErrInvalidCursor] - a list cursor could not be decoded
package store
