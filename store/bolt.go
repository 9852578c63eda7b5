package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/jacentio/itemsvc/item"
)

// errItemCodec marks a stored document that could not be encoded or
// decoded. It is a data problem, not an engine outage.
var errItemCodec = errors.New("item codec")

// BoltStore keeps items in a single bbolt bucket, one JSON document per id.
// Items are listed in byte order of their ids.
type BoltStore struct {
	db     *bolt.DB
	bucket []byte
	config Config
}

var _ Store = (*BoltStore)(nil)

// OpenBolt initializes or opens a BoltStore at path. The bucket is named
// after Config.Table.
func OpenBolt(path string, config Config) (*BoltStore, error) {
	config.validate()

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrUnavailable, path, err)
	}
	bucket := []byte(config.Table)
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create bucket: %w", ErrUnavailable, err)
	}
	return &BoltStore{db: db, bucket: bucket, config: config}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put stores it, replacing any previous value.
func (s *BoltStore) Put(_ context.Context, it item.Item) (item.Item, error) {
	if err := it.Validate(); err != nil {
		return item.Item{}, err
	}
	it.Attributes = it.Attributes.Clone()
	buf, err := json.Marshal(it)
	if err != nil {
		return item.Item{}, fmt.Errorf("marshal item: %w", err)
	}

	if err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(it.ID), buf)
	}); err != nil {
		return item.Item{}, fmt.Errorf("%w: put: %w", ErrUnavailable, err)
	}
	return it, nil
}

// Get returns the item if present and not expired.
func (s *BoltStore) Get(_ context.Context, id string) (item.Item, error) {
	var (
		it    item.Item
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(id))
		if v == nil {
			return nil
		}
		var err error
		it, err = decodeBoltItem(v)
		found = err == nil
		return err
	})
	if err != nil {
		return item.Item{}, wrapBoltErr("get", err)
	}
	if !found || it.Expired(time.Now()) {
		return item.Item{}, ErrNotFound
	}
	return it, nil
}

// Merge reads, overlays and writes back inside one read-write transaction.
func (s *BoltStore) Merge(_ context.Context, id string, partial item.Attributes) (item.Item, error) {
	if err := partial.Validate(); err != nil {
		return item.Item{}, err
	}

	var merged item.Item
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		v := b.Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}
		current, err := decodeBoltItem(v)
		if err != nil {
			return err
		}
		if current.Expired(time.Now()) {
			return ErrNotFound
		}

		merged = current
		merged.Attributes = current.Attributes.Merge(partial)
		buf, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("%w: marshal item: %w", errItemCodec, err)
		}
		return b.Put([]byte(id), buf)
	})
	if err != nil {
		return item.Item{}, wrapBoltErr("merge", err)
	}
	return merged, nil
}

// Delete removes id. bbolt ignores missing keys.
func (s *BoltStore) Delete(_ context.Context, id string) error {
	if err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(id))
	}); err != nil {
		return fmt.Errorf("%w: delete: %w", ErrUnavailable, err)
	}
	return nil
}

// List walks the bucket in key order starting after the cursor.
func (s *BoltStore) List(_ context.Context, in ListInput) (Page, error) {
	limit := s.config.PageLimit(in.Limit)
	after, err := decodeCursor(in.Cursor)
	if err != nil {
		return Page{}, err
	}

	now := time.Now()
	page := Page{Items: []item.Item{}}
	err = s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()

		var k, v []byte
		if after == "" {
			k, v = c.First()
		} else {
			k, v = c.Seek([]byte(after))
			if k != nil && bytes.Equal(k, []byte(after)) {
				k, v = c.Next()
			}
		}

		for ; k != nil; k, v = c.Next() {
			it, err := decodeBoltItem(v)
			if err != nil {
				return err
			}
			if it.Expired(now) {
				continue
			}
			page.Items = append(page.Items, it)
			if len(page.Items) == limit {
				if next, _ := c.Next(); next != nil {
					page.Cursor = encodeCursor(it.ID)
				}
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return Page{}, wrapBoltErr("list", err)
	}
	return page, nil
}

// Purge physically removes expired items and reports how many were removed.
// Reads never depend on it having run.
func (s *BoltStore) Purge(_ context.Context) (int, error) {
	now := time.Now()
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		var expired [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			it, err := decodeBoltItem(v)
			if err != nil {
				return err
			}
			if it.Expired(now) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	if err != nil {
		return 0, wrapBoltErr("purge", err)
	}
	return removed, nil
}

// wrapBoltErr marks err as an engine failure unless it is ErrNotFound or a
// codec error raised inside the transaction.
func wrapBoltErr(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, errItemCodec) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

// decodeBoltItem unmarshals a stored JSON document. Numbers decode as
// json.Number so they keep their exact literal.
func decodeBoltItem(v []byte) (item.Item, error) {
	var it item.Item
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	if err := dec.Decode(&it); err != nil {
		return item.Item{}, fmt.Errorf("%w: decode: %w", errItemCodec, err)
	}
	if it.Attributes == nil {
		it.Attributes = item.Attributes{}
	}
	return it, nil
}
