// Package item defines the single entity persisted by itemsvc.
package item

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Reserved attribute names. They live on the Item itself and must never
// appear inside Attributes.
const (
	KeyID  = "id"
	KeyTTL = "ttl"
)

var (
	// ErrEmptyID is returned when an item has no identifier.
	ErrEmptyID = errors.New("itemsvc: item id is required")

	// ErrReservedKey is returned when attributes contain "id" or "ttl".
	ErrReservedKey = errors.New("itemsvc: reserved attribute key")

	// ErrNegativeTTL is returned when an item carries a TTL before the epoch.
	ErrNegativeTTL = errors.New("itemsvc: ttl must not be negative")
)

// Attributes is the open, application-defined payload of an Item.
// Values are JSON-compatible: string, json.Number, bool, nil, []any and
// map[string]any. Numbers are kept as their decimal literal so integers
// beyond 2^53 survive every engine unchanged.
type Attributes map[string]any

// Item is a record keyed by ID with an optional expiry.
type Item struct {
	// ID is client-assigned and immutable.
	ID string `json:"id"`

	// Attributes holds every field except the reserved ones.
	Attributes Attributes `json:"attributes"`

	// TTL is the epoch second after which the item is logically deleted.
	// Zero means the item never expires.
	TTL int64 `json:"ttl,omitempty"`
}

// Validate checks the invariants every stored item must satisfy.
func (i Item) Validate() error {
	if i.ID == "" {
		return ErrEmptyID
	}
	if i.TTL < 0 {
		return ErrNegativeTTL
	}
	return i.Attributes.Validate()
}

// Expired reports whether the item's TTL has elapsed at now.
func (i Item) Expired(now time.Time) bool {
	return Expired(i.TTL, now)
}

// Expired reports whether a TTL (epoch seconds, 0 = none) has elapsed at now.
// A TTL equal to the current second counts as elapsed.
func Expired(ttl int64, now time.Time) bool {
	if ttl == 0 {
		return false
	}
	return ttl <= now.Unix()
}

// Validate rejects attribute maps that use a reserved key.
func (a Attributes) Validate() error {
	for _, k := range []string{KeyID, KeyTTL} {
		if _, ok := a[k]; ok {
			return fmt.Errorf("%w: %q", ErrReservedKey, k)
		}
	}
	return nil
}

// Clone returns a deep copy of a. Nested maps and slices are copied and Go
// numeric values are normalized to json.Number. A nil map clones to an
// empty one.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = cloneValue(v)
	}
	return out
}

// Merge overlays partial onto a copy of a. Keys in a that partial does not
// mention are kept; keys whose partial value is nil are removed.
func (a Attributes) Merge(partial Attributes) Attributes {
	out := a.Clone()
	for k, v := range partial {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case Attributes:
		return map[string]any(x.Clone())
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), x...)
	case []byte:
		return append([]byte(nil), x...)
	case float64:
		return floatNumber(x)
	case float32:
		return floatNumber(float64(x))
	case int:
		return json.Number(strconv.FormatInt(int64(x), 10))
	case int8:
		return json.Number(strconv.FormatInt(int64(x), 10))
	case int16:
		return json.Number(strconv.FormatInt(int64(x), 10))
	case int32:
		return json.Number(strconv.FormatInt(int64(x), 10))
	case int64:
		return json.Number(strconv.FormatInt(x, 10))
	case uint:
		return json.Number(strconv.FormatUint(uint64(x), 10))
	case uint8:
		return json.Number(strconv.FormatUint(uint64(x), 10))
	case uint16:
		return json.Number(strconv.FormatUint(uint64(x), 10))
	case uint32:
		return json.Number(strconv.FormatUint(uint64(x), 10))
	case uint64:
		return json.Number(strconv.FormatUint(x, 10))
	}
	return v
}

// floatNumber renders f the way encoding/json would. NaN and infinities have
// no JSON form and are returned unchanged.
func floatNumber(f float64) any {
	b, err := json.Marshal(f)
	if err != nil {
		return f
	}
	return json.Number(b)
}
