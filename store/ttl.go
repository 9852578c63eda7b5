package store

import (
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/itemsvc/item"
)

// IsExpired checks if a raw DynamoDB item has an elapsed TTL.
func IsExpired(raw map[string]types.AttributeValue, now time.Time) bool {
	return item.Expired(ttlValue(raw), now)
}

// ttlValue reads the "ttl" number attribute, returning 0 when absent or malformed.
func ttlValue(raw map[string]types.AttributeValue) int64 {
	ttlAttr, exists := raw[item.KeyTTL]
	if !exists {
		return 0
	}
	ttlNum, ok := ttlAttr.(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	ttl, err := strconv.ParseInt(ttlNum.Value, 10, 64)
	if err != nil {
		return 0
	}
	return ttl
}

// TTLFilterExpr returns the filter expression that excludes expired items.
// A TTL of 0 is never written, so absence is the only "no expiry" form.
func TTLFilterExpr() string {
	return "attribute_not_exists(#ttl) OR #ttl > :now"
}

// TTLFilterNames returns expression attribute names for the TTL filter.
func TTLFilterNames() map[string]string {
	return map[string]string{"#ttl": item.KeyTTL}
}

// TTLFilterValues returns expression attribute values for the TTL filter.
func TTLFilterValues(now time.Time) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		":now": &types.AttributeValueMemberN{
			Value: strconv.FormatInt(now.Unix(), 10),
		},
	}
}

// LiveItemCondition returns the condition expression for "item exists and has not expired".
func LiveItemCondition() string {
	return "attribute_exists(id) AND (attribute_not_exists(#ttl) OR #ttl > :now)"
}
