// Package stream provides DynamoDB Streams handlers for the items table.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/itemsvc/item"
	"github.com/jacentio/itemsvc/store"
)

// The identity DynamoDB stamps on records removed by the TTL service.
const (
	ttlIdentityType      = "Service"
	ttlIdentityPrincipal = "dynamodb.amazonaws.com"
)

// ExpiredFunc is called once for every item the TTL service reclaimed.
// A returned error fails the batch so Lambda retries it.
type ExpiredFunc func(ctx context.Context, it item.Item) error

// Handler observes TTL reclamation of items on the table's stream.
type Handler struct {
	onExpired ExpiredFunc
	logger    *slog.Logger
	now       func() time.Time
}

// NewHandler creates a new stream handler. onExpired may be nil, in which
// case expirations are only logged.
func NewHandler(onExpired ExpiredFunc, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		onExpired: onExpired,
		logger:    logger,
		now:       time.Now,
	}
}

// HandleExpired processes DynamoDB stream events and reports items removed
// by TTL. Deletes issued through the API and all writes are skipped.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleExpired(ctx context.Context, event events.DynamoDBEvent) error {
	expired := 0
	for _, record := range event.Records {
		ok, err := h.processRecord(ctx, record)
		if err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err
		}
		if ok {
			expired++
		}
	}

	h.logger.Debug("stream batch processed",
		"records", len(event.Records),
		"expired", expired,
	)
	return nil
}

// processRecord handles one record and reports whether it was a TTL removal.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) (bool, error) {
	if !IsTTLRemoval(record) {
		return false, nil
	}

	image := record.Change.OldImage
	if len(image) == 0 {
		// KEYS_ONLY streams carry no old image
		image = record.Change.Keys
	}

	it, err := store.UnmarshalItem(ConvertImage(image))
	if err != nil {
		return false, fmt.Errorf("decode expired item %q: %w", getStringAttr(record.Change.Keys, item.KeyID), err)
	}

	attrs := []any{"id", it.ID}
	if it.TTL != 0 {
		attrs = append(attrs, "ttl", it.TTL, "lagSeconds", h.now().Unix()-it.TTL)
	}
	h.logger.Info("item expired", attrs...)

	if h.onExpired == nil {
		return true, nil
	}
	if err := h.onExpired(ctx, it); err != nil {
		return false, fmt.Errorf("expired callback for %q: %w", it.ID, err)
	}
	return true, nil
}

// IsTTLRemoval reports whether record is a delete performed by the DynamoDB
// TTL service rather than by a client.
func IsTTLRemoval(record events.DynamoDBEventRecord) bool {
	if record.EventName != string(events.DynamoDBOperationTypeRemove) {
		return false
	}
	id := record.UserIdentity
	return id != nil && id.Type == ttlIdentityType && id.PrincipalID == ttlIdentityPrincipal
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// ConvertImage converts a DynamoDB stream image to SDK attribute values so
// it can be decoded like an item read from the table.
func ConvertImage(image map[string]events.DynamoDBAttributeValue) map[string]types.AttributeValue {
	result := make(map[string]types.AttributeValue, len(image))
	for k, v := range image {
		if av := convertAttr(v); av != nil {
			result[k] = av
		}
	}
	return result
}

func convertAttr(v events.DynamoDBAttributeValue) types.AttributeValue {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}
	case events.DataTypeList:
		list := v.List()
		out := make([]types.AttributeValue, 0, len(list))
		for _, elem := range list {
			if av := convertAttr(elem); av != nil {
				out = append(out, av)
			}
		}
		return &types.AttributeValueMemberL{Value: out}
	case events.DataTypeMap:
		return &types.AttributeValueMemberM{Value: ConvertImage(v.Map())}
	}
	return nil
}
