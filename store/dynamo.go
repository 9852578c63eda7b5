package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/itemsvc/item"
)

// DynamoClient is the subset of *dynamodb.Client used by DynamoStore.
// Tests substitute a fake.
type DynamoClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoStore stores items in a DynamoDB table whose partition key is the
// string attribute "id". Attributes are stored as top-level DynamoDB
// attributes; the table's TTL attribute must be "ttl".
type DynamoStore struct {
	client DynamoClient
	config Config
}

var _ Store = (*DynamoStore)(nil)

// NewDynamo creates a new DynamoStore instance.
func NewDynamo(client DynamoClient, config Config) *DynamoStore {
	config.validate()
	return &DynamoStore{
		client: client,
		config: config,
	}
}

// Config returns the validated configuration.
func (s *DynamoStore) Config() Config {
	return s.config
}

// Put writes it unconditionally, replacing any item with the same id.
func (s *DynamoStore) Put(ctx context.Context, it item.Item) (item.Item, error) {
	if err := it.Validate(); err != nil {
		return item.Item{}, err
	}
	raw, err := marshalItem(it)
	if err != nil {
		return item.Item{}, fmt.Errorf("marshal item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.config.Table),
		Item:      raw,
	})
	if err != nil {
		return item.Item{}, fmt.Errorf("%w: put item: %w", ErrUnavailable, err)
	}

	it.Attributes = it.Attributes.Clone()
	return it, nil
}

// Get retrieves an item by id, returning ErrNotFound if expired or missing.
func (s *DynamoStore) Get(ctx context.Context, id string) (item.Item, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.config.Table),
		Key:            itemKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return item.Item{}, fmt.Errorf("%w: get item: %w", ErrUnavailable, err)
	}
	if result.Item == nil {
		return item.Item{}, ErrNotFound
	}

	// DynamoDB reclaims expired items lazily, so check the TTL ourselves
	if IsExpired(result.Item, time.Now()) {
		return item.Item{}, ErrNotFound
	}

	return UnmarshalItem(result.Item)
}

// Merge updates only the attributes named in partial, in a single
// conditional UpdateItem. The condition fails for missing or expired items,
// so Merge never creates an item.
func (s *DynamoStore) Merge(ctx context.Context, id string, partial item.Attributes) (item.Item, error) {
	if err := partial.Validate(); err != nil {
		return item.Item{}, err
	}
	if len(partial) == 0 {
		return s.Get(ctx, id)
	}
	partial = partial.Clone()

	now := time.Now()
	exprNames := TTLFilterNames()
	exprValues := TTLFilterValues(now)

	// Sort keys so the generated expression is stable
	keys := make([]string, 0, len(partial))
	for k := range partial {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var setClauses, removeClauses []string
	for i, k := range keys {
		nameKey := fmt.Sprintf("#attr%d", i)
		exprNames[nameKey] = k

		v := partial[k]
		if v == nil {
			removeClauses = append(removeClauses, nameKey)
			continue
		}
		av, err := attributevalue.Marshal(toDynamoValue(v))
		if err != nil {
			return item.Item{}, fmt.Errorf("marshal attribute %q: %w", k, err)
		}
		valueKey := fmt.Sprintf(":val%d", i)
		exprValues[valueKey] = av
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
	}

	var parts []string
	if len(setClauses) > 0 {
		parts = append(parts, "SET "+strings.Join(setClauses, ", "))
	}
	if len(removeClauses) > 0 {
		parts = append(parts, "REMOVE "+strings.Join(removeClauses, ", "))
	}

	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.config.Table),
		Key:                       itemKey(id),
		UpdateExpression:          aws.String(strings.Join(parts, " ")),
		ConditionExpression:       aws.String(LiveItemCondition()),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return item.Item{}, ErrNotFound
		}
		return item.Item{}, fmt.Errorf("%w: update item: %w", ErrUnavailable, err)
	}

	return UnmarshalItem(result.Attributes)
}

// Delete removes an item. Deleting a missing item succeeds.
func (s *DynamoStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.config.Table),
		Key:       itemKey(id),
	})
	if err != nil {
		return fmt.Errorf("%w: delete item: %w", ErrUnavailable, err)
	}
	return nil
}

// List scans the table with automatic TTL filtering.
// DynamoDB applies Limit before the filter, so pages are read until the
// requested number of live items is collected or the table is exhausted.
func (s *DynamoStore) List(ctx context.Context, in ListInput) (Page, error) {
	limit := s.config.PageLimit(in.Limit)
	startID, err := decodeCursor(in.Cursor)
	if err != nil {
		return Page{}, err
	}

	now := time.Now()
	scanInput := &dynamodb.ScanInput{
		TableName:                 aws.String(s.config.Table),
		FilterExpression:          aws.String(TTLFilterExpr()),
		ExpressionAttributeNames:  TTLFilterNames(),
		ExpressionAttributeValues: TTLFilterValues(now),
		Limit:                     aws.Int32(int32(limit)),
		ConsistentRead:            aws.Bool(true),
	}
	if startID != "" {
		scanInput.ExclusiveStartKey = itemKey(startID)
	}

	page := Page{Items: []item.Item{}}
	paginator := dynamodb.NewScanPaginator(s.client, scanInput)
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return Page{}, fmt.Errorf("%w: scan: %w", ErrUnavailable, err)
		}
		for i, raw := range out.Items {
			if IsExpired(raw, now) {
				continue
			}
			it, err := UnmarshalItem(raw)
			if err != nil {
				return Page{}, err
			}
			page.Items = append(page.Items, it)

			if len(page.Items) == limit {
				if i < len(out.Items)-1 || out.LastEvaluatedKey != nil {
					page.Cursor = encodeCursor(it.ID)
				}
				return page, nil
			}
		}
	}

	return page, nil
}

// itemKey builds the primary key for id.
func itemKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		item.KeyID: &types.AttributeValueMemberS{Value: id},
	}
}

// marshalItem flattens an Item into a DynamoDB item: attributes at the top
// level next to "id" and, when set, "ttl".
func marshalItem(it item.Item) (map[string]types.AttributeValue, error) {
	raw, err := attributevalue.MarshalMap(toDynamoValue(map[string]any(it.Attributes.Clone())))
	if err != nil {
		return nil, err
	}
	raw[item.KeyID] = &types.AttributeValueMemberS{Value: it.ID}
	if it.TTL != 0 {
		raw[item.KeyTTL] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", it.TTL)}
	}
	return raw, nil
}

// UnmarshalItem converts a DynamoDB item, as read from the table or a stream
// image, back into an Item. The reserved "id" and "ttl" attributes are lifted
// out of Attributes.
func UnmarshalItem(raw map[string]types.AttributeValue) (item.Item, error) {
	it := item.Item{Attributes: item.Attributes{}}

	if v, ok := raw[item.KeyID].(*types.AttributeValueMemberS); ok {
		it.ID = v.Value
	}
	it.TTL = ttlValue(raw)

	for k, av := range raw {
		if k == item.KeyID || k == item.KeyTTL {
			continue
		}
		var v any
		if err := attributevalue.UnmarshalWithOptions(av, &v, func(o *attributevalue.DecoderOptions) {
			o.UseNumber = true
		}); err != nil {
			return item.Item{}, fmt.Errorf("unmarshal attribute %q: %w", k, err)
		}
		it.Attributes[k] = fromDynamoValue(v)
	}

	return it, nil
}

// toDynamoValue swaps json.Number for attributevalue.Number so numbers are
// written as N with their exact literal instead of as strings.
func toDynamoValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		return attributevalue.Number(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = toDynamoValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = toDynamoValue(e)
		}
		return out
	}
	return v
}

// fromDynamoValue is the inverse of toDynamoValue for decoded attributes.
// Number sets become lists of json.Number.
func fromDynamoValue(v any) any {
	switch x := v.(type) {
	case attributevalue.Number:
		return json.Number(x)
	case []attributevalue.Number:
		out := make([]any, len(x))
		for i, n := range x {
			out[i] = json.Number(n)
		}
		return out
	case map[string]any:
		for k, e := range x {
			x[k] = fromDynamoValue(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = fromDynamoValue(e)
		}
		return x
	}
	return v
}
