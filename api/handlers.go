package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jacentio/itemsvc/item"
	"github.com/jacentio/itemsvc/store"
)

// HandlerFunc runs one operation. Handlers keep no state between calls:
// the result depends only on the request and the store at call time.
type HandlerFunc func(ctx context.Context, req Request, s store.Store) (any, error)

// ListResult is the body of a successful list.
type ListResult struct {
	Items  []item.Item `json:"items"`
	Count  int         `json:"count"`
	Cursor string      `json:"cursor,omitempty"`
}

// DeleteResult acknowledges a delete. It does not say whether the item existed.
type DeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
	Message string `json:"message"`
}

// createBody is the accepted shape of a create request.
type createBody struct {
	ID         string          `json:"id"`
	Attributes item.Attributes `json:"attributes"`
	TTL        int64           `json:"ttl"`
}

// Handlers returns the handler for every operation.
func Handlers() map[Operation]HandlerFunc {
	return map[Operation]HandlerFunc{
		OpList:   List,
		OpGet:    Get,
		OpCreate: Create,
		OpUpdate: Update,
		OpDelete: Delete,
	}
}

// List returns one page of live items. Query parameters: limit (positive
// integer, defaults to the store's page size) and cursor.
func List(ctx context.Context, req Request, s store.Store) (any, error) {
	in := store.ListInput{Cursor: req.QueryParameters["cursor"]}
	if raw, ok := req.QueryParameters["limit"]; ok {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return nil, validationf("limit must be a positive integer")
		}
		in.Limit = limit
	}

	page, err := s.List(ctx, in)
	if err != nil {
		return nil, translateStoreError(err, "")
	}
	return ListResult{
		Items:  page.Items,
		Count:  len(page.Items),
		Cursor: page.Cursor,
	}, nil
}

// Get returns one live item.
func Get(ctx context.Context, req Request, s store.Store) (any, error) {
	id, err := pathID(req)
	if err != nil {
		return nil, err
	}
	it, err := s.Get(ctx, id)
	if err != nil {
		return nil, translateStoreError(err, id)
	}
	return it, nil
}

// Create upserts the item in the body. Creating an existing id overwrites it.
func Create(ctx context.Context, req Request, s store.Store) (any, error) {
	var body createBody
	if err := decodeStrict(req.Body, &body); err != nil {
		return nil, err
	}
	if body.ID == "" {
		return nil, validationf("id is required")
	}
	if body.Attributes == nil {
		body.Attributes = item.Attributes{}
	}

	it := item.Item{ID: body.ID, Attributes: body.Attributes, TTL: body.TTL}
	if err := it.Validate(); err != nil {
		return nil, translateStoreError(err, it.ID)
	}

	stored, err := s.Put(ctx, it)
	if err != nil {
		return nil, translateStoreError(err, it.ID)
	}
	return stored, nil
}

// Update merges the attributes in the body into an existing item.
// A null value clears that attribute.
func Update(ctx context.Context, req Request, s store.Store) (any, error) {
	id, err := pathID(req)
	if err != nil {
		return nil, err
	}

	var partial item.Attributes
	if err := decodeStrict(req.Body, &partial); err != nil {
		return nil, err
	}
	if len(partial) == 0 {
		return nil, validationf("body must contain at least one attribute")
	}
	if err := partial.Validate(); err != nil {
		return nil, translateStoreError(err, id)
	}

	merged, err := s.Merge(ctx, id, partial)
	if err != nil {
		return nil, translateStoreError(err, id)
	}
	return merged, nil
}

// Delete removes an item and always acknowledges.
func Delete(ctx context.Context, req Request, s store.Store) (any, error) {
	id, err := pathID(req)
	if err != nil {
		return nil, err
	}
	if err := s.Delete(ctx, id); err != nil {
		return nil, translateStoreError(err, id)
	}
	return DeleteResult{
		ID:      id,
		Deleted: true,
		Message: fmt.Sprintf("item %s deleted", id),
	}, nil
}

func pathID(req Request) (string, error) {
	id := req.PathParameters["id"]
	if id == "" {
		return "", validationf("id path parameter is required")
	}
	return id, nil
}

// decodeStrict parses a JSON body into v, rejecting empty bodies, unknown
// fields and trailing data. Untyped numbers decode as json.Number.
func decodeStrict(body string, v any) error {
	if strings.TrimSpace(body) == "" {
		return validationf("request body is required")
	}

	dec := json.NewDecoder(bytes.NewBufferString(body))
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return validationf("malformed request body: %v", err)
	}
	if dec.More() {
		return validationf("malformed request body: trailing data")
	}
	return nil
}
