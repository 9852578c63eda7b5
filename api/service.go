package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jacentio/itemsvc/store"
)

// Service dispatches requests to the item handlers against one Store.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	store    store.Store
	router   *Router
	handlers map[Operation]HandlerFunc
	logger   *slog.Logger
}

// NewService creates a new Service.
func NewService(s store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    s,
		router:   NewRouter(),
		handlers: Handlers(),
		logger:   logger,
	}
}

// Handle routes req, runs the selected handler and formats the outcome.
// It always returns a response.
func (svc *Service) Handle(ctx context.Context, req Request) Response {
	start := time.Now()
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	op, err := svc.dispatch(ctx, &req)

	var resp Response
	if err != nil {
		resp = FormatError(err)
	} else {
		resp = FormatSuccess(op.result)
	}
	resp.Headers[HeaderRequestID] = req.RequestID

	attrs := []any{
		"requestId", req.RequestID,
		"method", req.Method,
		"path", req.Path,
		"operation", string(op.name),
		"statusCode", resp.StatusCode,
		"durationMs", time.Since(start).Milliseconds(),
	}
	if resp.StatusCode >= 500 {
		svc.logger.Error("request failed", append(attrs, "error", err)...)
	} else {
		svc.logger.Info("request handled", attrs...)
	}

	return resp
}

type outcome struct {
	name   Operation
	result any
}

// dispatch matches the route, fills path parameters and invokes the handler.
func (svc *Service) dispatch(ctx context.Context, req *Request) (out outcome, err error) {
	name, params, err := svc.router.Match(req.Method, req.Path)
	if err != nil {
		return out, err
	}
	out.name = name

	merged := make(map[string]string, len(req.PathParameters)+len(params))
	for k, v := range req.PathParameters {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	req.PathParameters = merged

	handler, ok := svc.handlers[name]
	if !ok {
		return out, &InternalError{Err: fmt.Errorf("no handler for operation %q", name)}
	}

	defer func() {
		if r := recover(); r != nil {
			err = &InternalError{Err: fmt.Errorf("panic in %s handler: %v", name, r)}
		}
	}()

	out.result, err = handler(ctx, *req, svc.store)
	return out, err
}
