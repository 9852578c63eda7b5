package api

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// DefaultStagePrefixes are path prefixes stripped from API Gateway paths when
// a stage is mapped into the URL.
var DefaultStagePrefixes = []string{"dev", "staging", "prod"}

// LambdaHandler adapts API Gateway HTTP API (payload v2) events to a Service.
type LambdaHandler struct {
	service *Service
	stages  []string
}

// NewLambdaHandler creates a LambdaHandler. With no stage prefixes given,
// DefaultStagePrefixes are used.
func NewLambdaHandler(svc *Service, stagePrefixes ...string) *LambdaHandler {
	if len(stagePrefixes) == 0 {
		stagePrefixes = DefaultStagePrefixes
	}
	return &LambdaHandler{service: svc, stages: stagePrefixes}
}

// Handle is the Lambda entrypoint. It never returns an error: every outcome,
// including a malformed event, is a formatted response.
func (h *LambdaHandler) Handle(ctx context.Context, event events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	req, err := RequestFromAPIGateway(event, h.stages)
	var resp Response
	if err != nil {
		resp = FormatError(err)
		resp.Headers[HeaderRequestID] = event.RequestContext.RequestID
	} else {
		resp = h.service.Handle(ctx, req)
	}

	return events.APIGatewayV2HTTPResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}, nil
}

// RequestFromAPIGateway normalizes an API Gateway v2 event. The stage prefix
// is removed from the path when it matches the event's own stage or one of
// stagePrefixes; base64 bodies are decoded.
func RequestFromAPIGateway(event events.APIGatewayV2HTTPRequest, stagePrefixes []string) (Request, error) {
	path := event.RawPath
	if path == "" {
		path = event.RequestContext.HTTP.Path
	}

	body := event.Body
	if event.IsBase64Encoded && body != "" {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return Request{}, validationf("request body is not valid base64")
		}
		body = string(decoded)
	}

	stages := stagePrefixes
	if st := event.RequestContext.Stage; st != "" && st != "$default" {
		stages = append([]string{st}, stagePrefixes...)
	}

	return Request{
		Method:          event.RequestContext.HTTP.Method,
		Path:            stripStage(path, stages),
		PathParameters:  copyMap(event.PathParameters),
		QueryParameters: copyMap(event.QueryStringParameters),
		Body:            body,
		RequestID:       event.RequestContext.RequestID,
	}, nil
}

// stripStage removes a leading "/<stage>" segment when it names a known stage.
func stripStage(path string, stages []string) string {
	trimmed := strings.TrimPrefix(path, "/")
	first, rest, _ := strings.Cut(trimmed, "/")
	for _, st := range stages {
		if first == st {
			return "/" + rest
		}
	}
	return path
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
