package api_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/itemsvc/api"
)

func apiEvent(method, path, body string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		RawPath: path,
		Body:    body,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			RequestID: "lambda-req",
			Stage:     "$default",
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method: method,
				Path:   path,
			},
		},
	}
}

// --- Request normalization ---

func TestRequestFromAPIGateway_StripsStage(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		stage string
		want  string
	}{
		{"default stage prefix", "/dev/items/1", "$default", "/items/1"},
		{"staging prefix", "/staging/items", "$default", "/items"},
		{"event stage", "/v2/items", "v2", "/items"},
		{"no prefix", "/items/1", "$default", "/items/1"},
		{"unknown prefix kept", "/beta/items", "$default", "/beta/items"},
		{"bare stage", "/prod", "$default", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := apiEvent("GET", tt.path, "")
			event.RequestContext.Stage = tt.stage

			req, err := api.RequestFromAPIGateway(event, api.DefaultStagePrefixes)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.Path != tt.want {
				t.Errorf("expected path %q, got %q", tt.want, req.Path)
			}
		})
	}
}

func TestRequestFromAPIGateway_FallsBackToContextPath(t *testing.T) {
	event := apiEvent("GET", "/items", "")
	event.RawPath = ""

	req, err := api.RequestFromAPIGateway(event, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Path != "/items" {
		t.Errorf("expected /items, got %q", req.Path)
	}
}

func TestRequestFromAPIGateway_Base64Body(t *testing.T) {
	event := apiEvent("POST", "/items", base64.StdEncoding.EncodeToString([]byte(`{"id":"1"}`)))
	event.IsBase64Encoded = true

	req, err := api.RequestFromAPIGateway(event, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Body != `{"id":"1"}` {
		t.Errorf("expected decoded body, got %q", req.Body)
	}
}

func TestRequestFromAPIGateway_BadBase64(t *testing.T) {
	event := apiEvent("POST", "/items", "%%%")
	event.IsBase64Encoded = true

	_, err := api.RequestFromAPIGateway(event, nil)
	requireErr[*api.ValidationError](t, err)
}

func TestRequestFromAPIGateway_CopiesParameters(t *testing.T) {
	event := apiEvent("GET", "/items", "")
	event.QueryStringParameters = map[string]string{"limit": "5"}

	req, _ := api.RequestFromAPIGateway(event, nil)
	event.QueryStringParameters["limit"] = "9"

	if req.QueryParameters["limit"] != "5" {
		t.Error("request must not alias the event's maps")
	}
	if req.RequestID != "lambda-req" {
		t.Errorf("expected request id from context, got %q", req.RequestID)
	}
}

// --- Handler ---

func TestLambdaHandler_Scenario(t *testing.T) {
	h := api.NewLambdaHandler(newService())
	ctx := context.Background()

	steps := []struct {
		event  events.APIGatewayV2HTTPRequest
		status int
	}{
		{apiEvent("POST", "/dev/items", `{"id":"1","attributes":{"name":"x"}}`), http.StatusOK},
		{apiEvent("GET", "/dev/items/1", ""), http.StatusOK},
		{apiEvent("PUT", "/dev/items/1", `{"name":"y"}`), http.StatusOK},
		{apiEvent("DELETE", "/dev/items/1", ""), http.StatusOK},
		{apiEvent("GET", "/dev/items/1", ""), http.StatusNotFound},
	}

	for i, step := range steps {
		resp, err := h.Handle(ctx, step.event)
		if err != nil {
			t.Fatalf("step %d: handler returned error: %v", i, err)
		}
		if resp.StatusCode != step.status {
			t.Fatalf("step %d (%s %s): expected %d, got %d: %s", i,
				step.event.RequestContext.HTTP.Method, step.event.RawPath, step.status, resp.StatusCode, resp.Body)
		}
		if resp.Headers[api.HeaderRequestID] != "lambda-req" {
			t.Errorf("step %d: expected request id header", i)
		}
	}
}

func TestLambdaHandler_MalformedEvent(t *testing.T) {
	h := api.NewLambdaHandler(newService())

	event := apiEvent("POST", "/items", "not base64!")
	event.IsBase64Encoded = true

	resp, err := h.Handle(context.Background(), event)
	if err != nil {
		t.Fatalf("handler must not return errors, got %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestLambdaHandler_CustomStages(t *testing.T) {
	h := api.NewLambdaHandler(newService(), "blue")

	resp, _ := h.Handle(context.Background(), apiEvent("GET", "/blue/items", ""))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	resp, _ = h.Handle(context.Background(), apiEvent("GET", "/dev/items", ""))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("dev is not a configured stage, expected 404, got %d", resp.StatusCode)
	}
}
