package api_test

import (
	"errors"
	"testing"

	"github.com/jacentio/itemsvc/api"
)

func TestRouterMatch(t *testing.T) {
	r := api.NewRouter()

	tests := []struct {
		name   string
		method string
		path   string
		op     api.Operation
		id     string
	}{
		{"list", "GET", "/items", api.OpList, ""},
		{"list trailing slash", "GET", "/items/", api.OpList, ""},
		{"create", "POST", "/items", api.OpCreate, ""},
		{"get", "GET", "/items/abc", api.OpGet, "abc"},
		{"update", "PUT", "/items/abc", api.OpUpdate, "abc"},
		{"delete", "DELETE", "/items/abc", api.OpDelete, "abc"},
		{"lowercase method", "get", "/items/abc", api.OpGet, "abc"},
		{"escaped id", "GET", "/items/a%2Fb", api.OpGet, "a/b"},
		{"unicode id", "GET", "/items/日本", api.OpGet, "日本"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, params, err := r.Match(tt.method, tt.path)
			if err != nil {
				t.Fatalf("Match(%s %s): %v", tt.method, tt.path, err)
			}
			if op != tt.op {
				t.Errorf("expected %q, got %q", tt.op, op)
			}
			if params["id"] != tt.id {
				t.Errorf("expected id %q, got %q", tt.id, params["id"])
			}
		})
	}
}

func TestRouterMatch_MethodNotAllowed(t *testing.T) {
	r := api.NewRouter()

	tests := []struct {
		method  string
		path    string
		allowed []string
	}{
		{"PATCH", "/items/abc", []string{"GET", "PUT", "DELETE"}},
		{"DELETE", "/items", []string{"GET", "POST"}},
		{"POST", "/items/abc", []string{"GET", "PUT", "DELETE"}},
		{"PATCH", "/items/%zz", []string{"GET", "PUT", "DELETE"}},
		{"POST", "/items/%zz", []string{"GET", "PUT", "DELETE"}},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			_, _, err := r.Match(tt.method, tt.path)
			var routeErr *api.RouteError
			if !errors.As(err, &routeErr) {
				t.Fatalf("expected RouteError, got %v", err)
			}
			if !routeErr.MethodNotAllowed() {
				t.Fatal("expected method-not-allowed")
			}
			if len(routeErr.Allowed) != len(tt.allowed) {
				t.Fatalf("expected allowed %v, got %v", tt.allowed, routeErr.Allowed)
			}
			for i := range tt.allowed {
				if routeErr.Allowed[i] != tt.allowed[i] {
					t.Errorf("expected allowed %v, got %v", tt.allowed, routeErr.Allowed)
				}
			}
		})
	}
}

func TestRouterMatch_NotFound(t *testing.T) {
	r := api.NewRouter()

	paths := []string{
		"/unknown",
		"/",
		"",
		"/items/abc/sub",
		"/items//",
		"/itemsx",
		"/v1/items",
	}

	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			_, _, err := r.Match("GET", p)
			var routeErr *api.RouteError
			if !errors.As(err, &routeErr) {
				t.Fatalf("expected RouteError, got %v", err)
			}
			if routeErr.MethodNotAllowed() {
				t.Errorf("expected route-not-found for %q, got method-not-allowed", p)
			}
		})
	}
}

func TestRouterMatch_MalformedEscape(t *testing.T) {
	for _, method := range []string{"GET", "PUT", "DELETE"} {
		t.Run(method, func(t *testing.T) {
			_, _, err := api.NewRouter().Match(method, "/items/%zz")
			var validationErr *api.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}
