package api

import (
	"net/http"
	"net/url"
	"strings"
)

// Operation names one of the five item operations.
type Operation string

const (
	OpList   Operation = "list"
	OpGet    Operation = "get"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// route binds a method and a segment pattern to an operation.
// Pattern segments wrapped in braces ("{id}") capture a non-empty value.
type route struct {
	method  string
	pattern []string
	op      Operation
}

// Router maps (method, path) to an Operation with exact-segment matching.
type Router struct {
	routes []route
}

// NewRouter returns the router for the item routes.
func NewRouter() *Router {
	r := &Router{}
	r.handle(http.MethodGet, "/items", OpList)
	r.handle(http.MethodGet, "/items/{id}", OpGet)
	r.handle(http.MethodPost, "/items", OpCreate)
	r.handle(http.MethodPut, "/items/{id}", OpUpdate)
	r.handle(http.MethodDelete, "/items/{id}", OpDelete)
	return r
}

func (r *Router) handle(method, pattern string, op Operation) {
	r.routes = append(r.routes, route{
		method:  method,
		pattern: splitPath(pattern),
		op:      op,
	})
}

// Match selects exactly one operation for method and path and returns the
// captured path parameters. When no route accepts the request it returns a
// *RouteError. Captured segments are unescaped only for the route that
// matched the method, so a malformed escape is a *ValidationError there and
// never hides a 405.
func (r *Router) Match(method, path string) (Operation, map[string]string, error) {
	method = strings.ToUpper(method)
	segments := splitPath(path)

	var allowed []string
	for _, rt := range r.routes {
		if !matchSegments(rt.pattern, segments) {
			continue
		}
		if rt.method != method {
			allowed = append(allowed, rt.method)
			continue
		}
		params, err := captureParams(rt.pattern, segments)
		if err != nil {
			return "", nil, err
		}
		return rt.op, params, nil
	}

	return "", nil, &RouteError{Method: method, Path: path, Allowed: allowed}
}

// matchSegments compares a pattern against path segments.
func matchSegments(pattern, segments []string) bool {
	if len(pattern) != len(segments) {
		return false
	}
	for i, p := range pattern {
		if _, isParam := paramName(p); isParam {
			if segments[i] == "" {
				return false
			}
			continue
		}
		if p != segments[i] {
			return false
		}
	}
	return true
}

// captureParams unescapes the segments bound to pattern parameters.
func captureParams(pattern, segments []string) (map[string]string, error) {
	params := map[string]string{}
	for i, p := range pattern {
		name, isParam := paramName(p)
		if !isParam {
			continue
		}
		v, err := url.PathUnescape(segments[i])
		if err != nil {
			return nil, validationf("malformed path parameter %q", name)
		}
		params[name] = v
	}
	return params, nil
}

func paramName(segment string) (string, bool) {
	if len(segment) > 2 && strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
		return segment[1 : len(segment)-1], true
	}
	return "", false
}

// splitPath drops the leading slash and one trailing slash, then splits on "/".
// "/items/" is therefore "/items", while "/items//" keeps an empty segment.
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
