package api

// Request is the normalized inbound request.
type Request struct {
	// Method is the HTTP verb, e.g. "GET".
	Method string

	// Path is the request path with any stage prefix removed, e.g. "/items/42".
	Path string

	// PathParameters are filled in by the Router ("id").
	PathParameters map[string]string

	// QueryParameters holds single-valued query parameters ("limit", "cursor").
	QueryParameters map[string]string

	// Body is the raw request body, empty when absent.
	Body string

	// RequestID correlates logs with the caller. Generated when empty.
	RequestID string
}

// Response is the normalized outbound response.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// Header names set on every response.
const (
	HeaderContentType = "Content-Type"
	HeaderRequestID   = "X-Request-Id"
	HeaderAllow       = "Allow"

	contentTypeJSON = "application/json"
)
