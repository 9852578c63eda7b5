package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// maxBodyBytes matches the API Gateway/Lambda synchronous payload limit.
const maxBodyBytes = 6 << 20

// NewHTTPHandler serves a Service over net/http, mainly for local development.
func NewHTTPHandler(svc *Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var resp Response
		req, err := requestFromHTTP(w, r)
		if err != nil {
			resp = FormatError(err)
			if req.RequestID == "" {
				req.RequestID = uuid.New().String()
			}
			resp.Headers[HeaderRequestID] = req.RequestID
		} else {
			resp = svc.Handle(r.Context(), req)
		}

		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = io.WriteString(w, resp.Body)
	})
}

// requestFromHTTP normalizes r. A body over maxBodyBytes is a
// *TooLargeError; any other read failure is a *ValidationError.
func requestFromHTTP(w http.ResponseWriter, r *http.Request) (Request, error) {
	query := make(map[string]string)
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			query[k] = vs[0]
		}
	}

	req := Request{
		Method:          r.Method,
		Path:            r.URL.EscapedPath(),
		PathParameters:  map[string]string{},
		QueryParameters: query,
		RequestID:       r.Header.Get(HeaderRequestID),
	}

	if r.Body != nil {
		b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return req, &TooLargeError{Limit: tooLarge.Limit}
			}
			return req, validationf("request body could not be read")
		}
		req.Body = string(b)
	}
	return req, nil
}
