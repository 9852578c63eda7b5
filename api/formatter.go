package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Error kinds reported in error bodies.
const (
	KindValidation       = "ValidationError"
	KindNotFound         = "NotFoundError"
	KindMethodNotAllowed = "MethodNotAllowed"
	KindRouteNotFound    = "RouteNotFound"
	KindPayloadTooLarge  = "PayloadTooLarge"
	KindStoreUnavailable = "StoreUnavailable"
	KindInternal         = "InternalError"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail names the error kind and carries a caller-safe message.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// FormatSuccess renders a handler result as a 200 response.
func FormatSuccess(result any) Response {
	body, err := json.Marshal(result)
	if err != nil {
		return FormatError(&InternalError{Err: err})
	}
	return Response{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{HeaderContentType: contentTypeJSON},
		Body:       string(body),
	}
}

// FormatError converts any error into a response. Errors outside the
// taxonomy are treated as internal.
func FormatError(err error) Response {
	status, detail, headers := classify(err)

	body, _ := json.Marshal(ErrorBody{Error: detail})
	h := map[string]string{HeaderContentType: contentTypeJSON}
	for k, v := range headers {
		h[k] = v
	}
	return Response{
		StatusCode: status,
		Headers:    h,
		Body:       string(body),
	}
}

func classify(err error) (int, ErrorDetail, map[string]string) {
	var (
		validationErr  *ValidationError
		notFoundErr    *NotFoundError
		routeErr       *RouteError
		tooLargeErr    *TooLargeError
		unavailableErr *StoreUnavailableError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, ErrorDetail{Kind: KindValidation, Message: validationErr.Message}, nil

	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, ErrorDetail{Kind: KindNotFound, Message: notFoundErr.Error()}, nil

	case errors.As(err, &routeErr):
		if routeErr.MethodNotAllowed() {
			return http.StatusMethodNotAllowed,
				ErrorDetail{Kind: KindMethodNotAllowed, Message: routeErr.Error()},
				map[string]string{HeaderAllow: strings.Join(routeErr.Allowed, ", ")}
		}
		return http.StatusNotFound, ErrorDetail{Kind: KindRouteNotFound, Message: routeErr.Error()}, nil

	case errors.As(err, &tooLargeErr):
		return http.StatusRequestEntityTooLarge, ErrorDetail{Kind: KindPayloadTooLarge, Message: tooLargeErr.Error()}, nil

	case errors.As(err, &unavailableErr):
		return http.StatusServiceUnavailable, ErrorDetail{Kind: KindStoreUnavailable, Message: "the item store is temporarily unavailable"}, nil

	default:
		return http.StatusInternalServerError, ErrorDetail{Kind: KindInternal, Message: "internal server error"}, nil
	}
}
