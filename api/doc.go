// Package api routes normalized requests to the item operations and formats
// their outcomes.
//
// The core is transport-agnostic: adapters turn an edge request into a
// [Request], call [Service.Handle], and write the returned [Response] back.
// Two adapters ship with the package:
//
//   - [LambdaHandler] - API Gateway HTTP API (payload v2) events
//   - [NewHTTPHandler] - net/http, for local serving
//
// # Routes
//
//	GET    /items       list
//	GET    /items/{id}  get
//	POST   /items       create
//	PUT    /items/{id}  update
//	DELETE /items/{id}  delete
//
// # Outcomes
//
// Handlers return either a result or one of the error types in errors.go.
// [FormatError] is the only place errors become status codes; 5xx bodies
// never carry internal detail.
package api
