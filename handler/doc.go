// Package handler provides type-safe HTTP handlers and the response types
// used by the VTN HTTP surface.
//
// Handlers are generic functions that receive a Context and a request value
// and return a Response:
//
//	func capabilities(ctx handler.Context, _ struct{}) handler.Response {
//		return handler.Raw(map[string]bool{"websocket": true})
//	}
//
//	r.Get("/notifiers", handler.Wrap(capabilities))
//
// # Responses
//
//   - Raw renders a value as the whole JSON body, for protocol-defined shapes.
//   - Problem renders an RFC 7807 problem document from an HTTPError.
//
// A Response may also take over the connection: the notifier's upgrade
// response hijacks the socket in Render and returns nil.
//
// # Errors
//
// HTTPError pairs a status code with a machine-readable key. Errors returned
// from rendering are passed to the ErrorHandler; the default one
// answers with ProblemFrom(err), and NewErrorHandler additionally logs the
// failure at warn level for 4xx and error level for 5xx.
package handler
