package handler

import (
	"net/http"
)

// HandlerFunc handles a request of type R with a context of type C.
//
//	h := handler.HandlerFunc[handler.Context, struct{}](
//		func(ctx handler.Context, _ struct{}) handler.Response {
//			return handler.Raw(map[string]bool{"websocket": true})
//		},
//	)
type HandlerFunc[C Context, R any] func(ctx C, req R) Response

// Response renders itself to an http.ResponseWriter.
// Implementations set headers, status code and body. A response that takes
// over the connection (a protocol upgrade) writes nothing after hijacking.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// ErrorHandler handles errors from rendering.
type ErrorHandler[C Context] func(ctx C, err error)

// WrapOption configures Wrap.
type WrapOption[C Context, R any] func(*wrapConfig[C, R])

type wrapConfig[C Context, R any] struct {
	errorHandler ErrorHandler[C]
}

// WithErrorHandler sets a custom error handler.
func WithErrorHandler[C Context, R any](h ErrorHandler[C]) WrapOption[C, R] {
	return func(c *wrapConfig[C, R]) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// defaultErrorHandler answers with a problem document.
func defaultErrorHandler[C Context](ctx C, err error) {
	_ = ProblemFrom(err).Render(ctx.ResponseWriter(), ctx.Request())
}

// Wrap converts a typed HandlerFunc to an http.HandlerFunc. The request
// value is always the zero R: the VTN endpoints served here take no body.
//
//	r.Get("/notifiers", handler.Wrap(capabilities))
func Wrap[C Context, R any](h HandlerFunc[C, R], opts ...WrapOption[C, R]) http.HandlerFunc {
	cfg := &wrapConfig[C, R]{errorHandler: defaultErrorHandler[C]}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, ok := any(NewContext(w, r)).(C)
		if !ok {
			panic("handler: context type must be satisfied by handler.Context")
		}

		var req R
		resp := h(ctx, req)
		if resp == nil {
			cfg.errorHandler(ctx, ErrNilResponse)
			return
		}
		if err := resp.Render(w, r); err != nil {
			cfg.errorHandler(ctx, err)
		}
	}
}
