package notifier

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/vtn/handler"
	"github.com/dmitrymomot/vtn/pkg/logger"
)

// ErrHTTPChannelConflict is the problem answered when a client opens a second channel.
var ErrHTTPChannelConflict = handler.NewHTTPError(http.StatusConflict, "notifier_channel_conflict")

// Capabilities lists the notifier transports the VTN supports.
type Capabilities struct {
	WebSocket bool `json:"websocket"`
}

// CapabilitiesHandler serves GET /notifiers.
func (n *Notifier) CapabilitiesHandler() http.HandlerFunc {
	return handler.Wrap[handler.Context, struct{}](func(_ handler.Context, _ struct{}) handler.Response {
		return handler.Raw(Capabilities{WebSocket: true})
	})
}

// UpgradeHandler serves GET /notifiers/websocket. The client's registry slot
// is reserved before the protocol switch, so a conflicting request is
// answered with 409 and never upgraded.
func (n *Notifier) UpgradeHandler() http.HandlerFunc {
	return handler.Wrap[handler.Context, struct{}](n.upgrade,
		handler.WithErrorHandler[handler.Context, struct{}](handler.NewErrorHandler[handler.Context](n.log)),
	)
}

func (n *Notifier) upgrade(ctx handler.Context, _ struct{}) handler.Response {
	r := ctx.Request()

	id, err := n.identify(r)
	if err == nil && id == "" {
		err = ErrNoClientID
	}
	switch {
	case errors.Is(err, ErrNoClientID):
		return handler.Problem(handler.ErrForbidden, "session has no client identity")
	case err != nil:
		return handler.Problem(handler.ErrUnauthorized, "a valid access token is required")
	}

	h, err := n.reserve(id)
	switch {
	case errors.Is(err, ErrChannelConflict):
		n.log.InfoContext(r.Context(), "notifier channel rejected", logger.ClientID(id), logger.Error(err))
		return handler.Problem(ErrHTTPChannelConflict, ErrChannelConflict.Error())
	case err != nil:
		return handler.Problem(handler.ErrServiceUnavailable, "notifier is shutting down")
	}
	return upgradeResponse{n: n, handle: h}
}

// upgradeResponse switches protocols and hands the socket to a forwarding loop.
type upgradeResponse struct {
	n      *Notifier
	handle *Handle
}

// Render never reports an error: on failure the upgrader has already
// answered the client, and the reserved slot is released here.
func (u upgradeResponse) Render(w http.ResponseWriter, r *http.Request) error {
	conn, err := u.n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		u.n.release(u.handle)
		u.n.log.WarnContext(r.Context(), "websocket upgrade failed",
			logger.ClientID(u.handle.client),
			logger.Error(err),
		)
		return nil
	}
	u.n.serve(u.handle, conn)
	return nil
}
