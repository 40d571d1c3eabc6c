package vtn

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/vtn/handler"
	"github.com/dmitrymomot/vtn/pkg/jwt"
	"github.com/dmitrymomot/vtn/pkg/logger"
	"github.com/dmitrymomot/vtn/pkg/notifier"
)

// AccessTokenParam is the query parameter accepted in place of a Bearer
// header on the notifier channel.
const AccessTokenParam = "access_token"

// ClientIdentifier maps the verified token subject to the notifier client.
func ClientIdentifier(r *http.Request) (notifier.ClientID, error) {
	claims, ok := jwt.GetClaims(r.Context())
	if !ok {
		return "", notifier.ErrUnauthenticated
	}
	if claims.Subject == "" {
		return "", notifier.ErrNoClientID
	}
	return notifier.ClientID(claims.Subject), nil
}

// authMiddleware verifies access tokens and answers failures with a 401
// problem document.
func authMiddleware(tokens *jwt.Service, log *slog.Logger) func(http.Handler) http.Handler {
	return jwt.MiddlewareWithConfig(jwt.MiddlewareConfig{
		Service:   tokens,
		Extractor: jwt.ChainExtractors(jwt.BearerTokenExtractor, jwt.QueryTokenExtractor(AccessTokenParam)),
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.DebugContext(r.Context(), "access token rejected", logger.Error(err))
			_ = handler.Problem(handler.ErrUnauthorized, "a valid access token is required").Render(w, r)
		},
	})
}
