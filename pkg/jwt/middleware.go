package jwt

import (
	"errors"
	"net/http"
	"strings"
)

// TokenExtractorFunc extracts a raw token from a request.
type TokenExtractorFunc func(r *http.Request) (string, error)

// SkipFunc reports whether a request bypasses verification.
type SkipFunc func(r *http.Request) bool

// ErrorHandlerFunc answers a request whose token could not be verified.
type ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)

// MiddlewareConfig configures MiddlewareWithConfig.
type MiddlewareConfig struct {
	Service      *Service
	Extractor    TokenExtractorFunc // defaults to BearerTokenExtractor
	Skip         SkipFunc
	ErrorHandler ErrorHandlerFunc // defaults to a plain 401
}

// Middleware verifies Bearer tokens and stores Claims in the request context.
func Middleware(service *Service) func(next http.Handler) http.Handler {
	return MiddlewareWithConfig(MiddlewareConfig{Service: service})
}

// MiddlewareWithConfig creates the verification middleware from config.
func MiddlewareWithConfig(config MiddlewareConfig) func(next http.Handler) http.Handler {
	if config.Extractor == nil {
		config.Extractor = BearerTokenExtractor
	}
	if config.ErrorHandler == nil {
		config.ErrorHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Skip != nil && config.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			token, err := config.Extractor(r)
			if err != nil {
				config.ErrorHandler(w, r, err)
				return
			}

			var claims Claims
			if err := config.Service.Parse(token, &claims); err != nil {
				config.ErrorHandler(w, r, err)
				return
			}

			ctx := SetToken(r.Context(), token)
			ctx = SetClaims(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerTokenExtractor reads "Authorization: Bearer <token>" (RFC 6750).
func BearerTokenExtractor(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}

// QueryTokenExtractor reads the token from a query parameter. Browsers cannot
// set headers on WebSocket handshakes, so the notifier channel accepts
// ?access_token= as well.
func QueryTokenExtractor(param string) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		token := r.URL.Query().Get(param)
		if token == "" {
			return "", ErrMissingToken
		}
		return token, nil
	}
}

// CookieTokenExtractor reads the token from a cookie.
func CookieTokenExtractor(name string) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		cookie, err := r.Cookie(name)
		if err != nil || cookie.Value == "" {
			return "", ErrMissingToken
		}
		return cookie.Value, nil
	}
}

// ChainExtractors tries each extractor in order. A missing token moves on to
// the next one; a malformed token stops the chain.
func ChainExtractors(extractors ...TokenExtractorFunc) TokenExtractorFunc {
	return func(r *http.Request) (string, error) {
		for _, ex := range extractors {
			token, err := ex(r)
			if err == nil {
				return token, nil
			}
			if !errors.Is(err, ErrMissingToken) {
				return "", err
			}
		}
		return "", ErrMissingToken
	}
}
