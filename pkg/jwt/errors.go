package jwt

import "errors"

// Parse errors. Middleware answers every one of them with 401.
var (
	ErrInvalidToken            = errors.New("jwt: malformed or not yet valid token")
	ErrMissingToken            = errors.New("jwt: no token in request")
	ErrExpiredToken            = errors.New("jwt: token expired")
	ErrInvalidSignature        = errors.New("jwt: signature mismatch")
	ErrUnexpectedSigningMethod = errors.New("jwt: signing method is not HS256")
	ErrInvalidClaims           = errors.New("jwt: claims do not decode")
	ErrInvalidIssuer           = errors.New("jwt: unexpected issuer")
)

// Issuing errors.
var (
	ErrMissingSigningKey = errors.New("jwt: signing key is empty")
	ErrMissingClaims     = errors.New("jwt: claims or subject missing")
)
