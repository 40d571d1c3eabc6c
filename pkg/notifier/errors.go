package notifier

import "errors"

var (
	// ErrClosed is returned when the notifier no longer admits channels.
	ErrClosed = errors.New("notifier: closed")

	// ErrChannelConflict is returned when a channel is already bound to the client.
	ErrChannelConflict = errors.New("notifier channel already open for this client")

	// ErrUnauthenticated is returned by an Identifier when the request carries no valid session.
	ErrUnauthenticated = errors.New("notifier: unauthenticated")

	// ErrNoClientID is returned by an Identifier when the session has no client identity.
	ErrNoClientID = errors.New("notifier: session has no client identity")

	ErrMissingIdentifier = errors.New("notifier: missing client identifier")
	ErrInvalidPolicy     = errors.New("notifier: invalid backpressure policy")
	ErrInvalidCapacity   = errors.New("notifier: buffer capacity must be positive")
	ErrInvalidTimeout    = errors.New("notifier: timeouts must not be negative")
	ErrSerialize         = errors.New("notifier: failed to serialize notification")
)
