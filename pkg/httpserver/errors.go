package httpserver

import "errors"

var (
	// ErrStart wraps listener failures and a second call to Run.
	ErrStart = errors.New("httpserver: start")
	// ErrShutdown wraps failures of http.Server.Shutdown and of the drainers.
	ErrShutdown = errors.New("httpserver: graceful shutdown")
	// ErrAlreadyRunning is joined with ErrStart.
	ErrAlreadyRunning = errors.New("httpserver: already running")
)
