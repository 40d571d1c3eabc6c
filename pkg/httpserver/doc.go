// Package httpserver runs the VTN HTTP surface with signal handling and
// graceful shutdown.
//
// Run binds the listener, serves until the context is cancelled or SIGINT or
// SIGTERM arrives, then calls Shutdown. Shutdown stops http.Server and runs
// the drainers registered with WithDrainer. Upgraded WebSocket connections
// are hijacked and invisible to http.Server, so the notifier registers its
// Close method as a drainer:
//
//	srv := httpserver.NewFromConfig(cfg.HTTP,
//		httpserver.WithLogger(log),
//		httpserver.WithDrainer(n.Close),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		return err
//	}
//
// HealthCheckHandler serves liveness (no checks) and readiness probes.
// Errors are wrapped with ErrStart and ErrShutdown for errors.Is.
package httpserver
