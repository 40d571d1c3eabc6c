// Package logger builds the VTN's *slog.Logger instances and keeps attribute
// names consistent across packages.
//
// New creates a logger configured by Option values: output format (text or
// JSON), level, static attributes and ContextExtractor callbacks that inject
// request-scoped values such as the request ID on every record.
//
//	log := logger.New(
//		logger.WithEnvironment(cfg.Env, "vtn-notifier"),
//		logger.WithConfig(cfg.Log),
//		logger.WithContextExtractors(requestIDExtractor),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "notifier channel opened",
//		logger.ClientID(clientID),
//		logger.SessionID(sessionID),
//	)
//
// Attribute helpers such as Error, ClientID and RequestID return an empty
// slog.Attr for nil or empty values, so call sites need no nil checks;
// slog skips empty attributes.
package logger
