// Package logger builds configured log/slog loggers for Herald services.
//
// The factory produces JSON output for production and text output for
// development, supports static attributes, and can inject request-scoped
// values from context on every record:
//
//	log := logger.New(
//	    logger.WithProduction("herald-worker"),
//	    logger.WithContextValue("request_id", ctxkey.RequestID),
//	)
//	logger.SetAsDefault(log)
//
// The attr helpers (logger.SignalID, logger.DeliveryID, ...) keep domain
// field names consistent across the ingest path, the delivery workers and
// the tunnel so log aggregation queries work everywhere.
package logger
