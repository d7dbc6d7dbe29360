// Package logging provides structured logging configuration for mockhost.
//
// This package wraps log/slog so every component logs the same way. Level
// and format come from the server configuration or the --log-level and
// --log-format flags.
//
//	logger := logging.New(logging.Config{
//	    Level:  logging.LevelInfo,
//	    Format: logging.FormatJSON,
//	})
//
//	logger.Info("server started", "port", 8080)
//
// Components accept a *slog.Logger in their constructor or through an
// option. If none is provided they use logging.Nop(). The request handler
// stores a per-request logger, tagged with the request ID, in the request
// context; retrieve it with FromContext.
package logging
