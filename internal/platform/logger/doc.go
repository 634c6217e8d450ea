// Package logger provides structured logging for the application.
//
// It configures a log/slog JSON handler from the server config and carries
// request-scoped loggers and request ids through context.Context.
package logger
