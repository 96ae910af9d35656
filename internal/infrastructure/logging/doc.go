// Package logging provides structured logging for Wihajster Core.
//
// It wraps log/slog with configuration-driven level and format selection
// and stamps every record with the service name and build version. Handlers
// obtain component-scoped loggers via With("component", ...).
package logging
