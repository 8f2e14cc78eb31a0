// Package logging provides structured, context-aware logging for sessiond.
//
// The Logger wraps zap and enriches every entry with correlation fields
// pulled from the request context: trace/span IDs when OpenTelemetry is
// active, plus sessiond's own session and request identifiers.
package logging
