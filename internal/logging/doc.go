// Package logging provides structured, context-aware logging for trimd.
//
// It wraps Zap with request correlation fields pulled from context (tenant,
// subject, request ID, OTEL trace IDs) and a redacting encoder so bearer
// tokens and Astra credentials can never reach log output. An optional OTEL
// log bridge mirrors entries to an OpenTelemetry LoggerProvider.
package logging
