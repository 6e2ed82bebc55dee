// Package logger builds the application's slog logger: text output in dev and
// staging, JSON in prod, with the environment attached to every record.
// Attributes named client_id or ending in _client_id are redacted before they
// reach the handler.
package logger
