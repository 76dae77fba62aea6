// Package logger builds configured log/slog loggers with environment-aware
// defaults (JSON for production, text for development) and provides typed
// attribute helpers so log keys stay consistent across the service.
package logger
