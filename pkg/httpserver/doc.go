// Package httpserver is a lightweight wrapper around net/http adding graceful
// shutdown, configurable timeouts, a health-check handler, and structured
// logging via slog.
//
// Run blocks until the context is cancelled or an interrupt/TERM signal is
// received, then shuts the server down with a configurable deadline. All
// public errors wrap the ErrStart and ErrShutdown sentinels and can be
// inspected with errors.Is.
package httpserver
