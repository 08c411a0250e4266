// Package log provides slog helpers that keep analysis credentials and
// other secrets out of log output.
//
// The SecureHandler masks:
//   - attributes whose key names a secret (api_key, authorization, token, ...)
//   - values shaped like provider keys, JWTs or bearer tokens
//   - credential query parameters inside logged URLs
//
// Usage:
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Info("analysis request", "provider", "anthropic", "api_key", key) // api_key=***REDACTED***
package log
