// Package observability provides structured logging and Prometheus metrics
// for the subway server.
//
// This package implements:
//   - zap logger construction from configuration
//   - counters for login outcomes and session validations
//   - a latency histogram for provider key set fetches
package observability
