// Package server implements the HTTP API for monitoring and management.
// It exposes health, session state, configuration, statistics, Prometheus
// metrics, and the WebSocket event stream.
package server
