// Package httpserver wraps net/http.Server with address validation, fixed
// timeouts and a bounded graceful shutdown.
package httpserver
