// Package handler implements the HTTP endpoints of the rotator: /status
// returns the identity pool snapshot, /healthz reports whether any client ID
// is currently usable and /resolve looks up a track through the pool.
package handler
