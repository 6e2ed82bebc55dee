// Package upstream is the SoundCloud API client used by the rotator.
//
// Every attempt asks the identity pool for a client ID, sends the request
// with that ID and reports the outcome back to the pool exactly once:
//
//	client, _ := upstream.New(pool, upstream.WithRateLimit(60))
//	track, err := client.Resolve(ctx, "https://soundcloud.com/artist/track")
//	if errors.Is(err, identity.ErrAllIdentitiesExhausted) {
//		// every client ID is cooling down
//	}
//
// Responses are classified as follows:
//   - 2xx: success
//   - 401 and 403: the client ID is quarantined and the next one is tried
//   - 429, 5xx and transport errors: counted against the client ID, retried after a backoff
//   - any other status: returned as *APIError
//
// Raw client IDs appear only in the outgoing query string. Logs, metric
// events and errors carry the redacted form.
package upstream
