// Package identity manages the pool of upstream API client IDs.
//
// A Pool holds an ordered set of identities and decides which one an outbound
// request should use. Two strategies are supported:
//
//   - failover: keep using the current identity until it is rejected, then move
//     to the next eligible one in configuration order
//   - round-robin: advance to the next eligible identity on every selection
//
// An identity rejected by the upstream API (an authentication failure) is put in
// cooldown for a fixed duration. Expired cooldowns are noticed lazily on the next
// Select call; there is no background timer.
//
// Usage:
//
//	pool, err := identity.New(ids, identity.StrategyFailover, 5*time.Minute)
//	id, err := pool.Select()
//	// perform the request with id.Value() ...
//	if authRejected {
//	    pool.ReportFailure(id, true)
//	} else {
//	    pool.ReportSuccess(id)
//	}
//
// Identity values never leave the package unredacted through String or LogValue.
package identity
