// Package guard wraps remote ledger clients with a circuit breaker and a
// client-side rate limiter.
//
// A tripped breaker fails calls fast with ErrUnavailable, which the
// orchestrator surfaces as a leg-tagged ledger error like any other.
package guard
