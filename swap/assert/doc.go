// Package assert provides runtime invariant checks that return errors
// instead of panicking.
//
// Failures are logged at error level, recorded as a span event on the active
// span, and optionally counted. The returned *AssertionError unwraps to
// ErrAssertionFailed.
package assert
