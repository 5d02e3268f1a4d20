// Package lock serializes swaps that touch overlapping accounts.
//
// Local covers a single process; Redis uses the RedLock algorithm through
// redsync for deployments with several orchestrator instances.
package lock
