// Package memledger is an in-process reference implementation of the
// fungible and non-fungible ledger contracts.
//
// It exists for tests and local runs of swapctl. It enforces the same
// self-authorization rules the orchestrator relies on and offers
// whole-invocation atomicity through Store.Atomically, which holds the store
// exclusively for the duration of its scope.
package memledger
