// Package ledger declares the narrow contracts the swap orchestrator consumes
// from the external fungible and non-fungible ledgers.
//
// Subpackages provide an in-process reference ledger (memledger) and
// resilience decorators for remote clients (guard).
package ledger
