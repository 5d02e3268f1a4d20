// Package transfer orchestrates an atomic swap of a fungible balance and one
// non-fungible unit between two parties, withholding a percentage of the
// fungible amount for a fee sink.
//
// An invocation reads the source's whole balance, splits it into fee and net
// with integer arithmetic, then issues up to three legs in order: the net
// transfer, the unit transfer, and the fee transfer when the fee is non-zero.
// It fails fast on the first ledger error. A ledger client that panics is
// treated as having failed the leg.
//
// All-or-nothing semantics come from one of two modes:
//
//   - atomic: an Environment discards every mutation when a leg fails;
//   - saga: completed legs are reversed by compensating transfers, retried
//     with exponential backoff, and tracked in an optional journal so that
//     Recover can finish the job after a crash.
package transfer
