// Package journal records swap orchestration progress ahead of ledger
// effects, so that an invocation interrupted mid-saga can be found and
// compensated later.
//
// The journal holds orchestration state only. Balances stay on the ledgers.
package journal
