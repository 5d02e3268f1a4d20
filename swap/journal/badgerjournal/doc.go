// Package badgerjournal is a journal.Journal backed by BadgerDB, for swaps
// whose progress must survive a process restart.
package badgerjournal
