// Package commands defines the swapctl CLI.
//
// Commands
//
//   - run           Seed an in-memory ledger from a YAML fixture and execute one swap
//   - journal list  List journal entries, optionally filtered by status
//   - journal get   Print one journal entry
//
// The root command builds the zap logger from --env and --log-level before
// any subcommand runs. Subcommands own the resources they open, such as the
// badger journal and the Redis client.
package commands
