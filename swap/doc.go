// Package swap is the root of the atomic token-and-unit swap library.
//
// The orchestrator lives in swap/transfer; this package only carries small
// helpers shared by the CLI and configuration loaders.
package swap
