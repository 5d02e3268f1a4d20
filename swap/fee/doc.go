// Package fee computes the amount withheld from a fungible transfer.
//
// Arithmetic is integer-only with truncating division; ledgers have no
// fractional minimal units.
package fee
