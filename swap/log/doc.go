// Package log defines the logging interface and typed fields used across the
// swap packages.
//
// Components accept a Logger and never a concrete backend; the zap package
// provides the production adapter and NewNop the silent default.
package log
