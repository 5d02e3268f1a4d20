// Package account resolves the ordered account handles a swap consumes.
package account
