// Package zap bridges the swap log.Logger interface to go.uber.org/zap.
package zap
