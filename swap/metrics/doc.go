// Package metrics defines the OpenTelemetry instruments emitted by the swap
// orchestrator.
package metrics
