// Package otel registers engine metrics as OpenTelemetry observable
// instruments. Values are read from the engine snapshot inside the meter
// callback.
package otel
