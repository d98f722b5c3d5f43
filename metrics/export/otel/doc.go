// Package otel binds authform counters and histograms to OpenTelemetry observable
// instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter and one
// Int64ObservableGauge per histogram bucket. A single callback reads
// [authform.Engine.MetricsSnapshot] on each collection cycle. The caller owns the
// MeterProvider.
package otel
