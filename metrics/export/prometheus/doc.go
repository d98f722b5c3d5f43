// Package prometheus renders authform metrics in Prometheus text exposition format.
//
// [NewPrometheusExporter] reads [authform.Engine.MetricsSnapshot] on every scrape.
// Counter names are prefixed authform_*_total; the single histogram is
// authform_submit_latency_seconds. Nothing is registered globally; callers mount
// [PrometheusExporter.Handler] themselves.
package prometheus
