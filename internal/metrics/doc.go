// Package metrics exposes scan counters in the Prometheus text exposition
// format. Families are built as client_model MetricFamily values and encoded
// with expfmt; the collector carries no dependency on a metrics registry.
//
// Exposed families:
//
//	spikewatch_scans_total{status}        — completed scans by final status
//	spikewatch_frames_scanned_total       — frames sampled across all scans
//	spikewatch_spikes_detected_total{ref} — spikes detected per attribute
package metrics
