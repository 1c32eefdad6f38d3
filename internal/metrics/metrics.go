package metrics

import (
	"log/slog"
	"net/http"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/spikewatch/spikewatch/pkg/scan"
)

// Collector accumulates scan counters and serves them as a Prometheus text
// exposition. It is safe for concurrent use.
type Collector struct {
	mu            sync.Mutex
	scansByStatus map[string]float64
	framesScanned float64
	spikesByRef   map[string]float64
}

// New returns an empty Collector.
func New() *Collector {
	return &Collector{
		scansByStatus: make(map[string]float64),
		spikesByRef:   make(map[string]float64),
	}
}

// ScanFinished records one completed scan: its final status, the number of
// frames processed, and any spikes found.
func (c *Collector) ScanFinished(status string, frames int, res scan.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.scansByStatus[status]++
	c.framesScanned += float64(frames)
	for ref, spikes := range res {
		c.spikesByRef[ref] += float64(len(spikes))
	}
}

// ServeHTTP writes the current counters in the Prometheus text format.
func (c *Collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))

	enc := expfmt.NewEncoder(w, format)
	for _, mf := range c.gather() {
		if err := enc.Encode(mf); err != nil {
			slog.Error("metrics: encode failed", "metric", mf.GetName(), "err", err)
			return
		}
	}
}

// gather snapshots the counters into metric families with stable label order.
func (c *Collector) gather() []*dto.MetricFamily {
	c.mu.Lock()
	defer c.mu.Unlock()

	scans := &dto.MetricFamily{
		Name: strPtr("spikewatch_scans_total"),
		Help: strPtr("Completed scans by final status."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, status := range sortedKeys(c.scansByStatus) {
		scans.Metric = append(scans.Metric, &dto.Metric{
			Label:   []*dto.LabelPair{{Name: strPtr("status"), Value: strPtr(status)}},
			Counter: &dto.Counter{Value: f64Ptr(c.scansByStatus[status])},
		})
	}

	frames := &dto.MetricFamily{
		Name: strPtr("spikewatch_frames_scanned_total"),
		Help: strPtr("Frames sampled across all scans."),
		Type: dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{
			{Counter: &dto.Counter{Value: f64Ptr(c.framesScanned)}},
		},
	}

	spikes := &dto.MetricFamily{
		Name: strPtr("spikewatch_spikes_detected_total"),
		Help: strPtr("Spikes detected per attribute reference."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, ref := range sortedKeys(c.spikesByRef) {
		spikes.Metric = append(spikes.Metric, &dto.Metric{
			Label:   []*dto.LabelPair{{Name: strPtr("ref"), Value: strPtr(ref)}},
			Counter: &dto.Counter{Value: f64Ptr(c.spikesByRef[ref])},
		})
	}

	out := []*dto.MetricFamily{frames}
	if len(scans.Metric) > 0 {
		out = append([]*dto.MetricFamily{scans}, out...)
	}
	if len(spikes.Metric) > 0 {
		out = append(out, spikes)
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
