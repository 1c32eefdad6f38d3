package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spikewatch/spikewatch/internal/metrics"
	"github.com/spikewatch/spikewatch/internal/registry"
	"github.com/spikewatch/spikewatch/internal/store"
	"github.com/spikewatch/spikewatch/pkg/scan"
	"github.com/spikewatch/spikewatch/pkg/scene"
)

// Sentinel errors for scan admission.
var (
	// ErrScanActive is returned while another scan holds the host's cursor.
	ErrScanActive = errors.New("a scan is already running")

	// ErrNoAttributes is returned when the watch list is empty.
	ErrNoAttributes = errors.New("watch list is empty")
)

// Status is the externally visible state of the runner, broadcast by the
// WebSocket hub and served at /api/v1/status.
type Status struct {
	Scanning    bool   `json:"scanning"`
	ScanID      string `json:"scan_id,omitempty"`
	FramesDone  int    `json:"frames_done"`
	TotalFrames int    `json:"total_frames"`
	Percent     int    `json:"percent"`
}

// Runner executes scans against the host, one at a time. The host's
// current-time cursor is a single shared resource, so concurrent scans are
// rejected with ErrScanActive rather than queued.
//
// Runner is safe for concurrent use.
type Runner struct {
	host    scene.Host
	reg     *registry.Registry
	store   *store.Store
	metrics *metrics.Collector

	// baseCtx parents every scan so service shutdown cancels a running scan.
	baseCtx context.Context

	// stepPct throttles stored progress updates: an update is written when
	// progress advances by at least this many percent, and on the final frame.
	stepPct int

	// updates is pulsed whenever scan state worth broadcasting changes:
	// start, throttled progress, and completion. Buffered so a slow or
	// absent listener never stalls a scan.
	updates chan struct{}

	mu      sync.Mutex
	current *activeScan
	now     func() time.Time // injectable for deterministic tests
}

type activeScan struct {
	id     string
	cancel context.CancelFunc
	done   int
	total  int
}

// New creates a Runner. ctx parents all scans started through this Runner;
// cancelling it aborts the running scan.
func New(ctx context.Context, host scene.Host, reg *registry.Registry, st *store.Store, mc *metrics.Collector, stepPct int) *Runner {
	if stepPct < 1 || stepPct > 100 {
		stepPct = 10
	}
	return &Runner{
		host:    host,
		reg:     reg,
		store:   st,
		metrics: mc,
		baseCtx: ctx,
		stepPct: stepPct,
		updates: make(chan struct{}, 1),
		now:     time.Now,
	}
}

// Updates returns a channel pulsed on every broadcast-worthy state change.
// Consecutive changes may coalesce into one pulse; read the current state
// with Status and the store after each receive.
func (r *Runner) Updates() <-chan struct{} {
	return r.updates
}

// notify pulses the updates channel without blocking.
func (r *Runner) notify() {
	select {
	case r.updates <- struct{}{}:
	default:
	}
}

// Start begins a scan over the registry's current watch list and returns the
// scan ID. rng is optional; nil means the host's default playback range.
// The scan runs in the background — progress lands in the store and the
// final record carries the result.
func (r *Runner) Start(rng *scan.Range) (string, error) {
	attrs := r.reg.ScanAttrs()
	if len(attrs) == 0 {
		return "", ErrNoAttributes
	}
	req := scan.Request{Attrs: attrs, Range: rng}

	r.mu.Lock()
	if r.current != nil {
		r.mu.Unlock()
		return "", ErrScanActive
	}
	ctx, cancel := context.WithCancel(r.baseCtx)
	a := &activeScan{id: uuid.NewString(), cancel: cancel}
	r.current = a
	r.mu.Unlock()

	r.store.Put(&store.Record{
		ID:        a.id,
		Status:    store.StatusRunning,
		Request:   req,
		StartedAt: r.now(),
	})

	slog.Info("scan started", "scan_id", a.id, "attributes", len(attrs))
	r.notify()
	go r.run(ctx, a, req)
	return a.id, nil
}

// Cancel aborts the scan with the given ID. Returns false when that scan is
// not currently running.
func (r *Runner) Cancel(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil || r.current.id != id {
		return false
	}
	r.current.cancel()
	return true
}

// Status returns the runner's current state.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return Status{}
	}
	s := Status{
		Scanning:    true,
		ScanID:      r.current.id,
		FramesDone:  r.current.done,
		TotalFrames: r.current.total,
	}
	if s.TotalFrames > 0 {
		s.Percent = s.FramesDone * 100 / s.TotalFrames
	}
	return s
}

// run executes the scan and records the outcome. It is the only goroutine
// that touches the host while r.current is set.
func (r *Runner) run(ctx context.Context, a *activeScan, req scan.Request) {
	started := r.now()
	lastPushedPct := -1

	progress := func(done, total int) bool {
		r.mu.Lock()
		a.done, a.total = done, total
		r.mu.Unlock()

		pct := done * 100 / total
		if pct-lastPushedPct >= r.stepPct || done == total || lastPushedPct < 0 {
			lastPushedPct = pct
			r.store.Put(&store.Record{
				ID:          a.id,
				Status:      store.StatusRunning,
				Request:     req,
				FramesDone:  done,
				TotalFrames: total,
				StartedAt:   started,
			})
			r.notify()
		}
		return true
	}

	res, err := scan.Run(ctx, r.host, req, progress)
	finished := r.now()

	r.mu.Lock()
	done, total := a.done, a.total
	r.current = nil
	r.mu.Unlock()

	rec := &store.Record{
		ID:          a.id,
		Request:     req,
		FramesDone:  done,
		TotalFrames: total,
		StartedAt:   started,
		FinishedAt:  &finished,
	}

	switch {
	case err == nil:
		rec.Status = store.StatusSucceeded
		rec.Result = res
		slog.Info("scan finished",
			"scan_id", a.id,
			"frames", done,
			"spiking_attributes", len(res),
			"spikes", res.Spikes(),
		)
	case errors.Is(err, scan.ErrCanceled):
		rec.Status = store.StatusCanceled
		slog.Warn("scan canceled", "scan_id", a.id, "frames_done", done)
	default:
		rec.Status = store.StatusFailed
		rec.Error = err.Error()
		slog.Error("scan failed", "scan_id", a.id, "err", err)
	}

	r.store.Put(rec)
	r.metrics.ScanFinished(rec.Status, done, res)
	r.notify()
}
