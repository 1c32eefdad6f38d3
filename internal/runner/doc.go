// Package runner executes scans against the animation host, strictly one at
// a time — the host's current-time cursor is a single process-wide resource,
// so a second start request is rejected with ErrScanActive rather than
// queued. Each scan gets a UUID, a running record in the store with throttled
// progress updates, and a final record carrying the result or the failure.
// Cancellation flows through the scan's context. Updates exposes a coalescing
// pulse channel so the WebSocket hub can push status the moment a scan
// starts, progresses, or finishes.
package runner
