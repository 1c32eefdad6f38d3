// Package api implements the HTTP REST API for spikewatchd.
//
// New(registry, runner, store, host, settings, defaultThreshold) returns an
// http.Handler that serves:
//
//	GET    /api/v1/health               — service status, host reachability, counters
//	GET    /api/v1/watchlist            — watched attributes with thresholds
//	POST   /api/v1/watchlist            — add one attribute {ref, threshold?}
//	DELETE /api/v1/watchlist            — clear the watch list
//	POST   /api/v1/watchlist/selection  — add the host's currently selected channels
//	POST   /api/v1/watchlist/pattern    — add {pattern, attr, threshold?} across matching nodes
//	PUT    /api/v1/watchlist/{index}    — update an entry's threshold
//	DELETE /api/v1/watchlist/{index}    — remove one entry
//	GET    /api/v1/scans                — recent scans, newest first
//	POST   /api/v1/scans                — start a scan {start?, end?}; 409 if one is running
//	GET    /api/v1/scans/{id}           — full scan record including spikes
//	GET    /api/v1/scans/{id}/report    — plain-text spike report
//	DELETE /api/v1/scans/{id}           — cancel a running scan
//	GET    /api/v1/status               — same payload the WebSocket hub broadcasts
//	GET    /api/v1/settings             — stored UI settings blob (raw JSON)
//	PUT    /api/v1/settings             — replace the stored UI settings blob
//
// All endpoints respond with Content-Type: application/json except the report,
// which is text/plain. Unsupported methods return 405. JSON types are defined
// in types.go. No external HTTP framework is used.
package api
