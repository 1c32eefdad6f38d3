package api

import (
	"time"

	"github.com/spikewatch/spikewatch/internal/runner"
	"github.com/spikewatch/spikewatch/internal/store"
	"github.com/spikewatch/spikewatch/pkg/scan"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status        string `json:"status"` // "ok" | "host_unreachable"
	HostReachable bool   `json:"host_reachable"`
	WatchedAttrs  int    `json:"watched_attrs"`
	Scanning      bool   `json:"scanning"`
	RecentScans   int    `json:"recent_scans"`
}

// WatchlistResponse is the payload for GET /api/v1/watchlist.
type WatchlistResponse struct {
	Entries []WatchEntryResponse `json:"entries"`
}

// WatchEntryResponse is one watch list row.
type WatchEntryResponse struct {
	Index     int     `json:"index"`
	Ref       string  `json:"ref"`
	Threshold float64 `json:"threshold"`
}

// addWatchRequest is the body of POST /api/v1/watchlist.
// A nil threshold takes the configured default.
type addWatchRequest struct {
	Ref       string   `json:"ref"`
	Threshold *float64 `json:"threshold"`
}

// updateWatchRequest is the body of PUT /api/v1/watchlist/{index}.
type updateWatchRequest struct {
	Threshold float64 `json:"threshold"`
}

// patternWatchRequest is the body of POST /api/v1/watchlist/pattern: one
// attribute across every node matching a wildcard pattern.
type patternWatchRequest struct {
	Pattern   string   `json:"pattern"`
	Attr      string   `json:"attr"`
	Threshold *float64 `json:"threshold"`
}

// AddedResponse reports what a bulk add matched and actually inserted.
type AddedResponse struct {
	Matched int `json:"matched"`
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// startScanRequest is the body of POST /api/v1/scans. Both frames must be
// given together; omitting both scans the host's default playback range.
type startScanRequest struct {
	Start *int `json:"start"`
	End   *int `json:"end"`
}

// StartScanResponse is returned by POST /api/v1/scans.
type StartScanResponse struct {
	ScanID string `json:"scan_id"`
}

// ScanSummary is one scan record without its spikes.
type ScanSummary struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	FramesDone  int        `json:"frames_done"`
	TotalFrames int        `json:"total_frames"`
	Spikes      int        `json:"spikes"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// ScanResponse is one scan record including its spikes per attribute.
type ScanResponse struct {
	ScanSummary
	Request scan.Request `json:"request"`
	Result  scan.Result  `json:"result,omitempty"`
}

// StatusMessage is the payload of GET /api/v1/status and of every WebSocket
// broadcast tick.
type StatusMessage struct {
	Status runner.Status `json:"status"`
	Latest *ScanSummary  `json:"latest,omitempty"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

// toSummary maps a store record to its summary representation.
func toSummary(rec *store.Record) ScanSummary {
	return ScanSummary{
		ID:          rec.ID,
		Status:      rec.Status,
		FramesDone:  rec.FramesDone,
		TotalFrames: rec.TotalFrames,
		Spikes:      rec.Result.Spikes(),
		Error:       rec.Error,
		StartedAt:   rec.StartedAt,
		FinishedAt:  rec.FinishedAt,
	}
}

// BuildStatus assembles the status payload broadcast by the WebSocket hub.
func BuildStatus(run *runner.Runner, st *store.Store) StatusMessage {
	msg := StatusMessage{Status: run.Status()}
	if rec, ok := st.Latest(); ok {
		s := toSummary(rec)
		msg.Latest = &s
	}
	return msg
}
