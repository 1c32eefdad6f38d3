package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/spikewatch/spikewatch/internal/registry"
	"github.com/spikewatch/spikewatch/internal/runner"
	"github.com/spikewatch/spikewatch/internal/settings"
	"github.com/spikewatch/spikewatch/internal/store"
	"github.com/spikewatch/spikewatch/pkg/scan"
	"github.com/spikewatch/spikewatch/pkg/scene"
)

// maxBodySize bounds request bodies — every payload here is tiny.
const maxBodySize = 1 << 20

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	reg       *registry.Registry
	runner    *runner.Runner
	store     *store.Store
	host      scene.Host
	settings  *settings.Service
	threshold float64 // default for entries added without one
	mux       *http.ServeMux
}

// New creates a Handler wired to its collaborators and registers all routes.
// defaultThreshold applies to watch entries added without an explicit one.
func New(reg *registry.Registry, run *runner.Runner, st *store.Store, host scene.Host, set *settings.Service, defaultThreshold float64) http.Handler {
	h := &Handler{
		reg:       reg,
		runner:    run,
		store:     st,
		host:      host,
		settings:  set,
		threshold: defaultThreshold,
		mux:       http.NewServeMux(),
	}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/watchlist", h.watchlist)
	h.mux.HandleFunc("/api/v1/watchlist/selection", h.addSelection)
	h.mux.HandleFunc("/api/v1/watchlist/pattern", h.addPattern)
	h.mux.HandleFunc("/api/v1/watchlist/", h.watchEntry) // subtree — extracts {index}
	h.mux.HandleFunc("/api/v1/scans", h.scans)
	h.mux.HandleFunc("/api/v1/scans/", h.scanByID) // subtree — extracts {id}
	h.mux.HandleFunc("/api/v1/status", h.status)
	h.mux.HandleFunc("/api/v1/settings", h.uiSettings)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health — service and host status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := HealthResponse{
		Status:       "ok",
		WatchedAttrs: h.reg.Count(),
		Scanning:     h.runner.Status().Scanning,
		RecentScans:  h.store.Count(),
	}
	if _, _, err := h.host.PlaybackRange(); err == nil {
		resp.HostReachable = true
	} else {
		resp.Status = "host_unreachable"
	}
	jsonResp(w, http.StatusOK, resp)
}

// watchlist handles GET (list), POST (add), DELETE (clear) on /api/v1/watchlist.
func (h *Handler) watchlist(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries := h.reg.Entries()
		out := WatchlistResponse{Entries: make([]WatchEntryResponse, 0, len(entries))}
		for i, e := range entries {
			out.Entries = append(out.Entries, WatchEntryResponse{
				Index:     i,
				Ref:       e.Ref,
				Threshold: e.Threshold,
			})
		}
		jsonResp(w, http.StatusOK, out)

	case http.MethodPost:
		var req addWatchRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if !scene.ValidRef(req.Ref) {
			jsonErr(w, http.StatusBadRequest, "ref is not a node.attribute reference")
			return
		}
		if req.Threshold != nil && *req.Threshold < 0 {
			jsonErr(w, http.StatusBadRequest, "threshold must not be negative")
			return
		}
		threshold := h.threshold
		if req.Threshold != nil {
			threshold = *req.Threshold
		}
		index, added := h.reg.Add(req.Ref, threshold)
		code := http.StatusCreated
		if !added {
			code = http.StatusOK // already present, index returned unchanged
		}
		jsonResp(w, code, WatchEntryResponse{Index: index, Ref: req.Ref, Threshold: threshold})

	case http.MethodDelete:
		h.reg.Clear()
		w.WriteHeader(http.StatusNoContent)

	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// addSelection handles POST /api/v1/watchlist/selection — adds the channels
// currently selected in the host UI, with the default threshold.
func (h *Handler) addSelection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sel, ok := h.host.(scene.Selector)
	if !ok {
		jsonErr(w, http.StatusNotImplemented, "host does not expose its selection")
		return
	}
	refs, err := sel.SelectedChannels()
	if err != nil {
		jsonErr(w, http.StatusBadGateway, "host selection query failed: "+err.Error())
		return
	}

	resp := AddedResponse{Matched: len(refs)}
	for _, ref := range refs {
		if _, added := h.reg.Add(ref, h.threshold); added {
			resp.Added++
		} else {
			resp.Skipped++
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

// addPattern handles POST /api/v1/watchlist/pattern — registers one attribute
// across every scene node matching a wildcard pattern.
func (h *Handler) addPattern(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	lister, ok := h.host.(scene.NodeLister)
	if !ok {
		jsonErr(w, http.StatusNotImplemented, "host does not list nodes")
		return
	}

	var req patternWatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !scene.ValidNodePattern(req.Pattern) {
		jsonErr(w, http.StatusBadRequest, "pattern is not a node-name pattern")
		return
	}
	if !scene.ValidAttrName(req.Attr) {
		jsonErr(w, http.StatusBadRequest, "attr is not an attribute name")
		return
	}
	if req.Threshold != nil && *req.Threshold < 0 {
		jsonErr(w, http.StatusBadRequest, "threshold must not be negative")
		return
	}
	threshold := h.threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	nodes, err := lister.ListNodes(req.Pattern)
	if err != nil {
		jsonErr(w, http.StatusBadGateway, "host node query failed: "+err.Error())
		return
	}

	resp := AddedResponse{Matched: len(nodes)}
	for _, node := range nodes {
		if _, added := h.reg.Add(node+"."+req.Attr, threshold); added {
			resp.Added++
		} else {
			resp.Skipped++
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

// watchEntry handles PUT (threshold update) and DELETE on
// /api/v1/watchlist/{index}.
func (h *Handler) watchEntry(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/api/v1/watchlist/")
	index, err := strconv.Atoi(raw)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, "watch list index must be an integer")
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req updateWatchRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Threshold < 0 {
			jsonErr(w, http.StatusBadRequest, "threshold must not be negative")
			return
		}
		if !h.reg.SetThreshold(index, req.Threshold) {
			jsonErr(w, http.StatusNotFound, "no watch entry at that index")
			return
		}
		entry, _ := h.reg.Get(index)
		jsonResp(w, http.StatusOK, WatchEntryResponse{Index: index, Ref: entry.Ref, Threshold: entry.Threshold})

	case http.MethodDelete:
		if !h.reg.Remove(index) {
			jsonErr(w, http.StatusNotFound, "no watch entry at that index")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// scans handles GET (list) and POST (start) on /api/v1/scans.
func (h *Handler) scans(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries := h.store.List()
		out := make([]ScanSummary, 0, len(entries))
		for _, e := range entries {
			out = append(out, toSummary(e.Record))
		}
		jsonResp(w, http.StatusOK, out)

	case http.MethodPost:
		var req startScanRequest
		if r.ContentLength != 0 && !decodeBody(w, r, &req) {
			return
		}
		var rng *scan.Range
		switch {
		case req.Start == nil && req.End == nil:
			// Host's default playback range.
		case req.Start != nil && req.End != nil:
			if *req.Start > *req.End {
				jsonErr(w, http.StatusBadRequest, "start frame must not be after end frame")
				return
			}
			rng = &scan.Range{Start: *req.Start, End: *req.End}
		default:
			jsonErr(w, http.StatusBadRequest, "start and end frames must be given together")
			return
		}

		id, err := h.runner.Start(rng)
		switch {
		case errors.Is(err, runner.ErrScanActive):
			jsonErr(w, http.StatusConflict, err.Error())
		case errors.Is(err, runner.ErrNoAttributes):
			jsonErr(w, http.StatusBadRequest, err.Error())
		case err != nil:
			jsonErr(w, http.StatusInternalServerError, err.Error())
		default:
			jsonResp(w, http.StatusAccepted, StartScanResponse{ScanID: id})
		}

	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// scanByID handles GET /api/v1/scans/{id}, GET /api/v1/scans/{id}/report,
// and DELETE /api/v1/scans/{id} (cancel).
func (h *Handler) scanByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/scans/")
	if rest == "" {
		h.scans(w, r)
		return
	}
	id, report := rest, false
	if s, ok := strings.CutSuffix(rest, "/report"); ok {
		id, report = s, true
	}

	e, found := h.store.Get(id)
	if !found {
		jsonErr(w, http.StatusNotFound, "scan not found")
		return
	}

	switch {
	case report && r.Method == http.MethodGet:
		// A report only exists for a completed scan. Rendering a canceled or
		// failed record would read as "no spikes", which is a lie.
		if e.Record.Status != store.StatusSucceeded {
			jsonErr(w, http.StatusConflict, "scan did not complete: "+e.Record.Status)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, scan.FormatResult(e.Record.Result)) //nolint:errcheck

	case r.Method == http.MethodGet:
		jsonResp(w, http.StatusOK, ScanResponse{
			ScanSummary: toSummary(e.Record),
			Request:     e.Record.Request,
			Result:      e.Record.Result,
		})

	case r.Method == http.MethodDelete:
		if !h.runner.Cancel(id) {
			jsonErr(w, http.StatusConflict, "scan is not running")
			return
		}
		w.WriteHeader(http.StatusAccepted)

	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// status returns GET /api/v1/status — the same payload the hub broadcasts.
func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildStatus(h.runner, h.store))
}

// uiSettings handles GET and PUT on /api/v1/settings.
func (h *Handler) uiSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		raw, ok := h.settings.Load()
		if !ok {
			raw = json.RawMessage("{}")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(raw) //nolint:errcheck

	case http.MethodPut:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			jsonErr(w, http.StatusBadRequest, "read body: "+err.Error())
			return
		}
		if !json.Valid(body) {
			jsonErr(w, http.StatusBadRequest, "settings must be valid JSON")
			return
		}
		h.settings.Save(body)
		w.WriteHeader(http.StatusNoContent)

	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// --- helpers ----------------------------------------------------------------

// decodeBody decodes a JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
