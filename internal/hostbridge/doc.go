// Package hostbridge connects spikewatchd to the command bridge running
// inside the animation host.
//
// The bridge is a small HTTP server the host-side plugin exposes; it accepts
// cursor moves, attribute reads, and option reads/writes on behalf of the
// host's scripting layer. Bridge wraps that protocol behind scene.Host, so
// the scan engine never sees HTTP.
//
// New(cfg) builds a Bridge from a config.HostConfig: base endpoint, request
// timeout, auth mode (mtls, apikey, bearer, basic, or none), and TLS options.
// Auth headers are injected by a custom RoundTripper, so every method gets
// them for free.
//
// Endpoints used, all JSON:
//
//	GET  /bridge/v1/attrs/{ref}         — {exists, kind}
//	GET  /bridge/v1/attrs/{ref}/value   — {value} at the current cursor
//	GET  /bridge/v1/cursor              — {time}
//	PUT  /bridge/v1/cursor              — {time}
//	GET  /bridge/v1/playback-range      — {start, end}
//	POST /bridge/v1/refresh             — {suspend}
//	POST /bridge/v1/undo/open           — open an undo batch
//	POST /bridge/v1/undo/close          — close it
//	GET  /bridge/v1/nodes?pattern=...   — {nodes} matching the wildcard pattern
//	GET  /bridge/v1/selection           — {refs}
//	GET  /bridge/v1/options/{key}       — {value, found}
//	PUT  /bridge/v1/options/{key}       — {value}
//
// Attribute references are path-escaped, so namespaced and pipe-separated
// node names round-trip safely.
package hostbridge
