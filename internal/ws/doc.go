// Package ws implements the WebSocket status stream for spikewatchd.
//
// Hub manages a set of connected clients and pushes the current scan status
// to all of them. Pushes are event-driven: the runner pulses on scan start,
// on every throttled progress step, and on completion, so clients see
// progress as it happens rather than on a polling interval. A keepalive
// interval (default 1s in production) covers idle stretches.
//
// New(runner, store, keepalive) creates a Hub.
// Hub.Run(ctx) starts the push loop — blocks until ctx is cancelled, then
// closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// status immediately on connect, then streams updates on each push.
//
// Message format sent to clients:
//
//	{
//	  "event": "status",
//	  "data":  { /* same schema as GET /api/v1/status */ }
//	}
//
// While a scan is running, data.status carries live frame progress; after it
// finishes, data.latest summarises the most recent scan. The upgrader accepts
// all origins. Apply CORS restrictions at the reverse proxy level. WebSocket
// endpoint is mounted at /ws/stream by the server.
package ws
