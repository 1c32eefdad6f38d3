// Package settings persists a small JSON blob of UI state (window geometry)
// through the animation host's key-value option store. All persistence is
// best-effort: failures are logged and swallowed, and a host without an
// option store degrades to a no-op.
package settings
