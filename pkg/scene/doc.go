// Package scene defines the boundary to the animation host application.
//
// Host is the minimal scene/timeline surface the scanner needs: attribute
// existence and type queries, scalar value reads at the current time, the
// shared current-time cursor, and the default playback range. Optional
// capabilities (RefreshSuspender, UndoBatcher, Selector, NodeLister,
// SettingsStore) are discovered by type assertion — hosts that cannot provide
// them simply don't implement them.
//
// The current-time cursor is a single process-wide resource inside the host:
// only one frame can be the active scene state at a time. HoldCursor captures
// the pre-scan cursor and Restore puts it back; callers defer Restore so the
// cursor is returned on every exit path.
//
// MemHost is a self-contained in-memory host for tests and for running the
// scanner without an attached application.
package scene
