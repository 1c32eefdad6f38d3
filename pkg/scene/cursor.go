package scene

// CursorHold captures the host's current-time cursor so it can be restored
// after a scan, whatever the exit path. Acquire with HoldCursor before the
// first cursor mutation, then defer Restore.
type CursorHold struct {
	host     Host
	original float64
	restored bool
}

// HoldCursor reads and records the current cursor position.
// No cursor mutation happens until the caller moves it.
func HoldCursor(h Host) (*CursorHold, error) {
	orig, err := h.Cursor()
	if err != nil {
		return nil, err
	}
	return &CursorHold{host: h, original: orig}, nil
}

// Original returns the cursor position captured at acquisition time.
func (c *CursorHold) Original() float64 { return c.original }

// Restore moves the cursor back to its captured position. Safe to call more
// than once; only the first call touches the host.
func (c *CursorHold) Restore() error {
	if c.restored {
		return nil
	}
	c.restored = true
	return c.host.SetCursor(c.original)
}
