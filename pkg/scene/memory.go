package scene

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// MemHost is an in-memory Host for tests and host-less runs. Attribute values
// are keyed per integer frame; reads at a frame with no keyed value return
// the attribute's base value. All optional capabilities are implemented.
//
// MemHost is safe for concurrent use.
type MemHost struct {
	mu sync.Mutex

	cursor     float64
	rangeStart int
	rangeEnd   int

	attrs     map[string]*memAttr
	nodes     map[string]struct{}
	selection []string
	options   map[string]string

	refreshSuspended bool
	undoDepth        int
	cursorSets       int
}

type memAttr struct {
	kind     string
	base     float64
	samples  map[int]float64
	readErrs map[int]error
}

// NewMemHost returns an empty MemHost with playback range [start, end].
func NewMemHost(start, end int) *MemHost {
	return &MemHost{
		rangeStart: start,
		rangeEnd:   end,
		attrs:      make(map[string]*memAttr),
		nodes:      make(map[string]struct{}),
		options:    make(map[string]string),
	}
}

// AddAttr registers an attribute with the given host type string and base
// value. The node part of ref becomes a listed node.
func (m *MemHost) AddAttr(ref, kind string, base float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attrs[ref] = &memAttr{
		kind:     kind,
		base:     base,
		samples:  make(map[int]float64),
		readErrs: make(map[int]error),
	}
	if i := strings.IndexByte(ref, '.'); i > 0 {
		m.nodes[ref[:i]] = struct{}{}
	}
}

// AddNode registers bare node names for ListNodes, independent of attributes.
func (m *MemHost) AddNode(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range names {
		m.nodes[n] = struct{}{}
	}
}

// SetSample keys a value for ref at frame. The attribute must exist.
func (m *MemHost) SetSample(ref string, frame int, value float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.attrs[ref]; ok {
		a.samples[frame] = value
	}
}

// SetSamples keys consecutive values for ref starting at frame.
func (m *MemHost) SetSamples(ref string, start int, values ...float64) {
	for i, v := range values {
		m.SetSample(ref, start+i, v)
	}
}

// FailReadAt makes AttrValue for ref return err when read at frame.
func (m *MemHost) FailReadAt(ref string, frame int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.attrs[ref]; ok {
		a.readErrs[frame] = err
	}
}

// SetSelection sets the references returned by SelectedChannels.
func (m *MemHost) SetSelection(refs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selection = append([]string(nil), refs...)
}

func (m *MemHost) AttrExists(ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.attrs[ref]
	return ok, nil
}

func (m *MemHost) AttrKind(ref string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attrs[ref]
	if !ok {
		return "", fmt.Errorf("attribute %q does not exist", ref)
	}
	return a.kind, nil
}

func (m *MemHost) AttrValue(ref string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attrs[ref]
	if !ok {
		return 0, fmt.Errorf("attribute %q does not exist", ref)
	}
	frame := int(math.Round(m.cursor))
	if err, ok := a.readErrs[frame]; ok {
		return 0, err
	}
	if v, ok := a.samples[frame]; ok {
		return v, nil
	}
	return a.base, nil
}

func (m *MemHost) Cursor() (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor, nil
}

func (m *MemHost) SetCursor(time float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursor = time
	m.cursorSets++
	return nil
}

func (m *MemHost) PlaybackRange() (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rangeStart, m.rangeEnd, nil
}

func (m *MemHost) SuspendRefresh(suspend bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshSuspended = suspend
	return nil
}

func (m *MemHost) OpenUndoBatch() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undoDepth++
	return nil
}

func (m *MemHost) CloseUndoBatch() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undoDepth--
	return nil
}

func (m *MemHost) SelectedChannels() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.selection...), nil
}

// ListNodes returns the node names matching pattern, sorted. "*" matches any
// run of characters; everything else is literal.
func (m *MemHost) ListNodes(pattern string) ([]string, error) {
	re, err := regexp.Compile("^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*") + "$")
	if err != nil {
		return nil, fmt.Errorf("bad node pattern %q: %w", pattern, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for name := range m.nodes {
		if re.MatchString(name) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemHost) Option(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.options[key]
	return v, ok, nil
}

func (m *MemHost) SetOption(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.options[key] = value
	return nil
}

// RefreshSuspended reports the current refresh-suspend state (test hook).
func (m *MemHost) RefreshSuspended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshSuspended
}

// UndoDepth reports the current undo batch nesting (test hook).
func (m *MemHost) UndoDepth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.undoDepth
}

// CursorSets reports how many times SetCursor has been called (test hook).
func (m *MemHost) CursorSets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursorSets
}
