package scene

import "regexp"

// Host is the scene-query surface of the animation host application.
//
// AttrValue reads the attribute at the host's current cursor time, so a
// frame-accurate read is always a SetCursor followed by AttrValue. The cursor
// is shared host-global state; see HoldCursor.
type Host interface {
	// AttrExists reports whether ref resolves to an attribute in the scene.
	AttrExists(ref string) (bool, error)

	// AttrKind returns the host's type string for ref (e.g. "doubleLinear").
	AttrKind(ref string) (string, error)

	// AttrValue returns the scalar value of ref at the current cursor time.
	AttrValue(ref string) (float64, error)

	// Cursor returns the current-time cursor. The host may report a
	// fractional time, so the cursor is a float even though scans step
	// through integer frames.
	Cursor() (float64, error)

	// SetCursor moves the current-time cursor, re-evaluating the scene.
	SetCursor(time float64) error

	// PlaybackRange returns the host's configured default playback range.
	PlaybackRange() (start, end int, err error)
}

// RefreshSuspender is an optional Host capability: pausing viewport redraws
// while the cursor is being stepped through many frames.
type RefreshSuspender interface {
	SuspendRefresh(suspend bool) error
}

// UndoBatcher is an optional Host capability: grouping all cursor mutations
// of one scan into a single undo step.
type UndoBatcher interface {
	OpenUndoBatch() error
	CloseUndoBatch() error
}

// Selector is an optional Host capability: the channels currently selected
// in the host UI, as "node.attribute" references.
type Selector interface {
	SelectedChannels() ([]string, error)
}

// NodeLister is an optional Host capability: listing scene node names that
// match a wildcard pattern, the way the host's own node query does. "*"
// matches any run of characters; everything else is literal.
type NodeLister interface {
	ListNodes(pattern string) ([]string, error)
}

// SettingsStore is an optional Host capability: the host's persistent
// key-value option store.
type SettingsStore interface {
	// Option returns the stored value for key and whether it was present.
	Option(key string) (string, bool, error)

	// SetOption stores value under key.
	SetOption(key, value string) error
}

// Kind is one of the host's numeric attribute type strings accepted for
// scanning. The host reports types dynamically as strings; anything outside
// this closed set is rejected at validation time.
type Kind string

// Accepted numeric attribute kinds.
const (
	KindFloat        Kind = "float"
	KindDouble       Kind = "double"
	KindInt          Kind = "int"
	KindLong         Kind = "long"
	KindShort        Kind = "short"
	KindByte         Kind = "byte"
	KindDoubleLinear Kind = "doubleLinear"
	KindDoubleAngle  Kind = "doubleAngle"
)

var numericKinds = map[Kind]struct{}{
	KindFloat:        {},
	KindDouble:       {},
	KindInt:          {},
	KindLong:         {},
	KindShort:        {},
	KindByte:         {},
	KindDoubleLinear: {},
	KindDoubleAngle:  {},
}

// NumericKind reports whether the host type string names a scannable
// numeric scalar kind.
func NumericKind(hostType string) bool {
	_, ok := numericKinds[Kind(hostType)]
	return ok
}

// refPattern matches "node.attribute" references. The node part follows the
// host's node-name grammar (alphanumerics, underscore, namespace colon, DAG
// path pipe); the attribute part allows dots for compound children
// (e.g. "translate.translateX").
var refPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_:|]*\.[A-Za-z_][A-Za-z0-9_.]*$`)

// ValidRef reports whether ref is syntactically a "node.attribute" reference.
// It says nothing about whether the attribute exists — that is a Host query.
func ValidRef(ref string) bool {
	return refPattern.MatchString(ref)
}

// nodePattern is the node-name grammar with "*" wildcards allowed, matching
// what the host's node query accepts.
var nodePattern = regexp.MustCompile(`^[A-Za-z_*][A-Za-z0-9_:|*]*$`)

// attrName is the bare attribute-name grammar (dots for compound children).
var attrName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// ValidNodePattern reports whether pattern is a node-name wildcard pattern
// acceptable to NodeLister.ListNodes.
func ValidNodePattern(pattern string) bool {
	return nodePattern.MatchString(pattern)
}

// ValidAttrName reports whether name is a bare attribute name, suitable for
// joining to a node name as "node.name".
func ValidAttrName(name string) bool {
	return attrName.MatchString(name)
}
