package scene

import "testing"

func TestNumericKind(t *testing.T) {
	for _, kind := range []string{
		"float", "double", "int", "long", "short", "byte",
		"doubleLinear", "doubleAngle",
	} {
		if !NumericKind(kind) {
			t.Errorf("NumericKind(%q) = false, want true", kind)
		}
	}
	for _, kind := range []string{"string", "enum", "matrix", "message", ""} {
		if NumericKind(kind) {
			t.Errorf("NumericKind(%q) = true, want false", kind)
		}
	}
}

func TestValidRef(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"pCube1.tx", true},
		{"ns:pCube1.ry", true},
		{"grp|pCube1.translateX", true},
		{"pCube1.translate.translateX", true},
		{"_root.visibility", true},
		{"pCube1", false},
		{".tx", false},
		{"pCube1.", false},
		{"キューブ.tx", false},
		{"pCube1.t x", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidRef(tt.ref); got != tt.want {
			t.Errorf("ValidRef(%q) = %v, want %v", tt.ref, got, tt.want)
		}
	}
}

func TestHoldCursor_RestoreOnce(t *testing.T) {
	h := NewMemHost(1, 10)
	if err := h.SetCursor(12.5); err != nil {
		t.Fatal(err)
	}

	hold, err := HoldCursor(h)
	if err != nil {
		t.Fatalf("HoldCursor: %v", err)
	}
	if hold.Original() != 12.5 {
		t.Errorf("Original: got %v, want 12.5", hold.Original())
	}

	if err := h.SetCursor(42); err != nil {
		t.Fatal(err)
	}
	if err := hold.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if cursor, _ := h.Cursor(); cursor != 12.5 {
		t.Errorf("cursor after restore: got %v, want 12.5", cursor)
	}

	// Second Restore is a no-op — the host is not touched again.
	sets := h.CursorSets()
	if err := hold.Restore(); err != nil {
		t.Fatalf("second Restore: %v", err)
	}
	if h.CursorSets() != sets {
		t.Error("second Restore touched the host")
	}
}

func TestMemHost_SamplesAndBase(t *testing.T) {
	h := NewMemHost(1, 10)
	h.AddAttr("A.v", "double", 7.5)
	h.SetSample("A.v", 3, 1.25)

	if err := h.SetCursor(3); err != nil {
		t.Fatal(err)
	}
	if v, err := h.AttrValue("A.v"); err != nil || v != 1.25 {
		t.Errorf("keyed frame: got %v, %v", v, err)
	}

	if err := h.SetCursor(4); err != nil {
		t.Fatal(err)
	}
	if v, err := h.AttrValue("A.v"); err != nil || v != 7.5 {
		t.Errorf("unkeyed frame falls back to base: got %v, %v", v, err)
	}

	if _, err := h.AttrValue("Ghost.tx"); err == nil {
		t.Error("reading a missing attribute should fail")
	}
}

func TestValidNodePattern(t *testing.T) {
	tests := []struct {
		pattern string
		want    bool
	}{
		{"pCube*", true},
		{"*", true},
		{"ns:*|pCube1", true},
		{"pCube1", true},
		{"pCube 1*", false},
		{"pCube*.tx", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidNodePattern(tt.pattern); got != tt.want {
			t.Errorf("ValidNodePattern(%q) = %v, want %v", tt.pattern, got, tt.want)
		}
	}
}

func TestValidAttrName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"tx", true},
		{"translate.translateX", true},
		{"_custom", true},
		{"pCube1.tx", true}, // dots are legal inside compound names
		{"t x", false},
		{"*", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidAttrName(tt.name); got != tt.want {
			t.Errorf("ValidAttrName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMemHost_ListNodes(t *testing.T) {
	h := NewMemHost(1, 10)
	h.AddAttr("pCube1.tx", "double", 0) // node recorded from the ref
	h.AddNode("pCube2", "pSphere1", "ns:pCube3")

	tests := []struct {
		pattern string
		want    []string
	}{
		{"pCube*", []string{"pCube1", "pCube2"}},
		{"*", []string{"ns:pCube3", "pCube1", "pCube2", "pSphere1"}},
		{"pSphere1", []string{"pSphere1"}},
		{"ns:*", []string{"ns:pCube3"}},
		{"nothing*", nil},
	}
	for _, tt := range tests {
		got, err := h.ListNodes(tt.pattern)
		if err != nil {
			t.Fatalf("ListNodes(%q): %v", tt.pattern, err)
		}
		if len(got) != len(tt.want) {
			t.Errorf("ListNodes(%q) = %v, want %v", tt.pattern, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ListNodes(%q) = %v, want %v", tt.pattern, got, tt.want)
				break
			}
		}
	}
}
