package registry

import "testing"

func TestAdd_OrderAndIndexes(t *testing.T) {
	r := New()

	if idx, added := r.Add("pCube1.tx", 10); idx != 0 || !added {
		t.Fatalf("first Add: got (%d, %v), want (0, true)", idx, added)
	}
	if idx, added := r.Add("pSphere1.ry", 5); idx != 1 || !added {
		t.Fatalf("second Add: got (%d, %v), want (1, true)", idx, added)
	}

	entries := r.Entries()
	if len(entries) != 2 {
		t.Fatalf("Entries: got %d, want 2", len(entries))
	}
	if entries[0].Ref != "pCube1.tx" || entries[1].Ref != "pSphere1.ry" {
		t.Errorf("insertion order not kept: %+v", entries)
	}
}

func TestAdd_DuplicateKeepsExistingThreshold(t *testing.T) {
	r := New()
	r.Add("pCube1.tx", 10)

	idx, added := r.Add("pCube1.tx", 99)
	if idx != 0 || added {
		t.Fatalf("duplicate Add: got (%d, %v), want (0, false)", idx, added)
	}
	if e, _ := r.Get(0); e.Threshold != 10 {
		t.Errorf("duplicate Add changed threshold: got %v, want 10", e.Threshold)
	}
}

func TestRemove(t *testing.T) {
	r := New()
	r.Add("a.x", 1)
	r.Add("b.y", 2)
	r.Add("c.z", 3)

	if !r.Remove(1) {
		t.Fatal("Remove(1) returned false")
	}
	entries := r.Entries()
	if len(entries) != 2 || entries[0].Ref != "a.x" || entries[1].Ref != "c.z" {
		t.Errorf("after Remove: %+v", entries)
	}

	if r.Remove(5) || r.Remove(-1) {
		t.Error("out-of-range Remove returned true")
	}
}

func TestSetThreshold(t *testing.T) {
	r := New()
	r.Add("a.x", 1)

	if !r.SetThreshold(0, 4.5) {
		t.Fatal("SetThreshold returned false")
	}
	if e, _ := r.Get(0); e.Threshold != 4.5 {
		t.Errorf("threshold: got %v, want 4.5", e.Threshold)
	}
	if r.SetThreshold(3, 1) {
		t.Error("out-of-range SetThreshold returned true")
	}
}

func TestHasAndClear(t *testing.T) {
	r := New()
	r.Add("a.x", 1)

	if !r.Has("a.x") {
		t.Error("Has(a.x) = false")
	}
	if r.Has("ghost.v") {
		t.Error("Has(ghost.v) = true")
	}

	r.Clear()
	if r.Count() != 0 {
		t.Errorf("Count after Clear: got %d, want 0", r.Count())
	}
}

func TestScanAttrs(t *testing.T) {
	r := New()
	r.Add("a.x", 1)
	r.Add("b.y", 2)

	attrs := r.ScanAttrs()
	if len(attrs) != 2 {
		t.Fatalf("ScanAttrs: got %d, want 2", len(attrs))
	}
	if attrs[0].Ref != "a.x" || attrs[0].Threshold != 1 {
		t.Errorf("ScanAttrs[0]: %+v", attrs[0])
	}
	if attrs[1].Ref != "b.y" || attrs[1].Threshold != 2 {
		t.Errorf("ScanAttrs[1]: %+v", attrs[1])
	}
}
