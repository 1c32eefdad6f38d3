package scan_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/spikewatch/spikewatch/pkg/scan"
	"github.com/spikewatch/spikewatch/pkg/scene"
)

// newHost returns a MemHost with playback range [1, 10] and a single double
// attribute "A.v" keyed with the given values starting at frame 1.
func newHost(values ...float64) *scene.MemHost {
	h := scene.NewMemHost(1, 10)
	h.AddAttr("A.v", "double", 0)
	h.SetSamples("A.v", 1, values...)
	return h
}

func run(t *testing.T, h scene.Host, req scan.Request) scan.Result {
	t.Helper()
	res, err := scan.Run(context.Background(), h, req, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func rng(start, end int) *scan.Range { return &scan.Range{Start: start, End: end} }

func TestRun_SpecExample(t *testing.T) {
	// Threshold 5.0 over frames 1..4 with values [1.0, 3.0, 10.0, 10.5]:
	// only the 3.0 -> 10.0 jump (delta 7.0) exceeds the threshold.
	h := newHost(1.0, 3.0, 10.0, 10.5)
	res := run(t, h, scan.Request{
		Attrs: []scan.Attr{{Ref: "A.v", Threshold: 5.0}},
		Range: rng(1, 4),
	})

	want := scan.Result{
		"A.v": {{Ref: "A.v", PrevFrame: 2, Frame: 3, PrevValue: 3.0, Value: 10.0, Delta: 7.0}},
	}
	if !reflect.DeepEqual(res, want) {
		t.Errorf("Result:\n got %+v\nwant %+v", res, want)
	}
}

func TestRun_DeltaEqualToThresholdIsNotASpike(t *testing.T) {
	h := newHost(0.0, 2.0, 4.0)
	res := run(t, h, scan.Request{
		Attrs: []scan.Attr{{Ref: "A.v", Threshold: 2.0}},
		Range: rng(1, 3),
	})
	if len(res) != 0 {
		t.Errorf("deltas equal to the threshold were recorded: %+v", res)
	}
}

func TestRun_FirstFrameNeverSpikes(t *testing.T) {
	// A huge jump into the first sampled frame has no prior value to compare
	// against — frame 1 is baseline-only even with threshold 0.
	h := newHost(1e6)
	res := run(t, h, scan.Request{
		Attrs: []scan.Attr{{Ref: "A.v", Threshold: 0}},
		Range: rng(1, 1),
	})
	if len(res) != 0 {
		t.Errorf("single-frame scan produced spikes: %+v", res)
	}
}

func TestRun_UnderThresholdAttributeOmittedEntirely(t *testing.T) {
	// Monotonic but always under threshold: the attribute must be absent from
	// the result map, not present with an empty slice.
	h := newHost(1, 2, 3, 4, 5)
	res := run(t, h, scan.Request{
		Attrs: []scan.Attr{{Ref: "A.v", Threshold: 1.5}},
		Range: rng(1, 5),
	})
	if _, present := res["A.v"]; present {
		t.Errorf("attribute with zero spikes present in result: %+v", res["A.v"])
	}
}

func TestRun_TwoAttributesIndependent(t *testing.T) {
	h := scene.NewMemHost(1, 10)
	h.AddAttr("A.v", "double", 0)
	h.AddAttr("B.w", "doubleAngle", 0)
	h.SetSamples("A.v", 1, 0, 10, 10, 10) // one spike at frame 2
	h.SetSamples("B.w", 1, 0, 0, 0, 50)   // one spike at frame 4

	res := run(t, h, scan.Request{
		Attrs: []scan.Attr{
			{Ref: "A.v", Threshold: 5},
			{Ref: "B.w", Threshold: 20},
		},
		Range: rng(1, 4),
	})

	if got := len(res["A.v"]); got != 1 {
		t.Fatalf("A.v spikes: got %d, want 1", got)
	}
	if got := len(res["B.w"]); got != 1 {
		t.Fatalf("B.w spikes: got %d, want 1", got)
	}
	if res["A.v"][0].Frame != 2 {
		t.Errorf("A.v spike frame: got %d, want 2", res["A.v"][0].Frame)
	}
	if res["B.w"][0].Frame != 4 {
		t.Errorf("B.w spike frame: got %d, want 4", res["B.w"][0].Frame)
	}
}

func TestRun_SpikeRecordInvariants(t *testing.T) {
	h := newHost(0, 9, -5, 30, 30.4, -30)
	res := run(t, h, scan.Request{
		Attrs: []scan.Attr{{Ref: "A.v", Threshold: 8}},
		Range: rng(1, 6),
	})

	for _, s := range res["A.v"] {
		if s.Frame != s.PrevFrame+1 {
			t.Errorf("spike frames not consecutive: %+v", s)
		}
		if s.Frame < 1 || s.Frame > 6 || s.PrevFrame < 1 {
			t.Errorf("spike outside scanned range: %+v", s)
		}
		if got := s.Value - s.PrevValue; got != s.Delta && -got != s.Delta {
			t.Errorf("delta mismatch: %+v", s)
		}
		if s.Delta <= 8 {
			t.Errorf("recorded spike within threshold: %+v", s)
		}
	}
}

func TestRun_Idempotent(t *testing.T) {
	h := newHost(0, 9, -5, 30, 30.4, -30)
	req := scan.Request{
		Attrs: []scan.Attr{{Ref: "A.v", Threshold: 8}},
		Range: rng(1, 6),
	}
	first := run(t, h, req)
	second := run(t, h, req)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical scans differ:\n first %+v\nsecond %+v", first, second)
	}
}

func TestRun_NilRangeUsesPlaybackRange(t *testing.T) {
	h := scene.NewMemHost(3, 7)
	h.AddAttr("A.v", "double", 0)

	var total, calls int
	_, err := scan.Run(context.Background(), h, scan.Request{
		Attrs: []scan.Attr{{Ref: "A.v", Threshold: 1}},
	}, func(done, tot int) bool {
		calls++
		total = tot
		if done != calls {
			t.Errorf("progress done: got %d, want %d", done, calls)
		}
		return true
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if total != 5 || calls != 5 {
		t.Errorf("playback range 3..7: got total=%d calls=%d, want 5/5", total, calls)
	}
}

func TestRun_ProgressAbort(t *testing.T) {
	h := newHost(0, 0, 0, 0, 0, 0)
	_, err := scan.Run(context.Background(), h, scan.Request{
		Attrs: []scan.Attr{{Ref: "A.v", Threshold: 1}},
		Range: rng(1, 6),
	}, func(done, total int) bool {
		return done < 3
	})
	if !errors.Is(err, scan.ErrCanceled) {
		t.Fatalf("aborted scan error: got %v, want ErrCanceled", err)
	}
}

func TestRun_ContextCancel(t *testing.T) {
	h := newHost(0, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := scan.Run(ctx, h, scan.Request{
		Attrs: []scan.Attr{{Ref: "A.v", Threshold: 1}},
		Range: rng(1, 3),
	}, nil)
	if !errors.Is(err, scan.ErrCanceled) {
		t.Fatalf("context-canceled scan error: got %v, want ErrCanceled", err)
	}
}

// --- validation -------------------------------------------------------------

func TestRun_Validation(t *testing.T) {
	h := scene.NewMemHost(1, 10)
	h.AddAttr("A.v", "double", 0)
	h.AddAttr("A.note", "string", 0)

	tests := []struct {
		name    string
		req     scan.Request
		wantRef string
	}{
		{
			name: "empty request",
			req:  scan.Request{},
		},
		{
			name: "inverted range",
			req: scan.Request{
				Attrs: []scan.Attr{{Ref: "A.v", Threshold: 1}},
				Range: rng(5, 2),
			},
		},
		{
			name: "missing attribute",
			req: scan.Request{
				Attrs: []scan.Attr{{Ref: "A.v", Threshold: 1}, {Ref: "Ghost.tx", Threshold: 1}},
			},
			wantRef: "Ghost.tx",
		},
		{
			name: "non-numeric attribute",
			req: scan.Request{
				Attrs: []scan.Attr{{Ref: "A.note", Threshold: 1}},
			},
			wantRef: "A.note",
		},
		{
			name: "negative threshold",
			req: scan.Request{
				Attrs: []scan.Attr{{Ref: "A.v", Threshold: -0.5}},
			},
			wantRef: "A.v",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := h.CursorSets()
			_, err := scan.Run(context.Background(), h, tt.req, nil)
			if !errors.Is(err, scan.ErrValidation) {
				t.Fatalf("error: got %v, want ErrValidation", err)
			}
			var verr *scan.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error is not *ValidationError: %v", err)
			}
			if verr.Ref != tt.wantRef {
				t.Errorf("offending ref: got %q, want %q", verr.Ref, tt.wantRef)
			}
			if h.CursorSets() != before {
				t.Error("validation failure mutated the cursor")
			}
		})
	}
}

// --- cursor restoration -----------------------------------------------------

func TestRun_CursorRestored(t *testing.T) {
	const origCursor = 99.5 // fractional, to prove exact restoration

	readErr := errors.New("host read failure")

	tests := []struct {
		name    string
		prepare func(h *scene.MemHost)
		req     scan.Request
		prog    scan.Progress
		wantErr bool
	}{
		{
			name: "success",
			req: scan.Request{
				Attrs: []scan.Attr{{Ref: "A.v", Threshold: 1}},
				Range: rng(1, 4),
			},
		},
		{
			name: "canceled mid-scan",
			req: scan.Request{
				Attrs: []scan.Attr{{Ref: "A.v", Threshold: 1}},
				Range: rng(1, 4),
			},
			prog:    func(done, total int) bool { return done < 2 },
			wantErr: true,
		},
		{
			name: "read error mid-scan",
			prepare: func(h *scene.MemHost) {
				h.FailReadAt("A.v", 3, readErr)
			},
			req: scan.Request{
				Attrs: []scan.Attr{{Ref: "A.v", Threshold: 1}},
				Range: rng(1, 4),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHost(0, 0, 0, 0)
			if tt.prepare != nil {
				tt.prepare(h)
			}
			if err := h.SetCursor(origCursor); err != nil {
				t.Fatal(err)
			}

			_, err := scan.Run(context.Background(), h, tt.req, tt.prog)
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Run: %v", err)
			}

			cursor, _ := h.Cursor()
			if cursor != origCursor {
				t.Errorf("cursor after scan: got %v, want %v", cursor, origCursor)
			}
		})
	}
}

func TestRun_ReadErrorPropagated(t *testing.T) {
	readErr := errors.New("host read failure")
	h := newHost(0, 0, 0, 0)
	h.FailReadAt("A.v", 2, readErr)

	_, err := scan.Run(context.Background(), h, scan.Request{
		Attrs: []scan.Attr{{Ref: "A.v", Threshold: 1}},
		Range: rng(1, 4),
	}, nil)
	if !errors.Is(err, readErr) {
		t.Fatalf("error: got %v, want wrapped read failure", err)
	}
}

func TestRun_RefreshAndUndoRestored(t *testing.T) {
	h := newHost(0, 10, 0)
	suspendedDuringScan := false

	_, err := scan.Run(context.Background(), h, scan.Request{
		Attrs: []scan.Attr{{Ref: "A.v", Threshold: 1}},
		Range: rng(1, 3),
	}, func(done, total int) bool {
		if h.RefreshSuspended() {
			suspendedDuringScan = true
		}
		return true
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !suspendedDuringScan {
		t.Error("viewport refresh was not suspended during the scan")
	}
	if h.RefreshSuspended() {
		t.Error("viewport refresh still suspended after the scan")
	}
	if h.UndoDepth() != 0 {
		t.Errorf("undo batch depth after scan: got %d, want 0", h.UndoDepth())
	}
}
