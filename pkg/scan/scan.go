package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/spikewatch/spikewatch/pkg/scene"
)

// Sentinel errors callers branch on.
var (
	// ErrValidation marks a request rejected before any scanning side effect.
	ErrValidation = errors.New("invalid scan request")

	// ErrCanceled marks a scan aborted through the context or the progress
	// hook. A canceled scan produced no result — it is not "no spikes found".
	ErrCanceled = errors.New("scan canceled")
)

// ValidationError names the first request entry that failed validation.
// Ref is empty for request-level problems (empty request, inverted range).
type ValidationError struct {
	Ref    string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("invalid scan request: %s", e.Reason)
	}
	return fmt.Sprintf("invalid scan request: attribute %q %s", e.Ref, e.Reason)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Attr is one scan entry: an attribute reference and its tolerated
// frame-to-frame delta.
type Attr struct {
	Ref       string  `json:"ref"`
	Threshold float64 `json:"threshold"`
}

// Range is an inclusive integer frame range.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Frames returns the number of samples in the range.
func (r Range) Frames() int { return r.End - r.Start + 1 }

// Request is one scan invocation: an ordered attribute list and an optional
// frame range. A nil Range means the host's default playback range.
type Request struct {
	Attrs []Attr `json:"attrs"`
	Range *Range `json:"range,omitempty"`
}

// Spike is one recorded threshold violation: the value jumped by Delta
// between PrevFrame and Frame.
type Spike struct {
	Ref       string  `json:"ref"`
	PrevFrame int     `json:"prev_frame"`
	Frame     int     `json:"frame"`
	PrevValue float64 `json:"prev_value"`
	Value     float64 `json:"value"`
	Delta     float64 `json:"delta"`
}

// Result maps attribute references to their spikes in frame order.
// Attributes with no spikes are absent.
type Result map[string][]Spike

// Spikes returns the total spike count across all attributes.
func (r Result) Spikes() int {
	n := 0
	for _, s := range r {
		n += len(s)
	}
	return n
}

// Progress is polled once per frame, after every attribute at that frame has
// been sampled, with the 1-based count of frames processed and the total.
// Returning false aborts the scan with ErrCanceled.
type Progress func(done, total int) bool

// Run executes one scan against host. See the package documentation for the
// full contract. progress may be nil.
func Run(ctx context.Context, host scene.Host, req Request, progress Progress) (res Result, err error) {
	if err := validate(host, req); err != nil {
		return nil, err
	}

	rng, err := resolveRange(host, req.Range)
	if err != nil {
		return nil, err
	}

	hold, err := scene.HoldCursor(host)
	if err != nil {
		return nil, fmt.Errorf("acquire cursor: %w", err)
	}
	defer func() {
		if rerr := hold.Restore(); rerr != nil {
			if err == nil {
				res, err = nil, fmt.Errorf("restore cursor: %w", rerr)
				return
			}
			// The scan already failed; the original error wins.
			slog.Error("scan: cursor restore failed", "err", rerr)
		}
	}()

	// Best-effort host niceties, mirrored from the interactive tool: pause
	// viewport redraws and group the cursor stepping into one undo batch.
	if rs, ok := host.(scene.RefreshSuspender); ok {
		if serr := rs.SuspendRefresh(true); serr == nil {
			defer rs.SuspendRefresh(false) //nolint:errcheck
		}
	}
	if ub, ok := host.(scene.UndoBatcher); ok {
		if oerr := ub.OpenUndoBatch(); oerr == nil {
			defer ub.CloseUndoBatch() //nolint:errcheck
		}
	}

	res = make(Result)
	prev := make(map[string]float64, len(req.Attrs))
	seen := make(map[string]bool, len(req.Attrs))
	total := rng.Frames()

	for frame := rng.Start; frame <= rng.End; frame++ {
		if err := host.SetCursor(float64(frame)); err != nil {
			return nil, fmt.Errorf("set cursor to frame %d: %w", frame, err)
		}

		for _, attr := range req.Attrs {
			value, err := host.AttrValue(attr.Ref)
			if err != nil {
				return nil, fmt.Errorf("read %q at frame %d: %w", attr.Ref, frame, err)
			}

			if seen[attr.Ref] {
				delta := math.Abs(value - prev[attr.Ref])
				if delta > attr.Threshold {
					res[attr.Ref] = append(res[attr.Ref], Spike{
						Ref:       attr.Ref,
						PrevFrame: frame - 1,
						Frame:     frame,
						PrevValue: prev[attr.Ref],
						Value:     value,
						Delta:     delta,
					})
				}
			}
			prev[attr.Ref] = value
			seen[attr.Ref] = true
		}

		// Cancellation is observed once per frame boundary, never mid-frame.
		done := frame - rng.Start + 1
		if cerr := ctx.Err(); cerr != nil {
			return nil, fmt.Errorf("%w: %v", ErrCanceled, cerr)
		}
		if progress != nil && !progress(done, total) {
			return nil, ErrCanceled
		}
	}

	return res, nil
}

// validate checks the request against the host before any cursor mutation.
// The first offending attribute stops validation.
func validate(host scene.Host, req Request) error {
	if len(req.Attrs) == 0 {
		return &ValidationError{Reason: "no attributes"}
	}
	if req.Range != nil && req.Range.Start > req.Range.End {
		return &ValidationError{
			Reason: fmt.Sprintf("start frame %d after end frame %d", req.Range.Start, req.Range.End),
		}
	}

	for _, attr := range req.Attrs {
		if attr.Threshold < 0 {
			return &ValidationError{Ref: attr.Ref, Reason: "has a negative threshold"}
		}
		exists, err := host.AttrExists(attr.Ref)
		if err != nil {
			return fmt.Errorf("check %q: %w", attr.Ref, err)
		}
		if !exists {
			return &ValidationError{Ref: attr.Ref, Reason: "does not exist"}
		}
		kind, err := host.AttrKind(attr.Ref)
		if err != nil {
			return fmt.Errorf("type of %q: %w", attr.Ref, err)
		}
		if !scene.NumericKind(kind) {
			return &ValidationError{Ref: attr.Ref, Reason: fmt.Sprintf("is not numeric (type %q)", kind)}
		}
	}
	return nil
}

// resolveRange returns the explicit range, or the host's playback range when
// the request omits bounds.
func resolveRange(host scene.Host, r *Range) (Range, error) {
	if r != nil {
		return *r, nil
	}
	start, end, err := host.PlaybackRange()
	if err != nil {
		return Range{}, fmt.Errorf("playback range: %w", err)
	}
	return Range{Start: start, End: end}, nil
}
