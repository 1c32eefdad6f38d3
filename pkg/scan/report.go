package scan

import (
	"fmt"
	"sort"
	"strings"
)

// FormatResult renders a plain-text spike listing, one block per attribute in
// reference order.
func FormatResult(res Result) string {
	if len(res) == 0 {
		return "No spikes found.\n"
	}

	refs := make([]string, 0, len(res))
	for ref := range res {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	var b strings.Builder
	for _, ref := range refs {
		fmt.Fprintf(&b, "Spikes found for %s:\n", ref)
		for _, s := range res[ref] {
			fmt.Fprintf(&b, "  frame %d: %g -> %g (delta %g)\n",
				s.Frame, s.PrevValue, s.Value, s.Delta)
		}
	}
	return b.String()
}
