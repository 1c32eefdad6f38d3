// Package scan implements the frame-by-frame spike scanner.
//
// Run performs one sequential pass over a closed frame range, sampling every
// requested attribute at every frame through the host's shared current-time
// cursor and recording a Spike wherever the absolute frame-to-frame delta
// exceeds that attribute's threshold (strictly — a delta equal to the
// threshold is not a spike). The first sampled frame establishes each
// attribute's baseline and can never produce a spike.
//
// The request is validated before the cursor is touched: every reference must
// resolve to an existing attribute of a numeric kind, thresholds must be
// non-negative, and the range must satisfy start ≤ end. Validation failures
// surface as *ValidationError (matching ErrValidation) naming the first
// offending reference.
//
// Cancellation is cooperative: once per frame, after all attributes at that
// frame have been sampled, Run checks the context and polls the optional
// progress hook. Either aborting surfaces as ErrCanceled so callers can tell
// an aborted scan from a completed scan that found nothing.
//
// The pre-scan cursor position is restored on every exit path.
package scan
