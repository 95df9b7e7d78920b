package ring

// fillTracker latches readiness the first time enough scalars have been
// written since the last reset. Once ready it stays ready until Reset, even
// while old data keeps getting overwritten.
type fillTracker struct {
	required int
	written  int
	pending  bool
}

func newFillTracker(required int) *fillTracker {
	return &fillTracker{required: required, pending: true}
}

// Reset re-arms the latch.
func (t *fillTracker) Reset() {
	t.written = 0
	t.pending = true
}

// Advance records n more scalars written since the last reset.
func (t *fillTracker) Advance(n int) {
	t.written += n
	if t.pending && t.written >= t.required {
		t.pending = false
	}
}

func (t *fillTracker) Ready() bool   { return !t.pending }
func (t *fillTracker) Written() int  { return t.written }
func (t *fillTracker) Required() int { return t.required }
