package models

// Window is one extracted, time-ordered slice of buffered samples, flattened
// channel-interleaved with index 0 the oldest scalar.
type Window struct {
	ID          string    `json:"id"`
	TimestampNs int64     `json:"timestamp_ns"`
	Cycle       uint64    `json:"cycle"`
	Cursor      int       `json:"cursor"`
	Channels    int       `json:"channels"`
	Values      []float32 `json:"values"`
}

// Samples returns the number of whole samples in the window.
func (w *Window) Samples() int {
	if w.Channels == 0 {
		return 0
	}
	return len(w.Values) / w.Channels
}

// Channel returns the series of one channel across the window.
func (w *Window) Channel(ch int) []float32 {
	if ch < 0 || ch >= w.Channels {
		return nil
	}
	out := make([]float32, 0, w.Samples())
	for i := ch; i < len(w.Values); i += w.Channels {
		out = append(out, w.Values[i])
	}
	return out
}

func (Window) CSVHeader() []string {
	return []string{"window_id", "timestamp_ns", "cycle", "cursor", "channels", "length", "values"}
}

// CSVRow stores the flattened values in one space-separated column so
// windows of different lengths share a header.
func (w *Window) CSVRow() []string {
	vals := make([]byte, 0, len(w.Values)*10)
	for i, v := range w.Values {
		if i > 0 {
			vals = append(vals, ' ')
		}
		vals = append(vals, ftoa32(v, 4)...)
	}
	return []string{
		w.ID,
		itoa64(w.TimestampNs),
		utoa64(w.Cycle),
		itoa(w.Cursor),
		itoa(w.Channels),
		itoa(len(w.Values)),
		string(vals),
	}
}

// CycleStatus is a per-poll snapshot of the window pipeline.
type CycleStatus struct {
	Cycle       uint64
	TimestampNs int64
	Ready       bool
	Cursor      int
	Written     int
	Required    int
	Capacity    int
	Ingested    uint64
	Windows     uint64
	Errors      uint64
	Reset       bool
	Window      *Window // nil when no window was extracted this cycle
}
