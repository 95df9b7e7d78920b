package ring

// store is a fixed-capacity, channel-interleaved ring of scalar samples.
//
// cursor always points at the next slot to be overwritten, so the oldest
// scalar sits at cursor and the newest immediately before it.
type store struct {
	data     []float32
	channels int
	cursor   int
}

func newStore(capacity, channels int) *store {
	return &store{
		data:     make([]float32, capacity),
		channels: channels,
	}
}

// Append writes one sample at the cursor and advances it by the channel
// count, wrapping to 0 at capacity. len(sample) must equal the channel count.
func (s *store) Append(sample []float32) {
	copy(s.data[s.cursor:s.cursor+s.channels], sample)
	s.cursor += s.channels
	if s.cursor >= len(s.data) {
		s.cursor = 0
	}
}

// Clear zero-fills the ring and rewinds the cursor.
func (s *store) Clear() {
	clear(s.data)
	s.cursor = 0
}

func (s *store) Cursor() int   { return s.cursor }
func (s *store) Capacity() int { return len(s.data) }
func (s *store) Channels() int { return s.channels }
