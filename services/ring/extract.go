package ring

// Window copies the most recent len(dst) scalars into dst, oldest first.
// len(dst) must not exceed the capacity.
func (s *store) Window(dst []float32) {
	length := len(dst)
	capacity := len(s.data)
	for i := 0; i < length; i++ {
		idx := s.cursor + i - length
		if idx < 0 {
			idx += capacity
		}
		dst[i] = s.data[idx]
	}
}
