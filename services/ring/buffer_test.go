package ring

import (
	"errors"
	"reflect"
	"testing"
)

func mustNew(t *testing.T, cfg Config) *Buffer {
	t.Helper()
	b, err := New(cfg)
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}
	return b
}

func sample(v float32, channels int) []float32 {
	s := make([]float32, channels)
	for i := range s {
		s[i] = v
	}
	return s
}

func TestNewRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero channels", Config{Channels: 0, Capacity: 12, RequiredDepth: 6}},
		{"zero capacity", Config{Channels: 3, Capacity: 0, RequiredDepth: 6}},
		{"unaligned capacity", Config{Channels: 6, Capacity: 20, RequiredDepth: 6}},
		{"zero depth", Config{Channels: 3, Capacity: 12, RequiredDepth: 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.cfg)
			if !errors.Is(err, ErrConfig) {
				t.Fatalf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestConcreteScenario(t *testing.T) {
	b := mustNew(t, Config{Channels: 3, Capacity: 12, RequiredDepth: 6})

	if err := b.Append(sample(1, 3)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if b.Ready() {
		t.Fatalf("ready after 3 scalars with depth 6")
	}
	if err := b.Append(sample(2, 3)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if !b.Ready() {
		t.Fatalf("expected ready once 6 scalars were written")
	}
	if err := b.Append(sample(3, 3)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if b.Cursor() != 9 {
		t.Fatalf("cursor = %d, want 9", b.Cursor())
	}

	got, err := b.Extract(6)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if want := []float32{2, 2, 2, 3, 3, 3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("extract = %v, want %v", got, want)
	}

	_ = b.Append(sample(4, 3))
	_ = b.Append(sample(5, 3))
	if b.Cursor() != 3 {
		t.Fatalf("cursor = %d, want 3 after wrap", b.Cursor())
	}
	got, err = b.Extract(6)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if want := []float32{4, 4, 4, 5, 5, 5}; !reflect.DeepEqual(got, want) {
		t.Fatalf("extract after wrap = %v, want %v", got, want)
	}
}

func TestExtractWraparoundMatchesTail(t *testing.T) {
	for _, channels := range []int{3, 6} {
		capacity := channels * 10
		b := mustNew(t, Config{Channels: channels, Capacity: capacity, RequiredDepth: channels})

		var history []float32
		next := float32(0)
		// 2.5 laps so the newest data straddles index 0 at some point
		for n := 0; n < 25; n++ {
			s := make([]float32, channels)
			for i := range s {
				next++
				s[i] = next
			}
			if err := b.Append(s); err != nil {
				t.Fatalf("append: %v", err)
			}
			history = append(history, s...)

			for length := channels; length <= capacity && length <= len(history); length += channels {
				got, err := b.Extract(length)
				if err != nil {
					t.Fatalf("channels=%d length=%d: %v", channels, length, err)
				}
				want := history[len(history)-length:]
				if !reflect.DeepEqual(got, want) {
					t.Fatalf("channels=%d n=%d length=%d: got %v want %v", channels, n, length, got, want)
				}
			}
		}
	}
}

func TestReadinessLatch(t *testing.T) {
	b := mustNew(t, Config{Channels: 3, Capacity: 12, RequiredDepth: 9})

	for i := 0; i < 2; i++ {
		_ = b.Append(sample(float32(i), 3))
		for attempt := 0; attempt < 3; attempt++ {
			if _, err := b.Extract(6); !errors.Is(err, ErrNotReady) {
				t.Fatalf("expected ErrNotReady before depth, got %v", err)
			}
		}
		if b.Ready() {
			t.Fatalf("ready after %d samples", i+1)
		}
	}

	_ = b.Append(sample(9, 3))
	if !b.Ready() {
		t.Fatalf("expected ready at required depth")
	}
	for i := 0; i < 20; i++ {
		_ = b.Append(sample(float32(i), 3))
		if !b.Ready() {
			t.Fatalf("readiness dropped after overwrite %d", i)
		}
	}
}

func TestReadinessUsesAbsoluteCount(t *testing.T) {
	// depth larger than capacity can only be reached by counting across wraps
	b := mustNew(t, Config{Channels: 3, Capacity: 12, RequiredDepth: 18})
	for i := 0; i < 5; i++ {
		_ = b.Append(sample(1, 3))
	}
	if b.Ready() {
		t.Fatalf("ready after 15 scalars with depth 18")
	}
	_ = b.Append(sample(1, 3))
	if !b.Ready() {
		t.Fatalf("not ready after 18 scalars")
	}
	if b.Written() != 18 {
		t.Fatalf("written = %d, want 18", b.Written())
	}
}

func TestResetIdempotent(t *testing.T) {
	b := mustNew(t, Config{Channels: 3, Capacity: 12, RequiredDepth: 3})
	for i := 0; i < 6; i++ {
		_ = b.Append(sample(float32(i+1), 3))
	}
	if !b.Ready() {
		t.Fatalf("expected ready before reset")
	}

	b.Reset()
	once := b.Snapshot()
	b.Reset()
	twice := b.Snapshot()

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("double reset differs: %v vs %v", once, twice)
	}
	for i, v := range twice {
		if v != 0 {
			t.Fatalf("slot %d = %v after reset, want 0", i, v)
		}
	}
	if b.Ready() || b.Cursor() != 0 || b.Written() != 0 {
		t.Fatalf("reset left ready=%v cursor=%d written=%d", b.Ready(), b.Cursor(), b.Written())
	}
}

func TestAppendAdvancesByChannelCount(t *testing.T) {
	for _, channels := range []int{3, 6} {
		b := mustNew(t, Config{Channels: channels, Capacity: 600, RequiredDepth: 200})
		if b.Capacity()%channels != 0 {
			t.Fatalf("capacity %d not aligned to %d", b.Capacity(), channels)
		}
		prev := b.Cursor()
		for i := 0; i < 250; i++ {
			_ = b.Append(sample(1, channels))
			want := (prev + channels) % b.Capacity()
			if b.Cursor() != want {
				t.Fatalf("channels=%d step %d: cursor=%d want %d", channels, i, b.Cursor(), want)
			}
			prev = b.Cursor()
		}
	}
}

func TestAppendRejectsWrongWidth(t *testing.T) {
	b := mustNew(t, Config{Channels: 6, Capacity: 12, RequiredDepth: 6})
	if err := b.Append([]float32{1, 2, 3}); !errors.Is(err, ErrSampleWidth) {
		t.Fatalf("expected ErrSampleWidth, got %v", err)
	}
	if b.Cursor() != 0 || b.Written() != 0 {
		t.Fatalf("rejected append mutated state")
	}
}

func TestExtractRejectsBadLength(t *testing.T) {
	b := mustNew(t, Config{Channels: 3, Capacity: 12, RequiredDepth: 3})
	_ = b.Append(sample(1, 3))
	for _, length := range []int{0, -3, 4, 15} {
		if _, err := b.Extract(length); !errors.Is(err, ErrWindowLength) {
			t.Fatalf("length %d: expected ErrWindowLength, got %v", length, err)
		}
	}
}

func TestExtractDoesNotAlias(t *testing.T) {
	b := mustNew(t, Config{Channels: 3, Capacity: 12, RequiredDepth: 3})
	_ = b.Append(sample(7, 3))
	got, err := b.Extract(3)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	_ = b.Append(sample(8, 3))
	b.Reset()
	if want := []float32{7, 7, 7}; !reflect.DeepEqual(got, want) {
		t.Fatalf("extracted slice changed to %v", got)
	}
}

func TestExtractInto(t *testing.T) {
	b := mustNew(t, Config{Channels: 3, Capacity: 12, RequiredDepth: 6})
	_ = b.Append([]float32{1, 2, 3})
	_ = b.Append([]float32{4, 5, 6})

	dst := make([]float32, 6)
	if err := b.ExtractInto(dst); err != nil {
		t.Fatalf("extract into: %v", err)
	}
	if want := []float32{1, 2, 3, 4, 5, 6}; !reflect.DeepEqual(dst, want) {
		t.Fatalf("dst = %v, want %v", dst, want)
	}
}

func TestStoreAndTrackerFromConstructors(t *testing.T) {
	s := newStore(6, 3)
	s.Append([]float32{1, 2, 3})
	s.Append([]float32{4, 5, 6})
	if s.Cursor() != 0 {
		t.Fatalf("cursor should wrap to 0, got %d", s.Cursor())
	}
	got := make([]float32, 6)
	s.Window(got)
	if want := []float32{1, 2, 3, 4, 5, 6}; !reflect.DeepEqual(got, want) {
		t.Fatalf("window = %v, want %v", got, want)
	}

	tr := newFillTracker(6)
	if tr.Ready() {
		t.Fatalf("fresh tracker must not be ready")
	}
	tr.Advance(3)
	tr.Advance(3)
	if !tr.Ready() {
		t.Fatalf("tracker should be ready after %d scalars", tr.Written())
	}
	tr.Reset()
	if tr.Ready() || tr.Written() != 0 {
		t.Fatalf("reset should re-arm: ready=%v written=%d", tr.Ready(), tr.Written())
	}
}
