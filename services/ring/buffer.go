// Package ring holds the sample window buffer: a fixed-capacity ring of
// channel-interleaved scalars plus the readiness latch that gates window
// extraction.
//
// A Buffer is owned by one polling loop. It does no locking; a host that
// shares it across goroutines must serialize Append, Reset and Extract.
package ring

import (
	"errors"
	"fmt"
)

var (
	ErrConfig       = errors.New("ring: invalid config")
	ErrSampleWidth  = errors.New("ring: sample width does not match channel count")
	ErrNotReady     = errors.New("ring: not enough history since reset")
	ErrWindowLength = errors.New("ring: window length not aligned or exceeds capacity")
)

// Config sizes a Buffer. Capacity and RequiredDepth are counted in scalars,
// not samples.
type Config struct {
	Channels      int
	Capacity      int
	RequiredDepth int
}

func (c Config) validate() error {
	switch {
	case c.Channels <= 0:
		return fmt.Errorf("%w: channels must be positive, got %d", ErrConfig, c.Channels)
	case c.Capacity <= 0:
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrConfig, c.Capacity)
	case c.Capacity%c.Channels != 0:
		return fmt.Errorf("%w: capacity %d is not a multiple of %d channels", ErrConfig, c.Capacity, c.Channels)
	case c.RequiredDepth <= 0:
		return fmt.Errorf("%w: required depth must be positive, got %d", ErrConfig, c.RequiredDepth)
	}
	return nil
}

// Buffer pairs a store with its fill tracker and is the only public face of
// the ring.
type Buffer struct {
	store   *store
	tracker *fillTracker
}

// New allocates a zeroed buffer with the cursor at 0 and readiness pending.
func New(cfg Config) (*Buffer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Buffer{
		store:   newStore(cfg.Capacity, cfg.Channels),
		tracker: newFillTracker(cfg.RequiredDepth),
	}, nil
}

// Append writes one sample and advances the readiness latch.
func (b *Buffer) Append(sample []float32) error {
	if len(sample) != b.store.channels {
		return fmt.Errorf("%w: got %d values, want %d", ErrSampleWidth, len(sample), b.store.channels)
	}
	b.store.Append(sample)
	b.tracker.Advance(b.store.channels)
	return nil
}

// Reset zero-fills the ring, rewinds the cursor and re-arms readiness.
func (b *Buffer) Reset() {
	b.store.Clear()
	b.tracker.Reset()
}

// Extract returns the most recent length scalars in chronological order.
// The returned slice does not alias the ring.
func (b *Buffer) Extract(length int) ([]float32, error) {
	if err := b.checkWindow(length); err != nil {
		return nil, err
	}
	out := make([]float32, length)
	b.store.Window(out)
	return out, nil
}

// ExtractInto fills dst with the most recent len(dst) scalars, the way a
// model input tensor is populated in place.
func (b *Buffer) ExtractInto(dst []float32) error {
	if err := b.checkWindow(len(dst)); err != nil {
		return err
	}
	b.store.Window(dst)
	return nil
}

func (b *Buffer) checkWindow(length int) error {
	if length <= 0 || length > b.store.Capacity() || length%b.store.channels != 0 {
		return fmt.Errorf("%w: length=%d capacity=%d channels=%d",
			ErrWindowLength, length, b.store.Capacity(), b.store.channels)
	}
	if !b.tracker.Ready() {
		return ErrNotReady
	}
	return nil
}

func (b *Buffer) Ready() bool        { return b.tracker.Ready() }
func (b *Buffer) Cursor() int        { return b.store.Cursor() }
func (b *Buffer) Written() int       { return b.tracker.Written() }
func (b *Buffer) RequiredDepth() int { return b.tracker.Required() }
func (b *Buffer) Capacity() int      { return b.store.Capacity() }
func (b *Buffer) Channels() int      { return b.store.Channels() }

// Snapshot returns a copy of the physical ring, in storage order.
func (b *Buffer) Snapshot() []float32 {
	return append([]float32(nil), b.store.data...)
}
