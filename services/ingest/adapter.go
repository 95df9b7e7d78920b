package ingest

import (
	"context"
	"fmt"

	"imu-window/models"
	"imu-window/services/ring"
	"imu-window/utils"
)

// Mode selects how many samples one Ingest call pulls.
type Mode int

const (
	// ModeSingle reads exactly one sample per call.
	ModeSingle Mode = iota
	// ModeBurst drains every queued sample per call.
	ModeBurst
)

func (m Mode) String() string {
	if m == ModeBurst {
		return utils.ProfileBurst
	}
	return utils.ProfileSingle
}

// ParseMode maps a config mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case utils.ProfileSingle:
		return ModeSingle, nil
	case utils.ProfileBurst:
		return ModeBurst, nil
	}
	return ModeSingle, utils.NewError(utils.CodeConfig, "unknown ingest mode %q", s)
}

// Options tune an Adapter.
type Options struct {
	Mode Mode
	// DecimateEvery forwards one of every N samples; 0 or 1 forwards all.
	DecimateEvery int
	// Scale multiplies every channel before buffering; 0 means 1.
	Scale float32
}

// Stats counts what an Adapter has seen since construction.
type Stats struct {
	Read     uint64
	Appended uint64
	Skipped  uint64
}

// Adapter pulls samples from a sensor source into a ring.Buffer and reports
// whether a window can be extracted.
type Adapter struct {
	buf    *ring.Buffer
	opts   Options
	single SampleSource
	queue  QueueSource

	skipCounter int
	scratch     []float32
	stats       Stats
}

// NewAdapter binds src to buf. Single mode needs a SampleSource, burst mode
// a QueueSource.
func NewAdapter(buf *ring.Buffer, src any, opts Options) (*Adapter, error) {
	a := &Adapter{
		buf:         buf,
		opts:        opts,
		skipCounter: 1,
		scratch:     make([]float32, buf.Channels()),
	}
	if a.opts.Scale == 0 {
		a.opts.Scale = 1
	}

	switch opts.Mode {
	case ModeSingle:
		s, ok := src.(SampleSource)
		if !ok {
			return nil, utils.NewError(utils.CodeConfig, "single mode needs a SampleSource, got %T", src)
		}
		a.single = s
	case ModeBurst:
		q, ok := src.(QueueSource)
		if !ok {
			return nil, utils.NewError(utils.CodeConfig, "burst mode needs a QueueSource, got %T", src)
		}
		a.queue = q
	default:
		return nil, utils.NewError(utils.CodeConfig, "unknown ingest mode %d", opts.Mode)
	}
	return a, nil
}

// Ingest optionally resets the buffer, then pulls this cycle's samples.
// It returns true when a window is available. In burst mode an empty queue
// is a no-op that returns false.
func (a *Adapter) Ingest(ctx context.Context, reset bool) (bool, error) {
	// Reset before reading so a fresh buffer never mixes in a stale sample.
	if reset {
		a.buf.Reset()
	}

	if a.opts.Mode == ModeSingle {
		s, err := a.single.ReadSample(ctx)
		if err != nil {
			return false, utils.Wrap(utils.CodeSensor, err, "read sample")
		}
		if err := a.forward(s); err != nil {
			return false, err
		}
		return a.buf.Ready(), nil
	}

	n, err := a.queue.Pending(ctx)
	if err != nil {
		return false, utils.Wrap(utils.CodeSensor, err, "query queue")
	}
	if n <= 0 {
		return false, nil
	}
	for i := 0; i < n; i++ {
		s, err := a.queue.Next(ctx)
		if err != nil {
			return false, utils.Wrap(utils.CodeSensor, err, "drain sample %d/%d", i+1, n)
		}
		if err := a.forward(s); err != nil {
			return false, err
		}
	}
	return a.buf.Ready(), nil
}

// forward applies decimation and unit scaling, then appends.
func (a *Adapter) forward(s models.Sample) error {
	a.stats.Read++
	if every := a.opts.DecimateEvery; every > 1 {
		if a.skipCounter != every {
			a.skipCounter++
			a.stats.Skipped++
			return nil
		}
		a.skipCounter = 1
	}

	if len(s.Values) != len(a.scratch) {
		return utils.Wrap(utils.CodeSensor, ring.ErrSampleWidth,
			"sample %d has %d channels", s.Seq, len(s.Values))
	}
	for i, v := range s.Values {
		a.scratch[i] = v * a.opts.Scale
	}
	if err := a.buf.Append(a.scratch); err != nil {
		return fmt.Errorf("append sample %d: %w", s.Seq, err)
	}
	a.stats.Appended++
	return nil
}

// Stats returns the adapter's counters.
func (a *Adapter) Stats() Stats { return a.stats }

// Mode returns the configured ingest mode.
func (a *Adapter) Mode() Mode { return a.opts.Mode }
