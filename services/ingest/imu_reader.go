package ingest

import (
	"context"
	"math"
	"math/rand"
	"sync"

	"imu-window/models"
	"imu-window/utils"
)

// SimIMU synthesizes accelerometer (3 ch) or accelerometer+gyroscope (6 ch)
// readings in g and rad/s: a slow wrist-like oscillation with noise on top
// of gravity on Z.
type SimIMU struct {
	mu       sync.Mutex
	channels int
	rng      *rand.Rand
	step     float64
	seq      uint64
}

// NewSimIMU creates a simulator. A fixed seed gives a reproducible stream.
func NewSimIMU(channels int, seed int64) *SimIMU {
	return &SimIMU{
		channels: channels,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// ReadSample implements SampleSource.
func (s *SimIMU) ReadSample(ctx context.Context) (models.Sample, error) {
	if err := ctx.Err(); err != nil {
		return models.Sample{}, err
	}
	return s.next(), nil
}

func (s *SimIMU) next() models.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.step
	s.step += 0.04
	s.seq++

	vals := make([]float32, s.channels)
	vals[0] = float32(0.35*math.Sin(st*2) + s.rng.Float64()*0.01)
	vals[1] = float32(0.25*math.Cos(st*3) + s.rng.Float64()*0.01)
	vals[2] = float32(1.0 + 0.1*math.Sin(st) + s.rng.Float64()*0.01)
	if s.channels >= 6 {
		vals[3] = float32(0.8*math.Sin(st*4) + s.rng.Float64()*0.005)
		vals[4] = float32(0.6*math.Cos(st*4) + s.rng.Float64()*0.005)
		vals[5] = float32(0.05 + s.rng.Float64()*0.002)
	}
	return models.Sample{
		Seq:         s.seq,
		TimestampNs: utils.NowNano(),
		Values:      vals,
	}
}
