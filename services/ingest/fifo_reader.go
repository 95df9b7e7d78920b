package ingest

import (
	"context"
	"sync/atomic"
	"time"

	"imu-window/models"
	"imu-window/utils"
)

// FIFOReader simulates the IMU's hardware FIFO: a producer goroutine pushes
// samples at a fixed rate into a bounded queue, and the ingest adapter
// drains whatever has accumulated each cycle. When the queue is full new
// samples are dropped, as the sensor does on overflow.
type FIFOReader struct {
	sim      *SimIMU
	rateHz   int
	queue    chan models.Sample
	dropped  uint64
	produced uint64
}

func NewFIFOReader(sim *SimIMU, rateHz, depth int) *FIFOReader {
	if depth <= 0 {
		depth = 512
	}
	return &FIFOReader{
		sim:    sim,
		rateHz: rateHz,
		queue:  make(chan models.Sample, depth),
	}
}

// Start launches the producer. It stops when ctx is cancelled.
func (r *FIFOReader) Start(ctx context.Context) {
	go r.run(ctx)
	utils.L().Info("imu fifo started       (rate=%dHz, depth=%d)", r.rateHz, cap(r.queue))
}

func (r *FIFOReader) run(ctx context.Context) {
	ticker := time.NewTicker(utils.IntervalFromHz(r.rateHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			utils.L().Info("imu fifo stopped       (produced=%d, dropped=%d)",
				atomic.LoadUint64(&r.produced), atomic.LoadUint64(&r.dropped))
			return
		case <-ticker.C:
			r.push(r.sim.next())
		}
	}
}

func (r *FIFOReader) push(s models.Sample) {
	select {
	case r.queue <- s:
		atomic.AddUint64(&r.produced, 1)
	default:
		atomic.AddUint64(&r.dropped, 1)
	}
}

// Pending implements QueueSource.
func (r *FIFOReader) Pending(ctx context.Context) (int, error) {
	return len(r.queue), ctx.Err()
}

// Next implements QueueSource. The adapter only calls it for samples that
// Pending reported, so the receive does not block in practice.
func (r *FIFOReader) Next(ctx context.Context) (models.Sample, error) {
	select {
	case <-ctx.Done():
		return models.Sample{}, ctx.Err()
	case s := <-r.queue:
		return s, nil
	}
}

func (r *FIFOReader) Stats() (uint64, uint64) {
	return atomic.LoadUint64(&r.produced), atomic.LoadUint64(&r.dropped)
}
