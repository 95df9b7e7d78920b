package ingest

import (
	"context"

	"imu-window/models"
)

// SampleSource yields the sensor's current reading synchronously.
type SampleSource interface {
	ReadSample(ctx context.Context) (models.Sample, error)
}

// QueueSource exposes a FIFO of readings the sensor has queued since the
// last drain. Next must return samples oldest first.
type QueueSource interface {
	Pending(ctx context.Context) (int, error)
	Next(ctx context.Context) (models.Sample, error)
}
