package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"imu-window/models"
	"imu-window/utils"
)

// ReplayReader plays back a recorded gesture CSV. Each row is one sample:
// an optional leading timestamp_ns column followed by at least `channels`
// numeric columns. A non-numeric first row is treated as a header.
//
// As a QueueSource it releases up to batch samples per Pending call so a
// recording drains over several cycles the way a live FIFO would.
type ReplayReader struct {
	mu       sync.Mutex
	samples  []models.Sample
	pos      int
	released int
	batch    int
}

// LoadReplay parses path into memory.
func LoadReplay(path string, channels, batch int) (*ReplayReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.Wrap(utils.CodeSensor, err, "open replay")
	}
	defer f.Close()
	return NewReplayReader(f, channels, batch)
}

// NewReplayReader parses CSV rows from r.
func NewReplayReader(r io.Reader, channels, batch int) (*ReplayReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, utils.Wrap(utils.CodeSensor, err, "parse replay")
	}

	hasTimestamp := false
	if len(rows) > 0 && !isNumeric(rows[0][0]) {
		hasTimestamp = strings.EqualFold(strings.TrimSpace(rows[0][0]), "timestamp_ns")
		rows = rows[1:]
	}

	samples := make([]models.Sample, 0, len(rows))
	for i, row := range rows {
		s, err := parseReplayRow(row, channels, hasTimestamp)
		if err != nil {
			return nil, utils.Wrap(utils.CodeSensor, err, "replay row %d", i+1)
		}
		s.Seq = uint64(i + 1)
		samples = append(samples, s)
	}
	if batch <= 0 {
		batch = 1
	}
	return &ReplayReader{samples: samples, batch: batch}, nil
}

func parseReplayRow(row []string, channels int, hasTimestamp bool) (models.Sample, error) {
	var s models.Sample
	cols := row
	if hasTimestamp {
		if len(cols) == 0 {
			return s, errors.New("empty row")
		}
		ts, err := strconv.ParseInt(strings.TrimSpace(cols[0]), 10, 64)
		if err != nil {
			return s, err
		}
		s.TimestampNs = ts
		cols = cols[1:]
	}
	if len(cols) < channels {
		return s, fmt.Errorf("row has %d values, want %d", len(cols), channels)
	}
	s.Values = make([]float32, channels)
	for i := 0; i < channels; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(cols[i]), 32)
		if err != nil {
			return s, err
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return s, fmt.Errorf("column %d is not finite: %q", i+1, cols[i])
		}
		s.Values[i] = float32(v)
	}
	return s, nil
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

// ReadSample implements SampleSource. It returns io.EOF once the recording
// is exhausted.
func (r *ReplayReader) ReadSample(ctx context.Context) (models.Sample, error) {
	if err := ctx.Err(); err != nil {
		return models.Sample{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pos >= len(r.samples) {
		return models.Sample{}, io.EOF
	}
	s := r.samples[r.pos]
	r.pos++
	return s, nil
}

// Pending implements QueueSource.
func (r *ReplayReader) Pending(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released <= r.pos {
		r.released = min(r.pos+r.batch, len(r.samples))
	}
	return r.released - r.pos, nil
}

// Next implements QueueSource.
func (r *ReplayReader) Next(ctx context.Context) (models.Sample, error) {
	return r.ReadSample(ctx)
}

// Done reports whether every recorded sample has been handed out.
func (r *ReplayReader) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos >= len(r.samples)
}

// Len returns the number of recorded samples.
func (r *ReplayReader) Len() int { return len(r.samples) }
