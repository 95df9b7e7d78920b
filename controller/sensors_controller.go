package controller

import (
	"context"
	"time"

	"imu-window/services/ingest"
	"imu-window/services/ring"
	"imu-window/utils"
)

// SensorsController owns the sensor source selected by the config and the
// lifecycle of any producer goroutine behind it.
type SensorsController struct {
	cfg *utils.Config

	sim    *ingest.SimIMU
	fifo   *ingest.FIFOReader
	replay *ingest.ReplayReader

	// Source is a SampleSource in single mode and a QueueSource in burst mode.
	Source any
}

// NewSensorsController creates the reader for the configured source.
func NewSensorsController(cfg *utils.Config) (*SensorsController, error) {
	sc := &SensorsController{cfg: cfg}
	s := cfg.Sensor

	switch s.Source {
	case utils.SourceReplay:
		// release roughly one poll interval of samples per drain
		batch := s.UpdateRateHz * cfg.PollIntervalMs() / 1000
		r, err := ingest.LoadReplay(s.ReplayPath, s.Channels, max(batch, 1))
		if err != nil {
			return nil, err
		}
		sc.replay = r
		sc.Source = r
		utils.L().Info("replay source loaded   (path=%s, samples=%d)", s.ReplayPath, r.Len())
	default:
		sc.sim = ingest.NewSimIMU(s.Channels, time.Now().UnixNano())
		if s.Mode == utils.ProfileBurst {
			sc.fifo = ingest.NewFIFOReader(sc.sim, s.UpdateRateHz, s.QueueDepth)
			sc.Source = sc.fifo
		} else {
			sc.Source = sc.sim
		}
	}
	return sc, nil
}

// NewAdapter builds the ring buffer and the ingest adapter that feeds it.
func (sc *SensorsController) NewAdapter() (*ring.Buffer, *ingest.Adapter, error) {
	s, w := sc.cfg.Sensor, sc.cfg.Window
	buf, err := ring.New(ring.Config{
		Channels:      s.Channels,
		Capacity:      w.Capacity,
		RequiredDepth: w.RequiredDepth,
	})
	if err != nil {
		return nil, nil, utils.Wrap(utils.CodeConfig, err, "ring buffer")
	}
	mode, err := ingest.ParseMode(s.Mode)
	if err != nil {
		return nil, nil, err
	}
	a, err := ingest.NewAdapter(buf, sc.Source, ingest.Options{
		Mode:          mode,
		DecimateEvery: s.DecimateEvery,
		Scale:         float32(s.UnitScale),
	})
	if err != nil {
		return nil, nil, err
	}
	return buf, a, nil
}

// Start launches the FIFO producer when the source has one.
func (sc *SensorsController) Start(ctx context.Context) {
	if sc.fifo != nil {
		sc.fifo.Start(ctx)
	}
	utils.L().Info("sensors controller: source=%s mode=%s channels=%d",
		sc.cfg.Sensor.Source, sc.cfg.Sensor.Mode, sc.cfg.Sensor.Channels)
}

// Exhausted reports whether a replay source has nothing left to give.
// Live sources never run out.
func (sc *SensorsController) Exhausted() bool {
	return sc.replay != nil && sc.replay.Done()
}

// LogStats prints producer counters for the active source.
func (sc *SensorsController) LogStats() {
	if sc.fifo != nil {
		p, d := sc.fifo.Stats()
		utils.L().Info("  imu fifo produced=%d  dropped=%d", p, d)
	}
	if sc.replay != nil {
		utils.L().Info("  replay   samples=%d  done=%v", sc.replay.Len(), sc.replay.Done())
	}
}
