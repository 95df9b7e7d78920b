package controller

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"imu-window/models"
	"imu-window/services/ingest"
	"imu-window/services/ring"
	"imu-window/utils"
)

// Consumer receives every extracted window. Returning true marks the window
// as used, which makes the next cycle start from a cleared buffer so the
// same motion is not handed out twice.
type Consumer interface {
	Consume(w *models.Window) bool
}

// ConsumerFunc adapts a plain function to Consumer.
type ConsumerFunc func(w *models.Window) bool

func (f ConsumerFunc) Consume(w *models.Window) bool { return f(w) }

// Observer is called once per cycle with a status snapshot.
type Observer func(models.CycleStatus)

// WindowController is the polling loop: one ingest per cycle, and a window
// extraction whenever the buffer reports ready.
//
// Cycles run on a single goroutine; the buffer and adapter are never touched
// from anywhere else. Counters are atomic so LogStats can read them from
// the main loop.
type WindowController struct {
	buf       *ring.Buffer
	adapter   *ingest.Adapter
	consumers []Consumer
	length    int
	interval  time.Duration
	maxWin    uint64

	reporter  utils.Reporter
	observer  Observer
	exhausted func() bool

	resetNext bool
	cycles    uint64
	windows   uint64
	errors    uint64
}

// NewWindowController wires a buffer and its adapter to the consumers.
func NewWindowController(cfg *utils.Config, buf *ring.Buffer, adapter *ingest.Adapter, consumers ...Consumer) *WindowController {
	return &WindowController{
		buf:       buf,
		adapter:   adapter,
		consumers: consumers,
		length:    cfg.Window.Length,
		interval:  time.Duration(cfg.PollIntervalMs()) * time.Millisecond,
		maxWin:    uint64(max(cfg.Poll.MaxWindows, 0)),
		reporter:  utils.L(),
	}
}

func (wc *WindowController) SetReporter(r utils.Reporter) { wc.reporter = r }
func (wc *WindowController) SetObserver(o Observer)       { wc.observer = o }

// SetExhausted installs a check that ends Run once the source is drained.
func (wc *WindowController) SetExhausted(f func() bool) { wc.exhausted = f }

// Step runs exactly one cycle.
func (wc *WindowController) Step(ctx context.Context) (models.CycleStatus, error) {
	cycle := atomic.AddUint64(&wc.cycles, 1)
	reset := wc.resetNext
	wc.resetNext = false

	ready, err := wc.adapter.Ingest(ctx, reset)
	status := wc.status(cycle, ready, reset)
	if err != nil {
		status.Errors = atomic.AddUint64(&wc.errors, 1)
		wc.notify(status)
		return status, err
	}
	if !ready {
		wc.notify(status)
		return status, nil
	}

	values, err := wc.buf.Extract(wc.length)
	if err != nil {
		status.Errors = atomic.AddUint64(&wc.errors, 1)
		wc.notify(status)
		return status, utils.Wrap(utils.CodeWindow, err, "extract %d scalars", wc.length)
	}
	w := &models.Window{
		ID:          uuid.NewString(),
		TimestampNs: utils.NowNano(),
		Cycle:       cycle,
		Cursor:      wc.buf.Cursor(),
		Channels:    wc.buf.Channels(),
		Values:      values,
	}
	status.Window = w
	status.Windows = atomic.AddUint64(&wc.windows, 1)

	used := false
	for _, c := range wc.consumers {
		if c.Consume(w) {
			used = true
		}
	}
	wc.resetNext = used

	wc.notify(status)
	return status, nil
}

func (wc *WindowController) status(cycle uint64, ready, reset bool) models.CycleStatus {
	return models.CycleStatus{
		Cycle:       cycle,
		TimestampNs: utils.NowNano(),
		Ready:       ready,
		Cursor:      wc.buf.Cursor(),
		Written:     wc.buf.Written(),
		Required:    wc.buf.RequiredDepth(),
		Capacity:    wc.buf.Capacity(),
		Ingested:    wc.adapter.Stats().Appended,
		Windows:     atomic.LoadUint64(&wc.windows),
		Errors:      atomic.LoadUint64(&wc.errors),
		Reset:       reset,
	}
}

func (wc *WindowController) notify(s models.CycleStatus) {
	if wc.observer != nil {
		wc.observer(s)
	}
}

// Run polls until ctx is cancelled, max_windows windows have been emitted,
// or the source is exhausted. A failed cycle is reported and the loop moves
// on; the next cycle is the retry.
func (wc *WindowController) Run(ctx context.Context) {
	ticker := time.NewTicker(wc.interval)
	defer ticker.Stop()

	utils.L().Info("window controller started (interval=%v, length=%d, mode=%s)",
		wc.interval, wc.length, wc.adapter.Mode())

	for {
		select {
		case <-ctx.Done():
			utils.L().Info("window controller stopped (cycles=%d, windows=%d)", wc.Cycles(), wc.Windows())
			return
		case <-ticker.C:
			if wc.exhausted != nil && wc.exhausted() {
				utils.L().Info("window controller: source exhausted after %d cycles", wc.Cycles())
				return
			}
			if _, err := wc.Step(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}
				wc.reporter.Report("cycle %d: %v", wc.Cycles(), err)
			}
			if wc.maxWin > 0 && wc.Windows() >= wc.maxWin {
				utils.L().Info("window controller: reached max_windows=%d", wc.maxWin)
				return
			}
		}
	}
}

func (wc *WindowController) Cycles() uint64  { return atomic.LoadUint64(&wc.cycles) }
func (wc *WindowController) Windows() uint64 { return atomic.LoadUint64(&wc.windows) }
func (wc *WindowController) Errors() uint64  { return atomic.LoadUint64(&wc.errors) }
