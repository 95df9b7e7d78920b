package controller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"imu-window/models"
	"imu-window/services/ingest"
	"imu-window/services/ring"
	"imu-window/utils"
	"imu-window/views"
)

// countingSource yields samples whose channels all equal the sequence id.
type countingSource struct {
	channels int
	seq      uint64
	failOn   uint64
}

func (c *countingSource) ReadSample(ctx context.Context) (models.Sample, error) {
	c.seq++
	if c.seq == c.failOn {
		return models.Sample{}, errors.New("i2c timeout")
	}
	vals := make([]float32, c.channels)
	for i := range vals {
		vals[i] = float32(c.seq)
	}
	return models.Sample{Seq: c.seq, Values: vals}, nil
}

type recordingReporter struct {
	mu    sync.Mutex
	lines []string
}

func (r *recordingReporter) Report(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, format)
}

func testConfig(t *testing.T) *utils.Config {
	t.Helper()
	cfg, err := utils.Defaults(utils.ProfileSingle)
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	cfg.Window = utils.WindowConfig{Capacity: 12, RequiredDepth: 6, Length: 6}
	cfg.Sensor.UnitScale = 1
	cfg.Poll.IntervalMs = 1
	return cfg
}

func newController(t *testing.T, cfg *utils.Config, src ingest.SampleSource, consumers ...Consumer) (*WindowController, *ring.Buffer) {
	t.Helper()
	buf, err := ring.New(ring.Config{
		Channels: cfg.Sensor.Channels, Capacity: cfg.Window.Capacity, RequiredDepth: cfg.Window.RequiredDepth,
	})
	if err != nil {
		t.Fatalf("ring: %v", err)
	}
	a, err := ingest.NewAdapter(buf, src, ingest.Options{Mode: ingest.ModeSingle, Scale: 1})
	if err != nil {
		t.Fatalf("adapter: %v", err)
	}
	return NewWindowController(cfg, buf, a, consumers...), buf
}

func TestStepExtractsOnceReady(t *testing.T) {
	cfg := testConfig(t)
	var got []*models.Window
	keep := ConsumerFunc(func(w *models.Window) bool { got = append(got, w); return false })
	wc, _ := newController(t, cfg, &countingSource{channels: 3}, keep)
	ctx := context.Background()

	st, err := wc.Step(ctx)
	if err != nil || st.Ready || st.Window != nil {
		t.Fatalf("first step: %+v err=%v", st, err)
	}
	st, err = wc.Step(ctx)
	if err != nil || !st.Ready || st.Window == nil {
		t.Fatalf("second step: %+v err=%v", st, err)
	}
	if want := []float32{1, 1, 1, 2, 2, 2}; !reflect.DeepEqual(st.Window.Values, want) {
		t.Fatalf("window = %v, want %v", st.Window.Values, want)
	}
	if st.Window.ID == "" || st.Window.Cycle != 2 || st.Window.Channels != 3 {
		t.Fatalf("window metadata = %+v", st.Window)
	}

	// nobody used the window, so readiness stays latched
	st, _ = wc.Step(ctx)
	if !st.Ready || st.Reset {
		t.Fatalf("third step: %+v", st)
	}
	if len(got) != 2 || wc.Windows() != 2 {
		t.Fatalf("consumed %d windows, counter %d", len(got), wc.Windows())
	}
}

func TestUsedWindowResetsNextCycle(t *testing.T) {
	cfg := testConfig(t)
	used := ConsumerFunc(func(w *models.Window) bool { return true })
	wc, buf := newController(t, cfg, &countingSource{channels: 3}, used)
	ctx := context.Background()

	_, _ = wc.Step(ctx)
	st, _ := wc.Step(ctx)
	if st.Window == nil {
		t.Fatalf("expected a window on cycle 2")
	}

	st, _ = wc.Step(ctx)
	if !st.Reset || st.Ready || st.Window != nil {
		t.Fatalf("cycle after use should reset and refill: %+v", st)
	}
	if buf.Written() != 3 {
		t.Fatalf("written = %d after reset, want 3", buf.Written())
	}
	st, _ = wc.Step(ctx)
	if st.Window == nil {
		t.Fatalf("expected a fresh window after refilling")
	}
	if want := []float32{3, 3, 3, 4, 4, 4}; !reflect.DeepEqual(st.Window.Values, want) {
		t.Fatalf("fresh window = %v, want %v (no pre-reset data)", st.Window.Values, want)
	}
}

func TestStepReportsSensorError(t *testing.T) {
	cfg := testConfig(t)
	wc, _ := newController(t, cfg, &countingSource{channels: 3, failOn: 1})

	st, err := wc.Step(context.Background())
	if !utils.IsCode(err, utils.CodeSensor) {
		t.Fatalf("expected sensor error, got %v", err)
	}
	if st.Errors != 1 || wc.Errors() != 1 {
		t.Fatalf("errors = %d/%d", st.Errors, wc.Errors())
	}
}

func TestObserverSeesEveryCycle(t *testing.T) {
	cfg := testConfig(t)
	wc, _ := newController(t, cfg, &countingSource{channels: 3})
	var cycles []uint64
	wc.SetObserver(func(s models.CycleStatus) { cycles = append(cycles, s.Cycle) })

	for i := 0; i < 3; i++ {
		_, _ = wc.Step(context.Background())
	}
	if !reflect.DeepEqual(cycles, []uint64{1, 2, 3}) {
		t.Fatalf("observed cycles %v", cycles)
	}
}

func TestRunStopsAtMaxWindows(t *testing.T) {
	cfg := testConfig(t)
	cfg.Poll.MaxWindows = 3
	wc, _ := newController(t, cfg, &countingSource{channels: 3, failOn: 2})
	rep := &recordingReporter{}
	wc.SetReporter(rep)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wc.Run(ctx)

	if ctx.Err() != nil {
		t.Fatalf("run hit the timeout instead of max_windows")
	}
	if wc.Windows() != 3 {
		t.Fatalf("windows = %d, want 3", wc.Windows())
	}
	rep.mu.Lock()
	defer rep.mu.Unlock()
	if len(rep.lines) != 1 {
		t.Fatalf("reported %d failures, want 1", len(rep.lines))
	}
}

func TestRunStopsWhenExhausted(t *testing.T) {
	cfg := testConfig(t)
	wc, _ := newController(t, cfg, &countingSource{channels: 3})
	calls := 0
	wc.SetExhausted(func() bool { calls++; return calls > 4 })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wc.Run(ctx)

	if wc.Cycles() != 4 {
		t.Fatalf("cycles = %d, want 4", wc.Cycles())
	}
}

func TestReplayPipelineRecordsWindows(t *testing.T) {
	dir := t.TempDir()
	var rows strings.Builder
	rows.WriteString("timestamp_ns,accel_x,accel_y,accel_z,gyro_x,gyro_y,gyro_z\n")
	for i := 1; i <= 40; i++ {
		rows.WriteString(strconv.Itoa(i*1000) + ",0.1,0.2,0.3,0.4,0.5,0.6\n")
	}
	replay := filepath.Join(dir, "gesture_3.csv")
	if err := os.WriteFile(replay, []byte(rows.String()), 0644); err != nil {
		t.Fatalf("write replay: %v", err)
	}

	cfg, _ := utils.Defaults(utils.ProfileBurst)
	cfg.Sensor.Source = utils.SourceReplay
	cfg.Sensor.ReplayPath = replay
	cfg.Window = utils.WindowConfig{Capacity: 60, RequiredDepth: 36, Length: 36}
	cfg.Poll.IntervalMs = 1
	cfg.Storage.BaseDir = filepath.Join(dir, "out")
	cfg.Storage.Label = "3"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	sensors, err := NewSensorsController(cfg)
	if err != nil {
		t.Fatalf("sensors: %v", err)
	}
	buf, adapter, err := sensors.NewAdapter()
	if err != nil {
		t.Fatalf("adapter: %v", err)
	}
	rec, err := NewRecordingController(cfg)
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rec.Start(ctx)

	wc := NewWindowController(cfg, buf, adapter, rec)
	wc.SetExhausted(sensors.Exhausted)
	wc.Run(ctx)
	cancel()
	rec.Stop()

	if ctx.Err() == context.DeadlineExceeded {
		t.Fatalf("replay never exhausted")
	}
	if rec.WindowsWritten() == 0 || rec.WindowsWritten() != wc.Windows() {
		t.Fatalf("recorded %d windows, controller emitted %d", rec.WindowsWritten(), wc.Windows())
	}

	data, err := os.ReadFile(filepath.Join(rec.SessionDir(), "windows.csv"))
	if err != nil {
		t.Fatalf("read windows.csv: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); uint64(lines) != rec.WindowsWritten()+1 {
		t.Fatalf("windows.csv has %d lines for %d windows", lines, rec.WindowsWritten())
	}
	matches, _ := filepath.Glob(filepath.Join(rec.SessionDir(), "window_*_3.csv"))
	if uint64(len(matches)) != rec.WindowsWritten() {
		t.Fatalf("found %d per-window files, want %d", len(matches), rec.WindowsWritten())
	}

	// recorded windows replay as sources and feed the dataset stats
	back, err := ingest.LoadReplay(matches[0], 6, 1)
	if err != nil {
		t.Fatalf("replay recorded window: %v", err)
	}
	if back.Len() != 6 {
		t.Fatalf("recorded window replays %d samples, want 6", back.Len())
	}
	s, err := back.ReadSample(context.Background())
	if err != nil {
		t.Fatalf("read recorded sample: %v", err)
	}
	if want := []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6}; !reflect.DeepEqual(s.Values, want) {
		t.Fatalf("recorded sample = %v, want %v", s.Values, want)
	}

	stats, err := views.DatasetStats(rec.SessionDir())
	if err != nil {
		t.Fatalf("dataset stats: %v", err)
	}
	var label *views.LabelStats
	for i := range stats {
		if stats[i].Label == "3" {
			label = &stats[i]
		}
	}
	if label == nil || uint64(label.Files) != rec.WindowsWritten() || label.AverageLines() != 7 {
		t.Fatalf("label 3 stats = %+v, want %d files of 7 lines", label, rec.WindowsWritten())
	}
}

func TestConsumeWritesWindowFileBeforeReturning(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.BaseDir = t.TempDir()
	cfg.Storage.Label = "wave"
	rec, err := NewRecordingController(cfg)
	if err != nil {
		t.Fatalf("recorder: %v", err)
	}
	defer rec.Stop()

	w := &models.Window{Cycle: 7, Channels: 3, Values: []float32{1, 2, 3, 4, 5, 6}}
	if !rec.Consume(w) {
		t.Fatalf("reset_after_write should mark the window used")
	}
	data, err := os.ReadFile(filepath.Join(rec.SessionDir(), "window_000007_wave.csv"))
	if err != nil {
		t.Fatalf("per-window file missing right after Consume: %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 3 {
		t.Fatalf("per-window file has %d lines, want header + 2 samples", got)
	}
}
