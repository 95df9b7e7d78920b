package controller

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"imu-window/models"
	"imu-window/utils"
	"imu-window/views"
)

// RecordingController is a Consumer that persists extracted windows into a
// session directory:
//   - windows.csv, one flattened row per window
//   - window_<cycle>_<label>.csv, one sample per row, when per_window_files
//     is set. These files replay through the replay source and feed the
//     stats command.
//
// windows.csv rows go through a buffered CSVWriter flushed on a ticker.
// Per-window files are created and closed inside Consume, on the polling
// goroutine, so each one is complete on disk by the time Consume returns.
type RecordingController struct {
	storage    utils.StorageConfig
	sessionDir string

	windowsWriter *views.CSVWriter

	windowsWritten uint64
	wg             sync.WaitGroup
}

// NewRecordingController creates the session directory and windows.csv.
func NewRecordingController(cfg *utils.Config) (*RecordingController, error) {
	st := cfg.Storage
	sessionDir := filepath.Join(st.BaseDir, utils.SessionName(st.SessionPrefix))

	if !st.Overwrite {
		if _, err := os.Stat(sessionDir); err == nil {
			return nil, utils.NewError(utils.CodeStorage, "session dir %s already exists (overwrite=false)", sessionDir)
		}
	}
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return nil, utils.Wrap(utils.CodeStorage, err, "create session dir")
	}

	w, err := views.NewCSVWriter(
		filepath.Join(sessionDir, "windows.csv"), st.CSV.BufferSizeKB*1024, st.CSV.WriteHeader,
		models.Window{}.CSVHeader(),
	)
	if err != nil {
		return nil, utils.Wrap(utils.CodeStorage, err, "open windows.csv")
	}

	utils.L().Info("recording controller ready  session=%s", sessionDir)
	return &RecordingController{
		storage:       st,
		sessionDir:    sessionDir,
		windowsWriter: w,
	}, nil
}

// Start runs the periodic flusher until ctx is cancelled.
func (rc *RecordingController) Start(ctx context.Context) {
	rc.wg.Add(1)
	go func() {
		defer rc.wg.Done()
		flushMs := rc.storage.CSV.FlushIntervalMs
		if flushMs <= 0 {
			flushMs = 100
		}
		ticker := time.NewTicker(time.Duration(flushMs) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				rc.flush()
				return
			case <-ticker.C:
				rc.flush()
			}
		}
	}()
	utils.L().Info("recording controller started")
}

func (rc *RecordingController) flush() {
	if err := rc.windowsWriter.Flush(); err != nil {
		utils.L().Error("flush windows.csv: %v", err)
	}
}

// Consume implements Consumer.
func (rc *RecordingController) Consume(w *models.Window) bool {
	rc.windowsWriter.WriteRow(w.CSVRow())
	if rc.storage.PerWindowFiles {
		if err := rc.writeWindowFile(w); err != nil {
			utils.L().Error("save window %d: %v", w.Cycle, err)
		}
	}
	atomic.AddUint64(&rc.windowsWritten, 1)
	return rc.storage.ResetAfterWrite
}

func (rc *RecordingController) writeWindowFile(w *models.Window) error {
	name := fmt.Sprintf("window_%06d_%s.csv", w.Cycle, rc.storage.Label)
	fw, err := views.NewCSVWriter(filepath.Join(rc.sessionDir, name), 0, true, models.ChannelNames(w.Channels))
	if err != nil {
		return err
	}
	for i := 0; i < w.Samples(); i++ {
		s := models.Sample{Values: w.Values[i*w.Channels : (i+1)*w.Channels]}
		fw.WriteRow(s.CSVRow()[1:])
	}
	return fw.Close()
}

// Stop waits for the flusher, then flushes and closes windows.csv.
func (rc *RecordingController) Stop() {
	rc.wg.Wait()
	if err := rc.windowsWriter.Close(); err != nil {
		utils.L().Error("close windows.csv: %v", err)
	}
	utils.L().Info("recording controller stopped  (windows_written=%d, session=%s)",
		rc.WindowsWritten(), rc.sessionDir)
}

// SessionDir returns the path to the active session directory.
func (rc *RecordingController) SessionDir() string {
	return rc.sessionDir
}

// WindowsWritten returns the number of windows persisted.
func (rc *RecordingController) WindowsWritten() uint64 {
	return atomic.LoadUint64(&rc.windowsWritten)
}
