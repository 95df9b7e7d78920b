package utils

import (
	"fmt"
	"time"
)

// NowNano returns the current wall-clock time as nanoseconds since the Unix
// epoch so sample timestamps stay comparable across processes.
func NowNano() int64 {
	return time.Now().UnixNano()
}

// FormatTimestamp renders a ns-epoch timestamp for status lines.
func FormatTimestamp(ns int64) string {
	return time.Unix(0, ns).Format("15:04:05.000")
}

// SessionName returns a session directory name:
//
//	<prefix>_YYYYMMDD_HHMMSS
func SessionName(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, time.Now().Format("20060102_150405"))
}

// IntervalFromHz converts a sample rate into a ticker period. Non-positive
// rates fall back to the 25 Hz the IMU is configured for.
func IntervalFromHz(hz int) time.Duration {
	if hz <= 0 {
		hz = 25
	}
	return time.Second / time.Duration(hz)
}
