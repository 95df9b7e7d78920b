package models

// Channel layouts produced by the IMU.
var (
	AccelChannels     = []string{"accel_x", "accel_y", "accel_z"}
	AccelGyroChannels = []string{"accel_x", "accel_y", "accel_z", "gyro_x", "gyro_y", "gyro_z"}
)

// ChannelNames returns the column names for a channel count.
func ChannelNames(channels int) []string {
	switch channels {
	case len(AccelChannels):
		return AccelChannels
	case len(AccelGyroChannels):
		return AccelGyroChannels
	}
	names := make([]string, channels)
	for i := range names {
		names[i] = "ch" + itoa(i)
	}
	return names
}

// Sample is one multi-channel IMU reading at one instant. Values are in
// the source's units until the ingest adapter scales them.
type Sample struct {
	Seq         uint64    `json:"seq"`
	TimestampNs int64     `json:"timestamp_ns"`
	Values      []float32 `json:"values"`
}

// SampleHeader is the CSV header for a recorded sample stream.
func SampleHeader(channels int) []string {
	return append([]string{"timestamp_ns"}, ChannelNames(channels)...)
}

func (s *Sample) CSVRow() []string {
	row := make([]string, 0, len(s.Values)+1)
	row = append(row, itoa64(s.TimestampNs))
	for _, v := range s.Values {
		row = append(row, ftoa32(v, 6))
	}
	return row
}
