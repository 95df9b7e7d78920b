package utils

import (
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Profiles mirror the two IMU firmware builds.
const (
	ProfileSingle = "single" // one accelerometer sample per cycle
	ProfileBurst  = "burst"  // drain the accel+gyro FIFO every cycle
)

// Sensor sources.
const (
	SourceSim    = "sim"
	SourceReplay = "replay"
)

// ─── Section configs ────────────────────────────────────────────────────

type SensorConfig struct {
	Mode          string  `yaml:"mode" toml:"mode"`     // "single" or "burst"
	Source        string  `yaml:"source" toml:"source"` // "sim" or "replay"
	Channels      int     `yaml:"channels" toml:"channels"`
	UpdateRateHz  int     `yaml:"update_rate_hz" toml:"update_rate_hz"`
	QueueDepth    int     `yaml:"queue_depth" toml:"queue_depth"`
	ReplayPath    string  `yaml:"replay_path" toml:"replay_path"`
	UnitScale     float64 `yaml:"unit_scale" toml:"unit_scale"`
	DecimateEvery int     `yaml:"decimate_every" toml:"decimate_every"`
}

type WindowConfig struct {
	Capacity      int `yaml:"capacity" toml:"capacity"`
	RequiredDepth int `yaml:"required_depth" toml:"required_depth"`
	Length        int `yaml:"length" toml:"length"`
}

type PollConfig struct {
	IntervalMs      int `yaml:"interval_ms" toml:"interval_ms"`
	MaxWindows      int `yaml:"max_windows" toml:"max_windows"`
	DurationSeconds int `yaml:"duration_seconds" toml:"duration_seconds"`
}

type CSVStorageConfig struct {
	FlushIntervalMs int  `yaml:"flush_interval_ms" toml:"flush_interval_ms"`
	BufferSizeKB    int  `yaml:"buffer_size_kb" toml:"buffer_size_kb"`
	WriteHeader     bool `yaml:"write_header" toml:"write_header"`
}

type StorageConfig struct {
	Enabled         bool             `yaml:"enabled" toml:"enabled"`
	BaseDir         string           `yaml:"base_dir" toml:"base_dir"`
	SessionPrefix   string           `yaml:"session_prefix" toml:"session_prefix"`
	CSV             CSVStorageConfig `yaml:"csv" toml:"csv"`
	Overwrite       bool             `yaml:"overwrite" toml:"overwrite"`
	ResetAfterWrite bool             `yaml:"reset_after_write" toml:"reset_after_write"`
	PerWindowFiles  bool             `yaml:"per_window_files" toml:"per_window_files"`
	Label           string           `yaml:"label" toml:"label"`
}

// Config is the top-level structure of the window config file.
type Config struct {
	Profile string        `yaml:"profile" toml:"profile"`
	Sensor  SensorConfig  `yaml:"sensor" toml:"sensor"`
	Window  WindowConfig  `yaml:"window" toml:"window"`
	Poll    PollConfig    `yaml:"poll" toml:"poll"`
	Storage StorageConfig `yaml:"storage" toml:"storage"`
}

// ─── Defaults ───────────────────────────────────────────────────────────

// Defaults returns the stock settings for a firmware profile.
func Defaults(profile string) (*Config, error) {
	cfg := &Config{
		Profile: profile,
		Storage: StorageConfig{
			Enabled:         true,
			BaseDir:         "./windows",
			SessionPrefix:   "session",
			CSV:             CSVStorageConfig{FlushIntervalMs: 250, BufferSizeKB: 64, WriteHeader: true},
			ResetAfterWrite: true,
			PerWindowFiles:  true,
			Label:           "unlabeled",
		},
	}

	switch profile {
	case ProfileSingle:
		// 200 sets of 3-channel values, converted g -> milli-g
		cfg.Sensor = SensorConfig{
			Mode: ProfileSingle, Source: SourceSim, Channels: 3,
			UpdateRateHz: 25, QueueDepth: 0, UnitScale: 1000, DecimateEvery: 1,
		}
		cfg.Window = WindowConfig{Capacity: 600, RequiredDepth: 200, Length: 384}
	case ProfileBurst:
		// 100 sets of 6-channel values in native units
		cfg.Sensor = SensorConfig{
			Mode: ProfileBurst, Source: SourceSim, Channels: 6,
			UpdateRateHz: 25, QueueDepth: 512, UnitScale: 1, DecimateEvery: 1,
		}
		cfg.Window = WindowConfig{Capacity: 600, RequiredDepth: 216, Length: 216}
		cfg.Poll.IntervalMs = 100
	default:
		return nil, NewError(CodeConfig, "unknown profile %q (want %q or %q)", profile, ProfileSingle, ProfileBurst)
	}
	return cfg, nil
}

// PollIntervalMs is the configured cycle period, defaulting to one sample
// period of the sensor. Rates above 1 kHz poll every millisecond.
func (c *Config) PollIntervalMs() int {
	if c.Poll.IntervalMs > 0 {
		return c.Poll.IntervalMs
	}
	return max(int(IntervalFromHz(c.Sensor.UpdateRateHz).Milliseconds()), 1)
}

// Validate checks the buffer geometry and sensor settings.
func (c *Config) Validate() error {
	s, w := c.Sensor, c.Window
	switch {
	case s.Mode != ProfileSingle && s.Mode != ProfileBurst:
		return NewError(CodeConfig, "sensor.mode must be %q or %q, got %q", ProfileSingle, ProfileBurst, s.Mode)
	case s.Source != SourceSim && s.Source != SourceReplay:
		return NewError(CodeConfig, "sensor.source must be %q or %q, got %q", SourceSim, SourceReplay, s.Source)
	case s.Source == SourceReplay && s.ReplayPath == "":
		return NewError(CodeConfig, "sensor.replay_path is required for replay source")
	case s.Channels != 3 && s.Channels != 6:
		return NewError(CodeConfig, "sensor.channels must be 3 or 6, got %d", s.Channels)
	case s.DecimateEvery < 0:
		return NewError(CodeConfig, "sensor.decimate_every must not be negative")
	case w.Capacity <= 0 || w.Capacity%s.Channels != 0:
		return NewError(CodeConfig, "window.capacity %d must be a positive multiple of %d channels", w.Capacity, s.Channels)
	case c.Poll.IntervalMs < 0:
		return NewError(CodeConfig, "poll.interval_ms must not be negative")
	case w.RequiredDepth <= 0:
		return NewError(CodeConfig, "window.required_depth must be positive")
	case w.Length <= 0 || w.Length > w.Capacity || w.Length%s.Channels != 0:
		return NewError(CodeConfig, "window.length %d must be a multiple of %d channels no larger than capacity %d",
			w.Length, s.Channels, w.Capacity)
	case s.Mode == ProfileBurst && s.Source == SourceSim && s.QueueDepth <= 0:
		return NewError(CodeConfig, "sensor.queue_depth must be positive in burst mode")
	}
	return nil
}

// ─── Loaders ────────────────────────────────────────────────────────────

type decodeFunc func([]byte, any) error

func decoderFor(path string) (decodeFunc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal, nil
	case ".toml":
		return toml.Unmarshal, nil
	default:
		return nil, NewError(CodeConfig, "unsupported config extension %q", filepath.Ext(path))
	}
}

// LoadConfig reads a YAML or TOML config. Fields the file leaves out keep
// the defaults of the profile it names (single when absent).
func LoadConfig(path string) (*Config, error) {
	return LoadConfigProfile(path, ProfileSingle)
}

// LoadConfigProfile is LoadConfig with the profile used when the file does
// not name one. A profile named in the file always wins.
func LoadConfigProfile(path, fallback string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Wrap(CodeConfig, err, "read config")
	}
	decode, err := decoderFor(path)
	if err != nil {
		return nil, err
	}

	var head struct {
		Profile string `yaml:"profile" toml:"profile"`
	}
	if err := decode(data, &head); err != nil {
		return nil, Wrap(CodeConfig, err, "parse config %s", path)
	}
	if head.Profile == "" {
		head.Profile = fallback
	}

	cfg, err := Defaults(head.Profile)
	if err != nil {
		return nil, err
	}
	if err := decode(data, cfg); err != nil {
		return nil, Wrap(CodeConfig, err, "parse config %s", path)
	}
	cfg.Profile = head.Profile
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
