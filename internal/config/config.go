// Package config loads the consumer's YAML configuration. Decoding is strict:
// unknown fields are rejected. Every field has an explicit default.
package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	TransportSHM       = "shm"
	TransportWebSocket = "websocket"

	BackendFFmpeg = "ffmpeg"
	BackendNone   = "none"
)

type Config struct {
	Video   VideoConfig   `yaml:"video"`
	Audio   AudioConfig   `yaml:"audio"`
	Render  RenderConfig  `yaml:"render"`
	Decoder DecoderConfig `yaml:"decoder"`

	// Log level directives, same syntax as the AVLOG environment variable.
	Log string `yaml:"log,omitempty"`
}

type VideoConfig struct {
	Transport string          `yaml:"transport"` // "shm" or "websocket"
	Framing   string          `yaml:"framing"`   // "auto", "raw" or "envelope"
	SHM       SHMConfig       `yaml:"shm"`
	WebSocket WebSocketConfig `yaml:"websocket"`

	// Buffers outside [MinBufferSize, MaxBufferSize] are rejected.
	MinBufferSize int `yaml:"min_buffer_size"`
	MaxBufferSize int `yaml:"max_buffer_size"`
}

type SHMConfig struct {
	Name           string        `yaml:"name"`
	Semaphore      string        `yaml:"semaphore"`
	Size           int           `yaml:"size"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	Backoff        time.Duration `yaml:"backoff"`
	MaxSilentPolls int           `yaml:"max_silent_polls"`
}

type WebSocketConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

type AudioConfig struct {
	Enabled bool      `yaml:"enabled"`
	SHM     SHMConfig `yaml:"shm"`
}

type RenderConfig struct {
	Interval      time.Duration `yaml:"interval"`
	StatsInterval time.Duration `yaml:"stats_interval"`

	// Raw I420 dump file. Empty disables the dump.
	Dump string `yaml:"dump,omitempty"`

	// PNG file refreshed with the presented picture every SnapshotInterval.
	Snapshot         string        `yaml:"snapshot,omitempty"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
}

type DecoderConfig struct {
	Backend string `yaml:"backend"` // "ffmpeg" or "none"
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{Audio: AudioConfig{Enabled: true}}
	cfg.setDefaults()
	return cfg
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates the
// result.
func Parse(data []byte) (*Config, error) {
	cfg := Config{Audio: AudioConfig{Enabled: true}}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decode config")
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	v := &c.Video
	if v.Transport == "" {
		v.Transport = TransportSHM
	}
	if v.Framing == "" {
		v.Framing = "auto"
	}
	setSHMDefaults(&v.SHM, "/openauto_video_shm", 1920*1080*3)
	if v.WebSocket.Addr == "" {
		v.WebSocket.Addr = ":8700"
	}
	if v.WebSocket.Path == "" {
		v.WebSocket.Path = "/video"
	}
	if v.MinBufferSize == 0 {
		v.MinBufferSize = 5
	}
	if v.MaxBufferSize == 0 {
		v.MaxBufferSize = 4 * 1024 * 1024
	}

	setSHMDefaults(&c.Audio.SHM, "/openauto_audio_shm", 8192+12)

	if c.Render.Interval == 0 {
		c.Render.Interval = 16 * time.Millisecond
	}
	if c.Render.StatsInterval == 0 {
		c.Render.StatsInterval = 5 * time.Second
	}
	if c.Render.SnapshotInterval == 0 {
		c.Render.SnapshotInterval = time.Second
	}

	if c.Decoder.Backend == "" {
		c.Decoder.Backend = BackendFFmpeg
	}
}

func setSHMDefaults(s *SHMConfig, name string, size int) {
	if s.Name == "" {
		s.Name = name
	}
	if s.Semaphore == "" {
		s.Semaphore = s.Name + "_sem"
	}
	if s.Size == 0 {
		s.Size = size
	}
	if s.PollInterval == 0 {
		s.PollInterval = 10 * time.Millisecond
	}
	if s.Backoff == 0 {
		s.Backoff = time.Second
	}
	if s.MaxSilentPolls == 0 {
		s.MaxSilentPolls = 100
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Video.Transport {
	case TransportSHM, TransportWebSocket:
	default:
		return errors.Errorf("video.transport: unknown transport %q", c.Video.Transport)
	}
	switch c.Video.Framing {
	case "auto", "raw", "none", "envelope":
	default:
		return errors.Errorf("video.framing: unknown framing %q", c.Video.Framing)
	}
	if c.Video.MinBufferSize < 0 || c.Video.MaxBufferSize < c.Video.MinBufferSize {
		return errors.Errorf("video: buffer size bounds [%d, %d] invalid",
			c.Video.MinBufferSize, c.Video.MaxBufferSize)
	}
	if err := c.Video.SHM.validate("video.shm"); err != nil {
		return err
	}
	if c.Audio.Enabled {
		if err := c.Audio.SHM.validate("audio.shm"); err != nil {
			return err
		}
	}
	if c.Render.Interval < 0 || c.Render.StatsInterval < 0 || c.Render.SnapshotInterval < 0 {
		return errors.New("render: intervals must not be negative")
	}
	switch c.Decoder.Backend {
	case BackendFFmpeg, BackendNone:
	default:
		return errors.Errorf("decoder.backend: unknown backend %q", c.Decoder.Backend)
	}
	return nil
}

func (s *SHMConfig) validate(section string) error {
	if s.Name == "" || s.Semaphore == "" {
		return errors.Errorf("%s: name and semaphore are required", section)
	}
	if s.Size <= 0 {
		return errors.Errorf("%s: size must be positive", section)
	}
	if s.PollInterval < 0 || s.Backoff < 0 || s.MaxSilentPolls < 0 {
		return errors.Errorf("%s: poll settings must not be negative", section)
	}
	return nil
}
