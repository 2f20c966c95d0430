package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, TransportSHM, cfg.Video.Transport)
	assert.Equal(t, "auto", cfg.Video.Framing)
	assert.Equal(t, "/openauto_video_shm", cfg.Video.SHM.Name)
	assert.Equal(t, "/openauto_video_shm_sem", cfg.Video.SHM.Semaphore)
	assert.Equal(t, 1920*1080*3, cfg.Video.SHM.Size)
	assert.Equal(t, 10*time.Millisecond, cfg.Video.SHM.PollInterval)
	assert.Equal(t, time.Second, cfg.Video.SHM.Backoff)
	assert.Equal(t, 100, cfg.Video.SHM.MaxSilentPolls)
	assert.Equal(t, 5, cfg.Video.MinBufferSize)
	assert.Equal(t, 4*1024*1024, cfg.Video.MaxBufferSize)

	assert.True(t, cfg.Audio.Enabled)
	assert.Equal(t, "/openauto_audio_shm_sem", cfg.Audio.SHM.Semaphore)
	assert.Equal(t, 8192+12, cfg.Audio.SHM.Size)

	assert.Equal(t, 16*time.Millisecond, cfg.Render.Interval)
	assert.Equal(t, BackendFFmpeg, cfg.Decoder.Backend)
}

func TestParseEmpty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
video:
  transport: websocket
  framing: envelope
  websocket:
    addr: 127.0.0.1:9000
  shm:
    poll_interval: 20ms
audio:
  enabled: false
render:
  interval: 33ms
  dump: /tmp/out.yuv
decoder:
  backend: none
log: shm=debug
`))
	require.NoError(t, err)

	assert.Equal(t, TransportWebSocket, cfg.Video.Transport)
	assert.Equal(t, "envelope", cfg.Video.Framing)
	assert.Equal(t, "127.0.0.1:9000", cfg.Video.WebSocket.Addr)
	assert.Equal(t, "/video", cfg.Video.WebSocket.Path)
	assert.Equal(t, 20*time.Millisecond, cfg.Video.SHM.PollInterval)
	assert.False(t, cfg.Audio.Enabled)
	assert.Equal(t, 33*time.Millisecond, cfg.Render.Interval)
	assert.Equal(t, "/tmp/out.yuv", cfg.Render.Dump)
	assert.Equal(t, BackendNone, cfg.Decoder.Backend)
	assert.Equal(t, "shm=debug", cfg.Log)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("video:\n  transprot: shm\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	for name, yaml := range map[string]string{
		"transport": "video:\n  transport: udp\n",
		"framing":   "video:\n  framing: rtp\n",
		"backend":   "decoder:\n  backend: vaapi\n",
		"size":      "video:\n  shm:\n    size: -1\n",
		"bounds":    "video:\n  min_buffer_size: 100\n  max_buffer_size: 10\n",
		"interval":  "render:\n  interval: -1s\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avconsumer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("decoder:\n  backend: none\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendNone, cfg.Decoder.Backend)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
