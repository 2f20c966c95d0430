package logging

import (
	"bytes"
	stdlog "log"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(level Level) (*Logger, *bytes.Buffer) {
	DisableColor()
	var out bytes.Buffer
	return &Logger{level, "test", &out, new(sync.Mutex)}, &out
}

func TestLogFiltersByLevel(t *testing.T) {
	log, out := newTestLogger(Info)

	log.Debug("hidden %d", 1)
	assert.Empty(t, out.String())

	log.Warn("shown %d", 2)
	line := out.String()
	assert.True(t, strings.HasSuffix(line, "shown 2\n"))
	assert.Contains(t, line, "W/test[logger_test.go:")
}

func TestParseLevel(t *testing.T) {
	for s, want := range map[string]Level{
		"e": Error, "WARN": Warn, "info": Info, "D": Debug, "trace": MaxLevel, "5": Level(5),
	} {
		got, err := ParseLevel(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
	_, err = ParseLevel("12")
	assert.Error(t, err)
}

func TestConfigureTagLevel(t *testing.T) {
	require.NoError(t, Configure("unit-tag=debug"))
	log := DefaultLogger.WithTag("unit-tag")
	assert.Equal(t, Debug, log.Level)
	assert.True(t, log.Enabled(Debug))

	assert.Error(t, Configure("unit-tag=bogus"))
}

func TestWriterTrimsNewline(t *testing.T) {
	log, out := newTestLogger(Info)
	w := log.Writer(Warn)
	w.Write([]byte("http: oops\n"))
	assert.True(t, strings.HasSuffix(out.String(), "http: oops\n"))
	assert.False(t, strings.HasSuffix(out.String(), "\n\n"))
}

func TestWriterBacksStdlibLogger(t *testing.T) {
	log, out := newTestLogger(Info)
	std := stdlog.New(log.Writer(Warn), "", 0)
	std.Printf("http: TLS handshake error from %s", "10.0.0.1:5000")

	line := out.String()
	assert.Contains(t, line, "W/test[")
	assert.True(t, strings.HasSuffix(line, "handshake error from 10.0.0.1:5000\n"))
	assert.Equal(t, 1, strings.Count(line, "\n"))
}

func TestThrottle(t *testing.T) {
	th := Throttle{First: 2, Every: 3}
	var allowed []uint64
	for i := 0; i < 9; i++ {
		if ok, n := th.Allow(); ok {
			allowed = append(allowed, n)
		}
	}
	assert.Equal(t, []uint64{1, 2, 3, 6, 9}, allowed)
	assert.Equal(t, uint64(9), th.Count())

	th.Reset()
	ok, n := th.Allow()
	assert.True(t, ok)
	assert.Equal(t, uint64(1), n)
}
