package shm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOpener struct {
	mu sync.Mutex

	regionFailures int
	signalFailures int
	mapErr         error
	data           []byte

	// wait is called with the 1-based wait count.
	wait func(n int) error

	regionOpens, regionCloses int
	signalOpens, signalCloses int
	waits                     int
}

func (o *fakeOpener) OpenRegion(name string) (Region, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.regionOpens++
	if o.regionFailures > 0 {
		o.regionFailures--
		return nil, errors.New("no such file or directory")
	}
	return &fakeRegion{o}, nil
}

func (o *fakeOpener) OpenSignal(name string) (Signal, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.signalOpens++
	if o.signalFailures > 0 {
		o.signalFailures--
		return nil, errors.New("no such file or directory")
	}
	return &fakeSignal{o}, nil
}

func (o *fakeOpener) counts() (regionCloses, signalCloses, waits int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.regionCloses, o.signalCloses, o.waits
}

type fakeRegion struct{ o *fakeOpener }

func (r *fakeRegion) Map(size int) ([]byte, error) {
	if r.o.mapErr != nil {
		return nil, r.o.mapErr
	}
	return r.o.data, nil
}

func (r *fakeRegion) Close() error {
	r.o.mu.Lock()
	defer r.o.mu.Unlock()
	r.o.regionCloses++
	return nil
}

type fakeSignal struct{ o *fakeOpener }

func (s *fakeSignal) Wait(timeout time.Duration) error {
	s.o.mu.Lock()
	s.o.waits++
	n := s.o.waits
	s.o.mu.Unlock()
	return s.o.wait(n)
}

func (s *fakeSignal) Close() error {
	s.o.mu.Lock()
	defer s.o.mu.Unlock()
	s.o.signalCloses++
	return nil
}

type transition struct{ from, to State }

func testConfig(o Opener, record *[]transition, onChange func(from, to State)) Config {
	return Config{
		Name:         "/test_shm",
		SignalName:   "/test_shm_sem",
		Size:         16,
		PollInterval: time.Millisecond,
		Backoff:      time.Millisecond,
		Opener:       o,
		OnStateChange: func(from, to State) {
			*record = append(*record, transition{from, to})
			if onChange != nil {
				onChange(from, to)
			}
		},
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "CONNECTING", Connecting.String())
	assert.Equal(t, "POLLING", Polling.String())
	assert.Equal(t, "SHUTDOWN", Shutdown.String())
}

func TestLinkReconnectsAfterSilence(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o := &fakeOpener{
		data: []byte("frame"),
		wait: func(n int) error {
			if n == 1 {
				return nil
			}
			return ErrTimeout
		},
	}

	var delivered [][]byte
	var states []transition
	cfg := testConfig(o, &states, func(from, to State) {
		if from == Polling && to == Connecting {
			cancel()
		}
	})
	link := NewLink(cfg, func(buf []byte) {
		delivered = append(delivered, append([]byte(nil), buf...))
	})

	require.NoError(t, link.Run(ctx))

	assert.Equal(t, [][]byte{[]byte("frame")}, delivered)
	assert.Equal(t, []transition{
		{Connecting, Polling},
		{Polling, Connecting},
		{Connecting, Shutdown},
	}, states)
	assert.Equal(t, Shutdown, link.State())

	regionCloses, signalCloses, waits := o.counts()
	assert.Equal(t, 1+DefaultMaxSilentPolls+1, waits)
	assert.Equal(t, 1, regionCloses)
	assert.Equal(t, 1, signalCloses)
}

func TestLinkDataResetsSilence(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 100 timeouts, data, 100 timeouts, data: never enough to reconnect.
	o := &fakeOpener{
		data: []byte("x"),
		wait: func(n int) error {
			if n == 101 || n == 202 {
				return nil
			}
			return ErrTimeout
		},
	}

	var states []transition
	deliveries := 0
	link := NewLink(testConfig(o, &states, nil), func(buf []byte) {
		deliveries++
		if deliveries == 2 {
			cancel()
		}
	})

	require.NoError(t, link.Run(ctx))
	assert.Equal(t, 2, deliveries)
	assert.Equal(t, []transition{{Connecting, Polling}, {Polling, Shutdown}}, states)
}

func TestLinkRetriesOpenFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o := &fakeOpener{
		regionFailures: 2,
		signalFailures: 1,
		wait:           func(int) error { return ErrTimeout },
	}

	var states []transition
	cfg := testConfig(o, &states, func(from, to State) {
		if to == Polling {
			cancel()
		}
	})
	require.NoError(t, NewLink(cfg, func([]byte) {}).Run(ctx))

	assert.Equal(t, 4, o.regionOpens)
	assert.Equal(t, 2, o.signalOpens)

	// One region closed after the signal failed to open, one on shutdown.
	regionCloses, signalCloses, _ := o.counts()
	assert.Equal(t, 2, regionCloses)
	assert.Equal(t, 1, signalCloses)
}

func TestLinkMapFailureShutsDown(t *testing.T) {
	o := &fakeOpener{mapErr: errors.New("permission denied")}

	var states []transition
	link := NewLink(testConfig(o, &states, nil), func([]byte) {})

	err := link.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Equal(t, Shutdown, link.State())
	assert.Equal(t, []transition{{Connecting, Shutdown}}, states)

	regionCloses, signalCloses, _ := o.counts()
	assert.Equal(t, 1, regionCloses)
	assert.Equal(t, 1, signalCloses)
}

func TestLinkInterruptedWaitKeepsPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o := &fakeOpener{
		wait: func(n int) error {
			if n == 2*DefaultMaxSilentPolls {
				cancel()
			}
			return ErrInterrupted
		},
	}

	var states []transition
	require.NoError(t, NewLink(testConfig(o, &states, nil), func([]byte) {}).Run(ctx))
	assert.Equal(t, []transition{{Connecting, Polling}, {Polling, Shutdown}}, states)
}

func TestLinkWaitErrorShutsDown(t *testing.T) {
	failure := errors.New("invalid argument")
	o := &fakeOpener{wait: func(int) error { return failure }}

	var states []transition
	link := NewLink(testConfig(o, &states, nil), func([]byte) {})

	err := link.Run(context.Background())
	assert.True(t, errors.Is(err, failure))
	assert.Equal(t, Shutdown, link.State())
	assert.Equal(t, []transition{{Connecting, Polling}, {Polling, Shutdown}}, states)

	regionCloses, signalCloses, _ := o.counts()
	assert.Equal(t, 1, regionCloses)
	assert.Equal(t, 1, signalCloses)
}

func TestLinkCancelWhileConnecting(t *testing.T) {
	o := &fakeOpener{regionFailures: 1 << 30}

	var states []transition
	cfg := testConfig(o, &states, nil)
	cfg.Backoff = time.Hour
	link := NewLink(cfg, func([]byte) {})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, link.Run(ctx))
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, Shutdown, link.State())
}
