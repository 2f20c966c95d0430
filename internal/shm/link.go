//////////////////////////////////////////////////////////////////////////////
//
// Producer link: polls a shared memory region guarded by a named semaphore
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package shm

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/lanikai/avconsumer/internal/logging"
)

var log = logging.DefaultLogger.WithTag("shm")

const (
	DefaultPollInterval   = 10 * time.Millisecond
	DefaultBackoff        = time.Second
	DefaultMaxSilentPolls = 100
)

// Handler receives the mapped region after each post. The slice aliases
// shared memory and is only valid for the duration of the call.
type Handler func(buf []byte)

type Config struct {
	// Name of the shared memory object, e.g. "/openauto_video_shm".
	Name string

	// Name of the semaphore the producer posts after each write.
	SignalName string

	// Number of bytes to map.
	Size int

	PollInterval time.Duration
	Backoff      time.Duration

	// Consecutive timed out polls tolerated before the link reconnects.
	MaxSilentPolls int

	// Defaults to the POSIX opener.
	Opener Opener

	// Called from the polling goroutine on every state transition.
	OnStateChange func(from, to State)
}

// Link is a consumer of one producer stream. Run drives its state machine;
// State may be read from any goroutine.
type Link struct {
	cfg     Config
	handler Handler
	log     *logging.Logger

	state int32

	region Region
	signal Signal
	mapped []byte
	silent int

	waitLog logging.Throttle
}

func NewLink(cfg Config, handler Handler) *Link {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.MaxSilentPolls <= 0 {
		cfg.MaxSilentPolls = DefaultMaxSilentPolls
	}
	if cfg.Opener == nil {
		cfg.Opener = DefaultOpener()
	}
	return &Link{
		cfg:     cfg,
		handler: handler,
		log:     log,
		state:   int32(Connecting),
		waitLog: logging.Throttle{First: 1, Every: 30},
	}
}

func (l *Link) State() State {
	return State(atomic.LoadInt32(&l.state))
}

func (l *Link) setState(to State) {
	from := State(atomic.SwapInt32(&l.state, int32(to)))
	if from == to {
		return
	}
	l.log.Debug("%s: %s -> %s", l.cfg.Name, from, to)
	if l.cfg.OnStateChange != nil {
		l.cfg.OnStateChange(from, to)
	}
}

// Run polls until ctx is cancelled, returning nil, or until a fatal error
// moves the link to SHUTDOWN, returning that error. Shared memory handles
// are released before Run returns.
func (l *Link) Run(ctx context.Context) error {
	defer l.release()

	for {
		if ctx.Err() != nil {
			l.setState(Shutdown)
			return nil
		}

		var err error
		switch l.State() {
		case Connecting:
			err = l.connect(ctx)
		case Polling:
			err = l.poll()
		default:
			return nil
		}
		if err != nil {
			l.log.Error("%v", err)
			l.setState(Shutdown)
			return err
		}
	}
}

func (l *Link) connect(ctx context.Context) error {
	region, err := l.cfg.Opener.OpenRegion(l.cfg.Name)
	if err != nil {
		l.waiting(ctx, err)
		return nil
	}

	signal, err := l.cfg.Opener.OpenSignal(l.cfg.SignalName)
	if err != nil {
		region.Close()
		l.waiting(ctx, err)
		return nil
	}

	mapped, err := region.Map(l.cfg.Size)
	if err != nil {
		signal.Close()
		region.Close()
		return errors.Wrapf(err, "map %s", l.cfg.Name)
	}

	l.region = region
	l.signal = signal
	l.mapped = mapped
	l.silent = 0
	l.waitLog.Reset()
	l.log.Info("Connected to %s (%d bytes mapped)", l.cfg.Name, len(mapped))
	l.setState(Polling)
	return nil
}

// waiting logs a failed open attempt and sleeps for the backoff interval, or
// until ctx is done.
func (l *Link) waiting(ctx context.Context, err error) {
	if ok, n := l.waitLog.Allow(); ok {
		l.log.Info("Waiting for %s (attempt %d): %v", l.cfg.Name, n, err)
	}

	t := time.NewTimer(l.cfg.Backoff)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (l *Link) poll() error {
	err := l.signal.Wait(l.cfg.PollInterval)
	switch {
	case err == nil:
		l.silent = 0
		l.handler(l.mapped)
	case errors.Is(err, ErrTimeout):
		l.silent++
		if l.silent > l.cfg.MaxSilentPolls {
			l.log.Warn("%s: no data after %d polls, reconnecting", l.cfg.Name, l.silent)
			l.release()
			l.setState(Connecting)
		}
	case errors.Is(err, ErrInterrupted):
	default:
		return errors.Wrapf(err, "wait on %s", l.cfg.SignalName)
	}
	return nil
}

func (l *Link) release() {
	if l.signal != nil {
		if err := l.signal.Close(); err != nil {
			l.log.Warn("Failed to close signal: %v", err)
		}
		l.signal = nil
	}
	if l.region != nil {
		if err := l.region.Close(); err != nil {
			l.log.Warn("Failed to close region: %v", err)
		}
		l.region = nil
	}
	l.mapped = nil
	l.silent = 0
}
