//////////////////////////////////////////////////////////////////////////////
//
// Consumer: wires producer links, decoding and presentation together
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package avconsumer

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/lanikai/avconsumer/internal/bitstream"
	"github.com/lanikai/avconsumer/internal/config"
	"github.com/lanikai/avconsumer/internal/decoder"
	"github.com/lanikai/avconsumer/internal/logging"
	"github.com/lanikai/avconsumer/internal/mailbox"
	"github.com/lanikai/avconsumer/internal/render"
	"github.com/lanikai/avconsumer/internal/session"
	"github.com/lanikai/avconsumer/internal/shm"
)

var log = logging.DefaultLogger.WithTag("avconsumer")

type Config = config.Config

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return config.Default()
}

type Option func(*Consumer)

// WithCodec decodes with codec instead of the configured backend.
func WithCodec(codec decoder.Codec) Option {
	return func(c *Consumer) {
		c.codec = codec
	}
}

// WithSink presents pictures to sink in addition to the configured sinks.
func WithSink(sink render.Sink) Option {
	return func(c *Consumer) {
		c.sinks = append(c.sinks, sink)
	}
}

// WithOpener attaches shared memory links through opener.
func WithOpener(opener shm.Opener) Option {
	return func(c *Consumer) {
		c.opener = opener
	}
}

// WithoutPump disables the render pump. The embedding application then
// pulls pictures itself with LatestFrame.
func WithoutPump() Option {
	return func(c *Consumer) {
		c.noPump = true
	}
}

// Stats is a snapshot of the consumer's counters.
type Stats struct {
	Decoder decoder.Stats
	Mailbox mailbox.Stats

	// Video buffers dropped before reaching the decoder.
	Dropped uint64

	AudioBuffers uint64
}

// Consumer receives H.264 from a producer, decodes it and keeps the most
// recent picture available for presentation.
type Consumer struct {
	cfg     *Config
	framing bitstream.EnvelopeMode

	codec   decoder.Codec
	session *decoder.Session
	mailbox *mailbox.Mailbox
	stats   *render.StatsSink
	sinks   []render.Sink
	closers []io.Closer
	opener  shm.Opener
	noPump  bool

	dropped      uint64
	audioBuffers uint64

	dropLog     logging.Throttle
	envelopeLog logging.Throttle
	audioLog    logging.Throttle

	running   int32
	closed    int32
	closeOnce sync.Once
	closeErr  error
}

func NewConsumer(cfg *Config, opts ...Option) (*Consumer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	framing, err := bitstream.ParseEnvelopeMode(cfg.Video.Framing)
	if err != nil {
		return nil, errors.Wrap(err, "video.framing")
	}

	c := &Consumer{
		cfg:         cfg,
		framing:     framing,
		mailbox:     mailbox.New(),
		stats:       render.NewStatsSink(cfg.Render.StatsInterval),
		dropLog:     logging.Throttle{First: 10, Every: 100},
		envelopeLog: logging.Throttle{First: 10, Every: 300},
		audioLog:    logging.Throttle{First: 10, Every: 500},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.codec == nil {
		switch cfg.Decoder.Backend {
		case config.BackendFFmpeg:
			c.codec, err = decoder.NewFFmpegCodec()
			if err != nil {
				return nil, errors.Wrap(err, "open decoder (build with -tags ffmpeg, or use decoder backend \"none\")")
			}
		default:
			c.codec = decoder.NewNullCodec()
		}
	}

	normalizer := &bitstream.Normalizer{
		MinSize: cfg.Video.MinBufferSize,
		MaxSize: cfg.Video.MaxBufferSize,
	}
	c.session = decoder.NewSession(c.codec, decoder.WithNormalizer(normalizer))

	c.sinks = append([]render.Sink{c.stats}, c.sinks...)
	if cfg.Render.Dump != "" {
		dump, err := render.NewFileSink(cfg.Render.Dump)
		if err != nil {
			c.session.Close()
			return nil, err
		}
		c.sinks = append(c.sinks, dump)
		c.closers = append(c.closers, dump)
	}
	if cfg.Render.Snapshot != "" {
		c.sinks = append(c.sinks, render.NewSnapshotSink(cfg.Render.Snapshot, cfg.Render.SnapshotInterval))
	}
	return c, nil
}

// Run consumes until ctx is cancelled or a link fails fatally.
func (c *Consumer) Run(ctx context.Context) error {
	if atomic.LoadInt32(&c.closed) != 0 {
		return ErrClosed
	}
	if !atomic.CompareAndSwapInt32(&c.running, 0, 1) {
		return ErrRunning
	}
	defer atomic.StoreInt32(&c.running, 0)

	g, ctx := errgroup.WithContext(ctx)

	switch c.cfg.Video.Transport {
	case config.TransportWebSocket:
		srv := session.NewServer(session.Config{
			Addr:           c.cfg.Video.WebSocket.Addr,
			Path:           c.cfg.Video.WebSocket.Path,
			MaxMessageSize: int64(c.cfg.Video.MaxBufferSize + bitstream.EnvelopeHeaderSize),
			OnConnect: func(id string) {
				c.session.Reset()
			},
		}, c.HandleVideo)
		g.Go(func() error {
			return srv.ListenAndServe(ctx)
		})
	default:
		link := shm.NewLink(c.linkConfig(c.cfg.Video.SHM, func(from, to shm.State) {
			if to == shm.Polling {
				c.session.Reset()
			}
		}), c.HandleVideo)
		g.Go(func() error {
			return errors.Wrap(link.Run(ctx), "video link")
		})
	}

	if c.cfg.Audio.Enabled {
		link := shm.NewLink(c.linkConfig(c.cfg.Audio.SHM, nil), c.HandleAudio)
		g.Go(func() error {
			return errors.Wrap(link.Run(ctx), "audio link")
		})
	}

	if !c.noPump {
		pump := render.NewPump(c.mailbox, render.MultiSink(c.sinks), c.cfg.Render.Interval)
		g.Go(func() error {
			return pump.Run(ctx)
		})
	}

	return g.Wait()
}

func (c *Consumer) linkConfig(s config.SHMConfig, onChange func(from, to shm.State)) shm.Config {
	return shm.Config{
		Name:           s.Name,
		SignalName:     s.Semaphore,
		Size:           s.Size,
		PollInterval:   s.PollInterval,
		Backoff:        s.Backoff,
		MaxSilentPolls: s.MaxSilentPolls,
		Opener:         c.opener,
		OnStateChange:  onChange,
	}
}

// HandleVideo processes one raw producer buffer. buf is not retained.
func (c *Consumer) HandleVideo(buf []byte) {
	payload, env, err := bitstream.Unwrap(buf, c.framing)
	if err != nil {
		c.drop(err)
		return
	}
	if env != nil {
		if ok, _ := c.envelopeLog.Allow(); ok {
			log.Debug("Video timestamp=%d payloadSize=%d", env.Timestamp, env.Length)
		}
	}

	pic, err := c.session.Handle(payload)
	if err != nil {
		c.drop(err)
		return
	}
	if pic != nil {
		c.mailbox.Publish(pic)
	}
}

func (c *Consumer) drop(err error) {
	atomic.AddUint64(&c.dropped, 1)
	if ok, n := c.dropLog.Allow(); ok {
		log.Debug("Dropped video buffer (%d): %v", n, err)
	}
}

// HandleAudio logs the envelope of one audio buffer. Audio is not decoded.
func (c *Consumer) HandleAudio(buf []byte) {
	atomic.AddUint64(&c.audioBuffers, 1)
	env, _, err := bitstream.ReadEnvelope(buf)
	if ok, _ := c.audioLog.Allow(); ok {
		if err != nil {
			log.Debug("Audio buffer: %v", err)
		} else {
			log.Debug("Audio timestamp=%d payloadSize=%d", env.Timestamp, env.Length)
		}
	}
}

// LatestFrame returns the picture decoded since the last call, if any. When
// the render pump is running it competes for the same pictures; see
// WithoutPump.
func (c *Consumer) LatestFrame() (*decoder.Picture, bool) {
	return c.mailbox.TakeLatest()
}

func (c *Consumer) Stats() Stats {
	return Stats{
		Decoder:      c.session.Stats(),
		Mailbox:      c.mailbox.Stats(),
		Dropped:      atomic.LoadUint64(&c.dropped),
		AudioBuffers: atomic.LoadUint64(&c.audioBuffers),
	}
}

// Close releases the decoder and any open dump file. Call it after Run
// returns.
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() {
		atomic.StoreInt32(&c.closed, 1)
		c.closeErr = c.session.Close()
		for _, closer := range c.closers {
			if err := closer.Close(); err != nil && c.closeErr == nil {
				c.closeErr = err
			}
		}
	})
	return c.closeErr
}
