//////////////////////////////////////////////////////////////////////////////
//
// Decode session: codec submission, frame validation and conversion
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package decoder

import (
	"bytes"
	"io"
	"sync"

	errors "golang.org/x/xerrors"

	"github.com/lanikai/avconsumer/internal/bitstream"
	"github.com/lanikai/avconsumer/internal/logging"
)

var log = logging.DefaultLogger.WithTag("decoder")

// ConverterFactory builds a conversion context for frames of one size and
// pixel format.
type ConverterFactory func(width, height int, format PixelFormat) (Converter, error)

// Stats counts what a Session has seen. All counters are cumulative.
type Stats struct {
	Units           uint64 // access units submitted
	Pictures        uint64 // pictures produced
	ConfigUpdates   uint64
	Rejected        uint64 // buffers refused by the normalizer
	SubmitErrors    uint64
	ReceiveErrors   uint64
	InvalidFrames   uint64
	ConverterBuilds uint64
}

type Option func(*Session)

// WithNormalizer replaces the default buffer normalizer.
func WithNormalizer(n *bitstream.Normalizer) Option {
	return func(s *Session) {
		s.normalizer = n
	}
}

// WithConverterFactory overrides how conversion contexts are built.
func WithConverterFactory(f ConverterFactory) Option {
	return func(s *Session) {
		s.newConverter = f
	}
}

type converterKey struct {
	width, height int
	format        PixelFormat
}

// Session owns one codec, its conversion context and the configuration cache.
// All methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	codec        Codec
	normalizer   *bitstream.Normalizer
	newConverter ConverterFactory

	cache     ConfigCache
	converter Converter
	convKey   converterKey

	stats  Stats
	closed bool

	packetLog  logging.Throttle
	pictureLog logging.Throttle
	configLog  logging.Throttle
}

func NewSession(codec Codec, opts ...Option) *Session {
	s := &Session{
		codec:      codec,
		normalizer: bitstream.NewNormalizer(),
		packetLog:  logging.Throttle{First: 10},
		pictureLog: logging.Throttle{First: 5, Every: 60},
		configLog:  logging.Throttle{First: 1, Every: 100},
	}
	if p, ok := codec.(ConverterProvider); ok {
		s.newConverter = p.NewConverter
	} else {
		s.newConverter = func(w, h int, f PixelFormat) (Converter, error) {
			c, err := NewPlanarConverter(w, h, f)
			if err != nil {
				return nil, err
			}
			return c, nil
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle runs one raw buffer through normalization and, for picture data,
// decoding. It returns the last picture decoded from the buffer, or nil if
// the buffer was configuration or the codec produced nothing yet.
func (s *Session) Handle(buf []byte) (*Picture, error) {
	if ok, n := s.packetLog.Allow(); ok {
		head := buf
		if len(head) > 16 {
			head = head[:16]
		}
		log.Debug("packet %d: %d bytes [% x]", n, len(buf), head)
	}

	res, err := s.normalizer.Normalize(buf)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if err != nil {
		s.stats.Rejected++
		return nil, err
	}

	switch res.Kind {
	case bitstream.Config:
		changed := !bytes.Equal(s.cache.Config(), res.Config)
		s.cache.Store(res.Config)
		s.stats.ConfigUpdates++
		if !changed {
			// Producers commonly repeat SPS/PPS ahead of every IDR.
			if ok, n := s.configLog.Allow(); ok {
				log.Debug("Configuration repeated (%d times)", n)
			}
			return nil, nil
		}
		s.configLog.Reset()
		if w, h := res.Config.Dimensions(); w > 0 {
			log.Info("Cached %s configuration (%d NAL units, %dx%d)", res.Framing, res.NALUs, w, h)
		} else {
			log.Info("Cached %s configuration (%d NAL units)", res.Framing, res.NALUs)
		}
		return nil, nil
	default:
		return s.decode(s.cache.Prepare(res.Unit))
	}
}

// Decode submits an Annex B access unit as is and returns the last valid
// picture the codec produced for it.
func (s *Session) Decode(unit bitstream.AccessUnit) (*Picture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decode(unit)
}

func (s *Session) decode(unit bitstream.AccessUnit) (*Picture, error) {
	if s.closed {
		return nil, ErrClosed
	}

	s.stats.Units++
	if err := s.codec.Send(unit); err != nil {
		s.stats.SubmitErrors++
		s.codec.Flush()
		log.Debug("Submit of %d bytes failed: %v", len(unit), err)
		return nil, errors.Errorf("%v: %w", err, ErrSubmit)
	}

	// A single access unit normally yields at most one frame. If the codec
	// emits several, earlier ones are discarded.
	var last *Picture
	var lastErr error
	for {
		f, err := s.codec.Receive()
		if err == ErrAgain || err == io.EOF {
			break
		}
		if err != nil {
			s.stats.ReceiveErrors++
			s.codec.Flush()
			if last != nil {
				break
			}
			return nil, errors.Errorf("%v: %w", err, ErrReceive)
		}

		pic, err := s.convert(f)
		if err != nil {
			lastErr = err
			continue
		}
		last = pic
	}

	if last == nil {
		return nil, lastErr
	}
	s.stats.Pictures++
	if ok, n := s.pictureLog.Allow(); ok {
		log.Debug("Decoded picture %d: %dx%d", n, last.Width, last.Height)
	}
	return last, nil
}

func (s *Session) convert(f *Frame) (*Picture, error) {
	if err := ValidateFrame(f); err != nil {
		s.stats.InvalidFrames++
		log.Debug("Dropping frame: %v", err)
		return nil, err
	}

	key := converterKey{f.Width, f.Height, f.Format}
	if s.converter == nil || key != s.convKey {
		if s.converter != nil {
			s.converter.Close()
			s.converter = nil
		}
		conv, err := s.newConverter(f.Width, f.Height, f.Format)
		if err != nil {
			return nil, err
		}
		s.converter = conv
		s.convKey = key
		s.stats.ConverterBuilds++
		log.Info("Created conversion context for %dx%d (format %d)", f.Width, f.Height, f.Format)
	}

	pic := NewPicture(f.Width, f.Height)
	if err := s.converter.Convert(pic, f); err != nil {
		return nil, err
	}
	return pic, nil
}

// ValidateFrame checks decoder output before it is converted.
func ValidateFrame(f *Frame) error {
	if f == nil {
		return errors.Errorf("nil frame: %w", ErrInvalidFrame)
	}
	if f.Width <= 0 || f.Height <= 0 || f.Width > MaxWidth || f.Height > MaxHeight {
		return errors.Errorf("dimensions %dx%d: %w", f.Width, f.Height, ErrInvalidFrame)
	}
	for i := 0; i < 3; i++ {
		if len(f.Planes[i]) == 0 {
			return errors.Errorf("plane %d missing: %w", i, ErrInvalidFrame)
		}
		if f.Strides[i] <= 0 {
			return errors.Errorf("plane %d stride %d: %w", i, f.Strides[i], ErrInvalidFrame)
		}
	}
	return nil
}

// Reset forgets cached configuration and discards buffered codec state. It
// is called when the producer reconnects.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Reset()
	if !s.closed {
		s.codec.Flush()
	}
}

func (s *Session) CacheState() CacheState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.State()
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close releases the conversion context and the codec. Calls after the first
// are no-ops.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.converter != nil {
		s.converter.Close()
		s.converter = nil
	}
	return s.codec.Close()
}
