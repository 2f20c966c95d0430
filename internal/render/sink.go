package render

import (
	"bufio"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/lanikai/avconsumer/internal/decoder"
)

// A Sink displays pictures. Present is called from the pump goroutine only.
type Sink interface {
	Present(pic *decoder.Picture) error
}

// WriterSink writes each picture as raw I420 bytes. The output can be played
// with e.g. `ffplay -f rawvideo -pixel_format yuv420p -video_size WxH`.
type WriterSink struct {
	w      *bufio.Writer
	closer io.Closer

	width, height int
}

func NewWriterSink(w io.Writer) *WriterSink {
	s := &WriterSink{w: bufio.NewWriterSize(w, 1<<20)}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// NewFileSink creates (or truncates) path and writes pictures to it.
func NewFileSink(path string) (*WriterSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create frame dump")
	}
	return NewWriterSink(f), nil
}

func (s *WriterSink) Present(pic *decoder.Picture) error {
	if s.width != pic.Width || s.height != pic.Height {
		if s.width != 0 {
			log.Warn("Frame dump size changed from %dx%d to %dx%d", s.width, s.height, pic.Width, pic.Height)
		} else {
			log.Info("Writing %dx%d I420 frames", pic.Width, pic.Height)
		}
		s.width, s.height = pic.Width, pic.Height
	}
	_, err := s.w.Write(pic.Data)
	return err
}

func (s *WriterSink) Close() error {
	err := s.w.Flush()
	if s.closer != nil {
		if cerr := s.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// StatsSink counts presented pictures and periodically logs the rate.
type StatsSink struct {
	Interval time.Duration

	mu     sync.Mutex
	frames uint64
	window uint64
	since  time.Time
	last   *decoder.Picture
	now    func() time.Time
}

func NewStatsSink(interval time.Duration) *StatsSink {
	return &StatsSink{Interval: interval, now: time.Now}
}

func (s *StatsSink) Present(pic *decoder.Picture) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.since.IsZero() {
		s.since = now
	}
	s.frames++
	s.window++
	s.last = pic

	if elapsed := now.Sub(s.since); s.Interval > 0 && elapsed >= s.Interval {
		log.Info("Presented %d frames in %v (%.1f fps), last %dx%d",
			s.window, elapsed.Round(time.Millisecond),
			float64(s.window)/elapsed.Seconds(), pic.Width, pic.Height)
		s.window = 0
		s.since = now
	}
	return nil
}

// Frames returns the total number of pictures presented.
func (s *StatsSink) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Last returns the most recently presented picture, or nil.
func (s *StatsSink) Last() *decoder.Picture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// MultiSink presents to every sink in order, stopping at the first error.
type MultiSink []Sink

func (m MultiSink) Present(pic *decoder.Picture) error {
	for _, s := range m {
		if err := s.Present(pic); err != nil {
			return err
		}
	}
	return nil
}
