package render

import (
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/lanikai/avconsumer/internal/color"
	"github.com/lanikai/avconsumer/internal/decoder"
)

// SnapshotSink periodically writes the presented picture to a PNG file. The
// file is replaced atomically so viewers never see a partial image.
type SnapshotSink struct {
	Path     string
	Interval time.Duration

	last time.Time
	now  func() time.Time
}

func NewSnapshotSink(path string, interval time.Duration) *SnapshotSink {
	return &SnapshotSink{Path: path, Interval: interval, now: time.Now}
}

func (s *SnapshotSink) Present(pic *decoder.Picture) error {
	now := s.now()
	if !s.last.IsZero() && now.Sub(s.last) < s.Interval {
		return nil
	}
	s.last = now
	return writePNG(s.Path, pic)
}

func writePNG(path string, pic *decoder.Picture) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*.png")
	if err != nil {
		return errors.Wrap(err, "snapshot")
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, color.YCbCr(pic)); err != nil {
		tmp.Close()
		return errors.Wrap(err, "encode snapshot")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "snapshot")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "snapshot")
}
