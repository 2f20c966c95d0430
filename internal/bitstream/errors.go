package bitstream

import (
	errors "golang.org/x/xerrors"
)

// ErrMalformed is wrapped by every rejection the normalizer produces. Callers
// drop the buffer and wait for the next one.
var ErrMalformed = errors.New("bitstream: malformed buffer")

var (
	ErrTooSmall            = errors.Errorf("buffer below minimum size: %w", ErrMalformed)
	ErrTooLarge            = errors.Errorf("buffer above maximum size: %w", ErrMalformed)
	ErrInvalidConfigRecord = errors.Errorf("invalid AVC configuration record: %w", ErrMalformed)
	ErrInvalidLength       = errors.Errorf("invalid AVCC NAL length: %w", ErrMalformed)
	ErrTrailingBytes       = errors.Errorf("trailing bytes after AVCC parse: %w", ErrMalformed)
	ErrNoPayload           = errors.Errorf("no usable payload: %w", ErrMalformed)
	ErrShortEnvelope       = errors.Errorf("envelope header invalid: %w", ErrMalformed)
)
