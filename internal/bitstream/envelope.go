package bitstream

import (
	"encoding/binary"
	"strings"

	errors "golang.org/x/xerrors"
)

// Producer envelope, written by the producer with its native (little-endian)
// byte order:
//
//	uint64 timestamp | uint32 payload length | payload
const EnvelopeHeaderSize = 12

var envelopeOrder = binary.LittleEndian

// EnvelopeMode selects how producer buffers are unwrapped before
// normalization.
type EnvelopeMode int

const (
	// EnvelopeAuto accepts both enveloped and bare buffers.
	EnvelopeAuto EnvelopeMode = iota
	// EnvelopeNone passes buffers through untouched.
	EnvelopeNone
	// EnvelopeRequired rejects buffers without a valid header.
	EnvelopeRequired
)

func ParseEnvelopeMode(s string) (EnvelopeMode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return EnvelopeAuto, nil
	case "raw", "none":
		return EnvelopeNone, nil
	case "envelope":
		return EnvelopeRequired, nil
	}
	return 0, errors.Errorf("unknown framing %q", s)
}

func (m EnvelopeMode) String() string {
	switch m {
	case EnvelopeAuto:
		return "auto"
	case EnvelopeNone:
		return "raw"
	case EnvelopeRequired:
		return "envelope"
	default:
		return "unknown"
	}
}

// Envelope is the header in front of an enveloped payload.
type Envelope struct {
	Timestamp uint64
	Length    uint32
}

// ReadEnvelope parses the envelope header and returns the payload it
// describes. The payload aliases b.
func ReadEnvelope(b []byte) (Envelope, []byte, error) {
	if len(b) < EnvelopeHeaderSize {
		return Envelope{}, nil, errors.Errorf("%d bytes: %w", len(b), ErrShortEnvelope)
	}
	env := Envelope{
		Timestamp: envelopeOrder.Uint64(b[0:8]),
		Length:    envelopeOrder.Uint32(b[8:12]),
	}
	if env.Length == 0 || int64(env.Length) > int64(len(b)-EnvelopeHeaderSize) {
		return env, nil, errors.Errorf("payload length %d with %d bytes available: %w",
			env.Length, len(b)-EnvelopeHeaderSize, ErrShortEnvelope)
	}
	return env, b[EnvelopeHeaderSize : EnvelopeHeaderSize+int(env.Length)], nil
}

// Unwrap strips the producer envelope according to mode. In auto mode a
// buffer that starts with an Annex B start code, or whose header does not
// describe a payload that fits, is returned as is; env is nil in that case.
func Unwrap(b []byte, mode EnvelopeMode) (payload []byte, env *Envelope, err error) {
	switch mode {
	case EnvelopeNone:
		return b, nil, nil
	case EnvelopeRequired:
		e, p, err := ReadEnvelope(b)
		if err != nil {
			return nil, nil, err
		}
		return p, &e, nil
	}

	if HasStartCode(b) {
		return b, nil, nil
	}
	if e, p, err := ReadEnvelope(b); err == nil {
		return p, &e, nil
	}
	return b, nil, nil
}
