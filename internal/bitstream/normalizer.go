package bitstream

import (
	errors "golang.org/x/xerrors"
)

const (
	DefaultMinSize = 5
	DefaultMaxSize = 4 * 1024 * 1024
)

// Kind classifies a normalized buffer.
type Kind int

const (
	// Config buffers carry only SPS/PPS and must never reach the decoder as a
	// picture.
	Config Kind = iota + 1
	// Picture buffers are Annex B access units ready to be decoded.
	Picture
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "config"
	case Picture:
		return "picture"
	default:
		return "unknown"
	}
}

// Framing describes how the input buffer was framed on the wire.
type Framing int

const (
	FramingAnnexB Framing = iota + 1
	FramingConfigRecord
	FramingAVCC
)

func (f Framing) String() string {
	switch f {
	case FramingAnnexB:
		return "annexb"
	case FramingConfigRecord:
		return "avcC"
	case FramingAVCC:
		return "avcc"
	default:
		return "unknown"
	}
}

// An AccessUnit is an owned Annex B byte stream for one coded picture,
// possibly preceded by injected SPS/PPS.
type AccessUnit []byte

// Result is the outcome of normalizing one buffer. Exactly one of Config and
// Unit is set, according to Kind.
type Result struct {
	Kind    Kind
	Framing Framing
	Config  ConfigRecord
	Unit    AccessUnit

	// Number of NAL units found.
	NALUs int
}

// Normalizer classifies raw producer buffers. It holds no per-stream state,
// so a single Normalizer may be shared.
type Normalizer struct {
	MinSize int
	MaxSize int
}

func NewNormalizer() *Normalizer {
	return &Normalizer{
		MinSize: DefaultMinSize,
		MaxSize: DefaultMaxSize,
	}
}

// Normalize classifies buf as configuration or picture data, converting it to
// Annex B. Rejections wrap ErrMalformed. The result never aliases buf.
func (n *Normalizer) Normalize(buf []byte) (Result, error) {
	if len(buf) < n.MinSize {
		return Result{}, errors.Errorf("%d bytes: %w", len(buf), ErrTooSmall)
	}
	if n.MaxSize > 0 && len(buf) > n.MaxSize {
		return Result{}, errors.Errorf("%d bytes: %w", len(buf), ErrTooLarge)
	}

	if HasStartCode(buf) {
		nalus := SplitAnnexB(buf)
		if len(nalus) == 0 {
			return Result{}, errors.Errorf("start code without NAL units: %w", ErrNoPayload)
		}
		owned := append([]byte(nil), buf...)
		if isParameterSetsOnly(nalus) {
			return Result{Kind: Config, Framing: FramingAnnexB, Config: owned, NALUs: len(nalus)}, nil
		}
		return Result{Kind: Picture, Framing: FramingAnnexB, Unit: owned, NALUs: len(nalus)}, nil
	}

	// Configuration records are checked before AVCC so that a bare record is
	// never decoded as a picture.
	if rec, count, err := ParseConfigRecord(buf); err == nil {
		return Result{Kind: Config, Framing: FramingConfigRecord, Config: rec, NALUs: count}, nil
	}

	unit, count, err := AVCCToAnnexB(buf)
	if err != nil {
		return Result{}, err
	}
	if nalus := SplitAnnexB(unit); isParameterSetsOnly(nalus) {
		return Result{Kind: Config, Framing: FramingAVCC, Config: ConfigRecord(unit), NALUs: count}, nil
	}
	return Result{Kind: Picture, Framing: FramingAVCC, Unit: unit, NALUs: count}, nil
}
