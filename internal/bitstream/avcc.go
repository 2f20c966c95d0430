package bitstream

import (
	errors "golang.org/x/xerrors"

	"github.com/lanikai/avconsumer/internal/packet"
)

// AVCC framing: each NAL unit is preceded by a 4-byte big-endian length.
//
//	+--------+--------+--------+--------+-----------------+--------+---
//	|            length (N)             |  NAL unit (N)   | length | ...
//	+--------+--------+--------+--------+-----------------+--------+---
const avccLengthSize = 4

// AVCCToAnnexB converts a length-prefixed buffer into an owned Annex B stream.
// Every length must be nonzero and fit in the remaining buffer, and the
// buffer must be consumed exactly.
func AVCCToAnnexB(b []byte) ([]byte, int, error) {
	// Each 4-byte length becomes a 4-byte start code, so the output is the same
	// size as the input.
	out := make([]byte, 0, len(b))
	count := 0

	r := packet.NewReader(b)
	for r.Remaining() >= avccLengthSize {
		at := r.Offset()
		n, _ := r.ReadUint32()
		if n == 0 || int64(n) > int64(r.Remaining()) {
			return nil, 0, errors.Errorf("length %d at offset %d of %d: %w", n, at, len(b), ErrInvalidLength)
		}
		nalu, _ := r.ReadSlice(int(n))
		out = appendAnnexB(out, nalu)
		count++
	}
	if r.Remaining() != 0 {
		return nil, 0, errors.Errorf("stopped at offset %d of %d: %w", r.Offset(), len(b), ErrTrailingBytes)
	}
	if count == 0 {
		return nil, 0, errors.Errorf("no NAL units: %w", ErrNoPayload)
	}
	return out, count, nil
}

// AnnexBToAVCC is the inverse of AVCCToAnnexB, producing 4-byte length
// prefixes.
func AnnexBToAVCC(b []byte) []byte {
	nalus := SplitAnnexB(b)
	w := packet.NewWriterSize(len(b) + avccLengthSize*len(nalus))
	for _, nalu := range nalus {
		w.WriteUint32(uint32(len(nalu)))
		w.WriteSlice(nalu)
	}
	return w.Bytes()
}
