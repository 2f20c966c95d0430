package bitstream

import (
	"github.com/nareix/joy4/codec/h264parser"
	errors "golang.org/x/xerrors"

	"github.com/lanikai/avconsumer/internal/packet"
)

// A ConfigRecord holds SPS/PPS NAL units in Annex B form. It is always an
// owned copy.
type ConfigRecord []byte

// AVCDecoderConfigurationRecord (ISO/IEC 14496-15 5.2.4.1):
//
//	byte 0     configurationVersion (= 1)
//	byte 1-3   profile, compatibility, level
//	byte 4     6 bits reserved | lengthSizeMinusOne (2 bits)
//	byte 5     3 bits reserved | numOfSequenceParameterSets (5 bits)
//	           { uint16 length, SPS } * numOfSequenceParameterSets
//	byte n     numOfPictureParameterSets
//	           { uint16 length, PPS } * numOfPictureParameterSets
const (
	configRecordVersion = 1
	configRecordMinSize = 7
)

// ParseConfigRecord extracts SPS and PPS units from an
// AVCDecoderConfigurationRecord and re-emits them with 4-byte start codes.
func ParseConfigRecord(b []byte) (ConfigRecord, int, error) {
	if len(b) < configRecordMinSize {
		return nil, 0, errors.Errorf("%d bytes: %w", len(b), ErrInvalidConfigRecord)
	}
	if version, _ := packet.NewReader(b).ReadByte(); version != configRecordVersion {
		return nil, 0, errors.Errorf("version %d: %w", version, ErrInvalidConfigRecord)
	}

	var rec h264parser.AVCDecoderConfRecord
	if _, err := rec.Unmarshal(b); err != nil {
		return nil, 0, errors.Errorf("%v: %w", err, ErrInvalidConfigRecord)
	}

	var out ConfigRecord
	count := 0
	for _, sets := range [][][]byte{rec.SPS, rec.PPS} {
		for _, nalu := range sets {
			if len(nalu) == 0 {
				return nil, 0, errors.Errorf("empty parameter set: %w", ErrInvalidConfigRecord)
			}
			out = appendAnnexB(out, nalu)
			count++
		}
	}
	if count == 0 {
		return nil, 0, errors.Errorf("no parameter sets: %w", ErrInvalidConfigRecord)
	}
	return out, count, nil
}

// Dimensions returns the picture size announced by the first SPS in the
// record, or zeros when it cannot be parsed.
func (c ConfigRecord) Dimensions() (width, height int) {
	for _, nalu := range SplitAnnexB(c) {
		if nalu.Type() != NALTypeSPS {
			continue
		}
		info, err := h264parser.ParseSPS(nalu)
		if err != nil {
			return 0, 0
		}
		return int(info.Width), int(info.Height)
	}
	return 0, 0
}
