package bitstream

// NAL unit types used by the normalizer (ITU-T H.264 Table 7-1).
const (
	NALTypeSlice = 1
	NALTypeIDR   = 5
	NALTypeSEI   = 6
	NALTypeSPS   = 7
	NALTypePPS   = 8
	NALTypeAUD   = 9
)

// A NALU is a single NAL unit without its start code or length prefix.
type NALU []byte

func (nalu NALU) Type() byte {
	return nalu[0] & 0x1f
}

// IsParameterSet reports whether the NALU is an SPS or PPS.
func (nalu NALU) IsParameterSet() bool {
	t := nalu.Type()
	return t == NALTypeSPS || t == NALTypePPS
}
