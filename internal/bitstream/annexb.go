package bitstream

// The 4-byte start code is used for everything we emit.
var startCode = []byte{0, 0, 0, 1}

// HasStartCode reports whether b begins with an Annex B start code, either
// 0x000001 or 0x00000001.
func HasStartCode(b []byte) bool {
	if len(b) >= 3 && b[0] == 0 && b[1] == 0 && b[2] == 1 {
		return true
	}
	return len(b) >= 4 && b[0] == 0 && b[1] == 0 && b[2] == 0 && b[3] == 1
}

// SplitAnnexB returns the NAL units of an Annex B byte stream, without start
// codes. Bytes before the first start code are ignored, as are empty NAL
// units. The returned slices alias b.
func SplitAnnexB(b []byte) []NALU {
	var nalus []NALU
	start := -1
	for i := 0; i+3 <= len(b); {
		if b[i] == 0 && b[i+1] == 0 && b[i+2] == 1 {
			if start >= 0 {
				nalus = appendNALU(nalus, b[start:i])
			}
			i += 3
			start = i
			continue
		}
		i++
	}
	if start >= 0 {
		nalus = appendNALU(nalus, b[start:])
	}
	return nalus
}

func appendNALU(nalus []NALU, n []byte) []NALU {
	// Zeros at the tail belong to the next 4-byte start code (or are
	// trailing_zero_8bits). A NAL unit always ends in a nonzero byte.
	for len(n) > 0 && n[len(n)-1] == 0 {
		n = n[:len(n)-1]
	}
	if len(n) > 0 {
		nalus = append(nalus, NALU(n))
	}
	return nalus
}

// isParameterSetsOnly reports whether there is at least one NAL unit and all
// of them are SPS or PPS.
func isParameterSetsOnly(nalus []NALU) bool {
	if len(nalus) == 0 {
		return false
	}
	for _, n := range nalus {
		if !n.IsParameterSet() {
			return false
		}
	}
	return true
}

// appendAnnexB appends a 4-byte start code followed by nalu to dst.
func appendAnnexB(dst []byte, nalu []byte) []byte {
	dst = append(dst, startCode...)
	return append(dst, nalu...)
}

// JoinAnnexB builds an owned Annex B stream from individual NAL units.
func JoinAnnexB(nalus ...[]byte) []byte {
	n := 0
	for _, nalu := range nalus {
		n += len(startCode) + len(nalu)
	}
	out := make([]byte, 0, n)
	for _, nalu := range nalus {
		out = appendAnnexB(out, nalu)
	}
	return out
}
