package blz

import "encoding/binary"

// Encode compresses src.
//
// The tail of src is packed up to the point that gives the smallest output; the
// remaining head is kept verbatim so the result can be decoded in place. When
// packing does not pay off, src is stored as is behind a zero footer word.
func Encode(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return storeRaw(src), nil
	}

	raw := make([]byte, len(src))
	copy(raw, src)
	invert(raw)

	pak, pakTmp, rawTmp := pack(raw)

	hdrLen := MinHeaderLen + (4-(rawTmp+pakTmp)%4)%4
	inc := len(src) - pakTmp - rawTmp - hdrLen
	if pakTmp == 0 || inc <= 0 {
		return storeRaw(src), nil
	}

	invert(pak)
	out := make([]byte, 0, rawTmp+pakTmp+hdrLen)
	out = append(out, src[:rawTmp]...)
	out = append(out, pak[len(pak)-pakTmp:]...)
	for len(out)%4 != 0 {
		out = append(out, PadByte)
	}
	encLen := pakTmp + hdrLen

	var footer [FooterSize]byte
	binary.LittleEndian.PutUint32(footer[:4], uint32(encLen)|uint32(hdrLen)<<24) //nolint:gosec // encLen < len(src)
	binary.LittleEndian.PutUint32(footer[4:], uint32(inc))                      //nolint:gosec // inc > 0 when packing pays off
	out = append(out, footer[:]...)

	return out, nil
}

// pack encodes the inverted input forward. It returns the packed stream and the
// cut point (packed bytes, remaining raw bytes) that minimises their sum.
func pack(raw []byte) (pak []byte, pakTmp, rawTmp int) {
	pak = make([]byte, 0, len(raw)+(len(raw)+7)/8)
	rawTmp = len(raw)

	var mask byte
	flagPos := -1
	i := 0
	for i < len(raw) {
		mask >>= 1
		if mask == 0 {
			flagPos = len(pak)
			pak = append(pak, 0)
			mask = 0x80
		}

		length, disp := search(raw, i)
		if length >= MinMatch {
			pak[flagPos] |= mask
			ref := (length-MinMatch)<<12 | (disp - MinDisp)
			pak = append(pak, byte(ref>>8), byte(ref))
			i += length
		} else {
			pak = append(pak, raw[i])
			i++
		}

		if len(pak)+len(raw)-i < pakTmp+rawTmp {
			pakTmp = len(pak)
			rawTmp = len(raw) - i
		}
	}

	return pak, pakTmp, rawTmp
}

// search finds the longest earlier match for raw[pos:] within the displacement window.
func search(raw []byte, pos int) (bestLen, bestDisp int) {
	maxDisp := pos
	if maxDisp > MaxDisp {
		maxDisp = MaxDisp
	}
	maxLen := len(raw) - pos
	if maxLen > MaxMatch {
		maxLen = MaxMatch
	}
	if maxLen < MinMatch {
		return 0, 0
	}

	for disp := MinDisp; disp <= maxDisp; disp++ {
		n := 0
		for n < maxLen && raw[pos+n] == raw[pos+n-disp] {
			n++
		}
		if n > bestLen {
			bestLen = n
			bestDisp = disp
			if bestLen == maxLen {
				break
			}
		}
	}

	return bestLen, bestDisp
}

// storeRaw returns src followed by a zero footer word.
func storeRaw(src []byte) []byte {
	out := make([]byte, 0, len(src)+4)
	out = append(out, src...)
	return append(out, 0, 0, 0, 0)
}
