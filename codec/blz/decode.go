package blz

import (
	"encoding/binary"
	"fmt"
)

// Decode decompresses src into a new buffer.
// A buffer whose last word is zero is returned as stored, minus that word.
func Decode(src []byte) ([]byte, error) {
	if len(src) < 4 {
		return nil, ErrInputTooShort
	}

	inc := int(binary.LittleEndian.Uint32(src[len(src)-4:]))
	if inc == 0 {
		out := make([]byte, len(src)-4)
		copy(out, src)
		return out, nil
	}
	if len(src) < FooterSize {
		return nil, ErrInputTooShort
	}

	hdrLen := int(src[len(src)-5])
	if hdrLen < MinHeaderLen || hdrLen > MaxHeaderLen {
		return nil, fmt.Errorf("%w: %d", ErrBadHeader, hdrLen)
	}
	encLen := int(binary.LittleEndian.Uint32(src[len(src)-8:]) & 0xFFFFFF)
	if encLen < hdrLen || encLen > len(src) {
		return nil, fmt.Errorf("%w: packed=%d input=%d", ErrBadLength, encLen, len(src))
	}

	decLen := len(src) - encLen
	pakLen := encLen - hdrLen
	// Each flag byte covers at most 8*MaxMatch output bytes in 17 packed bytes.
	if encLen+inc > pakLen*9 {
		return nil, fmt.Errorf("%w: growth=%d packed=%d", ErrBadLength, inc, pakLen)
	}
	rawLen := decLen + encLen + inc

	out := make([]byte, rawLen)
	copy(out, src[:decLen])

	pak := make([]byte, pakLen)
	copy(pak, src[decLen:decLen+pakLen])
	invert(pak)

	if err := unpack(pak, out[decLen:]); err != nil {
		return nil, err
	}
	invert(out[decLen:])

	return out, nil
}

// unpack decodes the inverted packed stream forward into dst.
func unpack(pak, dst []byte) error {
	p, r := 0, 0
	var flags, mask byte

	for r < len(dst) {
		mask >>= 1
		if mask == 0 {
			if p >= len(pak) {
				return fmt.Errorf("%w: wrote %d of %d", ErrTruncated, r, len(dst))
			}
			flags = pak[p]
			p++
			mask = 0x80
		}

		if flags&mask == 0 {
			if p >= len(pak) {
				return fmt.Errorf("%w: wrote %d of %d", ErrTruncated, r, len(dst))
			}
			dst[r] = pak[p]
			p++
			r++
			continue
		}

		if p+1 >= len(pak) {
			return fmt.Errorf("%w: wrote %d of %d", ErrTruncated, r, len(dst))
		}
		ref := int(pak[p])<<8 | int(pak[p+1])
		p += 2

		length := ref>>12 + MinMatch
		disp := ref&0xFFF + MinDisp
		if disp > r {
			return fmt.Errorf("%w: disp=%d pos=%d", ErrBadReference, disp, r)
		}
		if r+length > len(dst) {
			length = len(dst) - r
		}
		// Byte-by-byte so overlapping references repeat freshly written output.
		for k := 0; k < length; k++ {
			dst[r] = dst[r-disp]
			r++
		}
	}

	return nil
}
