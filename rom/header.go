package rom

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Header field offsets in the cartridge header.
const (
	offTitle         = 0x00
	offGameCode      = 0x0C
	offFATOffset     = 0x48
	offFATSize       = 0x4C
	offARM9OvtOffset = 0x50
	offARM9OvtSize   = 0x54
	minHeaderSize    = 0x58
	fatEntrySize     = 8
	titleLen         = 12
	gameCodeLen      = 4
)

// ErrMalformed is returned when the header, FAT, or overlay table is inconsistent.
var ErrMalformed = errors.New("rom: malformed image")

// Header holds the cartridge header fields the session needs.
type Header struct {
	Title       string
	GameCode    string
	FATOffset   uint32
	FATSize     uint32
	ARM9OvtOff  uint32
	ARM9OvtSize uint32
}

// fatEntry is one file allocation table row: [Start, End).
type fatEntry struct {
	Start uint32
	End   uint32
}

func readHeader(src io.ReaderAt, size int64) (Header, error) {
	if size < minHeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes is smaller than the header", ErrMalformed, size)
	}
	buf := make([]byte, minHeaderSize)
	if _, err := src.ReadAt(buf, 0); err != nil && !errors.Is(err, io.EOF) {
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	le := binary.LittleEndian
	return Header{
		Title:       cString(buf[offTitle : offTitle+titleLen]),
		GameCode:    cString(buf[offGameCode : offGameCode+gameCodeLen]),
		FATOffset:   le.Uint32(buf[offFATOffset:]),
		FATSize:     le.Uint32(buf[offFATSize:]),
		ARM9OvtOff:  le.Uint32(buf[offARM9OvtOffset:]),
		ARM9OvtSize: le.Uint32(buf[offARM9OvtSize:]),
	}, nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// readRegion reads [off, off+n) and checks it lies inside the image.
func readRegion(src io.ReaderAt, size int64, off, n uint32, what string) ([]byte, error) {
	end := int64(off) + int64(n)
	if end > size {
		return nil, fmt.Errorf("%w: %s [%#x, %#x) beyond image size %#x", ErrMalformed, what, off, end, size)
	}
	buf := make([]byte, n)
	if _, err := src.ReadAt(buf, int64(off)); err != nil && !(errors.Is(err, io.EOF) && end == size) {
		return nil, fmt.Errorf("read %s: %w", what, err)
	}
	return buf, nil
}

func parseFAT(data []byte) ([]fatEntry, error) {
	if len(data)%fatEntrySize != 0 {
		return nil, fmt.Errorf("%w: FAT size %d is not a multiple of %d", ErrMalformed, len(data), fatEntrySize)
	}
	le := binary.LittleEndian
	fat := make([]fatEntry, 0, len(data)/fatEntrySize)
	for off := 0; off < len(data); off += fatEntrySize {
		fat = append(fat, fatEntry{
			Start: le.Uint32(data[off:]),
			End:   le.Uint32(data[off+4:]),
		})
	}
	return fat, nil
}
