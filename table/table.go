// Package table reads and writes the ARM9 overlay table: one 32-byte
// little-endian record per overlay.
package table

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/meigma/ovl/internal/ovltype"
	"github.com/meigma/ovl/internal/sizing"
)

// RecordSize is the size of one overlay table record.
const RecordSize = 32

// ErrTableSize is returned when table data is not a whole number of records.
var ErrTableSize = errors.New("table: size is not a multiple of the record size")

// Record is one overlay table row.
type Record struct {
	OverlayID      uint32
	RAMAddress     uint32
	RAMSize        uint32
	BSSSize        uint32
	StaticStart    uint32
	StaticEnd      uint32
	FileID         uint32
	CompressedSize uint32 // 24 bits on disk
	CompressFlag   ovltype.CompressFlag
}

// Parse decodes every record in data.
func Parse(data []byte) ([]Record, error) {
	if len(data)%RecordSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTableSize, len(data))
	}
	records := make([]Record, 0, len(data)/RecordSize)
	for off := 0; off < len(data); off += RecordSize {
		records = append(records, parseRecord(data[off:off+RecordSize]))
	}
	return records, nil
}

func parseRecord(b []byte) Record {
	le := binary.LittleEndian
	packed := le.Uint32(b[28:])
	return Record{
		OverlayID:      le.Uint32(b[0:]),
		RAMAddress:     le.Uint32(b[4:]),
		RAMSize:        le.Uint32(b[8:]),
		BSSSize:        le.Uint32(b[12:]),
		StaticStart:    le.Uint32(b[16:]),
		StaticEnd:      le.Uint32(b[20:]),
		FileID:         le.Uint32(b[24:]),
		CompressedSize: packed & sizing.MaxUint24,
		CompressFlag:   ovltype.CompressFlag(packed >> 24),
	}
}

// Encode serializes records. Flags are written verbatim.
// It fails if a compressed size does not fit in 24 bits.
func Encode(records []Record) ([]byte, error) {
	out := make([]byte, len(records)*RecordSize)
	le := binary.LittleEndian
	for i, r := range records {
		if r.CompressedSize > sizing.MaxUint24 {
			return nil, fmt.Errorf("overlay %d: compressed size %d: %w", r.OverlayID, r.CompressedSize, ovltype.ErrSizeOverflow)
		}
		b := out[i*RecordSize : (i+1)*RecordSize]
		le.PutUint32(b[0:], r.OverlayID)
		le.PutUint32(b[4:], r.RAMAddress)
		le.PutUint32(b[8:], r.RAMSize)
		le.PutUint32(b[12:], r.BSSSize)
		le.PutUint32(b[16:], r.StaticStart)
		le.PutUint32(b[20:], r.StaticEnd)
		le.PutUint32(b[24:], r.FileID)
		le.PutUint32(b[28:], r.CompressedSize|uint32(r.CompressFlag)<<24)
	}
	return out, nil
}
