package testutil

import (
	"encoding/binary"
)

// Overlay describes one overlay for BuildROM. Data is stored as given.
type Overlay struct {
	ID             uint32
	RAMAddress     uint32
	RAMSize        uint32
	CompressedSize uint32
	Flag           uint8
	Data           []byte
}

const (
	romHeaderSize = 0x200
	romRecordSize = 32
	romAlign      = 0x200
)

// BuildROM assembles a minimal DS image: header, ARM9 overlay table, FAT,
// then each overlay's data at an aligned offset. Overlay i uses file id i.
func BuildROM(title, gameCode string, overlays []Overlay) []byte {
	le := binary.LittleEndian

	ovtOff := romHeaderSize
	ovtSize := len(overlays) * romRecordSize
	fatOff := ovtOff + ovtSize
	fatSize := len(overlays) * 8

	offsets := make([]int, len(overlays))
	pos := align(fatOff + fatSize)
	for i, o := range overlays {
		offsets[i] = pos
		pos = align(pos + len(o.Data))
	}
	img := make([]byte, pos)

	copy(img[0x00:0x0C], title)
	copy(img[0x0C:0x10], gameCode)
	le.PutUint32(img[0x48:], uint32(fatOff))  //nolint:gosec // test images are small
	le.PutUint32(img[0x4C:], uint32(fatSize)) //nolint:gosec // test images are small
	le.PutUint32(img[0x50:], uint32(ovtOff))  //nolint:gosec // test images are small
	le.PutUint32(img[0x54:], uint32(ovtSize)) //nolint:gosec // test images are small

	for i, o := range overlays {
		rec := img[ovtOff+i*romRecordSize:]
		le.PutUint32(rec[0:], o.ID)
		le.PutUint32(rec[4:], o.RAMAddress)
		le.PutUint32(rec[8:], o.RAMSize)
		le.PutUint32(rec[24:], uint32(i)) //nolint:gosec // test images are small
		le.PutUint32(rec[28:], o.CompressedSize&0xFFFFFF|uint32(o.Flag)<<24)

		fat := img[fatOff+i*8:]
		le.PutUint32(fat[0:], uint32(offsets[i]))             //nolint:gosec // test images are small
		le.PutUint32(fat[4:], uint32(offsets[i]+len(o.Data))) //nolint:gosec // test images are small
		copy(img[offsets[i]:], o.Data)
	}
	return img
}

func align(n int) int {
	return (n + romAlign - 1) &^ (romAlign - 1)
}
