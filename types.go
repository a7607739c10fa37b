package ovl

import "github.com/meigma/ovl/internal/ovltype"

// Re-export types from internal/ovltype for public API.
type (
	// CompressFlag is the compression tag stored in an overlay table record.
	CompressFlag = ovltype.CompressFlag

	// State identifies where an entry's extracted content lives.
	State = ovltype.State

	// Geometry is the header information parsed for one overlay.
	Geometry = ovltype.Geometry
)

// Re-export compress flag constants.
const (
	FlagUncompressedLegacy = ovltype.FlagUncompressedLegacy
	FlagCompressedLegacy   = ovltype.FlagCompressedLegacy
	FlagUncompressed       = ovltype.FlagUncompressed
	FlagCompressed         = ovltype.FlagCompressed
)

// Re-export state constants.
const (
	StateNotExtracted = ovltype.StateNotExtracted
	StateStaged       = ovltype.StateStaged
	StateCached       = ovltype.StateCached
)

// Container is the ROM container an Entry reads from and negotiates with.
// Implementations are supplied by the container loader.
type Container interface {
	// ReadRaw returns exactly length bytes stored at offset.
	ReadRaw(offset, length int64) ([]byte, error)

	// WriteModeEnabled reports whether extracted content should be staged to
	// files. Entries query it once, at first extraction.
	WriteModeEnabled() bool

	// StagingDir returns the directory for staging files.
	StagingDir() (string, error)

	// RequestRegionGrowth asks the container to reserve newSize bytes of RAM
	// for the overlay. It is best-effort.
	RequestRegionGrowth(overlayID uint32, newSize int) error
}
