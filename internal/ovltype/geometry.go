package ovltype

// Geometry is the header information parsed for one overlay by the container loader.
type Geometry struct {
	// OverlayID is the unique index of the overlay within its table.
	OverlayID uint32

	// FileID is the file allocation table index holding the overlay's bytes.
	FileID uint32

	// Offset is the byte offset of the stored overlay within the container.
	Offset int64

	// OriginalSize is the number of bytes physically stored.
	OriginalSize int

	// RAMAddress is the runtime load address.
	RAMAddress uint32

	// RAMSize is the reserved capacity at RAMAddress.
	RAMSize int

	// BSSSize is the size of the zero-initialized region following the overlay.
	BSSSize uint32

	// StaticStart and StaticEnd bound the static initializer table.
	StaticStart uint32
	StaticEnd   uint32

	// CompressFlag is the stored compression tag.
	CompressFlag CompressFlag

	// CompressedSize is the size of the stored, possibly compressed, bytes.
	CompressedSize int
}
