package ovltype

// CompressFlag is the compression tag stored in an overlay table record.
// Values outside the known set are preserved verbatim and treated as uncompressed.
type CompressFlag uint8

const (
	FlagUncompressedLegacy CompressFlag = iota
	FlagCompressedLegacy
	FlagUncompressed
	FlagCompressed
)

// String returns the human-readable name of the flag.
func (f CompressFlag) String() string {
	switch f {
	case FlagUncompressedLegacy:
		return "uncompressed-legacy"
	case FlagCompressedLegacy:
		return "compressed-legacy"
	case FlagUncompressed:
		return "uncompressed"
	case FlagCompressed:
		return "compressed"
	default:
		return "unknown"
	}
}
