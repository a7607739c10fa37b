package ovltype

import "errors"

// Sentinel errors for overlay operations.
var (
	// ErrRawRead is returned when the container cannot supply an entry's stored bytes.
	ErrRawRead = errors.New("ovl: raw read failed")

	// ErrStaging is returned when a staging file cannot be written, read, or removed.
	ErrStaging = errors.New("ovl: staging failed")

	// ErrCodec is returned when a mandated decode or encode fails.
	ErrCodec = errors.New("ovl: codec failed")

	// ErrInconsistentOverride is returned alongside best-effort bytes when an
	// entry flagged as compressed holds content that was never decompressed.
	ErrInconsistentOverride = errors.New("ovl: override content was never decompressed")

	// ErrNoOverride is returned when override contents are requested for an
	// entry that was never overridden.
	ErrNoOverride = errors.New("ovl: no override recorded")

	// ErrRegionGrowth is returned when the container rejects a region growth request.
	ErrRegionGrowth = errors.New("ovl: region growth failed")

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = errors.New("ovl: size overflow")
)
