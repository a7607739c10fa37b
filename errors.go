package ovl

import "github.com/meigma/ovl/internal/ovltype"

// Sentinel errors re-exported from internal/ovltype.
var (
	// ErrRawRead is returned when the container cannot supply an entry's stored bytes.
	ErrRawRead = ovltype.ErrRawRead

	// ErrStaging is returned when a staging file cannot be written or read.
	ErrStaging = ovltype.ErrStaging

	// ErrCodec is returned when a mandated decode or encode fails.
	ErrCodec = ovltype.ErrCodec

	// ErrInconsistentOverride is returned together with best-effort bytes by
	// OverrideContents when a compressed entry's content was never decompressed.
	ErrInconsistentOverride = ovltype.ErrInconsistentOverride

	// ErrNoOverride is returned by OverrideContents for entries never overridden.
	ErrNoOverride = ovltype.ErrNoOverride

	// ErrRegionGrowth is returned when the container fails to grow a RAM region.
	ErrRegionGrowth = ovltype.ErrRegionGrowth

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = ovltype.ErrSizeOverflow
)
