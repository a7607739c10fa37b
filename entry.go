package ovl

import (
	"bytes"
	_ "crypto/sha256" // digest.Canonical
	"fmt"
	"hash/crc32"
	"log/slog"
	"strconv"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/ovl/codec"
	"github.com/meigma/ovl/internal/ovltype"
	"github.com/meigma/ovl/internal/staging"
)

// Entry is one overlay segment of a ROM container.
//
// Content is extracted on first use and kept in memory or in a staging file
// for the rest of the entry's life. An Entry is not safe for concurrent use.
type Entry struct {
	geo       Geometry
	container Container
	adapter   *codec.Adapter
	logger    *slog.Logger

	stagingOpts []staging.Option

	store           store // nil until extracted
	size            int
	compressedSize  int
	wasDecompressed bool
	hasOverride     bool

	originalCRC32  uint32
	originalDigest digest.Digest
	baseline       digest.Digest // content digest at extraction
}

// NewEntry creates an entry for the overlay described by geo.
// The container must outlive the entry.
func NewEntry(geo Geometry, c Container, opts ...Option) *Entry {
	e := &Entry{
		geo:            geo,
		container:      c,
		size:           geo.OriginalSize,
		compressedSize: geo.CompressedSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.adapter == nil {
		e.adapter = codec.NewAdapter(codec.WithLogger(e.logger))
	}
	return e
}

// log returns the logger, falling back to a discard logger if nil.
func (e *Entry) log() *slog.Logger {
	if e.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.logger
}

// OverlayID returns the overlay's unique index.
func (e *Entry) OverlayID() uint32 { return e.geo.OverlayID }

// FileID returns the overlay's file allocation table index.
func (e *Entry) FileID() uint32 { return e.geo.FileID }

// Geometry returns the header geometry the entry was created with.
func (e *Entry) Geometry() Geometry { return e.geo }

// CompressFlag returns the stored compress flag.
func (e *Entry) CompressFlag() CompressFlag { return e.geo.CompressFlag }

// RAMSize returns the reserved runtime capacity from the header.
func (e *Entry) RAMSize() int { return e.geo.RAMSize }

// Size returns the logical size: the stored size until content is extracted
// or overridden.
func (e *Entry) Size() int { return e.size }

// CompressedSize returns the size of the bytes that will be written back.
// For compressed entries it is stale between WriteOverride and the next
// OverrideContents.
func (e *Entry) CompressedSize() int { return e.compressedSize }

// State returns where the extracted content lives.
func (e *Entry) State() State {
	if e.store == nil {
		return StateNotExtracted
	}
	return e.store.state()
}

// WasDecompressed reports whether the cached content came out of a decode step.
func (e *Entry) WasDecompressed() bool { return e.wasDecompressed }

// HasOverride reports whether WriteOverride has succeeded at least once.
func (e *Entry) HasOverride() bool { return e.hasOverride }

// OriginalCRC32 returns the IEEE CRC-32 of the stored bytes at first read.
// It is zero until the entry is extracted.
func (e *Entry) OriginalCRC32() uint32 { return e.originalCRC32 }

// OriginalDigest returns the SHA-256 digest of the stored bytes at first read.
// It is empty until the entry is extracted.
func (e *Entry) OriginalDigest() digest.Digest { return e.originalDigest }

// StagingPath returns the staging file path when the entry is staged.
func (e *Entry) StagingPath() (string, bool) {
	s, ok := e.store.(*stagedStore)
	if !ok {
		return "", false
	}
	return s.path, true
}

// Contents returns a copy of the overlay's content, decompressed when needed.
//
// The first call reads the stored bytes from the container and fixes the
// caching strategy; later calls are served from memory or from the staging
// file. On error the entry is left as it was.
func (e *Entry) Contents() ([]byte, error) {
	if e.store != nil {
		return e.store.load()
	}
	return e.extract()
}

// extract performs the first physical read and commits the entry's store.
func (e *Entry) extract() ([]byte, error) {
	raw, err := e.container.ReadRaw(e.geo.Offset, int64(e.geo.OriginalSize))
	if err != nil {
		return nil, fmt.Errorf("%w: overlay %d at %d: %v", ovltype.ErrRawRead, e.geo.OverlayID, e.geo.Offset, err)
	}
	if len(raw) != e.geo.OriginalSize {
		return nil, fmt.Errorf("%w: overlay %d: short read (%d of %d bytes)",
			ovltype.ErrRawRead, e.geo.OverlayID, len(raw), e.geo.OriginalSize)
	}
	crc := crc32.ChecksumIEEE(raw)
	dgst := digest.FromBytes(raw)

	data, decoded, err := e.adapter.DecodeIfNeeded(raw, e.geo.CompressFlag)
	if err != nil {
		return nil, fmt.Errorf("overlay %d: %w", e.geo.OverlayID, err)
	}
	if !decoded {
		// raw may alias container storage.
		data = bytes.Clone(data)
	}

	var st store
	var out []byte
	if e.container.WriteModeEnabled() {
		staged, err := e.stage(data)
		if err != nil {
			return nil, err
		}
		st = staged
		out = data
	} else {
		cs := &cachedStore{buf: data}
		st = cs
		out, _ = cs.load() //nolint:errcheck // in-memory load never fails
	}

	e.store = st
	e.size = len(data)
	e.wasDecompressed = decoded
	e.originalCRC32 = crc
	e.originalDigest = dgst
	e.baseline = digest.FromBytes(data)

	e.log().Debug("overlay extracted",
		slog.Uint64("overlay", uint64(e.geo.OverlayID)),
		slog.String("state", st.state().String()),
		slog.Int("stored", len(raw)),
		slog.Int("size", len(data)),
		slog.Bool("decompressed", decoded))

	return out, nil
}

// stage writes data to a fresh staging file named after the overlay id.
func (e *Entry) stage(data []byte) (*stagedStore, error) {
	dir, err := e.container.StagingDir()
	if err != nil {
		return nil, fmt.Errorf("%w: overlay %d: staging dir: %v", ovltype.ErrStaging, e.geo.OverlayID, err)
	}
	st, err := staging.New(dir, e.stagingOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: overlay %d: %v", ovltype.ErrStaging, e.geo.OverlayID, err)
	}
	path, err := st.Put(strconv.FormatUint(uint64(e.geo.OverlayID), 10), data)
	if err != nil {
		return nil, fmt.Errorf("%w: overlay %d: %v", ovltype.ErrStaging, e.geo.OverlayID, err)
	}
	return &stagedStore{path: path, perm: st.FilePerm()}, nil
}

// WriteOverride replaces the overlay's content with b.
//
// An unextracted entry is extracted first so the override always sits on an
// established store. For entries that are written back uncompressed the
// compressed size becomes len(b) immediately; for compressed entries it is
// recomputed by the next OverrideContents. When len(b) exceeds the reserved
// RAM size the container is asked to grow the region; a failure there wraps
// ErrRegionGrowth but the override stays staged.
func (e *Entry) WriteOverride(b []byte) error {
	if e.store == nil {
		if _, err := e.extract(); err != nil {
			return err
		}
	}

	if err := e.store.replace(b); err != nil {
		return fmt.Errorf("overlay %d: %w", e.geo.OverlayID, err)
	}

	e.size = len(b)
	e.hasOverride = true
	if !codec.Compresses(e.geo.CompressFlag) {
		e.compressedSize = len(b)
	}

	if len(b) > e.geo.RAMSize {
		if err := e.container.RequestRegionGrowth(e.geo.OverlayID, len(b)); err != nil {
			e.log().Warn("region growth failed",
				slog.Uint64("overlay", uint64(e.geo.OverlayID)),
				slog.Int("ram_size", e.geo.RAMSize),
				slog.Int("new_size", len(b)),
				slog.Any("error", err))
			return fmt.Errorf("%w: overlay %d to %d bytes: %v", ovltype.ErrRegionGrowth, e.geo.OverlayID, len(b), err)
		}
	}

	return nil
}

// OverrideContents returns the bytes to write back for an overridden entry.
//
// Entries that were never overridden return ErrNoOverride. When the compress
// flag demands compression and the content was decompressed on load, the
// content is re-encoded and CompressedSize updated. When the flag demands
// compression but the content was never decompressed, the bytes are returned
// unchanged together with an error wrapping ErrInconsistentOverride; callers
// may treat that as a warning and use the bytes.
func (e *Entry) OverrideContents() ([]byte, error) {
	if e.store == nil || !e.hasOverride {
		return nil, fmt.Errorf("overlay %d: %w", e.geo.OverlayID, ovltype.ErrNoOverride)
	}

	data, err := e.store.load()
	if err != nil {
		return nil, fmt.Errorf("overlay %d: %w", e.geo.OverlayID, err)
	}

	if !codec.Compresses(e.geo.CompressFlag) {
		return data, nil
	}

	if !e.wasDecompressed {
		e.log().Warn("compressed overlay content was never decompressed; returning it unchanged",
			slog.Uint64("overlay", uint64(e.geo.OverlayID)),
			slog.String("flag", e.geo.CompressFlag.String()))
		return data, fmt.Errorf("overlay %d: %w", e.geo.OverlayID, ovltype.ErrInconsistentOverride)
	}

	enc, err := e.adapter.Encode(data)
	if err != nil {
		return nil, fmt.Errorf("overlay %d: %w", e.geo.OverlayID, err)
	}
	e.compressedSize = len(enc)
	return enc, nil
}

// ContentDigest returns the SHA-256 digest of the current content.
// It extracts the entry if needed.
func (e *Entry) ContentDigest() (digest.Digest, error) {
	data, err := e.Contents()
	if err != nil {
		return "", err
	}
	return digest.FromBytes(data), nil
}

// Modified reports whether the current content differs from the content
// first extracted. Unextracted entries are never modified.
func (e *Entry) Modified() (bool, error) {
	if e.store == nil {
		return false, nil
	}
	d, err := e.ContentDigest()
	if err != nil {
		return false, err
	}
	return d != e.baseline, nil
}
