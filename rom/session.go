// Package rom opens Nintendo DS ROM images and exposes their ARM9 overlays as
// [ovl.Entry] values.
//
// A [Session] is the container for its entries: it supplies stored bytes,
// the write mode, and the staging directory, and it records region growth
// requests so that [Session.OverlayTable] can write them back.
package rom

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/ovl"
	"github.com/meigma/ovl/codec"
	"github.com/meigma/ovl/internal/ovltype"
	"github.com/meigma/ovl/internal/sizing"
	"github.com/meigma/ovl/internal/staging"
	"github.com/meigma/ovl/table"
)

// ErrUnknownOverlay is returned for overlay ids not present in the table.
var ErrUnknownOverlay = errors.New("rom: unknown overlay")

// Interface compliance.
var _ ovl.Container = (*Session)(nil)

// Session is an open ROM image and its overlay entries.
//
// The session's Container methods are safe for concurrent use. Each entry is
// not; callers serialize access per entry.
type Session struct {
	src    io.ReaderAt
	size   int64
	closer io.Closer // nil when the caller owns src

	header  Header
	fat     []fatEntry
	entries []*ovl.Entry
	byID    map[uint32]int

	writeMode   bool
	concurrency int
	dirPerm     os.FileMode // zero keeps the staging defaults
	filePerm    os.FileMode
	codec       codec.Codec
	logger      *slog.Logger

	mu           sync.Mutex // guards records and staging state
	records      []table.Record
	stagingDir   string
	stagingOwned bool
	closed       bool
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Session) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// Open opens the ROM image at path. Close releases the file.
func Open(path string, opts ...Option) (*Session, error) {
	f, err := os.Open(path) //nolint:gosec // path is supplied by the caller
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	s, err := New(f, info.Size(), opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	s.closer = f
	return s, nil
}

// New creates a session over an image of the given size.
// The caller keeps ownership of src.
func New(src io.ReaderAt, size int64, opts ...Option) (*Session, error) {
	s := &Session{
		src:         src,
		size:        size,
		concurrency: defaultExtractConcurrency,
		byID:        make(map[uint32]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	hdr, err := readHeader(src, size)
	if err != nil {
		return nil, err
	}
	s.header = hdr

	fatData, err := readRegion(src, size, hdr.FATOffset, hdr.FATSize, "FAT")
	if err != nil {
		return nil, err
	}
	if s.fat, err = parseFAT(fatData); err != nil {
		return nil, err
	}

	ovtData, err := readRegion(src, size, hdr.ARM9OvtOff, hdr.ARM9OvtSize, "overlay table")
	if err != nil {
		return nil, err
	}
	if s.records, err = table.Parse(ovtData); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	adapterOpts := []codec.Option{codec.WithLogger(s.logger)}
	if s.codec != nil {
		adapterOpts = append(adapterOpts, codec.WithCodec(s.codec))
	}
	adapter := codec.NewAdapter(adapterOpts...)

	entryOpts := []ovl.Option{ovl.WithAdapter(adapter), ovl.WithLogger(s.logger)}
	if s.dirPerm != 0 || s.filePerm != 0 {
		entryOpts = append(entryOpts, ovl.WithStagingPerm(s.dirPerm, s.filePerm))
	}

	s.entries = make([]*ovl.Entry, 0, len(s.records))
	for i, r := range s.records {
		if _, dup := s.byID[r.OverlayID]; dup {
			return nil, fmt.Errorf("%w: duplicate overlay id %d", ErrMalformed, r.OverlayID)
		}
		geo, err := s.geometry(r)
		if err != nil {
			return nil, err
		}
		s.byID[r.OverlayID] = i
		s.entries = append(s.entries, ovl.NewEntry(geo, s, entryOpts...))
	}

	s.log().Debug("rom opened",
		slog.String("title", hdr.Title),
		slog.String("game_code", hdr.GameCode),
		slog.Int("overlays", len(s.entries)),
		slog.Int("files", len(s.fat)))

	return s, nil
}

// geometry resolves a table record against the FAT.
func (s *Session) geometry(r table.Record) (ovl.Geometry, error) {
	if int64(r.FileID) >= int64(len(s.fat)) {
		return ovl.Geometry{}, fmt.Errorf("%w: overlay %d references file %d of %d",
			ErrMalformed, r.OverlayID, r.FileID, len(s.fat))
	}
	f := s.fat[r.FileID]
	if f.End < f.Start || int64(f.End) > s.size {
		return ovl.Geometry{}, fmt.Errorf("%w: overlay %d file %d spans [%#x, %#x)",
			ErrMalformed, r.OverlayID, r.FileID, f.Start, f.End)
	}
	stored, err := sizing.ToInt(f.End-f.Start, ovltype.ErrSizeOverflow)
	if err != nil {
		return ovl.Geometry{}, err
	}
	ramSize, err := sizing.ToInt(r.RAMSize, ovltype.ErrSizeOverflow)
	if err != nil {
		return ovl.Geometry{}, err
	}
	compressed, err := sizing.ToInt(r.CompressedSize, ovltype.ErrSizeOverflow)
	if err != nil {
		return ovl.Geometry{}, err
	}
	return ovl.Geometry{
		OverlayID:      r.OverlayID,
		FileID:         r.FileID,
		Offset:         int64(f.Start),
		OriginalSize:   stored,
		RAMAddress:     r.RAMAddress,
		RAMSize:        ramSize,
		BSSSize:        r.BSSSize,
		StaticStart:    r.StaticStart,
		StaticEnd:      r.StaticEnd,
		CompressFlag:   r.CompressFlag,
		CompressedSize: compressed,
	}, nil
}

// Header returns the parsed cartridge header.
func (s *Session) Header() Header {
	return s.header
}

// Entries returns the overlay entries in table order.
func (s *Session) Entries() []*ovl.Entry {
	return slices.Clone(s.entries)
}

// Entry returns the entry for an overlay id.
func (s *Session) Entry(id uint32) (*ovl.Entry, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return s.entries[i], true
}

// ReadRaw implements ovl.Container.
func (s *Session) ReadRaw(offset, length int64) ([]byte, error) {
	end, ok := sizing.AddInt64(offset, length)
	if !ok || end > s.size {
		return nil, fmt.Errorf("read [%d, +%d) beyond image size %d: %w", offset, length, s.size, io.ErrUnexpectedEOF)
	}
	buf := make([]byte, length)
	n, err := s.src.ReadAt(buf, offset)
	if n == len(buf) {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("read [%d, +%d): %w", offset, length, err)
}

// WriteModeEnabled implements ovl.Container.
func (s *Session) WriteModeEnabled() bool {
	return s.writeMode
}

// StagingDir implements ovl.Container. Without WithStagingDir a temporary
// directory is created on first call.
func (s *Session) StagingDir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", errors.New("rom: session closed")
	}
	if s.stagingDir != "" {
		return s.stagingDir, nil
	}
	dir, err := os.MkdirTemp("", "ovl-stage-*")
	if err != nil {
		return "", err
	}
	if s.dirPerm != 0 {
		if err := os.Chmod(dir, s.dirPerm); err != nil {
			_ = os.RemoveAll(dir)
			return "", err
		}
	}
	s.stagingDir = dir
	s.stagingOwned = true
	return dir, nil
}

// RequestRegionGrowth implements ovl.Container. The overlay's RAM size in the
// table is raised to newSize; smaller requests leave it unchanged.
func (s *Session) RequestRegionGrowth(overlayID uint32, newSize int) error {
	i, ok := s.byID[overlayID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownOverlay, overlayID)
	}
	size, err := sizing.ToUint32(newSize, ovltype.ErrSizeOverflow)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.records[i].RAMSize
	if size <= old {
		return nil
	}
	s.records[i].RAMSize = size
	s.log().Info("overlay region grown",
		slog.Uint64("overlay", uint64(overlayID)),
		slog.Uint64("ram_address", uint64(s.records[i].RAMAddress)),
		slog.Uint64("old_size", uint64(old)),
		slog.Uint64("new_size", uint64(size)))
	return nil
}

// RAMSize returns the current reserved RAM size for an overlay, including
// any growth granted during the session.
func (s *Session) RAMSize(overlayID uint32) (uint32, bool) {
	i, ok := s.byID[overlayID]
	if !ok {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[i].RAMSize, true
}

// ExtractAll extracts every overlay, up to the configured concurrency at a
// time. It stops scheduling new extractions after the first failure or when
// ctx is canceled.
func (s *Session) ExtractAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, e := range s.entries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			_, err := e.Contents()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Changed returns the ids of overlays whose content differs from what was
// first extracted, in table order.
func (s *Session) Changed() ([]uint32, error) {
	var ids []uint32
	for _, e := range s.entries {
		modified, err := e.Modified()
		if err != nil {
			return nil, err
		}
		if modified {
			ids = append(ids, e.OverlayID())
		}
	}
	return ids, nil
}

// Overrides returns the write-back bytes of every overridden overlay, keyed
// by overlay id. Entries in an inconsistent state contribute their
// best-effort bytes and are logged; any other failure aborts.
func (s *Session) Overrides() (map[uint32][]byte, error) {
	out := make(map[uint32][]byte)
	for _, e := range s.entries {
		if !e.HasOverride() {
			continue
		}
		data, err := e.OverrideContents()
		if errors.Is(err, ovl.ErrInconsistentOverride) {
			s.log().Warn("writing overlay in inconsistent state",
				slog.Uint64("overlay", uint64(e.OverlayID())),
				slog.Any("error", err))
			err = nil
		}
		if err != nil {
			return nil, err
		}
		out[e.OverlayID()] = data
	}
	return out, nil
}

// OverlayTable encodes the overlay table with grown RAM sizes and the
// compressed sizes of overridden entries. Call it after Overrides so
// compressed sizes are current.
func (s *Session) OverlayTable() ([]byte, error) {
	s.mu.Lock()
	records := slices.Clone(s.records)
	s.mu.Unlock()

	for i, e := range s.entries {
		if !e.HasOverride() {
			continue
		}
		size, err := sizing.ToUint24(e.CompressedSize(), ovltype.ErrSizeOverflow)
		if err != nil {
			return nil, fmt.Errorf("overlay %d: %w", e.OverlayID(), err)
		}
		records[i].CompressedSize = size
	}
	return table.Encode(records)
}

// Close removes staging files and releases the image file when the session
// opened it. Removal is best-effort; all failures are joined.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	dir, owned := s.stagingDir, s.stagingOwned
	s.mu.Unlock()

	var errs []error
	switch {
	case owned:
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, err)
		}
	case dir != "":
		for _, e := range s.entries {
			if path, ok := e.StagingPath(); ok {
				if err := staging.Remove(path); err != nil {
					errs = append(errs, err)
				}
			}
		}
	}
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
