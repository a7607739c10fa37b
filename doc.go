// Package ovl manages overlay segments stored inside a Nintendo DS ROM.
//
// An [Entry] lazily extracts one overlay's stored bytes from its [Container],
// decompresses them when the compress flag (or inspection of the bytes)
// says so, and caches the result either in memory or in a staging file,
// depending on the container's write mode at first extraction.
//
// # Reading
//
//	data, err := entry.Contents()
//	if err != nil {
//	    return err
//	}
//
// Every call returns a fresh copy; callers may mutate it freely.
//
// # Overriding
//
// Replacement bytes are staged with [Entry.WriteOverride]. When they exceed
// the overlay's reserved RAM region, the container is asked to grow it. At
// save time [Entry.OverrideContents] returns the bytes to write back,
// re-encoded when the compress flag demands it:
//
//	if err := entry.WriteOverride(patched); err != nil {
//	    return err
//	}
//	stored, err := entry.OverrideContents()
//	if errors.Is(err, ovl.ErrInconsistentOverride) {
//	    // stored holds best-effort bytes
//	}
//
// # Concurrency
//
// An Entry is not safe for concurrent use. Distinct entries share no state and
// may be used from different goroutines.
package ovl
