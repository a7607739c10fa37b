package rom

import (
	"log/slog"
	"os"

	"github.com/meigma/ovl/codec"
)

// defaultExtractConcurrency is used when no WithExtractConcurrency option is set.
const defaultExtractConcurrency = 4

// Option configures a Session.
type Option func(*Session)

// WithWriteMode stages extracted overlays to files instead of memory.
func WithWriteMode(enabled bool) Option {
	return func(s *Session) {
		s.writeMode = enabled
	}
}

// WithStagingDir sets the directory for staging files. The session creates it
// if needed but never removes it; only the staging files it wrote are removed
// on Close. Without this option a temporary directory is created on first use
// and removed on Close.
func WithStagingDir(dir string) Option {
	return func(s *Session) {
		s.stagingDir = dir
	}
}

// WithExtractConcurrency limits parallel extraction in ExtractAll (default: 4).
// Values < 1 are treated as 1.
func WithExtractConcurrency(n int) Option {
	return func(s *Session) {
		if n < 1 {
			n = 1
		}
		s.concurrency = n
	}
}

// WithCodec sets the byte-level codec shared by all entries (default: BLZ).
func WithCodec(c codec.Codec) Option {
	return func(s *Session) {
		s.codec = c
	}
}

// WithLogger sets the logger for the session and its entries.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithStagingPerm sets the permissions of staging directories the session or
// its entries create and of the staging files they write (default: 0o700 and
// 0o600).
func WithStagingPerm(dirPerm, filePerm os.FileMode) Option {
	return func(s *Session) {
		s.dirPerm = dirPerm
		s.filePerm = filePerm
	}
}
