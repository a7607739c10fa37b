package ovl

import (
	"log/slog"
	"os"

	"github.com/meigma/ovl/codec"
	"github.com/meigma/ovl/internal/staging"
)

// Option configures an Entry.
type Option func(*Entry)

// WithAdapter sets the codec adapter (default: codec.NewAdapter()).
// Entries of one container typically share an adapter.
func WithAdapter(a *codec.Adapter) Option {
	return func(e *Entry) {
		if a != nil {
			e.adapter = a
		}
	}
}

// WithLogger sets the logger used for cache and recovery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Entry) {
		e.logger = logger
	}
}

// WithStagingPerm sets the permissions of the staging directory, when the
// entry has to create it, and of the staging files it writes. Zero keeps the
// default for that mode.
func WithStagingPerm(dirPerm, filePerm os.FileMode) Option {
	return func(e *Entry) {
		e.stagingOpts = nil
		if dirPerm != 0 {
			e.stagingOpts = append(e.stagingOpts, staging.WithDirPerm(dirPerm))
		}
		if filePerm != 0 {
			e.stagingOpts = append(e.stagingOpts, staging.WithFilePerm(filePerm))
		}
	}
}
