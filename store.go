package ovl

import (
	"fmt"
	"os"

	"github.com/meigma/ovl/internal/ovltype"
	"github.com/meigma/ovl/internal/staging"
)

// store is the backing for extracted content: cachedStore or stagedStore.
// A nil store means the entry has not been extracted.
type store interface {
	state() State
	load() ([]byte, error)
	replace(b []byte) error
}

// cachedStore keeps content in memory. buf is never handed to callers.
type cachedStore struct {
	buf []byte
}

func (s *cachedStore) state() State { return StateCached }

func (s *cachedStore) load() ([]byte, error) {
	out := make([]byte, len(s.buf))
	copy(out, s.buf)
	return out, nil
}

func (s *cachedStore) replace(b []byte) error {
	buf := make([]byte, len(b))
	copy(buf, b)
	s.buf = buf
	return nil
}

// stagedStore keeps content in a staging file that is re-read on every load.
type stagedStore struct {
	path string
	perm os.FileMode
}

func (s *stagedStore) state() State { return StateStaged }

func (s *stagedStore) load() ([]byte, error) {
	data, err := staging.Read(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ovltype.ErrStaging, s.path, err)
	}
	return data, nil
}

func (s *stagedStore) replace(b []byte) error {
	if err := staging.Write(s.path, b, s.perm); err != nil {
		return fmt.Errorf("%w: write %s: %v", ovltype.ErrStaging, s.path, err)
	}
	return nil
}
