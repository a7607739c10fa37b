// Package testutil provides test doubles shared by package tests.
package testutil

import (
	"errors"
	"io"
	"sync"
)

// Growth records one RequestRegionGrowth call.
type Growth struct {
	OverlayID uint32
	NewSize   int
}

// MockContainer implements ovl.Container over an in-memory ROM image.
type MockContainer struct {
	mu         sync.Mutex
	data       []byte
	writeMode  bool
	stagingDir string

	// ReadErr, StagingErr, and GrowthErr force the matching call to fail.
	ReadErr    error
	StagingErr error
	GrowthErr  error

	reads       int
	writeChecks int
	growths     []Growth
}

// NewMockContainer returns a container backed by data. When stagingDir is
// non-empty write mode is enabled and staging files go there.
func NewMockContainer(data []byte, stagingDir string) *MockContainer {
	return &MockContainer{
		data:       data,
		writeMode:  stagingDir != "",
		stagingDir: stagingDir,
	}
}

// ReadRaw returns a slice of the backing data without copying, so callers
// that keep it would observe later mutations through Bytes.
func (m *MockContainer) ReadRaw(offset, length int64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	if offset < 0 || length < 0 || offset+length > int64(len(m.data)) {
		return nil, io.ErrUnexpectedEOF
	}
	return m.data[offset : offset+length], nil
}

// WriteModeEnabled reports whether a staging directory was configured.
func (m *MockContainer) WriteModeEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeChecks++
	return m.writeMode
}

// SetWriteMode flips write mode for tests that check it is only read once.
func (m *MockContainer) SetWriteMode(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeMode = enabled
}

// StagingDir returns the configured staging directory.
func (m *MockContainer) StagingDir() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StagingErr != nil {
		return "", m.StagingErr
	}
	if m.stagingDir == "" {
		return "", errors.New("no staging directory")
	}
	return m.stagingDir, nil
}

// RequestRegionGrowth records the request.
func (m *MockContainer) RequestRegionGrowth(overlayID uint32, newSize int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.growths = append(m.growths, Growth{OverlayID: overlayID, NewSize: newSize})
	return m.GrowthErr
}

// Reads returns the number of ReadRaw calls.
func (m *MockContainer) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// WriteModeChecks returns the number of WriteModeEnabled calls.
func (m *MockContainer) WriteModeChecks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeChecks
}

// Growths returns a copy of the recorded growth requests.
func (m *MockContainer) Growths() []Growth {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Growth, len(m.growths))
	copy(out, m.growths)
	return out
}

// Bytes returns the backing slice for tests that need to mutate data.
func (m *MockContainer) Bytes() []byte {
	return m.data
}
