package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/ovl/codec/blz"
	"github.com/meigma/ovl/internal/testutil"
)

func writeROM(t *testing.T) (path string, decoded []byte) {
	t.Helper()
	decoded = bytes.Repeat([]byte("overlay!"), 40)
	packed, err := blz.Encode(decoded)
	require.NoError(t, err)

	img := testutil.BuildROM("OVLTOOL", "AOVT", []testutil.Overlay{
		{ID: 0, RAMAddress: 0x02100000, RAMSize: 16, CompressedSize: 16, Data: bytes.Repeat([]byte{0x0A}, 16)},
		{ID: 3, RAMAddress: 0x02110000, RAMSize: 320, CompressedSize: uint32(len(packed)), Flag: 3, Data: packed},
	})
	path = filepath.Join(t.TempDir(), "test.nds")
	require.NoError(t, os.WriteFile(path, img, 0o600))
	return path, decoded
}

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestList(t *testing.T) {
	t.Parallel()

	path, _ := writeROM(t)
	code, out, stderr := runCLI("list", path)
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, out, "title=OVLTOOL code=AOVT overlays=2")
	assert.Contains(t, out, "RAM SIZE")
	assert.Contains(t, out, "2110000")
}

func TestExtract(t *testing.T) {
	t.Parallel()

	path, decoded := writeROM(t)
	dst := filepath.Join(t.TempDir(), "ov3.bin")

	code, out, stderr := runCLI("extract", "-id", "3", "-o", dst, path)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "decompressed=true")

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, decoded, got)
}

func TestExtractAll(t *testing.T) {
	t.Parallel()

	path, decoded := writeROM(t)
	dir := t.TempDir()

	code, out, stderr := runCLI("extract-all", "-write-mode", "-o", dir, path)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "overlays=2 decompressed=1")

	got, err := os.ReadFile(filepath.Join(dir, "overlay_0003.bin"))
	require.NoError(t, err)
	assert.Equal(t, decoded, got)
	assert.FileExists(t, filepath.Join(dir, "overlay_0000.bin"))
}

func TestInspect(t *testing.T) {
	t.Parallel()

	path, _ := writeROM(t)
	code, out, stderr := runCLI("inspect", "-id", "3", path)
	require.Equal(t, 0, code, stderr)

	assert.Regexp(t, `decompressed:\s+true`, out)
	assert.Contains(t, out, "crc32:")
	assert.Contains(t, out, "sha256:")
}

func TestErrors(t *testing.T) {
	t.Parallel()

	path, _ := writeROM(t)

	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no command", nil, 2},
		{"unknown command", []string{"frobnicate", path}, 2},
		{"missing rom", []string{"list"}, 2},
		{"unknown codec", []string{"-codec", "lzma", "list", path}, 2},
		{"extract without output", []string{"extract", "-id", "3", path}, 2},
		{"unknown overlay", []string{"inspect", "-id", "9", path}, 1},
		{"missing file", []string{"list", filepath.Join(t.TempDir(), "nope.nds")}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			code, _, _ := runCLI(tt.args...)
			assert.Equal(t, tt.code, code)
		})
	}
}
