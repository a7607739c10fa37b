package zstd

import (
	"bytes"
	"sync"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	c := New(WithLevel(zstd.SpeedBestCompression))
	payload := bytes.Repeat([]byte("overlay payload "), 512)

	enc, err := c.Encode(payload)
	require.NoError(t, err)
	assert.Less(t, len(enc), len(payload))

	dec, err := c.Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, payload, dec)
}

func TestDecodeMalformed(t *testing.T) {
	t.Parallel()

	_, err := New().Decode([]byte("definitely not a zstd frame"))
	require.Error(t, err)
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	c := New()
	enc, err := c.Encode(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, enc)

	dec, err := c.Decode(enc)
	require.NoError(t, err)
	assert.Empty(t, dec)
}

func TestConcurrentUse(t *testing.T) {
	t.Parallel()

	c := New(WithMaxDecoderMemory(0))
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			payload := bytes.Repeat([]byte{byte(i)}, 4096)
			enc, err := c.Encode(payload)
			assert.NoError(t, err)
			dec, err := c.Decode(enc)
			assert.NoError(t, err)
			assert.Equal(t, payload, dec)
		}()
	}
	wg.Wait()
}
