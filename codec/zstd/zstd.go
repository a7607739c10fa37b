// Package zstd provides a codec.Codec backed by klauspost/compress zstd, for
// containers that store overlays with zstd instead of the console's BLZ scheme.
package zstd

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// DefaultMaxDecoderMemory is the default maximum decoder memory (64MB).
const DefaultMaxDecoderMemory = 64 << 20

// Codec encodes with a shared encoder and decodes with pooled decoders.
// It is safe for concurrent use.
type Codec struct {
	level            zstd.EncoderLevel
	maxDecoderMemory uint64

	encOnce sync.Once
	enc     *zstd.Encoder
	encErr  error

	pool sync.Pool
}

// Option configures a Codec.
type Option func(*Codec)

// WithLevel sets the encoder level (default: zstd.SpeedDefault).
func WithLevel(level zstd.EncoderLevel) Option {
	return func(c *Codec) {
		c.level = level
	}
}

// WithMaxDecoderMemory limits the memory a decoder may allocate.
// Set limit to 0 to disable the limit.
func WithMaxDecoderMemory(limit uint64) Option {
	return func(c *Codec) {
		c.maxDecoderMemory = limit
	}
}

// New creates a zstd Codec.
func New(opts ...Option) *Codec {
	c := &Codec{
		level:            zstd.SpeedDefault,
		maxDecoderMemory: DefaultMaxDecoderMemory,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode implements codec.Codec.
func (c *Codec) Encode(src []byte) ([]byte, error) {
	c.encOnce.Do(func() {
		c.enc, c.encErr = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(c.level),
			zstd.WithEncoderConcurrency(1),
			zstd.WithZeroFrames(true))
	})
	if c.encErr != nil {
		return nil, c.encErr
	}
	return c.enc.EncodeAll(src, make([]byte, 0, len(src)/2)), nil
}

// Decode implements codec.Codec.
func (c *Codec) Decode(src []byte) ([]byte, error) {
	dec, release, err := c.get(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer release()

	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// get returns a decoder reading from r and a release function that returns it to the pool.
func (c *Codec) get(r io.Reader) (*zstd.Decoder, func(), error) {
	if dec, ok := c.pool.Get().(*zstd.Decoder); ok {
		if err := dec.Reset(r); err == nil {
			return dec, func() {
				_ = dec.Reset(nil) //nolint:errcheck // clearing state before pool return
				c.pool.Put(dec)
			}, nil
		}
		dec.Close()
	}

	dec, err := c.newDecoder(r)
	if err != nil {
		return nil, nil, err
	}
	return dec, func() {
		_ = dec.Reset(nil) //nolint:errcheck // clearing state before pool return
		c.pool.Put(dec)
	}, nil
}

// newDecoder creates a single-goroutine decoder with the configured memory limit.
func (c *Codec) newDecoder(r io.Reader) (*zstd.Decoder, error) {
	opts := []zstd.DOption{
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(false),
	}
	if c.maxDecoderMemory != 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(c.maxDecoderMemory))
	}
	return zstd.NewReader(r, opts...)
}
