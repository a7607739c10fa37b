// Package codec decides when overlay bytes must be decoded or encoded and
// delegates the byte-level work to a pluggable Codec.
//
// The compress flag and the content inspection are kept as two separate
// decisions: [InterpretFlag] says what the header claims, and
// [LooksMisflaggedCompressed] says whether the data contradicts it. [Adapter]
// composes them.
package codec

import (
	"fmt"
	"log/slog"

	"github.com/meigma/ovl/codec/blz"
	"github.com/meigma/ovl/internal/ovltype"
)

// Codec is the byte-level compression capability.
// Implementations must return an error for malformed input rather than
// partial output.
type Codec interface {
	Encode(src []byte) ([]byte, error)
	Decode(src []byte) ([]byte, error)
}

// BLZ is the backward LZ codec used by DS overlays.
type BLZ struct{}

// Encode implements Codec.
func (BLZ) Encode(src []byte) ([]byte, error) { return blz.Encode(src) }

// Decode implements Codec.
func (BLZ) Decode(src []byte) ([]byte, error) { return blz.Decode(src) }

// Action is the decode decision derived from a compress flag alone.
type Action uint8

const (
	// ActionNone leaves the stored bytes as they are.
	ActionNone Action = iota

	// ActionDecode always decodes; failure is fatal.
	ActionDecode

	// ActionProbe inspects the bytes and decodes only if they look compressed.
	ActionProbe
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionDecode:
		return "decode"
	case ActionProbe:
		return "probe"
	default:
		return "unknown"
	}
}

// InterpretFlag maps a stored compress flag to a decode action.
func InterpretFlag(flag ovltype.CompressFlag) Action {
	switch flag {
	case ovltype.FlagCompressedLegacy, ovltype.FlagCompressed:
		return ActionDecode
	case ovltype.FlagUncompressed:
		return ActionProbe
	default:
		return ActionNone
	}
}

// Compresses reports whether bytes for an entry with this flag must be
// compressed when written back.
func Compresses(flag ovltype.CompressFlag) bool {
	return InterpretFlag(flag) == ActionDecode
}

const (
	probeWindow      = 20
	anomalyThreshold = 10
)

// LooksMisflaggedCompressed reports whether the leading bytes of raw fall
// outside the alphabet expected for an uncompressed overlay's leading type
// table, which suggests the payload is actually compressed.
func LooksMisflaggedCompressed(raw []byte) bool {
	n := min(probeWindow, len(raw))
	anomalous := 0
	for _, b := range raw[:n] {
		switch b {
		case 0, 2, 4, 8:
		default:
			anomalous++
		}
	}
	return anomalous > anomalyThreshold
}

// Adapter composes flag interpretation, misflag detection, and a Codec.
type Adapter struct {
	codec  Codec
	logger *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithCodec sets the byte-level codec (default: BLZ).
func WithCodec(c Codec) Option {
	return func(a *Adapter) {
		if c != nil {
			a.codec = c
		}
	}
}

// WithLogger sets the logger for recovery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// NewAdapter creates an Adapter.
func NewAdapter(opts ...Option) *Adapter {
	a := &Adapter{codec: BLZ{}}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Adapter) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// DecodeIfNeeded returns the payload for raw stored under flag and whether it
// was produced by a decode step.
//
// Flag-mandated decode failures wrap ErrCodec. The probe path never fails:
// a trial decode is kept only if it succeeds and grows the buffer.
func (a *Adapter) DecodeIfNeeded(raw []byte, flag ovltype.CompressFlag) ([]byte, bool, error) {
	switch InterpretFlag(flag) {
	case ActionDecode:
		out, err := a.codec.Decode(raw)
		if err != nil {
			return nil, false, fmt.Errorf("%w: decode (flag %d): %v", ovltype.ErrCodec, flag, err)
		}
		return out, true, nil
	case ActionProbe:
		if !LooksMisflaggedCompressed(raw) {
			return raw, false, nil
		}
		out, err := a.trialDecode(raw)
		if err != nil {
			a.log().Debug("trial decode rejected", slog.Any("error", err))
			return raw, false, nil
		}
		if len(out) <= len(raw) {
			a.log().Debug("trial decode did not grow payload",
				slog.Int("raw", len(raw)),
				slog.Int("decoded", len(out)))
			return raw, false, nil
		}
		a.log().Warn("recovered misflagged compressed overlay",
			slog.Int("raw", len(raw)),
			slog.Int("decoded", len(out)))
		return out, true, nil
	default:
		return raw, false, nil
	}
}

// trialDecode runs a decode whose failure, including a codec panic, is discarded by the caller.
func (a *Adapter) trialDecode(raw []byte) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("codec panic: %v", r)
		}
	}()
	return a.codec.Decode(raw)
}

// Encode compresses b, wrapping failures in ErrCodec.
func (a *Adapter) Encode(b []byte) ([]byte, error) {
	out, err := a.codec.Encode(b)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ovltype.ErrCodec, err)
	}
	return out, nil
}
