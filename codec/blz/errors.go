package blz

import "errors"

// Package errors.
var (
	ErrInputTooShort = errors.New("blz: input shorter than footer")
	ErrBadHeader     = errors.New("blz: invalid footer header length")
	ErrBadLength     = errors.New("blz: packed length exceeds input")
	ErrTruncated     = errors.New("blz: packed data ended before output was complete")
	ErrBadReference  = errors.New("blz: back-reference before start of output")
)
