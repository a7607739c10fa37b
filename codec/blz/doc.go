/*
Package blz implements the backward LZ scheme used for Nintendo DS ARM9
binaries and overlays.

The stream is decoded from its end toward its start so that a loader can
decompress in place. A compressed buffer is laid out as:

	[uncompressed prefix][packed data][0xFF padding][footer]

The 8-byte footer holds, little-endian, a 24-bit packed length (packed data +
padding + footer) with the header length in the top byte, followed by the
number of bytes the decoded output grows by. A buffer whose last word is
zero was stored without compression.

Packed data is read backward. One flag byte covers 8 slots, most significant
bit first; a set bit is a 2-byte back-reference (4-bit length nibble + 3,
12-bit displacement + 3), a clear bit is a literal.

Round-trip:

	enc, err := blz.Encode(data)
	if err != nil {
		return err
	}
	dec, err := blz.Decode(enc)
	// dec equals data
*/
package blz
