package blz

// Backward LZ format constants.
const (
	FooterSize   = 8      // Packed length + header length word, then growth word.
	MinHeaderLen = 8      // Footer only.
	MaxHeaderLen = 11     // Footer plus up to 3 padding bytes.
	MinMatch     = 3      // Shortest back-reference.
	MaxMatch     = 18     // Longest back-reference (nibble 0xF + 3).
	MinDisp      = 3      // Smallest back-reference displacement.
	MaxDisp      = 0x1002 // Largest displacement (12 bits + 3).
	FlagBits     = 8      // Slots per flag byte.
	PadByte      = 0xFF   // Padding between packed data and footer.
)

// invert reverses b in place.
func invert(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
