package ovltype

// State identifies where an entry's extracted content lives.
type State uint8

const (
	// StateNotExtracted means the stored bytes have not been read yet.
	StateNotExtracted State = iota

	// StateStaged means the content lives in a staging file.
	StateStaged

	// StateCached means the content lives in memory.
	StateCached
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateNotExtracted:
		return "not extracted"
	case StateStaged:
		return "staged"
	case StateCached:
		return "cached"
	default:
		return "unknown"
	}
}
