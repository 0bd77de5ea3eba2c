package common

// AlignUp rounds v up to the next multiple of alignment. Alignment must be a power of two.
//
// Parameters:
//   - v: the value to round
//   - alignment: the power-of-two alignment
//
// Returns:
//   - uint64: the aligned value
func AlignUp(v, alignment uint64) uint64 {
	return (v + alignment - 1) &^ (alignment - 1)
}
