package seq

// Reference returns a vector's reference value (its first element) and
// the number of elements that disagree with it.
//
// A non-zero mismatch count is a corruption event: the caller logs it and
// still feeds the reference value to the comparator, because a corrupted
// vector says nothing about sequence continuity.
func Reference(vec []uint64) (ref uint64, mismatched int) {
	if len(vec) == 0 {
		return 0, 0
	}
	ref = vec[0]
	for _, v := range vec[1:] {
		if v != ref {
			mismatched++
		}
	}
	return ref, mismatched
}
