package util

// ClampInt bounds v to [min, max], substituting fallback when v is zero.
// Request knobs use zero as "not set".
func ClampInt(v, fallback, min, max int) int {
	if v == 0 {
		v = fallback
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
