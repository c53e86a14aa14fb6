package alarm

// Truncate rounds n down so spoken numbers sound less jarringly precise.
// At most two leading digits survive and at least the last digit is zeroed:
// 68 becomes 60, 127 becomes 120, 4567 becomes 4500, 12566 becomes 12000.
// Single digit numbers are returned unchanged. The sign is preserved.
func Truncate(n int) int {
	if n < 0 {
		return -Truncate(-n)
	}
	if n < 10 {
		return n
	}

	magnitude := 10
	for n/magnitude >= 100 {
		magnitude *= 10
	}
	return n / magnitude * magnitude
}
