package mrz

// checkDigitWeights are applied cyclically, per ICAO 9303 part 3.
var checkDigitWeights = [3]int{7, 3, 1}

// charValue maps an MRZ character to its checksum value: digits count as
// themselves, letters as their alphabet position plus ten, filler as zero.
func charValue(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10, true
	case c == '<':
		return 0, true
	default:
		return 0, false
	}
}

// ComputeCheckDigit returns the weighted modulo-10 check digit of s as an
// ASCII digit. The input must only contain characters from the MRZ charset;
// anything else counts as filler, callers are expected to have validated the
// charset during parsing.
func ComputeCheckDigit(s string) byte {
	sum := 0
	for i := 0; i < len(s); i++ {
		v, _ := charValue(s[i])
		sum += v * checkDigitWeights[i%3]
	}
	return byte('0' + sum%10)
}
