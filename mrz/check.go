package mrz

// RecomputeCheckDigits returns a copy of the record with every check digit
// re-derived from the parsed field values. The computation never looks at the
// document code: per ICAO 9303 the checked ranges start after it, so all
// document code variants recompute identically.
func (r *Record) RecomputeCheckDigits() *Record {
	out := *r

	out.DocumentNumberCheck = ComputeCheckDigit(padRight(r.DocumentNumber, 9))
	out.DateOfBirthCheck = ComputeCheckDigit(r.DateOfBirth)
	out.DateOfExpiryCheck = ComputeCheckDigit(r.DateOfExpiry)

	if r.Format == FormatTD3 {
		// An unused personal number may be checked with '0' or '<'; keep the
		// encoded variant. Both weigh zero in the composite digit.
		if r.OptionalData == "" && r.OptionalDataCheck == '<' {
			out.OptionalDataCheck = '<'
		} else {
			out.OptionalDataCheck = ComputeCheckDigit(padRight(r.OptionalData, 14))
		}
	}

	lines := out.Lines()
	out.CompositeCheck = ComputeCheckDigit(compositeInput(out.Format, lines))
	return &out
}

// compositeInput concatenates the line ranges the composite check digit
// covers. Positions per ICAO 9303 parts 4 through 6; the recomputed
// per-field check digits are part of the input.
func compositeInput(f Format, lines []string) string {
	switch f {
	case FormatTD1:
		return lines[0][5:30] + lines[1][0:7] + lines[1][8:15] + lines[1][18:29]
	case FormatTD2:
		return lines[1][0:10] + lines[1][13:20] + lines[1][21:35]
	default: // FormatTD3
		return lines[1][0:10] + lines[1][13:20] + lines[1][21:43]
	}
}

// Check reports whether a raw MRZ string is internally consistent: it parses
// into a known layout and every check digit matches a recomputation from the
// encoded data. The comparison is done on full canonical re-serializations,
// so any field that fails to round-trip through parse and re-encode also
// fails the check. Malformed input is false, never an error.
func Check(raw string) bool {
	rec, err := Parse(raw)
	if err != nil {
		return false
	}
	return rec.String() == rec.RecomputeCheckDigits().String()
}
