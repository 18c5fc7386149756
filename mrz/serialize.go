package mrz

import "strings"

// padRight fills s with '<' up to width, truncating if s is longer.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat("<", width-len(s))
}

func (r *Record) nameField(width int) string {
	name := r.PrimaryIdentifier
	if r.SecondaryIdentifier != "" {
		name += "<<" + r.SecondaryIdentifier
	}
	return padRight(name, width)
}

// Lines returns the canonical fixed-width MRZ lines for the record,
// re-padding every field and emitting the stored check digits.
func (r *Record) Lines() []string {
	switch r.Format {
	case FormatTD1:
		var l1, l2 strings.Builder
		l1.WriteString(padRight(r.DocumentCode, 2))
		l1.WriteString(padRight(r.IssuingState, 3))
		l1.WriteString(padRight(r.DocumentNumber, 9))
		l1.WriteByte(r.DocumentNumberCheck)
		l1.WriteString(padRight(r.OptionalData, 15))

		l2.WriteString(r.DateOfBirth)
		l2.WriteByte(r.DateOfBirthCheck)
		l2.WriteByte(r.Sex)
		l2.WriteString(r.DateOfExpiry)
		l2.WriteByte(r.DateOfExpiryCheck)
		l2.WriteString(padRight(r.Nationality, 3))
		l2.WriteString(padRight(r.OptionalData2, 11))
		l2.WriteByte(r.CompositeCheck)

		return []string{l1.String(), l2.String(), r.nameField(td1LineLength)}

	case FormatTD2:
		l1 := padRight(r.DocumentCode, 2) + padRight(r.IssuingState, 3) + r.nameField(31)

		var l2 strings.Builder
		l2.WriteString(padRight(r.DocumentNumber, 9))
		l2.WriteByte(r.DocumentNumberCheck)
		l2.WriteString(padRight(r.Nationality, 3))
		l2.WriteString(r.DateOfBirth)
		l2.WriteByte(r.DateOfBirthCheck)
		l2.WriteByte(r.Sex)
		l2.WriteString(r.DateOfExpiry)
		l2.WriteByte(r.DateOfExpiryCheck)
		l2.WriteString(padRight(r.OptionalData, 7))
		l2.WriteByte(r.CompositeCheck)

		return []string{l1, l2.String()}

	default: // FormatTD3
		l1 := padRight(r.DocumentCode, 2) + padRight(r.IssuingState, 3) + r.nameField(39)

		var l2 strings.Builder
		l2.WriteString(padRight(r.DocumentNumber, 9))
		l2.WriteByte(r.DocumentNumberCheck)
		l2.WriteString(padRight(r.Nationality, 3))
		l2.WriteString(r.DateOfBirth)
		l2.WriteByte(r.DateOfBirthCheck)
		l2.WriteByte(r.Sex)
		l2.WriteString(r.DateOfExpiry)
		l2.WriteByte(r.DateOfExpiryCheck)
		l2.WriteString(padRight(r.OptionalData, 14))
		l2.WriteByte(r.OptionalDataCheck)
		l2.WriteByte(r.CompositeCheck)

		return []string{l1, l2.String()}
	}
}

// String renders the record as newline-joined canonical MRZ lines.
func (r *Record) String() string {
	return strings.Join(r.Lines(), "\n")
}
