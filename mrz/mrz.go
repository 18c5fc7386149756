// Package mrz parses and validates the machine readable zone of
// ICAO 9303 identity documents.
package mrz

import "fmt"

// Format identifies the physical MRZ layout, derived from line geometry.
type Format int

const (
	// FormatTD1 is the 3-line, 30-characters-per-line layout (ID cards).
	FormatTD1 Format = iota
	// FormatTD2 is the 2-line, 36-characters-per-line layout.
	FormatTD2
	// FormatTD3 is the 2-line, 44-characters-per-line layout (passports).
	FormatTD3
)

func (f Format) String() string {
	switch f {
	case FormatTD1:
		return "TD1"
	case FormatTD2:
		return "TD2"
	case FormatTD3:
		return "TD3"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

const (
	td1LineLength = 30
	td2LineLength = 36
	td3LineLength = 44
)

// Record is an MRZ parsed into its fields, together with the check digits
// exactly as they were encoded. It only lives for the duration of one
// validation and is never persisted.
type Record struct {
	Format Format

	DocumentCode        string
	IssuingState        string
	PrimaryIdentifier   string
	SecondaryIdentifier string

	DocumentNumber      string
	DocumentNumberCheck byte

	Nationality string

	DateOfBirth      string // yymmdd
	DateOfBirthCheck byte

	Sex byte // 'M', 'F', 'X' or '<'

	DateOfExpiry      string // yymmdd
	DateOfExpiryCheck byte

	// OptionalData is the personal number on TD3, the first optional data
	// field on TD1 and the optional data field on TD2.
	OptionalData string
	// OptionalDataCheck is only meaningful on TD3, where the personal number
	// carries its own check digit. An unused personal number may legally be
	// checked with either '0' or '<'.
	OptionalDataCheck byte

	// OptionalData2 is the second optional data field, TD1 only.
	OptionalData2 string

	CompositeCheck byte
}

// ParseError is returned when a string cannot be parsed into a Record.
type ParseError struct {
	msg string
}

func (e *ParseError) Error() string {
	return "mrz: " + e.msg
}

func parseErrorf(format string, args ...any) *ParseError {
	return &ParseError{msg: fmt.Sprintf(format, args...)}
}
