package mrz

import "strings"

// Parse splits a raw MRZ string into its fixed-width fields. The input may
// use \n or \r\n between lines, or be one unbroken string whose length
// matches a known layout. Field widths, the MRZ charset and the date and sex
// encodings are enforced; check digits are extracted as encoded, not
// verified. Use Check to verify them.
func Parse(raw string) (*Record, error) {
	lines, err := splitLines(raw)
	if err != nil {
		return nil, err
	}

	for _, line := range lines {
		if err := validateCharset(line); err != nil {
			return nil, err
		}
	}

	switch {
	case len(lines) == 3 && len(lines[0]) == td1LineLength:
		return parseTD1(lines)
	case len(lines) == 2 && len(lines[0]) == td2LineLength:
		return parseTD2(lines)
	case len(lines) == 2 && len(lines[0]) == td3LineLength:
		return parseTD3(lines)
	default:
		return nil, parseErrorf("unrecognized layout: %d line(s) of width %d", len(lines), len(lines[0]))
	}
}

func splitLines(raw string) ([]string, error) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.Trim(raw, "\n")
	if raw == "" {
		return nil, parseErrorf("empty input")
	}

	if strings.Contains(raw, "\n") {
		lines := strings.Split(raw, "\n")
		for i, line := range lines[1:] {
			if len(line) != len(lines[0]) {
				return nil, parseErrorf("line %d has width %d, expected %d", i+2, len(line), len(lines[0]))
			}
		}
		return lines, nil
	}

	// No line breaks: infer the layout from the total length.
	switch len(raw) {
	case 3 * td1LineLength:
		return []string{raw[0:30], raw[30:60], raw[60:90]}, nil
	case 2 * td2LineLength:
		return []string{raw[0:36], raw[36:72]}, nil
	case 2 * td3LineLength:
		return []string{raw[0:44], raw[44:88]}, nil
	default:
		return nil, parseErrorf("cannot infer layout from %d characters", len(raw))
	}
}

func validateCharset(line string) error {
	for i := 0; i < len(line); i++ {
		if _, ok := charValue(line[i]); !ok {
			return parseErrorf("character %q at position %d is outside the MRZ charset", line[i], i)
		}
	}
	return nil
}

// documentCodeLeads are the document type letters ICAO 9303 assigns
// (A, C, I for official travel documents and ID cards, P for passports,
// V for visas).
const documentCodeLeads = "ACIPV"

func parseDocumentCode(code string) (string, error) {
	if !strings.ContainsRune(documentCodeLeads, rune(code[0])) {
		return "", parseErrorf("unrecognized document code %q", code)
	}
	return trimFillers(code), nil
}

func parseDate(s, field string) (string, error) {
	if len(s) != 6 {
		return "", parseErrorf("%s must be 6 characters", field)
	}
	digitsOnly := true
	for i := 0; i < len(s); i++ {
		if s[i] == '<' {
			// Unknown date components are encoded as fillers.
			digitsOnly = false
			continue
		}
		if s[i] < '0' || s[i] > '9' {
			return "", parseErrorf("invalid %s encoding %q", field, s)
		}
	}
	if digitsOnly {
		month := int(s[2]-'0')*10 + int(s[3]-'0')
		day := int(s[4]-'0')*10 + int(s[5]-'0')
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return "", parseErrorf("invalid %s date %q", field, s)
		}
	}
	return s, nil
}

func parseSex(c byte) (byte, error) {
	switch c {
	case 'M', 'F', 'X', '<':
		return c, nil
	default:
		return 0, parseErrorf("invalid sex encoding %q", c)
	}
}

func parseName(field string) (primary, secondary string) {
	field = trimFillers(field)
	if idx := strings.Index(field, "<<"); idx >= 0 {
		return field[:idx], field[idx+2:]
	}
	return field, ""
}

func trimFillers(s string) string {
	return strings.TrimRight(s, "<")
}

func parseTD3(lines []string) (*Record, error) {
	l1, l2 := lines[0], lines[1]

	code, err := parseDocumentCode(l1[0:2])
	if err != nil {
		return nil, err
	}
	dob, err := parseDate(l2[13:19], "date of birth")
	if err != nil {
		return nil, err
	}
	sex, err := parseSex(l2[20])
	if err != nil {
		return nil, err
	}
	doe, err := parseDate(l2[21:27], "date of expiry")
	if err != nil {
		return nil, err
	}

	primary, secondary := parseName(l1[5:44])

	return &Record{
		Format:              FormatTD3,
		DocumentCode:        code,
		IssuingState:        trimFillers(l1[2:5]),
		PrimaryIdentifier:   primary,
		SecondaryIdentifier: secondary,
		DocumentNumber:      trimFillers(l2[0:9]),
		DocumentNumberCheck: l2[9],
		Nationality:         trimFillers(l2[10:13]),
		DateOfBirth:         dob,
		DateOfBirthCheck:    l2[19],
		Sex:                 sex,
		DateOfExpiry:        doe,
		DateOfExpiryCheck:   l2[27],
		OptionalData:        trimFillers(l2[28:42]),
		OptionalDataCheck:   l2[42],
		CompositeCheck:      l2[43],
	}, nil
}

func parseTD2(lines []string) (*Record, error) {
	l1, l2 := lines[0], lines[1]

	code, err := parseDocumentCode(l1[0:2])
	if err != nil {
		return nil, err
	}
	dob, err := parseDate(l2[13:19], "date of birth")
	if err != nil {
		return nil, err
	}
	sex, err := parseSex(l2[20])
	if err != nil {
		return nil, err
	}
	doe, err := parseDate(l2[21:27], "date of expiry")
	if err != nil {
		return nil, err
	}

	primary, secondary := parseName(l1[5:36])

	return &Record{
		Format:              FormatTD2,
		DocumentCode:        code,
		IssuingState:        trimFillers(l1[2:5]),
		PrimaryIdentifier:   primary,
		SecondaryIdentifier: secondary,
		DocumentNumber:      trimFillers(l2[0:9]),
		DocumentNumberCheck: l2[9],
		Nationality:         trimFillers(l2[10:13]),
		DateOfBirth:         dob,
		DateOfBirthCheck:    l2[19],
		Sex:                 sex,
		DateOfExpiry:        doe,
		DateOfExpiryCheck:   l2[27],
		OptionalData:        trimFillers(l2[28:35]),
		CompositeCheck:      l2[35],
	}, nil
}

func parseTD1(lines []string) (*Record, error) {
	l1, l2, l3 := lines[0], lines[1], lines[2]

	code, err := parseDocumentCode(l1[0:2])
	if err != nil {
		return nil, err
	}
	dob, err := parseDate(l2[0:6], "date of birth")
	if err != nil {
		return nil, err
	}
	sex, err := parseSex(l2[7])
	if err != nil {
		return nil, err
	}
	doe, err := parseDate(l2[8:14], "date of expiry")
	if err != nil {
		return nil, err
	}

	primary, secondary := parseName(l3)

	return &Record{
		Format:              FormatTD1,
		DocumentCode:        code,
		IssuingState:        trimFillers(l1[2:5]),
		PrimaryIdentifier:   primary,
		SecondaryIdentifier: secondary,
		DocumentNumber:      trimFillers(l1[5:14]),
		DocumentNumberCheck: l1[14],
		Nationality:         trimFillers(l2[15:18]),
		DateOfBirth:         dob,
		DateOfBirthCheck:    l2[6],
		Sex:                 sex,
		DateOfExpiry:        doe,
		DateOfExpiryCheck:   l2[14],
		OptionalData:        trimFillers(l1[15:30]),
		OptionalData2:       trimFillers(l2[18:29]),
		CompositeCheck:      l2[29],
	}, nil
}
