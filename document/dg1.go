// Package document cross-checks an OCR-scanned MRZ against the DG1 data
// group of an NFC chip readout.
package document

import (
	"fmt"
	"log/slog"
	"strings"

	"go-mrz-verifier/mrz"

	gmrtddoc "github.com/gmrtd/gmrtd/document"
	"github.com/gmrtd/gmrtd/utils"
)

// ChipMRZ holds the MRZ fields as read from the chip's DG1.
type ChipMRZ struct {
	DocumentNumber string
	DateOfBirth    string // yymmdd
	DateOfExpiry   string // yymmdd
	Nationality    string
	Sex            string
}

// ParseDG1 decodes a hex-encoded DG1 data group and lifts out the MRZ fields
// the cross-check needs.
func ParseDG1(dg1Hex string) (*ChipMRZ, error) {
	if dg1Hex == "" {
		return nil, fmt.Errorf("DG1 is missing")
	}

	dg1Bytes := utils.HexToBytes(dg1Hex)
	dg1, err := gmrtddoc.NewDG1(dg1Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DG1: %w", err)
	}

	return &ChipMRZ{
		DocumentNumber: dg1.Mrz.DocumentNumber,
		DateOfBirth:    dg1.Mrz.DateOfBirth,
		DateOfExpiry:   dg1.Mrz.DateOfExpiry,
		Nationality:    dg1.Mrz.Nationality,
		Sex:            dg1.Mrz.Sex,
	}, nil
}

// CrossCheck reports whether the scanned record agrees with the chip on the
// fields both sides encode. Dates are compared through the yymmdd parsers so
// a chip value with a bad encoding fails the check instead of matching a
// coincidentally identical string.
func CrossCheck(rec *mrz.Record, chip *ChipMRZ) bool {
	if rec == nil || chip == nil {
		return false
	}

	if normalizeValue(rec.DocumentNumber) != normalizeValue(chip.DocumentNumber) {
		slog.Debug("Chip cross-check failed on document number")
		return false
	}

	if normalizeValue(rec.Nationality) != normalizeValue(chip.Nationality) {
		slog.Debug("Chip cross-check failed on nationality")
		return false
	}

	if !sexMatches(rec.Sex, chip.Sex) {
		slog.Debug("Chip cross-check failed on sex")
		return false
	}

	scanDob, err := ParseDateOfBirth(rec.DateOfBirth)
	if err != nil {
		return false
	}
	chipDob, err := ParseDateOfBirth(chip.DateOfBirth)
	if err != nil {
		return false
	}
	if !scanDob.Equal(chipDob) {
		slog.Debug("Chip cross-check failed on date of birth")
		return false
	}

	scanDoe, err := ParseExpiryDate(rec.DateOfExpiry)
	if err != nil {
		return false
	}
	chipDoe, err := ParseExpiryDate(chip.DateOfExpiry)
	if err != nil {
		return false
	}
	if !scanDoe.Equal(chipDoe) {
		slog.Debug("Chip cross-check failed on date of expiry")
		return false
	}

	return true
}

func normalizeValue(s string) string {
	return strings.TrimRight(strings.ToUpper(s), "<")
}

func sexMatches(scanned byte, chip string) bool {
	chip = strings.ToUpper(strings.TrimSpace(chip))
	if chip == "" {
		chip = "<"
	}
	return chip[0] == scanned
}
