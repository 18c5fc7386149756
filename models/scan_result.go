package models

import "time"

// ScanResult is the outcome of one MRZ verification, as attested in the scan
// JWT and pushed to the result webhook.
type ScanResult struct {
	SessionId      string    `json:"session_id"`
	Valid          bool      `json:"valid"`
	Format         string    `json:"format,omitempty"`
	DocumentNumber string    `json:"document_number,omitempty"`
	ChipMatch      *bool     `json:"chip_match,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
}
