package models

type ScanVerificationRequest struct {
	SessionId string `json:"session_id"`
	Nonce     string `json:"nonce"`
	// MRZ is the raw candidate text from the OCR step, two or three lines.
	MRZ string `json:"mrz"`
	// DataGroups optionally carries hex-encoded LDS data groups from an NFC
	// chip read. Only DG1 is consumed.
	DataGroups map[string]string `json:"data_groups,omitempty"`
}
