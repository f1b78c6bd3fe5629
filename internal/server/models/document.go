// Package models defines server-side data models.
package models

// Document is an uploaded identity document held in memory for the duration
// of a single verification request.
type Document struct {
	// Filename is the client-supplied name, already checked at the boundary.
	Filename string
	// ContentType is the declared MIME type.
	ContentType string
	// Content is the raw document bytes.
	Content []byte
	// SHA256 is the lowercase hex digest of Content.
	SHA256 string
}

// ExtractedData holds identity fields read from a document.
type ExtractedData struct {
	Name     string `json:"name"`
	IDNumber string `json:"idNumber"`
	DOB      string `json:"dob"`
}

// VerificationResult is what a verification provider reports for a document.
type VerificationResult struct {
	RiskLevel      string        `json:"riskLevel"`
	RiskScore      int           `json:"riskScore"`
	Explanation    []string      `json:"explanation"`
	ExtractedData  ExtractedData `json:"extractedData"`
	DocumentSHA256 string        `json:"documentSha256"`
	ArchiveKey     string        `json:"archiveKey,omitempty"`
}

const (
	RiskLow    = "LOW RISK"
	RiskMedium = "MEDIUM RISK"
	RiskHigh   = "HIGH RISK"
)

// RiskLevelForScore buckets a 0-100 score: <30 low, <70 medium, else high.
func RiskLevelForScore(score int) string {
	switch {
	case score < 30:
		return RiskLow
	case score < 70:
		return RiskMedium
	default:
		return RiskHigh
	}
}
