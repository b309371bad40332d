package domain

import (
	"encoding/json"
	"time"
)

// CorrectionType selects which half of a student record a correction rewrites.
type CorrectionType string

const (
	CorrectionAdmission CorrectionType = "admission"
	CorrectionFee       CorrectionType = "fee"
)

// CorrectionLog is the audit record written alongside every applied
// correction. Corrections rewrite money fields retroactively, so the
// before/after snapshots are kept verbatim.
type CorrectionLog struct {
	CorrectionID string          `json:"correctionID"`
	StudentID    string          `json:"studentID"`
	Type         CorrectionType  `json:"type"`
	Before       json.RawMessage `json:"before"`
	After        json.RawMessage `json:"after"`
	AppliedBy    string          `json:"appliedBy"`
	AppliedAt    time.Time       `json:"appliedAt"`
}
