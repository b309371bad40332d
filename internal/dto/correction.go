package dto

import (
	"github.com/shopspring/decimal"

	"github.com/akschools/fee_ledger_app/internal/core/domain"
)

// AdmissionCorrections carries the profile field groups to overwrite.
// A nil group is left untouched; a present group replaces the stored one
// verbatim.
type AdmissionCorrections struct {
	PersonalInfo *domain.PersonalInfo `json:"personalInfo,omitempty"`
	ContactInfo  *domain.ContactInfo  `json:"contactInfo,omitempty"`
	ParentInfo   *domain.ParentInfo   `json:"parentInfo,omitempty"`
	AcademicInfo *domain.AcademicInfo `json:"academicInfo,omitempty"`
}

// FeeCorrections overwrites the fee aggregate's staff-editable fields.
// pendingFee is never accepted from the caller; it is recomputed.
type FeeCorrections struct {
	TotalFee       decimal.Decimal `json:"totalFee"`
	PaidFee        decimal.Decimal `json:"paidFee"`
	FeeStructureID *string         `json:"feeStructureID,omitempty"`
}

// CorrectionRequest is a staff-issued retroactive correction. Type selects
// which variant applies; the matching payload must be present.
type CorrectionRequest struct {
	Type      domain.CorrectionType `json:"type" binding:"required,oneof=admission fee"`
	Admission *AdmissionCorrections `json:"admission,omitempty"`
	Fee       *FeeCorrections       `json:"fee,omitempty"`
}

// CorrectionResponse returns the corrected student. Inconsistency carries the
// divergence warning when a fee correction leaves the aggregate out of step
// with the active invoice (the invoice is deliberately not rewritten).
type CorrectionResponse struct {
	Student       StudentResponse `json:"student"`
	Inconsistency string          `json:"inconsistency,omitempty"`
}
