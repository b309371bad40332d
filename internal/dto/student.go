package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/akschools/fee_ledger_app/internal/core/domain"
)

// FeeInfoResponse is the fee aggregate as exposed to views. pendingFee is
// recomputed at response-build time, never copied from storage.
type FeeInfoResponse struct {
	AdmissionFee   decimal.Decimal `json:"admissionFee"`
	MonthlyFee     decimal.Decimal `json:"monthlyFee"`
	TotalFee       decimal.Decimal `json:"totalFee"`
	PaidFee        decimal.Decimal `json:"paidFee"`
	PendingFee     decimal.Decimal `json:"pendingFee"`
	FeeStructureID *string         `json:"feeStructureID,omitempty"`
	Overpaid       bool            `json:"overpaid,omitempty"`
}

// StudentResponse is the student record returned by the API.
type StudentResponse struct {
	StudentID    string              `json:"studentID"`
	AdmissionNo  string              `json:"admissionNo"`
	PersonalInfo domain.PersonalInfo `json:"personalInfo"`
	ContactInfo  domain.ContactInfo  `json:"contactInfo"`
	ParentInfo   domain.ParentInfo   `json:"parentInfo"`
	AcademicInfo domain.AcademicInfo `json:"academicInfo"`
	FeeInfo      FeeInfoResponse     `json:"feeInfo"`
	AdmittedBy   string              `json:"admittedBy"`
	Version      int64               `json:"version"`
	CreatedAt    time.Time           `json:"createdAt"`
}

// ToFeeInfoResponse maps a fee aggregate, recomputing the pending amount.
func ToFeeInfoResponse(f domain.FeeAggregate) FeeInfoResponse {
	f.RecalculatePending()
	return FeeInfoResponse{
		AdmissionFee:   f.AdmissionFee,
		MonthlyFee:     f.MonthlyFee,
		TotalFee:       f.TotalFee,
		PaidFee:        f.PaidFee,
		PendingFee:     f.PendingFee,
		FeeStructureID: f.FeeStructureID,
		Overpaid:       f.Overpaid(),
	}
}

// ToStudentResponse maps a domain student to its API representation.
func ToStudentResponse(s *domain.Student) StudentResponse {
	return StudentResponse{
		StudentID:    s.StudentID,
		AdmissionNo:  s.AdmissionNo,
		PersonalInfo: s.PersonalInfo,
		ContactInfo:  s.ContactInfo,
		ParentInfo:   s.ParentInfo,
		AcademicInfo: s.AcademicInfo,
		FeeInfo:      ToFeeInfoResponse(s.FeeInfo),
		AdmittedBy:   s.AdmittedBy,
		Version:      s.Version,
		CreatedAt:    s.CreatedAt,
	}
}

// ListStudentsParams holds parameters for listing students.
type ListStudentsParams struct {
	Limit     int
	NextToken *string
}

// ListStudentsResponse is a page of students plus the continuation token.
type ListStudentsResponse struct {
	Students  []StudentResponse `json:"students"`
	NextToken *string           `json:"nextToken,omitempty"`
}
