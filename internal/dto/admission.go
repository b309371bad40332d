package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/akschools/fee_ledger_app/internal/core/domain"
)

// AdmitStudentRequest is the admission form as the engine sees it: profile
// field groups plus the fee inputs used to auto-create the first invoice.
type AdmitStudentRequest struct {
	AdmissionNo  string              `json:"admissionNo,omitempty"`
	PersonalInfo domain.PersonalInfo `json:"personalInfo" binding:"required"`
	ContactInfo  domain.ContactInfo  `json:"contactInfo"`
	ParentInfo   domain.ParentInfo   `json:"parentInfo"`
	AcademicInfo domain.AcademicInfo `json:"academicInfo"`

	AdmissionFee decimal.Decimal `json:"admissionFee"`
	MonthlyFee   decimal.Decimal `json:"monthlyFee"`
	// InitialPaid is the amount collected at the admission desk, recorded as
	// the first payment on the linked invoice.
	InitialPaid   decimal.Decimal      `json:"initialPaid"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod,omitempty"`
	DueDate       *time.Time           `json:"dueDate,omitempty"`
	// SkipInvoice admits the student without auto-linking a fee invoice.
	SkipInvoice bool `json:"skipInvoice,omitempty"`
}

// LinkFeesRequest links (or re-links) an admitted student to a fee invoice.
type LinkFeesRequest struct {
	AdmissionFee  decimal.Decimal      `json:"admissionFee"`
	MonthlyFee    decimal.Decimal      `json:"monthlyFee"`
	InitialPaid   decimal.Decimal      `json:"initialPaid"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod,omitempty"`
	DueDate       *time.Time           `json:"dueDate,omitempty"`
}

// LinkResult reports the outcome of an admission-to-fees linking attempt.
// Linking failure is not an error: the admission stands and Warning tells the
// caller what happened.
type LinkResult struct {
	Linked    bool    `json:"linked"`
	InvoiceID *string `json:"invoiceID,omitempty"`
	Warning   string  `json:"warning,omitempty"`
}

// AdmissionResult is the terminal state of an admission: the created student
// plus the linking outcome, which may be a partial success.
type AdmissionResult struct {
	Student   StudentResponse `json:"student"`
	Linked    bool            `json:"linked"`
	InvoiceID *string         `json:"invoiceID,omitempty"`
	Warning   string          `json:"warning,omitempty"`
}
