package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/akschools/fee_ledger_app/internal/apperrors"
)

// PersonalInfo holds the identity fields of a student profile.
type PersonalInfo struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"` // ISO date, not interpreted by the engine
	Gender      string `json:"gender"`
}

// ContactInfo holds the student's own contact details.
type ContactInfo struct {
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// ParentInfo holds guardian details captured on the admission form.
type ParentInfo struct {
	FatherName string `json:"fatherName"`
	MotherName string `json:"motherName"`
	Phone      string `json:"phone"`
}

// AcademicInfo holds course placement details.
type AcademicInfo struct {
	CourseID  string `json:"courseID"`
	BatchName string `json:"batchName"`
	RollNo    string `json:"rollNo"`
}

// FeeAggregate is the denormalized fee snapshot kept on each student record.
// It caches the active invoice's totals plus the admission-time fee components
// so summary screens don't need to join the payment ledger.
type FeeAggregate struct {
	AdmissionFee   decimal.Decimal `json:"admissionFee"`
	MonthlyFee     decimal.Decimal `json:"monthlyFee"`
	TotalFee       decimal.Decimal `json:"totalFee"`
	PaidFee        decimal.Decimal `json:"paidFee"`
	PendingFee     decimal.Decimal `json:"pendingFee"`
	FeeStructureID *string         `json:"feeStructureID,omitempty"`
}

// Validate checks that every monetary input is non-negative.
// PendingFee is excluded: a negative pending indicates overpayment, which is
// surfaced via Overpaid rather than rejected here.
func (f FeeAggregate) Validate() error {
	for name, v := range map[string]decimal.Decimal{
		"admissionFee": f.AdmissionFee,
		"monthlyFee":   f.MonthlyFee,
		"totalFee":     f.TotalFee,
		"paidFee":      f.PaidFee,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s must not be negative, got %s", apperrors.ErrValidation, name, v)
		}
	}
	return nil
}

// RecalculateFromAdmission applies the admission-time formula:
// totalFee = admissionFee + monthlyFee, pendingFee = totalFee - paidFee.
// Used while no invoice exists for the student yet.
func (f *FeeAggregate) RecalculateFromAdmission() {
	f.TotalFee = f.AdmissionFee.Add(f.MonthlyFee)
	f.PendingFee = f.TotalFee.Sub(f.PaidFee)
}

// MirrorInvoice makes the aggregate track the active invoice's post-discount
// totals. pendingFee is always recomputed, never trusted from storage.
func (f *FeeAggregate) MirrorInvoice(totalAmount, paidAmount decimal.Decimal) {
	f.TotalFee = totalAmount
	f.PaidFee = paidAmount
	f.PendingFee = f.TotalFee.Sub(f.PaidFee)
}

// RecalculatePending refreshes pendingFee from the stored totals.
func (f *FeeAggregate) RecalculatePending() {
	f.PendingFee = f.TotalFee.Sub(f.PaidFee)
}

// Overpaid reports whether more has been collected than is owed.
// The excess is kept visible for operators; it is never clamped away.
func (f FeeAggregate) Overpaid() bool {
	return f.PaidFee.GreaterThan(f.TotalFee)
}

// ConsistentWith reports whether the aggregate still mirrors the given
// invoice's totals. A false result after a correction or deletion is the
// inconsistency operators are warned about.
func (f FeeAggregate) ConsistentWith(inv *Invoice) bool {
	if inv == nil {
		return true
	}
	return f.TotalFee.Equal(inv.TotalAmount) && f.PaidFee.Equal(inv.PaidAmount)
}

// Student is the engine's view of a student record: profile field groups,
// the fee aggregate, and an optimistic concurrency version.
type Student struct {
	StudentID    string       `json:"studentID"` // Primary key (UUID)
	AdmissionNo  string       `json:"admissionNo"`
	PersonalInfo PersonalInfo `json:"personalInfo"`
	ContactInfo  ContactInfo  `json:"contactInfo"`
	ParentInfo   ParentInfo   `json:"parentInfo"`
	AcademicInfo AcademicInfo `json:"academicInfo"`
	FeeInfo      FeeAggregate `json:"feeInfo"`
	AdmittedBy   string       `json:"admittedBy"`
	Version      int64        `json:"version"` // Incremented on every write; stale writes are rejected
	AuditFields
}
