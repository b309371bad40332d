package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PendingLink is a queued admission-to-invoice linking attempt that failed.
// The admission itself stands; the reconciler retries these instead of
// leaving the follow-up to manual staff action. The queue keeps the full fee
// input, including any desk collection, so a retried link reproduces the
// invoice the original request would have created.
type PendingLink struct {
	StudentID    string          `json:"studentID"`
	AdmissionFee decimal.Decimal `json:"admissionFee"`
	MonthlyFee   decimal.Decimal `json:"monthlyFee"`
	InitialPaid  decimal.Decimal `json:"initialPaid"`
	Method       PaymentMethod   `json:"paymentMethod"`
	Attempts     int             `json:"attempts"`
	LastError    string          `json:"lastError"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// StudentReconciliation compares a student's denormalized fee aggregate with
// the invoice ledger it is supposed to mirror.
type StudentReconciliation struct {
	StudentID        string          `json:"studentID"`
	AggregateTotal   decimal.Decimal `json:"aggregateTotal"`
	AggregatePaid    decimal.Decimal `json:"aggregatePaid"`
	AggregatePending decimal.Decimal `json:"aggregatePending"`
	LedgerTotal      decimal.Decimal `json:"ledgerTotal"` // active invoice totalAmount, zero when none
	LedgerPaid       decimal.Decimal `json:"ledgerPaid"`  // active invoice paidAmount
	PaymentSum       decimal.Decimal `json:"paymentSum"`  // sum of payment rows on the active invoice
	HasActiveInvoice bool            `json:"hasActiveInvoice"`
	Consistent       bool            `json:"consistent"`
	Overpaid         bool            `json:"overpaid"`
	Findings         []string        `json:"findings,omitempty"`
	CheckedAt        time.Time       `json:"checkedAt"`
}
