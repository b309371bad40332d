package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/akschools/fee_ledger_app/internal/core/domain"
)

func TestClassify(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	pastDue := now.Add(-72 * time.Hour)
	futureDue := now.Add(72 * time.Hour)
	beforePastDue := pastDue.Add(-24 * time.Hour)
	afterPastDue := pastDue.Add(24 * time.Hour)

	tests := []struct {
		name           string
		total          int64
		paid           int64
		dueDate        *time.Time
		paymentDate    *time.Time
		wantStatus     domain.InvoiceStatus
		wantTimeliness domain.Timeliness
	}{
		{
			name:           "paid with no due date is on time",
			total:          1000,
			paid:           1000,
			wantStatus:     domain.StatusPaid,
			wantTimeliness: domain.PaidOnTime,
		},
		{
			name:           "paid before due date is on time",
			total:          1000,
			paid:           1000,
			dueDate:        &pastDue,
			paymentDate:    &beforePastDue,
			wantStatus:     domain.StatusPaid,
			wantTimeliness: domain.PaidOnTime,
		},
		{
			name:           "paid exactly on due date is on time",
			total:          1000,
			paid:           1000,
			dueDate:        &pastDue,
			paymentDate:    &pastDue,
			wantStatus:     domain.StatusPaid,
			wantTimeliness: domain.PaidOnTime,
		},
		{
			name:           "paid after due date is late",
			total:          1000,
			paid:           1000,
			dueDate:        &pastDue,
			paymentDate:    &afterPastDue,
			wantStatus:     domain.StatusPaid,
			wantTimeliness: domain.PaidLate,
		},
		{
			name:           "overpaid settles the invoice",
			total:          1000,
			paid:           1200,
			wantStatus:     domain.StatusPaid,
			wantTimeliness: domain.PaidOnTime,
		},
		{
			name:           "unpaid past due date is overdue",
			total:          1000,
			paid:           0,
			dueDate:        &pastDue,
			wantStatus:     domain.StatusPending,
			wantTimeliness: domain.Overdue,
		},
		{
			name:           "partially paid past due date is overdue",
			total:          1000,
			paid:           400,
			dueDate:        &pastDue,
			wantStatus:     domain.StatusPartial,
			wantTimeliness: domain.Overdue,
		},
		{
			name:           "unpaid before due date is pending",
			total:          1000,
			paid:           0,
			dueDate:        &futureDue,
			wantStatus:     domain.StatusPending,
			wantTimeliness: domain.TimelinessPending,
		},
		{
			name:           "unpaid with no due date is pending",
			total:          1000,
			paid:           0,
			wantStatus:     domain.StatusPending,
			wantTimeliness: domain.TimelinessPending,
		},
		{
			name:           "partially paid before due date is pending",
			total:          1000,
			paid:           600,
			dueDate:        &futureDue,
			wantStatus:     domain.StatusPartial,
			wantTimeliness: domain.TimelinessPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := domain.Invoice{
				TotalAmount: decimal.NewFromInt(tt.total),
				PaidAmount:  decimal.NewFromInt(tt.paid),
				DueDate:     tt.dueDate,
				PaymentDate: tt.paymentDate,
			}

			got := domain.Classify(inv, now)

			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantTimeliness, got.Timeliness)
		})
	}
}
