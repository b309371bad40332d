package services

import (
	"context"

	"github.com/akschools/fee_ledger_app/internal/core/domain"
	"github.com/akschools/fee_ledger_app/internal/dto"
)

// ReconciliationSvcFacade checks that each student's denormalized fee
// aggregate still mirrors the invoice ledger, and reports drift.
type ReconciliationSvcFacade interface {
	ReconcileStudent(ctx context.Context, studentID string) (*domain.StudentReconciliation, error)
	ReconcileAll(ctx context.Context) (*dto.ReconciliationResponse, error)
}
