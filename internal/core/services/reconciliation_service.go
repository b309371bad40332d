package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/akschools/fee_ledger_app/internal/apperrors"
	"github.com/akschools/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/akschools/fee_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/akschools/fee_ledger_app/internal/core/ports/services"
	"github.com/akschools/fee_ledger_app/internal/dto"
	"github.com/akschools/fee_ledger_app/internal/middleware"
)

// reconciliationService audits the dual representation of fee facts: the
// denormalized aggregate on the student record against the invoice ledger it
// is supposed to mirror. It never repairs anything itself; it reports, so
// operators correct deliberately.
type reconciliationService struct {
	studentRepo portsrepo.StudentRepositoryFacade
	invoiceRepo portsrepo.InvoiceRepositoryFacade
}

// NewReconciliationService creates a new ReconciliationService.
func NewReconciliationService(studentRepo portsrepo.StudentRepositoryFacade, invoiceRepo portsrepo.InvoiceRepositoryFacade) portssvc.ReconciliationSvcFacade {
	return &reconciliationService{
		studentRepo: studentRepo,
		invoiceRepo: invoiceRepo,
	}
}

var _ portssvc.ReconciliationSvcFacade = (*reconciliationService)(nil)

// ReconcileStudent checks one student's aggregate against the ledger.
func (s *reconciliationService) ReconcileStudent(ctx context.Context, studentID string) (*domain.StudentReconciliation, error) {
	student, err := s.studentRepo.FindStudentByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find student %s: %w", studentID, err)
	}
	return s.buildReport(ctx, student)
}

func (s *reconciliationService) buildReport(ctx context.Context, student *domain.Student) (*domain.StudentReconciliation, error) {
	fee := student.FeeInfo
	report := &domain.StudentReconciliation{
		StudentID:        student.StudentID,
		AggregateTotal:   fee.TotalFee,
		AggregatePaid:    fee.PaidFee,
		AggregatePending: fee.TotalFee.Sub(fee.PaidFee),
		Overpaid:         fee.Overpaid(),
		CheckedAt:        time.Now().UTC(),
	}

	if !fee.PendingFee.Equal(report.AggregatePending) {
		report.Findings = append(report.Findings,
			fmt.Sprintf("stored pendingFee %s drifted from totalFee - paidFee = %s", fee.PendingFee, report.AggregatePending))
	}

	active, err := s.invoiceRepo.FindActiveInvoice(ctx, student.StudentID)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		// No ledger to compare against; the aggregate alone is authoritative.
	case err != nil:
		return nil, fmt.Errorf("failed to find active invoice for student %s: %w", student.StudentID, err)
	default:
		report.HasActiveInvoice = true
		report.LedgerTotal = active.TotalAmount
		report.LedgerPaid = active.PaidAmount
		report.PaymentSum = domain.SumPayments(active.Payments)

		if !fee.ConsistentWith(active) {
			report.Findings = append(report.Findings,
				fmt.Sprintf("aggregate (total %s, paid %s) does not mirror active invoice %s (total %s, paid %s)",
					fee.TotalFee, fee.PaidFee, active.InvoiceNo, active.TotalAmount, active.PaidAmount))
		}
		if !report.PaymentSum.Equal(active.PaidAmount) {
			report.Findings = append(report.Findings,
				fmt.Sprintf("invoice %s paidAmount %s does not equal sum of recorded payments %s",
					active.InvoiceNo, active.PaidAmount, report.PaymentSum))
		}
	}

	report.Consistent = len(report.Findings) == 0
	return report, nil
}

// ReconcileAll scans every student and reports the inconsistent ones along
// with totals. Pages through the directory with keyset tokens.
func (s *reconciliationService) ReconcileAll(ctx context.Context) (*dto.ReconciliationResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	resp := &dto.ReconciliationResponse{}
	var nextToken *string
	for {
		students, token, err := s.studentRepo.ListStudents(ctx, 100, nextToken)
		if err != nil {
			return nil, fmt.Errorf("failed to list students for reconciliation: %w", err)
		}

		for i := range students {
			report, err := s.buildReport(ctx, &students[i])
			if err != nil {
				logger.Error("Failed to reconcile student", slog.String("student_id", students[i].StudentID), slog.String("error", err.Error()))
				continue
			}
			resp.Checked++
			if !report.Consistent {
				resp.Inconsistent++
				resp.Reports = append(resp.Reports, *report)
				logger.Warn("Fee aggregate inconsistent with ledger",
					slog.String("student_id", report.StudentID),
					slog.Any("findings", report.Findings))
			}
		}

		if token == nil {
			break
		}
		nextToken = token
	}

	logger.Info("Reconciliation sweep finished", slog.Int("checked", resp.Checked), slog.Int("inconsistent", resp.Inconsistent))
	return resp, nil
}
