package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/akschools/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/akschools/fee_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/akschools/fee_ledger_app/internal/core/ports/services"
	"github.com/akschools/fee_ledger_app/internal/dto"
	"github.com/akschools/fee_ledger_app/internal/middleware"
)

// summaryService is the read-side projector: it merges the fee aggregate,
// the invoice ledger, and the payment status classifier into the view
// consumed by student- and staff-facing screens. All derived amounts are
// recomputed at read time; stored pending values are never trusted.
type summaryService struct {
	studentRepo portsrepo.StudentRepositoryFacade
	invoiceRepo portsrepo.InvoiceRepositoryFacade
	now         func() time.Time
}

// NewSummaryService creates a new SummaryService.
func NewSummaryService(studentRepo portsrepo.StudentRepositoryFacade, invoiceRepo portsrepo.InvoiceRepositoryFacade) portssvc.SummarySvcFacade {
	return &summaryService{
		studentRepo: studentRepo,
		invoiceRepo: invoiceRepo,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

var _ portssvc.SummarySvcFacade = (*summaryService)(nil)

// latestInvoice selects the invoice a summary headline is built from: the
// explicitly active one, falling back to the most recently created
// (createdAt descending, invoiceDate as tie-break).
func latestInvoice(invoices []domain.Invoice) *domain.Invoice {
	var latest *domain.Invoice
	for i := range invoices {
		inv := &invoices[i]
		if inv.IsActive {
			return inv
		}
		if latest == nil ||
			inv.CreatedAt.After(latest.CreatedAt) ||
			(inv.CreatedAt.Equal(latest.CreatedAt) && inv.InvoiceDate.After(latest.InvoiceDate)) {
			latest = inv
		}
	}
	return latest
}

// GetFeeSummary builds the full fee view for one student.
func (s *summaryService) GetFeeSummary(ctx context.Context, studentID string) (*dto.FeeSummaryResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	student, err := s.studentRepo.FindStudentByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find student %s: %w", studentID, err)
	}

	invoices, err := s.invoiceRepo.ListInvoicesByStudent(ctx, studentID)
	if err != nil {
		logger.Error("Failed to list invoices for summary", slog.String("error", err.Error()), slog.String("student_id", studentID))
		return nil, fmt.Errorf("failed to list invoices for student %s: %w", studentID, err)
	}

	now := s.now()
	active := latestInvoice(invoices)

	// Headline totals come from the active invoice when one exists;
	// otherwise the admission-time aggregate stands in.
	var totalFee, paidFee decimal.Decimal
	if active != nil {
		totalFee = active.TotalAmount
		paidFee = active.PaidAmount
	} else {
		totalFee = student.FeeInfo.TotalFee
		paidFee = student.FeeInfo.PaidFee
	}
	summary := dto.FeeTotals{
		TotalFeeAmount:     totalFee,
		TotalPaidAmount:    paidFee,
		TotalPendingAmount: totalFee.Sub(paidFee),
		PaymentPercentage:  dto.PaymentPercentage(paidFee, totalFee),
	}

	confirmation := dto.PaymentConfirmation{}
	counts := dto.PaymentStatusCounts{TotalInvoices: len(invoices)}
	projections := make([]dto.InvoiceProjection, len(invoices))

	for i := range invoices {
		inv := &invoices[i]
		confirmation.TotalPaidOverall = confirmation.TotalPaidOverall.Add(inv.PaidAmount)
		confirmation.TotalDueOverall = confirmation.TotalDueOverall.Add(inv.TotalAmount.Sub(inv.PaidAmount))
		confirmation.PaymentCount += len(inv.Payments)
		for _, p := range inv.Payments {
			if confirmation.LastPaymentDate == nil || p.PaymentDate.After(*confirmation.LastPaymentDate) {
				d := p.PaymentDate
				confirmation.LastPaymentDate = &d
			}
		}

		cls := domain.Classify(*inv, now)
		// Late-paid invoices count only toward the total: they are neither
		// on time, nor overdue, nor pending.
		switch cls.Timeliness {
		case domain.PaidOnTime:
			counts.PaidOnTime++
		case domain.Overdue:
			counts.Overdue++
		case domain.TimelinessPending:
			counts.Pending++
		}

		projections[i] = dto.InvoiceProjection{
			InvoiceResponse: dto.ToInvoiceResponse(inv),
			Timeliness:      cls.Timeliness,
			IsOverdue:       cls.Timeliness == domain.Overdue,
			IsPaidOnTime:    cls.Timeliness == domain.PaidOnTime,
		}
	}

	fee := student.FeeInfo
	fee.RecalculatePending()

	return &dto.FeeSummaryResponse{
		StudentID:           studentID,
		Summary:             summary,
		Confirmation:        confirmation,
		PaymentStatus:       counts,
		Invoices:            projections,
		AggregateConsistent: fee.ConsistentWith(active),
		Overpaid:            fee.Overpaid(),
	}, nil
}
