package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/akschools/fee_ledger_app/internal/apperrors"
	"github.com/akschools/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/akschools/fee_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/akschools/fee_ledger_app/internal/core/ports/services"
	"github.com/akschools/fee_ledger_app/internal/dto"
	"github.com/akschools/fee_ledger_app/internal/middleware"
)

// correctionService applies staff-issued retroactive corrections to either a
// student's admission profile or its fee aggregate.
type correctionService struct {
	studentRepo portsrepo.StudentRepositoryFacade
	invoiceRepo portsrepo.InvoiceRepositoryFacade
}

// NewCorrectionService creates a new CorrectionService.
func NewCorrectionService(studentRepo portsrepo.StudentRepositoryFacade, invoiceRepo portsrepo.InvoiceRepositoryFacade) portssvc.CorrectionSvcFacade {
	return &correctionService{
		studentRepo: studentRepo,
		invoiceRepo: invoiceRepo,
	}
}

var _ portssvc.CorrectionSvcFacade = (*correctionService)(nil)

// profileSnapshot is the before/after shape journaled for admission corrections.
type profileSnapshot struct {
	PersonalInfo domain.PersonalInfo `json:"personalInfo"`
	ContactInfo  domain.ContactInfo  `json:"contactInfo"`
	ParentInfo   domain.ParentInfo   `json:"parentInfo"`
	AcademicInfo domain.AcademicInfo `json:"academicInfo"`
}

// CorrectAdmission overwrites the provided profile field groups verbatim.
// Profile fields carry no fee invariants, so no derived recomputation happens.
func (s *correctionService) CorrectAdmission(ctx context.Context, studentID string, corrections dto.AdmissionCorrections, appliedBy string) (*dto.CorrectionResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if corrections.PersonalInfo == nil && corrections.ContactInfo == nil && corrections.ParentInfo == nil && corrections.AcademicInfo == nil {
		return nil, fmt.Errorf("%w: no correction fields supplied", apperrors.ErrValidation)
	}

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		student, err := s.studentRepo.FindStudentByID(ctx, studentID)
		if err != nil {
			return nil, fmt.Errorf("failed to find student %s: %w", studentID, err)
		}

		before, err := json.Marshal(profileSnapshot{
			PersonalInfo: student.PersonalInfo,
			ContactInfo:  student.ContactInfo,
			ParentInfo:   student.ParentInfo,
			AcademicInfo: student.AcademicInfo,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot profile: %w", err)
		}

		updated := *student
		if corrections.PersonalInfo != nil {
			updated.PersonalInfo = *corrections.PersonalInfo
		}
		if corrections.ContactInfo != nil {
			updated.ContactInfo = *corrections.ContactInfo
		}
		if corrections.ParentInfo != nil {
			updated.ParentInfo = *corrections.ParentInfo
		}
		if corrections.AcademicInfo != nil {
			updated.AcademicInfo = *corrections.AcademicInfo
		}

		after, err := json.Marshal(profileSnapshot{
			PersonalInfo: updated.PersonalInfo,
			ContactInfo:  updated.ContactInfo,
			ParentInfo:   updated.ParentInfo,
			AcademicInfo: updated.AcademicInfo,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot corrected profile: %w", err)
		}

		now := time.Now().UTC()
		updated.LastUpdatedAt = now
		updated.LastUpdatedBy = appliedBy
		log := domain.CorrectionLog{
			CorrectionID: uuid.NewString(),
			StudentID:    studentID,
			Type:         domain.CorrectionAdmission,
			Before:       before,
			After:        after,
			AppliedBy:    appliedBy,
			AppliedAt:    now,
		}

		err = s.studentRepo.ApplyAdmissionCorrection(ctx, updated, student.Version, log)
		if errors.Is(err, apperrors.ErrConflict) {
			logger.Warn("Version conflict applying admission correction, retrying", slog.String("student_id", studentID), slog.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			logger.Error("Failed to apply admission correction", slog.String("error", err.Error()), slog.String("student_id", studentID))
			return nil, fmt.Errorf("failed to apply admission correction: %w", err)
		}

		updated.Version = student.Version + 1
		logger.Info("Admission correction applied", slog.String("student_id", studentID), slog.String("correction_id", log.CorrectionID))
		return &dto.CorrectionResponse{Student: dto.ToStudentResponse(&updated)}, nil
	}

	return nil, fmt.Errorf("failed to apply admission correction after %d attempts: %w", maxCASRetries, apperrors.ErrConflict)
}

// CorrectFee overwrites totalFee, paidFee and the fee structure reference on
// the aggregate and recomputes pendingFee in the same operation. The linked
// invoice is deliberately left untouched as an audit trail; when the
// aggregate no longer mirrors the active invoice, the divergence is surfaced
// on the response instead of being silently reconciled.
func (s *correctionService) CorrectFee(ctx context.Context, studentID string, corrections dto.FeeCorrections, appliedBy string) (*dto.CorrectionResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if corrections.TotalFee.IsNegative() {
		return nil, fmt.Errorf("%w: totalFee must not be negative, got %s", apperrors.ErrValidation, corrections.TotalFee)
	}
	if corrections.PaidFee.IsNegative() {
		return nil, fmt.Errorf("%w: paidFee must not be negative, got %s", apperrors.ErrValidation, corrections.PaidFee)
	}

	for attempt := 0; attempt < maxCASRetries; attempt++ {
		student, err := s.studentRepo.FindStudentByID(ctx, studentID)
		if err != nil {
			return nil, fmt.Errorf("failed to find student %s: %w", studentID, err)
		}

		before, err := json.Marshal(student.FeeInfo)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot fee aggregate: %w", err)
		}

		fee := student.FeeInfo
		fee.TotalFee = corrections.TotalFee
		fee.PaidFee = corrections.PaidFee
		if corrections.FeeStructureID != nil {
			fee.FeeStructureID = corrections.FeeStructureID
		}
		fee.RecalculatePending()

		after, err := json.Marshal(fee)
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot corrected fee aggregate: %w", err)
		}

		now := time.Now().UTC()
		log := domain.CorrectionLog{
			CorrectionID: uuid.NewString(),
			StudentID:    studentID,
			Type:         domain.CorrectionFee,
			Before:       before,
			After:        after,
			AppliedBy:    appliedBy,
			AppliedAt:    now,
		}

		err = s.studentRepo.ApplyFeeCorrection(ctx, studentID, fee, student.Version, log)
		if errors.Is(err, apperrors.ErrConflict) {
			logger.Warn("Version conflict applying fee correction, retrying", slog.String("student_id", studentID), slog.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			logger.Error("Failed to apply fee correction", slog.String("error", err.Error()), slog.String("student_id", studentID))
			return nil, fmt.Errorf("failed to apply fee correction: %w", err)
		}

		corrected := *student
		corrected.FeeInfo = fee
		corrected.Version = student.Version + 1
		corrected.LastUpdatedAt = now
		corrected.LastUpdatedBy = appliedBy
		resp := &dto.CorrectionResponse{Student: dto.ToStudentResponse(&corrected)}

		active, err := s.invoiceRepo.FindActiveInvoice(ctx, studentID)
		if err == nil && !fee.ConsistentWith(active) {
			resp.Inconsistency = fmt.Sprintf(
				"fee aggregate no longer matches active invoice %s (total %s vs %s, paid %s vs %s); the invoice was not changed",
				active.InvoiceNo, fee.TotalFee, active.TotalAmount, fee.PaidFee, active.PaidAmount)
			logger.Warn("Fee correction diverges from active invoice",
				slog.String("student_id", studentID),
				slog.String("invoice_id", active.InvoiceID))
		} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to check active invoice after fee correction", slog.String("error", err.Error()), slog.String("student_id", studentID))
		}

		logger.Info("Fee correction applied", slog.String("student_id", studentID), slog.String("correction_id", log.CorrectionID))
		return resp, nil
	}

	return nil, fmt.Errorf("failed to apply fee correction after %d attempts: %w", maxCASRetries, apperrors.ErrConflict)
}

// ListCorrections retrieves the correction audit trail for a student.
func (s *correctionService) ListCorrections(ctx context.Context, studentID string) ([]domain.CorrectionLog, error) {
	if _, err := s.studentRepo.FindStudentByID(ctx, studentID); err != nil {
		return nil, fmt.Errorf("failed to find student %s: %w", studentID, err)
	}
	logs, err := s.studentRepo.ListCorrections(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list corrections for student %s: %w", studentID, err)
	}
	return logs, nil
}
