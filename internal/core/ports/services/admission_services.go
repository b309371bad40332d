package services

import (
	"context"

	"github.com/akschools/fee_ledger_app/internal/dto"
)

// AdmissionSvcFacade exposes admission and admission-to-fees linking.
type AdmissionSvcFacade interface {
	// AdmitStudent creates the student record and then attempts to link a fee
	// invoice. Linking failure does not roll back the admission; the result
	// reports the partial success.
	AdmitStudent(ctx context.Context, req dto.AdmitStudentRequest, admittedBy string) (*dto.AdmissionResult, error)

	// LinkAdmissionToFees creates the admission invoice for a student,
	// idempotently: a second call returns the existing invoice instead of
	// creating a duplicate.
	LinkAdmissionToFees(ctx context.Context, studentID string, req dto.LinkFeesRequest, actor string) (*dto.LinkResult, error)

	// RetryPendingLinks re-attempts queued linking failures and returns how
	// many were linked.
	RetryPendingLinks(ctx context.Context) (int, error)
}
