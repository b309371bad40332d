package services

import (
	"context"

	"github.com/akschools/fee_ledger_app/internal/core/domain"
	"github.com/akschools/fee_ledger_app/internal/dto"
)

// CorrectionSvcFacade applies staff-issued retroactive corrections.
type CorrectionSvcFacade interface {
	// CorrectAdmission overwrites profile field groups verbatim. No fee
	// fields are touched.
	CorrectAdmission(ctx context.Context, studentID string, corrections dto.AdmissionCorrections, appliedBy string) (*dto.CorrectionResponse, error)

	// CorrectFee overwrites the fee aggregate's totals and recomputes the
	// pending amount in the same operation. The linked invoice is left
	// untouched as an audit trail; the response surfaces any divergence.
	CorrectFee(ctx context.Context, studentID string, corrections dto.FeeCorrections, appliedBy string) (*dto.CorrectionResponse, error)

	// ListCorrections retrieves the correction audit trail, newest first.
	ListCorrections(ctx context.Context, studentID string) ([]domain.CorrectionLog, error)
}
