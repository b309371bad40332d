package services

import (
	"context"

	"github.com/akschools/fee_ledger_app/internal/dto"
)

// SummarySvcFacade is the read-side projector merging the fee aggregate, the
// invoice ledger, and the payment status classifier.
type SummarySvcFacade interface {
	GetFeeSummary(ctx context.Context, studentID string) (*dto.FeeSummaryResponse, error)
}
