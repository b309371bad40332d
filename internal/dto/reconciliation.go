package dto

import "github.com/akschools/fee_ledger_app/internal/core/domain"

// ReconciliationResponse is the operator-facing reconciliation report.
type ReconciliationResponse struct {
	Reports      []domain.StudentReconciliation `json:"reports"`
	Inconsistent int                            `json:"inconsistent"`
	Checked      int                            `json:"checked"`
}
