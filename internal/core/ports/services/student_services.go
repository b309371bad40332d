package services

import (
	"context"

	"github.com/akschools/fee_ledger_app/internal/core/domain"
	"github.com/akschools/fee_ledger_app/internal/dto"
)

// StudentSvcFacade exposes the student directory reads used by fee screens.
type StudentSvcFacade interface {
	GetStudentByID(ctx context.Context, studentID string) (*domain.Student, error)
	ListStudents(ctx context.Context, params dto.ListStudentsParams) (*dto.ListStudentsResponse, error)
}
