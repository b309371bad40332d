package services

import (
	"context"
	"fmt"

	"github.com/akschools/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/akschools/fee_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/akschools/fee_ledger_app/internal/core/ports/services"
	"github.com/akschools/fee_ledger_app/internal/dto"
	"github.com/akschools/fee_ledger_app/internal/middleware"
)

// studentService exposes the student directory reads used by fee screens.
type studentService struct {
	studentRepo portsrepo.StudentRepositoryFacade
}

// NewStudentService creates a new StudentService.
func NewStudentService(studentRepo portsrepo.StudentRepositoryFacade) portssvc.StudentSvcFacade {
	return &studentService{studentRepo: studentRepo}
}

var _ portssvc.StudentSvcFacade = (*studentService)(nil)

// GetStudentByID retrieves a student record.
func (s *studentService) GetStudentByID(ctx context.Context, studentID string) (*domain.Student, error) {
	student, err := s.studentRepo.FindStudentByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find student %s: %w", studentID, err)
	}
	return student, nil
}

// ListStudents retrieves a paginated list of students.
func (s *studentService) ListStudents(ctx context.Context, params dto.ListStudentsParams) (*dto.ListStudentsResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	students, nextToken, err := s.studentRepo.ListStudents(ctx, limit, params.NextToken)
	if err != nil {
		logger.Error("Failed to list students", "error", err)
		return nil, fmt.Errorf("failed to retrieve students: %w", err)
	}

	responses := make([]dto.StudentResponse, len(students))
	for i := range students {
		responses[i] = dto.ToStudentResponse(&students[i])
	}

	return &dto.ListStudentsResponse{Students: responses, NextToken: nextToken}, nil
}
