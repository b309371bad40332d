package repositories

import (
	"context"

	"github.com/akschools/fee_ledger_app/internal/core/domain"
)

// StudentReader defines read operations for student records.
type StudentReader interface {
	// FindStudentByID retrieves a student by its unique identifier.
	FindStudentByID(ctx context.Context, studentID string) (*domain.Student, error)

	// ListStudents retrieves a paginated list of students using token-based
	// pagination. It returns the students, a token for the next page, and an error.
	ListStudents(ctx context.Context, limit int, nextToken *string) ([]domain.Student, *string, error)
}

// StudentWriter defines write operations for student records. Every update is
// guarded by the student's version: a stale expectedVersion yields ErrConflict
// and no write, which serializes concurrent writers per student.
type StudentWriter interface {
	// SaveStudent persists a newly admitted student.
	SaveStudent(ctx context.Context, student domain.Student) error

	// ApplyFeeCorrection replaces the fee snapshot and writes the correction
	// audit row within the same database transaction.
	ApplyFeeCorrection(ctx context.Context, studentID string, fee domain.FeeAggregate, expectedVersion int64, log domain.CorrectionLog) error

	// ApplyAdmissionCorrection replaces the student's profile field groups and
	// writes the correction audit row within the same database transaction.
	ApplyAdmissionCorrection(ctx context.Context, student domain.Student, expectedVersion int64, log domain.CorrectionLog) error
}

// CorrectionReader exposes the correction audit trail.
type CorrectionReader interface {
	// ListCorrections retrieves correction log entries for a student, newest first.
	ListCorrections(ctx context.Context, studentID string) ([]domain.CorrectionLog, error)
}

// StudentRepositoryFacade combines all student-related repository interfaces.
type StudentRepositoryFacade interface {
	StudentReader
	StudentWriter
	CorrectionReader
}
