package pgsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akschools/fee_ledger_app/internal/apperrors"
	"github.com/akschools/fee_ledger_app/internal/core/domain"
	portsrepo "github.com/akschools/fee_ledger_app/internal/core/ports/repositories"
	"github.com/akschools/fee_ledger_app/internal/utils/pagination"
)

const uniqueViolationCode = "23505"

// isUniqueViolation reports whether err is a postgres unique constraint error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

type PgxStudentRepository struct {
	BaseRepository
}

// NewPgxStudentRepository creates a new repository for student records and
// their correction audit trail.
func NewPgxStudentRepository(pool *pgxpool.Pool) portsrepo.StudentRepositoryFacade {
	return &PgxStudentRepository{BaseRepository{Pool: pool}}
}

var _ portsrepo.StudentRepositoryFacade = (*PgxStudentRepository)(nil)

const studentColumns = `
	student_id, admission_no, personal_info, contact_info, parent_info, academic_info,
	admission_fee, monthly_fee, total_fee, paid_fee, pending_fee, fee_structure_id,
	admitted_by, version, created_at, created_by, last_updated_at, last_updated_by`

// scanStudent reads one students row. The profile field groups are stored as
// jsonb columns and unmarshalled back into their structs.
func scanStudent(row pgx.Row) (*domain.Student, error) {
	var student domain.Student
	var personal, contact, parent, academic []byte

	err := row.Scan(
		&student.StudentID,
		&student.AdmissionNo,
		&personal,
		&contact,
		&parent,
		&academic,
		&student.FeeInfo.AdmissionFee,
		&student.FeeInfo.MonthlyFee,
		&student.FeeInfo.TotalFee,
		&student.FeeInfo.PaidFee,
		&student.FeeInfo.PendingFee,
		&student.FeeInfo.FeeStructureID,
		&student.AdmittedBy,
		&student.Version,
		&student.CreatedAt,
		&student.CreatedBy,
		&student.LastUpdatedAt,
		&student.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(personal, &student.PersonalInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal personal info: %w", err)
	}
	if err := json.Unmarshal(contact, &student.ContactInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contact info: %w", err)
	}
	if err := json.Unmarshal(parent, &student.ParentInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal parent info: %w", err)
	}
	if err := json.Unmarshal(academic, &student.AcademicInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal academic info: %w", err)
	}

	return &student, nil
}

// marshalProfile serializes the four profile field groups for storage.
func marshalProfile(student domain.Student) (personal, contact, parent, academic []byte, err error) {
	if personal, err = json.Marshal(student.PersonalInfo); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal personal info: %w", err)
	}
	if contact, err = json.Marshal(student.ContactInfo); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal contact info: %w", err)
	}
	if parent, err = json.Marshal(student.ParentInfo); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal parent info: %w", err)
	}
	if academic, err = json.Marshal(student.AcademicInfo); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to marshal academic info: %w", err)
	}
	return personal, contact, parent, academic, nil
}

// SaveStudent persists a newly admitted student.
func (r *PgxStudentRepository) SaveStudent(ctx context.Context, student domain.Student) error {
	personal, contact, parent, academic, err := marshalProfile(student)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO students (
			student_id, admission_no, personal_info, contact_info, parent_info, academic_info,
			admission_fee, monthly_fee, total_fee, paid_fee, pending_fee, fee_structure_id,
			admitted_by, version, created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18);
	`
	_, err = r.Pool.Exec(ctx, query,
		student.StudentID,
		student.AdmissionNo,
		personal,
		contact,
		parent,
		academic,
		student.FeeInfo.AdmissionFee,
		student.FeeInfo.MonthlyFee,
		student.FeeInfo.TotalFee,
		student.FeeInfo.PaidFee,
		student.FeeInfo.PendingFee,
		student.FeeInfo.FeeStructureID,
		student.AdmittedBy,
		student.Version,
		student.CreatedAt,
		student.CreatedBy,
		student.LastUpdatedAt,
		student.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("admission number %s already exists: %w", student.AdmissionNo, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert student %s: %w", student.StudentID, err)
	}

	return nil
}

// FindStudentByID retrieves a student by its ID.
func (r *PgxStudentRepository) FindStudentByID(ctx context.Context, studentID string) (*domain.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE student_id = $1;`

	student, err := scanStudent(r.Pool.QueryRow(ctx, query, studentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find student by ID %s: %w", studentID, err)
	}

	return student, nil
}

// ListStudents retrieves students ordered by admission time using keyset pagination.
func (r *PgxStudentRepository) ListStudents(ctx context.Context, limit int, nextToken *string) ([]domain.Student, *string, error) {
	args := []interface{}{limit + 1}
	query := `SELECT ` + studentColumns + ` FROM students`

	if nextToken != nil && *nextToken != "" {
		lastCreatedAt, lastID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		}
		query += ` WHERE (created_at, student_id) > ($2, $3)`
		args = append(args, lastCreatedAt, lastID)
	}
	query += ` ORDER BY created_at, student_id LIMIT $1;`

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	students := []domain.Student{}
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan student row: %w", err)
		}
		students = append(students, *student)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating student rows: %w", err)
	}

	var token *string
	if len(students) > limit {
		students = students[:limit]
		last := students[len(students)-1]
		t := pagination.EncodeToken(last.CreatedAt, last.StudentID)
		token = &t
	}

	return students, token, nil
}

const updateFeeAggregateQuery = `
	UPDATE students
	SET admission_fee = $2, monthly_fee = $3, total_fee = $4, paid_fee = $5,
	    pending_fee = $6, fee_structure_id = $7, version = version + 1,
	    last_updated_at = $8, last_updated_by = $9
	WHERE student_id = $1 AND version = $10;
`

// staleOrMissing distinguishes a version conflict from a missing student after
// a zero-row compare-and-set update.
func (r *PgxStudentRepository) staleOrMissing(ctx context.Context, studentID string) error {
	var exists bool
	if err := r.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM students WHERE student_id = $1);`, studentID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check student %s after stale write: %w", studentID, err)
	}
	if !exists {
		return apperrors.ErrNotFound
	}
	return fmt.Errorf("student %s was modified concurrently: %w", studentID, apperrors.ErrConflict)
}

const insertCorrectionQuery = `
	INSERT INTO correction_log (correction_id, student_id, correction_type, before_state, after_state, applied_by, applied_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7);
`

// ApplyFeeCorrection replaces the fee snapshot and journals the correction in
// one database transaction.
func (r *PgxStudentRepository) ApplyFeeCorrection(ctx context.Context, studentID string, fee domain.FeeAggregate, expectedVersion int64, log domain.CorrectionLog) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	tag, err := tx.Exec(ctx, updateFeeAggregateQuery,
		studentID,
		fee.AdmissionFee,
		fee.MonthlyFee,
		fee.TotalFee,
		fee.PaidFee,
		fee.PendingFee,
		fee.FeeStructureID,
		log.AppliedAt,
		log.AppliedBy,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to correct fee aggregate for student %s: %w", studentID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.staleOrMissing(ctx, studentID)
	}

	_, err = tx.Exec(ctx, insertCorrectionQuery,
		log.CorrectionID, log.StudentID, log.Type, log.Before, log.After, log.AppliedBy, log.AppliedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert correction log %s: %w", log.CorrectionID, err)
	}

	if err := r.Commit(ctx, tx); err != nil {
		return fmt.Errorf("failed to commit fee correction for student %s: %w", studentID, err)
	}

	return nil
}

// ApplyAdmissionCorrection replaces the profile field groups and journals the
// correction in one database transaction.
func (r *PgxStudentRepository) ApplyAdmissionCorrection(ctx context.Context, student domain.Student, expectedVersion int64, log domain.CorrectionLog) error {
	personal, contact, parent, academic, err := marshalProfile(student)
	if err != nil {
		return err
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	query := `
		UPDATE students
		SET personal_info = $2, contact_info = $3, parent_info = $4, academic_info = $5,
		    version = version + 1, last_updated_at = $6, last_updated_by = $7
		WHERE student_id = $1 AND version = $8;
	`
	tag, err := tx.Exec(ctx, query,
		student.StudentID,
		personal,
		contact,
		parent,
		academic,
		log.AppliedAt,
		log.AppliedBy,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to correct profile for student %s: %w", student.StudentID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.staleOrMissing(ctx, student.StudentID)
	}

	_, err = tx.Exec(ctx, insertCorrectionQuery,
		log.CorrectionID, log.StudentID, log.Type, log.Before, log.After, log.AppliedBy, log.AppliedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert correction log %s: %w", log.CorrectionID, err)
	}

	if err := r.Commit(ctx, tx); err != nil {
		return fmt.Errorf("failed to commit admission correction for student %s: %w", student.StudentID, err)
	}

	return nil
}

// ListCorrections retrieves the correction audit trail for a student, newest first.
func (r *PgxStudentRepository) ListCorrections(ctx context.Context, studentID string) ([]domain.CorrectionLog, error) {
	query := `
		SELECT correction_id, student_id, correction_type, before_state, after_state, applied_by, applied_at
		FROM correction_log
		WHERE student_id = $1
		ORDER BY applied_at DESC, correction_id DESC;
	`
	rows, err := r.Pool.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections for student %s: %w", studentID, err)
	}
	defer rows.Close()

	logs := []domain.CorrectionLog{}
	for rows.Next() {
		var log domain.CorrectionLog
		if err := rows.Scan(
			&log.CorrectionID,
			&log.StudentID,
			&log.Type,
			&log.Before,
			&log.After,
			&log.AppliedBy,
			&log.AppliedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan correction row for student %s: %w", studentID, err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating correction rows for student %s: %w", studentID, err)
	}

	return logs, nil
}
