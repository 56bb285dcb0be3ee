package postgres

import (
	"context"
	"database/sql"

	"lms/internal/domain"
)

// EnrollmentRepository is a PostgreSQL implementation of repository.EnrollmentRepository.
type EnrollmentRepository struct {
	q Querier
}

// NewEnrollmentRepository creates a new PostgreSQL enrollment repository.
func NewEnrollmentRepository(db *sql.DB) *EnrollmentRepository {
	return &EnrollmentRepository{q: db}
}

// NewEnrollmentRepositoryWithTx creates an enrollment repository using a transaction.
func NewEnrollmentRepositoryWithTx(tx *sql.Tx) *EnrollmentRepository {
	return &EnrollmentRepository{q: tx}
}

const enrollmentColumns = `id, student_id, course_id, payment_id, enrolled_at, expires_at, completed, created_at, updated_at`

func scanEnrollment(row rowScanner) (*domain.Enrollment, error) {
	var e domain.Enrollment
	var paymentID sql.NullString
	var expiresAt sql.NullTime

	if err := row.Scan(
		&e.ID,
		&e.StudentID,
		&e.CourseID,
		&paymentID,
		&e.EnrolledAt,
		&expiresAt,
		&e.Completed,
		&e.CreatedAt,
		&e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	e.PaymentID = paymentID.String
	if expiresAt.Valid {
		e.ExpiresAt = expiresAt.Time
	}
	return &e, nil
}

// Create persists a new enrollment.
func (r *EnrollmentRepository) Create(ctx context.Context, e *domain.Enrollment) error {
	query := `
		INSERT INTO enrollments (` + enrollmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		e.ID,
		e.StudentID,
		e.CourseID,
		nullString(e.PaymentID),
		e.EnrolledAt,
		nullTime(e.ExpiresAt),
		e.Completed,
		e.CreatedAt,
		e.UpdatedAt,
	)
	return mapError(err)
}

// GetByID retrieves an enrollment by ID.
func (r *EnrollmentRepository) GetByID(ctx context.Context, id string) (*domain.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	e, err := scanEnrollment(r.q.QueryRowContext(ctx, query, id))
	return e, mapError(err)
}

// GetByStudentAndCourse returns the most recent enrollment of a student in a course.
func (r *EnrollmentRepository) GetByStudentAndCourse(ctx context.Context, studentID, courseID string) (*domain.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + ` FROM enrollments
		WHERE student_id = $1 AND course_id = $2
		ORDER BY enrolled_at DESC LIMIT 1
	`
	e, err := scanEnrollment(r.q.QueryRowContext(ctx, query, studentID, courseID))
	return e, mapError(err)
}

// ListByStudent returns a student's enrollments, newest first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]*domain.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = $1 ORDER BY enrolled_at DESC`

	rows, err := r.q.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrollments []*domain.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}
