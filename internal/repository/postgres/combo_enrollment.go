package postgres

import (
	"context"
	"database/sql"
	"time"

	"lms/internal/domain"
)

// ComboEnrollmentRepository is a PostgreSQL implementation of repository.ComboEnrollmentRepository.
type ComboEnrollmentRepository struct {
	q Querier
}

// NewComboEnrollmentRepository creates a new PostgreSQL combo enrollment repository.
func NewComboEnrollmentRepository(db *sql.DB) *ComboEnrollmentRepository {
	return &ComboEnrollmentRepository{q: db}
}

// NewComboEnrollmentRepositoryWithTx creates a combo enrollment repository using a transaction.
func NewComboEnrollmentRepositoryWithTx(tx *sql.Tx) *ComboEnrollmentRepository {
	return &ComboEnrollmentRepository{q: tx}
}

const comboEnrollmentColumns = `
	id, student_id, combo_id, payment_id, enrolled_at, expiration_date,
	completed, expired, expired_at, created_at, updated_at`

func scanComboEnrollment(row rowScanner) (*domain.ComboEnrollment, error) {
	var c domain.ComboEnrollment
	var paymentID sql.NullString
	var expirationDate, expiredAt sql.NullTime

	if err := row.Scan(
		&c.ID,
		&c.StudentID,
		&c.ComboID,
		&paymentID,
		&c.EnrolledAt,
		&expirationDate,
		&c.Completed,
		&c.Expired,
		&expiredAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.PaymentID = paymentID.String
	if expirationDate.Valid {
		c.ExpirationDate = expirationDate.Time
	}
	if expiredAt.Valid {
		c.ExpiredAt = expiredAt.Time
	}
	return &c, nil
}

// Create persists a new combo enrollment.
func (r *ComboEnrollmentRepository) Create(ctx context.Context, c *domain.ComboEnrollment) error {
	query := `
		INSERT INTO combo_enrollments (` + comboEnrollmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.q.ExecContext(ctx, query,
		c.ID,
		c.StudentID,
		c.ComboID,
		nullString(c.PaymentID),
		c.EnrolledAt,
		nullTime(c.ExpirationDate),
		c.Completed,
		c.Expired,
		nullTime(c.ExpiredAt),
		c.CreatedAt,
		c.UpdatedAt,
	)
	return mapError(err)
}

// GetByID retrieves a combo enrollment by ID.
func (r *ComboEnrollmentRepository) GetByID(ctx context.Context, id string) (*domain.ComboEnrollment, error) {
	query := `SELECT ` + comboEnrollmentColumns + ` FROM combo_enrollments WHERE id = $1`
	c, err := scanComboEnrollment(r.q.QueryRowContext(ctx, query, id))
	return c, mapError(err)
}

// GetActiveByStudentAndCombo returns an enrollment that still grants access at now.
func (r *ComboEnrollmentRepository) GetActiveByStudentAndCombo(ctx context.Context, studentID, comboID string, now time.Time) (*domain.ComboEnrollment, error) {
	query := `
		SELECT ` + comboEnrollmentColumns + ` FROM combo_enrollments
		WHERE student_id = $1 AND combo_id = $2 AND NOT expired
		  AND (expiration_date IS NULL OR expiration_date > $3)
		ORDER BY enrolled_at DESC LIMIT 1
	`
	c, err := scanComboEnrollment(r.q.QueryRowContext(ctx, query, studentID, comboID, now))
	return c, mapError(err)
}

// ListByStudent returns a student's combo enrollments, newest first.
func (r *ComboEnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]*domain.ComboEnrollment, error) {
	query := `SELECT ` + comboEnrollmentColumns + ` FROM combo_enrollments WHERE student_id = $1 ORDER BY enrolled_at DESC`

	rows, err := r.q.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrollments []*domain.ComboEnrollment
	for rows.Next() {
		c, err := scanComboEnrollment(rows)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, c)
	}
	return enrollments, rows.Err()
}

// ExpireDue marks overdue enrollments expired in a single statement.
func (r *ComboEnrollmentRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE combo_enrollments
		SET expired = TRUE, expired_at = $1, updated_at = $1
		WHERE expiration_date < $1 AND NOT completed AND NOT expired
	`

	result, err := r.q.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
