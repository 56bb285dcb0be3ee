package repository

import (
	"context"
	"time"

	"lms/internal/domain"
)

// EnrollmentRepository defines the persistence operations for course enrollments.
type EnrollmentRepository interface {
	// Create persists a new enrollment. Returns ErrDuplicate when the payment already has one.
	Create(ctx context.Context, enrollment *domain.Enrollment) error

	GetByID(ctx context.Context, id string) (*domain.Enrollment, error)

	// GetByStudentAndCourse returns the student's enrollment in a course, or ErrNotFound.
	GetByStudentAndCourse(ctx context.Context, studentID, courseID string) (*domain.Enrollment, error)

	ListByStudent(ctx context.Context, studentID string) ([]*domain.Enrollment, error)
}

// ComboEnrollmentRepository defines the persistence operations for bundle enrollments.
type ComboEnrollmentRepository interface {
	// Create persists a new combo enrollment. Returns ErrDuplicate when the payment already has one.
	Create(ctx context.Context, enrollment *domain.ComboEnrollment) error

	GetByID(ctx context.Context, id string) (*domain.ComboEnrollment, error)

	// GetActiveByStudentAndCombo returns an unexpired enrollment, or ErrNotFound.
	GetActiveByStudentAndCombo(ctx context.Context, studentID, comboID string, now time.Time) (*domain.ComboEnrollment, error)

	ListByStudent(ctx context.Context, studentID string) ([]*domain.ComboEnrollment, error)

	// ExpireDue marks every enrollment past its expiration date that is neither
	// completed nor already expired. Returns the number of rows marked.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}
