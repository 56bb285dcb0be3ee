package service

import (
	"context"

	"lms/internal/domain"
	"lms/internal/repository"
)

// EnrollmentService answers entitlement queries.
type EnrollmentService struct {
	store repository.Store
	now   Clock
}

// NewEnrollmentService creates a new EnrollmentService.
func NewEnrollmentService(store repository.Store) *EnrollmentService {
	return &EnrollmentService{store: store, now: systemClock}
}

// SetClock replaces the time source.
func (s *EnrollmentService) SetClock(clock Clock) {
	s.now = clock
}

// ListEnrollments returns a student's course enrollments, optionally filtered to one course.
func (s *EnrollmentService) ListEnrollments(ctx context.Context, studentID, courseID string) ([]*domain.Enrollment, error) {
	if studentID == "" {
		return nil, ErrInvalidUserID
	}
	all, err := s.store.Enrollments().ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if courseID == "" {
		return all, nil
	}
	out := make([]*domain.Enrollment, 0, 1)
	for _, e := range all {
		if e.CourseID == courseID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ListComboEnrollments returns a student's bundle enrollments, optionally filtered to one combo.
func (s *EnrollmentService) ListComboEnrollments(ctx context.Context, studentID, comboID string) ([]*domain.ComboEnrollment, error) {
	if studentID == "" {
		return nil, ErrInvalidUserID
	}
	all, err := s.store.ComboEnrollments().ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if comboID == "" {
		return all, nil
	}
	out := make([]*domain.ComboEnrollment, 0, 1)
	for _, c := range all {
		if c.ComboID == comboID {
			out = append(out, c)
		}
	}
	return out, nil
}

// HasAccess reports whether the student can open courseID at the current time,
// either directly or through an active bundle.
func (s *EnrollmentService) HasAccess(ctx context.Context, studentID, courseID string) (bool, error) {
	if studentID == "" {
		return false, ErrInvalidUserID
	}
	if courseID == "" {
		return false, ErrInvalidItemID
	}
	now := s.now()

	enrollments, err := s.ListEnrollments(ctx, studentID, courseID)
	if err != nil {
		return false, err
	}
	for _, e := range enrollments {
		if e.Active(now) {
			return true, nil
		}
	}

	combos, err := s.store.ComboEnrollments().ListByStudent(ctx, studentID)
	if err != nil {
		return false, err
	}
	for _, ce := range combos {
		if !ce.Active(now) {
			continue
		}
		combo, err := s.store.Catalog().GetCombo(ctx, ce.ComboID)
		if err != nil {
			return false, err
		}
		for _, id := range combo.CourseIDs {
			if id == courseID {
				return true, nil
			}
		}
	}
	return false, nil
}
