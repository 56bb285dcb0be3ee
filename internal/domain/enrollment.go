package domain

import "time"

// Enrollment grants a student access to a single course.
type Enrollment struct {
	ID         string
	StudentID  string
	CourseID   string
	PaymentID  string // empty for free or manual enrollments
	EnrolledAt time.Time
	ExpiresAt  time.Time // zero means no expiry
	Completed  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewEnrollment creates a course enrollment starting at now. A duration of zero
// or less leaves the enrollment without an expiry.
func NewEnrollment(id, studentID, courseID, paymentID string, durationDays int, now time.Time) *Enrollment {
	return &Enrollment{
		ID:         id,
		StudentID:  studentID,
		CourseID:   courseID,
		PaymentID:  paymentID,
		EnrolledAt: now,
		ExpiresAt:  ExpirationFrom(now, durationDays),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Active reports whether the enrollment still grants access at now.
func (e *Enrollment) Active(now time.Time) bool {
	return e.ExpiresAt.IsZero() || now.Before(e.ExpiresAt)
}

// ComboEnrollment grants a student access to a bundle of courses for a fixed window.
type ComboEnrollment struct {
	ID             string
	StudentID      string
	ComboID        string
	PaymentID      string
	EnrolledAt     time.Time
	ExpirationDate time.Time // fixed at creation; zero means no expiry
	Completed      bool
	Expired        bool
	ExpiredAt      time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewComboEnrollment creates a bundle enrollment whose expiration is computed once
// as now + durationDays.
func NewComboEnrollment(id, studentID, comboID, paymentID string, durationDays int, now time.Time) *ComboEnrollment {
	return &ComboEnrollment{
		ID:             id,
		StudentID:      studentID,
		ComboID:        comboID,
		PaymentID:      paymentID,
		EnrolledAt:     now,
		ExpirationDate: ExpirationFrom(now, durationDays),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// ShouldExpire reports whether the sweeper should mark this enrollment expired at now.
func (c *ComboEnrollment) ShouldExpire(now time.Time) bool {
	return !c.ExpirationDate.IsZero() && now.After(c.ExpirationDate) && !c.Completed && !c.Expired
}

// Active reports whether the bundle still grants access at now.
func (c *ComboEnrollment) Active(now time.Time) bool {
	if c.Expired {
		return false
	}
	return c.ExpirationDate.IsZero() || now.Before(c.ExpirationDate)
}

// ExpirationFrom returns start + durationDays calendar days, or the zero time for
// non-positive durations.
func ExpirationFrom(start time.Time, durationDays int) time.Time {
	if durationDays <= 0 {
		return time.Time{}
	}
	return start.AddDate(0, 0, durationDays)
}
