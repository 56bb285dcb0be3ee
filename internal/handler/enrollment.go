package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lms/internal/service"
)

// EnrollmentHandler handles HTTP requests for entitlements.
type EnrollmentHandler struct {
	enrollmentService *service.EnrollmentService
}

// NewEnrollmentHandler creates a new EnrollmentHandler.
func NewEnrollmentHandler(enrollmentService *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollmentService: enrollmentService}
}

// EnrollmentResponse is the HTTP response for a course enrollment.
type EnrollmentResponse struct {
	ID         string `json:"id"`
	StudentID  string `json:"student_id"`
	CourseID   string `json:"course_id"`
	PaymentID  string `json:"payment_id,omitempty"`
	EnrolledAt string `json:"enrolled_at"`
	ExpiresAt  string `json:"expires_at,omitempty"`
	Completed  bool   `json:"completed"`
}

// ComboEnrollmentResponse is the HTTP response for a bundle enrollment.
type ComboEnrollmentResponse struct {
	ID             string `json:"id"`
	StudentID      string `json:"student_id"`
	ComboID        string `json:"combo_id"`
	PaymentID      string `json:"payment_id,omitempty"`
	EnrolledAt     string `json:"enrolled_at"`
	ExpirationDate string `json:"expiration_date,omitempty"`
	Completed      bool   `json:"completed"`
	Expired        bool   `json:"expired"`
}

// AccessResponse is the HTTP response for an access check.
type AccessResponse struct {
	UserID    string `json:"user_id"`
	CourseID  string `json:"course_id"`
	HasAccess bool   `json:"has_access"`
}

// ListEnrollments handles GET /v1/enrollments?user_id=&course_id=
func (h *EnrollmentHandler) ListEnrollments(c *gin.Context) {
	enrollments, err := h.enrollmentService.ListEnrollments(c.Request.Context(), c.Query("user_id"), c.Query("course_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]EnrollmentResponse, 0, len(enrollments))
	for _, e := range enrollments {
		out = append(out, EnrollmentResponse{
			ID:         e.ID,
			StudentID:  e.StudentID,
			CourseID:   e.CourseID,
			PaymentID:  e.PaymentID,
			EnrolledAt: e.EnrolledAt.Format(time.RFC3339),
			ExpiresAt:  formatOptionalTime(e.ExpiresAt),
			Completed:  e.Completed,
		})
	}
	respondJSON(c, http.StatusOK, out)
}

// ListComboEnrollments handles GET /v1/combo-enrollments?user_id=&combo_id=
func (h *EnrollmentHandler) ListComboEnrollments(c *gin.Context) {
	enrollments, err := h.enrollmentService.ListComboEnrollments(c.Request.Context(), c.Query("user_id"), c.Query("combo_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]ComboEnrollmentResponse, 0, len(enrollments))
	for _, e := range enrollments {
		out = append(out, ComboEnrollmentResponse{
			ID:             e.ID,
			StudentID:      e.StudentID,
			ComboID:        e.ComboID,
			PaymentID:      e.PaymentID,
			EnrolledAt:     e.EnrolledAt.Format(time.RFC3339),
			ExpirationDate: formatOptionalTime(e.ExpirationDate),
			Completed:      e.Completed,
			Expired:        e.Expired,
		})
	}
	respondJSON(c, http.StatusOK, out)
}

// CheckAccess handles GET /v1/enrollments/access?user_id=&course_id=
func (h *EnrollmentHandler) CheckAccess(c *gin.Context) {
	userID, courseID := c.Query("user_id"), c.Query("course_id")

	ok, err := h.enrollmentService.HasAccess(c.Request.Context(), userID, courseID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, AccessResponse{UserID: userID, CourseID: courseID, HasAccess: ok})
}

func formatOptionalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
