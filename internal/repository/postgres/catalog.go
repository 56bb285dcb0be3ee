package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"lms/internal/domain"
)

// CatalogRepository reads courses, combos and users owned by the content service.
type CatalogRepository struct {
	q Querier
}

// NewCatalogRepository creates a new PostgreSQL catalog repository.
func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{q: db}
}

// NewCatalogRepositoryWithTx creates a catalog repository using a transaction.
func NewCatalogRepositoryWithTx(tx *sql.Tx) *CatalogRepository {
	return &CatalogRepository{q: tx}
}

// GetCourse retrieves a course's price and duration.
func (r *CatalogRepository) GetCourse(ctx context.Context, id string) (*domain.Course, error) {
	var c domain.Course
	err := r.q.QueryRowContext(ctx,
		`SELECT id, title, price, duration_days FROM courses WHERE id = $1`, id,
	).Scan(&c.ID, &c.Title, &c.Price, &c.DurationDays)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

// GetCombo retrieves a combo with the IDs of its courses.
func (r *CatalogRepository) GetCombo(ctx context.Context, id string) (*domain.Combo, error) {
	query := `
		SELECT c.id, c.title, c.price, c.duration_days,
		       COALESCE(ARRAY_AGG(cc.course_id ORDER BY cc.position) FILTER (WHERE cc.course_id IS NOT NULL), '{}')
		FROM combos c
		LEFT JOIN combo_courses cc ON cc.combo_id = c.id
		WHERE c.id = $1
		GROUP BY c.id
	`

	var c domain.Combo
	var courseIDs pq.StringArray
	if err := r.q.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Title, &c.Price, &c.DurationDays, &courseIDs); err != nil {
		return nil, mapError(err)
	}
	c.CourseIDs = []string(courseIDs)
	return &c, nil
}

// GetUser retrieves the customer snapshot used on invoices.
func (r *CatalogRepository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	var email, phone, address sql.NullString
	err := r.q.QueryRowContext(ctx,
		`SELECT id, full_name, email, phone, address FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.FullName, &email, &phone, &address)
	if err != nil {
		return nil, mapError(err)
	}
	u.Email = email.String
	u.Phone = phone.String
	u.Address = address.String
	return &u, nil
}
