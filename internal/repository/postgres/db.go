package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"lms/internal/repository"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier               = (*sql.DB)(nil)
	_ Querier               = (*sql.Tx)(nil)
	_ repository.UnitOfWork = (*UnitOfWork)(nil)
)

const uniqueViolation = "23505"

// mapError translates driver errors into repository sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return &repository.DuplicateError{Constraint: pqErr.Constraint}
	}
	return err
}

// expectAffected turns a zero-row update into the given sentinel.
func expectAffected(result sql.Result, none error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return none
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// store binds every repository to one Querier.
type store struct {
	payments         *PaymentRepository
	enrollments      *EnrollmentRepository
	comboEnrollments *ComboEnrollmentRepository
	vouchers         *VoucherRepository
	invoices         *InvoiceRepository
	events           *PaymentEventRepository
	catalog          *CatalogRepository
}

func (s *store) Payments() repository.PaymentRepository                 { return s.payments }
func (s *store) Enrollments() repository.EnrollmentRepository           { return s.enrollments }
func (s *store) ComboEnrollments() repository.ComboEnrollmentRepository { return s.comboEnrollments }
func (s *store) Vouchers() repository.VoucherRepository                 { return s.vouchers }
func (s *store) Invoices() repository.InvoiceRepository                 { return s.invoices }
func (s *store) Events() repository.PaymentEventRepository              { return s.events }
func (s *store) Catalog() repository.CatalogRepository                  { return s.catalog }

func newTxStore(tx *sql.Tx) *store {
	return &store{
		payments:         NewPaymentRepositoryWithTx(tx),
		enrollments:      NewEnrollmentRepositoryWithTx(tx),
		comboEnrollments: NewComboEnrollmentRepositoryWithTx(tx),
		vouchers:         NewVoucherRepositoryWithTx(tx),
		invoices:         NewInvoiceRepositoryWithTx(tx),
		events:           NewPaymentEventRepositoryWithTx(tx),
		catalog:          NewCatalogRepositoryWithTx(tx),
	}
}

// UnitOfWork is a PostgreSQL implementation of repository.UnitOfWork.
type UnitOfWork struct {
	*store
	db *sql.DB
}

// NewUnitOfWork creates a unit of work whose non-transactional repositories use db directly.
func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	return &UnitOfWork{
		store: &store{
			payments:         NewPaymentRepository(db),
			enrollments:      NewEnrollmentRepository(db),
			comboEnrollments: NewComboEnrollmentRepository(db),
			vouchers:         NewVoucherRepository(db),
			invoices:         NewInvoiceRepository(db),
			events:           NewPaymentEventRepository(db),
			catalog:          NewCatalogRepository(db),
		},
		db: db,
	}
}

// WithinTx runs fn inside a READ COMMITTED transaction.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) (err error) {
	tx, err := u.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(ctx, newTxStore(tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
