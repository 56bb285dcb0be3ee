package tests

import (
	"context"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"lms/internal/domain"
	"lms/internal/events"
	"lms/internal/redis"
	"lms/internal/repository"
	"lms/internal/service"
)

// Operation names accepted by MockUnitOfWork.FailOn.
const (
	OpPaymentCreate         = "payments.create"
	OpPaymentUpdate         = "payments.update"
	OpPaymentLink           = "payments.link"
	OpEnrollmentCreate      = "enrollments.create"
	OpComboEnrollmentCreate = "combo_enrollments.create"
	OpVoucherIncrement      = "vouchers.increment"
	OpVoucherUsageCreate    = "vouchers.create_usage"
	OpInvoiceCreate         = "invoices.create"
	OpEventCreate           = "events.create"
	OpExpireDue             = "combo_enrollments.expire_due"
)

// ──────────────────────────────────────────────
// MOCK UNIT OF WORK
// ──────────────────────────────────────────────

// memData is the whole in-memory database.
type memData struct {
	payments         map[string]*domain.Payment
	enrollments      map[string]*domain.Enrollment
	comboEnrollments map[string]*domain.ComboEnrollment
	vouchers         map[string]*domain.Voucher
	usages           []*domain.VoucherUsage
	invoices         map[string]*domain.Invoice
	events           []*domain.PaymentEvent
	courses          map[string]*domain.Course
	combos           map[string]*domain.Combo
	users            map[string]*domain.User
}

func newMemData() *memData {
	return &memData{
		payments:         make(map[string]*domain.Payment),
		enrollments:      make(map[string]*domain.Enrollment),
		comboEnrollments: make(map[string]*domain.ComboEnrollment),
		vouchers:         make(map[string]*domain.Voucher),
		invoices:         make(map[string]*domain.Invoice),
		courses:          make(map[string]*domain.Course),
		combos:           make(map[string]*domain.Combo),
		users:            make(map[string]*domain.User),
	}
}

// clone deep-copies every row so a rollback can restore it.
func (d *memData) clone() *memData {
	c := newMemData()
	for k, v := range d.payments {
		p := *v
		c.payments[k] = &p
	}
	for k, v := range d.enrollments {
		e := *v
		c.enrollments[k] = &e
	}
	for k, v := range d.comboEnrollments {
		e := *v
		c.comboEnrollments[k] = &e
	}
	for k, v := range d.vouchers {
		vc := *v
		c.vouchers[k] = &vc
	}
	for _, v := range d.usages {
		u := *v
		c.usages = append(c.usages, &u)
	}
	for k, v := range d.invoices {
		inv := *v
		c.invoices[k] = &inv
	}
	for _, v := range d.events {
		ev := *v
		c.events = append(c.events, &ev)
	}
	// Catalog rows are read-only.
	c.courses = d.courses
	c.combos = d.combos
	c.users = d.users
	return c
}

type injectedFailure struct {
	err       error
	remaining int // negative means every call
}

// MockUnitOfWork is an in-memory repository.UnitOfWork.
//
// Transactions are serialized, which stands in for the row locks Postgres takes.
// A failed transaction restores the snapshot taken when it began. Unique
// constraints and conditional updates behave like the SQL implementation.
// Writes made through the root store while another goroutine is inside a
// transaction are lost if that transaction rolls back.
type MockUnitOfWork struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data *memData

	failures map[string]*injectedFailure
	calls    map[string]int

	// Counters for verification
	WithinTxCallCount int32
	CommitCount       int32
	RollbackCount     int32

	root *memStore
}

// NewMockUnitOfWork creates an empty in-memory database.
func NewMockUnitOfWork() *MockUnitOfWork {
	m := &MockUnitOfWork{
		data:     newMemData(),
		failures: make(map[string]*injectedFailure),
		calls:    make(map[string]int),
	}
	m.root = &memStore{m: m}
	return m
}

var _ repository.UnitOfWork = (*MockUnitOfWork)(nil)

func (m *MockUnitOfWork) Payments() repository.PaymentRepository { return m.root.Payments() }
func (m *MockUnitOfWork) Enrollments() repository.EnrollmentRepository {
	return m.root.Enrollments()
}
func (m *MockUnitOfWork) ComboEnrollments() repository.ComboEnrollmentRepository {
	return m.root.ComboEnrollments()
}
func (m *MockUnitOfWork) Vouchers() repository.VoucherRepository     { return m.root.Vouchers() }
func (m *MockUnitOfWork) Invoices() repository.InvoiceRepository     { return m.root.Invoices() }
func (m *MockUnitOfWork) Events() repository.PaymentEventRepository  { return m.root.Events() }
func (m *MockUnitOfWork) Catalog() repository.CatalogRepository      { return m.root.Catalog() }

// WithinTx runs fn against a transactional store and rolls back on error or panic.
func (m *MockUnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) (err error) {
	atomic.AddInt32(&m.WithinTxCallCount, 1)
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	snapshot := m.data.clone()
	m.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			m.restore(snapshot)
			panic(p)
		}
		if err != nil {
			m.restore(snapshot)
			return
		}
		atomic.AddInt32(&m.CommitCount, 1)
	}()

	return fn(ctx, &memStore{m: m})
}

func (m *MockUnitOfWork) restore(snapshot *memData) {
	atomic.AddInt32(&m.RollbackCount, 1)
	m.mu.Lock()
	m.data = snapshot
	m.mu.Unlock()
}

// FailOn makes the next times calls of op return err. A negative times fails every call.
func (m *MockUnitOfWork) FailOn(op string, err error, times int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = &injectedFailure{err: err, remaining: times}
}

// Calls returns how many times op was attempted.
func (m *MockUnitOfWork) Calls(op string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[op]
}

// begin records a call and returns any injected failure. The caller must hold mu.
func (m *MockUnitOfWork) begin(op string) error {
	m.calls[op]++
	f, ok := m.failures[op]
	if !ok || f.remaining == 0 {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
	}
	return f.err
}

// ── seeding ──

// AddCourse adds a catalog course.
func (m *MockUnitOfWork) AddCourse(c *domain.Course) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.courses[c.ID] = c
}

// AddCombo adds a catalog bundle.
func (m *MockUnitOfWork) AddCombo(c *domain.Combo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.combos[c.ID] = c
}

// AddUser adds a customer.
func (m *MockUnitOfWork) AddUser(u *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.users[u.ID] = u
}

// AddVoucher adds a voucher. A missing ID is generated.
func (m *MockUnitOfWork) AddVoucher(v *domain.Voucher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	cp := *v
	m.data.vouchers[v.ID] = &cp
}

// AddPayment stores a payment directly.
func (m *MockUnitOfWork) AddPayment(p *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.data.payments[p.ID] = &cp
}

// AddComboEnrollment stores a bundle enrollment directly.
func (m *MockUnitOfWork) AddComboEnrollment(e *domain.ComboEnrollment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.data.comboEnrollments[e.ID] = &cp
}

// AddEnrollment stores a course enrollment directly.
func (m *MockUnitOfWork) AddEnrollment(e *domain.Enrollment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.data.enrollments[e.ID] = &cp
}

// ── assertions ──

// Payment returns a copy of the stored payment, or nil.
func (m *MockUnitOfWork) Payment(id string) *domain.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.data.payments[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// Voucher returns a copy of the stored voucher with the given code, or nil.
func (m *MockUnitOfWork) Voucher(code string) *domain.Voucher {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, v := range m.data.vouchers {
		if v.Code == code {
			cp := *v
			return &cp
		}
	}
	return nil
}

// ComboEnrollment returns a copy of the stored bundle enrollment, or nil.
func (m *MockUnitOfWork) ComboEnrollment(id string) *domain.ComboEnrollment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.data.comboEnrollments[id]
	if !ok {
		return nil
	}
	cp := *e
	return &cp
}

// EnrollmentCount returns the number of course enrollments.
func (m *MockUnitOfWork) EnrollmentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data.enrollments)
}

// ComboEnrollmentCount returns the number of bundle enrollments.
func (m *MockUnitOfWork) ComboEnrollmentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data.comboEnrollments)
}

// InvoiceCount returns the number of invoices.
func (m *MockUnitOfWork) InvoiceCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data.invoices)
}

// UsageCount returns the number of voucher usage rows.
func (m *MockUnitOfWork) UsageCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data.usages)
}

// PaymentCount returns the number of payments.
func (m *MockUnitOfWork) PaymentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data.payments)
}

// EventsWithStatus returns the logged events with the given status.
func (m *MockUnitOfWork) EventsWithStatus(status domain.PaymentEventStatus) []*domain.PaymentEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.PaymentEvent
	for _, ev := range m.data.events {
		if ev.Status == status {
			cp := *ev
			out = append(out, &cp)
		}
	}
	return out
}

// ──────────────────────────────────────────────
// IN-MEMORY REPOSITORIES
// ──────────────────────────────────────────────

type memStore struct {
	m *MockUnitOfWork
}

func (s *memStore) Payments() repository.PaymentRepository { return &memPayments{s.m} }
func (s *memStore) Enrollments() repository.EnrollmentRepository {
	return &memEnrollments{s.m}
}
func (s *memStore) ComboEnrollments() repository.ComboEnrollmentRepository {
	return &memComboEnrollments{s.m}
}
func (s *memStore) Vouchers() repository.VoucherRepository    { return &memVouchers{s.m} }
func (s *memStore) Invoices() repository.InvoiceRepository    { return &memInvoices{s.m} }
func (s *memStore) Events() repository.PaymentEventRepository { return &memEvents{s.m} }
func (s *memStore) Catalog() repository.CatalogRepository     { return &memCatalog{s.m} }

type memPayments struct{ m *MockUnitOfWork }

func (r *memPayments) Create(ctx context.Context, p *domain.Payment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.begin(OpPaymentCreate); err != nil {
		return err
	}
	for _, existing := range r.m.data.payments {
		if existing.TxnRef == p.TxnRef {
			return &repository.DuplicateError{Constraint: "payments_txn_ref_key"}
		}
	}
	cp := *p
	r.m.data.payments[p.ID] = &cp
	return nil
}

func (r *memPayments) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	p, ok := r.m.data.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPayments) GetByTxnRef(ctx context.Context, txnRef string) (*domain.Payment, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, p := range r.m.data.payments {
		if p.TxnRef == txnRef {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// GetByTxnRefForUpdate relies on WithinTx serialization for the lock.
func (r *memPayments) GetByTxnRefForUpdate(ctx context.Context, txnRef string) (*domain.Payment, error) {
	return r.GetByTxnRef(ctx, txnRef)
}

func (r *memPayments) Update(ctx context.Context, p *domain.Payment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.begin(OpPaymentUpdate); err != nil {
		return err
	}
	existing, ok := r.m.data.payments[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cp := *p
	// The entitlement link is only ever written by the Link methods.
	cp.EnrollmentID = existing.EnrollmentID
	cp.ComboEnrollmentID = existing.ComboEnrollmentID
	r.m.data.payments[p.ID] = &cp
	return nil
}

func (r *memPayments) LinkEnrollment(ctx context.Context, paymentID, enrollmentID string, now time.Time) error {
	return r.link(paymentID, now, func(p *domain.Payment) { p.EnrollmentID = enrollmentID })
}

func (r *memPayments) LinkComboEnrollment(ctx context.Context, paymentID, comboEnrollmentID string, now time.Time) error {
	return r.link(paymentID, now, func(p *domain.Payment) { p.ComboEnrollmentID = comboEnrollmentID })
}

func (r *memPayments) link(paymentID string, now time.Time, set func(p *domain.Payment)) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.begin(OpPaymentLink); err != nil {
		return err
	}
	p, ok := r.m.data.payments[paymentID]
	if !ok || p.HasEntitlement() {
		return repository.ErrConditionFailed
	}
	set(p)
	p.Touch(now)
	return nil
}

func (r *memPayments) ListByUser(ctx context.Context, userID string) ([]*domain.Payment, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*domain.Payment
	for _, p := range r.m.data.payments {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type memEnrollments struct{ m *MockUnitOfWork }

func (r *memEnrollments) Create(ctx context.Context, e *domain.Enrollment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.begin(OpEnrollmentCreate); err != nil {
		return err
	}
	if e.PaymentID != "" {
		for _, existing := range r.m.data.enrollments {
			if existing.PaymentID == e.PaymentID {
				return &repository.DuplicateError{Constraint: "enrollments_payment_id_key"}
			}
		}
	}
	cp := *e
	r.m.data.enrollments[e.ID] = &cp
	return nil
}

func (r *memEnrollments) GetByID(ctx context.Context, id string) (*domain.Enrollment, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	e, ok := r.m.data.enrollments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *memEnrollments) GetByStudentAndCourse(ctx context.Context, studentID, courseID string) (*domain.Enrollment, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var latest *domain.Enrollment
	for _, e := range r.m.data.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			if latest == nil || e.EnrolledAt.After(latest.EnrolledAt) {
				latest = e
			}
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (r *memEnrollments) ListByStudent(ctx context.Context, studentID string) ([]*domain.Enrollment, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*domain.Enrollment
	for _, e := range r.m.data.enrollments {
		if e.StudentID == studentID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrolledAt.After(out[j].EnrolledAt) })
	return out, nil
}

type memComboEnrollments struct{ m *MockUnitOfWork }

func (r *memComboEnrollments) Create(ctx context.Context, e *domain.ComboEnrollment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.begin(OpComboEnrollmentCreate); err != nil {
		return err
	}
	if e.PaymentID != "" {
		for _, existing := range r.m.data.comboEnrollments {
			if existing.PaymentID == e.PaymentID {
				return &repository.DuplicateError{Constraint: "combo_enrollments_payment_id_key"}
			}
		}
	}
	cp := *e
	r.m.data.comboEnrollments[e.ID] = &cp
	return nil
}

func (r *memComboEnrollments) GetByID(ctx context.Context, id string) (*domain.ComboEnrollment, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	e, ok := r.m.data.comboEnrollments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *memComboEnrollments) GetActiveByStudentAndCombo(ctx context.Context, studentID, comboID string, now time.Time) (*domain.ComboEnrollment, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, e := range r.m.data.comboEnrollments {
		if e.StudentID == studentID && e.ComboID == comboID && e.Active(now) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memComboEnrollments) ListByStudent(ctx context.Context, studentID string) ([]*domain.ComboEnrollment, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*domain.ComboEnrollment
	for _, e := range r.m.data.comboEnrollments {
		if e.StudentID == studentID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrolledAt.After(out[j].EnrolledAt) })
	return out, nil
}

func (r *memComboEnrollments) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.begin(OpExpireDue); err != nil {
		return 0, err
	}
	var n int64
	for _, e := range r.m.data.comboEnrollments {
		if e.ShouldExpire(now) {
			e.Expired = true
			e.ExpiredAt = now
			e.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

type memVouchers struct{ m *MockUnitOfWork }

func (r *memVouchers) GetByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, v := range r.m.data.vouchers {
		if v.Code == code {
			cp := *v
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// IncrementUsage applies the same predicate as the conditional SQL update.
func (r *memVouchers) IncrementUsage(ctx context.Context, voucherID string, now time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.begin(OpVoucherIncrement); err != nil {
		return err
	}
	v, ok := r.m.data.vouchers[voucherID]
	if !ok || !v.ValidAt(now) {
		return repository.ErrConditionFailed
	}
	v.UsageCount++
	v.UpdatedAt = now
	return nil
}

func (r *memVouchers) CreateUsage(ctx context.Context, usage *domain.VoucherUsage) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.begin(OpVoucherUsageCreate); err != nil {
		return err
	}
	cp := *usage
	r.m.data.usages = append(r.m.data.usages, &cp)
	return nil
}

func (r *memVouchers) CountUsagesByPayment(ctx context.Context, paymentID string) (int, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	n := 0
	for _, u := range r.m.data.usages {
		if u.PaymentID == paymentID {
			n++
		}
	}
	return n, nil
}

type memInvoices struct{ m *MockUnitOfWork }

func (r *memInvoices) Create(ctx context.Context, inv *domain.Invoice) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.begin(OpInvoiceCreate); err != nil {
		return err
	}
	for _, existing := range r.m.data.invoices {
		if existing.InvoiceNumber == inv.InvoiceNumber {
			return &repository.DuplicateError{Constraint: repository.ConstraintInvoiceNumber}
		}
		if inv.PaymentID != "" && existing.PaymentID == inv.PaymentID {
			return &repository.DuplicateError{Constraint: repository.ConstraintInvoicePayment}
		}
	}
	cp := *inv
	r.m.data.invoices[inv.ID] = &cp
	return nil
}

func (r *memInvoices) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	inv, ok := r.m.data.invoices[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *memInvoices) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Invoice, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, inv := range r.m.data.invoices {
		if inv.PaymentID == paymentID {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memInvoices) SetDocumentURL(ctx context.Context, id, url string, now time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	inv, ok := r.m.data.invoices[id]
	if !ok {
		return repository.ErrNotFound
	}
	inv.DocumentURL = url
	inv.Touch(now)
	return nil
}

type memEvents struct{ m *MockUnitOfWork }

func (r *memEvents) Create(ctx context.Context, ev *domain.PaymentEvent) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.begin(OpEventCreate); err != nil {
		return err
	}
	cp := *ev
	r.m.data.events = append(r.m.data.events, &cp)
	return nil
}

func (r *memEvents) ListByTxnRef(ctx context.Context, txnRef string) ([]*domain.PaymentEvent, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*domain.PaymentEvent
	for _, ev := range r.m.data.events {
		if ev.TxnRef == txnRef {
			cp := *ev
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memCatalog struct{ m *MockUnitOfWork }

func (r *memCatalog) GetCourse(ctx context.Context, id string) (*domain.Course, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	c, ok := r.m.data.courses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memCatalog) GetCombo(ctx context.Context, id string) (*domain.Combo, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	c, ok := r.m.data.combos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	cp.CourseIDs = append([]string(nil), c.CourseIDs...)
	return &cp, nil
}

func (r *memCatalog) GetUser(ctx context.Context, id string) (*domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	u, ok := r.m.data.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]string

	// Counters for verification
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]string)}
}

var _ redis.LockStoreInterface = (*MockLockStore)(nil)

func (m *MockLockStore) Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return "", false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[name]; held {
		return "", false, nil
	}
	token := uuid.New().String()
	m.locks[name] = token
	return token, true, nil
}

func (m *MockLockStore) Release(ctx context.Context, name, token string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[name] == token {
		delete(m.locks, name)
	}
	return nil
}

// Hold takes a lock on behalf of another process.
func (m *MockLockStore) Hold(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[name] = "held-elsewhere"
}

// IsHeld reports whether name is locked.
func (m *MockLockStore) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.locks[name]
	return ok
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is a mock implementation of CacheStoreInterface.
type MockCacheStore struct {
	mu      sync.RWMutex
	courses map[string]*redis.CachedCourse
	combos  map[string]*redis.CachedCombo

	// Counters for verification
	HitCount  int32
	MissCount int32

	// Error injection
	GetError error
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		courses: make(map[string]*redis.CachedCourse),
		combos:  make(map[string]*redis.CachedCombo),
	}
}

var _ redis.CacheStoreInterface = (*MockCacheStore)(nil)

func (m *MockCacheStore) GetCourse(ctx context.Context, courseID string) (*redis.CachedCourse, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[courseID]
	if !ok {
		atomic.AddInt32(&m.MissCount, 1)
		return nil, nil
	}
	atomic.AddInt32(&m.HitCount, 1)
	cp := *c
	return &cp, nil
}

func (m *MockCacheStore) SetCourse(ctx context.Context, course *redis.CachedCourse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *course
	m.courses[course.ID] = &cp
	return nil
}

func (m *MockCacheStore) GetCombo(ctx context.Context, comboID string) (*redis.CachedCombo, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.combos[comboID]
	if !ok {
		atomic.AddInt32(&m.MissCount, 1)
		return nil, nil
	}
	atomic.AddInt32(&m.HitCount, 1)
	cp := *c
	return &cp, nil
}

func (m *MockCacheStore) SetCombo(ctx context.Context, combo *redis.CachedCombo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *combo
	m.combos[combo.ID] = &cp
	return nil
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []events.PaymentEvent

	// Error injection
	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

var _ events.Publisher = (*MockPublisher)(nil)

func (m *MockPublisher) Publish(ctx context.Context, event events.PaymentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.PublishError
}

func (m *MockPublisher) Close() error { return nil }

// Types returns the published event types in order.
func (m *MockPublisher) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev.Type)
	}
	return out
}

// ──────────────────────────────────────────────
// MOCK DOCUMENT QUEUE AND UPLOADER
// ──────────────────────────────────────────────

// MockDocumentQueue records enqueued invoice documents.
type MockDocumentQueue struct {
	mu       sync.Mutex
	invoices []string

	// Error injection
	EnqueueError error
}

// NewMockDocumentQueue creates a new mock document queue.
func NewMockDocumentQueue() *MockDocumentQueue {
	return &MockDocumentQueue{}
}

func (m *MockDocumentQueue) EnqueueInvoiceDocument(ctx context.Context, invoiceID, paymentID string) error {
	if m.EnqueueError != nil {
		return m.EnqueueError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoices = append(m.invoices, invoiceID)
	return nil
}

// Enqueued returns the invoice IDs enqueued so far.
func (m *MockDocumentQueue) Enqueued() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.invoices...)
}

// MockUploader stores uploaded documents in memory.
type MockUploader struct {
	mu      sync.Mutex
	objects map[string]string

	// Counters for verification
	UploadCallCount int32

	// Error injection
	UploadError error
}

// NewMockUploader creates a new mock uploader.
func NewMockUploader() *MockUploader {
	return &MockUploader{objects: make(map[string]string)}
}

func (m *MockUploader) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	atomic.AddInt32(&m.UploadCallCount, 1)
	if m.UploadError != nil {
		return "", m.UploadError
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = string(b)
	return "https://files.example.com/" + key, nil
}

// Object returns an uploaded document body.
func (m *MockUploader) Object(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	return b, ok
}

// ──────────────────────────────────────────────
// MOCK NOTIFIER
// ──────────────────────────────────────────────

// MockNotifier counts notifications and can fail every send.
type MockNotifier struct {
	SendCount int32

	// Error injection
	SendError error
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

var _ service.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) send() error {
	atomic.AddInt32(&m.SendCount, 1)
	return m.SendError
}

func (m *MockNotifier) NotifyPaymentSuccess(ctx context.Context, payment *domain.Payment) error {
	return m.send()
}

func (m *MockNotifier) NotifyPaymentFailed(ctx context.Context, payment *domain.Payment) error {
	return m.send()
}

func (m *MockNotifier) NotifyPaymentRefunded(ctx context.Context, payment *domain.Payment) error {
	return m.send()
}

func (m *MockNotifier) NotifyEntitlementGranted(ctx context.Context, grant *service.GrantResult) error {
	return m.send()
}

func (m *MockNotifier) NotifyInvoiceReady(ctx context.Context, invoice *domain.Invoice) error {
	return m.send()
}
