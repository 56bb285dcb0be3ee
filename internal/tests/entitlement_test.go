package tests

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"lms/internal/domain"
	"lms/internal/redis"
	"lms/internal/repository"
	"lms/internal/service"
	"lms/internal/storage"
)

// ──────────────────────────────────────────────
// 1. GRANTOR
// ──────────────────────────────────────────────

func TestGrant_RequiresCompletedPayment(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	p := domain.NewPayment("p-1", "20240301AAAAAAAAAAAA", fixedNow)
	p.UserID = testUserID
	p.PurchaseType = domain.PurchaseTypeCourse
	p.ItemID = testCourseID

	err := h.uow.WithinTx(context.Background(), func(ctx context.Context, tx repository.Store) error {
		_, err := h.grantor.GrantTx(ctx, tx, p)
		return err
	})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestGrant_AlreadyLinked_ReturnsAlreadyGranted(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	p := domain.NewPayment("p-1", "20240301AAAAAAAAAAAA", fixedNow)
	p.UserID = testUserID
	p.PurchaseType = domain.PurchaseTypeCourse
	p.ItemID = testCourseID
	p.Status = domain.PaymentStatusCompleted
	p.EnrollmentID = "e-1"
	h.uow.AddPayment(p)

	err := h.uow.WithinTx(context.Background(), func(ctx context.Context, tx repository.Store) error {
		_, err := h.grantor.GrantTx(ctx, tx, p)
		return err
	})
	if !errors.Is(err, service.ErrAlreadyGranted) {
		t.Errorf("expected ErrAlreadyGranted, got %v", err)
	}
	if h.uow.EnrollmentCount() != 0 {
		t.Error("expected no new enrollment")
	}
}

func TestGrant_ConcurrentLinkLost_ReturnsAlreadyGranted(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	p := domain.NewPayment("p-1", "20240301AAAAAAAAAAAA", fixedNow)
	p.UserID = testUserID
	p.PurchaseType = domain.PurchaseTypeCourse
	p.ItemID = testCourseID
	p.Status = domain.PaymentStatusCompleted
	h.uow.AddPayment(p)

	// The stored row was linked by a racing transaction after p was read.
	stored := *p
	stored.EnrollmentID = "e-other"
	h.uow.AddPayment(&stored)

	err := h.uow.WithinTx(context.Background(), func(ctx context.Context, tx repository.Store) error {
		_, err := h.grantor.GrantTx(ctx, tx, p)
		return err
	})
	if !errors.Is(err, service.ErrAlreadyGranted) {
		t.Errorf("expected ErrAlreadyGranted, got %v", err)
	}
	if h.uow.EnrollmentCount() != 0 {
		t.Errorf("expected enrollment insert to be rolled back, got %d", h.uow.EnrollmentCount())
	}
}

func TestGrant_InvoiceAlreadyIssued_ReturnsAlreadyGranted(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	p := domain.NewPayment("p-1", "20240301AAAAAAAAAAAA", fixedNow)
	p.UserID = testUserID
	p.PurchaseType = domain.PurchaseTypeCourse
	p.ItemID = testCourseID
	p.Status = domain.PaymentStatusCompleted
	h.uow.AddPayment(p)
	h.uow.FailOn(OpInvoiceCreate, &repository.DuplicateError{Constraint: repository.ConstraintInvoicePayment}, 1)

	err := h.uow.WithinTx(context.Background(), func(ctx context.Context, tx repository.Store) error {
		_, err := h.grantor.GrantTx(ctx, tx, p)
		return err
	})
	if !errors.Is(err, service.ErrAlreadyGranted) {
		t.Errorf("expected ErrAlreadyGranted, got %v", err)
	}
	if calls := h.uow.Calls(OpInvoiceCreate); calls != 1 {
		t.Errorf("expected one invoice insert, got %d", calls)
	}
	if h.uow.EnrollmentCount() != 0 {
		t.Errorf("expected enrollment to be rolled back, got %d", h.uow.EnrollmentCount())
	}
}

func TestGrant_UnknownUser_IssuesInvoiceWithoutSnapshot(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	p := domain.NewPayment("p-1", "20240301AAAAAAAAAAAA", fixedNow)
	p.UserID = "ghost"
	p.PurchaseType = domain.PurchaseTypeCourse
	p.ItemID = testCourseID
	p.Status = domain.PaymentStatusCompleted
	p.BaseAmount = coursePrice
	h.uow.AddPayment(p)

	var grant *service.GrantResult
	err := h.uow.WithinTx(context.Background(), func(ctx context.Context, tx repository.Store) error {
		var err error
		grant, err = h.grantor.GrantTx(ctx, tx, p)
		return err
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if grant.Invoice.CustomerName != "" {
		t.Errorf("expected empty customer name, got %q", grant.Invoice.CustomerName)
	}
	if grant.Invoice.TotalAmount != coursePrice {
		t.Errorf("expected total %d, got %d", coursePrice, grant.Invoice.TotalAmount)
	}
}

// ──────────────────────────────────────────────
// 2. ACCESS QUERIES
// ──────────────────────────────────────────────

func TestHasAccess_DirectAndCombo(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	p := h.createPending(t, domain.PurchaseTypeCombo, testComboID, "")
	if _, err := h.payments.HandleCallback(context.Background(), h.callback(p.TxnRef, p.Amount, "00")); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	svc := service.NewEnrollmentService(h.uow)
	svc.SetClock(fixedClock)

	ok, err := svc.HasAccess(context.Background(), testUserID, "course-sql")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !ok {
		t.Error("expected combo to grant access to its courses")
	}

	ok, _ = svc.HasAccess(context.Background(), testUserID, "course-rust")
	if ok {
		t.Error("expected no access to a course outside the combo")
	}
	ok, _ = svc.HasAccess(context.Background(), "user-2", "course-sql")
	if ok {
		t.Error("expected no access for another user")
	}

	// After the window the combo no longer grants access.
	svc.SetClock(func() time.Time { return fixedNow.AddDate(0, 0, 181) })
	ok, _ = svc.HasAccess(context.Background(), testUserID, "course-sql")
	if ok {
		t.Error("expected access to end with the combo window")
	}

	list, err := svc.ListComboEnrollments(context.Background(), testUserID, testComboID)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 combo enrollment, got %d", len(list))
	}
}

// ──────────────────────────────────────────────
// 3. EXPIRATION SWEEPER
// ──────────────────────────────────────────────

func seedComboEnrollments(uow *MockUnitOfWork) {
	uow.AddComboEnrollment(&domain.ComboEnrollment{
		ID: "due", StudentID: "s1", ComboID: testComboID,
		ExpirationDate: fixedNow.Add(-time.Hour),
	})
	uow.AddComboEnrollment(&domain.ComboEnrollment{
		ID: "completed", StudentID: "s2", ComboID: testComboID,
		ExpirationDate: fixedNow.Add(-time.Hour), Completed: true,
	})
	uow.AddComboEnrollment(&domain.ComboEnrollment{
		ID: "future", StudentID: "s3", ComboID: testComboID,
		ExpirationDate: fixedNow.Add(time.Hour),
	})
	uow.AddComboEnrollment(&domain.ComboEnrollment{
		ID: "exact", StudentID: "s4", ComboID: testComboID,
		ExpirationDate: fixedNow,
	})
	uow.AddComboEnrollment(&domain.ComboEnrollment{
		ID: "unlimited", StudentID: "s5", ComboID: testComboID,
	})
}

func TestSweep_ExpiresOnlyDueEnrollments(t *testing.T) {
	t.Parallel()

	uow := NewMockUnitOfWork()
	seedComboEnrollments(uow)

	sweeper := service.NewExpirationSweeper(uow, nil, 0, 0, nil)
	sweeper.SetClock(fixedClock)

	n, err := sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired, got %d", n)
	}

	due := uow.ComboEnrollment("due")
	if !due.Expired || !due.ExpiredAt.Equal(fixedNow) {
		t.Errorf("expected due enrollment expired at %v, got %+v", fixedNow, due)
	}
	for _, id := range []string{"completed", "future", "exact", "unlimited"} {
		if uow.ComboEnrollment(id).Expired {
			t.Errorf("expected %s not to expire", id)
		}
	}

	// A second pass changes nothing.
	n, err = sweeper.Sweep(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if n != 0 {
		t.Errorf("expected idempotent sweep, got %d", n)
	}
}

func TestSweep_RunOnce_HonoursJobLock(t *testing.T) {
	t.Parallel()

	uow := NewMockUnitOfWork()
	seedComboEnrollments(uow)
	locks := NewMockLockStore()

	sweeper := service.NewExpirationSweeper(uow, locks, time.Minute, time.Minute, nil)
	sweeper.SetClock(fixedClock)

	lockName := redis.JobLockName("combo-expiration")
	locks.Hold(lockName)

	ran, err := sweeper.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if ran {
		t.Error("expected sweep to be skipped while the lock is held")
	}
	if uow.ComboEnrollment("due").Expired {
		t.Error("expected nothing to expire while skipped")
	}

	locks.Release(context.Background(), lockName, "held-elsewhere")

	ran, err = sweeper.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !ran {
		t.Error("expected sweep to run")
	}
	if !uow.ComboEnrollment("due").Expired {
		t.Error("expected due enrollment to expire")
	}
	if locks.IsHeld(lockName) {
		t.Error("expected lock to be released after the run")
	}
}

func TestSweep_StoreError_Propagates(t *testing.T) {
	t.Parallel()

	uow := NewMockUnitOfWork()
	uow.FailOn(OpExpireDue, errors.New("connection reset"), 1)

	sweeper := service.NewExpirationSweeper(uow, NewMockLockStore(), 0, 0, nil)
	if _, err := sweeper.RunOnce(context.Background()); err == nil {
		t.Error("expected error")
	}
}

func TestSweep_StartRejectsBadSchedule(t *testing.T) {
	t.Parallel()

	sweeper := service.NewExpirationSweeper(NewMockUnitOfWork(), nil, 0, 0, nil)
	if err := sweeper.Start("not a cron spec"); err == nil {
		t.Error("expected invalid schedule to be rejected")
	}

	if err := sweeper.Start("@every 1h"); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sweeper.Stop(ctx)
}

// ──────────────────────────────────────────────
// 4. CATALOG CACHE
// ──────────────────────────────────────────────

func TestCachedCatalog_ReadThrough(t *testing.T) {
	t.Parallel()

	uow := NewMockUnitOfWork()
	uow.AddCourse(&domain.Course{ID: testCourseID, Title: "Go", Price: coursePrice, DurationDays: 30})
	uow.AddCombo(&domain.Combo{ID: testComboID, Price: comboPrice, CourseIDs: []string{testCourseID}})
	cache := NewMockCacheStore()

	catalog := service.NewCachedCatalog(uow.Catalog(), cache, nil)

	for i := 0; i < 3; i++ {
		c, err := catalog.GetCourse(context.Background(), testCourseID)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if c.Price != coursePrice || c.DurationDays != 30 {
			t.Errorf("expected cached course to match, got %+v", c)
		}
	}
	if cache.MissCount != 1 || cache.HitCount != 2 {
		t.Errorf("expected 1 miss and 2 hits, got %d and %d", cache.MissCount, cache.HitCount)
	}

	combo, err := catalog.GetCombo(context.Background(), testComboID)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(combo.CourseIDs) != 1 {
		t.Errorf("expected combo courses, got %v", combo.CourseIDs)
	}

	if _, err := catalog.GetCourse(context.Background(), "missing"); err == nil {
		t.Error("expected not found for unknown course")
	}
}

func TestCachedCatalog_CacheDown_FallsBack(t *testing.T) {
	t.Parallel()

	uow := NewMockUnitOfWork()
	uow.AddCourse(&domain.Course{ID: testCourseID, Price: coursePrice})
	cache := NewMockCacheStore()
	cache.GetError = errors.New("redis: timeout")

	catalog := service.NewCachedCatalog(uow.Catalog(), cache, nil)
	c, err := catalog.GetCourse(context.Background(), testCourseID)
	if err != nil {
		t.Fatalf("expected fallback to succeed, got: %v", err)
	}
	if c.Price != coursePrice {
		t.Errorf("expected price %d, got %d", coursePrice, c.Price)
	}
}

// ──────────────────────────────────────────────
// 5. INVOICE DOCUMENTS AND NUMBERS
// ──────────────────────────────────────────────

func TestInvoiceDocument_PublishOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	p := h.createPending(t, domain.PurchaseTypeCourse, testCourseID, "")
	res, err := h.payments.HandleCallback(context.Background(), h.callback(p.TxnRef, p.Amount, "00"))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	inv := res.Grant.Invoice

	uploader := NewMockUploader()
	docs := service.NewInvoiceDocumentService(h.uow, uploader, service.NewNotificationService(nil), nil)
	docs.SetClock(fixedClock)

	published, err := docs.Publish(context.Background(), inv.ID)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	key := storage.InvoiceKey(testUserID, inv.InvoiceNumber)
	if !strings.HasSuffix(published.DocumentURL, key) {
		t.Errorf("expected URL ending in %s, got %s", key, published.DocumentURL)
	}
	body, ok := uploader.Object(key)
	if !ok {
		t.Fatal("expected document to be uploaded")
	}
	if !strings.Contains(body, inv.InvoiceNumber) || !strings.Contains(body, "165.000 VND") {
		t.Errorf("expected rendered invoice, got:\n%s", body)
	}

	if _, err := docs.Publish(context.Background(), inv.ID); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if uploader.UploadCallCount != 1 {
		t.Errorf("expected a single upload, got %d", uploader.UploadCallCount)
	}
}

func TestNumberGenerator_DailySequence(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gen := service.NewNumberGenerator(service.NewMemorySequence(), "", "", loc)
	// 20:00 UTC on Mar 1 is already Mar 2 in Vietnam.
	gen.SetClock(func() time.Time { return time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC) })

	first, _ := gen.GenerateInvoiceNumber(context.Background())
	second, _ := gen.GenerateInvoiceNumber(context.Background())
	cert, _ := gen.GenerateCertificateNumber(context.Background())

	if first != "INV-20240302-000001" || second != "INV-20240302-000002" {
		t.Errorf("expected consecutive local-date numbers, got %s and %s", first, second)
	}
	if cert != "CERT-20240302-000001" {
		t.Errorf("expected independent certificate sequence, got %s", cert)
	}
}

func TestNumberGenerator_RetriesOnCollision(t *testing.T) {
	t.Parallel()

	gen := service.NewNumberGenerator(service.NewMemorySequence(), "INV", "CERT", time.UTC)
	gen.SetClock(fixedClock)

	attempts := 0
	number, err := gen.WithInvoiceNumber(context.Background(), func(number string) error {
		attempts++
		if attempts < 3 {
			return errDuplicateNumber
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if number != "INV-20240301-000003" {
		t.Errorf("expected third number, got %s", number)
	}

	other := errors.New("boom")
	if _, err := gen.WithInvoiceNumber(context.Background(), func(string) error { return other }); !errors.Is(err, other) {
		t.Errorf("expected non-collision error to pass through, got %v", err)
	}
}

func TestNumberGenerator_OtherUniqueViolationNotRetried(t *testing.T) {
	t.Parallel()

	gen := service.NewNumberGenerator(service.NewMemorySequence(), "INV", "CERT", time.UTC)
	gen.SetClock(fixedClock)

	attempts := 0
	_, err := gen.WithInvoiceNumber(context.Background(), func(string) error {
		attempts++
		return &repository.DuplicateError{Constraint: repository.ConstraintInvoicePayment}
	})
	if attempts != 1 {
		t.Errorf("expected a single attempt, got %d", attempts)
	}
	if errors.Is(err, service.ErrNumberGenerationCollision) {
		t.Error("expected the payment constraint error, got a number collision")
	}
	if !repository.IsDuplicateOn(err, repository.ConstraintInvoicePayment) {
		t.Errorf("expected invoices_payment_id_key violation, got %v", err)
	}
}
