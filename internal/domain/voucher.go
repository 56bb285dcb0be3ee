package domain

import "time"

// Voucher is a fixed-amount discount code with a validity window and a usage cap.
type Voucher struct {
	ID                    string
	Code                  string
	DiscountAmount        int64
	MinimumPurchaseAmount int64
	ValidFrom             time.Time
	ValidTo               time.Time // exclusive
	MaxUsage              int
	UsageCount            int
	Active                bool
	CourseID              string // empty means the voucher applies to any course
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// ValidAt reports active ∧ now ∈ [ValidFrom, ValidTo) ∧ UsageCount < MaxUsage.
func (v *Voucher) ValidAt(now time.Time) bool {
	if !v.Active {
		return false
	}
	if now.Before(v.ValidFrom) || !now.Before(v.ValidTo) {
		return false
	}
	return v.UsageCount < v.MaxUsage
}

// AppliesTo reports whether the voucher's course scope admits courseID.
func (v *Voucher) AppliesTo(courseID string) bool {
	return v.CourseID == "" || v.CourseID == courseID
}

// ValidFor combines ValidAt and AppliesTo.
func (v *Voucher) ValidFor(courseID string, now time.Time) bool {
	return v.ValidAt(now) && v.AppliesTo(courseID)
}

// DiscountFor returns the discount for a price, assuming the voucher is valid.
// It is zero below the minimum purchase amount and never exceeds the price.
func (v *Voucher) DiscountFor(price int64) int64 {
	if price <= 0 || price < v.MinimumPurchaseAmount {
		return 0
	}
	if v.DiscountAmount <= 0 {
		return 0
	}
	return min(v.DiscountAmount, price)
}

// VoucherUsage records one redemption. It is written together with the usage increment.
type VoucherUsage struct {
	ID        string
	VoucherID string
	UserID    string
	CourseID  string
	PaymentID string
	UsedAt    time.Time
}
