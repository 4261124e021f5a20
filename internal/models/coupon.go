package models

import "time"

type CouponType string

const (
	CouponPercentage   CouponType = "percentage"
	CouponFixed        CouponType = "fixed"
	CouponFreeShipping CouponType = "free_shipping"
)

func (t CouponType) Valid() bool {
	switch t {
	case CouponPercentage, CouponFixed, CouponFreeShipping:
		return true
	}
	return false
}

type CouponStatus string

const (
	CouponActive   CouponStatus = "active"
	CouponInactive CouponStatus = "inactive"
	CouponExpired  CouponStatus = "expired"
)

var couponTransitions = map[CouponStatus][]CouponStatus{
	CouponActive:   {CouponInactive, CouponExpired},
	CouponInactive: {CouponActive, CouponExpired},
	CouponExpired:  {CouponInactive},
}

// CanTransitionTo reports whether an admin may move a coupon from s to next.
func (s CouponStatus) CanTransitionTo(next CouponStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range couponTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Coupon struct {
	ID                    uint         `gorm:"primaryKey" json:"id"`
	Code                  string       `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Name                  string       `gorm:"size:255;not null" json:"name"`
	Description           string       `gorm:"type:text" json:"description,omitempty"`
	CouponType            CouponType   `gorm:"type:varchar(20);not null" json:"coupon_type"`
	Value                 float64      `gorm:"type:decimal(12,2);not null" json:"value"`
	MinimumOrderAmount    float64      `gorm:"type:decimal(12,2);not null" json:"minimum_order_amount"`
	MaximumDiscountAmount *float64     `gorm:"type:decimal(12,2)" json:"maximum_discount_amount"`
	TotalUsageLimit       *int         `json:"total_usage_limit"`
	UsageLimitPerCustomer int          `gorm:"not null" json:"usage_limit_per_customer"`
	CurrentUsageCount     int          `gorm:"not null" json:"current_usage_count"`
	StartDate             time.Time    `gorm:"not null" json:"start_date"`
	EndDate               time.Time    `gorm:"not null" json:"end_date"`
	Status                CouponStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	IsActive              bool         `gorm:"not null" json:"is_active"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// PerCustomerLimit treats an unset limit as a single use.
func (c *Coupon) PerCustomerLimit() int {
	if c.UsageLimitPerCustomer <= 0 {
		return 1
	}
	return c.UsageLimitPerCustomer
}

// Deactivate is the only way a coupon leaves the catalogue; rows are never removed.
func (c *Coupon) Deactivate() {
	c.Status = CouponInactive
	c.IsActive = false
}

type CouponUsage struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	CouponID       uint      `gorm:"not null;index:idx_usage_coupon_user" json:"coupon_id"`
	Coupon         Coupon    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserID         uint      `gorm:"not null;index:idx_usage_coupon_user" json:"user_id"`
	User           User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	OrderID        *uint     `gorm:"index" json:"order_id"`
	DiscountAmount float64   `gorm:"type:decimal(12,2);not null" json:"discount_amount"`
	OrderAmount    float64   `gorm:"type:decimal(12,2);not null" json:"order_amount"`
	UsedAt         time.Time `gorm:"not null;index" json:"used_at"`
}
