// Package coupon decides whether a coupon may be used and how much it takes off
// an order, and records every redemption against the usage limits.
package coupon

import (
	"fmt"
	"math"
	"time"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/models"
)

var (
	ErrNotFound      = apperr.New(apperr.ErrNotFound, "coupon not found")
	ErrInactive      = apperr.New(apperr.ErrValidation, "coupon is not active")
	ErrNotStarted    = apperr.New(apperr.ErrValidation, "coupon is not valid yet")
	ErrExpired       = apperr.New(apperr.ErrValidation, "coupon has expired")
	ErrExhausted     = apperr.New(apperr.ErrLimitExceeded, "coupon usage limit reached")
	ErrCustomerLimit = apperr.New(apperr.ErrLimitExceeded, "you have reached the usage limit for this coupon")
	ErrUnknownType   = apperr.New(apperr.ErrValidation, "coupon has an unknown type")
)

// Discount is the outcome of pricing an order amount against a coupon.
type Discount struct {
	CanApply       bool    `json:"can_apply"`
	DiscountAmount float64 `json:"discount_amount"`
	FinalAmount    float64 `json:"final_amount"`
	Reason         string  `json:"reason,omitempty"`
}

// Check returns the first reason c cannot be used at now, or nil.
func Check(c *models.Coupon, now time.Time) error {
	if !c.IsActive || c.Status != models.CouponActive {
		return ErrInactive
	}
	if now.Before(c.StartDate) {
		return ErrNotStarted
	}
	if now.After(c.EndDate) {
		return ErrExpired
	}
	if c.TotalUsageLimit != nil && c.CurrentUsageCount >= *c.TotalUsageLimit {
		return ErrExhausted
	}
	return nil
}

func IsValid(c *models.Coupon, now time.Time) (bool, string) {
	if err := Check(c, now); err != nil {
		return false, err.Error()
	}
	return true, "coupon is valid"
}

// CalculateDiscount prices orderAmount against c. It does not look at validity
// or limits; callers run Check first. Only a coupon of an unknown type errors.
func CalculateDiscount(c *models.Coupon, orderAmount float64) (Discount, error) {
	if orderAmount < c.MinimumOrderAmount {
		return Discount{
			FinalAmount: orderAmount,
			Reason:      fmt.Sprintf("minimum order amount is %.2f", c.MinimumOrderAmount),
		}, nil
	}

	var discount float64
	switch c.CouponType {
	case models.CouponPercentage:
		discount = orderAmount * c.Value / 100
		if c.MaximumDiscountAmount != nil && discount > *c.MaximumDiscountAmount {
			discount = *c.MaximumDiscountAmount
		}
	case models.CouponFixed:
		discount = math.Min(c.Value, orderAmount)
	case models.CouponFreeShipping:
		// shipping is charged outside the order amount, so the value is taken as is
		discount = c.Value
	default:
		return Discount{}, fmt.Errorf("coupon %s type %q: %w", c.Code, c.CouponType, ErrUnknownType)
	}

	discount = round2(discount)
	return Discount{
		CanApply:       true,
		DiscountAmount: discount,
		FinalAmount:    round2(orderAmount - discount),
	}, nil
}

// ValidateDefinition checks the fields an admin supplies when creating or
// editing a coupon.
func ValidateDefinition(c *models.Coupon) error {
	if c.Code == "" || c.Name == "" {
		return apperr.New(apperr.ErrValidation, "code and name are required")
	}
	if !c.CouponType.Valid() {
		return apperr.New(apperr.ErrValidation, "coupon_type must be percentage, fixed or free_shipping")
	}
	if c.Value <= 0 {
		return apperr.New(apperr.ErrValidation, "value must be greater than 0")
	}
	if c.CouponType == models.CouponPercentage && c.Value > 100 {
		return apperr.New(apperr.ErrValidation, "percentage must be between 0 and 100")
	}
	if c.MinimumOrderAmount < 0 {
		return apperr.New(apperr.ErrValidation, "minimum_order_amount cannot be negative")
	}
	if c.MaximumDiscountAmount != nil && *c.MaximumDiscountAmount <= 0 {
		return apperr.New(apperr.ErrValidation, "maximum_discount_amount must be greater than 0")
	}
	if c.TotalUsageLimit != nil && *c.TotalUsageLimit <= 0 {
		return apperr.New(apperr.ErrValidation, "total_usage_limit must be greater than 0")
	}
	if !c.EndDate.After(c.StartDate) {
		return apperr.New(apperr.ErrValidation, "end_date must be after start_date")
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
