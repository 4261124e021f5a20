package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/models"
)

// Ledger records redemptions. Every redemption bumps the coupon counter with a
// conditional UPDATE so the total limit holds under concurrent requests.
type Ledger struct {
	db  *gorm.DB
	now func() time.Time

	// beforeIncrement runs between the coupon read and the counter UPDATE.
	beforeIncrement func(tx *gorm.DB)
}

// ErrOrderNotFound covers both a missing order and one owned by someone else.
var ErrOrderNotFound = apperr.New(apperr.ErrNotFound, "order not found")

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

type Receipt struct {
	UsageID        uint    `json:"usage_id"`
	CouponID       uint    `json:"coupon_id"`
	Code           string  `json:"code"`
	OrderAmount    float64 `json:"order_amount"`
	DiscountAmount float64 `json:"discount_amount"`
	FinalAmount    float64 `json:"final_amount"`
}

func (l *Ledger) Apply(ctx context.Context, couponID, userID uint, orderAmount float64, orderID *uint) (*Receipt, error) {
	var receipt *Receipt
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := l.ApplyTx(tx, couponID, userID, orderAmount, orderID)
		receipt = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ApplyTx redeems inside a caller's transaction so the usage row commits or
// rolls back with whatever else the caller writes.
func (l *Ledger) ApplyTx(tx *gorm.DB, couponID, userID uint, orderAmount float64, orderID *uint) (*Receipt, error) {
	var c models.Coupon
	if err := tx.First(&c, couponID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load coupon %d: %w", couponID, err)
	}

	if err := Check(&c, l.now()); err != nil {
		return nil, err
	}
	if orderID != nil {
		var n int64
		err := tx.Model(&models.Order{}).Where("id = ? AND user_id = ?", *orderID, userID).Count(&n).Error
		if err != nil {
			return nil, fmt.Errorf("load order %d: %w", *orderID, err)
		}
		if n == 0 {
			return nil, ErrOrderNotFound
		}
	}
	used, err := countUsage(tx, c.ID, userID)
	if err != nil {
		return nil, err
	}
	if used >= int64(c.PerCustomerLimit()) {
		return nil, ErrCustomerLimit
	}
	d, err := CalculateDiscount(&c, orderAmount)
	if err != nil {
		return nil, err
	}
	if !d.CanApply {
		return nil, apperr.New(apperr.ErrNotApplicable, d.Reason)
	}

	if l.beforeIncrement != nil {
		l.beforeIncrement(tx)
	}
	q := tx.Model(&models.Coupon{}).Where("id = ?", c.ID)
	if c.TotalUsageLimit != nil {
		q = q.Where("current_usage_count < ?", *c.TotalUsageLimit)
	}
	res := q.UpdateColumn("current_usage_count", gorm.Expr("current_usage_count + 1"))
	if res.Error != nil {
		return nil, fmt.Errorf("increment coupon %d: %w", c.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrExhausted
	}

	// the row lock taken above serializes redemptions of this coupon, so this
	// recount sees every committed usage
	used, err = countUsage(tx, c.ID, userID)
	if err != nil {
		return nil, err
	}
	if used >= int64(c.PerCustomerLimit()) {
		return nil, ErrCustomerLimit
	}

	usage := models.CouponUsage{
		CouponID:       c.ID,
		UserID:         userID,
		OrderID:        orderID,
		DiscountAmount: d.DiscountAmount,
		OrderAmount:    orderAmount,
		UsedAt:         l.now(),
	}
	if err := tx.Create(&usage).Error; err != nil {
		return nil, fmt.Errorf("record coupon usage: %w", err)
	}

	return &Receipt{
		UsageID:        usage.ID,
		CouponID:       c.ID,
		Code:           c.Code,
		OrderAmount:    orderAmount,
		DiscountAmount: d.DiscountAmount,
		FinalAmount:    d.FinalAmount,
	}, nil
}

func countUsage(tx *gorm.DB, couponID, userID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.CouponUsage{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count coupon usage: %w", err)
	}
	return n, nil
}

// UsageRow is a redemption joined with the coupon it used.
type UsageRow struct {
	ID             uint      `json:"id"`
	CouponID       uint      `json:"coupon_id"`
	UserID         uint      `json:"user_id"`
	OrderID        *uint     `json:"order_id"`
	DiscountAmount float64   `json:"discount_amount"`
	OrderAmount    float64   `json:"order_amount"`
	UsedAt         time.Time `json:"used_at"`
	CouponCode     string    `json:"coupon_code"`
	CouponName     string    `json:"coupon_name"`
	UserEmail      string    `json:"user_email,omitempty"`
}

func (l *Ledger) UsageForUser(ctx context.Context, userID uint) ([]UsageRow, error) {
	var rows []UsageRow
	err := l.db.WithContext(ctx).
		Table("coupon_usages").
		Select("coupon_usages.*, coupons.code AS coupon_code, coupons.name AS coupon_name").
		Joins("JOIN coupons ON coupons.id = coupon_usages.coupon_id").
		Where("coupon_usages.user_id = ?", userID).
		Order("coupon_usages.used_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list usage for user %d: %w", userID, err)
	}
	return rows, nil
}

func (l *Ledger) UsageForCoupon(ctx context.Context, couponID uint) ([]UsageRow, error) {
	var rows []UsageRow
	err := l.db.WithContext(ctx).
		Table("coupon_usages").
		Select("coupon_usages.*, coupons.code AS coupon_code, coupons.name AS coupon_name, users.email AS user_email").
		Joins("JOIN coupons ON coupons.id = coupon_usages.coupon_id").
		Joins("JOIN users ON users.id = coupon_usages.user_id").
		Where("coupon_usages.coupon_id = ?", couponID).
		Order("coupon_usages.used_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list usage for coupon %d: %w", couponID, err)
	}
	return rows, nil
}

type TopCoupon struct {
	CouponID      uint    `json:"coupon_id"`
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	UsageCount    int64   `json:"usage_count"`
	TotalDiscount float64 `json:"total_discount"`
}

type Stats struct {
	TotalCoupons          int64       `json:"total_coupons"`
	ActiveCoupons         int64       `json:"active_coupons"`
	TotalUsage            int64       `json:"total_usage"`
	TotalDiscountGiven    float64     `json:"total_discount_given"`
	RecentUsageLast30Days int64       `json:"recent_usage_30_days"`
	TopCoupons            []TopCoupon `json:"top_coupons"`
}

func (l *Ledger) Stats(ctx context.Context) (*Stats, error) {
	db := l.db.WithContext(ctx)
	var s Stats

	if err := db.Model(&models.Coupon{}).Count(&s.TotalCoupons).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Coupon{}).
		Where("is_active = ? AND status = ?", true, models.CouponActive).
		Count(&s.ActiveCoupons).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.CouponUsage{}).Count(&s.TotalUsage).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.CouponUsage{}).
		Select("COALESCE(SUM(discount_amount), 0)").
		Scan(&s.TotalDiscountGiven).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.CouponUsage{}).
		Where("used_at >= ?", l.now().AddDate(0, 0, -30)).
		Count(&s.RecentUsageLast30Days).Error; err != nil {
		return nil, err
	}
	err := db.Table("coupon_usages").
		Select("coupons.id AS coupon_id, coupons.code, coupons.name, COUNT(coupon_usages.id) AS usage_count, COALESCE(SUM(coupon_usages.discount_amount), 0) AS total_discount").
		Joins("JOIN coupons ON coupons.id = coupon_usages.coupon_id").
		Group("coupons.id, coupons.code, coupons.name").
		Order("usage_count DESC").
		Limit(5).
		Scan(&s.TopCoupons).Error
	if err != nil {
		return nil, err
	}
	s.TotalDiscountGiven = round2(s.TotalDiscountGiven)
	return &s, nil
}
