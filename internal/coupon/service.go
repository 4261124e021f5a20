package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/models"
)

// Service is the catalogue side of coupons: lookups, previews and admin edits.
type Service struct {
	db     *gorm.DB
	ledger *Ledger
	now    func() time.Time
}

func NewService(db *gorm.DB, ledger *Ledger) *Service {
	return &Service{db: db, ledger: ledger, now: time.Now}
}

func (s *Service) Ledger() *Ledger { return s.ledger }

func (s *Service) Get(ctx context.Context, id uint) (*models.Coupon, error) {
	var c models.Coupon
	if err := s.db.WithContext(ctx).First(&c, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByCode matches case-insensitively and only returns coupons flagged active.
func (s *Service) FindByCode(ctx context.Context, db *gorm.DB, code string) (*models.Coupon, error) {
	if db == nil {
		db = s.db
	}
	var c models.Coupon
	err := db.WithContext(ctx).
		Where("code = ? AND is_active = ?", normalizeCode(code), true).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

type Preview struct {
	Valid          bool           `json:"valid"`
	Message        string         `json:"message"`
	Coupon         *models.Coupon `json:"coupon,omitempty"`
	DiscountAmount float64        `json:"discount_amount"`
	FinalAmount    float64        `json:"final_amount"`
}

// Validate prices orderAmount against the coupon without recording anything.
// userID may be nil for anonymous callers, in which case the per-customer
// limit is not checked.
func (s *Service) Validate(ctx context.Context, code string, orderAmount float64, userID *uint) (*Preview, error) {
	c, err := s.FindByCode(ctx, nil, code)
	if err != nil {
		return nil, err
	}
	if err := Check(c, s.now()); err != nil {
		return &Preview{Message: err.Error(), FinalAmount: orderAmount}, nil
	}
	if userID != nil {
		used, err := countUsage(s.db.WithContext(ctx), c.ID, *userID)
		if err != nil {
			return nil, err
		}
		if used >= int64(c.PerCustomerLimit()) {
			return &Preview{Message: ErrCustomerLimit.Error(), FinalAmount: orderAmount}, nil
		}
	}
	d, err := CalculateDiscount(c, orderAmount)
	if err != nil {
		return nil, err
	}
	if !d.CanApply {
		return &Preview{Message: d.Reason, FinalAmount: orderAmount}, nil
	}
	return &Preview{
		Valid:          true,
		Message:        "coupon applied",
		Coupon:         c,
		DiscountAmount: d.DiscountAmount,
		FinalAmount:    d.FinalAmount,
	}, nil
}

type Available struct {
	models.Coupon
	CanUse        bool   `json:"can_use"`
	Reason        string `json:"reason,omitempty"`
	UserUsage     int64  `json:"user_usage_count"`
	RemainingUses *int   `json:"remaining_uses"`
}

// Available lists the coupons running right now, exhausted ones included.
// Each entry says whether it can be used and, if not, why: exhausted first,
// then the user's own limit, then orderAmount against the minimum. userID and
// orderAmount may both be nil.
func (s *Service) Available(ctx context.Context, userID *uint, orderAmount *float64) ([]Available, error) {
	now := s.now()
	var coupons []models.Coupon
	err := s.db.WithContext(ctx).
		Where("is_active = ? AND status = ? AND start_date <= ? AND end_date >= ?", true, models.CouponActive, now, now).
		Order("created_at DESC").
		Find(&coupons).Error
	if err != nil {
		return nil, err
	}

	out := make([]Available, 0, len(coupons))
	for _, c := range coupons {
		a := Available{Coupon: c, CanUse: true}
		if c.TotalUsageLimit != nil {
			left := max(*c.TotalUsageLimit-c.CurrentUsageCount, 0)
			a.RemainingUses = &left
		}
		if userID != nil {
			used, err := countUsage(s.db.WithContext(ctx), c.ID, *userID)
			if err != nil {
				return nil, err
			}
			a.UserUsage = used
		}

		switch {
		case a.RemainingUses != nil && *a.RemainingUses == 0:
			a.CanUse, a.Reason = false, ErrExhausted.Error()
		case userID != nil && a.UserUsage >= int64(c.PerCustomerLimit()):
			a.CanUse, a.Reason = false, ErrCustomerLimit.Error()
		case orderAmount != nil && *orderAmount < c.MinimumOrderAmount:
			a.CanUse, a.Reason = false, fmt.Sprintf("minimum order amount is %.2f", c.MinimumOrderAmount)
		}
		out = append(out, a)
	}
	return out, nil
}

type ListFilter struct {
	Status   string
	IsActive *bool
	Search   string
	Limit    int
	Offset   int
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.Coupon, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Coupon{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Limit <= 0 {
		f.Limit = 100
	}
	var coupons []models.Coupon
	err := q.Order("created_at DESC").Offset(f.Offset).Limit(f.Limit).Find(&coupons).Error
	return coupons, total, err
}

func (s *Service) Create(ctx context.Context, c *models.Coupon) error {
	c.Code = normalizeCode(c.Code)
	if c.UsageLimitPerCustomer <= 0 {
		c.UsageLimitPerCustomer = 1
	}
	if c.Status == "" {
		c.Status = models.CouponActive
	}
	c.IsActive = c.Status == models.CouponActive
	c.CurrentUsageCount = 0
	if err := ValidateDefinition(c); err != nil {
		return err
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Coupon{}).Where("code = ?", c.Code).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperr.New(apperr.ErrConflict, "coupon code already exists")
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create coupon: %w", err)
	}
	return nil
}

// Patch carries the editable fields; nil means unchanged.
type Patch struct {
	Name                  *string
	Description           *string
	Value                 *float64
	MinimumOrderAmount    *float64
	MaximumDiscountAmount *float64
	TotalUsageLimit       *int
	UsageLimitPerCustomer *int
	StartDate             *time.Time
	EndDate               *time.Time
	Status                *models.CouponStatus
}

func (s *Service) Update(ctx context.Context, id uint, p Patch) (*models.Coupon, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Value != nil {
		c.Value = *p.Value
	}
	if p.MinimumOrderAmount != nil {
		c.MinimumOrderAmount = *p.MinimumOrderAmount
	}
	if p.MaximumDiscountAmount != nil {
		c.MaximumDiscountAmount = p.MaximumDiscountAmount
	}
	if p.TotalUsageLimit != nil {
		if *p.TotalUsageLimit < c.CurrentUsageCount {
			return nil, apperr.Newf(apperr.ErrValidation, "total_usage_limit cannot be below current usage (%d)", c.CurrentUsageCount)
		}
		c.TotalUsageLimit = p.TotalUsageLimit
	}
	if p.UsageLimitPerCustomer != nil {
		c.UsageLimitPerCustomer = *p.UsageLimitPerCustomer
	}
	if p.StartDate != nil {
		c.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		c.EndDate = *p.EndDate
	}
	if p.Status != nil {
		if !c.Status.CanTransitionTo(*p.Status) {
			return nil, apperr.Newf(apperr.ErrValidation, "cannot move coupon from %s to %s", c.Status, *p.Status)
		}
		c.Status = *p.Status
		c.IsActive = c.Status == models.CouponActive
	}
	if err := ValidateDefinition(c); err != nil {
		return nil, err
	}

	// current_usage_count is owned by the ledger and left out of the update
	err = s.db.WithContext(ctx).Model(c).
		Select("name", "description", "value", "minimum_order_amount", "maximum_discount_amount",
			"total_usage_limit", "usage_limit_per_customer", "start_date", "end_date", "status", "is_active").
		Updates(c).Error
	if err != nil {
		return nil, fmt.Errorf("update coupon %d: %w", id, err)
	}
	return c, nil
}

// Deactivate soft-deletes a coupon; its usage history stays intact.
func (s *Service) Deactivate(ctx context.Context, id uint) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	c.Deactivate()
	return s.db.WithContext(ctx).Model(c).
		Select("status", "is_active").
		Updates(c).Error
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
