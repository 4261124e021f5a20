// Package seed creates the first admin account and the launch coupons.
package seed

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"leafsense_back_end/internal/auth"
	"leafsense_back_end/internal/models"
	"leafsense_back_end/internal/utils"
)

// Admin creates an active admin with the given credentials. It reports
// false when the email is already taken.
func Admin(ctx context.Context, db *gorm.DB, name, email, password string) (bool, error) {
	email = auth.NormalizeEmail(email)
	var n int64
	if err := db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		log.Printf("⚠️ Admin %s already exists", email)
		return false, nil
	}
	if len(password) < 6 {
		return false, errors.New("admin password must be at least 6 characters")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return false, err
	}
	admin := models.User{
		Name:     name,
		Email:    email,
		Password: &hash,
		Role:     models.RoleAdmin,
		Status:   models.UserActive,
		Provider: models.ProviderLocal,
	}
	if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
		return false, err
	}
	log.Printf("✅ Admin %s created (id %d)", email, admin.ID)
	return true, nil
}

type sampleCoupon struct {
	code, name, description string
	typ                     models.CouponType
	value, minimum          float64
	maxDiscount             float64
	totalLimit, perCustomer int
}

var samples = []sampleCoupon{
	{"LEAFSENSE10", "10% off your first order", "10% off orders from 100,000 VND", models.CouponPercentage, 10, 100000, 50000, 1000, 1},
	{"WELCOME20", "Welcome offer", "20% off for new customers on orders from 200,000 VND", models.CouponPercentage, 20, 200000, 100000, 500, 1},
	{"FIXED50K", "50,000 VND off", "50,000 VND off orders from 300,000 VND", models.CouponFixed, 50000, 300000, 0, 200, 2},
	{"SAVE100K", "Save 100,000 VND", "100,000 VND off orders from 500,000 VND", models.CouponFixed, 100000, 500000, 0, 100, 1},
	{"FREESHIP", "Free shipping", "Free shipping on orders from 150,000 VND", models.CouponFreeShipping, 30000, 150000, 0, 1000, 5},
	{"SUMMER25", "Summer sale", "25% off orders from 250,000 VND", models.CouponPercentage, 25, 250000, 150000, 300, 1},
	{"LOYAL15", "Loyal customer", "15% off with no minimum order", models.CouponPercentage, 15, 0, 75000, 500, 3},
	{"MEGA30", "Mega 30%", "30% off large orders from 1,000,000 VND", models.CouponPercentage, 30, 1000000, 300000, 50, 1},
	{"FLASH200K", "Flash sale 200K", "200,000 VND off orders from 800,000 VND", models.CouponFixed, 200000, 800000, 0, 30, 1},
	{"WEEKEND12", "Weekend deal", "12% off weekend orders from 180,000 VND", models.CouponPercentage, 12, 180000, 60000, 800, 2},
}

// Coupons inserts the sample coupons valid for the next `validity`, skipping
// codes that already exist. It returns how many were created.
func Coupons(ctx context.Context, db *gorm.DB, validity time.Duration) (int, error) {
	now := time.Now()
	created := 0
	for _, s := range samples {
		var n int64
		if err := db.WithContext(ctx).Model(&models.Coupon{}).Where("code = ?", s.code).Count(&n).Error; err != nil {
			return created, err
		}
		if n > 0 {
			log.Printf("⚠️ Coupon %s already exists, skipping", s.code)
			continue
		}
		c := models.Coupon{
			Code:                  s.code,
			Name:                  s.name,
			Description:           s.description,
			CouponType:            s.typ,
			Value:                 s.value,
			MinimumOrderAmount:    s.minimum,
			UsageLimitPerCustomer: s.perCustomer,
			StartDate:             now,
			EndDate:               now.Add(validity),
			Status:                models.CouponActive,
			IsActive:              true,
		}
		if s.maxDiscount > 0 {
			c.MaximumDiscountAmount = &s.maxDiscount
		}
		if s.totalLimit > 0 {
			c.TotalUsageLimit = &s.totalLimit
		}
		if err := db.WithContext(ctx).Create(&c).Error; err != nil {
			return created, err
		}
		created++
	}
	log.Printf("✅ %d sample coupons created", created)
	return created, nil
}
