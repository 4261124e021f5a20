// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"leafsense_back_end/internal/models"
)

// NewDB opens a migrated in-memory SQLite database. A single connection keeps
// the in-memory database alive and serializes transactions.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:?_pragma=foreign_keys(1)"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func CreateUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{
		Name:     email,
		Email:    email,
		Role:     models.RoleFarmer,
		Status:   models.UserActive,
		Provider: models.ProviderLocal,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func CreateProduct(t *testing.T, db *gorm.DB, name string, price float64, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: price, Stock: stock, IsActive: true}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

// ActiveCoupon returns an unsaved coupon valid from yesterday to next month.
func ActiveCoupon(code string, typ models.CouponType, value float64) *models.Coupon {
	now := time.Now()
	return &models.Coupon{
		Code:                  code,
		Name:                  code,
		CouponType:            typ,
		Value:                 value,
		UsageLimitPerCustomer: 1,
		StartDate:             now.Add(-24 * time.Hour),
		EndDate:               now.Add(30 * 24 * time.Hour),
		Status:                models.CouponActive,
		IsActive:              true,
	}
}

func Ptr[T any](v T) *T { return &v }
