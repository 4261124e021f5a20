package coupon

import (
	"context"
	"errors"
	"testing"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/models"
	"leafsense_back_end/internal/testutil"
)

func TestServiceCreateAndValidate(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(db, NewLedger(db))
	ctx := context.Background()

	c := testutil.ActiveCoupon(" summer ", models.CouponPercentage, 10)
	c.Status = ""
	if err := svc.Create(ctx, c); err != nil {
		t.Fatalf("Create() = %v", err)
	}
	if c.Code != "SUMMER" || !c.IsActive || c.Status != models.CouponActive {
		t.Errorf("created coupon = %+v", c)
	}

	dup := testutil.ActiveCoupon("Summer", models.CouponFixed, 5)
	if err := svc.Create(ctx, dup); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("duplicate code err = %v", err)
	}

	p, err := svc.Validate(ctx, "summer", 200000, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Valid || p.DiscountAmount != 20000 || p.FinalAmount != 180000 {
		t.Errorf("Validate() = %+v", p)
	}

	if _, err := svc.Validate(ctx, "nope", 1000, nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown code err = %v", err)
	}
}

func TestServiceDeactivateKeepsRow(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(db, NewLedger(db))
	ctx := context.Background()

	c := testutil.ActiveCoupon("GONE", models.CouponFixed, 5)
	if err := svc.Create(ctx, c); err != nil {
		t.Fatal(err)
	}
	if err := svc.Deactivate(ctx, c.ID); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("deactivated coupon should still load: %v", err)
	}
	if got.IsActive || got.Status != models.CouponInactive {
		t.Errorf("coupon = %+v, want inactive", got)
	}

	user := testutil.CreateUser(t, db, "u@example.com")
	avail, err := svc.Available(ctx, &user.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(avail) != 0 {
		t.Errorf("Available() returned %d coupons, want 0", len(avail))
	}
}

func TestServiceUpdateStatusTransition(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(db, NewLedger(db))
	ctx := context.Background()

	c := testutil.ActiveCoupon("FLOW", models.CouponFixed, 5)
	if err := svc.Create(ctx, c); err != nil {
		t.Fatal(err)
	}
	expired := models.CouponExpired
	if _, err := svc.Update(ctx, c.ID, Patch{Status: &expired}); err != nil {
		t.Fatal(err)
	}
	active := models.CouponActive
	if _, err := svc.Update(ctx, c.ID, Patch{Status: &active}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expired -> active err = %v, want validation error", err)
	}
}
