package models

import (
	"testing"
	"time"
)

func TestOrderTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderPending, OrderProcessing, true},
		{OrderPending, OrderCancelled, true},
		{OrderPending, OrderShipping, false},
		{OrderProcessing, OrderShipping, true},
		{OrderProcessing, OrderCancelled, true},
		{OrderShipping, OrderCompleted, true},
		{OrderShipping, OrderCancelled, false},
		{OrderCompleted, OrderPending, false},
		{OrderCancelled, OrderProcessing, false},
		{OrderPending, OrderPending, false},
	}
	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
	for _, s := range []OrderStatus{OrderCompleted, OrderCancelled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if OrderStatus("lost").Valid() {
		t.Error("unknown status reported valid")
	}
}

func TestCouponTransitions(t *testing.T) {
	if !CouponExpired.CanTransitionTo(CouponInactive) {
		t.Error("expired coupons can be switched off")
	}
	if CouponExpired.CanTransitionTo(CouponActive) {
		t.Error("expired coupons cannot be reactivated")
	}
	if !CouponActive.CanTransitionTo(CouponActive) {
		t.Error("same-status updates are allowed")
	}

	c := &Coupon{Status: CouponActive, IsActive: true}
	c.Deactivate()
	if c.Status != CouponInactive || c.IsActive {
		t.Fatalf("after Deactivate: %+v", c)
	}
	if (&Coupon{}).PerCustomerLimit() != 1 {
		t.Error("unset per-customer limit should mean one use")
	}
}

func TestCartTotal(t *testing.T) {
	cart := Cart{Items: []CartItem{
		{Quantity: 2, Product: Product{Price: 45000}},
		{Quantity: 1, Product: Product{Price: 120000}},
	}}
	if got := cart.Total(); got != 210000 {
		t.Fatalf("Total = %v", got)
	}
}

func TestResetTokenUsable(t *testing.T) {
	now := time.Now()
	tok := PasswordResetToken{ExpiresAt: now.Add(time.Hour)}
	if !tok.Usable(now) {
		t.Fatal("fresh token should be usable")
	}
	if tok.Usable(now.Add(2 * time.Hour)) {
		t.Fatal("expired token should not be usable")
	}
	tok.Used = true
	if tok.Usable(now) {
		t.Fatal("used token should not be usable")
	}
}
