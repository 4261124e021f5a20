package shop

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/coupon"
	"leafsense_back_end/internal/models"
	"leafsense_back_end/internal/testutil"
)

type recordingNotifier struct {
	placed  []uint
	changed []models.OrderStatus
}

func (r *recordingNotifier) OrderPlaced(_ context.Context, o *models.Order) {
	r.placed = append(r.placed, o.ID)
}

func (r *recordingNotifier) OrderStatusChanged(_ context.Context, o *models.Order) {
	r.changed = append(r.changed, o.Status)
}

func newOrderService(t *testing.T) (*OrderService, *gorm.DB, *recordingNotifier) {
	t.Helper()
	db := testutil.NewDB(t)
	notifier := &recordingNotifier{}
	coupons := coupon.NewService(db, coupon.NewLedger(db))
	return NewOrderService(db, coupons, nil, notifier), db, notifier
}

var testShipping = Shipping{Name: "Lan", Phone: "0901234567", Address: "12 Coffee Hill, Da Lat"}

func TestCreateOrderWithCoupon(t *testing.T) {
	svc, db, notifier := newOrderService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "farmer@example.com")
	product := testutil.CreateProduct(t, db, "Copper fungicide", 100000, 10)

	c := testutil.ActiveCoupon("TEN", models.CouponPercentage, 10)
	if err := db.Create(c).Error; err != nil {
		t.Fatal(err)
	}

	carts := NewCartService(db)
	if _, err := carts.AddItem(ctx, user.ID, product.ID, 2); err != nil {
		t.Fatal(err)
	}

	placed, err := svc.CreateOrder(ctx, CreateOrderInput{
		UserID:     user.ID,
		CouponCode: "ten",
		Shipping:   testShipping,
	})
	if err != nil {
		t.Fatalf("CreateOrder() = %v", err)
	}
	o := placed.Order
	if o.OriginalAmount != 200000 || o.DiscountAmount != 20000 || o.TotalAmount != 180000 {
		t.Errorf("amounts = %v/%v/%v, want 200000/20000/180000", o.OriginalAmount, o.DiscountAmount, o.TotalAmount)
	}
	if o.TotalAmount != o.OriginalAmount-o.DiscountAmount {
		t.Error("total must equal original minus discount")
	}
	if o.CouponCode != "TEN" || o.PaymentMethod != models.PaymentCOD || o.Status != models.OrderPending {
		t.Errorf("order = %+v", o)
	}

	var usage models.CouponUsage
	if err := db.Where("coupon_id = ?", c.ID).First(&usage).Error; err != nil {
		t.Fatalf("usage row missing: %v", err)
	}
	if usage.OrderID == nil || *usage.OrderID != o.ID || usage.DiscountAmount != 20000 {
		t.Errorf("usage = %+v", usage)
	}

	cart, _ := carts.Get(ctx, user.ID)
	if len(cart.Items) != 0 {
		t.Errorf("cart still has %d items", len(cart.Items))
	}
	var p models.Product
	db.First(&p, product.ID)
	if p.Stock != 8 {
		t.Errorf("stock = %d, want 8", p.Stock)
	}
	if len(notifier.placed) != 1 {
		t.Errorf("notifier saw %d orders", len(notifier.placed))
	}

	saved, err := svc.Get(ctx, o.ID, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved.Items) != 1 || saved.Items[0].Price != 100000 || saved.TotalAmount != 180000 {
		t.Errorf("stored order = %+v", saved)
	}
}

func TestCreateOrderFreeShippingNeverGoesNegative(t *testing.T) {
	svc, db, _ := newOrderService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "farmer@example.com")
	product := testutil.CreateProduct(t, db, "Seed packet", 20000, 10)

	c := testutil.ActiveCoupon("SHIPFREE", models.CouponFreeShipping, 30000)
	if err := db.Create(c).Error; err != nil {
		t.Fatal(err)
	}
	if _, err := NewCartService(db).AddItem(ctx, user.ID, product.ID, 1); err != nil {
		t.Fatal(err)
	}

	placed, err := svc.CreateOrder(ctx, CreateOrderInput{UserID: user.ID, CouponCode: "SHIPFREE", Shipping: testShipping})
	if err != nil {
		t.Fatalf("CreateOrder() = %v", err)
	}
	o := placed.Order
	if o.OriginalAmount != 20000 || o.DiscountAmount != 20000 || o.TotalAmount != 0 {
		t.Errorf("amounts = %v/%v/%v, want 20000/20000/0", o.OriginalAmount, o.DiscountAmount, o.TotalAmount)
	}
	if o.TotalAmount != o.OriginalAmount-o.DiscountAmount {
		t.Error("total must equal original minus discount")
	}
}

func TestCreateOrderRejectedCouponRollsBack(t *testing.T) {
	svc, db, notifier := newOrderService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "farmer@example.com")
	product := testutil.CreateProduct(t, db, "Neem oil", 100000, 5)

	c := testutil.ActiveCoupon("BIG", models.CouponFixed, 50000)
	c.MinimumOrderAmount = 300000
	db.Create(c)

	carts := NewCartService(db)
	carts.AddItem(ctx, user.ID, product.ID, 2)

	_, err := svc.CreateOrder(ctx, CreateOrderInput{UserID: user.ID, CouponCode: "BIG", Shipping: testShipping})
	if !errors.Is(err, apperr.ErrNotApplicable) {
		t.Fatalf("err = %v, want not applicable", err)
	}

	var orders, items, usages int64
	db.Model(&models.Order{}).Count(&orders)
	db.Model(&models.OrderItem{}).Count(&items)
	db.Model(&models.CouponUsage{}).Count(&usages)
	if orders != 0 || items != 0 || usages != 0 {
		t.Errorf("left behind orders=%d items=%d usages=%d", orders, items, usages)
	}
	var p models.Product
	db.First(&p, product.ID)
	if p.Stock != 5 {
		t.Errorf("stock = %d, want 5 after rollback", p.Stock)
	}
	cart, _ := carts.Get(ctx, user.ID)
	if len(cart.Items) != 1 {
		t.Error("cart should survive a failed checkout")
	}
	if len(notifier.placed) != 0 {
		t.Error("failed order was announced")
	}
}

func TestCreateOrderValidation(t *testing.T) {
	svc, db, _ := newOrderService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "farmer@example.com")
	product := testutil.CreateProduct(t, db, "Trap", 5000, 1)

	tests := []struct {
		name string
		in   CreateOrderInput
		want error
	}{
		{"empty cart", CreateOrderInput{UserID: user.ID, Shipping: testShipping}, apperr.ErrValidation},
		{"bad payment", CreateOrderInput{UserID: user.ID, Shipping: testShipping, PaymentMethod: "Cash",
			Items: []LineItem{{ProductID: product.ID, Quantity: 1}}}, apperr.ErrValidation},
		{"card without provider", CreateOrderInput{UserID: user.ID, Shipping: testShipping, PaymentMethod: models.PaymentCard,
			Items: []LineItem{{ProductID: product.ID, Quantity: 1}}}, apperr.ErrValidation},
		{"no address", CreateOrderInput{UserID: user.ID, Items: []LineItem{{ProductID: product.ID, Quantity: 1}}}, apperr.ErrValidation},
		{"out of stock", CreateOrderInput{UserID: user.ID, Shipping: testShipping,
			Items: []LineItem{{ProductID: product.ID, Quantity: 2}}}, apperr.ErrValidation},
		{"unknown product", CreateOrderInput{UserID: user.ID, Shipping: testShipping,
			Items: []LineItem{{ProductID: 999, Quantity: 1}}}, apperr.ErrNotFound},
		{"unknown coupon", CreateOrderInput{UserID: user.ID, Shipping: testShipping, CouponCode: "NOPE",
			Items: []LineItem{{ProductID: product.ID, Quantity: 1}}}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateOrder(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOriginalAmountMergesDuplicateLines(t *testing.T) {
	svc, db, _ := newOrderService(t)
	user := testutil.CreateUser(t, db, "farmer@example.com")
	product := testutil.CreateProduct(t, db, "Seedling", 12500.5, 10)

	placed, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:   user.ID,
		Shipping: testShipping,
		Items:    []LineItem{{ProductID: product.ID, Quantity: 1}, {ProductID: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(placed.Order.Items) != 1 || placed.Order.Items[0].Quantity != 3 {
		t.Errorf("items = %+v", placed.Order.Items)
	}
	if placed.Order.OriginalAmount != 37501.5 || placed.Order.DiscountAmount != 0 {
		t.Errorf("amounts = %v/%v", placed.Order.OriginalAmount, placed.Order.DiscountAmount)
	}
}

func TestOrderTransitions(t *testing.T) {
	svc, db, notifier := newOrderService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "farmer@example.com")
	product := testutil.CreateProduct(t, db, "Sprayer", 300000, 3)

	placed, err := svc.CreateOrder(ctx, CreateOrderInput{
		UserID: user.ID, Shipping: testShipping,
		Items: []LineItem{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	id := placed.Order.ID

	if _, err := svc.Transition(ctx, id, models.OrderShipping); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("pending -> shipping err = %v", err)
	}
	if _, err := svc.Transition(ctx, id, models.OrderProcessing); err != nil {
		t.Fatal(err)
	}
	o, err := svc.Transition(ctx, id, models.OrderShipping)
	if err != nil {
		t.Fatal(err)
	}
	if o.ShippedAt == nil {
		t.Error("shipped_at not set")
	}
	if _, err := svc.Cancel(ctx, id, user.ID); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("cancel while shipping err = %v", err)
	}
	o, err = svc.Transition(ctx, id, models.OrderCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if o.DeliveredAt == nil || !o.Status.Terminal() {
		t.Errorf("completed order = %+v", o)
	}
	if _, err := svc.Transition(ctx, id, models.OrderCancelled); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("completed is terminal, err = %v", err)
	}

	stored, _ := svc.Get(ctx, id, 0)
	if stored.Status != models.OrderCompleted || stored.ShippedAt == nil || stored.DeliveredAt == nil {
		t.Errorf("stored = %+v", stored)
	}
	if len(notifier.changed) != 3 {
		t.Errorf("status notifications = %v", notifier.changed)
	}
}

func TestCancelRestocksAndChecksOwner(t *testing.T) {
	svc, db, _ := newOrderService(t)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner@example.com")
	other := testutil.CreateUser(t, db, "other@example.com")
	product := testutil.CreateProduct(t, db, "Fertilizer", 50000, 4)

	placed, err := svc.CreateOrder(ctx, CreateOrderInput{
		UserID: owner.ID, Shipping: testShipping,
		Items: []LineItem{{ProductID: product.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Cancel(ctx, placed.Order.ID, other.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("foreign cancel err = %v", err)
	}
	o, err := svc.Cancel(ctx, placed.Order.ID, owner.ID)
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != models.OrderCancelled {
		t.Errorf("status = %s", o.Status)
	}
	var p models.Product
	db.First(&p, product.ID)
	if p.Stock != 4 {
		t.Errorf("stock = %d, want 4 after cancel", p.Stock)
	}

	list, total, err := svc.List(ctx, OrderFilter{UserID: owner.ID})
	if err != nil || total != 1 || len(list) != 1 {
		t.Errorf("List() = %d/%d, %v", len(list), total, err)
	}
}

func TestCartMergesQuantities(t *testing.T) {
	db := testutil.NewDB(t)
	carts := NewCartService(db)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "farmer@example.com")
	other := testutil.CreateUser(t, db, "other@example.com")
	product := testutil.CreateProduct(t, db, "Copper", 100000, 5)

	carts.AddItem(ctx, user.ID, product.ID, 1)
	cart, err := carts.AddItem(ctx, user.ID, product.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 3 || cart.Total() != 300000 {
		t.Fatalf("cart = %+v", cart)
	}
	if _, err := carts.AddItem(ctx, user.ID, product.ID, 3); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("over stock err = %v", err)
	}

	itemID := cart.Items[0].ID
	if _, err := carts.UpdateItem(ctx, other.ID, itemID, 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("foreign update err = %v", err)
	}
	cart, err = carts.UpdateItem(ctx, user.ID, itemID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(cart.Items) != 0 {
		t.Error("quantity 0 should remove the line")
	}
}
