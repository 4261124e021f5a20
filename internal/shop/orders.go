// Package shop turns carts into orders and moves orders through their
// lifecycle.
package shop

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/coupon"
	"leafsense_back_end/internal/models"
	"leafsense_back_end/internal/services"
)

type PaymentProvider interface {
	CreateIntent(ctx context.Context, order *models.Order) (*services.Intent, error)
}

// Notifier hears about every order that is placed or changes status.
type Notifier interface {
	OrderPlaced(ctx context.Context, order *models.Order)
	OrderStatusChanged(ctx context.Context, order *models.Order)
}

type OrderService struct {
	db       *gorm.DB
	coupons  *coupon.Service
	ledger   *coupon.Ledger
	payments PaymentProvider
	notifier Notifier
	now      func() time.Time
}

func NewOrderService(db *gorm.DB, coupons *coupon.Service, payments PaymentProvider, notifier Notifier) *OrderService {
	return &OrderService{
		db:       db,
		coupons:  coupons,
		ledger:   coupons.Ledger(),
		payments: payments,
		notifier: notifier,
		now:      time.Now,
	}
}

type LineItem struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

type Shipping struct {
	Name    string `json:"shipping_name" binding:"required"`
	Phone   string `json:"shipping_phone" binding:"required"`
	Address string `json:"shipping_address" binding:"required"`
	Note    string `json:"note"`
}

type CreateOrderInput struct {
	UserID        uint
	Items         []LineItem
	CouponCode    string
	Shipping      Shipping
	PaymentMethod models.PaymentMethod
}

type Placed struct {
	Order        *models.Order `json:"order"`
	ClientSecret string        `json:"client_secret,omitempty"`
}

// OriginalAmount is the order total before any coupon.
func OriginalAmount(items []models.OrderItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Subtotal()
	}
	return math.Round(sum*100) / 100
}

// CreateOrder prices the items (or the user's cart when Items is empty),
// redeems the coupon, reserves stock and empties the cart. Either all of it
// commits or none of it does.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*Placed, error) {
	if in.PaymentMethod == "" {
		in.PaymentMethod = models.PaymentCOD
	}
	if !in.PaymentMethod.Valid() {
		return nil, apperr.New(apperr.ErrValidation, "payment_method must be COD, MoMo or Card")
	}
	if in.PaymentMethod == models.PaymentCard && s.payments == nil {
		return nil, apperr.New(apperr.ErrValidation, "card payments are not available")
	}
	if strings.TrimSpace(in.Shipping.Name) == "" || strings.TrimSpace(in.Shipping.Phone) == "" || strings.TrimSpace(in.Shipping.Address) == "" {
		return nil, apperr.New(apperr.ErrValidation, "shipping name, phone and address are required")
	}

	placed := &Placed{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines := in.Items
		if len(lines) == 0 {
			var err error
			if lines, err = cartLines(tx, in.UserID); err != nil {
				return err
			}
		}
		items, err := reserve(tx, mergeLines(lines))
		if err != nil {
			return err
		}

		original := OriginalAmount(items)
		order := &models.Order{
			UserID:          in.UserID,
			Status:          models.OrderPending,
			PaymentMethod:   in.PaymentMethod,
			ShippingName:    strings.TrimSpace(in.Shipping.Name),
			ShippingPhone:   strings.TrimSpace(in.Shipping.Phone),
			ShippingAddress: strings.TrimSpace(in.Shipping.Address),
			Note:            in.Shipping.Note,
			OriginalAmount:  original,
			TotalAmount:     original,
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		if code := strings.TrimSpace(in.CouponCode); code != "" {
			c, err := s.coupons.FindByCode(ctx, tx, code)
			if err != nil {
				return err
			}
			receipt, err := s.ledger.ApplyTx(tx, c.ID, in.UserID, original, &order.ID)
			if err != nil {
				return err
			}
			order.CouponID = &c.ID
			order.CouponCode = c.Code
			// free shipping can be worth more than the goods; the order never goes negative
			order.DiscountAmount = math.Min(receipt.DiscountAmount, original)
			order.TotalAmount = math.Round((original-order.DiscountAmount)*100) / 100
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Omit("Product").Create(&items).Error; err != nil {
			return fmt.Errorf("create order items: %w", err)
		}
		order.Items = items

		if err := clearCart(tx, in.UserID); err != nil {
			return err
		}

		if in.PaymentMethod == models.PaymentCard {
			intent, err := s.payments.CreateIntent(ctx, order)
			if err != nil {
				return fmt.Errorf("%w: %v", apperr.ErrDependency, err)
			}
			order.PaymentRef = intent.ID
			placed.ClientSecret = intent.ClientSecret
		}

		if err := tx.Model(order).
			Select("coupon_id", "coupon_code", "discount_amount", "total_amount", "payment_ref").
			Updates(order).Error; err != nil {
			return fmt.Errorf("update order totals: %w", err)
		}
		placed.Order = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.OrderPlaced(ctx, placed.Order)
	}
	return placed, nil
}

func cartLines(tx *gorm.DB, userID uint) ([]LineItem, error) {
	var items []models.CartItem
	err := tx.Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("carts.user_id = ?", userID).
		Order("cart_items.id").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, apperr.New(apperr.ErrValidation, "cart is empty")
	}
	lines := make([]LineItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, LineItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines, nil
}

func mergeLines(lines []LineItem) []LineItem {
	idx := make(map[uint]int, len(lines))
	out := make([]LineItem, 0, len(lines))
	for _, l := range lines {
		if i, ok := idx[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// reserve prices each line at the current product price and takes the
// quantity out of stock.
func reserve(tx *gorm.DB, lines []LineItem) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, apperr.New(apperr.ErrValidation, "quantity must be at least 1")
		}
		var p models.Product
		if err := tx.First(&p, l.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.Newf(apperr.ErrNotFound, "product %d not found", l.ProductID)
			}
			return nil, err
		}
		if !p.IsActive {
			return nil, apperr.Newf(apperr.ErrValidation, "%s is no longer sold", p.Name)
		}

		res := tx.Model(&models.Product{}).
			Where("id = ? AND stock >= ?", p.ID, l.Quantity).
			UpdateColumn("stock", gorm.Expr("stock - ?", l.Quantity))
		if res.Error != nil {
			return nil, fmt.Errorf("reserve stock: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, apperr.Newf(apperr.ErrValidation, "not enough stock for %s", p.Name)
		}
		items = append(items, models.OrderItem{ProductID: p.ID, Product: p, Quantity: l.Quantity, Price: p.Price})
	}
	return items, nil
}

func clearCart(tx *gorm.DB, userID uint) error {
	err := tx.Where("cart_id IN (?)", tx.Model(&models.Cart{}).Select("id").Where("user_id = ?", userID)).
		Delete(&models.CartItem{}).Error
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Transition moves an order to next, stamping shipped_at and delivered_at.
// The update is conditional on the status read, so two admins racing on the
// same order cannot both win.
func (s *OrderService) Transition(ctx context.Context, orderID uint, next models.OrderStatus) (*models.Order, error) {
	if !next.Valid() {
		return nil, apperr.Newf(apperr.ErrValidation, "unknown status %q", next)
	}
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items.Product").First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.ErrNotFound, "order not found")
			}
			return err
		}
		return s.transitionTx(tx, &order, next)
	})
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.OrderStatusChanged(ctx, &order)
	}
	return &order, nil
}

// Cancel lets a customer withdraw an order that has not shipped.
func (s *OrderService) Cancel(ctx context.Context, orderID, userID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Preload("Items.Product").Where("id = ? AND user_id = ?", orderID, userID).First(&order).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.ErrNotFound, "order not found")
			}
			return err
		}
		return s.transitionTx(tx, &order, models.OrderCancelled)
	})
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.OrderStatusChanged(ctx, &order)
	}
	return &order, nil
}

func (s *OrderService) transitionTx(tx *gorm.DB, order *models.Order, next models.OrderStatus) error {
	if !order.Status.CanTransitionTo(next) {
		return apperr.Newf(apperr.ErrValidation, "cannot move order from %s to %s", order.Status, next)
	}

	now := s.now()
	updates := map[string]any{"status": next, "updated_at": now}
	switch next {
	case models.OrderShipping:
		updates["shipped_at"] = now
		order.ShippedAt = &now
	case models.OrderCompleted:
		updates["delivered_at"] = now
		order.DeliveredAt = &now
	}

	res := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update order %d: %w", order.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.ErrConflict, "order was modified concurrently")
	}

	if next == models.OrderCancelled {
		for _, it := range order.Items {
			err := tx.Model(&models.Product{}).Where("id = ?", it.ProductID).
				UpdateColumn("stock", gorm.Expr("stock + ?", it.Quantity)).Error
			if err != nil {
				return fmt.Errorf("restock product %d: %w", it.ProductID, err)
			}
		}
	}
	order.Status = next
	order.UpdatedAt = now
	return nil
}

// MarkPaid moves a pending card order to processing once the payment
// provider confirms it. Repeated confirmations are ignored.
func (s *OrderService) MarkPaid(ctx context.Context, orderID uint) error {
	order, err := s.find(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != models.OrderPending {
		return nil
	}
	_, err = s.Transition(ctx, orderID, models.OrderProcessing)
	return err
}

func (s *OrderService) find(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items.Product").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrNotFound, "order not found")
		}
		return nil, err
	}
	return &order, nil
}

// Get returns an order. A zero userID skips the ownership check (admin).
func (s *OrderService) Get(ctx context.Context, orderID, userID uint) (*models.Order, error) {
	order, err := s.find(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if userID != 0 && order.UserID != userID {
		return nil, apperr.New(apperr.ErrNotFound, "order not found")
	}
	return order, nil
}

type OrderFilter struct {
	UserID uint
	Status string
	Search string
	Limit  int
	Offset int
}

func (s *OrderService) List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Order{})
	if f.UserID != 0 {
		q = q.Where("orders.user_id = ?", f.UserID)
	}
	if f.Status != "" {
		q = q.Where("orders.status = ?", f.Status)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Joins("JOIN users ON users.id = orders.user_id").
			Where("LOWER(orders.shipping_name) LIKE ? OR LOWER(users.email) LIKE ? OR orders.shipping_phone LIKE ?", like, like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	var orders []models.Order
	err := q.Preload("Items.Product").
		Order("orders.created_at DESC, orders.id DESC").
		Offset(f.Offset).Limit(f.Limit).
		Find(&orders).Error
	return orders, total, err
}
