package models

import "time"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipping   OrderStatus = "shipping"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipping, OrderCancelled},
	OrderShipping:   {OrderCompleted},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipping, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal statuses accept no further transition.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

type PaymentMethod string

const (
	PaymentCOD  PaymentMethod = "COD"
	PaymentMoMo PaymentMethod = "MoMo"
	PaymentCard PaymentMethod = "Card"
)

func (p PaymentMethod) Valid() bool {
	return p == PaymentCOD || p == PaymentMoMo || p == PaymentCard
}

type Order struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	UserID          uint          `gorm:"not null;index" json:"user_id"`
	User            User          `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Status          OrderStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentMethod   PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentRef      string        `gorm:"size:255" json:"payment_ref,omitempty"`
	ShippingName    string        `gorm:"size:255;not null" json:"shipping_name"`
	ShippingPhone   string        `gorm:"size:20;not null" json:"shipping_phone"`
	ShippingAddress string        `gorm:"type:text;not null" json:"shipping_address"`
	Note            string        `gorm:"type:text" json:"note,omitempty"`
	CouponID        *uint         `gorm:"index" json:"coupon_id,omitempty"`
	CouponCode      string        `gorm:"size:50" json:"coupon_code,omitempty"`
	OriginalAmount  float64       `gorm:"type:decimal(12,2);not null" json:"original_amount"`
	DiscountAmount  float64       `gorm:"type:decimal(12,2);not null" json:"discount_amount"`
	TotalAmount     float64       `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	Items           []OrderItem   `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	ShippedAt       *time.Time    `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time    `json:"delivered_at,omitempty"`
	CreatedAt       time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

type OrderItem struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	OrderID   uint    `gorm:"not null;index" json:"order_id"`
	ProductID uint    `gorm:"not null;index" json:"product_id"`
	Product   Product `gorm:"constraint:OnDelete:RESTRICT" json:"product"`
	Quantity  int     `gorm:"not null" json:"quantity"`
	Price     float64 `gorm:"type:decimal(12,2);not null" json:"price"`
}

func (i OrderItem) Subtotal() float64 { return i.Price * float64(i.Quantity) }
