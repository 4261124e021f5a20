package shop

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"leafsense_back_end/internal/cache"
	"leafsense_back_end/internal/models"
	"leafsense_back_end/internal/utils"
)

// OrderEvent is what websocket clients receive on their order channel.
type OrderEvent struct {
	Type      string             `json:"type"`
	OrderID   uint               `json:"order_id"`
	Status    models.OrderStatus `json:"status"`
	Total     float64            `json:"total_amount"`
	Timestamp time.Time          `json:"timestamp"`
}

// Notifications publishes order events on Redis and emails the customer.
type Notifications struct {
	db     *gorm.DB
	cache  *cache.Cache
	mailer utils.Mailer
}

func NewNotifications(db *gorm.DB, c *cache.Cache, mailer utils.Mailer) *Notifications {
	return &Notifications{db: db, cache: c, mailer: mailer}
}

func (n *Notifications) OrderPlaced(ctx context.Context, order *models.Order) {
	n.publish(ctx, "order_created", order)
	if email := n.emailOf(ctx, order.UserID); email != "" {
		subject, body := utils.OrderConfirmationEmail(order)
		utils.SendAsync(n.mailer, email, subject, body)
	}
}

func (n *Notifications) OrderStatusChanged(ctx context.Context, order *models.Order) {
	n.publish(ctx, "order_status", order)
	if email := n.emailOf(ctx, order.UserID); email != "" {
		subject, body := utils.OrderStatusEmail(order)
		utils.SendAsync(n.mailer, email, subject, body)
	}
}

func (n *Notifications) publish(ctx context.Context, kind string, order *models.Order) {
	ev := OrderEvent{
		Type:      kind,
		OrderID:   order.ID,
		Status:    order.Status,
		Total:     order.TotalAmount,
		Timestamp: time.Now(),
	}
	if err := n.cache.Publish(ctx, cache.OrderChannel(order.UserID), ev); err != nil {
		log.Printf("⚠️ Publish order %d event: %v", order.ID, err)
	}
}

func (n *Notifications) emailOf(ctx context.Context, userID uint) string {
	if n.mailer == nil {
		return ""
	}
	var u models.User
	if err := n.db.WithContext(ctx).Select("email").First(&u, userID).Error; err != nil {
		return ""
	}
	return u.Email
}
