package payment

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"leafsense_back_end/internal/apperr"
)

// EventVerifier authenticates a provider callback and returns the id of
// the order it reports paid, or 0 for events that do not concern us.
type EventVerifier interface {
	PaidOrder(payload []byte, signature string) (uint, error)
}

type OrderPayer interface {
	MarkPaid(ctx context.Context, orderID uint) error
}

type WebhookHandler struct {
	verifier EventVerifier
	orders   OrderPayer
}

func NewWebhookHandler(verifier EventVerifier, orders OrderPayer) *WebhookHandler {
	return &WebhookHandler{verifier: verifier, orders: orders}
}

const maxWebhookBody = 64 << 10

// POST /api/payments/stripe/webhook
func (h *WebhookHandler) Stripe(c *gin.Context) {
	if h.verifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "card payments are not configured"})
		return
	}
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	orderID, err := h.verifier.PaidOrder(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Printf("⚠️ Stripe webhook rejected: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}
	if orderID != 0 {
		if err := h.orders.MarkPaid(c.Request.Context(), orderID); err != nil {
			// An unknown order will not appear on retry; acknowledge it.
			if errors.Is(err, apperr.ErrNotFound) {
				log.Printf("⚠️ Stripe paid unknown order %d", orderID)
			} else {
				apperr.Respond(c, err)
				return
			}
		} else {
			log.Printf("✅ Order %d paid by card", orderID)
		}
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
