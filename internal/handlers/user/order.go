package user

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/cache"
	"leafsense_back_end/internal/handlers"
	"leafsense_back_end/internal/models"
	"leafsense_back_end/internal/shop"
	"leafsense_back_end/internal/utils"
)

type OrderHandler struct {
	orders   *shop.OrderService
	cache    *cache.Cache
	momo     MoMoAccount
	upgrader websocket.Upgrader
}

// MoMoAccount receives the transfers of MoMo orders.
type MoMoAccount struct {
	Phone string
	Name  string
}

func NewOrderHandler(orders *shop.OrderService, c *cache.Cache, momo MoMoAccount, allowedOrigins []string) *OrderHandler {
	return &OrderHandler{orders: orders, cache: c, momo: momo, upgrader: newUpgrader(allowedOrigins)}
}

type createOrderRequest struct {
	Items         []shop.LineItem      `json:"items" binding:"dive"`
	CouponCode    string               `json:"coupon_code"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	shop.Shipping
}

// POST /api/orders
//
// Without items the order is built from the cart.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	placed, err := h.orders.CreateOrder(c.Request.Context(), shop.CreateOrderInput{
		UserID:        c.GetUint("user_id"),
		Items:         req.Items,
		CouponCode:    req.CouponCode,
		Shipping:      req.Shipping,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, placed)
}

// GET /api/orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	limit, err := handlers.QueryInt(c, "limit", 50)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	offset, err := handlers.QueryInt(c, "offset", 0)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	orders, total, err := h.orders.List(c.Request.Context(), shop.OrderFilter{
		UserID: c.GetUint("user_id"),
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "total": total})
}

// GET /api/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.Get(c.Request.Context(), id, c.GetUint("user_id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// POST /api/orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.Cancel(c.Request.Context(), id, c.GetUint("user_id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GET /api/orders/:id/payment-qr
func (h *OrderHandler) PaymentQR(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.Get(c.Request.Context(), id, c.GetUint("user_id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if order.PaymentMethod != models.PaymentMoMo {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order is not paid with MoMo"})
		return
	}
	if h.momo.Phone == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "MoMo payments are not configured"})
		return
	}

	link := utils.MoMoPaymentLink(h.momo.Phone, h.momo.Name, order.TotalAmount, order.ID)
	png, err := utils.QRCodePNG(link, 256)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order_id":     order.ID,
		"amount":       order.TotalAmount,
		"payment_link": link,
		"qr_code":      "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
	})
}
