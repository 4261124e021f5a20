package payment

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/coupon"
	"leafsense_back_end/internal/handlers"
	"leafsense_back_end/internal/middleware"
)

type CouponHandler struct {
	coupons *coupon.Service
}

func NewCouponHandler(coupons *coupon.Service) *CouponHandler {
	return &CouponHandler{coupons: coupons}
}

func optionalUserID(c *gin.Context) *uint {
	if u := middleware.CurrentUser(c); u != nil {
		id := u.ID
		return &id
	}
	return nil
}

// POST /api/coupons/validate
//
// Never records a redemption. An unknown code is reported as invalid, not 404.
func (h *CouponHandler) Validate(c *gin.Context) {
	var req struct {
		CouponCode  string  `json:"coupon_code" binding:"required"`
		OrderAmount float64 `json:"order_amount" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	preview, err := h.coupons.Validate(c.Request.Context(), req.CouponCode, req.OrderAmount, optionalUserID(c))
	if errors.Is(err, coupon.ErrNotFound) {
		c.JSON(http.StatusOK, coupon.Preview{Message: err.Error(), FinalAmount: req.OrderAmount})
		return
	}
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// GET /api/coupons/available?order_amount=
func (h *CouponHandler) Available(c *gin.Context) {
	var orderAmount *float64
	if raw := c.Query("order_amount"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order_amount"})
			return
		}
		orderAmount = &v
	}
	list, err := h.coupons.Available(c.Request.Context(), optionalUserID(c), orderAmount)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type applyRequest struct {
	OrderAmount float64 `json:"order_amount" form:"order_amount" binding:"gt=0"`
	OrderID     *uint   `json:"order_id" form:"order_id"`
}

// POST /api/coupons/apply/:id
//
// order_amount and order_id come from the JSON body or the query string.
func (h *CouponHandler) Apply(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	var req applyRequest
	var err error
	if c.ContentType() == "application/json" {
		err = c.ShouldBindJSON(&req)
	} else {
		err = c.ShouldBindQuery(&req)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := h.coupons.Ledger().Apply(c.Request.Context(), id, c.GetUint("user_id"), req.OrderAmount, req.OrderID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":         "coupon applied",
		"usage_id":        receipt.UsageID,
		"discount_amount": receipt.DiscountAmount,
		"final_amount":    receipt.FinalAmount,
	})
}

// GET /api/coupons/my-usage
func (h *CouponHandler) MyUsage(c *gin.Context) {
	rows, err := h.coupons.Ledger().UsageForUser(c.Request.Context(), c.GetUint("user_id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
