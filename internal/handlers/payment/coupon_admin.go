package payment

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/coupon"
	"leafsense_back_end/internal/handlers"
	"leafsense_back_end/internal/models"
)

// GET /api/coupons/admin/all?status=&is_active=&search=&skip=&limit=
func (h *CouponHandler) AdminList(c *gin.Context) {
	f := coupon.ListFilter{Status: c.Query("status"), Search: c.Query("search")}
	if v := c.Query("is_active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "is_active must be true or false"})
			return
		}
		f.IsActive = &b
	}
	var err error
	if f.Offset, err = handlers.QueryInt(c, "skip", 0); err != nil {
		apperr.Respond(c, err)
		return
	}
	if f.Limit, err = handlers.QueryInt(c, "limit", 100); err != nil {
		apperr.Respond(c, err)
		return
	}
	coupons, total, err := h.coupons.List(c.Request.Context(), f)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	c.JSON(http.StatusOK, coupons)
}

// GET /api/coupons/admin/stats
func (h *CouponHandler) AdminStats(c *gin.Context) {
	st, err := h.coupons.Ledger().Stats(c.Request.Context())
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// GET /api/coupons/admin/:id/usage
func (h *CouponHandler) AdminUsage(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	if _, err := h.coupons.Get(c.Request.Context(), id); err != nil {
		apperr.Respond(c, err)
		return
	}
	rows, err := h.coupons.Ledger().UsageForCoupon(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

type couponRequest struct {
	Code                  string              `json:"code" binding:"required"`
	Name                  string              `json:"name" binding:"required"`
	Description           string              `json:"description"`
	CouponType            models.CouponType   `json:"coupon_type" binding:"required"`
	Value                 float64             `json:"value"`
	MinimumOrderAmount    float64             `json:"minimum_order_amount"`
	MaximumDiscountAmount *float64            `json:"maximum_discount_amount"`
	TotalUsageLimit       *int                `json:"total_usage_limit"`
	UsageLimitPerCustomer int                 `json:"usage_limit_per_customer"`
	StartDate             time.Time           `json:"start_date" binding:"required"`
	EndDate               time.Time           `json:"end_date" binding:"required"`
	Status                models.CouponStatus `json:"status"`
}

// POST /api/coupons/admin/create
func (h *CouponHandler) AdminCreate(c *gin.Context) {
	var req couponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cp := models.Coupon{
		Code:                  req.Code,
		Name:                  req.Name,
		Description:           req.Description,
		CouponType:            req.CouponType,
		Value:                 req.Value,
		MinimumOrderAmount:    req.MinimumOrderAmount,
		MaximumDiscountAmount: req.MaximumDiscountAmount,
		TotalUsageLimit:       req.TotalUsageLimit,
		UsageLimitPerCustomer: req.UsageLimitPerCustomer,
		StartDate:             req.StartDate,
		EndDate:               req.EndDate,
		Status:                req.Status,
	}
	if err := h.coupons.Create(c.Request.Context(), &cp); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Set("resource_id", strconv.FormatUint(uint64(cp.ID), 10))
	c.JSON(http.StatusCreated, cp)
}

// PUT /api/coupons/admin/:id
func (h *CouponHandler) AdminUpdate(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name                  *string              `json:"name"`
		Description           *string              `json:"description"`
		Value                 *float64             `json:"value"`
		MinimumOrderAmount    *float64             `json:"minimum_order_amount"`
		MaximumDiscountAmount *float64             `json:"maximum_discount_amount"`
		TotalUsageLimit       *int                 `json:"total_usage_limit"`
		UsageLimitPerCustomer *int                 `json:"usage_limit_per_customer"`
		StartDate             *time.Time           `json:"start_date"`
		EndDate               *time.Time           `json:"end_date"`
		Status                *models.CouponStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cp, err := h.coupons.Update(c.Request.Context(), id, coupon.Patch{
		Name:                  req.Name,
		Description:           req.Description,
		Value:                 req.Value,
		MinimumOrderAmount:    req.MinimumOrderAmount,
		MaximumDiscountAmount: req.MaximumDiscountAmount,
		TotalUsageLimit:       req.TotalUsageLimit,
		UsageLimitPerCustomer: req.UsageLimitPerCustomer,
		StartDate:             req.StartDate,
		EndDate:               req.EndDate,
		Status:                req.Status,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, cp)
}

// DELETE /api/coupons/admin/:id
//
// Coupons are deactivated, never removed; their usage history stays.
func (h *CouponHandler) AdminDelete(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.coupons.Deactivate(c.Request.Context(), id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Coupon deleted successfully"})
}
