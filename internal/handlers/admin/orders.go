package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/handlers"
	"leafsense_back_end/internal/models"
	"leafsense_back_end/internal/shop"
)

// GET /api/admin/orders?status_filter=&search=&skip=&limit=
func (h *Handler) ListOrders(c *gin.Context) {
	skip, err := handlers.QueryInt(c, "skip", 0)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	limit, err := handlers.QueryInt(c, "limit", 100)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	orders, total, err := h.orders.List(c.Request.Context(), shop.OrderFilter{
		Status: c.Query("status_filter"),
		Search: c.Query("search"),
		Limit:  limit,
		Offset: skip,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	c.JSON(http.StatusOK, orders)
}

// GET /api/admin/orders/:id
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.Get(c.Request.Context(), id, 0)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// PUT /api/admin/orders/:id
//
// Only the status is editable, and only along the allowed transitions.
func (h *Handler) UpdateOrder(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := h.orders.Transition(c.Request.Context(), id, input.Status)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
