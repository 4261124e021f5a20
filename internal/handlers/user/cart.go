package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/handlers"
	"leafsense_back_end/internal/models"
	"leafsense_back_end/internal/shop"
)

type CartHandler struct {
	carts *shop.CartService
}

func NewCartHandler(carts *shop.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

func cartBody(cart *models.Cart) gin.H {
	count := 0
	for _, it := range cart.Items {
		count += it.Quantity
	}
	return gin.H{"cart": cart, "total": cart.Total(), "count": count}
}

// GET /api/cart
func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.carts.Get(c.Request.Context(), c.GetUint("user_id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, cartBody(cart))
}

// POST /api/cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var input struct {
		ProductID uint `json:"product_id" binding:"required"`
		Quantity  int  `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	cart, err := h.carts.AddItem(c.Request.Context(), c.GetUint("user_id"), input.ProductID, input.Quantity)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, cartBody(cart))
}

// PUT /api/cart/items/:id
func (h *CartHandler) UpdateItem(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cart, err := h.carts.UpdateItem(c.Request.Context(), c.GetUint("user_id"), id, input.Quantity)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, cartBody(cart))
}

// DELETE /api/cart/items/:id
func (h *CartHandler) RemoveItem(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	cart, err := h.carts.RemoveItem(c.Request.Context(), c.GetUint("user_id"), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, cartBody(cart))
}

// DELETE /api/cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), c.GetUint("user_id")); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
}
