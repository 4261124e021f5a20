package product

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/handlers"
	"leafsense_back_end/internal/middleware"
)

// GET /api/products/:id/reviews
func (h *Handler) ListReviews(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	reviews, rating, err := h.catalog.Reviews(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "rating": rating})
}

// POST /api/reviews
func (h *Handler) CreateReview(c *gin.Context) {
	var req struct {
		ProductID uint   `json:"product_id" binding:"required"`
		Rating    int    `json:"rating" binding:"required,min=1,max=5"`
		Comment   string `json:"comment" binding:"max=1000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid review", "details": err.Error()})
		return
	}
	r, err := h.catalog.CreateReview(c.Request.Context(), c.GetUint("user_id"), req.ProductID, req.Rating, req.Comment)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// PUT /api/reviews/:id
func (h *Handler) UpdateReview(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Rating  *int    `json:"rating"`
		Comment *string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid review", "details": err.Error()})
		return
	}
	r, err := h.catalog.UpdateReview(c.Request.Context(), id, middleware.CurrentUser(c), req.Rating, req.Comment)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// DELETE /api/reviews/:id
func (h *Handler) DeleteReview(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteReview(c.Request.Context(), id, middleware.CurrentUser(c)); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review deleted successfully"})
}
