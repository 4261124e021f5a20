package admin

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/handlers"
	"leafsense_back_end/internal/models"
)

// Admins manage farmer accounts only; other admins are out of reach.
func (h *Handler) farmer(c *gin.Context, id uint) (*models.User, error) {
	var u models.User
	err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND role = ?", id, models.RoleFarmer).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.ErrNotFound, "User not found")
	}
	return &u, err
}

// GET /api/admin/users?search=&status_filter=&skip=&limit=
func (h *Handler) ListUsers(c *gin.Context) {
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
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.User{}).Where("role = ?", models.RoleFarmer)
	if s := strings.TrimSpace(c.Query("search")); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}
	if st := c.Query("status_filter"); st != "" {
		q = q.Where("status = ?", st)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		apperr.Respond(c, err)
		return
	}
	var users []models.User
	if err := q.Order("id").Offset(skip).Limit(limit).Find(&users).Error; err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	c.JSON(http.StatusOK, users)
}

// GET /api/admin/users/:id
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	u, err := h.farmer(c, id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// PUT /api/admin/users/:id
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Name    *string            `json:"name"`
		Phone   *string            `json:"phone"`
		Address *string            `json:"address"`
		Status  *models.UserStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.farmer(c, id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	updates := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
			return
		}
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.Address != nil {
		updates["address"] = *input.Address
	}
	if input.Status != nil {
		if *input.Status != models.UserActive && *input.Status != models.UserInactive {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be active or inactive"})
			return
		}
		updates["status"] = *input.Status
	}
	if len(updates) > 0 {
		if err := h.db.WithContext(c.Request.Context()).Model(u).Updates(updates).Error; err != nil {
			apperr.Respond(c, err)
			return
		}
		h.cache.InvalidateUser(c.Request.Context(), u.Email)
		if u, err = h.farmer(c, id); err != nil {
			apperr.Respond(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, u)
}

// PUT /api/admin/users/:id/status
//
// Toggles between active and inactive. An inactive farmer is rejected by
// every authenticated endpoint with "account locked".
func (h *Handler) ToggleUserStatus(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	u, err := h.farmer(c, id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	next := models.UserInactive
	if u.Status == models.UserInactive {
		next = models.UserActive
	}
	res := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ? AND status = ?", u.ID, u.Status).
		Update("status", next)
	if res.Error != nil {
		apperr.Respond(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		apperr.Respond(c, apperr.New(apperr.ErrConflict, "user status changed concurrently"))
		return
	}
	h.cache.InvalidateUser(c.Request.Context(), u.Email)

	msg := "User account unlocked"
	if next == models.UserInactive {
		msg = "User account locked"
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "status": next})
}

// DELETE /api/admin/users/:id
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	u, err := h.farmer(c, id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Delete(u).Error; err != nil {
		apperr.Respond(c, err)
		return
	}
	h.cache.InvalidateUser(c.Request.Context(), u.Email)
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
