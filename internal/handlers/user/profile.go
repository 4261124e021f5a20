package user

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/handlers"
	"leafsense_back_end/internal/middleware"
	"leafsense_back_end/internal/models"
)

// GET /api/user/profile
func (h *Handler) GetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

// PUT /api/user/profile
//
// Accepts JSON or a multipart form; the form may carry an "avatar" image.
func (h *Handler) UpdateProfile(c *gin.Context) {
	u, err := UpdateProfile(c, h, middleware.CurrentUser(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// UpdateProfile applies the profile form of the request to u.
func UpdateProfile(c *gin.Context, h *Handler, u *models.User) (*models.User, error) {
	var input struct {
		Name    *string `json:"name" form:"name"`
		Phone   *string `json:"phone" form:"phone"`
		Address *string `json:"address" form:"address"`
	}
	if err := c.ShouldBind(&input); err != nil {
		return nil, apperr.New(apperr.ErrValidation, err.Error())
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperr.New(apperr.ErrValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Phone != nil {
		updates["phone"] = strings.TrimSpace(*input.Phone)
	}
	if input.Address != nil {
		updates["address"] = strings.TrimSpace(*input.Address)
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if _, err := c.FormFile("avatar"); err == nil {
			data, ct, filename, err := handlers.ReadImage(c, "avatar", h.cfg.MaxUploadBytes)
			if err != nil {
				return nil, err
			}
			url, err := handlers.UploadImage(c.Request.Context(), h.blobs, "avatars", data, ct, filename)
			if err != nil {
				return nil, err
			}
			updates["avatar"] = url
		}
	}

	if len(updates) > 0 {
		if err := h.db.WithContext(c.Request.Context()).Model(u).Updates(updates).Error; err != nil {
			return nil, err
		}
		h.cache.InvalidateUser(c.Request.Context(), u.Email)
	}
	var fresh models.User
	if err := h.db.WithContext(c.Request.Context()).First(&fresh, u.ID).Error; err != nil {
		return nil, err
	}
	return &fresh, nil
}
