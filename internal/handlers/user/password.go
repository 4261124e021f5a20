package user

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/auth"
	"leafsense_back_end/internal/middleware"
	"leafsense_back_end/internal/models"
	"leafsense_back_end/internal/utils"
)

const resetTokenTTL = time.Hour

const forgotPasswordReply = "If the email exists, a password reset link will be sent."

// POST /api/auth/forgot-password
//
// The reply is the same whether or not the account exists.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var input struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	var u models.User
	err := h.db.WithContext(ctx).Where("email = ?", auth.NormalizeEmail(input.Email)).First(&u).Error
	if err != nil || !u.HasPassword() {
		c.JSON(http.StatusOK, gin.H{"detail": forgotPasswordReply})
		return
	}

	token, err := utils.RandomToken(32)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	reset := models.PasswordResetToken{
		UserID:    u.ID,
		Token:     token,
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := h.db.WithContext(ctx).Create(&reset).Error; err != nil {
		log.Printf("❌ Save reset token for %s: %v", u.Email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start password reset"})
		return
	}

	link := strings.TrimRight(h.cfg.FrontendURL, "/") + "/reset-password/" + token
	subject, body := utils.PasswordResetEmail(u.Name, link)
	utils.SendAsync(h.mailer, u.Email, subject, body)
	log.Printf("📧 Password reset requested for %s", u.Email)

	c.JSON(http.StatusOK, gin.H{"detail": forgotPasswordReply})
}

// POST /api/auth/reset-password/:token
func (h *Handler) ResetPassword(c *gin.Context) {
	var input struct {
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(input.NewPassword) < utils.MinPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters"})
		return
	}
	hash, err := utils.HashPassword(input.NewPassword)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	var email string
	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var reset models.PasswordResetToken
		if err := tx.Preload("User").Where("token = ?", c.Param("token")).First(&reset).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.ErrValidation, "invalid or expired token")
			}
			return err
		}
		if !reset.Usable(time.Now()) {
			return apperr.New(apperr.ErrValidation, "invalid or expired token")
		}
		// Marking the token used first makes a concurrent second reset fail.
		res := tx.Model(&models.PasswordResetToken{}).
			Where("id = ? AND used = ?", reset.ID, false).
			Update("used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.New(apperr.ErrValidation, "invalid or expired token")
		}
		email = reset.User.Email
		return tx.Model(&models.User{}).Where("id = ?", reset.UserID).Update("password", hash).Error
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	h.cache.InvalidateUser(c.Request.Context(), email)
	c.JSON(http.StatusOK, gin.H{"detail": "Password has been reset successfully"})
}

// PUT /api/user/change-password
func (h *Handler) ChangePassword(c *gin.Context) {
	u := middleware.CurrentUser(c)
	var input struct {
		OldPassword string `json:"old_password" form:"old_password" binding:"required"`
		NewPassword string `json:"new_password" form:"new_password" binding:"required"`
	}
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := ChangePassword(c, h.db, u, input.OldPassword, input.NewPassword); err != nil {
		apperr.Respond(c, err)
		return
	}
	h.cache.InvalidateUser(c.Request.Context(), u.Email)
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// ChangePassword verifies old against the stored hash and replaces it.
// Google accounts have no password to change.
func ChangePassword(c *gin.Context, db *gorm.DB, u *models.User, old, next string) error {
	if !u.HasPassword() {
		return apperr.New(apperr.ErrValidation, "password change is not available for Google accounts")
	}
	ok, err := utils.VerifyPassword(old, *u.Password)
	if err != nil || !ok {
		return apperr.New(apperr.ErrValidation, "Incorrect old password")
	}
	if len(next) < utils.MinPasswordLength {
		return apperr.New(apperr.ErrValidation, "Password must be at least 6 characters")
	}
	hash, err := utils.HashPassword(next)
	if err != nil {
		return err
	}
	return db.WithContext(c.Request.Context()).Model(&models.User{}).Where("id = ?", u.ID).Update("password", hash).Error
}
