package user

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"
	"gorm.io/gorm"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/auth"
	"leafsense_back_end/internal/cache"
	"leafsense_back_end/internal/config"
	"leafsense_back_end/internal/handlers"
	"leafsense_back_end/internal/middleware"
	"leafsense_back_end/internal/models"
	"leafsense_back_end/internal/utils"
)

// Handler serves the account endpoints: sign-up, sign-in, password flows and
// the profile.
type Handler struct {
	db     *gorm.DB
	cache  *cache.Cache
	mailer utils.Mailer
	blobs  handlers.Uploader
	cfg    *config.Config
}

func NewHandler(db *gorm.DB, c *cache.Cache, mailer utils.Mailer, blobs handlers.Uploader, cfg *config.Config) *Handler {
	return &Handler{db: db, cache: c, mailer: mailer, blobs: blobs, cfg: cfg}
}

type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *models.User `json:"user"`
}

func (h *Handler) issue(c *gin.Context, status int, u *models.User) {
	token, err := utils.GenerateJWT(u, h.cfg.JWTSecret, h.cfg.JWTExpiry)
	if err != nil {
		log.Printf("❌ JWT generation: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	c.JSON(status, tokenResponse{AccessToken: token, TokenType: "bearer", User: u})
}

// POST /api/auth/signup
func (h *Handler) Signup(c *gin.Context) {
	var input struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(input.Password) < utils.MinPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters"})
		return
	}
	email := auth.NormalizeEmail(input.Email)

	var count int64
	h.db.WithContext(c.Request.Context()).Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email already registered"})
		return
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	u := models.User{
		Name:     strings.TrimSpace(input.Name),
		Email:    email,
		Password: &hash,
		Role:     models.RoleFarmer,
		Status:   models.UserActive,
		Provider: models.ProviderLocal,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&u).Error; err != nil {
		log.Printf("❌ Create user %s: %v", email, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create account"})
		return
	}
	log.Printf("✅ New account %s", email)
	h.issue(c, http.StatusCreated, &u)
}

type credentials struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var input credentials
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := auth.Authenticate(c.Request.Context(), h.db, input.Email, input.Password)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	h.cache.SetUser(c.Request.Context(), u)
	h.issue(c, http.StatusOK, u)
}

// POST /api/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	claims := middleware.CurrentClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	var ttl time.Duration
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if err := h.cache.BlacklistToken(c.Request.Context(), claims.ID, ttl); err != nil {
		log.Printf("⚠️ Blacklist token: %v", err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// GET /api/auth/google/login
func (h *Handler) GoogleLogin(c *gin.Context) {
	if !auth.GoogleEnabled {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google sign-in is not configured"})
		return
	}
	state, err := utils.RandomToken(16)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	redirect := c.Query("redirect")
	if !strings.HasPrefix(redirect, "/") || strings.HasPrefix(redirect, "//") {
		redirect = "/"
	}
	if err := h.cache.SaveOAuthRedirect(c.Request.Context(), state, redirect); err != nil {
		log.Printf("⚠️ Save OAuth state: %v", err)
	}

	q := c.Request.URL.Query()
	q.Set("provider", "google")
	q.Set("state", state)
	c.Request.URL.RawQuery = q.Encode()
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// GET /api/auth/google/callback
func (h *Handler) GoogleCallback(c *gin.Context) {
	q := c.Request.URL.Query()
	q.Set("provider", "google")
	c.Request.URL.RawQuery = q.Encode()

	gu, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		log.Printf("❌ Google OAuth: %v", err)
		h.redirectFrontend(c, "/login", url.Values{"error": {"oauth_failed"}})
		return
	}
	email := auth.NormalizeEmail(gu.Email)
	if email == "" {
		h.redirectFrontend(c, "/login", url.Values{"error": {"oauth_no_email"}})
		return
	}

	var u models.User
	err = h.db.WithContext(c.Request.Context()).Where("email = ?", email).First(&u).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		name := gu.Name
		if name == "" {
			name = strings.Split(email, "@")[0]
		}
		u = models.User{
			Name:       name,
			Email:      email,
			Avatar:     gu.AvatarURL,
			Role:       models.RoleFarmer,
			Status:     models.UserActive,
			Provider:   models.ProviderGoogle,
			ProviderID: gu.UserID,
		}
		if err := h.db.WithContext(c.Request.Context()).Create(&u).Error; err != nil {
			log.Printf("❌ Create Google user %s: %v", email, err)
			h.redirectFrontend(c, "/login", url.Values{"error": {"oauth_failed"}})
			return
		}
		log.Printf("✅ New Google account %s", email)
	case err != nil:
		log.Printf("❌ Load user %s: %v", email, err)
		h.redirectFrontend(c, "/login", url.Values{"error": {"oauth_failed"}})
		return
	}

	if !u.IsActive() {
		h.redirectFrontend(c, "/account-locked", nil)
		return
	}

	token, err := utils.GenerateJWT(&u, h.cfg.JWTSecret, h.cfg.JWTExpiry)
	if err != nil {
		log.Printf("❌ JWT generation: %v", err)
		h.redirectFrontend(c, "/login", url.Values{"error": {"oauth_failed"}})
		return
	}
	redirect, ok := h.cache.TakeOAuthRedirect(c.Request.Context(), c.Query("state"))
	if !ok {
		redirect = "/"
	}
	h.redirectFrontend(c, "/auth/google/callback", url.Values{
		"token":      {token},
		"email":      {u.Email},
		"name":       {u.Name},
		"avatar_url": {u.Avatar},
		"redirect":   {redirect},
	})
}

func (h *Handler) redirectFrontend(c *gin.Context, path string, q url.Values) {
	target := strings.TrimRight(h.cfg.FrontendURL, "/") + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	c.Redirect(http.StatusTemporaryRedirect, target)
}
