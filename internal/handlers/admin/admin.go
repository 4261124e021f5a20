package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/auth"
	"leafsense_back_end/internal/cache"
	"leafsense_back_end/internal/config"
	"leafsense_back_end/internal/handlers"
	"leafsense_back_end/internal/handlers/user"
	"leafsense_back_end/internal/middleware"
	"leafsense_back_end/internal/models"
	"leafsense_back_end/internal/shop"
	"leafsense_back_end/internal/utils"
)

// Handler serves the back-office endpoints under /api/admin.
type Handler struct {
	db       *gorm.DB
	cache    *cache.Cache
	accounts *user.Handler
	catalog  *shop.Catalog
	orders   *shop.OrderService
	audit    *utils.AuditLogger
	blobs    handlers.Uploader
	cfg      *config.Config
}

type Deps struct {
	DB       *gorm.DB
	Cache    *cache.Cache
	Accounts *user.Handler
	Catalog  *shop.Catalog
	Orders   *shop.OrderService
	Audit    *utils.AuditLogger
	Blobs    handlers.Uploader
	Config   *config.Config
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		db:       d.DB,
		cache:    d.Cache,
		accounts: d.Accounts,
		catalog:  d.Catalog,
		orders:   d.Orders,
		audit:    d.Audit,
		blobs:    d.Blobs,
		cfg:      d.Config,
	}
}

// POST /api/admin/login
func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var n int64
	h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("email = ? AND role = ?", auth.NormalizeEmail(input.Email), models.RoleAdmin).
		Count(&n)
	if n == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin credentials"})
		return
	}

	u, err := auth.Authenticate(c.Request.Context(), h.db, input.Email, input.Password)
	switch {
	case errors.Is(err, apperr.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin account is inactive"})
		return
	case errors.Is(err, apperr.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin credentials"})
		return
	case err != nil:
		apperr.Respond(c, err)
		return
	}

	token, err := utils.GenerateJWT(u, h.cfg.JWTSecret, h.cfg.JWTExpiry)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	h.cache.SetUser(c.Request.Context(), u)
	c.Set("user_id", u.ID)
	c.Set("email", u.Email)
	h.audit.LogAction(c, utils.ACTION_ADMIN_LOGIN, utils.RESOURCE_AUTH, "", http.StatusOK)
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer", "admin": u})
}

// GET /api/admin/profile
func (h *Handler) Profile(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}

// PUT /api/admin/profile
func (h *Handler) UpdateProfile(c *gin.Context) {
	h.accounts.UpdateProfile(c)
}

// PUT /api/admin/change-password
func (h *Handler) ChangePassword(c *gin.Context) {
	h.accounts.ChangePassword(c)
}

type DashboardStats struct {
	TotalUsers    int64   `json:"total_users"`
	TotalProducts int64   `json:"total_products"`
	TotalOrders   int64   `json:"total_orders"`
	TotalRevenue  float64 `json:"total_revenue"`
	PendingOrders int64   `json:"pending_orders"`
	ActiveUsers   int64   `json:"active_users"`
}

// GET /api/admin/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	db := h.db.WithContext(c.Request.Context())
	var st DashboardStats
	farmers := func() *gorm.DB { return db.Model(&models.User{}).Where("role = ?", models.RoleFarmer) }

	steps := []error{
		farmers().Count(&st.TotalUsers).Error,
		db.Model(&models.Product{}).Count(&st.TotalProducts).Error,
		db.Model(&models.Order{}).Count(&st.TotalOrders).Error,
		db.Model(&models.Order{}).Where("status = ?", models.OrderCompleted).
			Select("COALESCE(SUM(total_amount), 0)").Scan(&st.TotalRevenue).Error,
		db.Model(&models.Order{}).Where("status = ?", models.OrderPending).Count(&st.PendingOrders).Error,
		farmers().Where("status = ?", models.UserActive).Count(&st.ActiveUsers).Error,
	}
	for _, err := range steps {
		if err != nil {
			apperr.Respond(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, st)
}
