package routes

import (
	"github.com/gin-gonic/gin"

	"leafsense_back_end/internal/middleware"
	"leafsense_back_end/internal/utils"
)

func RegisterRoutes(r *gin.Engine, h *Handlers) {
	api := r.Group("/api")
	authed := h.Auth.AuthRequired()

	// Auth
	authGroup := api.Group("/auth")
	{
		authGroup.POST("/signup", h.Users.Signup)
		authGroup.POST("/login", middleware.LoginRateLimit(h.Cache), h.Users.Login)
		authGroup.POST("/logout", authed, h.Users.Logout)
		authGroup.POST("/forgot-password", middleware.ForgotPasswordRateLimit(h.Cache), h.Users.ForgotPassword)
		authGroup.POST("/reset-password/:token", h.Users.ResetPassword)
		authGroup.GET("/google/login", h.Users.GoogleLogin)
		authGroup.GET("/google/callback", h.Users.GoogleCallback)
	}

	// Account
	userGroup := api.Group("/user", authed)
	{
		userGroup.GET("/profile", h.Users.GetProfile)
		userGroup.PUT("/profile", h.Users.UpdateProfile)
		userGroup.PUT("/change-password", h.Users.ChangePassword)
	}

	// Prediction + history
	predictionGroup := api.Group("/prediction", h.Auth.OptionalAuth())
	{
		predictionGroup.POST("/analyze", h.Prediction.Analyze)
		predictionGroup.GET("/auth-status", h.Prediction.AuthStatus)
	}
	historyGroup := api.Group("/history", authed)
	{
		historyGroup.GET("", h.Prediction.ListHistory)
		historyGroup.GET("/stats", h.Prediction.HistoryStats)
		historyGroup.GET("/:id", h.Prediction.GetHistory)
		historyGroup.DELETE("/:id", h.Prediction.DeleteHistory)
	}

	// Shop (public)
	api.GET("/products", h.Products.ListProducts)
	api.GET("/products/:id", h.Products.GetProduct)
	api.GET("/products/:id/reviews", h.Products.ListReviews)
	api.GET("/categories", h.Products.ListCategories)
	api.GET("/shop/recommendations", h.Products.Recommendations)

	// Shop (signed in)
	cart := api.Group("/cart", authed)
	{
		cart.GET("", h.Carts.GetCart)
		cart.DELETE("", h.Carts.ClearCart)
		cart.POST("/items", h.Carts.AddItem)
		cart.PUT("/items/:id", h.Carts.UpdateItem)
		cart.DELETE("/items/:id", h.Carts.RemoveItem)
	}
	orders := api.Group("/orders", authed)
	{
		orders.POST("", h.Orders.CreateOrder)
		orders.GET("", h.Orders.ListOrders)
		orders.GET("/:id", h.Orders.GetOrder)
		orders.POST("/:id/cancel", h.Orders.CancelOrder)
		orders.GET("/:id/payment-qr", h.Orders.PaymentQR)
	}
	api.GET("/ws/orders", authed, h.Orders.OrderUpdates)

	reviews := api.Group("/reviews", authed)
	{
		reviews.POST("", h.Products.CreateReview)
		reviews.PUT("/:id", h.Products.UpdateReview)
		reviews.DELETE("/:id", h.Products.DeleteReview)
	}

	// Coupons
	coupons := api.Group("/coupons")
	{
		coupons.POST("/validate", h.Auth.OptionalAuth(), h.Coupons.Validate)
		coupons.GET("/available", h.Auth.OptionalAuth(), h.Coupons.Available)
		coupons.POST("/apply/:id", authed, h.Coupons.Apply)
		coupons.GET("/my-usage", authed, h.Coupons.MyUsage)

		couponAdmin := coupons.Group("/admin", authed, middleware.RequireAdmin)
		{
			couponAdmin.GET("/all", h.Coupons.AdminList)
			couponAdmin.GET("/stats", h.Coupons.AdminStats)
			couponAdmin.GET("/:id/usage", h.Coupons.AdminUsage)
			couponAdmin.POST("/create", h.audit(utils.ACTION_COUPON_CREATE, utils.RESOURCE_COUPON), h.Coupons.AdminCreate)
			couponAdmin.PUT("/:id", h.audit(utils.ACTION_COUPON_UPDATE, utils.RESOURCE_COUPON), h.Coupons.AdminUpdate)
			couponAdmin.DELETE("/:id", h.audit(utils.ACTION_COUPON_DELETE, utils.RESOURCE_COUPON), h.Coupons.AdminDelete)
		}
	}

	// Payments
	api.POST("/payments/stripe/webhook", h.Webhooks.Stripe)

	// Admin
	api.POST("/admin/login", middleware.LoginRateLimit(h.Cache), h.Admin.Login)
	adm := api.Group("/admin", authed, middleware.RequireAdmin)
	{
		adm.GET("/profile", h.Admin.Profile)
		adm.PUT("/profile", h.Admin.UpdateProfile)
		adm.PUT("/change-password", h.Admin.ChangePassword)
		adm.GET("/dashboard", h.Admin.Dashboard)
		adm.GET("/audit-logs", h.Admin.AuditLogs)

		adm.GET("/users", h.Admin.ListUsers)
		adm.GET("/users/:id", h.Admin.GetUser)
		adm.PUT("/users/:id", h.audit(utils.ACTION_USER_UPDATE, utils.RESOURCE_USER), h.Admin.UpdateUser)
		adm.PUT("/users/:id/status", h.audit(utils.ACTION_USER_LOCK, utils.RESOURCE_USER), h.Admin.ToggleUserStatus)
		adm.DELETE("/users/:id", h.audit(utils.ACTION_USER_DELETE, utils.RESOURCE_USER), h.Admin.DeleteUser)

		adm.GET("/products", h.Admin.ListProducts)
		adm.GET("/products/export", h.Admin.ExportProducts)
		adm.POST("/products/import", h.audit(utils.ACTION_PRODUCT_CREATE, utils.RESOURCE_PRODUCT), h.Admin.ImportProducts)
		adm.GET("/products/:id", h.Admin.GetProduct)
		adm.POST("/products", h.audit(utils.ACTION_PRODUCT_CREATE, utils.RESOURCE_PRODUCT), h.Admin.CreateProduct)
		adm.PUT("/products/:id", h.audit(utils.ACTION_PRODUCT_UPDATE, utils.RESOURCE_PRODUCT), h.Admin.UpdateProduct)
		adm.DELETE("/products/:id", h.audit(utils.ACTION_PRODUCT_DELETE, utils.RESOURCE_PRODUCT), h.Admin.DeleteProduct)

		adm.GET("/categories", h.Admin.ListCategories)
		adm.POST("/categories", h.audit(utils.ACTION_CATEGORY_CREATE, utils.RESOURCE_CATEGORY), h.Admin.CreateCategory)
		adm.PUT("/categories/:id", h.audit(utils.ACTION_CATEGORY_UPDATE, utils.RESOURCE_CATEGORY), h.Admin.UpdateCategory)
		adm.DELETE("/categories/:id", h.audit(utils.ACTION_CATEGORY_DELETE, utils.RESOURCE_CATEGORY), h.Admin.DeleteCategory)

		adm.GET("/orders", h.Admin.ListOrders)
		adm.GET("/orders/:id", h.Admin.GetOrder)
		adm.PUT("/orders/:id", h.audit(utils.ACTION_ORDER_UPDATE, utils.RESOURCE_ORDER), h.Admin.UpdateOrder)
	}
}

func (h *Handlers) audit(action, resource string) gin.HandlerFunc {
	return middleware.Audit(h.Audit, action, resource)
}
