package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"leafsense_back_end/internal/cache"
	"leafsense_back_end/internal/config"
	"leafsense_back_end/internal/coupon"
	"leafsense_back_end/internal/handlers/user"
	"leafsense_back_end/internal/middleware"
	"leafsense_back_end/internal/models"
	"leafsense_back_end/internal/shop"
	"leafsense_back_end/internal/testutil"
	"leafsense_back_end/internal/utils"
)

func init() { gin.SetMode(gin.TestMode) }

type fixture struct {
	db     *gorm.DB
	r      *gin.Engine
	orders *shop.OrderService
	cfg    *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	c := cache.New(nil)
	cfg := &config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour, MaxUploadBytes: 1 << 20}
	orders := shop.NewOrderService(db, coupon.NewService(db, coupon.NewLedger(db)), nil, nil)
	h := NewHandler(Deps{
		DB:       db,
		Cache:    c,
		Accounts: user.NewHandler(db, c, utils.LogMailer{}, nil, cfg),
		Catalog:  shop.NewCatalog(db, nil),
		Orders:   orders,
		Audit:    utils.NewAuditLogger(nil),
		Config:   cfg,
	})
	auth := middleware.NewAuth(cfg.JWTSecret, db, c)

	r := gin.New()
	r.POST("/api/admin/login", h.Login)
	adm := r.Group("/api/admin", auth.AuthRequired(), middleware.RequireAdmin)
	adm.GET("/dashboard", h.Dashboard)
	adm.GET("/users", h.ListUsers)
	adm.PUT("/users/:id/status", h.ToggleUserStatus)
	adm.DELETE("/users/:id", h.DeleteUser)
	adm.PUT("/orders/:id", h.UpdateOrder)
	adm.POST("/categories", h.CreateCategory)
	adm.GET("/audit-logs", h.AuditLogs)
	r.GET("/api/user/profile", auth.AuthRequired(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return &fixture{db: db, r: r, orders: orders, cfg: cfg}
}

func (f *fixture) user(t *testing.T, email string, role models.Role, password string) (*models.User, string) {
	t.Helper()
	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatal(err)
	}
	u := testutil.CreateUser(t, f.db, email)
	if err := f.db.Model(u).Updates(map[string]any{"role": role, "password": hash}).Error; err != nil {
		t.Fatal(err)
	}
	u.Role = role
	token, err := utils.GenerateJWT(u, f.cfg.JWTSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return u, token
}

func (f *fixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.r.ServeHTTP(w, req)
	return w
}

func TestAdminLogin(t *testing.T) {
	f := newFixture(t)
	f.user(t, "admin@leafsense.test", models.RoleAdmin, "admin123")
	f.user(t, "lan@leafsense.test", models.RoleFarmer, "secret1")

	tests := []struct {
		name, email, password string
		want                  int
	}{
		{"admin", "admin@leafsense.test", "admin123", http.StatusOK},
		{"wrong password", "admin@leafsense.test", "nope", http.StatusUnauthorized},
		{"farmer", "lan@leafsense.test", "secret1", http.StatusUnauthorized},
		{"unknown", "who@leafsense.test", "x", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPost, "/api/admin/login", "", gin.H{"email": tt.email, "password": tt.password})
			if w.Code != tt.want {
				t.Fatalf("status %d, want %d: %s", w.Code, tt.want, w.Body)
			}
		})
	}

	f.db.Model(&models.User{}).Where("email = ?", "admin@leafsense.test").Update("status", models.UserInactive)
	if w := f.do(http.MethodPost, "/api/admin/login", "", gin.H{"email": "admin@leafsense.test", "password": "admin123"}); w.Code != http.StatusForbidden {
		t.Fatalf("inactive admin: %d", w.Code)
	}
}

func TestAdminRoutesRejectFarmers(t *testing.T) {
	f := newFixture(t)
	_, farmer := f.user(t, "lan@leafsense.test", models.RoleFarmer, "secret1")
	if w := f.do(http.MethodGet, "/api/admin/dashboard", farmer, nil); w.Code != http.StatusForbidden {
		t.Fatalf("farmer dashboard: %d", w.Code)
	}
	if w := f.do(http.MethodGet, "/api/admin/dashboard", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous dashboard: %d", w.Code)
	}
}

func TestDashboardAndOrderStatus(t *testing.T) {
	f := newFixture(t)
	_, admin := f.user(t, "admin@leafsense.test", models.RoleAdmin, "admin123")
	lan, _ := f.user(t, "lan@leafsense.test", models.RoleFarmer, "secret1")
	p := testutil.CreateProduct(t, f.db, "Copper fungicide", 50000, 10)

	placed, err := f.orders.CreateOrder(context.Background(), shop.CreateOrderInput{
		UserID:   lan.ID,
		Items:    []shop.LineItem{{ProductID: p.ID, Quantity: 2}},
		Shipping: shop.Shipping{Name: "Lan", Phone: "0901234567", Address: "Da Lat"},
	})
	if err != nil {
		t.Fatal(err)
	}
	orderPath := "/api/admin/orders/" + itoa(placed.Order.ID)

	if w := f.do(http.MethodPut, orderPath, admin, gin.H{"status": "completed"}); w.Code != http.StatusBadRequest {
		t.Fatalf("skip to completed: %d", w.Code)
	}
	for _, st := range []string{"processing", "shipping", "completed"} {
		if w := f.do(http.MethodPut, orderPath, admin, gin.H{"status": st}); w.Code != http.StatusOK {
			t.Fatalf("%s: %d %s", st, w.Code, w.Body)
		}
	}

	w := f.do(http.MethodGet, "/api/admin/dashboard", admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard: %d %s", w.Code, w.Body)
	}
	var st DashboardStats
	json.Unmarshal(w.Body.Bytes(), &st)
	want := DashboardStats{TotalUsers: 1, TotalProducts: 1, TotalOrders: 1, TotalRevenue: 100000, ActiveUsers: 1}
	if st != want {
		t.Fatalf("dashboard %+v, want %+v", st, want)
	}
}

func TestToggleUserStatusLocksAccount(t *testing.T) {
	f := newFixture(t)
	admin, adminToken := f.user(t, "admin@leafsense.test", models.RoleAdmin, "admin123")
	lan, lanToken := f.user(t, "lan@leafsense.test", models.RoleFarmer, "secret1")

	if w := f.do(http.MethodPut, "/api/admin/users/"+itoa(admin.ID)+"/status", adminToken, nil); w.Code != http.StatusNotFound {
		t.Fatalf("admins cannot lock admins: %d", w.Code)
	}

	path := "/api/admin/users/" + itoa(lan.ID) + "/status"
	w := f.do(http.MethodPut, path, adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("lock: %d %s", w.Code, w.Body)
	}
	if w := f.do(http.MethodGet, "/api/user/profile", lanToken, nil); w.Code != http.StatusForbidden {
		t.Fatalf("locked farmer: %d", w.Code)
	}

	f.do(http.MethodPut, path, adminToken, nil)
	if w := f.do(http.MethodGet, "/api/user/profile", lanToken, nil); w.Code != http.StatusOK {
		t.Fatalf("unlocked farmer: %d", w.Code)
	}

	w = f.do(http.MethodGet, "/api/admin/users?status_filter=active", adminToken, nil)
	if w.Header().Get("X-Total-Count") != "1" {
		t.Fatalf("user list total %q", w.Header().Get("X-Total-Count"))
	}
}

func TestCreateCategoryConflict(t *testing.T) {
	f := newFixture(t)
	_, admin := f.user(t, "admin@leafsense.test", models.RoleAdmin, "admin123")

	if w := f.do(http.MethodPost, "/api/admin/categories", admin, gin.H{"name": "Fungicides"}); w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body)
	}
	if w := f.do(http.MethodPost, "/api/admin/categories", admin, gin.H{"name": "fungicides"}); w.Code != http.StatusConflict {
		t.Fatalf("duplicate: %d", w.Code)
	}
}

func TestAuditLogsWithoutStore(t *testing.T) {
	f := newFixture(t)
	_, admin := f.user(t, "admin@leafsense.test", models.RoleAdmin, "admin123")
	if w := f.do(http.MethodGet, "/api/admin/audit-logs", admin, nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("audit logs: %d", w.Code)
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
