package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/coupon"
	"leafsense_back_end/internal/models"
	"leafsense_back_end/internal/testutil"
)

func init() { gin.SetMode(gin.TestMode) }

func newCouponRouter(t *testing.T) (*gin.Engine, *gorm.DB, *models.User) {
	t.Helper()
	db := testutil.NewDB(t)
	u := testutil.CreateUser(t, db, "lan@leafsense.test")
	h := NewCouponHandler(coupon.NewService(db, coupon.NewLedger(db)))

	signedIn := func(c *gin.Context) {
		c.Set("user", u)
		c.Set("user_id", u.ID)
	}
	r := gin.New()
	r.POST("/api/coupons/validate", h.Validate)
	r.GET("/api/coupons/available", signedIn, h.Available)
	r.POST("/api/coupons/apply/:id", signedIn, h.Apply)
	r.GET("/api/coupons/my-usage", signedIn, h.MyUsage)
	r.POST("/api/coupons/admin/create", h.AdminCreate)
	r.GET("/api/coupons/admin/all", h.AdminList)
	r.DELETE("/api/coupons/admin/:id", h.AdminDelete)
	return r, db, u
}

func send(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestValidateCoupon(t *testing.T) {
	r, db, _ := newCouponRouter(t)
	cp := testutil.ActiveCoupon("SAVE10", models.CouponPercentage, 10)
	cp.MinimumOrderAmount = 100000
	db.Create(cp)

	tests := []struct {
		name   string
		code   string
		amount float64
		valid  bool
		final  float64
	}{
		{"applies", "save10", 200000, true, 180000},
		{"below minimum", "SAVE10", 50000, false, 50000},
		{"unknown code", "NOPE", 200000, false, 200000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := send(r, http.MethodPost, "/api/coupons/validate", gin.H{"coupon_code": tt.code, "order_amount": tt.amount})
			if w.Code != http.StatusOK {
				t.Fatalf("status %d: %s", w.Code, w.Body)
			}
			var p coupon.Preview
			json.Unmarshal(w.Body.Bytes(), &p)
			if p.Valid != tt.valid || p.FinalAmount != tt.final {
				t.Fatalf("preview %+v", p)
			}
		})
	}

	var cnt models.Coupon
	db.First(&cnt, cp.ID)
	if cnt.CurrentUsageCount != 0 {
		t.Fatal("validate must not record a redemption")
	}
}

func TestApplyCoupon(t *testing.T) {
	r, db, u := newCouponRouter(t)
	cp := testutil.ActiveCoupon("FIX20", models.CouponFixed, 20000)
	db.Create(cp)

	path := "/api/coupons/apply/1"
	w := send(r, http.MethodPost, path+"?order_amount=150000", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("apply: %d %s", w.Code, w.Body)
	}
	var out struct {
		Final float64 `json:"final_amount"`
	}
	json.Unmarshal(w.Body.Bytes(), &out)
	if out.Final != 130000 {
		t.Fatalf("final %v", out.Final)
	}

	if w := send(r, http.MethodPost, path, gin.H{"order_amount": 150000}); w.Code != http.StatusConflict {
		t.Fatalf("second use over per-customer limit: %d %s", w.Code, w.Body)
	}
	if w := send(r, http.MethodPost, path, gin.H{"order_amount": 0}); w.Code != http.StatusBadRequest {
		t.Fatalf("zero amount: %d", w.Code)
	}
	if w := send(r, http.MethodPost, "/api/coupons/apply/99?order_amount=1000", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown coupon: %d", w.Code)
	}

	var usage []coupon.UsageRow
	json.Unmarshal(send(r, http.MethodGet, "/api/coupons/my-usage", nil).Body.Bytes(), &usage)
	if len(usage) != 1 || usage[0].UserID != u.ID || usage[0].CouponCode != "FIX20" {
		t.Fatalf("usage %+v", usage)
	}
}

func TestApplyCouponChunkedJSONBody(t *testing.T) {
	r, db, _ := newCouponRouter(t)
	db.Create(testutil.ActiveCoupon("FIX20", models.CouponFixed, 20000))

	req := httptest.NewRequest(http.MethodPost, "/api/coupons/apply/1", strings.NewReader(`{"order_amount":150000}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("chunked body: %d %s", w.Code, w.Body)
	}
	var out struct {
		Final float64 `json:"final_amount"`
	}
	json.Unmarshal(w.Body.Bytes(), &out)
	if out.Final != 130000 {
		t.Fatalf("final %v", out.Final)
	}
}

func TestApplyCouponRejectsForeignOrder(t *testing.T) {
	r, db, _ := newCouponRouter(t)
	cp := testutil.ActiveCoupon("FIX20", models.CouponFixed, 20000)
	db.Create(cp)
	other := testutil.CreateUser(t, db, "minh@leafsense.test")
	order := &models.Order{UserID: other.ID, Status: models.OrderPending, PaymentMethod: models.PaymentCOD, OriginalAmount: 150000, TotalAmount: 150000}
	if err := db.Create(order).Error; err != nil {
		t.Fatal(err)
	}

	if w := send(r, http.MethodPost, "/api/coupons/apply/1", gin.H{"order_amount": 150000, "order_id": order.ID}); w.Code != http.StatusNotFound {
		t.Fatalf("someone else's order: %d %s", w.Code, w.Body)
	}
	if w := send(r, http.MethodPost, "/api/coupons/apply/1", gin.H{"order_amount": 150000, "order_id": 999}); w.Code != http.StatusNotFound {
		t.Fatalf("missing order: %d %s", w.Code, w.Body)
	}

	var got models.Coupon
	db.First(&got, cp.ID)
	if got.CurrentUsageCount != 0 {
		t.Fatalf("CurrentUsageCount = %d, want 0", got.CurrentUsageCount)
	}
}

func TestAvailableCoupons(t *testing.T) {
	r, db, u := newCouponRouter(t)

	open := testutil.ActiveCoupon("OPEN", models.CouponFixed, 5000)
	spent := testutil.ActiveCoupon("SPENT", models.CouponFixed, 5000)
	spent.TotalUsageLimit = testutil.Ptr(1)
	spent.CurrentUsageCount = 1
	used := testutil.ActiveCoupon("USED", models.CouponFixed, 5000)
	big := testutil.ActiveCoupon("BIG", models.CouponFixed, 5000)
	big.MinimumOrderAmount = 100000
	for _, cp := range []*models.Coupon{open, spent, used, big} {
		if err := db.Create(cp).Error; err != nil {
			t.Fatal(err)
		}
	}
	db.Create(&models.CouponUsage{CouponID: used.ID, UserID: u.ID, DiscountAmount: 5000, OrderAmount: 50000, UsedAt: time.Now()})

	w := send(r, http.MethodGet, "/api/coupons/available?order_amount=50000", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("available: %d %s", w.Code, w.Body)
	}
	var list []coupon.Available
	json.Unmarshal(w.Body.Bytes(), &list)
	got := map[string]coupon.Available{}
	for _, a := range list {
		got[a.Code] = a
	}
	if len(got) != 4 {
		t.Fatalf("listed %d coupons, want 4: %s", len(got), w.Body)
	}

	tests := []struct {
		code   string
		canUse bool
		reason string
	}{
		{"OPEN", true, ""},
		{"SPENT", false, coupon.ErrExhausted.Error()},
		{"USED", false, coupon.ErrCustomerLimit.Error()},
		{"BIG", false, "minimum order amount is 100000.00"},
	}
	for _, tt := range tests {
		a := got[tt.code]
		if a.CanUse != tt.canUse || a.Reason != tt.reason {
			t.Errorf("%s: can_use=%v reason=%q, want %v %q", tt.code, a.CanUse, a.Reason, tt.canUse, tt.reason)
		}
	}
	if rem := got["SPENT"].RemainingUses; rem == nil || *rem != 0 {
		t.Errorf("SPENT remaining_uses = %v, want 0", rem)
	}

	if w := send(r, http.MethodGet, "/api/coupons/available?order_amount=abc", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad order_amount: %d", w.Code)
	}
}

func TestAdminCreateAndDeactivate(t *testing.T) {
	r, db, _ := newCouponRouter(t)
	now := time.Now()
	body := gin.H{
		"code":        " spring15 ",
		"name":        "Spring",
		"coupon_type": "percentage",
		"value":       15,
		"start_date":  now.Add(-time.Hour),
		"end_date":    now.Add(24 * time.Hour),
	}
	w := send(r, http.MethodPost, "/api/coupons/admin/create", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body)
	}
	var created models.Coupon
	json.Unmarshal(w.Body.Bytes(), &created)
	if created.Code != "SPRING15" || !created.IsActive {
		t.Fatalf("created %+v", created)
	}
	if w := send(r, http.MethodPost, "/api/coupons/admin/create", body); w.Code != http.StatusConflict {
		t.Fatalf("duplicate code: %d", w.Code)
	}

	if w := send(r, http.MethodDelete, "/api/coupons/admin/1", nil); w.Code != http.StatusOK {
		t.Fatalf("deactivate: %d %s", w.Code, w.Body)
	}
	var got models.Coupon
	if err := db.First(&got, created.ID).Error; err != nil {
		t.Fatal("deactivated coupons keep their row")
	}
	if got.IsActive || got.Status != models.CouponInactive {
		t.Fatalf("after delete %+v", got)
	}

	w = send(r, http.MethodGet, "/api/coupons/admin/all?is_active=false", nil)
	if w.Header().Get("X-Total-Count") != "1" {
		t.Fatalf("list total %q", w.Header().Get("X-Total-Count"))
	}
	if w := send(r, http.MethodGet, "/api/coupons/admin/all?is_active=maybe", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad filter: %d", w.Code)
	}
}

type fakeVerifier struct {
	orderID uint
	err     error
}

func (f fakeVerifier) PaidOrder([]byte, string) (uint, error) { return f.orderID, f.err }

type fakePayer struct {
	paid []uint
	err  error
}

func (f *fakePayer) MarkPaid(_ context.Context, id uint) error {
	f.paid = append(f.paid, id)
	return f.err
}

func TestStripeWebhook(t *testing.T) {
	post := func(h *WebhookHandler) int {
		r := gin.New()
		r.POST("/hook", h.Stripe)
		req := httptest.NewRequest(http.MethodPost, "/hook", bytes.NewBufferString(`{}`))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	payer := &fakePayer{}
	if code := post(NewWebhookHandler(fakeVerifier{orderID: 7}, payer)); code != http.StatusOK || len(payer.paid) != 1 || payer.paid[0] != 7 {
		t.Fatalf("paid event: %d %v", code, payer.paid)
	}
	if code := post(NewWebhookHandler(fakeVerifier{}, &fakePayer{})); code != http.StatusOK {
		t.Fatalf("ignored event: %d", code)
	}
	if code := post(NewWebhookHandler(fakeVerifier{err: errors.New("bad sig")}, &fakePayer{})); code != http.StatusBadRequest {
		t.Fatalf("bad signature: %d", code)
	}
	missing := &fakePayer{err: apperr.New(apperr.ErrNotFound, "order not found")}
	if code := post(NewWebhookHandler(fakeVerifier{orderID: 9}, missing)); code != http.StatusOK {
		t.Fatalf("unknown order should be acknowledged: %d", code)
	}
	if code := post(NewWebhookHandler(nil, &fakePayer{})); code != http.StatusServiceUnavailable {
		t.Fatalf("unconfigured: %d", code)
	}
}
