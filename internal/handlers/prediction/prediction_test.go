package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"leafsense_back_end/internal/history"
	"leafsense_back_end/internal/models"
	"leafsense_back_end/internal/prediction"
	"leafsense_back_end/internal/testutil"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeAnalyzer struct {
	calls []*models.User
}

func (f *fakeAnalyzer) Analyze(_ context.Context, filename string, _ []byte, u *models.User) (*prediction.Result, error) {
	f.calls = append(f.calls, u)
	return &prediction.Result{Filename: filename, DiseaseName: "Rust"}, nil
}

// asUser stands in for the auth middleware.
func asUser(u *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if u != nil {
			c.Set("user", u)
			c.Set("user_id", u.ID)
		}
		c.Next()
	}
}

func newRouter(t *testing.T, db *gorm.DB, a Analyzer, u *models.User) *gin.Engine {
	t.Helper()
	h := NewHandler(a, history.NewStore(db, nil), 1<<20)
	r := gin.New()
	r.Use(asUser(u))
	r.POST("/api/prediction/analyze", h.Analyze)
	r.GET("/api/prediction/auth-status", h.AuthStatus)
	r.GET("/api/history", h.ListHistory)
	r.GET("/api/history/stats", h.HistoryStats)
	r.GET("/api/history/:id", h.GetHistory)
	r.DELETE("/api/history/:id", h.DeleteHistory)
	return r
}

func upload(t *testing.T, contentType string, size int) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="leaf.png"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatal(err)
	}
	part.Write(bytes.Repeat([]byte{0x89}, size))
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/prediction/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAnalyze(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.CreateUser(t, db, "lan@leafsense.test")
	fake := &fakeAnalyzer{}

	anon := newRouter(t, db, fake, nil)
	if w := serve(anon, upload(t, "image/png", 64)); w.Code != http.StatusOK {
		t.Fatalf("anonymous analyze: %d %s", w.Code, w.Body)
	}
	signed := newRouter(t, db, fake, u)
	w := serve(signed, upload(t, "image/png", 64))
	if w.Code != http.StatusOK {
		t.Fatalf("signed-in analyze: %d %s", w.Code, w.Body)
	}
	var res prediction.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Filename != "leaf.png" || res.DiseaseName != "Rust" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(fake.calls) != 2 || fake.calls[0] != nil || fake.calls[1] == nil || fake.calls[1].ID != u.ID {
		t.Fatalf("analyzer saw users %+v", fake.calls)
	}
}

func TestAnalyzeRejectsBadUploads(t *testing.T) {
	db := testutil.NewDB(t)
	r := newRouter(t, db, &fakeAnalyzer{}, nil)

	if w := serve(r, upload(t, "text/plain", 64)); w.Code != http.StatusBadRequest {
		t.Fatalf("non-image: %d", w.Code)
	}
	if w := serve(r, upload(t, "image/png", 2<<20)); w.Code != http.StatusBadRequest {
		t.Fatalf("oversized: %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/prediction/analyze", nil)
	if w := serve(r, req); w.Code != http.StatusBadRequest {
		t.Fatalf("missing file: %d", w.Code)
	}
}

func TestAuthStatus(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.CreateUser(t, db, "lan@leafsense.test")
	req := func() *http.Request { return httptest.NewRequest(http.MethodGet, "/api/prediction/auth-status", nil) }

	var out struct {
		Authenticated bool `json:"authenticated"`
	}
	w := serve(newRouter(t, db, &fakeAnalyzer{}, nil), req())
	json.Unmarshal(w.Body.Bytes(), &out)
	if out.Authenticated {
		t.Fatal("anonymous reported authenticated")
	}
	w = serve(newRouter(t, db, &fakeAnalyzer{}, u), req())
	json.Unmarshal(w.Body.Bytes(), &out)
	if !out.Authenticated {
		t.Fatal("signed-in user reported anonymous")
	}
}

func TestHistoryEndpoints(t *testing.T) {
	db := testutil.NewDB(t)
	lan := testutil.CreateUser(t, db, "lan@leafsense.test")
	minh := testutil.CreateUser(t, db, "minh@leafsense.test")
	for _, p := range []models.DiseasePrediction{
		{UserID: lan.ID, DiseaseType: "Rust", Confidence: 0.9},
		{UserID: lan.ID, DiseaseType: "Rust", Confidence: 0.7},
		{UserID: lan.ID, DiseaseType: models.NoDiseaseLabel, Confidence: 0.95},
		{UserID: minh.ID, DiseaseType: "Phoma", Confidence: 0.8},
	} {
		if err := db.Create(&p).Error; err != nil {
			t.Fatal(err)
		}
	}
	r := newRouter(t, db, &fakeAnalyzer{}, lan)
	get := func(path string) *httptest.ResponseRecorder {
		return serve(r, httptest.NewRequest(http.MethodGet, path, nil))
	}

	var page history.Page
	w := get("/api/history?limit=2")
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d %s", w.Code, w.Body)
	}
	json.Unmarshal(w.Body.Bytes(), &page)
	if page.Total != 3 || len(page.Items) != 2 || !page.HasMore {
		t.Fatalf("page: %+v", page)
	}

	for _, bad := range []string{"/api/history?limit=0", "/api/history?limit=101", "/api/history?offset=-1", "/api/history?limit=x"} {
		if w := get(bad); w.Code != http.StatusBadRequest {
			t.Errorf("%s: %d", bad, w.Code)
		}
	}

	var st history.Stats
	json.Unmarshal(get("/api/history/stats").Body.Bytes(), &st)
	if st.Total != 3 || st.ByDisease["Rust"] != 2 {
		t.Fatalf("stats: %+v", st)
	}

	// Another user's prediction is invisible.
	if w := get("/api/history/4"); w.Code != http.StatusNotFound {
		t.Fatalf("foreign get: %d", w.Code)
	}
	if w := serve(r, httptest.NewRequest(http.MethodDelete, "/api/history/4", nil)); w.Code != http.StatusNotFound {
		t.Fatalf("foreign delete: %d", w.Code)
	}
	if w := serve(r, httptest.NewRequest(http.MethodDelete, "/api/history/1", nil)); w.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", w.Code, w.Body)
	}
	if w := get("/api/history/1"); w.Code != http.StatusNotFound {
		t.Fatalf("deleted get: %d", w.Code)
	}
}
