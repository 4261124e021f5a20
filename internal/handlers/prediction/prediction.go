package prediction

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/handlers"
	"leafsense_back_end/internal/history"
	"leafsense_back_end/internal/middleware"
	"leafsense_back_end/internal/models"
	"leafsense_back_end/internal/prediction"
)

// Analyzer is the part of prediction.Analyzer the handler drives.
type Analyzer interface {
	Analyze(ctx context.Context, filename string, data []byte, user *models.User) (*prediction.Result, error)
}

type Handler struct {
	analyzer  Analyzer
	history   *history.Store
	maxUpload int64
}

func NewHandler(analyzer Analyzer, store *history.Store, maxUpload int64) *Handler {
	return &Handler{analyzer: analyzer, history: store, maxUpload: maxUpload}
}

// POST /api/prediction/analyze
//
// Anonymous callers get the analysis; signed-in callers also get it saved.
func (h *Handler) Analyze(c *gin.Context) {
	data, _, filename, err := handlers.ReadImage(c, "file", h.maxUpload)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	res, err := h.analyzer.Analyze(c.Request.Context(), filename, data, middleware.CurrentUser(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /api/prediction/auth-status
func (h *Handler) AuthStatus(c *gin.Context) {
	u := middleware.CurrentUser(c)
	if u == nil {
		c.JSON(http.StatusOK, gin.H{
			"authenticated": false,
			"message":       "Sign in to save your analyses",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user":          gin.H{"id": u.ID, "name": u.Name, "email": u.Email},
		"message":       "Analyses are saved to your history",
	})
}
