package prediction

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/handlers"
	"leafsense_back_end/internal/history"
)

// GET /api/history?limit=&offset=&disease=
func (h *Handler) ListHistory(c *gin.Context) {
	limit, err := handlers.QueryInt(c, "limit", history.DefaultLimit)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	offset, err := handlers.QueryInt(c, "offset", 0)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if limit < 1 || limit > history.MaxLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
		return
	}
	if offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must not be negative"})
		return
	}

	page, err := h.history.List(c.Request.Context(), c.GetUint("user_id"), history.Query{
		Limit:   limit,
		Offset:  offset,
		Disease: c.Query("disease"),
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/history/:id
func (h *Handler) GetHistory(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	p, err := h.history.Get(c.Request.Context(), id, c.GetUint("user_id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DELETE /api/history/:id
func (h *Handler) DeleteHistory(c *gin.Context) {
	id, ok := handlers.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.history.Delete(c.Request.Context(), id, c.GetUint("user_id")); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "prediction deleted"})
}

// GET /api/history/stats
func (h *Handler) HistoryStats(c *gin.Context) {
	st, err := h.history.Stats(c.Request.Context(), c.GetUint("user_id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
