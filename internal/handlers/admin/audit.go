package admin

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/handlers"
	"leafsense_back_end/internal/utils"
)

// GET /api/admin/audit-logs?action=&resource=&limit=
func (h *Handler) AuditLogs(c *gin.Context) {
	limit, err := handlers.QueryInt(c, "limit", 100)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	q := utils.AuditQuery{Action: c.Query("action"), Resource: c.Query("resource"), Limit: limit}
	logs, err := h.audit.Recent(c.Request.Context(), q)
	if errors.Is(err, utils.ErrAuditDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit log storage is not configured"})
		return
	}
	if err != nil {
		log.Printf("❌ Read audit logs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read audit logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"total": len(logs),
		"filters": gin.H{
			"action":   q.Action,
			"resource": q.Resource,
			"limit":    limit,
		},
	})
}
