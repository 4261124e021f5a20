package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leafsense_back_end/internal/utils"
)

// Audit records the request as action on resource once the handler has
// answered. The resource id is the :id path parameter, or the "resource_id"
// a create handler stored on the context.
func Audit(logger *utils.AuditLogger, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Request.Method == http.MethodGet || logger == nil {
			return
		}
		id := c.Param("id")
		if id == "" {
			id = c.GetString("resource_id")
		}
		logger.LogAction(c, action, resource, id, c.Writer.Status())
	}
}
