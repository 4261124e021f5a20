package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAdmin runs after AuthRequired and only lets admins through.
func RequireAdmin(c *gin.Context) {
	u := CurrentUser(c)
	if u == nil || !u.IsAdmin() {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
		return
	}
	c.Next()
}
