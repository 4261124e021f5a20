package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"leafsense_back_end/internal/cache"
)

const (
	LoginMaxAttempts = 5
	LoginCooldown    = 15 * time.Minute

	ForgotPasswordMaxAttempts = 3
	ForgotPasswordWindow      = 10 * time.Minute
)

// LoginRateLimit locks an email out for LoginCooldown after
// LoginMaxAttempts failed logins. Successful logins reset the counter.
func LoginRateLimit(store *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !store.Enabled() {
			c.Next()
			return
		}
		email := peekEmail(c)
		if email == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		attemptsKey := "login_attempts:" + email
		cooldownKey := "login_cooldown:" + email

		if store.Exists(ctx, cooldownKey) {
			ttl := store.TTL(ctx, cooldownKey)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       fmt.Sprintf("too many failed attempts, try again in %d minutes", int(ttl.Minutes())+1),
				"retry_after": int(ttl.Seconds()),
			})
			return
		}

		c.Next()

		switch c.Writer.Status() {
		case http.StatusUnauthorized:
			n, err := store.Hit(ctx, attemptsKey, LoginCooldown)
			if err != nil {
				return
			}
			if n >= LoginMaxAttempts {
				store.Block(ctx, cooldownKey, LoginCooldown)
				store.Delete(ctx, attemptsKey)
			}
		case http.StatusOK:
			store.Delete(ctx, attemptsKey)
		}
	}
}

// ForgotPasswordRateLimit caps reset requests per client IP.
func ForgotPasswordRateLimit(store *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := store.Hit(c.Request.Context(), "forgot_password:"+c.ClientIP(), ForgotPasswordWindow)
		if err == nil && n > ForgotPasswordMaxAttempts {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, try again later"})
			return
		}
		c.Next()
	}
}

// peekEmail reads the email field of a JSON body and leaves the body in place.
func peekEmail(c *gin.Context) string {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	var in struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &in) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(in.Email))
}
