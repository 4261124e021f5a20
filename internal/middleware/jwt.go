package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"leafsense_back_end/internal/cache"
	"leafsense_back_end/internal/models"
	"leafsense_back_end/internal/utils"
)

const userKey = "user"

// Auth resolves bearer tokens to users. Tokens carry the email as subject; the
// user row is read through the Redis cache.
type Auth struct {
	secret string
	db     *gorm.DB
	cache  *cache.Cache
}

func NewAuth(secret string, db *gorm.DB, c *cache.Cache) *Auth {
	return &Auth{secret: secret, db: db, cache: c}
}

var (
	errNoToken = errors.New("missing token")
	errLocked  = errors.New("account locked")
)

func (a *Auth) resolve(c *gin.Context) (*models.User, *utils.Claims, error) {
	raw := bearerToken(c)
	if raw == "" {
		return nil, nil, errNoToken
	}
	claims, err := utils.ParseJWT(raw, a.secret)
	if err != nil {
		return nil, nil, err
	}
	if a.cache.IsTokenBlacklisted(c.Request.Context(), claims.ID) {
		return nil, nil, errors.New("token revoked")
	}

	user, ok := a.cache.GetUser(c.Request.Context(), claims.Subject)
	if !ok {
		var u models.User
		if err := a.db.WithContext(c.Request.Context()).Where("email = ?", claims.Subject).First(&u).Error; err != nil {
			return nil, nil, err
		}
		a.cache.SetUser(c.Request.Context(), &u)
		user = &u
	}
	if !user.IsActive() {
		return nil, nil, errLocked
	}
	return user, claims, nil
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// a websocket handshake, so upgrades may pass ?token= instead.
func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return c.Query("token")
	}
	return ""
}

func setUser(c *gin.Context, u *models.User, claims *utils.Claims) {
	c.Set(userKey, u)
	c.Set("user_id", u.ID)
	c.Set("email", u.Email)
	c.Set("role", string(u.Role))
	c.Set("claims", claims)
}

// AuthRequired rejects requests without a valid token for an active account.
func (a *Auth) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, claims, err := a.resolve(c)
		switch {
		case errors.Is(err, errLocked):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account locked"})
			return
		case errors.Is(err, errNoToken):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "could not validate credentials"})
			return
		}
		setUser(c, user, claims)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and lets
// anonymous requests through otherwise.
func (a *Auth) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, claims, err := a.resolve(c); err == nil {
			setUser(c, user, claims)
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

// CurrentClaims returns the parsed token of the request, if any.
func CurrentClaims(c *gin.Context) *utils.Claims {
	v, ok := c.Get("claims")
	if !ok {
		return nil
	}
	cl, _ := v.(*utils.Claims)
	return cl
}
