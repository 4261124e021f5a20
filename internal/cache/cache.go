// Package cache wraps Redis. A Cache built from a nil client is a no-op, so
// every caller keeps working when Redis is not configured.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"leafsense_back_end/internal/models"
)

const (
	userTTL         = 10 * time.Minute
	oauthTTL        = 10 * time.Minute
	userPrefix      = "user:"
	oauthPrefix     = "oauth_redirect:"
	blacklistPrefix = "blacklist:"
)

type Cache struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

func (c *Cache) Enabled() bool { return c != nil && c.rdb != nil }

func (c *Cache) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

// --- Users ---

func (c *Cache) GetUser(ctx context.Context, email string) (*models.User, bool) {
	if !c.Enabled() {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, userPrefix+email).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("⚠️ Redis user cache read: %v", err)
		}
		return nil, false
	}
	var u models.User
	if err := json.Unmarshal(raw, &cachedUser{&u}); err != nil {
		return nil, false
	}
	return &u, true
}

func (c *Cache) SetUser(ctx context.Context, u *models.User) {
	if !c.Enabled() {
		return
	}
	raw, err := json.Marshal(cachedUser{u})
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, userPrefix+u.Email, raw, userTTL).Err(); err != nil {
		log.Printf("⚠️ Redis user cache write: %v", err)
	}
}

func (c *Cache) InvalidateUser(ctx context.Context, email string) {
	if !c.Enabled() {
		return
	}
	c.rdb.Del(ctx, userPrefix+email)
}

// cachedUser keeps the fields models.User hides from API responses.
type cachedUser struct{ *models.User }

type cachedUserJSON struct {
	ID       uint              `json:"id"`
	Name     string            `json:"name"`
	Email    string            `json:"email"`
	Password *string           `json:"password"`
	Avatar   string            `json:"avatar"`
	Phone    string            `json:"phone"`
	Address  string            `json:"address"`
	Role     models.Role       `json:"role"`
	Status   models.UserStatus `json:"status"`
	Provider string            `json:"provider"`
}

func (c cachedUser) MarshalJSON() ([]byte, error) {
	u := c.User
	return json.Marshal(cachedUserJSON{
		ID: u.ID, Name: u.Name, Email: u.Email, Password: u.Password, Avatar: u.Avatar,
		Phone: u.Phone, Address: u.Address, Role: u.Role, Status: u.Status, Provider: u.Provider,
	})
}

func (c *cachedUser) UnmarshalJSON(data []byte) error {
	var v cachedUserJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c.User = models.User{
		ID: v.ID, Name: v.Name, Email: v.Email, Password: v.Password, Avatar: v.Avatar,
		Phone: v.Phone, Address: v.Address, Role: v.Role, Status: v.Status, Provider: v.Provider,
	}
	return nil
}

// --- OAuth ---

func (c *Cache) SaveOAuthRedirect(ctx context.Context, state, redirect string) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Set(ctx, oauthPrefix+state, redirect, oauthTTL).Err()
}

// TakeOAuthRedirect returns and forgets the redirect stored for state.
func (c *Cache) TakeOAuthRedirect(ctx context.Context, state string) (string, bool) {
	if !c.Enabled() || state == "" {
		return "", false
	}
	v, err := c.rdb.GetDel(ctx, oauthPrefix+state).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

// --- Token blacklist ---

func (c *Cache) BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if !c.Enabled() || ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, blacklistPrefix+tokenID, "revoked", ttl).Err()
}

func (c *Cache) IsTokenBlacklisted(ctx context.Context, tokenID string) bool {
	if !c.Enabled() || tokenID == "" {
		return false
	}
	n, err := c.rdb.Exists(ctx, blacklistPrefix+tokenID).Result()
	if err != nil {
		log.Printf("⚠️ Redis blacklist check: %v", err)
		return false
	}
	return n > 0
}

// --- Rate limiting ---

// Hit counts one attempt under key and returns the total within window.
func (c *Cache) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		c.rdb.Expire(ctx, key, window)
	}
	return n, nil
}

func (c *Cache) TTL(ctx context.Context, key string) time.Duration {
	if !c.Enabled() {
		return 0
	}
	d, err := c.rdb.TTL(ctx, key).Result()
	if err != nil || d < 0 {
		return 0
	}
	return d
}

func (c *Cache) Block(ctx context.Context, key string, d time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Set(ctx, key, "1", d).Err()
}

func (c *Cache) Exists(ctx context.Context, key string) bool {
	if !c.Enabled() {
		return false
	}
	n, err := c.rdb.Exists(ctx, key).Result()
	return err == nil && n > 0
}

func (c *Cache) Delete(ctx context.Context, keys ...string) {
	if !c.Enabled() || len(keys) == 0 {
		return
	}
	c.rdb.Del(ctx, keys...)
}

// --- Pub/Sub ---

func OrderChannel(userID uint) string {
	return fmt.Sprintf("orders:%d", userID)
}

func (c *Cache) Publish(ctx context.Context, channel string, payload any) error {
	if !c.Enabled() {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.rdb.Publish(ctx, channel, raw).Err()
}

// Subscribe returns nil when Redis is disabled.
func (c *Cache) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Subscribe(ctx, channel)
}
