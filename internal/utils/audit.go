package utils

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"leafsense_back_end/internal/models"
)

const (
	ACTION_PRODUCT_CREATE = "product.create"
	ACTION_PRODUCT_UPDATE = "product.update"
	ACTION_PRODUCT_DELETE = "product.delete"

	ACTION_CATEGORY_CREATE = "category.create"
	ACTION_CATEGORY_UPDATE = "category.update"
	ACTION_CATEGORY_DELETE = "category.delete"

	ACTION_ORDER_UPDATE = "order.update"

	ACTION_USER_UPDATE = "user.update"
	ACTION_USER_DELETE = "user.delete"
	ACTION_USER_LOCK   = "user.lock"

	ACTION_COUPON_CREATE = "coupon.create"
	ACTION_COUPON_UPDATE = "coupon.update"
	ACTION_COUPON_DELETE = "coupon.delete"

	ACTION_ADMIN_LOGIN = "auth.admin_login"
)

const (
	RESOURCE_PRODUCT  = "product"
	RESOURCE_CATEGORY = "category"
	RESOURCE_ORDER    = "order"
	RESOURCE_USER     = "user"
	RESOURCE_COUPON   = "coupon"
	RESOURCE_AUTH     = "auth"
)

// AuditLogger writes admin actions to Scylla. Without a session the entries
// only reach the application log.
type AuditLogger struct {
	session *gocql.Session
}

func NewAuditLogger(session *gocql.Session) *AuditLogger {
	return &AuditLogger{session: session}
}

// LogAction records the request in c. It returns at once; the insert runs in
// the background.
func (a *AuditLogger) LogAction(c *gin.Context, action, resource, resourceID string, status int) {
	entry := models.AuditLog{
		ID:         gocql.TimeUUID(),
		UserID:     c.GetUint("user_id"),
		UserEmail:  c.GetString("email"),
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.GetHeader("User-Agent"),
		Success:    status < 400,
		StatusCode: status,
		Timestamp:  time.Now(),
	}
	go a.write(entry)
}

func (a *AuditLogger) write(e models.AuditLog) {
	if a == nil || a.session == nil {
		log.Printf("📝 audit %s %s/%s by %s (%d)", e.Action, e.Resource, e.ResourceID, e.UserEmail, e.StatusCode)
		return
	}
	err := a.session.Query(`
		INSERT INTO audit_logs (
			id, user_id, user_email, action, resource, resource_id,
			ip_address, user_agent, success, status_code, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, int64(e.UserID), e.UserEmail, e.Action, e.Resource, e.ResourceID,
		e.IPAddress, e.UserAgent, e.Success, e.StatusCode, e.Timestamp,
	).Exec()
	if err != nil {
		log.Printf("❌ Audit log insert failed: %v", err)
	}
}

// ErrAuditDisabled is returned by reads when no Scylla session is configured.
var ErrAuditDisabled = errors.New("audit store not configured")

type AuditQuery struct {
	Action   string
	Resource string
	Limit    int
}

// Recent lists audit entries, newest first, filtered by action and resource.
func (a *AuditLogger) Recent(ctx context.Context, q AuditQuery) ([]models.AuditLog, error) {
	if a == nil || a.session == nil {
		return nil, ErrAuditDisabled
	}
	if q.Limit <= 0 || q.Limit > 500 {
		q.Limit = 100
	}

	stmt := `SELECT id, user_id, user_email, action, resource, resource_id,
		ip_address, user_agent, success, status_code, timestamp FROM audit_logs`
	var conds []string
	var args []any
	if q.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, q.Action)
	}
	if q.Resource != "" {
		conds = append(conds, "resource = ?")
		args = append(args, q.Resource)
	}
	if len(conds) > 0 {
		stmt += " WHERE " + strings.Join(conds, " AND ")
	}
	stmt += " LIMIT ?"
	args = append(args, q.Limit)
	if len(conds) > 0 {
		stmt += " ALLOW FILTERING"
	}

	iter := a.session.Query(stmt, args...).WithContext(ctx).Iter()
	var (
		logs   []models.AuditLog
		e      models.AuditLog
		userID int64
	)
	for iter.Scan(&e.ID, &userID, &e.UserEmail, &e.Action, &e.Resource, &e.ResourceID,
		&e.IPAddress, &e.UserAgent, &e.Success, &e.StatusCode, &e.Timestamp) {
		e.UserID = uint(userID)
		logs = append(logs, e)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	// audit_logs is keyed by id only; order client side.
	sort.Slice(logs, func(i, j int) bool { return logs[i].Timestamp.After(logs[j].Timestamp) })
	return logs, nil
}
