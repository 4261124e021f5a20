package models

import (
	"time"

	"github.com/gocql/gocql"
)

// AuditLog is one admin action, stored in the audit_logs Scylla table.
type AuditLog struct {
	ID         gocql.UUID `json:"id"`
	UserID     uint       `json:"user_id"`
	UserEmail  string     `json:"user_email"`
	Action     string     `json:"action"`
	Resource   string     `json:"resource"`
	ResourceID string     `json:"resource_id,omitempty"`
	IPAddress  string     `json:"ip_address"`
	UserAgent  string     `json:"user_agent"`
	Success    bool       `json:"success"`
	StatusCode int        `json:"status_code"`
	Timestamp  time.Time  `json:"timestamp"`
}
