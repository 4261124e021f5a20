package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("JWT_EXPIRE_MINUTES", "")
	t.Setenv("FRONTEND_URL", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.JWTExpiry != 30*time.Minute {
		t.Errorf("JWTExpiry = %v", cfg.JWTExpiry)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != "http://localhost:5173" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SCYLLA_HOSTS", "10.0.0.1, 10.0.0.2 ,")
	t.Setenv("SMTP_PORT", "not-a-port")
	t.Setenv("MAX_UPLOAD_MB", "2")

	cfg := Load()
	if len(cfg.ScyllaHosts) != 2 || cfg.ScyllaHosts[1] != "10.0.0.2" {
		t.Errorf("ScyllaHosts = %v", cfg.ScyllaHosts)
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("SMTPPort = %d, want fallback 587", cfg.SMTPPort)
	}
	if cfg.MaxUploadBytes != 2<<20 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
}
