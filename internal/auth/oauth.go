// Package auth configures the OAuth providers used for social sign-in.
package auth

import (
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"

	"leafsense_back_end/internal/config"
)

// GoogleEnabled is set once InitProviders registered the Google provider.
var GoogleEnabled bool

func InitProviders(cfg *config.Config) {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = store

	gothic.GetProviderName = func(req *http.Request) (string, error) {
		if provider := req.URL.Query().Get("provider"); provider != "" {
			return provider, nil
		}
		return "", errors.New("provider not found")
	}

	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		log.Println("⚠️ Google OAuth not configured")
		return
	}
	goth.UseProviders(google.New(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		cfg.BackendURL+"/api/auth/google/callback",
		"email", "profile",
	))
	GoogleEnabled = true
	log.Println("✅ Google OAuth enabled")
}
