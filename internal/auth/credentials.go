package auth

import (
	"context"
	"errors"
	"log"
	"strings"

	"gorm.io/gorm"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/models"
	"leafsense_back_end/internal/utils"
)

var ErrBadCredentials = apperr.New(apperr.ErrUnauthorized, "incorrect email or password")

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate checks an email and password pair. Accounts without a
// password (Google sign-in) never match. A locked account is reported only
// after the password checked out.
func Authenticate(ctx context.Context, db *gorm.DB, email, password string) (*models.User, error) {
	var u models.User
	err := db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&u).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err != nil || !u.HasPassword() {
		return nil, ErrBadCredentials
	}
	ok, err := utils.VerifyPassword(password, *u.Password)
	if err != nil || !ok {
		return nil, ErrBadCredentials
	}
	if !u.IsActive() {
		return nil, apperr.New(apperr.ErrForbidden, "account locked")
	}

	// Legacy bcrypt hashes are upgraded on the first successful login.
	if utils.IsBcryptHash(*u.Password) {
		if hash, err := utils.HashPassword(password); err == nil {
			if err := db.WithContext(ctx).Model(&u).Update("password", hash).Error; err != nil {
				log.Printf("⚠️ Rehash password for %s: %v", u.Email, err)
			} else {
				u.Password = &hash
			}
		}
	}
	return &u, nil
}
