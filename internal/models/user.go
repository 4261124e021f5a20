package models

import "time"

type Role string

const (
	RoleFarmer Role = "farmer"
	RoleAdmin  Role = "admin"
)

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

type User struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Name       string     `gorm:"size:255;not null" json:"name"`
	Email      string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password   *string    `gorm:"size:255" json:"-"`
	Avatar     string     `gorm:"size:500" json:"avatar,omitempty"`
	Phone      string     `gorm:"size:20" json:"phone,omitempty"`
	Address    string     `gorm:"type:text" json:"address,omitempty"`
	Role       Role       `gorm:"type:varchar(20);not null" json:"role"`
	Status     UserStatus `gorm:"type:varchar(20);not null" json:"status"`
	Provider   string     `gorm:"size:20;not null" json:"provider"`
	ProviderID string     `gorm:"size:255" json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (u *User) IsAdmin() bool  { return u.Role == RoleAdmin }
func (u *User) IsActive() bool { return u.Status == UserActive }

// HasPassword is false for accounts created through an OAuth provider.
func (u *User) HasPassword() bool { return u.Password != nil && *u.Password != "" }

type PasswordResetToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Token     string    `gorm:"size:255;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"not null" json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *PasswordResetToken) Usable(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
