package models

import "time"

type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:255;not null;index" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Price       float64   `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock       int       `gorm:"not null" json:"stock"`
	Image       string    `gorm:"size:500" json:"image,omitempty"`
	CategoryID  *uint     `gorm:"index" json:"category_id"`
	Category    *Category `gorm:"constraint:OnDelete:RESTRICT" json:"category,omitempty"`
	// DiseaseType ties a treatment product to the disease it is recommended for.
	DiseaseType string    `gorm:"size:100;index" json:"disease_type,omitempty"`
	Usage       string    `gorm:"type:text" json:"usage,omitempty"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
