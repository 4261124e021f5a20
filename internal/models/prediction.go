package models

import "time"

// NoDiseaseLabel is the classifier label for a healthy leaf.
const NoDiseaseLabel = "nodisease"

type DiseasePrediction struct {
	ID                      uint      `gorm:"primaryKey" json:"id"`
	UserID                  uint      `gorm:"not null;index" json:"user_id"`
	User                    User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ImageURL                string    `gorm:"size:500;not null" json:"image_url"`
	HighlightImageURL       string    `gorm:"size:500" json:"highlight_image_url"`
	DiseaseType             string    `gorm:"size:100;not null;index" json:"disease_type"`
	Confidence              float64   `gorm:"not null" json:"confidence"`
	TreatmentRecommendation string    `gorm:"type:text" json:"treatment_recommendation"`
	CreatedAt               time.Time `gorm:"index" json:"created_at"`
}
