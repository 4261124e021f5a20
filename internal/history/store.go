// Package history persists analysed leaf images and serves a user's past
// predictions.
package history

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/models"
)

const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// BlobStore keeps image bytes and hands back a public URL.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Remove(ctx context.Context, url string) error
}

type Store struct {
	db    *gorm.DB
	blobs BlobStore
}

func NewStore(db *gorm.DB, blobs BlobStore) *Store {
	return &Store{db: db, blobs: blobs}
}

type Record struct {
	UserID     uint
	Original   []byte
	Annotated  []byte
	Label      string
	Confidence float64
	Advice     string
}

// Save uploads both images and stores the prediction. When an upload fails
// nothing is written and the error wraps apperr.ErrStorage.
func (s *Store) Save(ctx context.Context, r Record) (uint, error) {
	if r.Confidence < 0 || r.Confidence > 1 {
		return 0, apperr.New(apperr.ErrValidation, "confidence must be between 0 and 1")
	}
	if s.blobs == nil {
		return 0, fmt.Errorf("%w: no blob store configured", apperr.ErrStorage)
	}

	id := uuid.NewString()
	originalURL, err := s.blobs.Put(ctx, fmt.Sprintf("predictions/%d/%s.png", r.UserID, id), r.Original, "image/png")
	if err != nil {
		return 0, fmt.Errorf("%w: upload original: %v", apperr.ErrStorage, err)
	}
	highlightURL, err := s.blobs.Put(ctx, fmt.Sprintf("predictions/%d/%s_highlight.png", r.UserID, id), r.Annotated, "image/png")
	if err != nil {
		s.discard(ctx, originalURL)
		return 0, fmt.Errorf("%w: upload highlight: %v", apperr.ErrStorage, err)
	}

	p := models.DiseasePrediction{
		UserID:                  r.UserID,
		ImageURL:                originalURL,
		HighlightImageURL:       highlightURL,
		DiseaseType:             r.Label,
		Confidence:              r.Confidence,
		TreatmentRecommendation: r.Advice,
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		s.discard(ctx, originalURL, highlightURL)
		return 0, fmt.Errorf("save prediction: %w", err)
	}
	return p.ID, nil
}

func (s *Store) discard(ctx context.Context, urls ...string) {
	for _, u := range urls {
		if err := s.blobs.Remove(ctx, u); err != nil {
			log.Printf("⚠️ Could not remove orphaned blob %s: %v", u, err)
		}
	}
}

// Severity buckets a prediction. A healthy leaf is always Low.
func Severity(label string, confidence float64) string {
	if strings.EqualFold(label, models.NoDiseaseLabel) {
		return "Low"
	}
	switch {
	case confidence >= 0.80:
		return "High"
	case confidence >= 0.60:
		return "Medium"
	default:
		return "Low"
	}
}

type Summary struct {
	ID                      uint      `json:"id"`
	Image                   string    `json:"image"`
	HighlightImage          string    `json:"highlight_image"`
	Disease                 string    `json:"disease"`
	Confidence              float64   `json:"confidence"`
	Severity                string    `json:"severity"`
	Date                    string    `json:"date"`
	Time                    string    `json:"time"`
	Month                   string    `json:"month"`
	TreatmentRecommendation string    `json:"treatment_recommendation"`
	CreatedAt               time.Time `json:"created_at"`
}

func summarize(p models.DiseasePrediction) Summary {
	return Summary{
		ID:                      p.ID,
		Image:                   p.ImageURL,
		HighlightImage:          p.HighlightImageURL,
		Disease:                 p.DiseaseType,
		Confidence:              math.Round(p.Confidence*1000) / 10,
		Severity:                Severity(p.DiseaseType, p.Confidence),
		Date:                    p.CreatedAt.Format("02/01/2006"),
		Time:                    p.CreatedAt.Format("15:04"),
		Month:                   p.CreatedAt.Format("January 2006"),
		TreatmentRecommendation: p.TreatmentRecommendation,
		CreatedAt:               p.CreatedAt,
	}
}

type Page struct {
	Items   []Summary `json:"history"`
	Total   int64     `json:"total"`
	Limit   int       `json:"limit"`
	Offset  int       `json:"offset"`
	HasMore bool      `json:"has_more"`
}

type Query struct {
	Limit   int
	Offset  int
	Disease string
}

func (s *Store) List(ctx context.Context, userID uint, q Query) (*Page, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.DiseasePrediction{}).Where("user_id = ?", userID)
	if f := strings.TrimSpace(q.Disease); f != "" && !strings.EqualFold(f, "all") {
		tx = tx.Where("LOWER(disease_type) LIKE ?", "%"+strings.ToLower(f)+"%")
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}
	var rows []models.DiseasePrediction
	err := tx.Order("created_at DESC, id DESC").Offset(q.Offset).Limit(q.Limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	items := make([]Summary, 0, len(rows))
	for _, r := range rows {
		items = append(items, summarize(r))
	}
	return &Page{
		Items:   items,
		Total:   total,
		Limit:   q.Limit,
		Offset:  q.Offset,
		HasMore: total > int64(q.Offset+len(items)),
	}, nil
}

// Get returns the prediction only when userID owns it.
func (s *Store) Get(ctx context.Context, id, userID uint) (*models.DiseasePrediction, error) {
	var p models.DiseasePrediction
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrNotFound, "prediction not found")
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) Delete(ctx context.Context, id, userID uint) error {
	p, err := s.Get(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(p).Error; err != nil {
		return fmt.Errorf("delete prediction %d: %w", id, err)
	}
	if s.blobs != nil {
		s.discard(ctx, p.ImageURL, p.HighlightImageURL)
	}
	return nil
}

// Stats summarises a user's history for the dashboard card.
type Stats struct {
	Total     int64            `json:"total"`
	ByDisease map[string]int64 `json:"by_disease"`
}

func (s *Store) Stats(ctx context.Context, userID uint) (*Stats, error) {
	var rows []struct {
		DiseaseType string
		N           int64
	}
	err := s.db.WithContext(ctx).Model(&models.DiseasePrediction{}).
		Select("disease_type, COUNT(*) AS n").
		Where("user_id = ?", userID).
		Group("disease_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	st := &Stats{ByDisease: make(map[string]int64, len(rows))}
	for _, r := range rows {
		st.ByDisease[r.DiseaseType] = r.N
		st.Total += r.N
	}
	return st, nil
}
