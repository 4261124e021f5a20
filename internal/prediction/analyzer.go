// Package prediction runs a leaf photo through the disease models, draws the
// detected lesions and asks for treatment advice.
package prediction

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	_ "image/jpeg"
	"log"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/history"
	"leafsense_back_end/internal/models"
)

// Recorder persists a prediction for a signed-in user.
type Recorder interface {
	Save(ctx context.Context, r history.Record) (uint, error)
}

type Analyzer struct {
	catalogue  *Catalogue
	classifier Classifier
	segmenter  Segmenter
	advisor    Advisor
	recorder   Recorder
	maxDim     uint
}

type Options struct {
	Catalogue  *Catalogue
	Classifier Classifier
	// Segmenter is optional; without it no regions are drawn.
	Segmenter Segmenter
	Advisor   Advisor
	Recorder  Recorder
	MaxDim    uint
}

func NewAnalyzer(o Options) *Analyzer {
	if o.MaxDim == 0 {
		o.MaxDim = 1024
	}
	return &Analyzer{
		catalogue:  o.Catalogue,
		classifier: o.Classifier,
		segmenter:  o.Segmenter,
		advisor:    o.Advisor,
		recorder:   o.Recorder,
		maxDim:     o.MaxDim,
	}
}

type Result struct {
	Filename            string         `json:"filename"`
	Classification      Classification `json:"classification"`
	DiseaseName         string         `json:"disease_name"`
	Segmentation        []Region       `json:"segmentation"`
	HighlightImage      string         `json:"highlight_image"`
	TreatmentSuggestion string         `json:"treatment_suggestion"`
	PredictionID        *uint          `json:"prediction_id"`
	Saved               bool           `json:"saved"`
	UserAuthenticated   bool           `json:"user_authenticated"`
}

// Analyze classifies data, which must be a PNG or JPEG. A nil user gets the
// analysis without it being recorded.
func (a *Analyzer) Analyze(ctx context.Context, filename string, data []byte, user *models.User) (*Result, error) {
	img, normalized, err := Normalize(data, a.maxDim)
	if err != nil {
		return nil, apperr.New(apperr.ErrValidation, "file is not a readable image")
	}

	cls, err := a.classifier.Classify(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: classify: %v", apperr.ErrDependency, err)
	}
	label := a.catalogue.Normalize(cls.Label)

	var regions []Region
	if a.segmenter != nil {
		regions, err = a.segmenter.Segment(ctx, normalized)
		if err != nil {
			return nil, fmt.Errorf("%w: segment: %v", apperr.ErrDependency, err)
		}
	}
	for i := range regions {
		regions[i].Label = a.catalogue.Normalize(regions[i].Label)
		c := a.catalogue.Lookup(regions[i].Label).Color
		regions[i].Color = fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
	}
	if regions == nil {
		regions = []Region{}
	}

	annotated, err := encodePNG(Annotate(img, regions, a.catalogue))
	if err != nil {
		return nil, fmt.Errorf("encode highlight: %w", err)
	}

	res := &Result{
		Filename:            filename,
		Classification:      Classification{Label: label, Confidence: cls.Confidence},
		DiseaseName:         a.catalogue.Lookup(label).Name,
		Segmentation:        regions,
		HighlightImage:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(annotated),
		TreatmentSuggestion: a.advice(ctx, label, cls.Confidence),
		UserAuthenticated:   user != nil,
	}

	if user != nil && a.recorder != nil {
		id, err := a.recorder.Save(ctx, history.Record{
			UserID:     user.ID,
			Original:   normalized,
			Annotated:  annotated,
			Label:      label,
			Confidence: cls.Confidence,
			Advice:     res.TreatmentSuggestion,
		})
		switch {
		case err == nil:
			res.PredictionID = &id
			res.Saved = true
		case errors.Is(err, apperr.ErrStorage):
			log.Printf("⚠️ Prediction for user %d not saved, storage unavailable: %v", user.ID, err)
		default:
			log.Printf("❌ Prediction for user %d not saved: %v", user.ID, err)
		}
	}
	return res, nil
}

func (a *Analyzer) advice(ctx context.Context, label string, confidence float64) string {
	if canned, ok := a.catalogue.CannedAdvice(label); ok {
		return canned
	}
	if a.advisor == nil {
		return a.catalogue.FallbackAdvice
	}
	text, err := a.advisor.Advise(ctx, a.catalogue.Lookup(label).Name, confidence)
	if err != nil || text == "" {
		log.Printf("⚠️ Advisor unavailable for %s: %v", label, err)
		return a.catalogue.FallbackAdvice
	}
	return text
}
