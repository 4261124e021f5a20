package prediction

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"leafsense_back_end/internal/apperr"
	"leafsense_back_end/internal/history"
	"leafsense_back_end/internal/models"
)

type fakeClassifier struct {
	cls *Classification
	err error
}

func (f fakeClassifier) Classify(context.Context, []byte) (*Classification, error) {
	return f.cls, f.err
}

type fakeSegmenter []Region

func (f fakeSegmenter) Segment(context.Context, []byte) ([]Region, error) { return f, nil }

type fakeAdvisor struct {
	text  string
	err   error
	calls int
}

func (f *fakeAdvisor) Advise(context.Context, string, float64) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeRecorder struct {
	err   error
	saved []history.Record
}

func (f *fakeRecorder) Save(_ context.Context, r history.Record) (uint, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.saved = append(f.saved, r)
	return uint(len(f.saved)), nil
}

func leafPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{G: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func newTestAnalyzer(t *testing.T, cls Classifier, adv Advisor, rec Recorder) *Analyzer {
	t.Helper()
	cat, err := LoadCatalogue()
	if err != nil {
		t.Fatal(err)
	}
	return NewAnalyzer(Options{
		Catalogue:  cat,
		Classifier: cls,
		Segmenter:  fakeSegmenter{{Label: "rust", Confidence: 0.8, Box: [4]int{5, 5, 30, 30}}},
		Advisor:    adv,
		Recorder:   rec,
		MaxDim:     64,
	})
}

func TestAnalyzeSignedInUserIsRecorded(t *testing.T) {
	adv := &fakeAdvisor{text: "Spray a copper fungicide."}
	rec := &fakeRecorder{}
	a := newTestAnalyzer(t, fakeClassifier{cls: &Classification{Label: "Rust", Confidence: 0.92}}, adv, rec)

	res, err := a.Analyze(context.Background(), "leaf.png", leafPNG(t, 128, 96), &models.User{ID: 7})
	if err != nil {
		t.Fatalf("Analyze() = %v", err)
	}
	if res.Classification.Label != "rust" || !res.Saved || res.PredictionID == nil {
		t.Errorf("result = %+v", res)
	}
	if res.TreatmentSuggestion != "Spray a copper fungicide." {
		t.Errorf("advice = %q", res.TreatmentSuggestion)
	}
	if !strings.HasPrefix(res.HighlightImage, "data:image/png;base64,") {
		t.Error("highlight image should be a PNG data URI")
	}
	if len(rec.saved) != 1 || rec.saved[0].UserID != 7 {
		t.Fatalf("saved = %+v", rec.saved)
	}

	img, err := png.Decode(bytes.NewReader(rec.saved[0].Original))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() > 64 || b.Dy() > 64 {
		t.Errorf("stored image %v was not downscaled", b)
	}
}

func TestAnalyzeUnsupportedLabelBecomesUnknown(t *testing.T) {
	adv := &fakeAdvisor{text: "should not be asked"}
	a := newTestAnalyzer(t, fakeClassifier{cls: &Classification{Label: "cercospora", Confidence: 0.7}}, adv, nil)

	res, err := a.Analyze(context.Background(), "leaf.png", leafPNG(t, 32, 32), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Classification.Label != UnknownLabel {
		t.Errorf("label = %q, want unknown", res.Classification.Label)
	}
	if adv.calls != 0 {
		t.Error("advisor should not be asked about unknown leaves")
	}
	if res.Saved || res.UserAuthenticated || res.PredictionID != nil {
		t.Errorf("anonymous result should not be saved: %+v", res)
	}
}

func TestAnalyzeAdvisorFailureFallsBack(t *testing.T) {
	adv := &fakeAdvisor{err: errors.New("quota exceeded")}
	a := newTestAnalyzer(t, fakeClassifier{cls: &Classification{Label: "phoma", Confidence: 0.6}}, adv, nil)

	res, err := a.Analyze(context.Background(), "leaf.png", leafPNG(t, 32, 32), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.TreatmentSuggestion != a.catalogue.FallbackAdvice {
		t.Errorf("advice = %q, want fallback", res.TreatmentSuggestion)
	}
}

func TestAnalyzeStorageFailureDegrades(t *testing.T) {
	rec := &fakeRecorder{err: apperr.ErrStorage}
	a := newTestAnalyzer(t, fakeClassifier{cls: &Classification{Label: "nodisease", Confidence: 0.99}}, &fakeAdvisor{}, rec)

	res, err := a.Analyze(context.Background(), "leaf.png", leafPNG(t, 32, 32), &models.User{ID: 1})
	if err != nil {
		t.Fatalf("storage failure should not fail the request: %v", err)
	}
	if res.Saved || !res.UserAuthenticated {
		t.Errorf("result = %+v", res)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	a := newTestAnalyzer(t, fakeClassifier{err: errors.New("model down")}, &fakeAdvisor{}, nil)

	if _, err := a.Analyze(context.Background(), "x.txt", []byte("not an image"), nil); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad image err = %v", err)
	}
	if _, err := a.Analyze(context.Background(), "leaf.png", leafPNG(t, 16, 16), nil); !errors.Is(err, apperr.ErrDependency) {
		t.Errorf("classifier failure err = %v", err)
	}
}

func TestAnnotateDrawsRegionColour(t *testing.T) {
	cat, _ := LoadCatalogue()
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	out := Annotate(img, []Region{{Label: "phoma", Box: [4]int{10, 10, 30, 30}}}, cat)

	if got := out.RGBAAt(10, 10); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("corner pixel = %v, want red", got)
	}
	if got := out.RGBAAt(20, 20); got != (color.RGBA{}) {
		t.Errorf("box interior should be untouched, got %v", got)
	}
	if got := img.RGBAAt(10, 10); got != (color.RGBA{}) {
		t.Error("Annotate modified its input")
	}
}

func TestCatalogue(t *testing.T) {
	cat, err := LoadCatalogue()
	if err != nil {
		t.Fatal(err)
	}
	for _, l := range []string{"nodisease", "rust", "phoma", "miner"} {
		if cat.Normalize(strings.ToUpper(l)) != l {
			t.Errorf("Normalize(%q) lost a supported label", l)
		}
	}
	if _, ok := cat.CannedAdvice("rust"); ok {
		t.Error("rust advice should come from the advisor")
	}
	if _, ok := cat.CannedAdvice(UnknownLabel); !ok {
		t.Error("unknown leaves need canned advice")
	}
}
