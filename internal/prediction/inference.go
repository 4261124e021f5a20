package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

type Classification struct {
	Label      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// Region is one detected lesion. Box is x1, y1, x2, y2 in image pixels.
type Region struct {
	Label      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	Box        [4]int  `json:"bbox"`
	Color      string  `json:"color,omitempty"`
}

type Classifier interface {
	Classify(ctx context.Context, png []byte) (*Classification, error)
}

type Segmenter interface {
	Segment(ctx context.Context, png []byte) ([]Region, error)
}

// InferenceClient talks to the model server, which exposes /classify and
// /segment and takes the image as a multipart "file" field.
type InferenceClient struct {
	baseURL string
	http    *http.Client
}

func NewInferenceClient(baseURL string, timeout time.Duration) *InferenceClient {
	return &InferenceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *InferenceClient) Classify(ctx context.Context, png []byte) (*Classification, error) {
	var out Classification
	if err := c.post(ctx, "/classify", png, &out); err != nil {
		return nil, err
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return nil, fmt.Errorf("classifier returned confidence %v outside [0,1]", out.Confidence)
	}
	return &out, nil
}

func (c *InferenceClient) Segment(ctx context.Context, png []byte) ([]Region, error) {
	var out struct {
		Detections []Region `json:"detections"`
	}
	if err := c.post(ctx, "/segment", png, &out); err != nil {
		return nil, err
	}
	return out.Detections, nil
}

func (c *InferenceClient) post(ctx context.Context, path string, png []byte, out any) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "leaf.png")
	if err != nil {
		return err
	}
	if _, err := part.Write(png); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("inference %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("inference %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("inference %s: decode: %w", path, err)
	}
	return nil
}
