package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Advisor interface {
	Advise(ctx context.Context, disease string, confidence float64) (string, error)
}

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// GeminiAdvisor asks Google's Gemini API for a short treatment plan.
type GeminiAdvisor struct {
	apiKey   string
	model    string
	endpoint string
	http     *http.Client
}

func NewGeminiAdvisor(apiKey, model string, timeout time.Duration) *GeminiAdvisor {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiAdvisor{
		apiKey:   apiKey,
		model:    model,
		endpoint: fmt.Sprintf(geminiEndpoint, model),
		http:     &http.Client{Timeout: timeout},
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiAdvisor) Advise(ctx context.Context, disease string, confidence float64) (string, error) {
	if g.apiKey == "" {
		return "", errors.New("gemini api key not configured")
	}

	prompt := fmt.Sprintf(
		"A coffee leaf was diagnosed with %s (confidence %.0f%%). "+
			"Give a farmer a short, practical treatment plan: immediate actions, "+
			"recommended products and how to prevent it from spreading.",
		disease, confidence*100)
	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("gemini: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("gemini: decode: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: empty answer")
	}
	return strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text), nil
}
