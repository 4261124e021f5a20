package prediction

import (
	_ "embed"
	"fmt"
	"image/color"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnknownLabel replaces any classifier label outside the catalogue.
const UnknownLabel = "unknown"

//go:embed diseases.yaml
var diseasesYAML []byte

type Disease struct {
	Label  string   `yaml:"label"`
	Name   string   `yaml:"name"`
	Color  [3]uint8 `yaml:"color"`
	Advice string   `yaml:"advice"`
}

func (d Disease) RGBA() color.RGBA {
	return color.RGBA{R: d.Color[0], G: d.Color[1], B: d.Color[2], A: 255}
}

type Catalogue struct {
	Unknown struct {
		Color  [3]uint8 `yaml:"color"`
		Advice string   `yaml:"advice"`
	} `yaml:"unknown"`
	FallbackAdvice string    `yaml:"fallback_advice"`
	Diseases       []Disease `yaml:"diseases"`

	byLabel map[string]Disease
}

func LoadCatalogue() (*Catalogue, error) {
	return ParseCatalogue(diseasesYAML)
}

func ParseCatalogue(data []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse disease catalogue: %w", err)
	}
	if len(c.Diseases) == 0 {
		return nil, fmt.Errorf("disease catalogue is empty")
	}
	c.byLabel = make(map[string]Disease, len(c.Diseases))
	for _, d := range c.Diseases {
		c.byLabel[strings.ToLower(d.Label)] = d
	}
	return &c, nil
}

// Normalize maps a raw classifier label onto the catalogue.
func (c *Catalogue) Normalize(label string) string {
	l := strings.ToLower(strings.TrimSpace(label))
	if _, ok := c.byLabel[l]; ok {
		return l
	}
	return UnknownLabel
}

func (c *Catalogue) Lookup(label string) Disease {
	if d, ok := c.byLabel[strings.ToLower(label)]; ok {
		return d
	}
	return Disease{Label: UnknownLabel, Name: "Unknown", Color: c.Unknown.Color, Advice: c.Unknown.Advice}
}

// CannedAdvice returns fixed advice for labels that never go to the advisor.
func (c *Catalogue) CannedAdvice(label string) (string, bool) {
	d := c.Lookup(label)
	if d.Advice == "" {
		return "", false
	}
	return d.Advice, true
}

func (c *Catalogue) Labels() []string {
	out := make([]string, 0, len(c.Diseases))
	for _, d := range c.Diseases {
		out = append(out, d.Label)
	}
	return out
}
