package domain

import (
	"fmt"
	"strings"
	"time"
)

// Band es el nivel ordinal en el que cae un score normalizado.
type Band string

const (
	BandVeryLow  Band = "VERY_LOW"
	BandLow      Band = "LOW"
	BandAverage  Band = "AVERAGE"
	BandHigh     Band = "HIGH"
	BandVeryHigh Band = "VERY_HIGH"
)

// Bands devuelve las cinco bandas en orden ascendente.
func Bands() []Band {
	return []Band{BandVeryLow, BandLow, BandAverage, BandHigh, BandVeryHigh}
}

func (b Band) Valid() bool {
	switch b {
	case BandVeryLow, BandLow, BandAverage, BandHigh, BandVeryHigh:
		return true
	}
	return false
}

// Thresholds particiona el rango 0-100 en cinco bandas con limites superiores inclusivos.
type Thresholds struct {
	VeryLowMax int `json:"very_low_max" yaml:"very_low_max"`
	LowMax     int `json:"low_max" yaml:"low_max"`
	AverageMax int `json:"average_max" yaml:"average_max"`
	HighMax    int `json:"high_max" yaml:"high_max"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{VeryLowMax: 20, LowMax: 40, AverageMax: 60, HighMax: 80}
}

// Validate exige 0 <= veryLowMax < lowMax < averageMax < highMax <= 99.
func (t Thresholds) Validate() error {
	if t.VeryLowMax < 0 || t.HighMax > 99 {
		return fmt.Errorf("%w: bounds must lie in 0..99 (got %d..%d)", ErrInvalidThresholds, t.VeryLowMax, t.HighMax)
	}
	if !(t.VeryLowMax < t.LowMax && t.LowMax < t.AverageMax && t.AverageMax < t.HighMax) {
		return fmt.Errorf("%w: must be strictly ascending (got %d/%d/%d/%d)",
			ErrInvalidThresholds, t.VeryLowMax, t.LowMax, t.AverageMax, t.HighMax)
	}
	return nil
}

// VeryHighMin es implicito: highMax+1.
func (t Thresholds) VeryHighMin() int {
	return t.HighMax + 1
}

// Scale describe la escala Likert de las respuestas.
type Scale struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

func DefaultScale() Scale {
	return Scale{Min: 1, Max: 5}
}

func (s Scale) Validate() error {
	if s.Max <= s.Min {
		return fmt.Errorf("%w: scale max %d must exceed min %d", ErrInvalidScale, s.Max, s.Min)
	}
	return nil
}

func (s Scale) Contains(v int) bool {
	return v >= s.Min && v <= s.Max
}

// Reverse invierte un valor dentro de la escala (1->5, 2->4 en 1-5).
func (s Scale) Reverse(v int) int {
	return s.Min + s.Max - v
}

// Normalize lleva un raw score de la escala a 0-100.
func (s Scale) Normalize(raw float64) float64 {
	return (raw - float64(s.Min)) / float64(s.Max-s.Min) * 100
}

// ScoringMethod identifica la formula de agregacion de un rasgo.
type ScoringMethod string

const (
	// MethodWeightedMean promedia ponderadamente las respuestas del rasgo.
	MethodWeightedMean ScoringMethod = "WEIGHTED_MEAN"
	// MethodFacetMean promedia los scores de las facetas del rasgo.
	MethodFacetMean ScoringMethod = "FACET_MEAN"
)

func (m ScoringMethod) Valid() bool {
	return m == MethodWeightedMean || m == MethodFacetMean
}

// BandTexts guarda un texto por banda.
type BandTexts struct {
	VeryLow  string `json:"very_low" yaml:"very_low"`
	Low      string `json:"low" yaml:"low"`
	Average  string `json:"average" yaml:"average"`
	High     string `json:"high" yaml:"high"`
	VeryHigh string `json:"very_high" yaml:"very_high"`
}

func (t BandTexts) For(b Band) string {
	switch b {
	case BandVeryLow:
		return t.VeryLow
	case BandLow:
		return t.Low
	case BandAverage:
		return t.Average
	case BandHigh:
		return t.High
	case BandVeryHigh:
		return t.VeryHigh
	}
	return ""
}

type TraitConfig struct {
	ID          string        `json:"id"`
	ConfigID    string        `json:"config_id"`
	Key         string        `json:"key"`
	Name        string        `json:"name"`
	Weight      float64       `json:"weight"`
	IsActive    bool          `json:"is_active"`
	Description string        `json:"description,omitempty"`
	Texts       BandTexts     `json:"texts"`
	Facets      []FacetConfig `json:"facets"`
}

type FacetConfig struct {
	ID          string    `json:"id"`
	TraitID     string    `json:"trait_id"`
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Weight      float64   `json:"weight"`
	IsActive    bool      `json:"is_active"`
	Description string    `json:"description,omitempty"`
	Texts       BandTexts `json:"texts"`
}

// TextCategory clasifica los textos interpretativos opcionales.
type TextCategory string

const (
	TextSummary          TextCategory = "SUMMARY"
	TextPracticalImpact  TextCategory = "PRACTICAL_IMPACT"
	TextExpertSynthesis  TextCategory = "EXPERT_SYNTHESIS"
	TextExpertHypothesis TextCategory = "EXPERT_HYPOTHESIS"
)

func (c TextCategory) Valid() bool {
	for _, known := range TextCategories() {
		if c == known {
			return true
		}
	}
	return false
}

func TextCategories() []TextCategory {
	return []TextCategory{TextSummary, TextPracticalImpact, TextExpertSynthesis, TextExpertHypothesis}
}

type InterpretiveText struct {
	ID       string       `json:"id"`
	ConfigID string       `json:"config_id"`
	TraitKey string       `json:"trait_key"`
	Band     Band         `json:"band"`
	Category TextCategory `json:"category"`
	Context  string       `json:"context,omitempty"`
	Text     string       `json:"text"`
}

type Recommendation struct {
	ID       string `json:"id"`
	ConfigID string `json:"config_id"`
	TraitKey string `json:"trait_key"`
	Band     Band   `json:"band"`
	Title    string `json:"title,omitempty"`
	Text     string `json:"text"`
	Order    int    `json:"order"`
}

// ScoringConfiguration es el agregado de configuracion de un tenant.
type ScoringConfiguration struct {
	ID              string             `json:"id"`
	TenantID        string             `json:"tenant_id"`
	Name            string             `json:"name"`
	IsActive        bool               `json:"is_active"`
	Thresholds      Thresholds         `json:"thresholds"`
	Scale           Scale              `json:"scale"`
	Method          ScoringMethod      `json:"method"`
	Traits          []TraitConfig      `json:"traits"`
	Texts           []InterpretiveText `json:"texts,omitempty"`
	Recommendations []Recommendation   `json:"recommendations,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Validate revisa las invariantes que deben cumplirse antes de persistir.
func (c ScoringConfiguration) Validate() error {
	if strings.TrimSpace(c.TenantID) == "" {
		return fmt.Errorf("%w: tenant id is required", ErrInvalidInput)
	}
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if err := c.Scale.Validate(); err != nil {
		return err
	}
	if !c.Method.Valid() {
		return fmt.Errorf("%w: unknown scoring method %q", ErrInvalidInput, c.Method)
	}
	seen := make(map[string]struct{}, len(c.Traits))
	for _, t := range c.Traits {
		key := strings.TrimSpace(t.Key)
		if key == "" {
			return fmt.Errorf("%w: trait key is required", ErrInvalidInput)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicated trait key %s", ErrInvalidInput, key)
		}
		seen[key] = struct{}{}
		if !validWeight(t.Weight) {
			return fmt.Errorf("%w: trait %s weight %v", ErrMalformedWeight, key, t.Weight)
		}
		for _, f := range t.Facets {
			if !validWeight(f.Weight) {
				return fmt.Errorf("%w: facet %s weight %v", ErrMalformedWeight, f.Key, f.Weight)
			}
		}
	}
	return nil
}

// ActiveTraits devuelve los rasgos activos en el orden configurado.
func (c ScoringConfiguration) ActiveTraits() []TraitConfig {
	out := make([]TraitConfig, 0, len(c.Traits))
	for _, t := range c.Traits {
		if t.IsActive {
			out = append(out, t)
		}
	}
	return out
}

func (c ScoringConfiguration) TraitByKey(key string) (TraitConfig, bool) {
	for _, t := range c.Traits {
		if t.Key == key {
			return t, true
		}
	}
	return TraitConfig{}, false
}
