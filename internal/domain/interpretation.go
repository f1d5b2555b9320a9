package domain

// MissingTextMarker reemplaza un texto de banda vacio para que el render sea determinista.
const MissingTextMarker = "[missing-text]"

type ContextText struct {
	Context string `json:"context,omitempty"`
	Text    string `json:"text"`
}

type CustomTexts struct {
	Summary          string        `json:"summary,omitempty"`
	PracticalImpact  []ContextText `json:"practical_impact"`
	ExpertSynthesis  string        `json:"expert_synthesis,omitempty"`
	ExpertHypothesis []ContextText `json:"expert_hypothesis"`
}

type FacetInterpretation struct {
	Key            string  `json:"key"`
	Name           string  `json:"name"`
	Score          float64 `json:"score"`
	Band           Band    `json:"band"`
	Interpretation string  `json:"interpretation"`
	TextMissing    bool    `json:"text_missing,omitempty"`
}

type TraitInterpretation struct {
	Key             string                `json:"key"`
	Name            string                `json:"name"`
	Score           float64               `json:"score"`
	RawScore        float64               `json:"raw_score"`
	Band            Band                  `json:"band"`
	Interpretation  string                `json:"interpretation"`
	TextMissing     bool                  `json:"text_missing,omitempty"`
	Facets          []FacetInterpretation `json:"facets"`
	CustomTexts     CustomTexts           `json:"custom_texts"`
	Recommendations []Recommendation      `json:"recommendations,omitempty"`
}

// Interpretation es la salida de BuildInterpretation. Partial indica que falto
// contenido opcional y la UI puede marcar el reporte como incompleto.
type Interpretation struct {
	AssignmentID string                `json:"assignment_id"`
	ConfigID     string                `json:"config_id"`
	Method       ScoringMethod         `json:"method"`
	Traits       []TraitInterpretation `json:"traits"`
	Partial      bool                  `json:"partial"`
	TextErrors   []string              `json:"text_errors,omitempty"`
}
