package domain

import "time"

type FacetScore struct {
	Key             string  `json:"key"`
	Name            string  `json:"name"`
	RawScore        float64 `json:"raw_score"`
	NormalizedScore float64 `json:"normalized_score"`
	Band            Band    `json:"band"`
}

type TraitScore struct {
	Key             string       `json:"key"`
	Name            string       `json:"name"`
	RawScore        float64      `json:"raw_score"`
	NormalizedScore float64      `json:"normalized_score"`
	Band            Band         `json:"band"`
	Facets          []FacetScore `json:"facets,omitempty"`
}

// TraitScores indexa por trait key.
type TraitScores map[string]TraitScore

// Normalized devuelve solo el score 0-100 por rasgo.
func (s TraitScores) Normalized() map[string]float64 {
	out := make(map[string]float64, len(s))
	for k, v := range s {
		out[k] = v.NormalizedScore
	}
	return out
}

// ScoredResult es el resultado persistido de un assignment (uno por assignment).
type ScoredResult struct {
	ID           string        `json:"id"`
	AssignmentID string        `json:"assignment_id"`
	ConfigID     string        `json:"config_id"`
	Method       ScoringMethod `json:"method"`
	Scores       TraitScores   `json:"scores"`
	CreatedAt    time.Time     `json:"created_at"`
}
