package service

import (
	"fmt"
	"math"

	"bigfive-core/internal/domain"
)

// ClassifyLevel asigna la banda con limites superiores inclusivos.
func ClassifyLevel(score float64, t domain.Thresholds) domain.Band {
	switch {
	case score <= float64(t.VeryLowMax):
		return domain.BandVeryLow
	case score <= float64(t.LowMax):
		return domain.BandLow
	case score <= float64(t.AverageMax):
		return domain.BandAverage
	case score <= float64(t.HighMax):
		return domain.BandHigh
	default:
		return domain.BandVeryHigh
	}
}

// Aggregate agrupa las respuestas por rasgo y faceta y calcula los scores.
//
// MethodWeightedMean: el rasgo es la media ponderada (peso de la pregunta) de sus
// respuestas ajustadas. MethodFacetMean: el rasgo es la media ponderada (peso de la
// faceta) de sus facetas; sin facetas puntuadas cae a la media de respuestas.
// Rasgos y facetas sin respuestas se omiten.
func Aggregate(cfg domain.ScoringConfiguration, responses []domain.ScoredResponse, method domain.ScoringMethod) (domain.TraitScores, error) {
	return aggregateWith(defaultKeyResolver, cfg, responses, method)
}

func aggregateWith(resolver *TraitKeyResolver, cfg domain.ScoringConfiguration, responses []domain.ScoredResponse, method domain.ScoringMethod) (domain.TraitScores, error) {
	if method == "" {
		method = domain.MethodWeightedMean
	}
	if !method.Valid() {
		return nil, fmt.Errorf("%w: unknown scoring method %q", domain.ErrInvalidInput, method)
	}
	if err := cfg.Scale.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}

	traits := cfg.ActiveTraits()
	groups := make([][]domain.ScoredResponse, len(traits))
	mapped := 0
	for _, r := range responses {
		for i, t := range traits {
			if !resolver.MatchTrait(r.Question.TraitKey, t) {
				continue
			}
			if !cfg.Scale.Contains(r.Response.Value) {
				return nil, fmt.Errorf("%w: question %s value %d outside %d..%d",
					domain.ErrResponseOutOfScale, r.Question.ID, r.Response.Value, cfg.Scale.Min, cfg.Scale.Max)
			}
			if !domain.ValidWeight(r.Question.Weight) {
				return nil, fmt.Errorf("%w: question %s weight %v", domain.ErrMalformedWeight, r.Question.ID, r.Question.Weight)
			}
			groups[i] = append(groups[i], r)
			mapped++
			break
		}
	}
	if mapped == 0 {
		return nil, fmt.Errorf("%w (%d responses, %d active traits)", domain.ErrEmptyResult, len(responses), len(traits))
	}

	scores := make(domain.TraitScores, len(traits))
	for i, t := range traits {
		if len(groups[i]) == 0 {
			continue
		}
		score, err := scoreTrait(resolver, cfg, t, groups[i], method)
		if err != nil {
			return nil, err
		}
		scores[t.Key] = score
	}
	return scores, nil
}

func scoreTrait(resolver *TraitKeyResolver, cfg domain.ScoringConfiguration, t domain.TraitConfig, group []domain.ScoredResponse, method domain.ScoringMethod) (domain.TraitScore, error) {
	var (
		facets  []domain.FacetScore
		rawSum  float64
		normSum float64
	)
	for _, f := range t.Facets {
		if !f.IsActive {
			continue
		}
		var subset []domain.ScoredResponse
		for _, r := range group {
			if resolver.MatchFacet(r.Question.FacetKey, f) {
				subset = append(subset, r)
			}
		}
		if len(subset) == 0 {
			continue
		}
		if !domain.ValidWeight(f.Weight) {
			return domain.TraitScore{}, fmt.Errorf("%w: facet %s weight %v", domain.ErrMalformedWeight, f.Key, f.Weight)
		}
		raw := weightedMean(cfg.Scale, subset)
		normalized := math.Round(cfg.Scale.Normalize(raw))
		facets = append(facets, domain.FacetScore{
			Key:             f.Key,
			Name:            f.Name,
			RawScore:        round2(raw),
			NormalizedScore: normalized,
			Band:            ClassifyLevel(normalized, cfg.Thresholds),
		})
		rawSum += raw
		normSum += normalized
	}

	raw := weightedMean(cfg.Scale, group)
	normalized := round1(cfg.Scale.Normalize(raw))
	// FACET_MEAN promedia los puntajes de faceta ya redondeados, sin peso de faceta.
	if method == domain.MethodFacetMean && len(facets) > 0 {
		n := float64(len(facets))
		raw = rawSum / n
		normalized = round1(normSum / n)
	}
	return domain.TraitScore{
		Key:             t.Key,
		Name:            t.Name,
		RawScore:        round2(raw),
		NormalizedScore: normalized,
		Band:            ClassifyLevel(normalized, cfg.Thresholds),
		Facets:          facets,
	}, nil
}

// weightedMean aplica la inversion de escala y pondera por el peso de la pregunta.
func weightedMean(scale domain.Scale, rs []domain.ScoredResponse) float64 {
	var sum, sumW float64
	for _, r := range rs {
		v := r.Response.Value
		if r.Question.IsReverse {
			v = scale.Reverse(v)
		}
		sum += float64(v) * r.Question.Weight
		sumW += r.Question.Weight
	}
	if sumW == 0 {
		return 0
	}
	return sum / sumW
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
