package service

import (
	"math"

	"bigfive-core/internal/domain"
)

// ClassifyGap clasifica la distancia absoluta entre dos scores de un rasgo.
func ClassifyGap(diff float64) domain.Similarity {
	switch {
	case diff <= 10:
		return domain.HighSimilarity
	case diff <= 25:
		return domain.ModerateSimilarity
	case diff <= 40:
		return domain.Complementary
	default:
		return domain.HighDissonance
	}
}

// ClassifyMatch clasifica la media de las distancias.
func ClassifyMatch(avg float64) domain.MatchLevel {
	switch {
	case avg <= 15:
		return domain.HighSynchrony
	case avg <= 30:
		return domain.Balanced
	default:
		return domain.Challenging
	}
}

// ComputeGaps compara los cinco rasgos canonicos. Un rasgo ausente cuenta como 0
// y el gap queda marcado como incompleto.
func ComputeGaps(a, b domain.TraitScores) (map[string]domain.TraitGap, float64) {
	traits := domain.CanonicalTraits()
	gaps := make(map[string]domain.TraitGap, len(traits))
	var total float64
	for _, key := range traits {
		sa, okA := a[key]
		sb, okB := b[key]
		diff := round1(math.Abs(sa.NormalizedScore - sb.NormalizedScore))
		gaps[key] = domain.TraitGap{
			ScoreA:         sa.NormalizedScore,
			ScoreB:         sb.NormalizedScore,
			Diff:           diff,
			Classification: ClassifyGap(diff),
			Incomplete:     !okA || !okB,
		}
		total += diff
	}
	return gaps, round2(total / float64(len(traits)))
}
