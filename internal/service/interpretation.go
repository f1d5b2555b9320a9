package service

import (
	"sort"

	"bigfive-core/internal/domain"
)

// AssembleInterpretation arma el texto de un rasgo puntuado. Nunca falla: el
// contenido opcional ausente queda vacio y el texto de banda vacio se marca.
func AssembleInterpretation(trait domain.TraitConfig, score domain.TraitScore, texts []domain.InterpretiveText, recs []domain.Recommendation) domain.TraitInterpretation {
	primary, missing := bandText(trait.Texts, score.Band)
	out := domain.TraitInterpretation{
		Key:            trait.Key,
		Name:           trait.Name,
		Score:          score.NormalizedScore,
		RawScore:       score.RawScore,
		Band:           score.Band,
		Interpretation: primary,
		TextMissing:    missing,
		Facets:         make([]domain.FacetInterpretation, 0, len(score.Facets)),
		CustomTexts: domain.CustomTexts{
			PracticalImpact:  []domain.ContextText{},
			ExpertHypothesis: []domain.ContextText{},
		},
	}

	for _, fs := range score.Facets {
		fi := domain.FacetInterpretation{Key: fs.Key, Name: fs.Name, Score: fs.NormalizedScore, Band: fs.Band}
		var ft domain.BandTexts
		for _, fc := range trait.Facets {
			if fc.Key == fs.Key {
				ft = fc.Texts
				break
			}
		}
		fi.Interpretation, fi.TextMissing = bandText(ft, fs.Band)
		out.Facets = append(out.Facets, fi)
	}

	for _, t := range texts {
		if t.Band != score.Band || !sameTrait(t.TraitKey, trait) {
			continue
		}
		switch t.Category {
		case domain.TextSummary:
			if out.CustomTexts.Summary == "" {
				out.CustomTexts.Summary = t.Text
			}
		case domain.TextExpertSynthesis:
			if out.CustomTexts.ExpertSynthesis == "" {
				out.CustomTexts.ExpertSynthesis = t.Text
			}
		case domain.TextPracticalImpact:
			out.CustomTexts.PracticalImpact = append(out.CustomTexts.PracticalImpact, domain.ContextText{Context: t.Context, Text: t.Text})
		case domain.TextExpertHypothesis:
			out.CustomTexts.ExpertHypothesis = append(out.CustomTexts.ExpertHypothesis, domain.ContextText{Context: t.Context, Text: t.Text})
		}
	}

	for _, r := range recs {
		if r.Band == score.Band && sameTrait(r.TraitKey, trait) {
			out.Recommendations = append(out.Recommendations, r)
		}
	}
	sort.SliceStable(out.Recommendations, func(i, j int) bool {
		return out.Recommendations[i].Order < out.Recommendations[j].Order
	})
	return out
}

func bandText(texts domain.BandTexts, band domain.Band) (string, bool) {
	if s := texts.For(band); s != "" {
		return s, false
	}
	return domain.MissingTextMarker, true
}

func sameTrait(key string, trait domain.TraitConfig) bool {
	return key == trait.Key || defaultKeyResolver.MatchTrait(key, trait)
}
