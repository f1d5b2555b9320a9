package service

import (
	"fmt"
	"time"

	"bigfive-core/internal/domain"
)

const (
	testTenant = "tenant-1"
	testModel  = "model-bf"
)

var testTraitNames = map[string]string{
	domain.TraitOpenness:          "Abertura",
	domain.TraitConscientiousness: "Conscienciosidade",
	domain.TraitExtraversion:      "Extroversão",
	domain.TraitAgreeableness:     "Amabilidade",
	domain.TraitNeuroticism:       "Neuroticismo",
}

// testConfig: cinco rasgos canonicos con dos facetas cada uno (F1, F2).
func testConfig(id, tenantID string) domain.ScoringConfiguration {
	cfg := domain.ScoringConfiguration{
		ID:         id,
		TenantID:   tenantID,
		Name:       "Test " + id,
		Thresholds: domain.DefaultThresholds(),
		Scale:      domain.DefaultScale(),
		Method:     domain.MethodWeightedMean,
		CreatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for _, key := range domain.CanonicalTraits() {
		traitID := id + "-" + key
		t := domain.TraitConfig{
			ID:       traitID,
			ConfigID: id,
			Key:      key,
			Name:     testTraitNames[key],
			Weight:   1,
			IsActive: true,
			Texts: domain.BandTexts{
				VeryLow:  key + " muito baixo",
				Low:      key + " baixo",
				Average:  key + " medio",
				High:     key + " alto",
				VeryHigh: key + " muito alto",
			},
		}
		for i := 1; i <= 2; i++ {
			t.Facets = append(t.Facets, domain.FacetConfig{
				ID:       fmt.Sprintf("%s-F%d", traitID, i),
				TraitID:  traitID,
				Key:      fmt.Sprintf("%s_F%d", key, i),
				Name:     fmt.Sprintf("%s faceta %d", testTraitNames[key], i),
				Weight:   1,
				IsActive: true,
				Texts:    domain.BandTexts{Average: "faceta media", High: "faceta alta"},
			})
		}
		cfg.Traits = append(cfg.Traits, t)
	}
	return cfg
}

// testQuestions: cuatro preguntas por rasgo; q1,q2 en F1 y q3,q4 en F2. q4 es inversa.
func testQuestions() []domain.Question {
	var out []domain.Question
	for _, key := range domain.CanonicalTraits() {
		for i := 1; i <= 4; i++ {
			facet := 1
			if i > 2 {
				facet = 2
			}
			out = append(out, domain.Question{
				ID:                questionID(key, i),
				AssessmentModelID: testModel,
				Text:              fmt.Sprintf("pergunta %d de %s", i, key),
				TraitKey:          key,
				FacetKey:          fmt.Sprintf("%s_F%d", key, facet),
				Weight:            1,
				IsReverse:         i == 4,
			})
		}
	}
	return out
}

func questionID(trait string, n int) string {
	return fmt.Sprintf("q-%s-%d", trait, n)
}

// uniformAnswers responde v en todas las preguntas; la inversa recibe el valor que
// tambien puntua v.
func uniformAnswers(scale domain.Scale, v int) map[string]int {
	out := make(map[string]int)
	for _, key := range domain.CanonicalTraits() {
		for i := 1; i <= 4; i++ {
			if i == 4 {
				out[questionID(key, i)] = scale.Reverse(v)
				continue
			}
			out[questionID(key, i)] = v
		}
	}
	return out
}

func scored(q domain.Question, value int) domain.ScoredResponse {
	return domain.ScoredResponse{
		Response: domain.Response{ID: "r-" + q.ID, QuestionID: q.ID, Value: value},
		Question: q,
	}
}

func testAssignment(id, userID string, status domain.AssignmentStatus, configID string) domain.Assignment {
	a := domain.Assignment{
		ID:                id,
		UserID:            userID,
		TenantID:          testTenant,
		AssessmentModelID: testModel,
		AssessmentType:    domain.AssessmentTypeBigFive,
		Status:            status,
		CreatedAt:         time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:         time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	if configID != "" {
		a.ConfigID = &configID
	}
	return a
}
