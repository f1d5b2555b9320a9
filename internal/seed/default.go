package seed

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"bigfive-core/internal/domain"
)

// DefaultConfigName es el nombre de la configuracion estandar.
const DefaultConfigName = "Big Five - Configuração Completa"

type traitTemplate struct {
	key    string
	name   string
	facets []string
}

var standardTraits = []traitTemplate{
	{domain.TraitOpenness, "Abertura à Experiência", []string{"Fantasia", "Estética", "Sentimentos", "Ações", "Ideias", "Valores"}},
	{domain.TraitConscientiousness, "Conscienciosidade", []string{"Competência", "Ordem", "Senso de dever", "Esforço por realizações", "Autodisciplina", "Ponderação"}},
	{domain.TraitExtraversion, "Extroversão", []string{"Cordialidade", "Gregariedade", "Assertividade", "Atividade", "Busca de sensações", "Emoções positivas"}},
	{domain.TraitAgreeableness, "Amabilidade", []string{"Confiança", "Franqueza", "Altruísmo", "Complacência", "Modéstia", "Sensibilidade"}},
	{domain.TraitNeuroticism, "Neuroticismo", []string{"Ansiedade", "Hostilidade", "Depressão", "Embaraço", "Impulsividade", "Vulnerabilidade"}},
}

var defaultBandTexts = domain.BandTexts{
	VeryLow:  "Muito Baixo",
	Low:      "Baixo",
	Average:  "Médio",
	High:     "Alto",
	VeryHigh: "Muito Alto",
}

// StandardFacetNames devuelve la plantilla de facetas de un rasgo canonico.
func StandardFacetNames(canonicalKey string) ([]string, bool) {
	for _, t := range standardTraits {
		if t.key == canonicalKey {
			return append([]string(nil), t.facets...), true
		}
	}
	return nil, false
}

// StandardFacets arma las FacetConfig de plantilla con claves TRAIT_F1..F6.
func StandardFacets(traitID, traitKey, canonicalKey string) []domain.FacetConfig {
	names, ok := StandardFacetNames(canonicalKey)
	if !ok {
		return nil
	}
	out := make([]domain.FacetConfig, 0, len(names))
	for i, name := range names {
		out = append(out, domain.FacetConfig{
			ID:       uuid.NewString(),
			TraitID:  traitID,
			Key:      fmt.Sprintf("%s_F%d", traitKey, i+1),
			Name:     name,
			Weight:   1.0,
			IsActive: true,
		})
	}
	return out
}

// DefaultConfiguration construye la configuracion estandar de cinco rasgos y
// seis facetas por rasgo, activa y con umbrales 20/40/60/80.
func DefaultConfiguration(tenantID string) domain.ScoringConfiguration {
	now := time.Now().UTC()
	cfg := domain.ScoringConfiguration{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		Name:       DefaultConfigName,
		IsActive:   true,
		Thresholds: domain.DefaultThresholds(),
		Scale:      domain.DefaultScale(),
		Method:     domain.MethodWeightedMean,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, t := range standardTraits {
		traitID := uuid.NewString()
		cfg.Traits = append(cfg.Traits, domain.TraitConfig{
			ID:          traitID,
			ConfigID:    cfg.ID,
			Key:         t.key,
			Name:        t.name,
			Weight:      1.0,
			IsActive:    true,
			Description: "Avalia o nível de " + strings.ToLower(t.name),
			Texts:       defaultBandTexts,
			Facets:      StandardFacets(traitID, t.key, t.key),
		})
	}
	return cfg
}
