package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"bigfive-core/internal/domain"
)

// nombres localizados (ya normalizados con FoldKey) -> clave canonica.
var legacyTraitNames = map[string]string{
	"openness":                domain.TraitOpenness,
	"abertura":                domain.TraitOpenness,
	"abertura a experiencia":  domain.TraitOpenness,
	"abertura a experiencias": domain.TraitOpenness,
	"abertura ao novo":        domain.TraitOpenness,
	"conscientiousness":       domain.TraitConscientiousness,
	"conscienciosidade":       domain.TraitConscientiousness,
	"extraversion":            domain.TraitExtraversion,
	"extroversion":            domain.TraitExtraversion,
	"extroversao":             domain.TraitExtraversion,
	"extraversao":             domain.TraitExtraversion,
	"agreeableness":           domain.TraitAgreeableness,
	"amabilidade":             domain.TraitAgreeableness,
	"neuroticism":             domain.TraitNeuroticism,
	"neuroticismo":            domain.TraitNeuroticism,
	"estabilidade emocional":  domain.TraitNeuroticism,
}

// alias de facetas heredados de los bancos de preguntas viejos.
var legacyFacetAliases = map[string][]string{
	"ansiedade":             {"controle de ansiedade", "preocupacao"},
	"raiva":                 {"controle de humor", "irritabilidade", "hostilidade"},
	"gregarismo":            {"sociabilidade", "interacao social"},
	"assertividade":         {"lideranca", "dominancia", "firmeza"},
	"busca de emocoes":      {"busca por emocoes positivas", "aventura", "excitacao"},
	"emocoes positivas":     {"otimismo", "alegria", "entusiasmo"},
	"amabilidade":           {"acolhimento", "afeto", "calor", "simpatia"},
	"calor":                 {"amabilidade", "afeto"},
	"emotividade":           {"sentimentos", "consciencia emocional", "emocao"},
	"moralidade":            {"modestia", "franqueza", "retidao", "sinceridade"},
	"altruismo":             {"generosidade", "ajuda"},
	"modestia":              {"humildade"},
	"sensibilidade":         {"empatia", "ternura"},
	"interesses artisticos": {"sensibilidade estetica", "arte", "estetica"},
	"ideias":                {"curiosidade intelectual", "intelecto", "curiosidade"},
}

// TraitKeyResolver traduce claves de rasgo y faceta al espacio canonico.
type TraitKeyResolver struct {
	traits map[string]string
	facets map[string][]string
}

func NewTraitKeyResolver() *TraitKeyResolver {
	return &TraitKeyResolver{traits: legacyTraitNames, facets: legacyFacetAliases}
}

var defaultKeyResolver = NewTraitKeyResolver()

// FoldKey pasa a minusculas, quita acentos y unifica separadores.
func FoldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.NewReplacer("_", " ", "-", " ").Replace(folded)
	return strings.Join(strings.Fields(folded), " ")
}

// Canonical devuelve la clave canonica de un rasgo a partir de su clave o nombre.
func (r *TraitKeyResolver) Canonical(key string) (string, bool) {
	c, ok := r.traits[FoldKey(key)]
	return c, ok
}

// MatchTrait indica si la clave de una pregunta pertenece al rasgo configurado.
func (r *TraitKeyResolver) MatchTrait(questionKey string, trait domain.TraitConfig) bool {
	q := FoldKey(questionKey)
	if q == "" {
		return false
	}
	if q == FoldKey(trait.Key) || q == FoldKey(trait.Name) {
		return true
	}
	qc, ok := r.traits[q]
	if !ok {
		return false
	}
	if c, ok := r.Canonical(trait.Key); ok && c == qc {
		return true
	}
	c, ok := r.Canonical(trait.Name)
	return ok && c == qc
}

// MatchFacet indica si la clave de faceta de una pregunta corresponde a la faceta configurada.
func (r *TraitKeyResolver) MatchFacet(questionFacet string, facet domain.FacetConfig) bool {
	q := FoldKey(questionFacet)
	if q == "" {
		return false
	}
	name := FoldKey(facet.Name)
	if q == FoldKey(facet.Key) || q == name {
		return true
	}
	return containsString(r.facets[name], q) || containsString(r.facets[q], name)
}

// CanonicalScores reescribe las claves de rasgo que tienen equivalente canonico.
func (r *TraitKeyResolver) CanonicalScores(scores domain.TraitScores) domain.TraitScores {
	out := make(domain.TraitScores, len(scores))
	for key, score := range scores {
		if c, ok := r.Canonical(key); ok {
			key = c
		} else if c, ok := r.Canonical(score.Name); ok {
			key = c
		}
		score.Key = key
		out[key] = score
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
