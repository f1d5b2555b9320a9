package domain

import "strings"

const (
	compositeKeySeparator = "::"
	legacyReverseMarker   = "(INV)"
)

// ParseCompositeKey separa una clave legacy "TRAIT::FACET". La faceta es opcional.
func ParseCompositeKey(key string) (trait, facet string) {
	trait, facet, _ = strings.Cut(key, compositeKeySeparator)
	return strings.TrimSpace(trait), strings.TrimSpace(facet)
}

// CompositeKey arma la clave legacy a partir de rasgo y faceta.
func CompositeKey(trait, facet string) string {
	if strings.TrimSpace(facet) == "" {
		return trait
	}
	return trait + compositeKeySeparator + facet
}

// NormalizeLegacyQuestion convierte el marcador "(INV)" del texto y la clave
// compuesta en columnas explicitas.
func NormalizeLegacyQuestion(q Question) Question {
	if strings.Contains(q.Text, legacyReverseMarker) {
		q.IsReverse = true
		q.Text = strings.TrimSpace(strings.ReplaceAll(q.Text, legacyReverseMarker, ""))
	}
	if strings.Contains(q.TraitKey, compositeKeySeparator) {
		trait, facet := ParseCompositeKey(q.TraitKey)
		q.TraitKey = trait
		if q.FacetKey == "" {
			q.FacetKey = facet
		}
	}
	if q.Weight == 0 {
		q.Weight = 1
	}
	return q
}
