package seed

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"bigfive-core/internal/domain"
)

// Document es el resultado de leer un archivo de seed.
type Document struct {
	Config    domain.ScoringConfiguration
	Questions []domain.Question
}

type fileDoc struct {
	Name            string               `yaml:"name"`
	TenantID        string               `yaml:"tenant_id"`
	Active          bool                 `yaml:"active"`
	Method          string               `yaml:"method"`
	Scale           *domain.Scale        `yaml:"scale"`
	Thresholds      *domain.Thresholds   `yaml:"thresholds"`
	Traits          []fileTrait          `yaml:"traits"`
	Texts           []fileText           `yaml:"texts"`
	Recommendations []fileRecommendation `yaml:"recommendations"`
	Questions       []fileQuestion       `yaml:"questions"`
}

type fileTrait struct {
	Key         string           `yaml:"key"`
	Name        string           `yaml:"name"`
	Weight      *float64         `yaml:"weight"`
	Inactive    bool             `yaml:"inactive"`
	Description string           `yaml:"description"`
	Texts       domain.BandTexts `yaml:"texts"`
	Facets      []fileFacet      `yaml:"facets"`
}

type fileFacet struct {
	Key         string           `yaml:"key"`
	Name        string           `yaml:"name"`
	Weight      *float64         `yaml:"weight"`
	Inactive    bool             `yaml:"inactive"`
	Description string           `yaml:"description"`
	Texts       domain.BandTexts `yaml:"texts"`
}

type fileText struct {
	Trait    string `yaml:"trait"`
	Band     string `yaml:"band"`
	Category string `yaml:"category"`
	Context  string `yaml:"context"`
	Text     string `yaml:"text"`
}

type fileRecommendation struct {
	Trait string `yaml:"trait"`
	Band  string `yaml:"band"`
	Title string `yaml:"title"`
	Text  string `yaml:"text"`
	Order int    `yaml:"order"`
}

type fileQuestion struct {
	ID      string   `yaml:"id"`
	Model   string   `yaml:"model"`
	Text    string   `yaml:"text"`
	Key     string   `yaml:"key"`
	Facet   string   `yaml:"facet"`
	Weight  *float64 `yaml:"weight"`
	Reverse bool     `yaml:"reverse"`
}

// LoadConfiguration lee un documento YAML de configuracion. tenantID, si no es
// vacio, pisa el del archivo. Claves "TRAIT::FACET" y marcadores "(INV)" se
// convierten en columnas explicitas.
func LoadConfiguration(r io.Reader, tenantID string) (Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f fileDoc
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return Document{}, fmt.Errorf("%w: empty seed document", domain.ErrInvalidInput)
		}
		return Document{}, fmt.Errorf("%w: parse seed: %v", domain.ErrInvalidInput, err)
	}
	if tenantID != "" {
		f.TenantID = tenantID
	}

	now := time.Now().UTC()
	cfg := domain.ScoringConfiguration{
		ID:         uuid.NewString(),
		TenantID:   f.TenantID,
		Name:       strings.TrimSpace(f.Name),
		IsActive:   f.Active,
		Thresholds: domain.DefaultThresholds(),
		Scale:      domain.DefaultScale(),
		Method:     domain.ScoringMethod(strings.ToUpper(strings.TrimSpace(f.Method))),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if cfg.Name == "" {
		cfg.Name = "Big Five"
	}
	if cfg.Method == "" {
		cfg.Method = domain.MethodWeightedMean
	}
	if f.Scale != nil {
		cfg.Scale = *f.Scale
	}
	if f.Thresholds != nil {
		cfg.Thresholds = *f.Thresholds
	}

	for _, ft := range f.Traits {
		traitID := uuid.NewString()
		t := domain.TraitConfig{
			ID:          traitID,
			ConfigID:    cfg.ID,
			Key:         strings.TrimSpace(ft.Key),
			Name:        strings.TrimSpace(ft.Name),
			Weight:      weightOrDefault(ft.Weight),
			IsActive:    !ft.Inactive,
			Description: ft.Description,
			Texts:       ft.Texts,
		}
		if t.Name == "" {
			t.Name = t.Key
		}
		for _, ff := range ft.Facets {
			fc := domain.FacetConfig{
				ID:          uuid.NewString(),
				TraitID:     traitID,
				Key:         strings.TrimSpace(ff.Key),
				Name:        strings.TrimSpace(ff.Name),
				Weight:      weightOrDefault(ff.Weight),
				IsActive:    !ff.Inactive,
				Description: ff.Description,
				Texts:       ff.Texts,
			}
			if fc.Key == "" {
				fc.Key = fmt.Sprintf("%s_F%d", t.Key, len(t.Facets)+1)
			}
			if fc.Name == "" {
				fc.Name = fc.Key
			}
			t.Facets = append(t.Facets, fc)
		}
		cfg.Traits = append(cfg.Traits, t)
	}

	for _, ft := range f.Texts {
		band := domain.Band(strings.ToUpper(ft.Band))
		if !band.Valid() {
			return Document{}, fmt.Errorf("%w: text for %s has unknown band %q", domain.ErrInvalidInput, ft.Trait, ft.Band)
		}
		cfg.Texts = append(cfg.Texts, domain.InterpretiveText{
			ID:       uuid.NewString(),
			ConfigID: cfg.ID,
			TraitKey: ft.Trait,
			Band:     band,
			Category: domain.TextCategory(strings.ToUpper(ft.Category)),
			Context:  ft.Context,
			Text:     ft.Text,
		})
	}
	for _, fr := range f.Recommendations {
		band := domain.Band(strings.ToUpper(fr.Band))
		if !band.Valid() {
			return Document{}, fmt.Errorf("%w: recommendation for %s has unknown band %q", domain.ErrInvalidInput, fr.Trait, fr.Band)
		}
		cfg.Recommendations = append(cfg.Recommendations, domain.Recommendation{
			ID:       uuid.NewString(),
			ConfigID: cfg.ID,
			TraitKey: fr.Trait,
			Band:     band,
			Title:    fr.Title,
			Text:     fr.Text,
			Order:    fr.Order,
		})
	}

	if err := cfg.Validate(); err != nil {
		return Document{}, err
	}

	doc := Document{Config: cfg}
	for _, fq := range f.Questions {
		if strings.TrimSpace(fq.ID) == "" || strings.TrimSpace(fq.Model) == "" {
			return Document{}, fmt.Errorf("%w: question requires id and model", domain.ErrInvalidInput)
		}
		if fq.Weight != nil && !domain.ValidWeight(*fq.Weight) {
			return Document{}, fmt.Errorf("%w: question %s weight %v", domain.ErrMalformedWeight, fq.ID, *fq.Weight)
		}
		q := domain.NormalizeLegacyQuestion(domain.Question{
			ID:                fq.ID,
			AssessmentModelID: fq.Model,
			Text:              fq.Text,
			TraitKey:          fq.Key,
			FacetKey:          fq.Facet,
			Weight:            weightOrDefault(fq.Weight),
			IsReverse:         fq.Reverse,
		})
		doc.Questions = append(doc.Questions, q)
	}
	return doc, nil
}

func weightOrDefault(w *float64) float64 {
	if w == nil {
		return 1.0
	}
	return *w
}
