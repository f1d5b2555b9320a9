package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bigfive-core/internal/db"
	"bigfive-core/internal/domain"
)

// TraitPatch cambia los campos editables de un rasgo. Los nil no se tocan.
type TraitPatch struct {
	Name        *string           `json:"name,omitempty"`
	Weight      *float64          `json:"weight,omitempty"`
	IsActive    *bool             `json:"is_active,omitempty"`
	Description *string           `json:"description,omitempty"`
	Texts       *domain.BandTexts `json:"texts,omitempty"`
}

// FacetPatch cambia los campos editables de una faceta.
type FacetPatch TraitPatch

// CreateTrait agrega un rasgo nuevo a la configuracion.
func (s *ConfigService) CreateTrait(ctx context.Context, tenantID, configID string, t domain.TraitConfig) (domain.TraitConfig, error) {
	t.Key = strings.TrimSpace(t.Key)
	if t.Key == "" {
		return domain.TraitConfig{}, fmt.Errorf("%w: trait key is required", domain.ErrInvalidInput)
	}
	if t.Weight == 0 {
		t.Weight = 1
	}
	if !domain.ValidWeight(t.Weight) {
		return domain.TraitConfig{}, fmt.Errorf("%w: trait %s weight %v", domain.ErrMalformedWeight, t.Key, t.Weight)
	}
	if t.Name == "" {
		t.Name = t.Key
	}
	t.ID = uuid.NewString()
	t.ConfigID = configID
	facets := t.Facets
	t.Facets = make([]domain.FacetConfig, 0, len(facets))
	for _, f := range facets {
		nf, err := newFacet(t.ID, f)
		if err != nil {
			return domain.TraitConfig{}, err
		}
		t.Facets = append(t.Facets, nf)
	}

	err := s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		cfg, err := s.getOwned(ctx, tenantID, configID)
		if err != nil {
			return err
		}
		if _, dup := cfg.TraitByKey(t.Key); dup {
			return fmt.Errorf("%w: trait %s already configured", domain.ErrInvalidInput, t.Key)
		}
		return s.configs.AddTraits(ctx, configID, []domain.TraitConfig{t})
	})
	if err != nil {
		return domain.TraitConfig{}, err
	}
	s.logger.Info("trait config created", zap.String("config_id", configID), zap.String("trait", t.Key))
	return t, nil
}

// UpdateTrait aplica p al rasgo traitKey de la configuracion.
func (s *ConfigService) UpdateTrait(ctx context.Context, tenantID, configID, traitKey string, p TraitPatch) (domain.TraitConfig, error) {
	var out domain.TraitConfig
	err := s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		cfg, err := s.getOwned(ctx, tenantID, configID)
		if err != nil {
			return err
		}
		t, ok := cfg.TraitByKey(traitKey)
		if !ok {
			return domain.ErrTraitNotFound
		}
		if err := applyPatch(&t.Name, &t.Weight, &t.IsActive, &t.Description, &t.Texts, p); err != nil {
			return fmt.Errorf("trait %s: %w", t.Key, err)
		}
		if err := s.configs.UpdateTrait(ctx, t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return domain.TraitConfig{}, err
	}
	s.logger.Info("trait config updated", zap.String("config_id", configID), zap.String("trait", traitKey))
	return out, nil
}

// CreateFacet agrega una faceta al rasgo traitKey.
func (s *ConfigService) CreateFacet(ctx context.Context, tenantID, configID, traitKey string, f domain.FacetConfig) (domain.FacetConfig, error) {
	var out domain.FacetConfig
	err := s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		cfg, err := s.getOwned(ctx, tenantID, configID)
		if err != nil {
			return err
		}
		t, ok := cfg.TraitByKey(traitKey)
		if !ok {
			return domain.ErrTraitNotFound
		}
		nf, err := newFacet(t.ID, f)
		if err != nil {
			return err
		}
		for _, existing := range t.Facets {
			if existing.Key == nf.Key {
				return fmt.Errorf("%w: facet %s already configured for %s", domain.ErrInvalidInput, nf.Key, t.Key)
			}
		}
		if err := s.configs.AddFacets(ctx, t.ID, []domain.FacetConfig{nf}); err != nil {
			return err
		}
		out = nf
		return nil
	})
	if err != nil {
		return domain.FacetConfig{}, err
	}
	s.logger.Info("facet config created",
		zap.String("config_id", configID), zap.String("trait", traitKey), zap.String("facet", out.Key))
	return out, nil
}

// UpdateFacet aplica p a la faceta facetKey del rasgo traitKey.
func (s *ConfigService) UpdateFacet(ctx context.Context, tenantID, configID, traitKey, facetKey string, p FacetPatch) (domain.FacetConfig, error) {
	var out domain.FacetConfig
	err := s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		cfg, err := s.getOwned(ctx, tenantID, configID)
		if err != nil {
			return err
		}
		t, ok := cfg.TraitByKey(traitKey)
		if !ok {
			return domain.ErrTraitNotFound
		}
		for _, f := range t.Facets {
			if f.Key != facetKey {
				continue
			}
			if err := applyPatch(&f.Name, &f.Weight, &f.IsActive, &f.Description, &f.Texts, TraitPatch(p)); err != nil {
				return fmt.Errorf("facet %s: %w", f.Key, err)
			}
			if err := s.configs.UpdateFacet(ctx, f); err != nil {
				return err
			}
			out = f
			return nil
		}
		return domain.ErrFacetNotFound
	})
	if err != nil {
		return domain.FacetConfig{}, err
	}
	s.logger.Info("facet config updated",
		zap.String("config_id", configID), zap.String("trait", traitKey), zap.String("facet", facetKey))
	return out, nil
}

// AddText crea un texto interpretativo opcional.
func (s *ConfigService) AddText(ctx context.Context, tenantID, configID string, t domain.InterpretiveText) (domain.InterpretiveText, error) {
	t.ID = uuid.NewString()
	t.ConfigID = configID
	err := s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		if err := s.checkText(ctx, tenantID, &t); err != nil {
			return err
		}
		return s.configs.AddTexts(ctx, []domain.InterpretiveText{t})
	})
	if err != nil {
		return domain.InterpretiveText{}, err
	}
	return t, nil
}

func (s *ConfigService) UpdateText(ctx context.Context, tenantID, configID, id string, t domain.InterpretiveText) (domain.InterpretiveText, error) {
	t.ID = id
	t.ConfigID = configID
	err := s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		if err := s.checkText(ctx, tenantID, &t); err != nil {
			return err
		}
		return s.configs.UpdateText(ctx, t)
	})
	if err != nil {
		return domain.InterpretiveText{}, err
	}
	return t, nil
}

func (s *ConfigService) DeleteText(ctx context.Context, tenantID, configID, id string) error {
	return s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		if _, err := s.getOwned(ctx, tenantID, configID); err != nil {
			return err
		}
		return s.configs.DeleteText(ctx, configID, id)
	})
}

// AddRecommendation crea una recomendacion para un rasgo y banda.
func (s *ConfigService) AddRecommendation(ctx context.Context, tenantID, configID string, rec domain.Recommendation) (domain.Recommendation, error) {
	rec.ID = uuid.NewString()
	rec.ConfigID = configID
	err := s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		if err := s.checkRecommendation(ctx, tenantID, &rec); err != nil {
			return err
		}
		return s.configs.AddRecommendations(ctx, []domain.Recommendation{rec})
	})
	if err != nil {
		return domain.Recommendation{}, err
	}
	return rec, nil
}

func (s *ConfigService) UpdateRecommendation(ctx context.Context, tenantID, configID, id string, rec domain.Recommendation) (domain.Recommendation, error) {
	rec.ID = id
	rec.ConfigID = configID
	err := s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		if err := s.checkRecommendation(ctx, tenantID, &rec); err != nil {
			return err
		}
		return s.configs.UpdateRecommendation(ctx, rec)
	})
	if err != nil {
		return domain.Recommendation{}, err
	}
	return rec, nil
}

func (s *ConfigService) DeleteRecommendation(ctx context.Context, tenantID, configID, id string) error {
	return s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		if _, err := s.getOwned(ctx, tenantID, configID); err != nil {
			return err
		}
		return s.configs.DeleteRecommendation(ctx, configID, id)
	})
}

// checkText normaliza la clave del rasgo a la configurada y valida banda y categoria.
func (s *ConfigService) checkText(ctx context.Context, tenantID string, t *domain.InterpretiveText) error {
	if !t.Band.Valid() {
		return fmt.Errorf("%w: unknown band %q", domain.ErrInvalidInput, t.Band)
	}
	if !t.Category.Valid() {
		return fmt.Errorf("%w: unknown text category %q", domain.ErrInvalidInput, t.Category)
	}
	t.Text = strings.TrimSpace(t.Text)
	if t.Text == "" {
		return fmt.Errorf("%w: text is required", domain.ErrInvalidInput)
	}
	key, err := s.configuredTrait(ctx, tenantID, t.ConfigID, t.TraitKey)
	if err != nil {
		return err
	}
	t.TraitKey = key
	return nil
}

func (s *ConfigService) checkRecommendation(ctx context.Context, tenantID string, rec *domain.Recommendation) error {
	if !rec.Band.Valid() {
		return fmt.Errorf("%w: unknown band %q", domain.ErrInvalidInput, rec.Band)
	}
	rec.Text = strings.TrimSpace(rec.Text)
	if rec.Text == "" {
		return fmt.Errorf("%w: recommendation text is required", domain.ErrInvalidInput)
	}
	if rec.Order < 0 {
		return fmt.Errorf("%w: order must be >= 0", domain.ErrInvalidInput)
	}
	key, err := s.configuredTrait(ctx, tenantID, rec.ConfigID, rec.TraitKey)
	if err != nil {
		return err
	}
	rec.TraitKey = key
	return nil
}

// configuredTrait acepta claves legacy y devuelve la clave del rasgo configurado.
func (s *ConfigService) configuredTrait(ctx context.Context, tenantID, configID, key string) (string, error) {
	cfg, err := s.getOwned(ctx, tenantID, configID)
	if err != nil {
		return "", err
	}
	for _, t := range cfg.Traits {
		if t.Key == key || s.resolver.MatchTrait(key, t) {
			return t.Key, nil
		}
	}
	return "", fmt.Errorf("%w: trait %q is not configured", domain.ErrInvalidInput, key)
}

func newFacet(traitID string, f domain.FacetConfig) (domain.FacetConfig, error) {
	f.Key = strings.TrimSpace(f.Key)
	if f.Key == "" {
		return domain.FacetConfig{}, fmt.Errorf("%w: facet key is required", domain.ErrInvalidInput)
	}
	if f.Weight == 0 {
		f.Weight = 1
	}
	if !domain.ValidWeight(f.Weight) {
		return domain.FacetConfig{}, fmt.Errorf("%w: facet %s weight %v", domain.ErrMalformedWeight, f.Key, f.Weight)
	}
	if f.Name == "" {
		f.Name = f.Key
	}
	f.ID = uuid.NewString()
	f.TraitID = traitID
	return f, nil
}

func applyPatch(name *string, weight *float64, active *bool, desc *string, texts *domain.BandTexts, p TraitPatch) error {
	if p.Weight != nil {
		if !domain.ValidWeight(*p.Weight) {
			return fmt.Errorf("%w: weight %v", domain.ErrMalformedWeight, *p.Weight)
		}
		*weight = *p.Weight
	}
	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		if n == "" {
			return fmt.Errorf("%w: name must not be empty", domain.ErrInvalidInput)
		}
		*name = n
	}
	if p.IsActive != nil {
		*active = *p.IsActive
	}
	if p.Description != nil {
		*desc = *p.Description
	}
	if p.Texts != nil {
		*texts = *p.Texts
	}
	return nil
}
