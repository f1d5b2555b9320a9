package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bigfive-core/internal/db"
	"bigfive-core/internal/domain"
	"bigfive-core/internal/repository"
	"bigfive-core/internal/seed"
)

// CreateConfigInput son los datos opcionales de una configuracion nueva.
type CreateConfigInput struct {
	Name       string               `json:"name"`
	Thresholds *domain.Thresholds   `json:"thresholds,omitempty"`
	Scale      *domain.Scale        `json:"scale,omitempty"`
	Method     domain.ScoringMethod `json:"method,omitempty"`
}

// FacetFix resume las facetas agregadas por FixMissingFacets.
type FacetFix struct {
	ConfigID    string   `json:"config_id"`
	ConfigName  string   `json:"config_name"`
	TraitsFixed []string `json:"traits_fixed"`
}

// ConfigService administra las configuraciones de scoring de un tenant.
type ConfigService struct {
	configs     repository.ConfigRepository
	assignments repository.AssignmentRepository
	questions   repository.QuestionRepository
	tx          TxRunner
	drafter     TextDrafter
	resolver    *TraitKeyResolver
	logger      *zap.Logger
	now         func() time.Time
}

// NewConfigService: drafter es opcional; sin el, PopulateTexts usa placeholders.
func NewConfigService(
	configs repository.ConfigRepository,
	assignments repository.AssignmentRepository,
	questions repository.QuestionRepository,
	tx TxRunner,
	drafter TextDrafter,
	logger *zap.Logger,
) *ConfigService {
	return &ConfigService{
		configs:     configs,
		assignments: assignments,
		questions:   questions,
		tx:          tx,
		drafter:     drafter,
		resolver:    defaultKeyResolver,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *ConfigService) ListConfigs(ctx context.Context, tenantID string) ([]domain.ScoringConfiguration, error) {
	return s.configs.ListByTenant(ctx, tenantID)
}

// CreateConfig crea una configuracion inactiva, clonando rasgos y facetas de la activa si existe.
func (s *ConfigService) CreateConfig(ctx context.Context, tenantID string, in CreateConfigInput) (domain.ScoringConfiguration, error) {
	now := s.now()
	cfg := domain.ScoringConfiguration{
		ID:         uuid.NewString(),
		TenantID:   tenantID,
		Name:       strings.TrimSpace(in.Name),
		Thresholds: domain.DefaultThresholds(),
		Scale:      domain.DefaultScale(),
		Method:     domain.MethodWeightedMean,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if cfg.Name == "" {
		cfg.Name = "Big Five - " + now.Format("2006-01-02")
	}
	if in.Thresholds != nil {
		cfg.Thresholds = *in.Thresholds
	}
	if in.Scale != nil {
		cfg.Scale = *in.Scale
	}
	if in.Method != "" {
		cfg.Method = in.Method
	}

	err := s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		active, err := s.configs.GetActive(ctx, tenantID)
		switch {
		case err == nil:
			cfg.Traits = cloneTraits(cfg.ID, active.Traits)
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return s.configs.Create(ctx, cfg)
	})
	if err != nil {
		return domain.ScoringConfiguration{}, err
	}
	s.logger.Info("scoring configuration created",
		zap.String("tenant_id", tenantID), zap.String("config_id", cfg.ID), zap.Int("traits", len(cfg.Traits)))
	return cfg, nil
}

// GetSettings devuelve la configuracion con textos y recomendaciones. Si no tiene
// rasgos y hay una activa, la completa desde la activa.
func (s *ConfigService) GetSettings(ctx context.Context, tenantID, id string) (domain.ScoringConfiguration, error) {
	cfg, err := s.getOwned(ctx, tenantID, id)
	if err != nil {
		return domain.ScoringConfiguration{}, err
	}
	if len(cfg.Traits) == 0 {
		added, err := s.PopulateFromActive(ctx, tenantID, id)
		switch {
		case err == nil && added > 0:
			s.logger.Info("configuration backfilled from active", zap.String("config_id", id), zap.Int("traits", added))
			if cfg, err = s.getOwned(ctx, tenantID, id); err != nil {
				return domain.ScoringConfiguration{}, err
			}
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			return domain.ScoringConfiguration{}, err
		}
	}
	if cfg.Texts, err = s.configs.ListTexts(ctx, cfg.ID); err != nil {
		return domain.ScoringConfiguration{}, err
	}
	if cfg.Recommendations, err = s.configs.ListRecommendations(ctx, cfg.ID); err != nil {
		return domain.ScoringConfiguration{}, err
	}
	return cfg, nil
}

// PopulateFromActive agrega a id los rasgos de la activa que le faltan. Devuelve cuantos agrego.
func (s *ConfigService) PopulateFromActive(ctx context.Context, tenantID, id string) (int, error) {
	added := 0
	err := s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		target, err := s.getOwned(ctx, tenantID, id)
		if err != nil {
			return err
		}
		active, err := s.configs.GetActive(ctx, tenantID)
		if err != nil {
			return err
		}
		if active.ID == target.ID {
			return nil
		}
		var missing []domain.TraitConfig
		for _, t := range active.Traits {
			if _, ok := target.TraitByKey(t.Key); !ok {
				missing = append(missing, t)
			}
		}
		if len(missing) == 0 {
			return nil
		}
		added = len(missing)
		return s.configs.AddTraits(ctx, target.ID, cloneTraits(target.ID, missing))
	})
	return added, err
}

func (s *ConfigService) UpdateThresholds(ctx context.Context, tenantID, id string, t domain.Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		if _, err := s.getOwned(ctx, tenantID, id); err != nil {
			return err
		}
		return s.configs.UpdateThresholds(ctx, id, t)
	})
}

// Activate deja a id como unica configuracion activa del tenant, en una transaccion.
func (s *ConfigService) Activate(ctx context.Context, tenantID, id string) error {
	err := s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		return s.configs.Activate(ctx, tenantID, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("scoring configuration activated", zap.String("tenant_id", tenantID), zap.String("config_id", id))
	return nil
}

// CreateDefaultConfig crea la configuracion estandar y la deja activa.
func (s *ConfigService) CreateDefaultConfig(ctx context.Context, tenantID string) (domain.ScoringConfiguration, error) {
	cfg := seed.DefaultConfiguration(tenantID)
	if err := cfg.Validate(); err != nil {
		return domain.ScoringConfiguration{}, err
	}
	err := s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		if err := s.configs.DeactivateAll(ctx, tenantID); err != nil {
			return err
		}
		return s.configs.Create(ctx, cfg)
	})
	if err != nil {
		return domain.ScoringConfiguration{}, err
	}
	s.logger.Info("default configuration created", zap.String("tenant_id", tenantID), zap.String("config_id", cfg.ID))
	return cfg, nil
}

// ImportConfiguration guarda un documento de seed. Si viene activo, desactiva las demas.
func (s *ConfigService) ImportConfiguration(ctx context.Context, doc seed.Document) (domain.ScoringConfiguration, error) {
	cfg := doc.Config
	if err := cfg.Validate(); err != nil {
		return domain.ScoringConfiguration{}, err
	}
	err := s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		if cfg.IsActive {
			if err := s.configs.DeactivateAll(ctx, cfg.TenantID); err != nil {
				return err
			}
		}
		if err := s.configs.Create(ctx, cfg); err != nil {
			return err
		}
		for _, q := range doc.Questions {
			if err := s.questions.Upsert(ctx, q); err != nil {
				return fmt.Errorf("question %s: %w", q.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.ScoringConfiguration{}, err
	}
	return cfg, nil
}

// FixMissingFacets agrega la plantilla estandar de facetas a los rasgos que no tienen ninguna.
func (s *ConfigService) FixMissingFacets(ctx context.Context, tenantID string) ([]FacetFix, error) {
	var fixes []FacetFix
	err := s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		list, err := s.configs.ListByTenant(ctx, tenantID)
		if err != nil {
			return err
		}
		for _, summary := range list {
			cfg, err := s.configs.GetByID(ctx, summary.ID)
			if err != nil {
				return err
			}
			fix := FacetFix{ConfigID: cfg.ID, ConfigName: cfg.Name}
			for _, t := range cfg.Traits {
				if len(t.Facets) > 0 {
					continue
				}
				canonical, ok := s.resolver.Canonical(t.Key)
				if !ok {
					canonical, ok = s.resolver.Canonical(t.Name)
				}
				if !ok {
					s.logger.Warn("no facet template for trait", zap.String("config_id", cfg.ID), zap.String("trait", t.Key))
					continue
				}
				if err := s.configs.AddFacets(ctx, t.ID, seed.StandardFacets(t.ID, t.Key, canonical)); err != nil {
					return err
				}
				fix.TraitsFixed = append(fix.TraitsFixed, t.Name)
			}
			if len(fix.TraitsFixed) > 0 {
				fixes = append(fixes, fix)
			}
		}
		return nil
	})
	return fixes, err
}

// PopulateTexts crea los textos interpretativos que faltan en la configuracion
// activa, uno por rasgo x banda x categoria. Devuelve cuantos creo.
func (s *ConfigService) PopulateTexts(ctx context.Context, tenantID string) (int, error) {
	cfg, err := s.configs.GetActive(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	existing, err := s.configs.ListTexts(ctx, cfg.ID)
	if err != nil {
		return 0, err
	}
	have := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		have[textSlot(t.TraitKey, t.Band, t.Category)] = struct{}{}
	}

	var created []domain.InterpretiveText
	for _, trait := range cfg.ActiveTraits() {
		for _, band := range domain.Bands() {
			for _, cat := range domain.TextCategories() {
				if _, ok := have[textSlot(trait.Key, band, cat)]; ok {
					continue
				}
				req := TextDraftRequest{
					ConfigName: cfg.Name,
					TraitKey:   trait.Key,
					TraitName:  trait.Name,
					Band:       band,
					Category:   cat,
				}
				if cat == domain.TextPracticalImpact {
					req.Context = PracticalImpactContext
				}
				created = append(created, domain.InterpretiveText{
					ID:       uuid.NewString(),
					ConfigID: cfg.ID,
					TraitKey: trait.Key,
					Band:     band,
					Category: cat,
					Context:  req.Context,
					Text:     s.draft(ctx, req),
				})
			}
		}
	}
	if len(created) == 0 {
		return 0, nil
	}
	err = s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		return s.configs.AddTexts(ctx, created)
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("interpretive texts populated", zap.String("config_id", cfg.ID), zap.Int("created", len(created)))
	return len(created), nil
}

func (s *ConfigService) draft(ctx context.Context, req TextDraftRequest) string {
	if s.drafter == nil {
		return PlaceholderText(req)
	}
	text, err := s.drafter.Draft(ctx, req)
	if err != nil {
		s.logger.Warn("text drafter failed, using placeholder",
			zap.String("trait", req.TraitKey), zap.String("band", string(req.Band)), zap.Error(err))
		return PlaceholderText(req)
	}
	return text
}

// LinkAssignmentsToActive fija la configuracion activa en los assignments
// completados que no tienen snapshot.
func (s *ConfigService) LinkAssignmentsToActive(ctx context.Context, tenantID string) (int, error) {
	linked := 0
	err := s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		active, err := s.configs.GetActive(ctx, tenantID)
		if err != nil {
			return err
		}
		list, err := s.assignments.ListCompletedWithoutConfig(ctx, tenantID)
		if err != nil {
			return err
		}
		for _, a := range list {
			if err := s.assignments.SetConfig(ctx, a.ID, active.ID); err != nil {
				return err
			}
			linked++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("assignments linked to active configuration", zap.String("tenant_id", tenantID), zap.Int("linked", linked))
	return linked, nil
}

func (s *ConfigService) getOwned(ctx context.Context, tenantID, id string) (domain.ScoringConfiguration, error) {
	cfg, err := s.configs.GetByID(ctx, id)
	if err != nil {
		return domain.ScoringConfiguration{}, err
	}
	if tenantID != "" && cfg.TenantID != tenantID {
		return domain.ScoringConfiguration{}, domain.ErrConfigurationNotFound
	}
	return cfg, nil
}

func cloneTraits(configID string, src []domain.TraitConfig) []domain.TraitConfig {
	out := make([]domain.TraitConfig, 0, len(src))
	for _, t := range src {
		c := t
		c.ID = uuid.NewString()
		c.ConfigID = configID
		c.Facets = make([]domain.FacetConfig, 0, len(t.Facets))
		for _, f := range t.Facets {
			f.ID = uuid.NewString()
			f.TraitID = c.ID
			c.Facets = append(c.Facets, f)
		}
		out = append(out, c)
	}
	return out
}

func textSlot(trait string, band domain.Band, cat domain.TextCategory) string {
	return trait + "|" + string(band) + "|" + string(cat)
}
