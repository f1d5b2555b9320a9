package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"bigfive-core/internal/db"
	"bigfive-core/internal/domain"
	"bigfive-core/internal/repository"
)

// TxRunner abre la transaccion que comparten los repositorios via contexto.
type TxRunner interface {
	WithinTx(ctx context.Context, mode db.TxMode, fn func(ctx context.Context) error) error
}

var tracer = otel.Tracer("bigfive-core/scoring")

// ComputeResult es la salida de ComputeScores.
type ComputeResult struct {
	Scores domain.TraitScores          `json:"scores"`
	Config domain.ScoringConfiguration `json:"config_used"`
	Method domain.ScoringMethod        `json:"method"`
}

// ScoringService calcula scores e interpretaciones en vivo a partir de las respuestas.
type ScoringService struct {
	assignments repository.AssignmentRepository
	responses   repository.ResponseRepository
	configs     repository.ConfigRepository
	tx          TxRunner
	logger      *zap.Logger
}

func NewScoringService(
	assignments repository.AssignmentRepository,
	responses repository.ResponseRepository,
	configs repository.ConfigRepository,
	tx TxRunner,
	logger *zap.Logger,
) *ScoringService {
	return &ScoringService{
		assignments: assignments,
		responses:   responses,
		configs:     configs,
		tx:          tx,
		logger:      logger,
	}
}

// ComputeScores lee assignment, configuracion y respuestas en una sola foto.
func (s *ScoringService) ComputeScores(ctx context.Context, assignmentID string) (ComputeResult, error) {
	ctx, span := tracer.Start(ctx, "scoring.ComputeScores", trace.WithAttributes(attribute.String("assignment.id", assignmentID)))
	defer span.End()

	var out ComputeResult
	err := s.tx.WithinTx(ctx, db.ReadSnapshot, func(ctx context.Context) error {
		a, err := s.assignments.GetByID(ctx, assignmentID)
		if err != nil {
			return err
		}
		cfg, err := s.resolveConfig(ctx, a, "")
		if err != nil {
			return err
		}
		scores, err := s.scoreAssignment(ctx, a, cfg)
		if err != nil {
			return err
		}
		out = ComputeResult{Scores: scores, Config: cfg, Method: effectiveMethod(cfg)}
		return nil
	})
	if err != nil {
		recordSpanError(span, err)
		return ComputeResult{}, err
	}
	return out, nil
}

// BuildInterpretation calcula scores y arma los textos de cada rasgo. configID
// reemplaza el snapshot del assignment. Si fallan los textos opcionales el
// resultado sale con Partial=true.
func (s *ScoringService) BuildInterpretation(ctx context.Context, assignmentID, tenantID, configID string) (domain.Interpretation, error) {
	ctx, span := tracer.Start(ctx, "scoring.BuildInterpretation", trace.WithAttributes(
		attribute.String("assignment.id", assignmentID),
		attribute.String("tenant.id", tenantID),
	))
	defer span.End()

	var out domain.Interpretation
	err := s.tx.WithinTx(ctx, db.ReadSnapshot, func(ctx context.Context) error {
		a, err := s.assignments.GetByID(ctx, assignmentID)
		if err != nil {
			return err
		}
		if tenantID != "" && a.TenantID != tenantID {
			return domain.ErrAssignmentNotFound
		}
		cfg, err := s.resolveConfig(ctx, a, configID)
		if err != nil {
			return err
		}
		scores, err := s.scoreAssignment(ctx, a, cfg)
		if err != nil {
			return err
		}

		out = domain.Interpretation{
			AssignmentID: a.ID,
			ConfigID:     cfg.ID,
			Method:       effectiveMethod(cfg),
			Traits:       make([]domain.TraitInterpretation, 0, len(scores)),
		}
		// Lecturas opcionales en savepoint: un error del servidor no aborta la foto.
		var texts []domain.InterpretiveText
		err = s.tx.WithinTx(ctx, db.Nested, func(ctx context.Context) error {
			var err error
			texts, err = s.configs.ListTexts(ctx, cfg.ID)
			return err
		})
		if err != nil {
			texts = nil
			out.Partial = true
			out.TextErrors = append(out.TextErrors, fmt.Sprintf("interpretive texts: %v", err))
			s.logger.Warn("continuing without custom texts",
				zap.String("assignment_id", a.ID), zap.String("config_id", cfg.ID),
				zap.Error(fmt.Errorf("%w: %v", domain.ErrInterpretationUnavailable, err)))
		}
		var recs []domain.Recommendation
		err = s.tx.WithinTx(ctx, db.Nested, func(ctx context.Context) error {
			var err error
			recs, err = s.configs.ListRecommendations(ctx, cfg.ID)
			return err
		})
		if err != nil {
			recs = nil
			out.Partial = true
			out.TextErrors = append(out.TextErrors, fmt.Sprintf("recommendations: %v", err))
			s.logger.Warn("continuing without recommendations",
				zap.String("assignment_id", a.ID), zap.String("config_id", cfg.ID), zap.Error(err))
		}

		for _, t := range cfg.ActiveTraits() {
			score, ok := scores[t.Key]
			if !ok {
				continue
			}
			ti := AssembleInterpretation(t, score, texts, recs)
			if ti.TextMissing {
				s.logger.Warn("trait band text missing",
					zap.String("config_id", cfg.ID), zap.String("trait", t.Key), zap.String("band", string(ti.Band)))
			}
			out.Traits = append(out.Traits, ti)
		}
		return nil
	})
	if err != nil {
		recordSpanError(span, err)
		return domain.Interpretation{}, err
	}
	span.SetAttributes(attribute.Bool("interpretation.partial", out.Partial))
	return out, nil
}

// resolveConfig: configID explicito, si no el snapshot del assignment, si no la activa del tenant.
func (s *ScoringService) resolveConfig(ctx context.Context, a domain.Assignment, configID string) (domain.ScoringConfiguration, error) {
	return resolveConfig(ctx, s.configs, s.logger, a, configID)
}

func (s *ScoringService) scoreAssignment(ctx context.Context, a domain.Assignment, cfg domain.ScoringConfiguration) (domain.TraitScores, error) {
	responses, err := s.responses.ListScored(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if len(responses) == 0 {
		return nil, fmt.Errorf("%w: assignment %s has no responses", domain.ErrEmptyResult, a.ID)
	}
	return Aggregate(cfg, responses, effectiveMethod(cfg))
}

func resolveConfig(ctx context.Context, configs repository.ConfigRepository, logger *zap.Logger, a domain.Assignment, configID string) (domain.ScoringConfiguration, error) {
	switch {
	case configID != "":
		cfg, err := configs.GetByID(ctx, configID)
		if err != nil {
			return domain.ScoringConfiguration{}, err
		}
		if cfg.TenantID != a.TenantID {
			return domain.ScoringConfiguration{}, domain.ErrConfigurationNotFound
		}
		return cfg, nil
	case a.HasConfigSnapshot():
		return configs.GetByID(ctx, *a.ConfigID)
	default:
		logger.Warn("assignment without config snapshot, using active configuration",
			zap.String("assignment_id", a.ID), zap.String("tenant_id", a.TenantID))
		return configs.GetActive(ctx, a.TenantID)
	}
}

func effectiveMethod(cfg domain.ScoringConfiguration) domain.ScoringMethod {
	if cfg.Method == "" {
		return domain.MethodWeightedMean
	}
	return cfg.Method
}

func recordSpanError(span trace.Span, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
