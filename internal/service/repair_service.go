package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"bigfive-core/internal/db"
	"bigfive-core/internal/domain"
	"bigfive-core/internal/repository"
)

// RepairService reconstruye resultados faltantes a partir de las respuestas guardadas.
type RepairService struct {
	assignments repository.AssignmentRepository
	responses   repository.ResponseRepository
	results     repository.ResultRepository
	configs     repository.ConfigRepository
	tx          TxRunner
	locker      AssignmentLocker
	resolver    *TraitKeyResolver
	logger      *zap.Logger
	now         func() time.Time
}

func NewRepairService(
	assignments repository.AssignmentRepository,
	responses repository.ResponseRepository,
	results repository.ResultRepository,
	configs repository.ConfigRepository,
	tx TxRunner,
	locker AssignmentLocker,
	logger *zap.Logger,
) *RepairService {
	if locker == nil {
		locker = NewMemoryAssignmentLocker(0)
	}
	return &RepairService{
		assignments: assignments,
		responses:   responses,
		results:     results,
		configs:     configs,
		tx:          tx,
		locker:      locker,
		resolver:    defaultKeyResolver,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// GetOrRepair devuelve el resultado guardado o lo reconstruye. Sin respuestas
// devuelve (zero, false, nil).
func (s *RepairService) GetOrRepair(ctx context.Context, assignmentID string) (domain.ScoredResult, bool, error) {
	res, err := s.results.GetByAssignment(ctx, assignmentID)
	if err == nil {
		return res, true, nil
	}
	if !errors.Is(err, domain.ErrResultNotFound) {
		return domain.ScoredResult{}, false, err
	}
	return s.repair(ctx, assignmentID, false)
}

// Repair recalcula siempre, reemplazando el resultado existente.
func (s *RepairService) Repair(ctx context.Context, assignmentID string) (domain.ScoredResult, bool, error) {
	return s.repair(ctx, assignmentID, true)
}

func (s *RepairService) repair(ctx context.Context, assignmentID string, force bool) (domain.ScoredResult, bool, error) {
	ctx, span := tracer.Start(ctx, "scoring.Repair", trace.WithAttributes(
		attribute.String("assignment.id", assignmentID),
		attribute.Bool("repair.forced", force),
	))
	defer span.End()

	unlock, err := s.locker.Lock(ctx, assignmentID)
	if err != nil {
		recordSpanError(span, err)
		return domain.ScoredResult{}, false, err
	}
	defer unlock()

	var (
		out   domain.ScoredResult
		found bool
	)
	err = s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		if !force {
			// otro request pudo haberlo reparado mientras esperabamos el lock.
			existing, err := s.results.GetByAssignment(ctx, assignmentID)
			if err == nil {
				out, found = existing, true
				return nil
			}
			if !errors.Is(err, domain.ErrResultNotFound) {
				return err
			}
		}
		a, err := s.assignments.LockByID(ctx, assignmentID)
		if err != nil {
			return err
		}
		n, err := s.responses.Count(ctx, a.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		out, err = s.persistScores(ctx, a)
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		recordSpanError(span, err)
		s.logger.Error("result repair failed", zap.String("assignment_id", assignmentID), zap.Error(err))
		return domain.ScoredResult{}, false, err
	}
	if found {
		s.logger.Info("result available", zap.String("assignment_id", assignmentID), zap.Bool("forced", force))
	}
	span.SetAttributes(attribute.Bool("repair.found", found))
	return out, found, nil
}

// persistScores corre dentro de una transaccion ReadWrite ya abierta: resuelve la
// configuracion (fijando el snapshot si faltaba), agrega, canoniza claves,
// guarda el resultado y marca el assignment como COMPLETED.
func (s *RepairService) persistScores(ctx context.Context, a domain.Assignment) (domain.ScoredResult, error) {
	cfg, err := resolveConfig(ctx, s.configs, s.logger, a, "")
	if err != nil {
		return domain.ScoredResult{}, err
	}
	if !a.HasConfigSnapshot() {
		if err := s.assignments.SetConfig(ctx, a.ID, cfg.ID); err != nil {
			return domain.ScoredResult{}, fmt.Errorf("snapshot config: %w", err)
		}
	}
	responses, err := s.responses.ListScored(ctx, a.ID)
	if err != nil {
		return domain.ScoredResult{}, err
	}
	method := effectiveMethod(cfg)
	scores, err := Aggregate(cfg, responses, method)
	if err != nil {
		return domain.ScoredResult{}, err
	}

	now := s.now()
	res, err := s.results.Upsert(ctx, domain.ScoredResult{
		ID:           uuid.NewString(),
		AssignmentID: a.ID,
		ConfigID:     cfg.ID,
		Method:       method,
		Scores:       s.resolver.CanonicalScores(scores),
		CreatedAt:    now,
	})
	if err != nil {
		return domain.ScoredResult{}, err
	}
	if a.Status != domain.AssignmentCompleted {
		if err := s.assignments.MarkCompleted(ctx, a.ID, now); err != nil {
			return domain.ScoredResult{}, err
		}
	}
	return res, nil
}
