package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"bigfive-core/internal/db"
	"bigfive-core/internal/domain"
	"bigfive-core/internal/repository"
)

// SubmissionService guarda las respuestas de un assignment y produce su resultado.
type SubmissionService struct {
	assignments repository.AssignmentRepository
	questions   repository.QuestionRepository
	responses   repository.ResponseRepository
	configs     repository.ConfigRepository
	repair      *RepairService
	tx          TxRunner
	locker      AssignmentLocker
	logger      *zap.Logger
}

func NewSubmissionService(
	assignments repository.AssignmentRepository,
	questions repository.QuestionRepository,
	responses repository.ResponseRepository,
	configs repository.ConfigRepository,
	repair *RepairService,
	tx TxRunner,
	locker AssignmentLocker,
	logger *zap.Logger,
) *SubmissionService {
	if locker == nil {
		locker = repair.locker
	}
	return &SubmissionService{
		assignments: assignments,
		questions:   questions,
		responses:   responses,
		configs:     configs,
		repair:      repair,
		tx:          tx,
		locker:      locker,
		logger:      logger,
	}
}

// Submit reemplaza las respuestas, fija el snapshot de configuracion y guarda el
// resultado, todo en una transaccion y bajo el lock del assignment.
func (s *SubmissionService) Submit(ctx context.Context, assignmentID string, answers []domain.Answer) (domain.ScoredResult, error) {
	if strings.TrimSpace(assignmentID) == "" {
		return domain.ScoredResult{}, fmt.Errorf("%w: assignment id is required", domain.ErrInvalidInput)
	}
	if len(answers) == 0 {
		return domain.ScoredResult{}, fmt.Errorf("%w: no answers submitted", domain.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		if _, dup := seen[a.QuestionID]; dup {
			return domain.ScoredResult{}, fmt.Errorf("%w: question %s answered twice", domain.ErrInvalidInput, a.QuestionID)
		}
		seen[a.QuestionID] = struct{}{}
	}

	unlock, err := s.locker.Lock(ctx, assignmentID)
	if err != nil {
		return domain.ScoredResult{}, err
	}
	defer unlock()

	var out domain.ScoredResult
	err = s.tx.WithinTx(ctx, db.ReadWrite, func(ctx context.Context) error {
		a, err := s.assignments.LockByID(ctx, assignmentID)
		if err != nil {
			return err
		}
		if a.Status == domain.AssignmentCompleted {
			return domain.ErrAlreadyCompleted
		}
		questions, err := s.questions.ListByModel(ctx, a.AssessmentModelID)
		if err != nil {
			return err
		}
		known := make(map[string]struct{}, len(questions))
		for _, q := range questions {
			known[q.ID] = struct{}{}
		}
		cfg, err := resolveConfig(ctx, s.configs, s.logger, a, "")
		if err != nil {
			return err
		}
		for _, ans := range answers {
			if _, ok := known[ans.QuestionID]; !ok {
				return fmt.Errorf("%w: %s", domain.ErrUnknownQuestion, ans.QuestionID)
			}
			if !cfg.Scale.Contains(ans.Value) {
				return fmt.Errorf("%w: question %s value %d outside %d..%d",
					domain.ErrResponseOutOfScale, ans.QuestionID, ans.Value, cfg.Scale.Min, cfg.Scale.Max)
			}
		}
		if !a.HasConfigSnapshot() {
			if err := s.assignments.SetConfig(ctx, a.ID, cfg.ID); err != nil {
				return err
			}
			id := cfg.ID
			a.ConfigID = &id
		}
		if err := s.responses.Replace(ctx, a.ID, answers, s.repair.now()); err != nil {
			return err
		}
		out, err = s.repair.persistScores(ctx, a)
		return err
	})
	if err != nil {
		s.logger.Warn("submission rejected", zap.String("assignment_id", assignmentID), zap.Error(err))
		return domain.ScoredResult{}, err
	}
	s.logger.Info("assignment submitted",
		zap.String("assignment_id", assignmentID), zap.Int("answers", len(answers)), zap.String("config_id", out.ConfigID))
	return out, nil
}
