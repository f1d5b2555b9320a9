package service

import (
	"context"

	"go.uber.org/zap"

	"bigfive-core/internal/domain"
	"bigfive-core/internal/repository"
)

// RepairOutcome es el resultado de reparar un assignment dentro de RepairAll.
type RepairOutcome struct {
	AssignmentID string `json:"assignment_id"`
	Repaired     bool   `json:"repaired"`
	Error        string `json:"error,omitempty"`
}

type AuditService struct {
	assignments repository.AssignmentRepository
	repair      *RepairService
	logger      *zap.Logger
}

func NewAuditService(assignments repository.AssignmentRepository, repair *RepairService, logger *zap.Logger) *AuditService {
	return &AuditService{assignments: assignments, repair: repair, logger: logger}
}

// MissingResults lista los assignments COMPLETED sin resultado del tenant.
func (s *AuditService) MissingResults(ctx context.Context, tenantID string) ([]domain.MissingResultEntry, error) {
	return s.assignments.ListCompletedWithoutResult(ctx, tenantID)
}

// RepairAll repara en secuencia los assignments sin resultado. Un fallo no corta el resto.
func (s *AuditService) RepairAll(ctx context.Context, tenantID string) ([]RepairOutcome, error) {
	missing, err := s.MissingResults(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]RepairOutcome, 0, len(missing))
	for _, m := range missing {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		o := RepairOutcome{AssignmentID: m.Assignment.ID}
		if !m.HasResponses {
			o.Error = "no responses"
			out = append(out, o)
			continue
		}
		_, ok, err := s.repair.GetOrRepair(ctx, m.Assignment.ID)
		switch {
		case err != nil:
			o.Error = err.Error()
			s.logger.Warn("audit repair failed", zap.String("assignment_id", m.Assignment.ID), zap.Error(err))
		default:
			o.Repaired = ok
		}
		out = append(out, o)
	}
	return out, nil
}
