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
	"golang.org/x/sync/errgroup"

	"bigfive-core/internal/domain"
	"bigfive-core/internal/repository"
)

// ResultResolver entrega el resultado de un assignment, reparandolo si hace falta.
type ResultResolver interface {
	GetOrRepair(ctx context.Context, assignmentID string) (domain.ScoredResult, bool, error)
}

type CrossProfileService struct {
	connections repository.ConnectionRepository
	users       repository.UserRepository
	assignments repository.AssignmentRepository
	responses   repository.ResponseRepository
	results     repository.ResultRepository
	reports     repository.CrossProfileRepository
	resolver    ResultResolver
	logger      *zap.Logger
	now         func() time.Time
}

func NewCrossProfileService(
	connections repository.ConnectionRepository,
	users repository.UserRepository,
	assignments repository.AssignmentRepository,
	responses repository.ResponseRepository,
	results repository.ResultRepository,
	reports repository.CrossProfileRepository,
	resolver ResultResolver,
	logger *zap.Logger,
) *CrossProfileService {
	return &CrossProfileService{
		connections: connections,
		users:       users,
		assignments: assignments,
		responses:   responses,
		results:     results,
		reports:     reports,
		resolver:    resolver,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type partyResult struct {
	assignmentID string
	result       domain.ScoredResult
}

// CompareProfiles compara al solicitante con la otra parte de una conexion ACTIVE
// y guarda el reporte.
func (s *CrossProfileService) CompareProfiles(ctx context.Context, connectionID, requesterID string) (domain.CrossProfileReport, error) {
	ctx, span := tracer.Start(ctx, "scoring.CompareProfiles", trace.WithAttributes(
		attribute.String("connection.id", connectionID),
		attribute.String("author.id", requesterID),
	))
	defer span.End()

	conn, err := s.connections.GetByID(ctx, connectionID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.CrossProfileReport{}, fmt.Errorf("%w: connection %s does not exist", domain.ErrInvalidConnection, connectionID)
	}
	if err != nil {
		recordSpanError(span, err)
		return domain.CrossProfileReport{}, err
	}
	if conn.Status != domain.ConnectionActive {
		return domain.CrossProfileReport{}, fmt.Errorf("%w: connection %s is %s", domain.ErrInvalidConnection, conn.ID, conn.Status)
	}
	targetID, ok := conn.Counterpart(requesterID)
	if !ok {
		return domain.CrossProfileReport{}, fmt.Errorf("%w: user %s is not part of connection %s", domain.ErrInvalidConnection, requesterID, conn.ID)
	}

	var author, target partyResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		author, err = s.latestResult(gctx, requesterID)
		return err
	})
	g.Go(func() error {
		var err error
		target, err = s.latestResult(gctx, targetID)
		return err
	})
	if err := g.Wait(); err != nil {
		recordSpanError(span, err)
		return domain.CrossProfileReport{}, err
	}

	gaps, avg := ComputeGaps(author.result.Scores, target.result.Scores)
	for trait, gap := range gaps {
		if gap.Incomplete {
			s.logger.Warn("trait missing from scored result, counted as 0",
				zap.String("connection_id", conn.ID), zap.String("trait", trait),
				zap.String("author_assignment_id", author.assignmentID),
				zap.String("target_assignment_id", target.assignmentID))
		}
	}

	report := domain.CrossProfileReport{
		ID:                 uuid.NewString(),
		ConnectionID:       conn.ID,
		AuthorID:           requesterID,
		TargetID:           targetID,
		AuthorAssignmentID: author.assignmentID,
		TargetAssignmentID: target.assignmentID,
		ScoreGap:           gaps,
		AverageDiff:        avg,
		MatchLevel:         ClassifyMatch(avg),
		CreatedAt:          s.now(),
	}
	if err := s.reports.Create(ctx, report); err != nil {
		recordSpanError(span, err)
		return domain.CrossProfileReport{}, err
	}
	span.SetAttributes(attribute.String("match.level", string(report.MatchLevel)))
	s.logger.Info("cross profile report created",
		zap.String("report_id", report.ID), zap.String("match_level", string(report.MatchLevel)))
	return report, nil
}

// ReportViewer identifica a quien lee reportes guardados.
type ReportViewer struct {
	UserID   string
	TenantID string
	Role     string
}

// GetReport devuelve un reporte guardado si el lector es parte de la conexion,
// SUPER_ADMIN, o TENANT_ADMIN del tenant de alguno de los integrantes.
func (s *CrossProfileService) GetReport(ctx context.Context, id string, viewer ReportViewer) (domain.CrossProfileReport, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return domain.CrossProfileReport{}, err
	}
	ok, err := s.canView(ctx, viewer, report.AuthorID, report.TargetID)
	if err != nil {
		return domain.CrossProfileReport{}, err
	}
	if !ok {
		return domain.CrossProfileReport{}, domain.ErrReportNotFound
	}
	return report, nil
}

// ListReports lista los reportes de una conexion, mas reciente primero.
func (s *CrossProfileService) ListReports(ctx context.Context, connectionID string, viewer ReportViewer) ([]domain.CrossProfileReport, error) {
	conn, err := s.connections.GetByID(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	ok, err := s.canView(ctx, viewer, conn.UserAID, conn.UserBID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrConnectionNotFound
	}
	return s.reports.ListByConnection(ctx, connectionID)
}

func (s *CrossProfileService) canView(ctx context.Context, v ReportViewer, userIDs ...string) (bool, error) {
	if v.Role == domain.RoleSuperAdmin {
		return true, nil
	}
	for _, id := range userIDs {
		if id == v.UserID {
			return true, nil
		}
	}
	if v.Role != domain.RoleTenantAdmin || v.TenantID == "" {
		return false, nil
	}
	for _, id := range userIDs {
		u, err := s.users.GetByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		if u.TenantID == v.TenantID {
			return true, nil
		}
	}
	return false, nil
}

// latestResult recorre los assignments COMPLETED del usuario (mas reciente
// primero) hasta encontrar uno con resultado guardado o reparable. Los PENDING e
// IN_PROGRESS no se tocan: repararlos cerraria un test que el usuario sigue
// respondiendo. Solo se saltan los assignments irrecuperables por datos o
// configuracion; cualquier otro error se devuelve tal cual.
func (s *CrossProfileService) latestResult(ctx context.Context, userID string) (partyResult, error) {
	list, err := s.assignments.ListByUser(ctx, userID, domain.AssessmentTypeBigFive)
	if err != nil {
		return partyResult{}, err
	}
	var causes []string
	for _, a := range list {
		if a.Status != domain.AssignmentCompleted {
			continue
		}
		res, ok, err := s.resolver.GetOrRepair(ctx, a.ID)
		if err != nil {
			if !skippable(err) {
				return partyResult{}, err
			}
			s.logger.Warn("skipping unscorable assignment",
				zap.String("user_id", userID), zap.String("assignment_id", a.ID), zap.Error(err))
			causes = append(causes, fmt.Sprintf("%s: %v", a.ID, err))
			continue
		}
		if ok {
			return partyResult{assignmentID: a.ID, result: res}, nil
		}
	}
	return partyResult{}, s.missingResult(ctx, userID, list, causes)
}

func skippable(err error) bool {
	return errors.Is(err, domain.ErrDataIntegrity) || errors.Is(err, domain.ErrConfigurationNotFound)
}

func (s *CrossProfileService) missingResult(ctx context.Context, userID string, list []domain.Assignment, causes []string) error {
	diag := &domain.MissingResultError{UserID: userID, AssignmentsFound: len(list), Causes: causes}
	u, err := s.users.GetByID(ctx, userID)
	switch {
	case err == nil:
		diag.UserName = u.Name
		diag.UserEmail = u.Email
	case !errors.Is(err, domain.ErrNotFound):
		return err
	}
	for _, a := range list {
		if a.Status == domain.AssignmentCompleted {
			diag.Completed++
		}
		_, err := s.results.GetByAssignment(ctx, a.ID)
		switch {
		case err == nil:
			diag.WithResult++
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		n, err := s.responses.Count(ctx, a.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			diag.WithResponses++
		}
	}
	s.logger.Warn("missing big five result", zap.String("user_id", userID),
		zap.Int("assignments", diag.AssignmentsFound),
		zap.Int("completed", diag.Completed),
		zap.Int("with_result", diag.WithResult),
		zap.Int("with_responses", diag.WithResponses),
		zap.Strings("causes", diag.Causes))
	return diag
}
