package domain

import (
	"errors"
	"fmt"
	"strings"
)

// NotFound: siempre se propagan al caller, nunca se reintentan.
var (
	ErrNotFound               = errors.New("not found")
	ErrAssignmentNotFound     = fmt.Errorf("assignment %w", ErrNotFound)
	ErrConfigurationNotFound  = fmt.Errorf("scoring configuration %w", ErrNotFound)
	ErrConnectionNotFound     = fmt.Errorf("connection %w", ErrNotFound)
	ErrReportNotFound         = fmt.Errorf("cross-profile report %w", ErrNotFound)
	ErrUserNotFound           = fmt.Errorf("user %w", ErrNotFound)
	ErrResultNotFound         = fmt.Errorf("scored result %w", ErrNotFound)
	ErrTraitNotFound          = fmt.Errorf("trait config %w", ErrNotFound)
	ErrFacetNotFound          = fmt.Errorf("facet config %w", ErrNotFound)
	ErrTextNotFound           = fmt.Errorf("interpretive text %w", ErrNotFound)
	ErrRecommendationNotFound = fmt.Errorf("recommendation %w", ErrNotFound)
)

// DataIntegrity: se devuelven con detalle, nunca se convierten en un score por defecto.
var (
	ErrDataIntegrity      = errors.New("data integrity")
	ErrEmptyResult        = fmt.Errorf("%w: no response maps to a configured trait", ErrDataIntegrity)
	ErrMalformedWeight    = fmt.Errorf("%w: malformed weight", ErrDataIntegrity)
	ErrInvalidThresholds  = fmt.Errorf("%w: invalid thresholds", ErrDataIntegrity)
	ErrInvalidScale       = fmt.Errorf("%w: invalid scale", ErrDataIntegrity)
	ErrResponseOutOfScale = fmt.Errorf("%w: response value out of scale", ErrDataIntegrity)
)

// Entrada invalida del caller.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidConnection = errors.New("invalid or inactive connection")
	ErrUnknownQuestion   = fmt.Errorf("%w: question does not belong to assessment", ErrInvalidInput)
	ErrAlreadyCompleted  = errors.New("assignment already completed")
)

// Degraded: solo se registra; Interpretation.Partial lo expone.
var ErrInterpretationUnavailable = errors.New("interpretation unavailable")

// Concurrency.
var ErrAssignmentBusy = errors.New("assignment is being modified by another request")

// ErrMissingResult se usa con errors.Is contra *MissingResultError.
var ErrMissingResult = errors.New("missing big five result")

// MissingResultError lleva el diagnostico para distinguir "nunca hizo el test"
// de "datos corruptos".
type MissingResultError struct {
	UserID           string
	UserName         string
	UserEmail        string
	AssignmentsFound int
	Completed        int
	WithResult       int
	WithResponses    int
	// Causes: assignments COMPLETED descartados por integridad o configuracion.
	Causes []string
}

func (e *MissingResultError) Error() string {
	who := e.UserID
	if e.UserName != "" {
		who = fmt.Sprintf("%s (%s)", e.UserName, e.UserID)
	}
	switch {
	case len(e.Causes) > 0:
		return fmt.Sprintf("%s: %s has %d assignment(s), none scorable: %s",
			ErrMissingResult, who, e.AssignmentsFound, strings.Join(e.Causes, "; "))
	case e.AssignmentsFound == 0:
		return fmt.Sprintf("%s: %s has no big five assignment", ErrMissingResult, who)
	case e.WithResponses == 0 && e.WithResult == 0:
		return fmt.Sprintf("%s: %s has %d assignment(s) but never answered", ErrMissingResult, who, e.AssignmentsFound)
	case e.Completed == 0:
		return fmt.Sprintf("%s: %s has %d assignment(s), none completed", ErrMissingResult, who, e.AssignmentsFound)
	default:
		return fmt.Sprintf("%s: %s has %d assignment(s), %d with result, %d with responses, none scorable",
			ErrMissingResult, who, e.AssignmentsFound, e.WithResult, e.WithResponses)
	}
}

func (e *MissingResultError) Is(target error) bool {
	return target == ErrMissingResult
}
