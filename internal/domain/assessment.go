package domain

import (
	"math"
	"strings"
	"time"
)

type AssignmentStatus string

const (
	AssignmentPending    AssignmentStatus = "PENDING"
	AssignmentInProgress AssignmentStatus = "IN_PROGRESS"
	AssignmentCompleted  AssignmentStatus = "COMPLETED"
	AssignmentDeleted    AssignmentStatus = "DELETED"
)

const AssessmentTypeBigFive = "BIG_FIVE"

// Question pertenece a un modelo de evaluacion. La asociacion rasgo/faceta y la
// inversion son columnas explicitas.
type Question struct {
	ID                string  `json:"id"`
	AssessmentModelID string  `json:"assessment_model_id"`
	Text              string  `json:"text"`
	TraitKey          string  `json:"trait_key"`
	FacetKey          string  `json:"facet_key,omitempty"`
	Weight            float64 `json:"weight"`
	IsReverse         bool    `json:"is_reverse"`
}

// Response es una respuesta a una pregunta dentro de un assignment.
type Response struct {
	ID           string    `json:"id"`
	AssignmentID string    `json:"assignment_id"`
	QuestionID   string    `json:"question_id"`
	Value        int       `json:"value"`
	CreatedAt    time.Time `json:"created_at"`
}

// ScoredResponse une la respuesta con los metadatos de su pregunta.
type ScoredResponse struct {
	Response Response
	Question Question
}

// Answer es lo que llega en una submision.
type Answer struct {
	QuestionID string `json:"question_id" binding:"required"`
	Value      int    `json:"value"`
}

type Assignment struct {
	ID                string           `json:"id"`
	UserID            string           `json:"user_id"`
	TenantID          string           `json:"tenant_id"`
	AssessmentModelID string           `json:"assessment_model_id"`
	AssessmentType    string           `json:"assessment_type"`
	Status            AssignmentStatus `json:"status"`
	ConfigID          *string          `json:"config_id,omitempty"`
	CompletedAt       *time.Time       `json:"completed_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

func (a Assignment) HasConfigSnapshot() bool {
	return a.ConfigID != nil && strings.TrimSpace(*a.ConfigID) != ""
}

func validWeight(w float64) bool {
	return w > 0 && !math.IsNaN(w) && !math.IsInf(w, 0)
}

// ValidWeight indica si un peso es utilizable para ponderar.
func ValidWeight(w float64) bool {
	return validWeight(w)
}
