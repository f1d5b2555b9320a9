package domain

import "time"

type ConnectionStatus string

const (
	ConnectionPending ConnectionStatus = "PENDING"
	ConnectionActive  ConnectionStatus = "ACTIVE"
	ConnectionBlocked ConnectionStatus = "BLOCKED"
)

type Connection struct {
	ID        string           `json:"id"`
	UserAID   string           `json:"user_a_id"`
	UserBID   string           `json:"user_b_id"`
	Status    ConnectionStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

// Counterpart devuelve el otro integrante de la conexion.
func (c Connection) Counterpart(userID string) (string, bool) {
	switch userID {
	case c.UserAID:
		return c.UserBID, true
	case c.UserBID:
		return c.UserAID, true
	}
	return "", false
}

// Claves canonicas de los cinco rasgos.
const (
	TraitOpenness          = "OPENNESS"
	TraitConscientiousness = "CONSCIENTIOUSNESS"
	TraitExtraversion      = "EXTRAVERSION"
	TraitAgreeableness     = "AGREEABLENESS"
	TraitNeuroticism       = "NEUROTICISM"
)

func CanonicalTraits() []string {
	return []string{TraitOpenness, TraitConscientiousness, TraitExtraversion, TraitAgreeableness, TraitNeuroticism}
}

type Similarity string

const (
	HighSimilarity     Similarity = "HIGH_SIMILARITY"
	ModerateSimilarity Similarity = "MODERATE_SIMILARITY"
	Complementary      Similarity = "COMPLEMENTARY"
	HighDissonance     Similarity = "HIGH_DISSONANCE"
)

type MatchLevel string

const (
	HighSynchrony MatchLevel = "HIGH_SYNCHRONY"
	Balanced      MatchLevel = "BALANCED"
	Challenging   MatchLevel = "CHALLENGING"
)

type TraitGap struct {
	ScoreA         float64    `json:"score_a"`
	ScoreB         float64    `json:"score_b"`
	Diff           float64    `json:"diff"`
	Classification Similarity `json:"classification"`
	Incomplete     bool       `json:"incomplete,omitempty"`
}

// CrossProfileReport guarda snapshots por valor; no se actualiza si cambian los scores.
type CrossProfileReport struct {
	ID                 string              `json:"id"`
	ConnectionID       string              `json:"connection_id"`
	AuthorID           string              `json:"author_id"`
	TargetID           string              `json:"target_id"`
	AuthorAssignmentID string              `json:"author_assignment_id"`
	TargetAssignmentID string              `json:"target_assignment_id"`
	ScoreGap           map[string]TraitGap `json:"score_gap"`
	AverageDiff        float64             `json:"average_diff"`
	MatchLevel         MatchLevel          `json:"match_level"`
	CreatedAt          time.Time           `json:"created_at"`
}
