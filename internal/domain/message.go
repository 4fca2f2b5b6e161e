package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActionType represents the kind of coaching action
type ActionType string

const (
	ActionHint             ActionType = "hint"
	ActionEncouragement    ActionType = "encouragement"
	ActionStrategy         ActionType = "strategy"
	ActionBreak            ActionType = "break"
	ActionDifficultyAdjust ActionType = "difficulty_adjust"
	ActionNone             ActionType = "none"
)

// Actions enumerates every selectable action, in a fixed order used by the
// RL value table.
var Actions = []ActionType{
	ActionHint,
	ActionEncouragement,
	ActionStrategy,
	ActionBreak,
	ActionDifficultyAdjust,
	ActionNone,
}

// Priority orders competing coaching actions
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

// String returns the human-readable name of the priority
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "unknown"
	}
}

// TutoringAction is a candidate coaching action produced by the decision
// engine. It is a transient value: identity lives only in its ID.
type TutoringAction struct {
	ID          uuid.UUID     `json:"id"`
	Type        ActionType    `json:"type"`
	Content     string        `json:"content"`
	Priority    Priority      `json:"priority"`
	Reasoning   string        `json:"reasoning"` // internal, not shown to the student
	Confidence  float64       `json:"confidence"`
	Duration    time.Duration `json:"duration"` // how long to display
	Dismissible bool          `json:"dismissible"`
	CreatedAt   time.Time     `json:"created_at"`
}

// NewTutoringAction creates an action with an assigned ID and timestamp
func NewTutoringAction(actionType ActionType, content string, priority Priority) TutoringAction {
	return TutoringAction{
		ID:          uuid.New(),
		Type:        actionType,
		Content:     content,
		Priority:    priority,
		Duration:    defaultDuration(actionType),
		Dismissible: actionType != ActionBreak,
		CreatedAt:   time.Now(),
	}
}

func defaultDuration(t ActionType) time.Duration {
	switch t {
	case ActionBreak:
		return 30 * time.Second
	case ActionEncouragement:
		return 8 * time.Second
	default:
		return 12 * time.Second
	}
}

// CoachingMessage is a TutoringAction admitted for display, with its expiry
type CoachingMessage struct {
	TutoringAction
	DisplayedAt time.Time `json:"displayed_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AttemptEvent is the input shape for one question attempt
type AttemptEvent struct {
	QuestionID   string           `json:"question_id"`
	SkillID      string           `json:"skill_id"`
	Correct      bool             `json:"correct"`
	ResponseTime time.Duration    `json:"response_time"`
	Confidence   float64          `json:"confidence"`
	Difficulty   float64          `json:"difficulty"`
	Stress       StressIndicators `json:"stress"`
}

// QuestionProfile describes one available question for recommendation
type QuestionProfile struct {
	ID         string  `json:"id"`
	SkillID    string  `json:"skill_id"`
	Difficulty float64 `json:"difficulty"`
}

// RecommendedQuestion is a prioritized pick from the available set
type RecommendedQuestion struct {
	QuestionProfile
	Priority float64 `json:"priority"`
	Reason   string  `json:"reason"`
}

// LearningRecommendation is the strategy selector's output
type LearningRecommendation struct {
	NextSkillFocus       string                `json:"next_skill_focus"`
	TargetDifficulty     float64               `json:"target_difficulty"`
	Strategy             string                `json:"strategy"`
	RecommendedQuestions []RecommendedQuestion `json:"recommended_questions"`
	Reasoning            []string              `json:"reasoning"`
	Confidence           float64               `json:"confidence"`
	ExpectedMasteryGain  float64               `json:"expected_mastery_gain"`
}

// SessionMetrics is the aggregate handed to the analytics collaborator
type SessionMetrics struct {
	TotalQuestions      int     `json:"total_questions"`
	CorrectAnswers      int     `json:"correct_answers"`
	Interventions       int     `json:"interventions"`
	StressEvents        int     `json:"stress_events"`
	TimeManagementScore float64 `json:"time_management_score"`
}
