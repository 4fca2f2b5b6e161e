// Package strategy scores a catalogue of pedagogical strategies against
// student state and produces question recommendations.
package strategy

import (
	"time"

	"github.com/felixgeelhaar/prepcoach/internal/domain"
)

// Strategy names, in canonical catalogue order. Catalogue order is the
// deterministic tie-breaker during selection.
const (
	MasteryFocused      = "mastery_focused"
	ZPDOptimization     = "zpd_optimization"
	SpacedRepetition    = "spaced_repetition"
	StressAdaptive      = "stress_adaptive"
	ConceptMapping      = "concept_mapping"
	PerformanceAdaptive = "performance_adaptive"
)

// Context is the session-level situation the selector scores against
type Context struct {
	SessionType   string        `json:"session_type"`
	TimeRemaining time.Duration `json:"time_remaining"`
	StressLevel   float64       `json:"stress_level"`
}

// Profile carries stable learner preferences
type Profile struct {
	LearningStyle       string  `json:"learning_style"`
	PreferredDifficulty float64 `json:"preferred_difficulty"` // 0 means no preference
}

// Input is everything an algorithm may consult. Algorithms are pure
// functions of this value.
type Input struct {
	State     *domain.StudentState
	Context   Context
	Profile   Profile
	Skills    []domain.SkillMastery
	Available []domain.QuestionProfile
}

// Output is one algorithm's recommendation
type Output struct {
	Questions           []domain.RecommendedQuestion // at most maxRecommendations, best first
	Reasoning           []string
	Confidence          float64
	TargetDifficulty    float64
	FocusSkill          string
	ExpectedMasteryGain float64
}

const maxRecommendations = 5

// Algorithm is the evaluation contract every catalogue strategy implements
type Algorithm interface {
	Evaluate(in Input) Output
}

// Condition is one applicability test contributing to a strategy's score.
// Met conditions add their weight; unmet ones subtract half of it.
type Condition struct {
	Metric string  `json:"metric" yaml:"metric"` // see metricValue for the vocabulary
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// Met reports whether the condition holds for the given metric snapshot
func (c Condition) Met(m MetricSnapshot) bool {
	v, ok := m.value(c.Metric)
	if !ok {
		return false
	}
	return v >= c.Min && v <= c.Max
}

// MetricSnapshot is the flattened view conditions are tested against
type MetricSnapshot struct {
	MasteryLevel   float64
	StressLevel    float64
	Engagement     float64
	CognitiveLoad  float64
	RecentAccuracy float64
	TimeRemaining  float64 // seconds
}

func (m MetricSnapshot) value(name string) (float64, bool) {
	switch name {
	case "mastery_level":
		return m.MasteryLevel, true
	case "stress_level":
		return m.StressLevel, true
	case "engagement_level":
		return m.Engagement, true
	case "cognitive_load":
		return m.CognitiveLoad, true
	case "recent_accuracy":
		return m.RecentAccuracy, true
	case "time_remaining":
		return m.TimeRemaining, true
	default:
		return 0, false
	}
}

// Metrics are the tracked effectiveness signals per strategy, each updated
// only through the selector's EMA.
type Metrics struct {
	SuccessRate           float64 `json:"success_rate" yaml:"success_rate"`
	EngagementImprovement float64 `json:"engagement_improvement" yaml:"engagement_improvement"`
	AdaptationAccuracy    float64 `json:"adaptation_accuracy" yaml:"adaptation_accuracy"`
	StressReduction       float64 `json:"stress_reduction" yaml:"stress_reduction"`
	MasteryGain           float64 `json:"mastery_gain" yaml:"mastery_gain"`
}

// Outcome is the observed result of applying a strategy, fed back into its
// metrics.
type Outcome struct {
	Success               bool
	EngagementImprovement float64
	AdaptationAccuracy    float64
	StressReduction       float64
	MasteryGain           float64
}

// Strategy is one catalogue entry
type Strategy struct {
	Name        string
	Conditions  []Condition
	Metrics     Metrics
	StressAware bool
	TimeAware   bool

	// TypicalDifficulty is the question difficulty this strategy tends to
	// serve, used to match learner difficulty preferences during scoring.
	TypicalDifficulty float64

	Algorithm Algorithm
}

// skillAccuracy is the observed per-skill accuracy, 0.5 when unattempted
func skillAccuracy(sk domain.SkillMastery) float64 {
	if sk.Attempts == 0 {
		return 0.5
	}
	return float64(sk.CorrectAttempts) / float64(sk.Attempts)
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
