package engine

import (
	"time"

	"github.com/felixgeelhaar/prepcoach/internal/domain"
)

// Rule thresholds. These encode the pedagogical safety constraints that
// always outrank the learned policy.
const (
	stressBreakThreshold    = 0.7
	lowEngagementThreshold  = 0.4
	lowConfidenceThreshold  = 0.3
	slowResponseThreshold   = 180 * time.Second
	incorrectStreakLength   = 3
	responseTimeWindow      = 3
)

// candidate is a rule trigger's proposed action with its own confidence,
// used for tie-breaking between simultaneously firing rules.
type candidate struct {
	action     domain.TutoringAction
	confidence float64
}

// RuleEngine evaluates the fixed trigger set against student state.
// Triggers are pure functions of state; the engine only supplies content.
type RuleEngine struct {
	gen *ContentGenerator
}

// NewRuleEngine creates a rule engine with the given content generator
func NewRuleEngine(gen *ContentGenerator) *RuleEngine {
	return &RuleEngine{gen: gen}
}

// Evaluate runs every trigger and returns the single winning action, if any.
// Winner selection: highest priority rank first, then highest trigger
// confidence.
func (r *RuleEngine) Evaluate(s *domain.StudentState) (domain.TutoringAction, bool) {
	var fired []candidate

	if c, ok := r.stressTrigger(s); ok {
		fired = append(fired, c)
	}
	if c, ok := r.engagementTrigger(s); ok {
		fired = append(fired, c)
	}
	if c, ok := r.incorrectStreakTrigger(s); ok {
		fired = append(fired, c)
	}
	if c, ok := r.slowPaceTrigger(s); ok {
		fired = append(fired, c)
	}
	if c, ok := r.lowConfidenceTrigger(s); ok {
		fired = append(fired, c)
	}

	if len(fired) == 0 {
		return domain.TutoringAction{}, false
	}

	best := fired[0]
	for _, c := range fired[1:] {
		if c.action.Priority > best.action.Priority ||
			(c.action.Priority == best.action.Priority && c.confidence > best.confidence) {
			best = c
		}
	}
	best.action.Confidence = best.confidence
	return best.action, true
}

func (r *RuleEngine) stressTrigger(s *domain.StudentState) (candidate, bool) {
	if s.StressLevel <= stressBreakThreshold {
		return candidate{}, false
	}
	a := domain.NewTutoringAction(domain.ActionBreak, r.gen.For(domain.ActionBreak), domain.PriorityHigh)
	a.Reasoning = "sustained stress above break threshold"
	return candidate{action: a, confidence: s.StressLevel}, true
}

func (r *RuleEngine) engagementTrigger(s *domain.StudentState) (candidate, bool) {
	if s.EngagementLevel >= lowEngagementThreshold {
		return candidate{}, false
	}
	a := domain.NewTutoringAction(domain.ActionEncouragement, r.gen.For(domain.ActionEncouragement), domain.PriorityMedium)
	a.Reasoning = "engagement below threshold"
	return candidate{action: a, confidence: 1 - s.EngagementLevel}, true
}

func (r *RuleEngine) incorrectStreakTrigger(s *domain.StudentState) (candidate, bool) {
	if len(s.History) < incorrectStreakLength {
		return candidate{}, false
	}
	if s.ConsecutiveIncorrect() < incorrectStreakLength {
		return candidate{}, false
	}
	a := domain.NewTutoringAction(domain.ActionDifficultyAdjust, r.gen.For(domain.ActionDifficultyAdjust), domain.PriorityHigh)
	a.Reasoning = "three consecutive incorrect attempts"
	return candidate{action: a, confidence: 0.85}, true
}

func (r *RuleEngine) slowPaceTrigger(s *domain.StudentState) (candidate, bool) {
	avg, ok := s.AverageResponseTime(responseTimeWindow)
	if !ok || avg <= slowResponseThreshold {
		return candidate{}, false
	}
	a := domain.NewTutoringAction(domain.ActionStrategy, r.gen.For(domain.ActionStrategy), domain.PriorityMedium)
	a.Reasoning = "average response time over pacing threshold"
	return candidate{action: a, confidence: 0.7}, true
}

func (r *RuleEngine) lowConfidenceTrigger(s *domain.StudentState) (candidate, bool) {
	// Confidence is only meaningful once a few attempts exist
	if len(s.History) < 3 || s.ConfidenceLevel >= lowConfidenceThreshold {
		return candidate{}, false
	}
	a := domain.NewTutoringAction(domain.ActionEncouragement, r.gen.For(domain.ActionEncouragement), domain.PriorityMedium)
	a.Reasoning = "confidence below threshold"
	return candidate{action: a, confidence: 1 - s.ConfidenceLevel}, true
}
