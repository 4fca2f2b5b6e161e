package engine

import (
	"log/slog"

	"github.com/felixgeelhaar/prepcoach/internal/domain"
)

// Engine decides whether and how to intervene after each attempt. Rules
// always outrank the learned policy: the Q-learner is consulted only when no
// rule fires, and an ActionNone pick suppresses the intervention entirely.
type Engine struct {
	rules   *RuleEngine
	learner *QLearner
	gen     *ContentGenerator
	logger  *slog.Logger
}

// New creates a decision engine. One engine per session; nothing here is safe
// for concurrent use.
func New(cfg QConfig, logger *slog.Logger) *Engine {
	gen := NewContentGenerator(cfg.Seed)
	return &Engine{
		rules:   NewRuleEngine(gen),
		learner: NewQLearner(cfg),
		gen:     gen,
		logger:  logger,
	}
}

// Decide returns an intervention for the current state, if one is warranted
func (e *Engine) Decide(s *domain.StudentState) (domain.TutoringAction, bool) {
	if action, ok := e.rules.Evaluate(s); ok {
		e.logger.Debug("rule intervention",
			"type", action.Type,
			"priority", action.Priority.String(),
			"reason", action.Reasoning,
		)
		return action, true
	}

	key := StateKey(s)
	picked := e.learner.SelectAction(key)
	if picked == domain.ActionNone {
		return domain.TutoringAction{}, false
	}

	action := domain.NewTutoringAction(picked, e.gen.For(picked), domain.PriorityLow)
	action.Reasoning = "learned policy"
	action.Confidence = 0.5
	e.logger.Debug("policy intervention", "type", action.Type, "state", key)
	return action, true
}

// EvaluateRules runs only the rule triggers, without touching the learned
// policy. Used by the periodic evaluator between attempts, where no reward
// will follow.
func (e *Engine) EvaluateRules(s *domain.StudentState) (domain.TutoringAction, bool) {
	return e.rules.Evaluate(s)
}

// ObserveOutcome feeds the reward for the most recent attempt back into the
// learned policy. The state must already reflect the attempt.
func (e *Engine) ObserveOutcome(s *domain.StudentState, rec domain.PerformanceRecord) {
	e.learner.Observe(Reward(rec), StateKey(s))
}

// StressEvent handles an instantaneous stress sample arriving between
// attempts. A reading over the break threshold produces an urgent,
// non-dismissible break.
func (e *Engine) StressEvent(s *domain.StudentState, ind domain.StressIndicators) (domain.TutoringAction, bool) {
	s.ApplyStressSample(ind)
	if ind.Score() <= stressBreakThreshold {
		return domain.TutoringAction{}, false
	}
	action := domain.NewTutoringAction(domain.ActionBreak, e.gen.For(domain.ActionBreak), domain.PriorityUrgent)
	action.Reasoning = "acute stress sample"
	action.Confidence = ind.Score()
	e.logger.Debug("urgent break", "score", ind.Score())
	return action, true
}

// ExplorationRate exposes the learner's observed exploration fraction
func (e *Engine) ExplorationRate() float64 {
	return e.learner.ExplorationRate()
}
