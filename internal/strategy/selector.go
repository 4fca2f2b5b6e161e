package strategy

import (
	"log/slog"

	"github.com/felixgeelhaar/prepcoach/internal/domain"
)

// Scoring weights for the historical effectiveness terms
const (
	weightSuccessRate    = 0.3
	weightEngagement     = 0.2
	weightAdaptation     = 0.2
	stressAwareBonus     = 0.3
	timeAwareBonus       = 0.2
	contextualFitWeight  = 0.2
	timePressureCutoff   = 300.0 // seconds remaining
	stressBonusThreshold = 0.7
)

// metricsAlpha smooths metric updates; selection history moves slowly
const metricsAlpha = 0.1

// Selector owns one student's strategy catalogue. Catalogue metrics and
// personalization overrides are per-selector state, never shared.
type Selector struct {
	catalogue []Strategy
	overrides map[string][]Condition // strategy name -> substituted condition weights
	logger    *slog.Logger
}

// NewSelector builds a selector over the default catalogue
func NewSelector(logger *slog.Logger) *Selector {
	return &Selector{
		catalogue: defaultCatalogue(),
		overrides: make(map[string][]Condition),
		logger:    logger,
	}
}

// NewSelectorWithCatalogue builds a selector over a tuned catalogue, used
// when a YAML tuning file is supplied. The entries are copied: metric
// updates on one student's selector must never leak into another's.
func NewSelectorWithCatalogue(catalogue []Strategy, logger *slog.Logger) *Selector {
	owned := make([]Strategy, len(catalogue))
	copy(owned, catalogue)
	return &Selector{
		catalogue: owned,
		overrides: make(map[string][]Condition),
		logger:    logger,
	}
}

// Select scores every catalogue strategy and returns the winner. Selection
// is deterministic: identical inputs and catalogue state produce the same
// strategy, with catalogue order breaking ties.
func (s *Selector) Select(state *domain.StudentState, ctx Context, profile Profile, avgMastery float64) *Strategy {
	snap := snapshot(state, ctx, avgMastery)

	bestIdx := 0
	bestScore := s.score(&s.catalogue[0], snap, ctx, profile)
	for i := 1; i < len(s.catalogue); i++ {
		if sc := s.score(&s.catalogue[i], snap, ctx, profile); sc > bestScore {
			bestIdx, bestScore = i, sc
		}
	}

	winner := &s.catalogue[bestIdx]
	s.logger.Debug("strategy selected", "strategy", winner.Name, "score", bestScore)
	return winner
}

// Recommend runs selection and the winner's algorithm in one step
func (s *Selector) Recommend(in Input, avgMastery float64) domain.LearningRecommendation {
	winner := s.Select(in.State, in.Context, in.Profile, avgMastery)
	out := winner.Algorithm.Evaluate(in)

	return domain.LearningRecommendation{
		NextSkillFocus:       out.FocusSkill,
		TargetDifficulty:     out.TargetDifficulty,
		Strategy:             winner.Name,
		RecommendedQuestions: out.Questions,
		Reasoning:            out.Reasoning,
		Confidence:           out.Confidence,
		ExpectedMasteryGain:  out.ExpectedMasteryGain,
	}
}

func (s *Selector) score(st *Strategy, snap MetricSnapshot, ctx Context, profile Profile) float64 {
	conditions := st.Conditions
	if override, ok := s.overrides[st.Name]; ok {
		conditions = override
	}

	var score float64
	for _, c := range conditions {
		if c.Met(snap) {
			score += c.Weight
		} else {
			score -= 0.5 * c.Weight
		}
	}

	score += weightSuccessRate * st.Metrics.SuccessRate
	score += weightEngagement * st.Metrics.EngagementImprovement
	score += weightAdaptation * st.Metrics.AdaptationAccuracy

	if st.StressAware && ctx.StressLevel > stressBonusThreshold {
		score += stressAwareBonus
	}
	if st.TimeAware && ctx.TimeRemaining.Seconds() < timePressureCutoff && ctx.TimeRemaining > 0 {
		score += timeAwareBonus
	}
	score += contextualFit(st, profile)
	return score
}

// contextualFit rewards strategies whose typical difficulty matches the
// learner's stated preference. Zero preference means no fit signal.
func contextualFit(st *Strategy, profile Profile) float64 {
	if profile.PreferredDifficulty <= 0 || st.TypicalDifficulty <= 0 {
		return 0
	}
	gap := profile.PreferredDifficulty - st.TypicalDifficulty
	if gap < 0 {
		gap = -gap
	}
	return contextualFitWeight * (1 - gap)
}

// UpdatePerformance folds an observed outcome into a strategy's tracked
// metrics. This is the only mutation path for catalogue metrics.
func (s *Selector) UpdatePerformance(name string, outcome Outcome) {
	st := s.byName(name)
	if st == nil {
		s.logger.Warn("performance update for unknown strategy ignored", "strategy", name)
		return
	}

	success := 0.0
	if outcome.Success {
		success = 1.0
	}
	m := &st.Metrics
	m.SuccessRate = ema(m.SuccessRate, success)
	m.EngagementImprovement = ema(m.EngagementImprovement, outcome.EngagementImprovement)
	m.AdaptationAccuracy = ema(m.AdaptationAccuracy, outcome.AdaptationAccuracy)
	m.StressReduction = ema(m.StressReduction, outcome.StressReduction)
	m.MasteryGain = ema(m.MasteryGain, outcome.MasteryGain)
}

// Personalize substitutes a student-specific condition set for a strategy.
// Passing nil conditions clears the override. Reports whether the strategy
// exists.
func (s *Selector) Personalize(name string, conditions []Condition) bool {
	if s.byName(name) == nil {
		s.logger.Warn("personalization for unknown strategy ignored", "strategy", name)
		return false
	}
	if conditions == nil {
		delete(s.overrides, name)
		return true
	}
	s.overrides[name] = conditions
	return true
}

// Metrics returns the current tracked metrics for a strategy
func (s *Selector) Metrics(name string) (Metrics, bool) {
	st := s.byName(name)
	if st == nil {
		return Metrics{}, false
	}
	return st.Metrics, true
}

func (s *Selector) byName(name string) *Strategy {
	for i := range s.catalogue {
		if s.catalogue[i].Name == name {
			return &s.catalogue[i]
		}
	}
	return nil
}

func ema(prev, sample float64) float64 {
	return metricsAlpha*sample + (1-metricsAlpha)*prev
}

func snapshot(state *domain.StudentState, ctx Context, avgMastery float64) MetricSnapshot {
	accuracy := 0.5
	if acc, ok := state.RecentAccuracy(5); ok {
		accuracy = acc
	}
	return MetricSnapshot{
		MasteryLevel:   avgMastery,
		StressLevel:    state.StressLevel,
		Engagement:     state.EngagementLevel,
		CognitiveLoad:  state.CognitiveLoad,
		RecentAccuracy: accuracy,
		TimeRemaining:  ctx.TimeRemaining.Seconds(),
	}
}

// defaultCatalogue builds the built-in strategies with neutral starting
// metrics. Metric defaults are 0.5 so no strategy starts with a historical
// advantage.
func defaultCatalogue() []Strategy {
	neutral := Metrics{
		SuccessRate:           0.5,
		EngagementImprovement: 0.5,
		AdaptationAccuracy:    0.5,
		StressReduction:       0.5,
		MasteryGain:           0.5,
	}

	return []Strategy{
		{
			Name: MasteryFocused,
			Conditions: []Condition{
				{Metric: "mastery_level", Min: 0, Max: 0.7, Weight: 1.0},
				{Metric: "stress_level", Min: 0, Max: 0.6, Weight: 0.5},
			},
			Metrics:           neutral,
			TypicalDifficulty: 0.35,
			Algorithm:         masteryAlgorithm{},
		},
		{
			Name: ZPDOptimization,
			Conditions: []Condition{
				{Metric: "engagement_level", Min: 0.5, Max: 1.0, Weight: 1.0},
				{Metric: "cognitive_load", Min: 0, Max: 0.7, Weight: 0.5},
			},
			Metrics:           neutral,
			TypicalDifficulty: 0.55,
			Algorithm:         zpdAlgorithm{},
		},
		{
			Name: SpacedRepetition,
			Conditions: []Condition{
				{Metric: "mastery_level", Min: 0.5, Max: 1.0, Weight: 1.0},
			},
			Metrics:           neutral,
			TimeAware:         true,
			TypicalDifficulty: 0.5,
			Algorithm:         spacedRepetitionAlgorithm{},
		},
		{
			Name: StressAdaptive,
			Conditions: []Condition{
				{Metric: "stress_level", Min: 0.6, Max: 1.0, Weight: 1.5},
			},
			Metrics:           neutral,
			StressAware:       true,
			TypicalDifficulty: 0.3,
			Algorithm:         stressAdaptiveAlgorithm{},
		},
		{
			Name: ConceptMapping,
			Conditions: []Condition{
				{Metric: "mastery_level", Min: 0, Max: 0.5, Weight: 0.8},
				{Metric: "recent_accuracy", Min: 0, Max: 0.5, Weight: 0.5},
			},
			Metrics:           neutral,
			TypicalDifficulty: 0.35,
			Algorithm:         conceptMappingAlgorithm{},
		},
		{
			Name: PerformanceAdaptive,
			Conditions: []Condition{
				{Metric: "engagement_level", Min: 0.3, Max: 1.0, Weight: 0.4},
			},
			Metrics:           neutral,
			StressAware:       true,
			TimeAware:         true,
			TypicalDifficulty: 0.5,
			Algorithm:         ensembleAlgorithm{},
		},
	}
}
