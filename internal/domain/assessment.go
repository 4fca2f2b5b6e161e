package domain

import (
	"time"
)

// SkillGrowthRate represents the velocity of skill improvement
type SkillGrowthRate string

const (
	GrowthRapid     SkillGrowthRate = "rapid"
	GrowthSteady    SkillGrowthRate = "steady"
	GrowthSlow      SkillGrowthRate = "slow"
	GrowthPlateaued SkillGrowthRate = "plateaued"
)

// SkillAssessment is the end-of-session rollup handed to analytics
type SkillAssessment struct {
	OverallMastery  float64         `json:"overall_mastery"`
	GrowthRate      SkillGrowthRate `json:"growth_rate"`
	StrongestSkills []string        `json:"strongest_skills"`
	WeakestSkills   []string        `json:"weakest_skills"`
	SuggestedFocus  string          `json:"suggested_focus"`
	ReadyToAdvance  bool            `json:"ready_to_advance"`
}

// SkillEvaluator is a domain service for cross-cutting skill analysis
type SkillEvaluator struct{}

// NewSkillEvaluator creates a new skill evaluator
func NewSkillEvaluator() *SkillEvaluator {
	return &SkillEvaluator{}
}

// Evaluate produces an assessment from the tracker snapshot and the current
// student state.
func (e *SkillEvaluator) Evaluate(skills []SkillMastery, state *StudentState) *SkillAssessment {
	a := &SkillAssessment{}
	if len(skills) == 0 {
		return a
	}

	a.OverallMastery = e.weightedMastery(skills)
	a.GrowthRate = e.growthRate(skills, state)
	a.StrongestSkills, a.WeakestSkills = e.rankSkills(skills)
	a.SuggestedFocus = e.suggestFocus(skills, a)
	a.ReadyToAdvance = a.OverallMastery > 0.6 &&
		a.GrowthRate != GrowthSlow &&
		a.GrowthRate != GrowthPlateaued

	return a
}

// weightedMastery averages mastery weighted by attempts, boosting recently
// practiced skills.
func (e *SkillEvaluator) weightedMastery(skills []SkillMastery) float64 {
	var weightedSum, totalWeight float64
	for _, sk := range skills {
		weight := float64(sk.Attempts)
		if weight == 0 {
			weight = 0.5 // untouched skills still count a little
		}
		if !sk.LastAttemptAt.IsZero() && time.Since(sk.LastAttemptAt) < time.Hour {
			weight *= 1.5
		}
		weightedSum += sk.Mastery * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}

func (e *SkillEvaluator) growthRate(skills []SkillMastery, state *StudentState) SkillGrowthRate {
	if state == nil || len(state.History) < 10 {
		return GrowthSteady
	}

	avg := e.weightedMastery(skills)
	velocity := state.LearningVelocity

	switch {
	case velocity > 0.2 && avg > 0.5:
		return GrowthRapid
	case velocity < -0.2:
		return GrowthSlow
	case velocity >= -0.05 && velocity <= 0.05 && avg > 0.4 && avg < 0.6:
		return GrowthPlateaued
	default:
		return GrowthSteady
	}
}

// rankSkills returns up to three strongest and three weakest attempted skills
func (e *SkillEvaluator) rankSkills(skills []SkillMastery) (strongest, weakest []string) {
	ranked := make([]SkillMastery, len(skills))
	copy(ranked, skills)

	for i := 1; i < len(ranked); i++ {
		j := i
		for j > 0 && ranked[j-1].Mastery < ranked[j].Mastery {
			ranked[j-1], ranked[j] = ranked[j], ranked[j-1]
			j--
		}
	}

	for i := 0; i < len(ranked) && i < 3; i++ {
		strongest = append(strongest, ranked[i].SkillID)
	}
	for i := len(ranked) - 1; i >= 0 && len(weakest) < 3; i-- {
		if ranked[i].Attempts > 0 {
			weakest = append(weakest, ranked[i].SkillID)
		}
	}
	return strongest, weakest
}

// suggestFocus recommends the next skill to work on: the weakest skill with
// recent activity, falling back to the strongest.
func (e *SkillEvaluator) suggestFocus(skills []SkillMastery, a *SkillAssessment) string {
	byID := make(map[string]SkillMastery, len(skills))
	for _, sk := range skills {
		byID[sk.SkillID] = sk
	}

	for _, id := range a.WeakestSkills {
		sk := byID[id]
		if !sk.LastAttemptAt.IsZero() && time.Since(sk.LastAttemptAt) < 24*time.Hour {
			return id
		}
	}
	if len(a.StrongestSkills) > 0 {
		return a.StrongestSkills[0]
	}
	return ""
}
