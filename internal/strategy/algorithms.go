package strategy

import (
	"fmt"
	"sort"
	"time"

	"github.com/felixgeelhaar/prepcoach/internal/domain"
)

// masteryAlgorithm prioritizes the weakest skills in the catalogue
type masteryAlgorithm struct{}

func (masteryAlgorithm) Evaluate(in Input) Output {
	weakest := weakestSkills(in.Skills, 3)
	if len(weakest) == 0 {
		return Output{Confidence: 0.1, Reasoning: []string{"no tracked skills"}}
	}

	focus := weakest[0]
	target := clip(focus.Mastery+0.15, 0.1, 0.9)

	questions := rankQuestions(in.Available, func(q domain.QuestionProfile) (float64, string, bool) {
		for i, sk := range weakest {
			if q.SkillID == sk.SkillID {
				prio := (1 - sk.Mastery) - 0.1*float64(i) - 0.2*absDiff(q.Difficulty, target)
				return prio, fmt.Sprintf("targets weak skill %s", sk.SkillID), true
			}
		}
		return 0, "", false
	})

	return Output{
		Questions:           questions,
		FocusSkill:          focus.SkillID,
		TargetDifficulty:    target,
		Confidence:          0.8,
		ExpectedMasteryGain: (1 - focus.Mastery) * focus.LearningRate,
		Reasoning: []string{
			fmt.Sprintf("weakest skill %s at mastery %.2f", focus.SkillID, focus.Mastery),
		},
	}
}

// zpdAlgorithm matches question difficulty to the zone of proximal
// development: slightly above demonstrated ability.
type zpdAlgorithm struct{}

func (zpdAlgorithm) Evaluate(in Input) Output {
	accuracy := 0.5
	if acc, ok := in.State.RecentAccuracy(5); ok {
		accuracy = acc
	}
	target := clip(accuracy+0.1, 0.1, 0.9)

	questions := rankQuestions(in.Available, func(q domain.QuestionProfile) (float64, string, bool) {
		return 1 - absDiff(q.Difficulty, target), "difficulty matched to current ability", true
	})

	return Output{
		Questions:        questions,
		TargetDifficulty: target,
		FocusSkill:       focusOf(questions, in.Skills),
		Confidence:       0.75,
		// Challenge slightly above ability is where BKT opportunities pay off
		ExpectedMasteryGain: 0.1,
		Reasoning: []string{
			fmt.Sprintf("recent accuracy %.2f, targeting difficulty %.2f", accuracy, target),
		},
	}
}

// Spaced repetition review ladder
var reviewIntervals = []time.Duration{
	24 * time.Hour,
	3 * 24 * time.Hour,
	7 * 24 * time.Hour,
	14 * 24 * time.Hour,
	30 * 24 * time.Hour,
}

// reviewInterval returns the next review gap for a skill. The ladder index
// grows with attempt count; the accuracy multiplier shortens intervals for
// shaky skills and stretches them for solid ones.
func reviewInterval(sk domain.SkillMastery) time.Duration {
	idx := sk.Attempts / 3
	if idx >= len(reviewIntervals) {
		idx = len(reviewIntervals) - 1
	}
	base := reviewIntervals[idx]

	switch acc := skillAccuracy(sk); {
	case acc < 0.6:
		return base / 2
	case acc > 0.8:
		return base + base/2
	default:
		return base
	}
}

// spacedRepetitionAlgorithm schedules skills whose review interval has lapsed
type spacedRepetitionAlgorithm struct{}

func (spacedRepetitionAlgorithm) Evaluate(in Input) Output {
	now := time.Now()

	type due struct {
		skill   domain.SkillMastery
		overdue time.Duration
	}
	var dues []due
	for _, sk := range in.Skills {
		if sk.Attempts == 0 {
			continue
		}
		next := sk.LastAttemptAt.Add(reviewInterval(sk))
		if now.After(next) {
			dues = append(dues, due{skill: sk, overdue: now.Sub(next)})
		}
	}
	sort.SliceStable(dues, func(i, j int) bool { return dues[i].overdue > dues[j].overdue })

	if len(dues) == 0 {
		return Output{Confidence: 0.2, Reasoning: []string{"no skills due for review"}}
	}

	focus := dues[0].skill
	questions := rankQuestions(in.Available, func(q domain.QuestionProfile) (float64, string, bool) {
		for i, d := range dues {
			if q.SkillID == d.skill.SkillID {
				return 1 - 0.1*float64(i), "due for spaced review", true
			}
		}
		return 0, "", false
	})

	return Output{
		Questions:           questions,
		FocusSkill:          focus.SkillID,
		TargetDifficulty:    clip(focus.Mastery, 0.1, 0.9),
		Confidence:          0.7,
		ExpectedMasteryGain: 0.05,
		Reasoning: []string{
			fmt.Sprintf("%d skills overdue for review, most overdue %s", len(dues), focus.SkillID),
		},
	}
}

// stressAdaptiveAlgorithm rebuilds momentum with easier questions while
// stress is elevated.
type stressAdaptiveAlgorithm struct{}

func (stressAdaptiveAlgorithm) Evaluate(in Input) Output {
	// Higher stress pushes the target difficulty further down
	target := clip(0.5-0.4*in.State.StressLevel, 0.1, 0.9)

	strongest := strongestSkills(in.Skills, 3)
	questions := rankQuestions(in.Available, func(q domain.QuestionProfile) (float64, string, bool) {
		prio := 1 - absDiff(q.Difficulty, target)
		for _, sk := range strongest {
			if q.SkillID == sk.SkillID {
				prio += 0.2
				break
			}
		}
		return prio, "confidence-building under stress", true
	})

	out := Output{
		Questions:           questions,
		TargetDifficulty:    target,
		Confidence:          0.7,
		ExpectedMasteryGain: 0.02,
		Reasoning: []string{
			fmt.Sprintf("stress %.2f, easing difficulty to %.2f", in.State.StressLevel, target),
		},
	}
	if len(strongest) > 0 {
		out.FocusSkill = strongest[0].SkillID
	}
	return out
}

// conceptMappingAlgorithm walks the catalogue as a prerequisite chain and
// targets the earliest skill still below the advancement bar.
type conceptMappingAlgorithm struct{}

const prerequisiteBar = 0.6

func (conceptMappingAlgorithm) Evaluate(in Input) Output {
	var focus *domain.SkillMastery
	for i := range in.Skills {
		if in.Skills[i].Mastery < prerequisiteBar {
			focus = &in.Skills[i]
			break
		}
	}
	if focus == nil {
		return Output{Confidence: 0.3, Reasoning: []string{"all prerequisites satisfied"}}
	}

	target := clip(focus.Mastery+0.1, 0.1, 0.9)
	questions := rankQuestions(in.Available, func(q domain.QuestionProfile) (float64, string, bool) {
		if q.SkillID != focus.SkillID {
			return 0, "", false
		}
		return 1 - absDiff(q.Difficulty, target), "prerequisite for later skills", true
	})

	return Output{
		Questions:           questions,
		FocusSkill:          focus.SkillID,
		TargetDifficulty:    target,
		Confidence:          0.65,
		ExpectedMasteryGain: (1 - focus.Mastery) * focus.LearningRate,
		Reasoning: []string{
			fmt.Sprintf("earliest unmastered prerequisite %s at %.2f", focus.SkillID, focus.Mastery),
		},
	}
}

// ensembleAlgorithm blends the mastery, ZPD, and stress algorithms, weighting
// the stress view by current stress.
type ensembleAlgorithm struct {
	mastery masteryAlgorithm
	zpd     zpdAlgorithm
	stress  stressAdaptiveAlgorithm
}

func (e ensembleAlgorithm) Evaluate(in Input) Output {
	m := e.mastery.Evaluate(in)
	z := e.zpd.Evaluate(in)
	s := e.stress.Evaluate(in)

	sw := in.State.StressLevel
	base := (1 - sw) / 2

	target := clip(base*m.TargetDifficulty+base*z.TargetDifficulty+sw*s.TargetDifficulty, 0.1, 0.9)

	// Merge the per-algorithm rankings, keeping the best priority per question
	merged := make(map[string]domain.RecommendedQuestion)
	for _, out := range []Output{m, z, s} {
		for _, q := range out.Questions {
			if prev, ok := merged[q.ID]; !ok || q.Priority > prev.Priority {
				merged[q.ID] = q
			}
		}
	}
	questions := make([]domain.RecommendedQuestion, 0, len(merged))
	for _, q := range merged {
		questions = append(questions, q)
	}
	sort.SliceStable(questions, func(i, j int) bool {
		if questions[i].Priority != questions[j].Priority {
			return questions[i].Priority > questions[j].Priority
		}
		return questions[i].ID < questions[j].ID
	})
	if len(questions) > maxRecommendations {
		questions = questions[:maxRecommendations]
	}

	focus := m.FocusSkill
	if focus == "" {
		focus = z.FocusSkill
	}

	return Output{
		Questions:           questions,
		FocusSkill:          focus,
		TargetDifficulty:    target,
		Confidence:          (m.Confidence + z.Confidence + s.Confidence) / 3,
		ExpectedMasteryGain: (m.ExpectedMasteryGain + z.ExpectedMasteryGain + s.ExpectedMasteryGain) / 3,
		Reasoning:           append(append(m.Reasoning, z.Reasoning...), s.Reasoning...),
	}
}

// rankQuestions scores every available question with fn, drops rejects, and
// returns the top picks best first. Ties preserve input order.
func rankQuestions(available []domain.QuestionProfile, fn func(domain.QuestionProfile) (float64, string, bool)) []domain.RecommendedQuestion {
	var out []domain.RecommendedQuestion
	for _, q := range available {
		prio, reason, ok := fn(q)
		if !ok {
			continue
		}
		out = append(out, domain.RecommendedQuestion{
			QuestionProfile: q,
			Priority:        prio,
			Reason:          reason,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}

func weakestSkills(skills []domain.SkillMastery, n int) []domain.SkillMastery {
	sorted := make([]domain.SkillMastery, len(skills))
	copy(sorted, skills)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Mastery < sorted[j].Mastery })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func strongestSkills(skills []domain.SkillMastery, n int) []domain.SkillMastery {
	sorted := make([]domain.SkillMastery, len(skills))
	copy(sorted, skills)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Mastery > sorted[j].Mastery })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func focusOf(questions []domain.RecommendedQuestion, skills []domain.SkillMastery) string {
	if len(questions) > 0 {
		return questions[0].SkillID
	}
	if len(skills) > 0 {
		return skills[0].SkillID
	}
	return ""
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
