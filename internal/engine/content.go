package engine

import (
	"math/rand"

	"github.com/felixgeelhaar/prepcoach/internal/domain"
)

// ContentGenerator picks display text for coaching actions. Templates are
// varied randomly so repeated interventions don't read identically.
type ContentGenerator struct {
	templates map[domain.ActionType][]string
	rng       *rand.Rand
}

// NewContentGenerator creates a generator with default templates. The seed
// controls template variety only, never which action is chosen.
func NewContentGenerator(seed int64) *ContentGenerator {
	return &ContentGenerator{
		templates: defaultTemplates(),
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// For returns display text for an action type
func (g *ContentGenerator) For(t domain.ActionType) string {
	options, ok := g.templates[t]
	if !ok || len(options) == 0 {
		return ""
	}
	return options[g.rng.Intn(len(options))]
}

func defaultTemplates() map[domain.ActionType][]string {
	return map[domain.ActionType][]string{
		domain.ActionHint: {
			"Try eliminating answer choices that are clearly out of range first.",
			"Underline what the question is actually asking before you solve.",
			"Plug the answer choices back into the problem if the algebra stalls.",
		},
		domain.ActionEncouragement: {
			"You're putting in solid work. Keep going.",
			"Tough stretch, but your accuracy is trending up. Stay with it.",
			"One question at a time. You've handled harder ones already.",
		},
		domain.ActionStrategy: {
			"You're spending a while per question. Flag long ones and come back.",
			"Consider a two-pass approach: quick wins first, hard ones after.",
			"Set a soft time budget per question and move on when you hit it.",
		},
		domain.ActionBreak: {
			"Take a short breather. Thirty seconds of reset helps more than grinding.",
			"Step back for a moment. Stretch, breathe, then come back fresh.",
		},
		domain.ActionDifficultyAdjust: {
			"Let's shift to some questions that rebuild momentum.",
			"We'll ease the difficulty for a bit and ramp back up.",
		},
	}
}
