package domain

import (
	"log/slog"
	"time"
)

// BKTParams holds the Bayesian Knowledge Tracing parameters for a skill
type BKTParams struct {
	Prior float64 `json:"prior"` // P(L0): initial mastery probability
	Learn float64 `json:"learn"` // P(T): transition to mastered after an opportunity
	Guess float64 `json:"guess"` // P(G): correct answer without mastery
	Slip  float64 `json:"slip"`  // P(S): incorrect answer despite mastery
}

// DefaultBKTParams returns the standard parameters used for new skills
func DefaultBKTParams() BKTParams {
	return BKTParams{
		Prior: 0.1,
		Learn: 0.15,
		Guess: 0.25,
		Slip:  0.1,
	}
}

// Posterior computes the updated mastery probability after observing an
// attempt, before the learning-opportunity step.
func (p BKTParams) Posterior(prior float64, correct bool) float64 {
	if correct {
		num := prior * (1 - p.Slip)
		denom := num + (1-prior)*p.Guess
		if denom == 0 {
			return prior
		}
		return num / denom
	}

	num := prior * p.Slip
	denom := num + (1-prior)*(1-p.Guess)
	if denom == 0 {
		return prior
	}
	return num / denom
}

// Skill identifies one tracked skill in the catalogue
type Skill struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// SkillMastery tracks per-skill BKT state for one student
type SkillMastery struct {
	SkillID         string    `json:"skill_id"`
	Name            string    `json:"name"`
	Mastery         float64   `json:"mastery"` // always within [0.01, 0.99]
	Attempts        int       `json:"attempts"`
	CorrectAttempts int       `json:"correct_attempts"`
	LastAttemptAt   time.Time `json:"last_attempt_at"`
	LearningRate    float64   `json:"learning_rate"`
	Params          BKTParams `json:"params"`

	// Last three outcomes, newest last, for the learning-rate trend nudge
	RecentOutcomes []bool `json:"recent_outcomes,omitempty"`
}

// Mastery probability bounds. Clipping keeps the posterior responsive: a
// probability pinned at 0 or 1 could never move again.
const (
	MasteryFloor = 0.01
	MasteryCeil  = 0.99
)

// Learning-rate self-tuning bounds
const (
	learningRateFloor = 0.05
	learningRateCeil  = 0.3
)

// MasteryTracker owns the per-skill BKT state for a single student.
// It is not safe for concurrent use; the owning session serializes access.
type MasteryTracker struct {
	skills map[string]*SkillMastery
	order  []string
}

// NewMasteryTracker initializes tracking for the supplied skill catalogue.
// An empty catalogue is a construction error.
func NewMasteryTracker(catalogue []Skill) (*MasteryTracker, error) {
	if len(catalogue) == 0 {
		return nil, ErrEmptyCatalogue
	}

	t := &MasteryTracker{
		skills: make(map[string]*SkillMastery, len(catalogue)),
	}
	for _, sk := range catalogue {
		if _, dup := t.skills[sk.ID]; dup {
			continue
		}
		params := DefaultBKTParams()
		t.skills[sk.ID] = &SkillMastery{
			SkillID:      sk.ID,
			Name:         sk.Name,
			Mastery:      params.Prior,
			LearningRate: params.Learn,
			Params:       params,
		}
		t.order = append(t.order, sk.ID)
	}
	return t, nil
}

// RecordAttempt applies one BKT update for a skill and returns the updated
// mastery. Unknown skill IDs are logged and skipped; they never fail the
// attempt pipeline.
func (t *MasteryTracker) RecordAttempt(skillID string, correct bool) *SkillMastery {
	sk, ok := t.skills[skillID]
	if !ok {
		slog.Warn("attempt for untracked skill ignored", "skill_id", skillID)
		return nil
	}

	posterior := sk.Params.Posterior(sk.Mastery, correct)

	// Learning opportunity: every attempt is a chance to acquire the skill
	final := posterior + (1-posterior)*sk.LearningRate
	sk.Mastery = clamp(final, MasteryFloor, MasteryCeil)

	sk.Attempts++
	if correct {
		sk.CorrectAttempts++
	}
	sk.LastAttemptAt = time.Now()

	sk.RecentOutcomes = append(sk.RecentOutcomes, correct)
	if len(sk.RecentOutcomes) > 3 {
		sk.RecentOutcomes = sk.RecentOutcomes[len(sk.RecentOutcomes)-3:]
	}
	sk.adaptLearningRate()

	return sk
}

// adaptLearningRate nudges the per-skill learning rate after three attempts
// trending the same way. This is a smoothing heuristic, not an EM update.
func (sk *SkillMastery) adaptLearningRate() {
	if sk.Attempts < 3 || len(sk.RecentOutcomes) < 3 {
		return
	}

	allCorrect, allIncorrect := true, true
	for _, c := range sk.RecentOutcomes {
		if c {
			allIncorrect = false
		} else {
			allCorrect = false
		}
	}

	switch {
	case allCorrect:
		sk.LearningRate = min(sk.LearningRate*1.05, learningRateCeil)
	case allIncorrect:
		sk.LearningRate = max(sk.LearningRate*0.95, learningRateFloor)
	}
}

// Get returns the mastery state for a skill
func (t *MasteryTracker) Get(skillID string) (SkillMastery, bool) {
	sk, ok := t.skills[skillID]
	if !ok {
		return SkillMastery{}, false
	}
	return *sk, true
}

// Tracks reports whether a skill ID is part of the catalogue
func (t *MasteryTracker) Tracks(skillID string) bool {
	_, ok := t.skills[skillID]
	return ok
}

// Snapshot returns all skill states in catalogue order
func (t *MasteryTracker) Snapshot() []SkillMastery {
	out := make([]SkillMastery, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.skills[id])
	}
	return out
}

// AverageMastery returns the mean mastery probability across the catalogue
func (t *MasteryTracker) AverageMastery() float64 {
	if len(t.order) == 0 {
		return 0
	}
	var sum float64
	for _, id := range t.order {
		sum += t.skills[id].Mastery
	}
	return sum / float64(len(t.order))
}

// Weakest returns up to n skills with the lowest mastery, weakest first.
// Ties preserve catalogue order.
func (t *MasteryTracker) Weakest(n int) []SkillMastery {
	snap := t.Snapshot()

	// Insertion sort; catalogues are small
	for i := 1; i < len(snap); i++ {
		j := i
		for j > 0 && snap[j-1].Mastery > snap[j].Mastery {
			snap[j-1], snap[j] = snap[j], snap[j-1]
			j--
		}
	}

	if len(snap) > n {
		snap = snap[:n]
	}
	return snap
}

// Reset restores every skill to its initial BKT state. Used at new-session
// boundaries when the caller wants a clean slate.
func (t *MasteryTracker) Reset() {
	for _, sk := range t.skills {
		sk.Mastery = sk.Params.Prior
		sk.Attempts = 0
		sk.CorrectAttempts = 0
		sk.LastAttemptAt = time.Time{}
		sk.LearningRate = sk.Params.Learn
		sk.RecentOutcomes = nil
	}
}

// Restore replaces the stored state for a skill, used when resuming a
// previously persisted tracker. Unknown skills are ignored.
func (t *MasteryTracker) Restore(state SkillMastery) {
	sk, ok := t.skills[state.SkillID]
	if !ok {
		slog.Warn("restore for untracked skill ignored", "skill_id", state.SkillID)
		return
	}
	state.Mastery = clamp(state.Mastery, MasteryFloor, MasteryCeil)
	*sk = state
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
