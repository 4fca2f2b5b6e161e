package engine

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/felixgeelhaar/prepcoach/internal/domain"
)

// QLearner is a tabular Q-learning action selector with epsilon-greedy
// exploration. The value table is owned by the engine instance, never shared
// across students.
type QLearner struct {
	alpha   float64 // step size
	gamma   float64 // discount
	epsilon float64 // exploration rate

	table map[string][]float64 // state key -> value per action index
	rng   *rand.Rand

	// Pending (state, action) awaiting its reward
	lastKey    string
	lastAction int
	hasPending bool

	// Exploration bookkeeping
	selections   int
	explorations int
}

// QConfig holds Q-learner hyperparameters
type QConfig struct {
	Alpha   float64
	Gamma   float64
	Epsilon float64
	Seed    int64 // 0 seeds from the clock
}

// DefaultQConfig returns the standard tabular Q-learning setup
func DefaultQConfig() QConfig {
	return QConfig{Alpha: 0.1, Gamma: 0.9, Epsilon: 0.1}
}

// NewQLearner creates a Q-learner with an empty value table
func NewQLearner(cfg QConfig) *QLearner {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &QLearner{
		alpha:   cfg.Alpha,
		gamma:   cfg.Gamma,
		epsilon: cfg.Epsilon,
		table:   make(map[string][]float64),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Reward bonuses
const (
	rewardCorrect         = 1.0
	rewardIncorrect       = -0.5
	rewardFastBonus       = 0.3
	rewardConfidenceBonus = 0.2
	fastResponseCutoff    = 60 * time.Second
)

// Reward computes the scalar learning signal for one attempt
func Reward(rec domain.PerformanceRecord) float64 {
	r := rewardIncorrect
	if rec.Correct {
		r = rewardCorrect
	}
	if rec.ResponseTime > 0 && rec.ResponseTime < fastResponseCutoff {
		r += rewardFastBonus
	}
	if rec.Confidence > 0.7 {
		r += rewardConfidenceBonus
	}
	return r
}

// StateKey discretizes student state into the tabular state space:
// stress/engagement/load in five buckets each, recent correct count in four.
func StateKey(s *domain.StudentState) string {
	recentCorrect := 0
	for _, r := range s.Tail(3) {
		if r.Correct {
			recentCorrect++
		}
	}
	return fmt.Sprintf("s%d-e%d-c%d-r%d",
		bucket5(s.StressLevel),
		bucket5(s.EngagementLevel),
		bucket5(s.CognitiveLoad),
		recentCorrect,
	)
}

func bucket5(v float64) int {
	b := int(v * 5)
	if b > 4 {
		b = 4
	}
	if b < 0 {
		b = 0
	}
	return b
}

// SelectAction picks an action for the state: uniformly at random with
// probability epsilon, otherwise the argmax of the value table. The pick is
// remembered until Observe supplies its reward.
func (q *QLearner) SelectAction(key string) domain.ActionType {
	values := q.values(key)
	q.selections++

	var idx int
	if q.rng.Float64() < q.epsilon {
		idx = q.rng.Intn(len(domain.Actions))
		q.explorations++
	} else {
		idx = argmax(values)
	}

	q.lastKey = key
	q.lastAction = idx
	q.hasPending = true
	return domain.Actions[idx]
}

// Observe applies the Q-learning update for the pending (state, action) pair:
//
//	Q(s,a) += alpha * (reward + gamma*max_a' Q(s',a') - Q(s,a))
//
// A call without a pending selection is a no-op.
func (q *QLearner) Observe(reward float64, nextKey string) {
	if !q.hasPending {
		return
	}
	values := q.values(q.lastKey)
	nextBest := maxValue(q.values(nextKey))

	values[q.lastAction] += q.alpha * (reward + q.gamma*nextBest - values[q.lastAction])
	q.hasPending = false
}

// Value returns the learned value for a state/action pair
func (q *QLearner) Value(key string, action domain.ActionType) float64 {
	values := q.values(key)
	for i, a := range domain.Actions {
		if a == action {
			return values[i]
		}
	}
	return 0
}

// ExplorationRate reports the observed fraction of random picks
func (q *QLearner) ExplorationRate() float64 {
	if q.selections == 0 {
		return 0
	}
	return float64(q.explorations) / float64(q.selections)
}

func (q *QLearner) values(key string) []float64 {
	if v, ok := q.table[key]; ok {
		return v
	}
	v := make([]float64, len(domain.Actions))
	q.table[key] = v
	return v
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

func maxValue(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
