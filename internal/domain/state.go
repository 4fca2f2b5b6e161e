package domain

import (
	"time"

	"github.com/google/uuid"
)

// AttentionState classifies where the student's attention appears to be
type AttentionState string

const (
	AttentionFocused   AttentionState = "focused"
	AttentionWandering AttentionState = "wandering"
	AttentionStrained  AttentionState = "strained"
)

// StressIndicators is the normalized stress vector supplied by the external
// sensing pipeline. All fields are in [0,1] except AttentionLapses, a count.
type StressIndicators struct {
	FacialTension    float64 `json:"facial_tension"`
	ResponseLatency  float64 `json:"response_latency"`
	ErrorRate        float64 `json:"error_rate"`
	KeyboardDynamics float64 `json:"keyboard_dynamics"`
	MouseDynamics    float64 `json:"mouse_dynamics"`
	AttentionLapses  int     `json:"attention_lapses"`
}

// Indicator blend weights, summing to 1.0
const (
	weightFacialTension   = 0.3
	weightResponseLatency = 0.2
	weightErrorRate       = 0.2
	weightKeyboard        = 0.15
	weightMouse           = 0.1
	weightLapses          = 0.05
)

// lapsesScale normalizes the attention-lapse count; five or more lapses in
// one sample saturates the signal.
const lapsesScale = 5.0

// Score blends the indicators into a single stress score in [0,1]
func (s StressIndicators) Score() float64 {
	lapses := min(float64(s.AttentionLapses)/lapsesScale, 1.0)
	score := weightFacialTension*s.FacialTension +
		weightResponseLatency*s.ResponseLatency +
		weightErrorRate*s.ErrorRate +
		weightKeyboard*s.KeyboardDynamics +
		weightMouse*s.MouseDynamics +
		weightLapses*lapses
	return clamp(score, 0, 1)
}

// PerformanceRecord is an immutable log entry for one question attempt
type PerformanceRecord struct {
	Timestamp     time.Time        `json:"timestamp"`
	QuestionID    string           `json:"question_id"`
	SkillID       string           `json:"skill_id"`
	Correct       bool             `json:"correct"`
	ResponseTime  time.Duration    `json:"response_time"`
	Confidence    float64          `json:"confidence"` // self-reported, [0,1]
	Difficulty    float64          `json:"difficulty"` // [0,1]
	Stress        StressIndicators `json:"stress"`
	CognitiveLoad float64          `json:"cognitive_load"` // load at record time
}

// StudentState is the aggregated cognitive/affective picture of one student.
// A single mutable instance exists per active session; the owning session
// serializes all mutation.
type StudentState struct {
	ID               uuid.UUID           `json:"id"`
	CognitiveLoad    float64             `json:"cognitive_load"`
	StressLevel      float64             `json:"stress_level"`
	EngagementLevel  float64             `json:"engagement_level"`
	ConfidenceLevel  float64             `json:"confidence_level"`
	LearningVelocity float64             `json:"learning_velocity"`
	Attention        AttentionState      `json:"attention"`
	History          []PerformanceRecord `json:"history"` // append-only, arrival order
	SessionStart     time.Time           `json:"session_start"`
	TimeOnTask       time.Duration       `json:"time_on_task"`
}

// EMA smoothing factor for the stress level
const stressAlpha = 0.2

// Expected response time model: a base cost plus a difficulty-scaled cost
const (
	expectedTimeBase       = 30 * time.Second
	expectedTimePerDiff    = 45 * time.Second
	overloadRatioThreshold = 1.5
	underloadRatio         = 0.7
)

// NewStudentState creates the initial state for a session
func NewStudentState(id uuid.UUID) *StudentState {
	return &StudentState{
		ID:              id,
		CognitiveLoad:   0.3,
		StressLevel:     0.2,
		EngagementLevel: 0.7,
		ConfidenceLevel: 0.5,
		Attention:       AttentionFocused,
		SessionStart:    time.Now(),
	}
}

// Refresh appends a record and recomputes all derived signals. Everything
// except the stress and engagement EMAs is recomputed deterministically from
// the history tail.
func (s *StudentState) Refresh(rec PerformanceRecord) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	// History timestamps are non-decreasing; arrival order wins over clock skew
	if n := len(s.History); n > 0 && rec.Timestamp.Before(s.History[n-1].Timestamp) {
		rec.Timestamp = s.History[n-1].Timestamp
	}
	rec.CognitiveLoad = s.CognitiveLoad
	s.History = append(s.History, rec)

	s.updateCognitiveLoad(rec)
	s.updateStress(rec.Stress)
	s.updateEngagement(rec)
	s.updateVelocity()
	s.updateConfidence()
	s.TimeOnTask = rec.Timestamp.Sub(s.SessionStart)
	s.Attention = s.classifyAttention()
}

// updateCognitiveLoad compares actual response time to the expected time for
// the question's difficulty.
func (s *StudentState) updateCognitiveLoad(rec PerformanceRecord) {
	expected := expectedTimeBase + time.Duration(rec.Difficulty*float64(expectedTimePerDiff))
	if expected <= 0 {
		return
	}
	ratio := float64(rec.ResponseTime) / float64(expected)

	switch {
	case ratio > overloadRatioThreshold:
		s.CognitiveLoad = min(s.CognitiveLoad+0.1, 1.0)
	case ratio < underloadRatio:
		s.CognitiveLoad = max(s.CognitiveLoad-0.05, 0.1)
	}
}

func (s *StudentState) updateStress(ind StressIndicators) {
	s.StressLevel = clamp(stressAlpha*ind.Score()+(1-stressAlpha)*s.StressLevel, 0, 1)
}

// updateEngagement is a heuristic: answering at all is an engagement signal,
// attention lapses and severely slow responses erode it.
func (s *StudentState) updateEngagement(rec PerformanceRecord) {
	delta := 0.03

	lapses := min(float64(rec.Stress.AttentionLapses)/lapsesScale, 1.0)
	delta -= 0.1 * lapses

	expected := expectedTimeBase + time.Duration(rec.Difficulty*float64(expectedTimePerDiff))
	if expected > 0 && float64(rec.ResponseTime)/float64(expected) > overloadRatioThreshold {
		delta -= 0.05
	}

	s.EngagementLevel = clamp(s.EngagementLevel+delta, 0, 1)
}

// DecayEngagement erodes engagement during idle stretches. Called by the
// periodic evaluator when no attempt has arrived for a while.
func (s *StudentState) DecayEngagement() {
	s.EngagementLevel = clamp(s.EngagementLevel-0.05, 0, 1)
	s.Attention = s.classifyAttention()
}

// ApplyStressSample folds a standalone sensor sample into the stress EMA,
// outside the attempt pipeline. Used for samples arriving between questions.
func (s *StudentState) ApplyStressSample(ind StressIndicators) {
	s.updateStress(ind)
	s.Attention = s.classifyAttention()
}

// updateVelocity compares accuracy of the last five attempts against the
// five before them. Left unchanged below ten attempts.
func (s *StudentState) updateVelocity() {
	if len(s.History) < 10 {
		return
	}
	recent := accuracy(s.History[len(s.History)-5:])
	previous := accuracy(s.History[len(s.History)-10 : len(s.History)-5])
	s.LearningVelocity = recent - previous
}

// updateConfidence blends self-reported confidence with observed accuracy
// over the last three attempts.
func (s *StudentState) updateConfidence() {
	tail := s.Tail(3)
	if len(tail) == 0 {
		return
	}

	var reported float64
	for _, r := range tail {
		reported += r.Confidence
	}
	reported /= float64(len(tail))

	s.ConfidenceLevel = clamp(0.6*reported+0.4*accuracy(tail), 0, 1)
}

func (s *StudentState) classifyAttention() AttentionState {
	switch {
	case s.StressLevel > 0.7 || s.CognitiveLoad > 0.8:
		return AttentionStrained
	case s.EngagementLevel < 0.4:
		return AttentionWandering
	default:
		return AttentionFocused
	}
}

// Tail returns up to n most recent records, oldest first
func (s *StudentState) Tail(n int) []PerformanceRecord {
	if len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// RecentAccuracy returns the accuracy over the last n attempts. The second
// return is false when fewer than n attempts exist.
func (s *StudentState) RecentAccuracy(n int) (float64, bool) {
	if len(s.History) < n {
		return 0, false
	}
	return accuracy(s.Tail(n)), true
}

// ConsecutiveIncorrect counts the current streak of incorrect attempts
func (s *StudentState) ConsecutiveIncorrect() int {
	count := 0
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Correct {
			break
		}
		count++
	}
	return count
}

// AverageResponseTime returns the mean response time over the last n
// attempts; false when fewer than n exist.
func (s *StudentState) AverageResponseTime(n int) (time.Duration, bool) {
	if len(s.History) < n {
		return 0, false
	}
	var total time.Duration
	for _, r := range s.Tail(n) {
		total += r.ResponseTime
	}
	return total / time.Duration(n), true
}

// LastAttemptAt returns the timestamp of the most recent attempt
func (s *StudentState) LastAttemptAt() (time.Time, bool) {
	if len(s.History) == 0 {
		return time.Time{}, false
	}
	return s.History[len(s.History)-1].Timestamp, true
}

func accuracy(records []PerformanceRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	correct := 0
	for _, r := range records {
		if r.Correct {
			correct++
		}
	}
	return float64(correct) / float64(len(records))
}
