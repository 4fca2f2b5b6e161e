package domain

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
)

func record(correct bool, responseTime time.Duration, difficulty, confidence float64) PerformanceRecord {
	return PerformanceRecord{
		QuestionID:   "q1",
		SkillID:      "algebra.linear",
		Correct:      correct,
		ResponseTime: responseTime,
		Difficulty:   difficulty,
		Confidence:   confidence,
	}
}

func TestStressIndicators_Score(t *testing.T) {
	tests := []struct {
		name string
		ind  StressIndicators
		want float64
	}{
		{"all zero", StressIndicators{}, 0},
		{"all max", StressIndicators{
			FacialTension: 1, ResponseLatency: 1, ErrorRate: 1,
			KeyboardDynamics: 1, MouseDynamics: 1, AttentionLapses: 10,
		}, 1.0},
		{"facial only", StressIndicators{FacialTension: 1}, 0.3},
		{"lapses saturate at five", StressIndicators{AttentionLapses: 5}, 0.05},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ind.Score(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRefresh_AppendOnlyOrdered(t *testing.T) {
	s := NewStudentState(uuid.New())

	base := time.Now()
	for i := 0; i < 5; i++ {
		rec := record(true, 20*time.Second, 0.5, 0.6)
		rec.Timestamp = base.Add(time.Duration(i) * time.Second)
		s.Refresh(rec)
		if len(s.History) != i+1 {
			t.Fatalf("history length = %d after %d refreshes", len(s.History), i+1)
		}
	}

	// An out-of-order timestamp is clamped, never reordered
	rec := record(true, 20*time.Second, 0.5, 0.6)
	rec.Timestamp = base.Add(-time.Hour)
	s.Refresh(rec)

	for i := 1; i < len(s.History); i++ {
		if s.History[i].Timestamp.Before(s.History[i-1].Timestamp) {
			t.Errorf("history timestamps decreased at index %d", i)
		}
	}
}

func TestRefresh_CognitiveLoad(t *testing.T) {
	// Difficulty 0.5 → expected 52.5s; >78.75s raises load, <36.75s lowers it
	tests := []struct {
		name         string
		responseTime time.Duration
		wantDelta    float64
	}{
		{"overload raises by 0.1", 90 * time.Second, 0.1},
		{"fast response lowers by 0.05", 20 * time.Second, -0.05},
		{"in-band leaves unchanged", 50 * time.Second, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStudentState(uuid.New())
			before := s.CognitiveLoad
			s.Refresh(record(true, tt.responseTime, 0.5, 0.6))
			if got := s.CognitiveLoad - before; math.Abs(got-tt.wantDelta) > 1e-9 {
				t.Errorf("load delta = %v, want %v", got, tt.wantDelta)
			}
		})
	}
}

func TestRefresh_CognitiveLoadBounds(t *testing.T) {
	s := NewStudentState(uuid.New())

	for i := 0; i < 30; i++ {
		s.Refresh(record(false, 5*time.Minute, 0.5, 0.2))
	}
	if s.CognitiveLoad > 1.0 {
		t.Errorf("load %v exceeds 1.0", s.CognitiveLoad)
	}

	for i := 0; i < 50; i++ {
		s.Refresh(record(true, 5*time.Second, 0.5, 0.9))
	}
	if s.CognitiveLoad < 0.1 {
		t.Errorf("load %v below floor 0.1", s.CognitiveLoad)
	}
}

func TestRefresh_StressEMA(t *testing.T) {
	s := NewStudentState(uuid.New())
	s.StressLevel = 0.5

	rec := record(true, 30*time.Second, 0.5, 0.6)
	rec.Stress = StressIndicators{FacialTension: 1, ResponseLatency: 1, ErrorRate: 1, KeyboardDynamics: 1, MouseDynamics: 1, AttentionLapses: 5}
	s.Refresh(rec)

	// 0.2*1.0 + 0.8*0.5 = 0.6
	if math.Abs(s.StressLevel-0.6) > 1e-9 {
		t.Errorf("stress = %v, want 0.6", s.StressLevel)
	}
}

func TestRefresh_StressClimbsUnderSustainedLoad(t *testing.T) {
	s := NewStudentState(uuid.New())

	hot := StressIndicators{FacialTension: 0.9, ResponseLatency: 0.9, ErrorRate: 0.9, KeyboardDynamics: 0.9, MouseDynamics: 0.9, AttentionLapses: 6}
	for i := 0; i < 15; i++ {
		rec := record(false, time.Minute, 0.5, 0.3)
		rec.Stress = hot
		s.Refresh(rec)
	}

	if s.StressLevel <= 0.7 {
		t.Errorf("stress = %v after sustained high indicators, want > 0.7", s.StressLevel)
	}
	if s.StressLevel > 1.0 {
		t.Errorf("stress %v exceeds 1.0", s.StressLevel)
	}
}

func TestRefresh_LearningVelocity(t *testing.T) {
	s := NewStudentState(uuid.New())

	// First five incorrect, next five correct → velocity = 1.0 - 0.0
	for i := 0; i < 5; i++ {
		s.Refresh(record(false, 30*time.Second, 0.5, 0.4))
	}
	if s.LearningVelocity != 0 {
		t.Errorf("velocity changed before 10 attempts: %v", s.LearningVelocity)
	}
	for i := 0; i < 5; i++ {
		s.Refresh(record(true, 30*time.Second, 0.5, 0.6))
	}
	if math.Abs(s.LearningVelocity-1.0) > 1e-9 {
		t.Errorf("velocity = %v, want 1.0", s.LearningVelocity)
	}
}

func TestRefresh_Confidence(t *testing.T) {
	s := NewStudentState(uuid.New())

	// Three correct attempts each reported at 0.8:
	// 0.6*0.8 + 0.4*1.0 = 0.88
	for i := 0; i < 3; i++ {
		s.Refresh(record(true, 30*time.Second, 0.5, 0.8))
	}
	if math.Abs(s.ConfidenceLevel-0.88) > 1e-9 {
		t.Errorf("confidence = %v, want 0.88", s.ConfidenceLevel)
	}
}

func TestDecayEngagement(t *testing.T) {
	s := NewStudentState(uuid.New())
	start := s.EngagementLevel

	for i := 0; i < 30; i++ {
		s.DecayEngagement()
	}
	if s.EngagementLevel >= start {
		t.Errorf("engagement did not decay: %v", s.EngagementLevel)
	}
	if s.EngagementLevel < 0 {
		t.Errorf("engagement %v below 0", s.EngagementLevel)
	}
	if s.Attention != AttentionWandering {
		t.Errorf("attention = %v after decay, want wandering", s.Attention)
	}
}

func TestConsecutiveIncorrect(t *testing.T) {
	s := NewStudentState(uuid.New())
	s.Refresh(record(true, 30*time.Second, 0.5, 0.5))
	s.Refresh(record(false, 30*time.Second, 0.5, 0.5))
	s.Refresh(record(false, 30*time.Second, 0.5, 0.5))

	if got := s.ConsecutiveIncorrect(); got != 2 {
		t.Errorf("ConsecutiveIncorrect() = %d, want 2", got)
	}

	s.Refresh(record(true, 30*time.Second, 0.5, 0.5))
	if got := s.ConsecutiveIncorrect(); got != 0 {
		t.Errorf("ConsecutiveIncorrect() after correct = %d, want 0", got)
	}
}

func TestHelpers_InsufficientHistory(t *testing.T) {
	s := NewStudentState(uuid.New())
	s.Refresh(record(true, 30*time.Second, 0.5, 0.5))

	if _, ok := s.RecentAccuracy(3); ok {
		t.Error("RecentAccuracy(3) reported ok with one record")
	}
	if _, ok := s.AverageResponseTime(3); ok {
		t.Error("AverageResponseTime(3) reported ok with one record")
	}
}
