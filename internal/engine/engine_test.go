package engine

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/felixgeelhaar/prepcoach/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEngine_RulesOutrankPolicy(t *testing.T) {
	e := New(QConfig{Alpha: 0.1, Gamma: 0.9, Epsilon: 0, Seed: 1}, testLogger())
	s := calmState()
	s.StressLevel = 0.9

	action, ok := e.Decide(s)
	if !ok || action.Type != domain.ActionBreak {
		t.Fatalf("got (%v, %v), want rule break regardless of policy", action.Type, ok)
	}
	if action.Reasoning == "learned policy" {
		t.Error("rule decision should not carry policy reasoning")
	}
}

func TestEngine_PolicyFallback(t *testing.T) {
	e := New(QConfig{Alpha: 0.5, Gamma: 0, Epsilon: 0, Seed: 1}, testLogger())
	s := calmState()

	// Train the policy to favor hints in the calm state
	key := StateKey(s)
	for i := 0; i < 10; i++ {
		if e.learner.SelectAction(key) == domain.ActionHint {
			e.learner.Observe(1.0, key)
		} else {
			e.learner.Observe(-1.0, key)
		}
	}

	action, ok := e.Decide(s)
	if !ok {
		t.Fatal("trained policy should produce an action")
	}
	if action.Type != domain.ActionHint {
		t.Errorf("type = %v, want hint", action.Type)
	}
	if action.Priority != domain.PriorityLow {
		t.Errorf("policy actions should be low priority, got %v", action.Priority)
	}
	if action.Content == "" {
		t.Error("policy action should carry content")
	}
}

func TestEngine_NoneSuppresses(t *testing.T) {
	e := New(QConfig{Alpha: 0.5, Gamma: 0, Epsilon: 0, Seed: 1}, testLogger())
	s := calmState()

	key := StateKey(s)
	for i := 0; i < 10; i++ {
		if e.learner.SelectAction(key) == domain.ActionNone {
			e.learner.Observe(1.0, key)
		} else {
			e.learner.Observe(-1.0, key)
		}
	}

	if _, ok := e.Decide(s); ok {
		t.Error("a none pick should suppress the intervention")
	}
}

func TestEngine_StressEvent(t *testing.T) {
	e := New(DefaultQConfig(), testLogger())
	s := calmState()

	mild := domain.StressIndicators{FacialTension: 0.3, ErrorRate: 0.2}
	if _, ok := e.StressEvent(s, mild); ok {
		t.Error("mild sample should not produce a break")
	}

	acute := domain.StressIndicators{
		FacialTension:    0.9,
		ResponseLatency:  0.8,
		ErrorRate:        0.8,
		KeyboardDynamics: 0.7,
		MouseDynamics:    0.7,
		AttentionLapses:  4,
	}
	action, ok := e.StressEvent(s, acute)
	if !ok {
		t.Fatal("acute sample should produce a break")
	}
	if action.Type != domain.ActionBreak || action.Priority != domain.PriorityUrgent {
		t.Errorf("got %v/%v, want urgent break", action.Type, action.Priority)
	}
	if s.StressLevel <= 0.2 {
		t.Error("sample should raise the stress EMA")
	}
}

func TestEngine_ObserveOutcome(t *testing.T) {
	e := New(QConfig{Alpha: 0.1, Gamma: 0.9, Epsilon: 0, Seed: 1}, testLogger())
	s := calmState()

	action, ok := e.Decide(s)
	if !ok {
		// Untrained greedy policy picks the first action (hint)
		t.Fatal("expected an action from the untrained policy")
	}

	rec := attempt(true, 30*time.Second)
	s.Refresh(rec)
	e.ObserveOutcome(s, rec)

	if v := e.learner.Value(StateKey(calmState()), action.Type); v == 0 {
		t.Error("outcome should update the value of the selected action")
	}
}
