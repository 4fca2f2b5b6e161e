package session

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/prepcoach/internal/domain"
)

func sections() []Section {
	return []Section{
		{Name: "math-no-calc", TimeLimit: 25 * time.Minute, TotalQuestions: 20},
		{Name: "math-calc", TimeLimit: 55 * time.Minute, TotalQuestions: 38},
	}
}

func TestNewSession_Validation(t *testing.T) {
	if _, err := NewSession(uuid.New(), "", sections()); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("empty test type error = %v, want ErrInvalidInput", err)
	}
	if _, err := NewSession(uuid.New(), "sat-practice", nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("no sections error = %v, want ErrInvalidInput", err)
	}
}

func TestLifecycle_HappyPath(t *testing.T) {
	s, err := NewSession(uuid.New(), "sat-practice", sections())
	if err != nil {
		t.Fatal(err)
	}
	if s.Status != StatusNotStarted {
		t.Fatalf("initial status = %v", s.Status)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Pause(); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if err := s.Resume(); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	s.End()
	if s.Status != StatusEnded || s.EndedAt.IsZero() {
		t.Errorf("after End: status = %v, ended_at = %v", s.Status, s.EndedAt)
	}
}

func TestLifecycle_InvalidTransitions(t *testing.T) {
	s, _ := NewSession(uuid.New(), "sat-practice", sections())

	if err := s.Pause(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("Pause before start error = %v, want ErrInvalidTransition", err)
	}
	if err := s.Resume(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("Resume before start error = %v, want ErrInvalidTransition", err)
	}

	s.Start()
	if err := s.Start(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("double Start error = %v, want ErrInvalidTransition", err)
	}

	s.End()
	s.End() // safe no-op
	if s.Status != StatusEnded {
		t.Errorf("double End changed status to %v", s.Status)
	}
}

func TestRecordCompletion_StateGating(t *testing.T) {
	s, _ := NewSession(uuid.New(), "sat-practice", sections())

	if err := s.RecordCompletion(true); !errors.Is(err, domain.ErrSessionNotStarted) {
		t.Errorf("before start error = %v, want ErrSessionNotStarted", err)
	}

	s.Start()
	if err := s.RecordCompletion(true); err != nil {
		t.Errorf("while active error = %v", err)
	}

	s.Pause()
	if err := s.RecordCompletion(true); !errors.Is(err, domain.ErrSessionNotActive) {
		t.Errorf("while paused error = %v, want ErrSessionNotActive", err)
	}

	s.Resume()
	s.End()
	if err := s.RecordCompletion(true); !errors.Is(err, domain.ErrSessionEnded) {
		t.Errorf("after end error = %v, want ErrSessionEnded", err)
	}

	if s.QuestionsCompleted != 1 || s.CorrectAnswers != 1 {
		t.Errorf("counts = %d/%d, want 1/1", s.CorrectAnswers, s.QuestionsCompleted)
	}
}

func TestPacing(t *testing.T) {
	s, _ := NewSession(uuid.New(), "sat-practice", sections())
	s.Start()

	// Halfway through a 25-minute, 20-question section the student should
	// have finished 10 questions
	halfway := s.sectionStartedAt.Add(12*time.Minute + 30*time.Second)

	tests := []struct {
		name        string
		completed   int
		wantBehind  float64
		wantUrgency PacingUrgency
	}{
		{"on pace", 10, 0, PacingNormal},
		{"slightly behind", 9, 1, PacingNormal},
		{"attention", 8, 2, PacingAttention},
		{"urgent", 7, 3, PacingUrgent},
		{"ahead clamps to zero", 14, 0, PacingNormal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.sectionQuestions = tt.completed
			p := s.Pacing(halfway)
			if diff := p.QuestionsBehind - tt.wantBehind; diff > 1e-6 || diff < -1e-6 {
				t.Errorf("behind = %v, want %v", p.QuestionsBehind, tt.wantBehind)
			}
			if p.Urgency != tt.wantUrgency {
				t.Errorf("urgency = %v, want %v", p.Urgency, tt.wantUrgency)
			}
		})
	}
}

func TestPacing_BeforeStart(t *testing.T) {
	s, _ := NewSession(uuid.New(), "sat-practice", sections())
	if p := s.Pacing(time.Now()); p.Urgency != PacingNormal || p.QuestionsBehind != 0 {
		t.Errorf("pacing before start = %+v, want zero value", p)
	}
}

func TestSectionAdvance(t *testing.T) {
	s, _ := NewSession(uuid.New(), "sat-practice", []Section{
		{Name: "short", TimeLimit: 5 * time.Minute, TotalQuestions: 2},
		{Name: "long", TimeLimit: 30 * time.Minute, TotalQuestions: 10},
	})
	s.Start()

	s.RecordCompletion(true)
	s.RecordCompletion(false)

	if p := s.Pacing(time.Now()); p.Section != "long" {
		t.Errorf("section after boundary = %q, want long", p.Section)
	}
	if s.QuestionsCompleted != 2 {
		t.Errorf("total completed = %d, want 2", s.QuestionsCompleted)
	}
}

func TestAccuracy(t *testing.T) {
	s, _ := NewSession(uuid.New(), "sat-practice", sections())
	if s.Accuracy() != 0 {
		t.Errorf("accuracy with no attempts = %v, want 0", s.Accuracy())
	}

	s.Start()
	s.RecordCompletion(true)
	s.RecordCompletion(true)
	s.RecordCompletion(false)
	if got := s.Accuracy(); got < 0.66 || got > 0.67 {
		t.Errorf("accuracy = %v, want 2/3", got)
	}
}
