// Package session owns the per-student session lifecycle and orchestrates
// the decision pipeline around each attempt.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/prepcoach/internal/domain"
)

// Status is the session lifecycle state
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusActive     Status = "active"
	StatusPaused     Status = "paused"
	StatusEnded      Status = "ended"
)

// Section is one timed block of a practice test
type Section struct {
	Name           string        `json:"name"`
	TimeLimit      time.Duration `json:"time_limit"`
	TotalQuestions int           `json:"total_questions"`
}

// PacingUrgency grades how far behind schedule the student is
type PacingUrgency string

const (
	PacingNormal    PacingUrgency = "normal"
	PacingAttention PacingUrgency = "attention"
	PacingUrgent    PacingUrgency = "urgent"
)

// Pacing is the schedule-position snapshot for the current section
type Pacing struct {
	Section         string        `json:"section"`
	QuestionsBehind float64       `json:"questions_behind"`
	Urgency         PacingUrgency `json:"urgency"`
	TimeRemaining   time.Duration `json:"time_remaining"`
}

// Session is the lifecycle state machine for one practice run. It is pure
// bookkeeping; the service layer serializes access and drives the pipeline.
type Session struct {
	ID        uuid.UUID `json:"id"`
	StudentID uuid.UUID `json:"student_id"`
	TestType  string    `json:"test_type"`
	Sections  []Section `json:"sections"`
	Status    Status    `json:"status"`

	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`

	QuestionsCompleted int `json:"questions_completed"`
	CorrectAnswers     int `json:"correct_answers"`

	sectionIdx        int
	sectionQuestions  int // completed within the current section
	sectionStartedAt  time.Time
}

// NewSession creates a session in the NotStarted state
func NewSession(studentID uuid.UUID, testType string, sections []Section) (*Session, error) {
	if testType == "" || len(sections) == 0 {
		return nil, domain.ErrInvalidInput
	}
	return &Session{
		ID:        uuid.New(),
		StudentID: studentID,
		TestType:  testType,
		Sections:  sections,
		Status:    StatusNotStarted,
	}, nil
}

// Start transitions NotStarted to Active
func (s *Session) Start() error {
	if s.Status != StatusNotStarted {
		return domain.ErrInvalidTransition
	}
	now := time.Now()
	s.Status = StatusActive
	s.StartedAt = now
	s.sectionStartedAt = now
	return nil
}

// Pause suspends an active session. Section clocks keep running on the real
// clock; pausing only stops attempt intake and interventions.
func (s *Session) Pause() error {
	if s.Status != StatusActive {
		return domain.ErrInvalidTransition
	}
	s.Status = StatusPaused
	return nil
}

// Resume returns a paused session to Active
func (s *Session) Resume() error {
	if s.Status != StatusPaused {
		return domain.ErrInvalidTransition
	}
	s.Status = StatusActive
	return nil
}

// End moves the session to its terminal state from anywhere. Ending an
// already ended session is a safe no-op.
func (s *Session) End() {
	if s.Status == StatusEnded {
		return
	}
	s.Status = StatusEnded
	s.EndedAt = time.Now()
}

// RecordCompletion counts one completed question. Only valid while Active;
// advancing past a section boundary rolls into the next section.
func (s *Session) RecordCompletion(correct bool) error {
	switch s.Status {
	case StatusActive:
	case StatusNotStarted:
		return domain.ErrSessionNotStarted
	case StatusEnded:
		return domain.ErrSessionEnded
	default:
		return domain.ErrSessionNotActive
	}

	s.QuestionsCompleted++
	s.sectionQuestions++
	if correct {
		s.CorrectAnswers++
	}

	if sec := s.currentSection(); sec != nil && s.sectionQuestions >= sec.TotalQuestions {
		s.advanceSection()
	}
	return nil
}

// Pacing reports schedule position within the current section at the given
// instant.
func (s *Session) Pacing(now time.Time) Pacing {
	sec := s.currentSection()
	if sec == nil || s.Status == StatusNotStarted || sec.TimeLimit <= 0 {
		return Pacing{Urgency: PacingNormal}
	}

	elapsed := now.Sub(s.sectionStartedAt)
	expected := float64(sec.TotalQuestions) * (float64(elapsed) / float64(sec.TimeLimit))
	behind := expected - float64(s.sectionQuestions)
	if behind < 0 {
		behind = 0
	}

	urgency := PacingNormal
	switch {
	case behind > 2:
		urgency = PacingUrgent
	case behind > 1:
		urgency = PacingAttention
	}

	remaining := sec.TimeLimit - elapsed
	if remaining < 0 {
		remaining = 0
	}

	return Pacing{
		Section:         sec.Name,
		QuestionsBehind: behind,
		Urgency:         urgency,
		TimeRemaining:   remaining,
	}
}

// TimeRemaining is the wall-clock budget left in the current section
func (s *Session) TimeRemaining(now time.Time) time.Duration {
	return s.Pacing(now).TimeRemaining
}

// Accuracy is the overall fraction of correct answers
func (s *Session) Accuracy() float64 {
	if s.QuestionsCompleted == 0 {
		return 0
	}
	return float64(s.CorrectAnswers) / float64(s.QuestionsCompleted)
}

func (s *Session) currentSection() *Section {
	if s.sectionIdx >= len(s.Sections) {
		return nil
	}
	return &s.Sections[s.sectionIdx]
}

func (s *Session) advanceSection() {
	s.sectionIdx++
	s.sectionQuestions = 0
	s.sectionStartedAt = time.Now()
}
