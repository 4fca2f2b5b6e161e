package sqlite

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/prepcoach/internal/session"
)

// Store persists session outcomes in SQLite. Safe for concurrent use; the
// single-writer connection serializes writes.
type Store struct {
	db *DB
}

// NewStore creates a store over an opened, migrated database
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// SaveSummary upserts the end-of-session record
func (s *Store) SaveSummary(ctx context.Context, sum session.Summary) error {
	query := `
		INSERT INTO session_summaries (
			session_id, student_id, test_type,
			total_questions, correct_answers, interventions, stress_events,
			time_mgmt_score, average_mastery, started_at, ended_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			total_questions = excluded.total_questions,
			correct_answers = excluded.correct_answers,
			interventions   = excluded.interventions,
			stress_events   = excluded.stress_events,
			time_mgmt_score = excluded.time_mgmt_score,
			average_mastery = excluded.average_mastery,
			ended_at        = excluded.ended_at
	`
	_, err := s.db.ExecContext(ctx, query,
		sum.SessionID.String(), sum.StudentID.String(), sum.TestType,
		sum.Metrics.TotalQuestions, sum.Metrics.CorrectAnswers,
		sum.Metrics.Interventions, sum.Metrics.StressEvents,
		sum.Metrics.TimeManagementScore, sum.AverageMastery,
		sum.StartedAt, sum.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

// SaveIntervention records one displayed coaching message
func (s *Store) SaveIntervention(ctx context.Context, iv session.Intervention) error {
	query := `
		INSERT INTO interventions (
			id, session_id, student_id,
			action_type, content, priority, reasoning, confidence,
			displayed_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	m := iv.Message
	_, err := s.db.ExecContext(ctx, query,
		m.ID.String(), iv.SessionID.String(), iv.StudentID.String(),
		string(m.Type), m.Content, m.Priority.String(), m.Reasoning, m.Confidence,
		m.DisplayedAt, m.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save intervention: %w", err)
	}
	return nil
}

// SummariesByStudent returns all stored summaries for a student, most recent
// first.
func (s *Store) SummariesByStudent(ctx context.Context, studentID string) ([]session.Summary, error) {
	query := `
		SELECT session_id, student_id, test_type,
		       total_questions, correct_answers, interventions, stress_events,
		       time_mgmt_score, average_mastery, started_at, ended_at
		FROM session_summaries
		WHERE student_id = ?
		ORDER BY ended_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var out []session.Summary
	for rows.Next() {
		var sum session.Summary
		var sessionID, student string
		if err := rows.Scan(
			&sessionID, &student, &sum.TestType,
			&sum.Metrics.TotalQuestions, &sum.Metrics.CorrectAnswers,
			&sum.Metrics.Interventions, &sum.Metrics.StressEvents,
			&sum.Metrics.TimeManagementScore, &sum.AverageMastery,
			&sum.StartedAt, &sum.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		if sum.SessionID, err = parseUUID(sessionID); err != nil {
			return nil, err
		}
		if sum.StudentID, err = parseUUID(student); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse uuid %q: %w", s, err)
	}
	return id, nil
}

// InterventionCount returns how many interventions were recorded for a
// session.
func (s *Store) InterventionCount(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM interventions WHERE session_id = ?", sessionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count interventions: %w", err)
	}
	return n, nil
}
