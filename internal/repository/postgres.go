// Package repository persists per-student learning data across sessions in
// PostgreSQL. The in-process core never reads it; the daemon uses it to
// resume mastery state and learner profiles.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/prepcoach/internal/domain"
	"github.com/felixgeelhaar/prepcoach/internal/strategy"
)

// Connect opens a connection pool and verifies connectivity
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// PostgresRepository implements student persistence using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// SaveMastery upserts the full mastery snapshot for a student
func (r *PostgresRepository) SaveMastery(ctx context.Context, studentID uuid.UUID, skills []domain.SkillMastery) error {
	query := `
		INSERT INTO skill_mastery (
			student_id, skill_id, name, mastery,
			attempts, correct_attempts, last_attempt_at, learning_rate
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (student_id, skill_id) DO UPDATE SET
			mastery          = excluded.mastery,
			attempts         = excluded.attempts,
			correct_attempts = excluded.correct_attempts,
			last_attempt_at  = excluded.last_attempt_at,
			learning_rate    = excluded.learning_rate
	`

	batch := &pgx.Batch{}
	for _, sk := range skills {
		batch.Queue(query,
			studentID, sk.SkillID, sk.Name, sk.Mastery,
			sk.Attempts, sk.CorrectAttempts, sk.LastAttemptAt, sk.LearningRate,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range skills {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert mastery: %w", err)
		}
	}
	return nil
}

// LoadMastery returns the stored mastery snapshot for a student. An unknown
// student yields an empty slice, not an error.
func (r *PostgresRepository) LoadMastery(ctx context.Context, studentID uuid.UUID) ([]domain.SkillMastery, error) {
	query := `
		SELECT skill_id, name, mastery, attempts, correct_attempts, last_attempt_at, learning_rate
		FROM skill_mastery WHERE student_id = $1
	`
	rows, err := r.pool.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("query mastery: %w", err)
	}
	defer rows.Close()

	var out []domain.SkillMastery
	for rows.Next() {
		sk := domain.SkillMastery{Params: domain.DefaultBKTParams()}
		if err := rows.Scan(
			&sk.SkillID, &sk.Name, &sk.Mastery,
			&sk.Attempts, &sk.CorrectAttempts, &sk.LastAttemptAt, &sk.LearningRate,
		); err != nil {
			return nil, fmt.Errorf("scan mastery: %w", err)
		}
		out = append(out, sk)
	}
	return out, rows.Err()
}

// SaveProfile upserts a student's learner profile along with their
// per-strategy condition overrides.
func (r *PostgresRepository) SaveProfile(ctx context.Context, studentID uuid.UUID, p strategy.Profile, overrides map[string][]strategy.Condition) error {
	data, err := json.Marshal(overrides)
	if err != nil {
		return fmt.Errorf("encode overrides: %w", err)
	}

	query := `
		INSERT INTO learner_profiles (student_id, learning_style, preferred_difficulty, strategy_overrides)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id) DO UPDATE SET
			learning_style       = excluded.learning_style,
			preferred_difficulty = excluded.preferred_difficulty,
			strategy_overrides   = excluded.strategy_overrides
	`
	if _, err := r.pool.Exec(ctx, query, studentID, p.LearningStyle, p.PreferredDifficulty, data); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetProfile returns a student's learner profile and strategy overrides
func (r *PostgresRepository) GetProfile(ctx context.Context, studentID uuid.UUID) (strategy.Profile, map[string][]strategy.Condition, error) {
	query := `
		SELECT learning_style, preferred_difficulty, COALESCE(strategy_overrides, 'null'::jsonb)
		FROM learner_profiles WHERE student_id = $1
	`
	var (
		p    strategy.Profile
		data []byte
	)
	err := r.pool.QueryRow(ctx, query, studentID).Scan(&p.LearningStyle, &p.PreferredDifficulty, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return strategy.Profile{}, nil, domain.ErrNotFound
	}
	if err != nil {
		return strategy.Profile{}, nil, fmt.Errorf("query profile: %w", err)
	}

	var overrides map[string][]strategy.Condition
	if err := json.Unmarshal(data, &overrides); err != nil {
		return strategy.Profile{}, nil, fmt.Errorf("decode overrides: %w", err)
	}
	return p, overrides, nil
}
