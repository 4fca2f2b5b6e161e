package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/prepcoach/internal/domain"
	"github.com/felixgeelhaar/prepcoach/internal/session"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "prepcoach.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewStore(db)
}

func summary(studentID uuid.UUID) session.Summary {
	now := time.Now().UTC().Truncate(time.Second)
	return session.Summary{
		SessionID: uuid.New(),
		StudentID: studentID,
		TestType:  "sat-practice",
		Metrics: domain.SessionMetrics{
			TotalQuestions:      12,
			CorrectAnswers:      9,
			Interventions:       3,
			StressEvents:        1,
			TimeManagementScore: 0.8,
		},
		AverageMastery: 0.55,
		StartedAt:      now.Add(-time.Hour),
		EndedAt:        now,
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "prepcoach.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		t.Fatalf("first Migrate() error = %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	version, err := db.Version()
	if err != nil {
		t.Fatal(err)
	}
	if version != 1 {
		t.Errorf("schema version = %d, want 1", version)
	}
}

func TestSaveSummary_RoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	studentID := uuid.New()

	want := summary(studentID)
	if err := store.SaveSummary(ctx, want); err != nil {
		t.Fatalf("SaveSummary() error = %v", err)
	}

	got, err := store.SummariesByStudent(ctx, studentID.String())
	if err != nil {
		t.Fatalf("SummariesByStudent() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d summaries, want 1", len(got))
	}
	if got[0].SessionID != want.SessionID || got[0].Metrics != want.Metrics {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got[0], want)
	}
}

func TestSaveSummary_Upsert(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	sum := summary(uuid.New())
	if err := store.SaveSummary(ctx, sum); err != nil {
		t.Fatal(err)
	}
	sum.Metrics.TotalQuestions = 20
	if err := store.SaveSummary(ctx, sum); err != nil {
		t.Fatalf("upsert error = %v", err)
	}

	got, err := store.SummariesByStudent(ctx, sum.StudentID.String())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Metrics.TotalQuestions != 20 {
		t.Errorf("after upsert got %+v, want single updated row", got)
	}
}

func TestSaveIntervention(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	sessionID := uuid.New()

	for i := 0; i < 3; i++ {
		action := domain.NewTutoringAction(domain.ActionHint, "try elimination", domain.PriorityLow)
		iv := session.Intervention{
			SessionID: sessionID,
			StudentID: uuid.New(),
			Message: domain.CoachingMessage{
				TutoringAction: action,
				DisplayedAt:    time.Now(),
				ExpiresAt:      time.Now().Add(action.Duration),
			},
		}
		if err := store.SaveIntervention(ctx, iv); err != nil {
			t.Fatalf("SaveIntervention() error = %v", err)
		}
	}

	n, err := store.InterventionCount(ctx, sessionID.String())
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("intervention count = %d, want 3", n)
	}
}
