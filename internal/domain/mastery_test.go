package domain

import (
	"math"
	"testing"
)

func testCatalogue() []Skill {
	return []Skill{
		{ID: "algebra.linear", Name: "Linear Equations"},
		{ID: "algebra.quadratic", Name: "Quadratic Equations"},
		{ID: "reading.inference", Name: "Inference"},
	}
}

func TestNewMasteryTracker_EmptyCatalogue(t *testing.T) {
	if _, err := NewMasteryTracker(nil); err != ErrEmptyCatalogue {
		t.Errorf("NewMasteryTracker(nil) error = %v, want ErrEmptyCatalogue", err)
	}
}

func TestNewMasteryTracker_InitialState(t *testing.T) {
	tracker, err := NewMasteryTracker(testCatalogue())
	if err != nil {
		t.Fatalf("NewMasteryTracker() error = %v", err)
	}

	sk, ok := tracker.Get("algebra.linear")
	if !ok {
		t.Fatal("expected algebra.linear to be tracked")
	}
	if sk.Mastery != DefaultBKTParams().Prior {
		t.Errorf("initial mastery = %v, want prior %v", sk.Mastery, DefaultBKTParams().Prior)
	}
	if sk.Attempts != 0 || sk.CorrectAttempts != 0 {
		t.Errorf("expected zero counters, got attempts=%d correct=%d", sk.Attempts, sk.CorrectAttempts)
	}
}

func TestRecordAttempt_KnownScenario(t *testing.T) {
	// prior=0.1, slip=0.1, guess=0.25, learn=0.15, one correct attempt:
	// posterior = 0.09/0.315 ≈ 0.2857, final ≈ 0.3929
	tracker, _ := NewMasteryTracker(testCatalogue())

	sk := tracker.RecordAttempt("algebra.linear", true)
	if sk == nil {
		t.Fatal("RecordAttempt returned nil for tracked skill")
	}

	if math.Abs(sk.Mastery-0.3929) > 0.001 {
		t.Errorf("mastery after one correct = %v, want ≈0.3929", sk.Mastery)
	}
	if sk.Attempts != 1 || sk.CorrectAttempts != 1 {
		t.Errorf("counters = (%d,%d), want (1,1)", sk.Attempts, sk.CorrectAttempts)
	}
	if sk.LastAttemptAt.IsZero() {
		t.Error("LastAttemptAt not set")
	}
}

func TestRecordAttempt_UnknownSkillIsNoOp(t *testing.T) {
	tracker, _ := NewMasteryTracker(testCatalogue())

	if got := tracker.RecordAttempt("geometry.circles", true); got != nil {
		t.Errorf("RecordAttempt(unknown) = %v, want nil", got)
	}

	// No counters should move anywhere
	for _, sk := range tracker.Snapshot() {
		if sk.Attempts != 0 {
			t.Errorf("skill %s attempts = %d after unknown-skill attempt", sk.SkillID, sk.Attempts)
		}
	}
}

func TestRecordAttempt_BoundsHold(t *testing.T) {
	tracker, _ := NewMasteryTracker(testCatalogue())

	// Long streaks in both directions must stay within [0.01, 0.99]
	for i := 0; i < 200; i++ {
		sk := tracker.RecordAttempt("algebra.linear", true)
		if sk.Mastery < MasteryFloor || sk.Mastery > MasteryCeil {
			t.Fatalf("mastery %v out of bounds after %d correct", sk.Mastery, i+1)
		}
	}
	for i := 0; i < 200; i++ {
		sk := tracker.RecordAttempt("algebra.linear", false)
		if sk.Mastery < MasteryFloor || sk.Mastery > MasteryCeil {
			t.Fatalf("mastery %v out of bounds after %d incorrect", sk.Mastery, i+1)
		}
	}
}

func TestRecordAttempt_Direction(t *testing.T) {
	// With slip, guess < 0.5 a correct attempt never lowers mastery and an
	// incorrect attempt never raises it beyond the learning-opportunity gain.
	tracker, _ := NewMasteryTracker(testCatalogue())

	prev := DefaultBKTParams().Prior
	for i := 0; i < 20; i++ {
		sk := tracker.RecordAttempt("algebra.quadratic", true)
		if sk.Mastery < prev {
			t.Fatalf("correct attempt decreased mastery: %v -> %v", prev, sk.Mastery)
		}
		prev = sk.Mastery
	}

	// Posterior alone must not increase on an incorrect attempt
	p := DefaultBKTParams()
	for _, prior := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
		if post := p.Posterior(prior, false); post > prior {
			t.Errorf("Posterior(%v, incorrect) = %v, increased", prior, post)
		}
		if post := p.Posterior(prior, true); post < prior {
			t.Errorf("Posterior(%v, correct) = %v, decreased", prior, post)
		}
	}
}

func TestAdaptLearningRate(t *testing.T) {
	tracker, _ := NewMasteryTracker(testCatalogue())

	// Three correct in a row nudges the rate up
	for i := 0; i < 3; i++ {
		tracker.RecordAttempt("algebra.linear", true)
	}
	sk, _ := tracker.Get("algebra.linear")
	if sk.LearningRate <= DefaultBKTParams().Learn {
		t.Errorf("learning rate = %v, expected increase above %v", sk.LearningRate, DefaultBKTParams().Learn)
	}

	// A long incorrect streak floors at 0.05
	for i := 0; i < 100; i++ {
		tracker.RecordAttempt("algebra.linear", false)
	}
	sk, _ = tracker.Get("algebra.linear")
	if sk.LearningRate < learningRateFloor-1e-9 {
		t.Errorf("learning rate %v below floor", sk.LearningRate)
	}

	// A long correct streak caps at 0.3
	for i := 0; i < 200; i++ {
		tracker.RecordAttempt("algebra.quadratic", true)
	}
	sk, _ = tracker.Get("algebra.quadratic")
	if sk.LearningRate > learningRateCeil+1e-9 {
		t.Errorf("learning rate %v above cap", sk.LearningRate)
	}
}

func TestWeakest(t *testing.T) {
	tracker, _ := NewMasteryTracker(testCatalogue())

	for i := 0; i < 10; i++ {
		tracker.RecordAttempt("algebra.linear", true)
	}
	for i := 0; i < 5; i++ {
		tracker.RecordAttempt("algebra.quadratic", false)
	}

	weakest := tracker.Weakest(2)
	if len(weakest) != 2 {
		t.Fatalf("Weakest(2) returned %d skills", len(weakest))
	}
	if weakest[0].SkillID == "algebra.linear" {
		t.Errorf("strongest skill %q ranked weakest", weakest[0].SkillID)
	}
	if weakest[0].Mastery > weakest[1].Mastery {
		t.Errorf("Weakest not sorted ascending: %v > %v", weakest[0].Mastery, weakest[1].Mastery)
	}
}

func TestReset(t *testing.T) {
	tracker, _ := NewMasteryTracker(testCatalogue())
	tracker.RecordAttempt("algebra.linear", true)
	tracker.RecordAttempt("algebra.linear", true)

	tracker.Reset()

	sk, _ := tracker.Get("algebra.linear")
	if sk.Mastery != DefaultBKTParams().Prior || sk.Attempts != 0 {
		t.Errorf("Reset left mastery=%v attempts=%d", sk.Mastery, sk.Attempts)
	}
}

func TestRestore(t *testing.T) {
	tracker, _ := NewMasteryTracker(testCatalogue())

	tracker.Restore(SkillMastery{
		SkillID:      "reading.inference",
		Name:         "Inference",
		Mastery:      0.75,
		Attempts:     12,
		LearningRate: 0.2,
		Params:       DefaultBKTParams(),
	})

	sk, _ := tracker.Get("reading.inference")
	if sk.Mastery != 0.75 || sk.Attempts != 12 {
		t.Errorf("Restore not applied: mastery=%v attempts=%d", sk.Mastery, sk.Attempts)
	}

	// Out-of-range values are clipped on restore
	tracker.Restore(SkillMastery{SkillID: "reading.inference", Mastery: 1.2, Params: DefaultBKTParams()})
	sk, _ = tracker.Get("reading.inference")
	if sk.Mastery != MasteryCeil {
		t.Errorf("restored mastery = %v, want clipped to %v", sk.Mastery, MasteryCeil)
	}
}
