package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/prepcoach/internal/dispatch"
	"github.com/felixgeelhaar/prepcoach/internal/domain"
	"github.com/felixgeelhaar/prepcoach/internal/engine"
	"github.com/felixgeelhaar/prepcoach/internal/strategy"
)

// Summary is the end-of-session record handed to storage and analytics
type Summary struct {
	SessionID      uuid.UUID               `json:"session_id"`
	StudentID      uuid.UUID               `json:"student_id"`
	TestType       string                  `json:"test_type"`
	Metrics        domain.SessionMetrics   `json:"metrics"`
	AverageMastery float64                 `json:"average_mastery"`
	Assessment     *domain.SkillAssessment `json:"skill_assessment,omitempty"`
	StartedAt      time.Time               `json:"started_at"`
	EndedAt        time.Time               `json:"ended_at"`
}

// Intervention is the persisted record of one displayed coaching message
type Intervention struct {
	SessionID uuid.UUID              `json:"session_id"`
	StudentID uuid.UUID              `json:"student_id"`
	Message   domain.CoachingMessage `json:"message"`
}

// Store persists session outcomes. Implementations must tolerate concurrent
// calls from multiple session workers.
type Store interface {
	SaveSummary(ctx context.Context, s Summary) error
	SaveIntervention(ctx context.Context, iv Intervention) error
}

// Publisher fans session output out to external consumers
type Publisher interface {
	PublishMessage(ctx context.Context, studentID uuid.UUID, ev dispatch.Event) error
	PublishSummary(ctx context.Context, s Summary) error
}

// Options tunes per-session components
type Options struct {
	Tick       time.Duration
	Q          engine.QConfig
	MaxActive  int
	Strategies []strategy.Strategy // nil uses the built-in catalogue
}

// Idle handling for the periodic evaluator
const (
	idleDecayAfter = 30 * time.Second
	idleDecayEvery = 15 * time.Second
)

// managed bundles one session with its decision pipeline. The mutex
// serializes the attempt-driven and timer-driven cadences.
type managed struct {
	mu sync.Mutex

	sess       *Session
	state      *domain.StudentState
	tracker    *domain.MasteryTracker
	engine     *engine.Engine
	selector   *strategy.Selector
	dispatcher *dispatch.Dispatcher

	profile      strategy.Profile
	lastStrategy string
	stressEvents int
	lastDecayAt  time.Time

	cancel context.CancelFunc
	done   chan struct{} // closed when the worker goroutines exit
}

// Service is the multi-tenant registry of live sessions. Each session gets
// its own pipeline instances; nothing is shared between students.
type Service struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*managed

	catalogue []domain.Skill
	opts      Options
	evaluator *domain.SkillEvaluator
	store     Store
	publisher Publisher
	logger    *slog.Logger
}

// NewService creates the session registry. store and publisher may be nil,
// in which case persistence and fan-out are skipped.
func NewService(catalogue []domain.Skill, opts Options, store Store, publisher Publisher, logger *slog.Logger) (*Service, error) {
	if len(catalogue) == 0 {
		return nil, domain.ErrEmptyCatalogue
	}
	if opts.Tick <= 0 {
		opts.Tick = 2 * time.Second
	}
	if opts.MaxActive < 1 {
		opts.MaxActive = dispatch.DefaultMaxActive
	}
	return &Service{
		sessions:  make(map[uuid.UUID]*managed),
		catalogue: catalogue,
		opts:      opts,
		evaluator: domain.NewSkillEvaluator(),
		store:     store,
		publisher: publisher,
		logger:    logger,
	}, nil
}

// Start creates a session, activates it, and launches its worker. The
// returned session is a snapshot.
func (svc *Service) Start(ctx context.Context, studentID uuid.UUID, testType string, sections []Section) (Session, error) {
	sess, err := NewSession(studentID, testType, sections)
	if err != nil {
		return Session{}, err
	}

	tracker, err := domain.NewMasteryTracker(svc.catalogue)
	if err != nil {
		return Session{}, err
	}

	var selector *strategy.Selector
	if svc.opts.Strategies != nil {
		selector = strategy.NewSelectorWithCatalogue(svc.opts.Strategies, svc.logger)
	} else {
		selector = strategy.NewSelector(svc.logger)
	}

	m := &managed{
		sess:       sess,
		state:      domain.NewStudentState(studentID),
		tracker:    tracker,
		engine:     engine.New(svc.opts.Q, svc.logger),
		selector:   selector,
		dispatcher: dispatch.New(svc.opts.MaxActive, svc.logger),
		done:       make(chan struct{}),
	}

	if err := sess.Start(); err != nil {
		return Session{}, err
	}

	welcome := domain.NewTutoringAction(
		domain.ActionEncouragement,
		"Welcome back. Settle in, and let's make this session count.",
		domain.PriorityLow,
	)
	welcome.Reasoning = "session start"
	m.dispatcher.Dispatch(welcome, m.state.StressLevel, m.state.EngagementLevel)

	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel

	svc.mu.Lock()
	svc.sessions[sess.ID] = m
	svc.mu.Unlock()

	go svc.runWorker(workerCtx, m)

	svc.logger.Info("session started",
		"session_id", sess.ID,
		"student_id", studentID,
		"test_type", testType,
	)
	return *sess, nil
}

// runWorker drives the periodic evaluator and forwards dispatcher events
// until the session ends.
func (svc *Service) runWorker(ctx context.Context, m *managed) {
	defer close(m.done)

	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for ev := range m.dispatcher.Events() {
			svc.forward(ctx, m, ev)
		}
	}()

	ticker := time.NewTicker(svc.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			m.dispatcher.Close()
			m.mu.Unlock()
			<-forwarded
			return
		case <-ticker.C:
			svc.tick(m)
		}
	}
}

// tick is the timer-driven cadence: engagement decay on idle stretches,
// rule re-evaluation, and message expiry.
func (svc *Service) tick(m *managed) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess.Status != StatusActive {
		return
	}

	now := time.Now()
	last, ok := m.state.LastAttemptAt()
	if !ok {
		last = m.sess.StartedAt
	}
	if now.Sub(last) > idleDecayAfter && now.Sub(m.lastDecayAt) >= idleDecayEvery {
		m.state.DecayEngagement()
		m.lastDecayAt = now
	}

	if action, fired := m.engine.EvaluateRules(m.state); fired {
		m.dispatcher.Dispatch(action, m.state.StressLevel, m.state.EngagementLevel)
	}

	m.dispatcher.Tick()
}

// forward pushes one dispatcher event to persistence and the broker. Both
// sinks are best-effort; failures are logged, never propagated to the
// session.
func (svc *Service) forward(ctx context.Context, m *managed, ev dispatch.Event) {
	if svc.store != nil && ev.Kind == dispatch.EventDisplayed {
		iv := Intervention{
			SessionID: m.sess.ID,
			StudentID: m.sess.StudentID,
			Message:   ev.Message,
		}
		if err := svc.store.SaveIntervention(ctx, iv); err != nil {
			svc.logger.Error("persisting intervention failed", "error", err, "message_id", ev.Message.ID)
		}
	}
	if svc.publisher != nil {
		if err := svc.publisher.PublishMessage(ctx, m.sess.StudentID, ev); err != nil {
			svc.logger.Error("publishing coaching event failed", "error", err, "message_id", ev.Message.ID)
		}
	}
}

// ProcessAttempt runs the full decision pipeline for one attempt: BKT
// update, state aggregation, reward feedback, intervention decision, and
// dispatch. Returns the updated mastery for the attempt's skill.
func (svc *Service) ProcessAttempt(id uuid.UUID, ev domain.AttemptEvent) (domain.SkillMastery, error) {
	m, err := svc.get(id)
	if err != nil {
		return domain.SkillMastery{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.sess.RecordCompletion(ev.Correct); err != nil {
		return domain.SkillMastery{}, err
	}

	mastery := m.tracker.RecordAttempt(ev.SkillID, ev.Correct)

	rec := domain.PerformanceRecord{
		Timestamp:    time.Now(),
		QuestionID:   ev.QuestionID,
		SkillID:      ev.SkillID,
		Correct:      ev.Correct,
		ResponseTime: ev.ResponseTime,
		Confidence:   ev.Confidence,
		Difficulty:   ev.Difficulty,
		Stress:       ev.Stress,
	}
	m.state.Refresh(rec)

	m.engine.ObserveOutcome(m.state, rec)

	if action, ok := m.engine.Decide(m.state); ok {
		m.dispatcher.Dispatch(action, m.state.StressLevel, m.state.EngagementLevel)
	}

	if m.lastStrategy != "" {
		m.selector.UpdatePerformance(m.lastStrategy, strategy.Outcome{
			Success:     ev.Correct,
			MasteryGain: masteryGain(mastery),
		})
	}

	if mastery == nil {
		return domain.SkillMastery{}, nil
	}
	return *mastery, nil
}

// StressSample folds an out-of-band sensor sample into the session. An
// acute reading produces an urgent break.
func (svc *Service) StressSample(id uuid.UUID, ind domain.StressIndicators) error {
	m, err := svc.get(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess.Status != StatusActive {
		return domain.ErrSessionNotActive
	}

	action, acute := m.engine.StressEvent(m.state, ind)
	if acute {
		m.stressEvents++
		m.dispatcher.Dispatch(action, m.state.StressLevel, m.state.EngagementLevel)
	}
	return nil
}

// Recommend selects a strategy for the session and evaluates its algorithm
// against the supplied question set.
func (svc *Service) Recommend(id uuid.UUID, profile strategy.Profile, available []domain.QuestionProfile) (domain.LearningRecommendation, error) {
	m, err := svc.get(id)
	if err != nil {
		return domain.LearningRecommendation{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess.Status == StatusNotStarted {
		return domain.LearningRecommendation{}, domain.ErrSessionNotStarted
	}

	if profile == (strategy.Profile{}) {
		profile = m.profile
	}

	in := strategy.Input{
		State: m.state,
		Context: strategy.Context{
			SessionType:   m.sess.TestType,
			TimeRemaining: m.sess.TimeRemaining(time.Now()),
			StressLevel:   m.state.StressLevel,
		},
		Profile:   profile,
		Skills:    m.tracker.Snapshot(),
		Available: available,
	}

	rec := m.selector.Recommend(in, m.tracker.AverageMastery())
	m.lastStrategy = rec.Strategy
	return rec, nil
}

// Personalize stores the student's learner profile as the session default
// and substitutes their per-strategy condition overrides in the selector.
func (svc *Service) Personalize(id uuid.UUID, profile strategy.Profile, overrides map[string][]strategy.Condition) error {
	m, err := svc.get(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate every name before touching the selector so a bad request
	// leaves no partial overrides behind.
	for name := range overrides {
		if _, ok := m.selector.Metrics(name); !ok {
			return fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidInput, name)
		}
	}
	for name, conditions := range overrides {
		m.selector.Personalize(name, conditions)
	}
	m.profile = profile
	return nil
}

// Profile returns the session's stored learner profile
func (svc *Service) Profile(id uuid.UUID) (strategy.Profile, error) {
	m, err := svc.get(id)
	if err != nil {
		return strategy.Profile{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile, nil
}

// Pause suspends attempt intake and interventions
func (svc *Service) Pause(id uuid.UUID) error {
	m, err := svc.get(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.Pause()
}

// Resume reactivates a paused session
func (svc *Service) Resume(id uuid.UUID) error {
	m, err := svc.get(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.Resume()
}

// End terminates a session, finalizes its summary, and releases its worker.
// Ending twice is a safe no-op.
func (svc *Service) End(ctx context.Context, id uuid.UUID) (Summary, error) {
	m, err := svc.get(id)
	if err != nil {
		return Summary{}, err
	}

	m.mu.Lock()
	if m.sess.Status == StatusEnded {
		summary := svc.summarize(m)
		m.mu.Unlock()
		return summary, nil
	}
	m.sess.End()
	summary := svc.summarize(m)
	m.mu.Unlock()

	m.cancel()
	<-m.done

	if svc.store != nil {
		if err := svc.store.SaveSummary(ctx, summary); err != nil {
			svc.logger.Error("persisting session summary failed", "error", err, "session_id", id)
		}
	}
	if svc.publisher != nil {
		if err := svc.publisher.PublishSummary(ctx, summary); err != nil {
			svc.logger.Error("publishing session summary failed", "error", err, "session_id", id)
		}
	}

	svc.logger.Info("session ended",
		"session_id", id,
		"questions", summary.Metrics.TotalQuestions,
		"interventions", summary.Metrics.Interventions,
	)
	return summary, nil
}

// Get returns a snapshot of the session
func (svc *Service) Get(id uuid.UUID) (Session, error) {
	m, err := svc.get(id)
	if err != nil {
		return Session{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.sess, nil
}

// State returns a copy of the aggregated student state
func (svc *Service) State(id uuid.UUID) (domain.StudentState, error) {
	m, err := svc.get(id)
	if err != nil {
		return domain.StudentState{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.state, nil
}

// RestoreMastery seeds the session's tracker from previously persisted
// per-skill state. Skills outside the catalogue are ignored.
func (svc *Service) RestoreMastery(id uuid.UUID, skills []domain.SkillMastery) error {
	m, err := svc.get(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sk := range skills {
		m.tracker.Restore(sk)
	}
	return nil
}

// Mastery returns the per-skill mastery snapshot in catalogue order
func (svc *Service) Mastery(id uuid.UUID) ([]domain.SkillMastery, error) {
	m, err := svc.get(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracker.Snapshot(), nil
}

// Metrics computes the aggregate session metrics on demand
func (svc *Service) Metrics(id uuid.UUID) (domain.SessionMetrics, error) {
	m, err := svc.get(id)
	if err != nil {
		return domain.SessionMetrics{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return svc.metrics(m), nil
}

// Messages returns the currently displayed coaching messages
func (svc *Service) Messages(id uuid.UUID) ([]domain.CoachingMessage, error) {
	m, err := svc.get(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dispatcher.Active(), nil
}

// Dismiss removes a displayed message
func (svc *Service) Dismiss(id, messageID uuid.UUID) error {
	m, err := svc.get(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.dispatcher.Dismiss(messageID) {
		return domain.ErrNotFound
	}
	return nil
}

// Pacing reports the session's schedule position
func (svc *Service) Pacing(id uuid.UUID) (Pacing, error) {
	m, err := svc.get(id)
	if err != nil {
		return Pacing{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess.Pacing(time.Now()), nil
}

// Shutdown ends every live session. Used at daemon shutdown.
func (svc *Service) Shutdown(ctx context.Context) {
	svc.mu.RLock()
	ids := make([]uuid.UUID, 0, len(svc.sessions))
	for id := range svc.sessions {
		ids = append(ids, id)
	}
	svc.mu.RUnlock()

	for _, id := range ids {
		if _, err := svc.End(ctx, id); err != nil {
			svc.logger.Error("ending session during shutdown failed", "error", err, "session_id", id)
		}
	}
}

func (svc *Service) get(id uuid.UUID) (*managed, error) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	m, ok := svc.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return m, nil
}

// metrics assembles the on-demand aggregate; caller holds m.mu
func (svc *Service) metrics(m *managed) domain.SessionMetrics {
	behind := m.sess.Pacing(time.Now()).QuestionsBehind
	score := 1 - behind/5
	if score < 0 {
		score = 0
	}

	return domain.SessionMetrics{
		TotalQuestions:      m.sess.QuestionsCompleted,
		CorrectAnswers:      m.sess.CorrectAnswers,
		Interventions:       m.dispatcher.Shown(),
		StressEvents:        m.stressEvents,
		TimeManagementScore: score,
	}
}

// summarize builds the end-of-session record; caller holds m.mu
func (svc *Service) summarize(m *managed) Summary {
	return Summary{
		SessionID:      m.sess.ID,
		StudentID:      m.sess.StudentID,
		TestType:       m.sess.TestType,
		Metrics:        svc.metrics(m),
		AverageMastery: m.tracker.AverageMastery(),
		Assessment:     svc.evaluator.Evaluate(m.tracker.Snapshot(), m.state),
		StartedAt:      m.sess.StartedAt,
		EndedAt:        m.sess.EndedAt,
	}
}

func masteryGain(sk *domain.SkillMastery) float64 {
	if sk == nil {
		return 0
	}
	return (1 - sk.Mastery) * sk.LearningRate
}
