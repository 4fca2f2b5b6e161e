package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/prepcoach/internal/dispatch"
	"github.com/felixgeelhaar/prepcoach/internal/session"
)

// Publisher pushes session output to the broker, wrapped in retry and a
// circuit breaker so a flapping broker never stalls session workers.
type Publisher struct {
	conn    *Connection
	breaker circuitbreaker.CircuitBreaker[struct{}]
	retrier retry.Retry[struct{}]
	logger  *slog.Logger
}

// NewPublisher creates a resilient publisher over an open connection
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	p := &Publisher{
		conn:   conn,
		logger: logger,
	}

	p.breaker = circuitbreaker.New[struct{}](circuitbreaker.Config{
		MaxRequests: 2,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			logger.Warn("publisher circuit breaker state change",
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	p.retrier = retry.New[struct{}](retry.Config{
		MaxAttempts:   3,
		InitialDelay:  200 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
	})

	return p
}

// PublishMessage sends one coaching event to the UI gateway queue
func (p *Publisher) PublishMessage(ctx context.Context, studentID uuid.UUID, ev dispatch.Event) error {
	envelope := CoachingEnvelope{
		StudentID: studentID,
		Event:     ev,
		SentAt:    time.Now(),
	}
	return p.publish(ctx, CoachingQueueName, envelope)
}

// PublishSummary sends an end-of-session summary to the analytics queue
func (p *Publisher) PublishSummary(ctx context.Context, s session.Summary) error {
	envelope := SummaryEnvelope{
		Summary: s,
		SentAt:  time.Now(),
	}
	return p.publish(ctx, SummaryQueueName, envelope)
}

func (p *Publisher) publish(ctx context.Context, queue string, payload any) error {
	_, err := p.breaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return p.retrier.Do(ctx, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, p.conn.PublishJSON(ctx, queue, payload)
		})
	})
	if err != nil {
		p.logger.Error("publish failed", "queue", queue, "error", err)
	}
	return err
}
