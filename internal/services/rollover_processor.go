package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"coincraft/internal/amqp"
	"coincraft/internal/core"
	"coincraft/internal/envelope"
)

// RolloverStore is the persistence surface the rollover processor needs.
type RolloverStore interface {
	GetEnvelope(ctx context.Context, userID string, id int64) (core.Envelope, error)
	ListEnvelopes(ctx context.Context, userID string) ([]core.Envelope, error)
	UpdateEnvelopePeriod(ctx context.Context, e core.Envelope, priorStart core.Date) (bool, error)
	ListEnvelopeOwners(ctx context.Context) ([]string, error)
}

// EventPublisher publishes domain events. May be satisfied by the AMQP
// client; a nil publisher disables events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *amqp.Event) error
}

// RolloverProcessor advances envelope periods. Evaluation is lazy: callers
// run EnsureCurrent before any period-sensitive read, and the sweeper runs
// EnsureAllCurrent on a schedule so dashboards stay warm.
type RolloverProcessor struct {
	store     RolloverStore
	publisher EventPublisher
}

func NewRolloverProcessor(store RolloverStore, publisher EventPublisher) *RolloverProcessor {
	return &RolloverProcessor{store: store, publisher: publisher}
}

// EnsureCurrent brings one envelope into the current period and returns the
// up-to-date row. A lost conditional write means another caller already
// reset the envelope, so the fresh row is re-read and returned.
func (p *RolloverProcessor) EnsureCurrent(ctx context.Context, userID string, id int64, now time.Time) (core.Envelope, error) {
	env, err := p.store.GetEnvelope(ctx, userID, id)
	if err != nil {
		return core.Envelope{}, fmt.Errorf("get envelope: %w", err)
	}
	return p.ensure(ctx, env, now)
}

// EnsureAllCurrent brings every envelope of the user into the current period.
func (p *RolloverProcessor) EnsureAllCurrent(ctx context.Context, userID string, now time.Time) ([]core.Envelope, error) {
	envs, err := p.store.ListEnvelopes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list envelopes: %w", err)
	}

	out := make([]core.Envelope, 0, len(envs))
	for _, env := range envs {
		current, err := p.ensure(ctx, env, now)
		if err != nil {
			return nil, err
		}
		out = append(out, current)
	}
	return out, nil
}

func (p *RolloverProcessor) ensure(ctx context.Context, env core.Envelope, now time.Time) (core.Envelope, error) {
	next, changed := envelope.CheckAndReset(env, now)
	if !changed {
		return env, nil
	}

	ok, err := p.store.UpdateEnvelopePeriod(ctx, next, env.PeriodStart)
	if err != nil {
		return core.Envelope{}, fmt.Errorf("apply period reset: %w", err)
	}
	if !ok {
		// Someone else reset it first; their row is authoritative.
		fresh, err := p.store.GetEnvelope(ctx, env.UserID, env.ID)
		if err != nil {
			return core.Envelope{}, fmt.Errorf("reload envelope after lost reset: %w", err)
		}
		return fresh, nil
	}

	slog.InfoContext(ctx, "Envelope period reset",
		"envelope_id", next.ID,
		"user_id", next.UserID,
		"period_start", next.PeriodStart.String(),
		"rollover_centavos", next.Rollover.Centavos)

	p.publish(ctx, amqp.NewEvent(amqp.KindEnvelopeReset, next.UserID, strconv.FormatInt(next.ID, 10)))
	return next, nil
}

// SweepAll advances lapsed periods for every user. Used by the scheduled
// sweeper; per-user failures are logged and do not stop the sweep.
func (p *RolloverProcessor) SweepAll(ctx context.Context, now time.Time) error {
	owners, err := p.store.ListEnvelopeOwners(ctx)
	if err != nil {
		return fmt.Errorf("list envelope owners: %w", err)
	}

	swept := 0
	for _, userID := range owners {
		if _, err := p.EnsureAllCurrent(ctx, userID, now); err != nil {
			slog.ErrorContext(ctx, "Rollover sweep failed for user",
				"user_id", userID, "error", err)
			continue
		}
		swept++
	}

	slog.InfoContext(ctx, "Rollover sweep completed", "users", swept, "total", len(owners))
	return nil
}

func (p *RolloverProcessor) publish(ctx context.Context, event *amqp.Event) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish event",
			"event_kind", event.Kind, "user_id", event.UserID, "error", err)
	}
}
