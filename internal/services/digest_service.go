package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"coincraft/internal/amqp"
)

// DigestStore lists the users eligible for the daily digest.
type DigestStore interface {
	ListUsers(ctx context.Context) ([]string, error)
}

// DigestService runs the daily engagement digest: it rebuilds each user's
// dashboard and publishes a nudge-digest event carrying the nudge count.
// Downstream consumers turn these into notifications.
type DigestService struct {
	store      DigestStore
	dashboards *DashboardService
	publisher  EventPublisher
}

func NewDigestService(store DigestStore, dashboards *DashboardService, publisher EventPublisher) *DigestService {
	return &DigestService{
		store:      store,
		dashboards: dashboards,
		publisher:  publisher,
	}
}

// Run produces one digest per user. A failed user is logged and skipped so
// one bad dashboard never starves the rest.
func (s *DigestService) Run(ctx context.Context, now time.Time) error {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list digest users: %w", err)
	}

	for _, userID := range users {
		dash, err := s.dashboards.Build(ctx, userID, now)
		if err != nil {
			slog.ErrorContext(ctx, "Digest dashboard build failed",
				"user_id", userID, "error", err)
			continue
		}

		slog.InfoContext(ctx, "Digest prepared",
			"user_id", userID,
			"nudge_count", len(dash.Nudges),
			"health_total", dash.Health.Total,
			"health_level", dash.Health.Level,
			"streak", dash.Streak.Current)

		if len(dash.Nudges) == 0 {
			continue
		}
		if s.publisher != nil {
			event := amqp.NewEvent(amqp.KindNudgeDigest, userID, strconv.Itoa(len(dash.Nudges)))
			if err := s.publisher.PublishEvent(ctx, event); err != nil {
				slog.ErrorContext(ctx, "Failed to publish digest event",
					"user_id", userID, "error", err)
			}
		}
	}
	return nil
}
