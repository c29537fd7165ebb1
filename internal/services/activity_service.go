// Package services orchestrates the domain engines over storage, AMQP and
// the export ledger.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"coincraft/internal/achievement"
	"coincraft/internal/amqp"
	"coincraft/internal/core"
	"coincraft/internal/streak"
)

// ActivityStore is the persistence surface for logging financial activity.
type ActivityStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	AddEnvelopeSpend(ctx context.Context, userID string, id int64, amount core.Money) error
	AddGoalContribution(ctx context.Context, userID string, id int64, amount core.Money) error
	GetGoal(ctx context.Context, userID string, id int64) (core.Goal, error)
	GetModules(ctx context.Context, userID string) (core.ModuleSet, error)
	GetStreak(ctx context.Context, userID string) (core.StreakState, error)

	CountTransactions(ctx context.Context, userID string) (int64, error)
	CountCompletedGoals(ctx context.Context, userID string) (int64, error)
	CountEnvelopesOnBudget(ctx context.Context, userID string) (int64, error)
	TotalSaved(ctx context.Context, userID string) (core.Money, error)
	UnlockedAchievements(ctx context.Context, userID string) (map[string]bool, error)
	UnlockAchievement(ctx context.Context, userID, achievementID string) (bool, error)
}

// ActivityService records transactions and runs the engagement side effects:
// envelope spend, streak updates, achievement unlocks, domain events.
type ActivityService struct {
	store     ActivityStore
	tracker   *streak.Tracker
	rollovers *RolloverProcessor
	publisher EventPublisher
}

func NewActivityService(store ActivityStore, tracker *streak.Tracker, rollovers *RolloverProcessor, publisher EventPublisher) *ActivityService {
	return &ActivityService{
		store:     store,
		tracker:   tracker,
		rollovers: rollovers,
		publisher: publisher,
	}
}

// LogResult is what a logged transaction produced beyond the row itself.
type LogResult struct {
	Transaction  core.Transaction
	Streak       core.StreakState
	Milestone    int
	Achievements []achievement.Definition
}

// LogTransaction validates and saves a transaction, then applies the
// engagement side effects. The transaction save is the only hard failure;
// everything downstream is best-effort and logged.
func (s *ActivityService) LogTransaction(ctx context.Context, t core.Transaction) (LogResult, error) {
	if err := t.Validate(); err != nil {
		return LogResult{}, err
	}

	// An assigned envelope must exist and be in the current period before
	// the spend lands on it.
	if t.Type == core.Expense && t.EnvelopeID != 0 {
		if _, err := s.rollovers.EnsureCurrent(ctx, t.UserID, t.EnvelopeID, t.Date.Time); err != nil {
			return LogResult{}, fmt.Errorf("envelope check: %w", err)
		}
	}

	saved, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return LogResult{}, fmt.Errorf("save transaction: %w", err)
	}
	result := LogResult{Transaction: saved}

	if saved.Type == core.Expense && saved.EnvelopeID != 0 {
		if err := s.store.AddEnvelopeSpend(ctx, saved.UserID, saved.EnvelopeID, saved.Amount); err != nil {
			slog.ErrorContext(ctx, "Failed to record envelope spend",
				"envelope_id", saved.EnvelopeID, "transaction_id", saved.ID, "error", err)
		}
	}

	result.Streak, result.Milestone = s.applyStreak(ctx, saved)
	result.Achievements = s.applyAchievements(ctx, saved.UserID)

	return result, nil
}

// ContributeToGoal adds money to a savings goal and fires a completion event
// the first time the target is reached.
func (s *ActivityService) ContributeToGoal(ctx context.Context, userID string, goalID int64, amount core.Money) (core.Goal, error) {
	if err := amount.Validate(); err != nil {
		return core.Goal{}, err
	}

	before, err := s.store.GetGoal(ctx, userID, goalID)
	if err != nil {
		return core.Goal{}, err
	}

	if err := s.store.AddGoalContribution(ctx, userID, goalID, amount); err != nil {
		return core.Goal{}, err
	}

	after, err := s.store.GetGoal(ctx, userID, goalID)
	if err != nil {
		return core.Goal{}, err
	}

	if before.Saved.Centavos < before.Target.Centavos && after.Saved.Centavos >= after.Target.Centavos {
		slog.InfoContext(ctx, "Goal completed",
			"goal_id", after.ID, "user_id", userID, "target_centavos", after.Target.Centavos)
		s.publish(ctx, amqp.NewEvent(amqp.KindGoalCompleted, userID, strconv.FormatInt(after.ID, 10)))
	}

	s.applyAchievements(ctx, userID)
	return after, nil
}

// applyStreak advances the user's daily streak. Backdated transactions are
// valid history but do not move the streak.
func (s *ActivityService) applyStreak(ctx context.Context, t core.Transaction) (core.StreakState, int) {
	state, milestone, err := s.tracker.Log(ctx, t.UserID, t.Date)
	if err != nil {
		if errors.Is(err, streak.ErrNonMonotonicDate) {
			slog.DebugContext(ctx, "Backdated transaction, streak unchanged",
				"user_id", t.UserID, "date", t.Date.String())
			if current, getErr := s.store.GetStreak(ctx, t.UserID); getErr == nil {
				return current, 0
			}
			return core.StreakState{UserID: t.UserID}, 0
		}
		slog.ErrorContext(ctx, "Failed to update streak",
			"user_id", t.UserID, "error", err)
		return core.StreakState{UserID: t.UserID}, 0
	}

	if milestone > 0 {
		slog.InfoContext(ctx, "Streak milestone reached",
			"user_id", t.UserID, "milestone", milestone, "streak", state.Current)
		s.publish(ctx, amqp.NewEvent(amqp.KindStreakMilestone, t.UserID, strconv.Itoa(milestone)))
	}
	return state, milestone
}

// applyAchievements evaluates the catalog against fresh stats and unlocks
// whatever newly qualifies. Gamification must be active for the user.
func (s *ActivityService) applyAchievements(ctx context.Context, userID string) []achievement.Definition {
	modules, err := s.store.GetModules(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load modules", "user_id", userID, "error", err)
		return nil
	}
	if !modules.Has(core.ModuleGamification) {
		return nil
	}

	defs, err := achievement.Catalog()
	if err != nil {
		slog.ErrorContext(ctx, "Achievement catalog unavailable", "error", err)
		return nil
	}

	stats, err := s.collectStats(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to collect achievement stats",
			"user_id", userID, "error", err)
		return nil
	}

	unlocked, err := s.store.UnlockedAchievements(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to load unlocked achievements",
			"user_id", userID, "error", err)
		return nil
	}

	var newly []achievement.Definition
	for _, def := range achievement.Evaluate(defs, stats, unlocked) {
		fresh, err := s.store.UnlockAchievement(ctx, userID, def.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to persist achievement unlock",
				"user_id", userID, "achievement_id", def.ID, "error", err)
			continue
		}
		if !fresh {
			continue
		}
		newly = append(newly, def)
		s.publish(ctx, amqp.NewEvent(amqp.KindAchievementUnlocked, userID, def.ID))
	}
	return newly
}

func (s *ActivityService) collectStats(ctx context.Context, userID string) (achievement.Stats, error) {
	var stats achievement.Stats

	transactions, err := s.store.CountTransactions(ctx, userID)
	if err != nil {
		return stats, err
	}
	streakState, err := s.store.GetStreak(ctx, userID)
	if err != nil {
		return stats, err
	}
	completed, err := s.store.CountCompletedGoals(ctx, userID)
	if err != nil {
		return stats, err
	}
	saved, err := s.store.TotalSaved(ctx, userID)
	if err != nil {
		return stats, err
	}
	onBudget, err := s.store.CountEnvelopesOnBudget(ctx, userID)
	if err != nil {
		return stats, err
	}

	stats.TransactionsLogged = transactions
	stats.LongestStreak = int64(streakState.Longest)
	stats.GoalsCompleted = completed
	stats.TotalSavedCentavos = saved.Centavos
	stats.EnvelopesOnBudget = onBudget
	return stats, nil
}

func (s *ActivityService) publish(ctx context.Context, event *amqp.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish event",
			"event_kind", event.Kind, "user_id", event.UserID, "error", err)
	}
}
