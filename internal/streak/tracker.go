// Package streak tracks consecutive days of logged financial activity.
//
// The update rule is pure; persistence goes through a Store whose conditional
// write guarantees at most one increment per calendar day even under
// concurrent logging.
package streak

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"coincraft/internal/core"
)

// Milestones are the streak lengths that trigger a celebration, ascending.
var Milestones = []int{7, 30, 100}

var (
	// ErrNonMonotonicDate is returned when an activity date precedes the last
	// recorded log date. Callers decide whether to ignore or reject it.
	ErrNonMonotonicDate = errors.New("activity date precedes last logged date")

	// ErrConflict is returned when the conditional state write keeps losing
	// against concurrent updates.
	ErrConflict = errors.New("streak state changed concurrently")
)

// Update applies one logged activity to the prior streak state.
//
// A zero prior state means the user has never logged: the streak starts at 1.
// Logging again on the last recorded day is a no-op. A one-day gap extends the
// streak, a longer gap resets it to 1. The returned milestone is the highest
// newly crossed entry of Milestones, or 0 when none was crossed.
func Update(prior core.StreakState, activity core.Date) (core.StreakState, int, error) {
	if err := activity.Validate(); err != nil {
		return prior, 0, err
	}

	if prior.LastLog.IsEmpty() {
		next := prior
		next.Current = 1
		if next.Longest < 1 {
			next.Longest = 1
		}
		next.LastLog = activity
		return next, newlyReached(prior.Current, next.Current), nil
	}

	if prior.LastLog.Equal(activity) {
		return prior, 0, nil
	}

	gap := prior.LastLog.DaysUntil(activity)
	if gap < 0 {
		return prior, 0, fmt.Errorf("%w: last=%s activity=%s", ErrNonMonotonicDate, prior.LastLog, activity)
	}

	next := prior
	if gap == 1 {
		next.Current = prior.Current + 1
	} else {
		next.Current = 1
	}
	if next.Current > next.Longest {
		next.Longest = next.Current
	}
	next.LastLog = activity

	return next, newlyReached(prior.Current, next.Current), nil
}

// newlyReached returns the highest milestone crossed between prev and cur.
func newlyReached(prev, cur int) int {
	reached := 0
	for _, m := range Milestones {
		if cur >= m && prev < m {
			reached = m
		}
	}
	return reached
}

// Store persists streak state keyed by user.
type Store interface {
	// GetStreak returns the current state, or a zero state when the user has
	// never logged activity.
	GetStreak(ctx context.Context, userID string) (core.StreakState, error)

	// PutStreak writes next only if the stored last log date still matches
	// prior's. It reports false when another writer got there first.
	PutStreak(ctx context.Context, prior, next core.StreakState) (bool, error)
}

// Tracker applies streak updates against a Store.
type Tracker struct {
	store Store
}

func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// Log records one activity day for the user and returns the updated state and
// any newly reached milestone. A lost conditional write is retried once with
// fresh state before failing with ErrConflict.
func (t *Tracker) Log(ctx context.Context, userID string, activity core.Date) (core.StreakState, int, error) {
	for attempt := 0; attempt < 2; attempt++ {
		prior, err := t.store.GetStreak(ctx, userID)
		if err != nil {
			return core.StreakState{}, 0, fmt.Errorf("get streak: %w", err)
		}
		prior.UserID = userID

		next, milestone, err := Update(prior, activity)
		if err != nil {
			return core.StreakState{}, 0, err
		}
		if next.Current == prior.Current && next.LastLog.Equal(prior.LastLog) {
			// Same-day repeat, nothing to persist.
			return prior, 0, nil
		}

		ok, err := t.store.PutStreak(ctx, prior, next)
		if err != nil {
			return core.StreakState{}, 0, fmt.Errorf("put streak: %w", err)
		}
		if ok {
			return next, milestone, nil
		}

		slog.DebugContext(ctx, "Streak write conflict, retrying with fresh state",
			"user_id", userID, "attempt", attempt+1)
	}

	return core.StreakState{}, 0, ErrConflict
}
