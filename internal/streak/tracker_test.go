package streak

import (
	"context"
	"errors"
	"testing"

	"coincraft/internal/core"
)

func TestUpdate(t *testing.T) {
	tests := []struct {
		name          string
		prior         core.StreakState
		activity      core.Date
		wantCurrent   int
		wantLongest   int
		wantMilestone int
		wantErr       error
	}{
		{
			name:          "first activity ever",
			prior:         core.StreakState{},
			activity:      core.NewDate(2024, 1, 5),
			wantCurrent:   1,
			wantLongest:   1,
			wantMilestone: 0,
		},
		{
			name: "consecutive day extends",
			prior: core.StreakState{
				Current: 6, Longest: 10, LastLog: core.NewDate(2024, 1, 5),
			},
			activity:      core.NewDate(2024, 1, 6),
			wantCurrent:   7,
			wantLongest:   10,
			wantMilestone: 7,
		},
		{
			name: "gap resets to one",
			prior: core.StreakState{
				Current: 3, Longest: 3, LastLog: core.NewDate(2024, 1, 1),
			},
			activity:      core.NewDate(2024, 1, 10),
			wantCurrent:   1,
			wantLongest:   3,
			wantMilestone: 0,
		},
		{
			name: "same day is a no-op",
			prior: core.StreakState{
				Current: 4, Longest: 9, LastLog: core.NewDate(2024, 1, 5),
			},
			activity:      core.NewDate(2024, 1, 5),
			wantCurrent:   4,
			wantLongest:   9,
			wantMilestone: 0,
		},
		{
			name: "milestone fires exactly once",
			prior: core.StreakState{
				Current: 7, Longest: 7, LastLog: core.NewDate(2024, 1, 7),
			},
			activity:      core.NewDate(2024, 1, 8),
			wantCurrent:   8,
			wantLongest:   8,
			wantMilestone: 0,
		},
		{
			name: "longest follows current past previous best",
			prior: core.StreakState{
				Current: 29, Longest: 29, LastLog: core.NewDate(2024, 2, 1),
			},
			activity:      core.NewDate(2024, 2, 2),
			wantCurrent:   30,
			wantLongest:   30,
			wantMilestone: 30,
		},
		{
			name: "out-of-order activity date rejected",
			prior: core.StreakState{
				Current: 2, Longest: 2, LastLog: core.NewDate(2024, 1, 10),
			},
			activity: core.NewDate(2024, 1, 8),
			wantErr:  ErrNonMonotonicDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, milestone, err := Update(tt.prior, tt.activity)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Update() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Update() error = %v", err)
			}
			if next.Current != tt.wantCurrent {
				t.Errorf("Current = %d, want %d", next.Current, tt.wantCurrent)
			}
			if next.Longest != tt.wantLongest {
				t.Errorf("Longest = %d, want %d", next.Longest, tt.wantLongest)
			}
			if milestone != tt.wantMilestone {
				t.Errorf("milestone = %d, want %d", milestone, tt.wantMilestone)
			}
		})
	}
}

func TestUpdateLongestMonotonic(t *testing.T) {
	state := core.StreakState{}
	dates := []core.Date{
		core.NewDate(2024, 1, 1),
		core.NewDate(2024, 1, 2),
		core.NewDate(2024, 1, 3),
		core.NewDate(2024, 1, 9), // break
		core.NewDate(2024, 1, 10),
	}
	prevLongest := 0
	for _, d := range dates {
		next, _, err := Update(state, d)
		if err != nil {
			t.Fatalf("Update(%s) error = %v", d, err)
		}
		if next.Longest < prevLongest {
			t.Fatalf("Longest decreased: %d -> %d", prevLongest, next.Longest)
		}
		prevLongest = next.Longest
		state = next
	}
	if state.Current != 2 || state.Longest != 3 {
		t.Errorf("final state = current %d longest %d, want 2/3", state.Current, state.Longest)
	}
}

// fakeStore simulates a conditional-write store, optionally losing the first
// write to a concurrent update.
type fakeStore struct {
	state     core.StreakState
	conflicts int
	puts      int
}

func (f *fakeStore) GetStreak(_ context.Context, userID string) (core.StreakState, error) {
	s := f.state
	s.UserID = userID
	return s, nil
}

func (f *fakeStore) PutStreak(_ context.Context, prior, next core.StreakState) (bool, error) {
	f.puts++
	if f.conflicts > 0 {
		f.conflicts--
		// Another writer logged the same day first.
		f.state = next
		return false, nil
	}
	if !f.state.LastLog.Equal(prior.LastLog) {
		return false, nil
	}
	f.state = next
	return true, nil
}

func TestTrackerLogRetriesOnConflict(t *testing.T) {
	store := &fakeStore{
		state:     core.StreakState{Current: 2, Longest: 2, LastLog: core.NewDate(2024, 3, 1)},
		conflicts: 1,
	}
	tracker := NewTracker(store)

	state, milestone, err := tracker.Log(context.Background(), "u1", core.NewDate(2024, 3, 2))
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	// The retry re-reads the winner's state and becomes a same-day no-op.
	if state.Current != 3 {
		t.Errorf("Current = %d, want 3", state.Current)
	}
	if milestone != 0 {
		t.Errorf("milestone = %d, want 0", milestone)
	}
	if store.puts != 1 {
		t.Errorf("puts = %d, want 1 (second attempt must not write)", store.puts)
	}
}

func TestTrackerLogSameDayDoesNotWrite(t *testing.T) {
	store := &fakeStore{
		state: core.StreakState{Current: 5, Longest: 8, LastLog: core.NewDate(2024, 3, 2)},
	}
	tracker := NewTracker(store)

	state, _, err := tracker.Log(context.Background(), "u1", core.NewDate(2024, 3, 2))
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if state.Current != 5 {
		t.Errorf("Current = %d, want 5", state.Current)
	}
	if store.puts != 0 {
		t.Errorf("puts = %d, want 0", store.puts)
	}
}
