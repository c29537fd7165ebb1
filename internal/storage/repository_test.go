package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"coincraft/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestTransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID:      "alice",
		Date:        core.NewDate(2024, 3, 15),
		Type:        core.Expense,
		Description: "jeepney fare",
		Amount:      core.Money{Centavos: 1500},
		Category:    "transport",
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if created.ID == 0 {
		t.Fatal("CreateTransaction() did not assign an ID")
	}

	got, err := repo.GetTransaction(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.Description != "jeepney fare" || got.Amount.Centavos != 1500 || !got.Date.Equal(created.Date) {
		t.Errorf("GetTransaction() = %+v, want round-tripped transaction", got)
	}

	list, err := repo.ListTransactions(ctx, "alice", 2024, 3)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListTransactions() returned %d, want 1", len(list))
	}

	other, err := repo.ListTransactions(ctx, "alice", 2024, 4)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(other) != 0 {
		t.Errorf("ListTransactions() for empty month returned %d", len(other))
	}
}

func TestMonthOverviewAggregates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seed := []core.Transaction{
		{UserID: "alice", Date: core.NewDate(2024, 3, 1), Type: core.Income, Description: "salary", Amount: core.Money{Centavos: 5000000}, Category: "salary"},
		{UserID: "alice", Date: core.NewDate(2024, 3, 2), Type: core.Expense, Description: "groceries", Amount: core.Money{Centavos: 250000}, Category: "food"},
		{UserID: "alice", Date: core.NewDate(2024, 3, 2), Type: core.Expense, Description: "lunch", Amount: core.Money{Centavos: 30000}, Category: "food"},
		{UserID: "alice", Date: core.NewDate(2024, 3, 5), Type: core.Expense, Description: "grab", Amount: core.Money{Centavos: 40000}, Category: "transport"},
		{UserID: "bob", Date: core.NewDate(2024, 3, 5), Type: core.Expense, Description: "bob's", Amount: core.Money{Centavos: 999999}, Category: "food"},
	}
	for _, tx := range seed {
		if _, err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	ov, err := repo.MonthOverview(ctx, "alice", 2024, 3)
	if err != nil {
		t.Fatalf("MonthOverview() error = %v", err)
	}
	if ov.Income.Centavos != 5000000 {
		t.Errorf("Income = %d, want 5000000", ov.Income.Centavos)
	}
	if ov.Expense.Centavos != 320000 {
		t.Errorf("Expense = %d, want 320000", ov.Expense.Centavos)
	}
	if len(ov.ByCategory) != 2 || ov.ByCategory[0].Name != "food" {
		t.Errorf("ByCategory = %+v, want food first", ov.ByCategory)
	}

	active, err := repo.ActiveDaysInMonth(ctx, "alice", 2024, 3)
	if err != nil {
		t.Fatalf("ActiveDaysInMonth() error = %v", err)
	}
	if active != 3 {
		t.Errorf("ActiveDaysInMonth() = %d, want 3", active)
	}

	incomes, err := repo.CountIncomeInMonth(ctx, "alice", 2024, 3)
	if err != nil {
		t.Fatalf("CountIncomeInMonth() error = %v", err)
	}
	if incomes != 1 {
		t.Errorf("CountIncomeInMonth() = %d, want 1", incomes)
	}

	week, err := repo.SumExpenses(ctx, "alice", core.NewDate(2024, 3, 1), core.NewDate(2024, 3, 4))
	if err != nil {
		t.Fatalf("SumExpenses() error = %v", err)
	}
	if week.Centavos != 280000 {
		t.Errorf("SumExpenses() = %d, want 280000", week.Centavos)
	}
}

func TestEnvelopeLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	env, err := repo.CreateEnvelope(ctx, core.Envelope{
		UserID:          "alice",
		Name:            "Food",
		Period:          core.PeriodMonthly,
		Target:          core.Money{Centavos: 2000000},
		RolloverEnabled: true,
	})
	if err != nil {
		t.Fatalf("CreateEnvelope() error = %v", err)
	}

	if err := repo.AddEnvelopeSpend(ctx, "alice", env.ID, core.Money{Centavos: 150000}); err != nil {
		t.Fatalf("AddEnvelopeSpend() error = %v", err)
	}

	got, err := repo.GetEnvelope(ctx, "alice", env.ID)
	if err != nil {
		t.Fatalf("GetEnvelope() error = %v", err)
	}
	if got.Spent.Centavos != 150000 {
		t.Errorf("Spent = %d, want 150000", got.Spent.Centavos)
	}
	if !got.RolloverEnabled {
		t.Error("RolloverEnabled not persisted")
	}

	t.Run("period update is conditional", func(t *testing.T) {
		reset := got
		reset.PeriodStart = core.NewDate(2024, 3, 1)
		reset.Spent = core.Money{}

		ok, err := repo.UpdateEnvelopePeriod(ctx, reset, got.PeriodStart)
		if err != nil {
			t.Fatalf("UpdateEnvelopePeriod() error = %v", err)
		}
		if !ok {
			t.Fatal("first period update should land")
		}

		// Same prior again: the stored start has moved on, write must lose.
		ok, err = repo.UpdateEnvelopePeriod(ctx, reset, got.PeriodStart)
		if err != nil {
			t.Fatalf("UpdateEnvelopePeriod() error = %v", err)
		}
		if ok {
			t.Error("stale period update should not land")
		}
	})

	t.Run("owner scoping", func(t *testing.T) {
		if _, err := repo.GetEnvelope(ctx, "bob", env.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetEnvelope() as wrong user error = %v, want ErrNotFound", err)
		}
	})

	if err := repo.DeleteEnvelope(ctx, "alice", env.ID); err != nil {
		t.Fatalf("DeleteEnvelope() error = %v", err)
	}
	if _, err := repo.GetEnvelope(ctx, "alice", env.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetEnvelope() after delete error = %v, want ErrNotFound", err)
	}
}

func TestGoalLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	goal, err := repo.CreateGoal(ctx, core.Goal{
		UserID: "alice",
		Name:   "Emergency fund",
		Target: core.Money{Centavos: 10000000},
	})
	if err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}

	if err := repo.AddGoalContribution(ctx, "alice", goal.ID, core.Money{Centavos: 10000000}); err != nil {
		t.Fatalf("AddGoalContribution() error = %v", err)
	}

	completed, err := repo.CountCompletedGoals(ctx, "alice")
	if err != nil {
		t.Fatalf("CountCompletedGoals() error = %v", err)
	}
	if completed != 1 {
		t.Errorf("CountCompletedGoals() = %d, want 1", completed)
	}

	total, err := repo.TotalSaved(ctx, "alice")
	if err != nil {
		t.Fatalf("TotalSaved() error = %v", err)
	}
	if total.Centavos != 10000000 {
		t.Errorf("TotalSaved() = %d, want 10000000", total.Centavos)
	}
}

func TestStreakConditionalWrite(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	initial, err := repo.GetStreak(ctx, "alice")
	if err != nil {
		t.Fatalf("GetStreak() error = %v", err)
	}
	if initial.Current != 0 || !initial.LastLog.IsEmpty() {
		t.Fatalf("GetStreak() for new user = %+v, want zero state", initial)
	}

	first := core.StreakState{UserID: "alice", Current: 1, Longest: 1, LastLog: core.NewDate(2024, 3, 1)}
	ok, err := repo.PutStreak(ctx, initial, first)
	if err != nil {
		t.Fatalf("PutStreak() error = %v", err)
	}
	if !ok {
		t.Fatal("initial insert should land")
	}

	// A second initial insert for the same user must lose.
	ok, err = repo.PutStreak(ctx, initial, first)
	if err != nil {
		t.Fatalf("PutStreak() error = %v", err)
	}
	if ok {
		t.Error("duplicate initial insert should not land")
	}

	second := core.StreakState{UserID: "alice", Current: 2, Longest: 2, LastLog: core.NewDate(2024, 3, 2)}
	ok, err = repo.PutStreak(ctx, first, second)
	if err != nil {
		t.Fatalf("PutStreak() error = %v", err)
	}
	if !ok {
		t.Fatal("update with matching prior should land")
	}

	// Replaying the same prior must lose now.
	ok, err = repo.PutStreak(ctx, first, second)
	if err != nil {
		t.Fatalf("PutStreak() error = %v", err)
	}
	if ok {
		t.Error("update with stale prior should not land")
	}
}

func TestAchievementUnlockOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ok, err := repo.UnlockAchievement(ctx, "alice", "first-log")
	if err != nil {
		t.Fatalf("UnlockAchievement() error = %v", err)
	}
	if !ok {
		t.Fatal("first unlock should report true")
	}

	ok, err = repo.UnlockAchievement(ctx, "alice", "first-log")
	if err != nil {
		t.Fatalf("UnlockAchievement() error = %v", err)
	}
	if ok {
		t.Error("second unlock should report false")
	}

	unlocked, err := repo.UnlockedAchievements(ctx, "alice")
	if err != nil {
		t.Fatalf("UnlockedAchievements() error = %v", err)
	}
	if !unlocked["first-log"] || len(unlocked) != 1 {
		t.Errorf("UnlockedAchievements() = %v", unlocked)
	}
}

func TestModulesRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	set, err := repo.GetModules(ctx, "alice")
	if err != nil {
		t.Fatalf("GetModules() error = %v", err)
	}
	if len(set) != 0 {
		t.Fatalf("GetModules() for new user = %v, want empty", set)
	}

	want := core.NewModuleSet(core.ModuleEnvelopes, core.ModuleGamification)
	if err := repo.SetModules(ctx, "alice", want); err != nil {
		t.Fatalf("SetModules() error = %v", err)
	}

	got, err := repo.GetModules(ctx, "alice")
	if err != nil {
		t.Fatalf("GetModules() error = %v", err)
	}
	if !got.Has(core.ModuleEnvelopes) || !got.Has(core.ModuleGamification) || got.Has(core.ModuleGoals) {
		t.Errorf("GetModules() = %v, want %v", got, want)
	}
}

func TestExportQueue(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tx, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID:      "alice",
		Date:        core.DateOf(time.Now()),
		Type:        core.Expense,
		Description: "coffee",
		Amount:      core.Money{Centavos: 12000},
		Category:    "food",
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	pending, err := repo.PendingExportTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("PendingExportTransactions() error = %v", err)
	}
	if len(pending) != 1 || pending[0].ID != tx.ID {
		t.Fatalf("pending = %+v, want the new transaction", pending)
	}

	if err := repo.MarkExported(ctx, tx.ID); err != nil {
		t.Fatalf("MarkExported() error = %v", err)
	}
	pending, err = repo.PendingExportTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("PendingExportTransactions() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after export = %+v, want none", pending)
	}

	if err := repo.MarkExportError(ctx, tx.ID); err != nil {
		t.Fatalf("MarkExportError() error = %v", err)
	}
	requeued, err := repo.RequeueExportErrors(ctx)
	if err != nil {
		t.Fatalf("RequeueExportErrors() error = %v", err)
	}
	if requeued != 1 {
		t.Errorf("RequeueExportErrors() = %d, want 1", requeued)
	}
}
