package health

import (
	"testing"

	"coincraft/internal/core"
)

func TestComputeBounds(t *testing.T) {
	cases := []struct {
		name    string
		cf      CashFlow
		bonuses []ModuleBonus
	}{
		{"zero everything", CashFlow{}, nil},
		{"deep deficit", CashFlow{Income: 100, Expense: 1000000}, nil},
		{
			"everything maxed",
			CashFlow{Income: 100000, Expense: 0, ActiveDays: 30, ElapsedDays: 30},
			[]ModuleBonus{
				{Module: core.ModuleEnvelopes, Points: 999, Cap: 20},
				{Module: core.ModuleGoals, Points: 999, Cap: 20},
				{Module: core.ModuleGamification, Points: 999, Cap: 20},
				{Module: core.ModuleGamification, Points: 999, Cap: 20},
			},
		},
		{"negative bonus ignored", CashFlow{Income: 1000, Expense: 500}, []ModuleBonus{{Points: -50, Cap: 20}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Compute(tc.cf, tc.bonuses)
			if got.Total < 0 || got.Total > 100 {
				t.Errorf("Total = %d, out of [0,100]", got.Total)
			}
			if got.Base < 0 || got.Base > BaseCap {
				t.Errorf("Base = %d, out of [0,%d]", got.Base, BaseCap)
			}
			if got.Module < 0 || got.Module > ModuleCap {
				t.Errorf("Module = %d, out of [0,%d]", got.Module, ModuleCap)
			}
			if got.Level != LevelFor(got.Total) {
				t.Errorf("Level = %s, not derived from total", got.Level)
			}
		})
	}
}

func TestBaseScoreMonotonicInNet(t *testing.T) {
	income := int64(100000)
	prev := -1
	// Decreasing expense means increasing net cash flow.
	for expense := int64(200000); expense >= 0; expense -= 10000 {
		got := Compute(CashFlow{Income: income, Expense: expense, ElapsedDays: 10, ActiveDays: 5}, nil)
		if got.Base < prev {
			t.Fatalf("base decreased as net improved: %d -> %d at expense=%d", prev, got.Base, expense)
		}
		prev = got.Base
	}
}

func TestLevelFor(t *testing.T) {
	cases := []struct {
		total int
		want  Level
	}{
		{0, LevelPoor},
		{39, LevelPoor},
		{40, LevelFair},
		{69, LevelFair},
		{70, LevelGood},
		{84, LevelGood},
		{85, LevelExcellent},
		{100, LevelExcellent},
	}
	for _, tc := range cases {
		if got := LevelFor(tc.total); got != tc.want {
			t.Errorf("LevelFor(%d) = %s, want %s", tc.total, got, tc.want)
		}
	}
}

func TestModuleBonuses(t *testing.T) {
	if b := EnvelopeAdherenceBonus(3, 4); b.Points != 15 || b.Cap != 20 {
		t.Errorf("EnvelopeAdherenceBonus(3,4) = %+v, want 15 points cap 20", b)
	}
	if b := EnvelopeAdherenceBonus(0, 0); b.Points != 0 {
		t.Errorf("EnvelopeAdherenceBonus(0,0) = %+v, want 0 points", b)
	}
	if b := GoalProgressBonus(0.5); b.Points != 10 {
		t.Errorf("GoalProgressBonus(0.5) = %+v, want 10 points", b)
	}
	if b := GoalProgressBonus(3.0); b.Points != 20 {
		t.Errorf("GoalProgressBonus clamps above 1.0, got %+v", b)
	}
	if b := StreakBonus(45); b.Points != 45 || b.Cap != 20 {
		// Clamping happens in Compute via the cap.
		t.Errorf("StreakBonus(45) = %+v", b)
	}
	score := Compute(CashFlow{}, []ModuleBonus{StreakBonus(45)})
	if score.Module != 20 {
		t.Errorf("Module = %d, want 20 after cap", score.Module)
	}
}
