// Package health computes the financial health score shown on the dashboard.
//
// The score combines a cash-flow base (0-40) with per-module bonuses (0-60)
// into a bounded 0-100 total. The level bands are fixed: poor [0,40),
// fair [40,70), good [70,85), excellent [85,100].
package health

import (
	"math"

	"coincraft/internal/core"
)

const (
	LevelPoor      Level = "poor"
	LevelFair      Level = "fair"
	LevelGood      Level = "good"
	LevelExcellent Level = "excellent"
)

const (
	BaseCap   = 40
	ModuleCap = 60

	positivityCap  = 25
	consistencyCap = 15

	fairCutpoint      = 40
	goodCutpoint      = 70
	excellentCutpoint = 85
)

type (
	Level string

	// CashFlow summarizes the current month's activity, in centavos.
	CashFlow struct {
		Income      int64
		Expense     int64
		ActiveDays  int // days with at least one logged transaction
		ElapsedDays int // days elapsed in the month, including today
	}

	// ModuleBonus is one active module's contribution. Points are clamped
	// to [0, Cap] before summing.
	ModuleBonus struct {
		Module core.Module `json:"module"`
		Points int         `json:"points"`
		Cap    int         `json:"cap"`
	}

	Score struct {
		Total  int   `json:"total"`
		Level  Level `json:"level"`
		Base   int   `json:"base"`
		Module int   `json:"module"`
	}
)

// Compute combines the cash-flow base score with module bonuses.
func Compute(cf CashFlow, bonuses []ModuleBonus) Score {
	base := baseScore(cf)

	module := 0
	for _, b := range bonuses {
		p := b.Points
		if p < 0 {
			p = 0
		}
		if b.Cap > 0 && p > b.Cap {
			p = b.Cap
		}
		module += p
	}
	if module > ModuleCap {
		module = ModuleCap
	}

	total := base + module
	if total > 100 {
		total = 100
	}

	return Score{Total: total, Level: LevelFor(total), Base: base, Module: module}
}

// baseScore maps cash flow onto [0, BaseCap]: a positivity component that is
// monotonic in net cash flow, plus a consistency component from the share of
// elapsed days with activity.
func baseScore(cf CashFlow) int {
	positivity := 0
	switch {
	case cf.Income > 0:
		rate := float64(cf.Income-cf.Expense) / float64(cf.Income)
		if rate > 1 {
			rate = 1
		}
		if rate < -1 {
			rate = -1
		}
		positivity = int(math.Round((rate + 1) / 2 * positivityCap))
	case cf.Expense > 0:
		// Spending with no income at all.
		positivity = 0
	default:
		// No flow either way: neutral midpoint.
		positivity = positivityCap / 2
	}

	consistency := 0
	if cf.ElapsedDays > 0 {
		active := cf.ActiveDays
		if active > cf.ElapsedDays {
			active = cf.ElapsedDays
		}
		consistency = int(math.Round(float64(active) / float64(cf.ElapsedDays) * consistencyCap))
	}

	base := positivity + consistency
	if base > BaseCap {
		base = BaseCap
	}
	return base
}

// LevelFor returns the qualitative band for a total score.
func LevelFor(total int) Level {
	switch {
	case total >= excellentCutpoint:
		return LevelExcellent
	case total >= goodCutpoint:
		return LevelGood
	case total >= fairCutpoint:
		return LevelFair
	default:
		return LevelPoor
	}
}

// EnvelopeAdherenceBonus rewards keeping envelopes within budget: the share
// of envelopes at or under their effective budget, scaled to 20 points.
func EnvelopeAdherenceBonus(withinBudget, total int) ModuleBonus {
	points := 0
	if total > 0 {
		points = int(math.Round(float64(withinBudget) / float64(total) * 20))
	}
	return ModuleBonus{Module: core.ModuleEnvelopes, Points: points, Cap: 20}
}

// GoalProgressBonus rewards average goal completion, scaled to 20 points.
func GoalProgressBonus(avgCompletion float64) ModuleBonus {
	if avgCompletion < 0 {
		avgCompletion = 0
	}
	if avgCompletion > 1 {
		avgCompletion = 1
	}
	return ModuleBonus{Module: core.ModuleGoals, Points: int(math.Round(avgCompletion * 20)), Cap: 20}
}

// StreakBonus rewards the current logging streak, one point per day up to 20.
func StreakBonus(currentStreak int) ModuleBonus {
	return ModuleBonus{Module: core.ModuleGamification, Points: currentStreak, Cap: 20}
}
