package nudge

import (
	"fmt"

	"coincraft/internal/core"
)

// Rule produces zero or more nudges from the aggregate snapshot.
// Module names the capability required for the rule to run; empty means the
// rule always runs.
type Rule interface {
	Module() core.Module
	Evaluate(in Inputs) []Nudge
}

// rules lists every known rule in presentation order. Order matters: the
// generated list is truncated, not re-sorted.
var rules = []Rule{
	noActivityRule{},
	weekSpikeRule{},
	envelopeLimitRule{},
	goalAlmostThereRule{},
	missingIncomeRule{},
}

// noActivityRule reminds the user when nothing was logged today.
type noActivityRule struct{}

func (noActivityRule) Module() core.Module { return "" }

func (noActivityRule) Evaluate(in Inputs) []Nudge {
	if in.TodayTransactionCount > 0 {
		return nil
	}
	return []Nudge{{
		ID:          "no-log-today",
		Severity:    SeverityInfo,
		Icon:        "📝",
		Title:       "Nothing logged today",
		Description: "Keep your streak alive by logging at least one transaction.",
		ActionRef:   "/api/transactions",
	}}
}

// weekSpikeRule warns when this week's spending runs more than 20% over
// last week's.
type weekSpikeRule struct{}

func (weekSpikeRule) Module() core.Module { return "" }

func (weekSpikeRule) Evaluate(in Inputs) []Nudge {
	if in.LastWeekExpense <= 0 {
		return nil
	}
	// Integer comparison of this > 1.2 * last without floats.
	if in.ThisWeekExpense*5 <= in.LastWeekExpense*6 {
		return nil
	}
	delta := in.ThisWeekExpense - in.LastWeekExpense
	return []Nudge{{
		ID:          "week-spend-spike",
		Severity:    SeverityWarning,
		Icon:        "📈",
		Title:       "Spending is up this week",
		Description: fmt.Sprintf("You have spent %s more than last week.", core.FormatPesos(delta)),
	}}
}

// envelopeLimitRule flags envelopes at 80% of budget in the first half of
// the month. Evaluated independently per envelope.
type envelopeLimitRule struct{}

func (envelopeLimitRule) Module() core.Module { return core.ModuleEnvelopes }

func (envelopeLimitRule) Evaluate(in Inputs) []Nudge {
	if in.Now.Day() > 15 {
		return nil
	}
	var out []Nudge
	for _, env := range in.Envelopes {
		if env.Budget <= 0 {
			// No target configured, no ratio available.
			continue
		}
		if env.Spent*5 < env.Budget*4 { // spent/budget < 0.8
			continue
		}
		out = append(out, Nudge{
			ID:          fmt.Sprintf("envelope-limit:%d", env.ID),
			Severity:    SeverityWarning,
			Icon:        "✉️",
			Title:       fmt.Sprintf("%s is almost used up", env.Name),
			Description: fmt.Sprintf("%s of %s already spent this early in the month.", core.FormatPesos(env.Spent), core.FormatPesos(env.Budget)),
			ActionRef:   fmt.Sprintf("/api/envelopes/%d", env.ID),
		})
	}
	return out
}

// goalAlmostThereRule celebrates goals between 90% and 100% complete.
type goalAlmostThereRule struct{}

func (goalAlmostThereRule) Module() core.Module { return core.ModuleGoals }

func (goalAlmostThereRule) Evaluate(in Inputs) []Nudge {
	var out []Nudge
	for _, g := range in.Goals {
		if g.Target <= 0 {
			continue
		}
		if g.Saved*10 < g.Target*9 || g.Saved >= g.Target { // ratio outside [0.9, 1.0)
			continue
		}
		remaining := g.Target - g.Saved
		out = append(out, Nudge{
			ID:          fmt.Sprintf("goal-almost:%d", g.ID),
			Severity:    SeverityCelebration,
			Icon:        "🎯",
			Title:       fmt.Sprintf("%s is almost complete", g.Name),
			Description: fmt.Sprintf("Only %s to go!", core.FormatPesos(remaining)),
			ActionRef:   fmt.Sprintf("/api/goals/%d", g.ID),
		})
	}
	return out
}

// missingIncomeRule reminds the user to fund their goals when no income
// was logged by mid-month.
type missingIncomeRule struct{}

func (missingIncomeRule) Module() core.Module { return core.ModuleGoals }

func (missingIncomeRule) Evaluate(in Inputs) []Nudge {
	if len(in.Goals) == 0 || in.MonthIncomeCount > 0 || in.Now.Day() < 15 {
		return nil
	}
	return []Nudge{{
		ID:          "no-income-this-month",
		Severity:    SeverityInfo,
		Icon:        "💰",
		Title:       "No income logged this month",
		Description: "Log your income so goal contributions stay on schedule.",
	}}
}
