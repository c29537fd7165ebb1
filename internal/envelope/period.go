// Package envelope implements budget-period accounting for spending envelopes.
//
// Periods are advanced lazily: CheckAndReset runs before every
// period-sensitive read instead of in a background job, so a second call
// within the same period is always a no-op.
package envelope

import (
	"time"

	"coincraft/internal/core"
)

// NaturalStart computes the start of the period containing now.
// Weekly periods start on the most recent occurrence of startWeekday;
// monthly periods start on the first day of now's month. Returns a zero
// date for PeriodNone.
func NaturalStart(period core.Period, startWeekday time.Weekday, now time.Time) core.Date {
	switch period {
	case core.PeriodMonthly:
		return core.NewDate(now.Year(), int(now.Month()), 1)
	case core.PeriodWeekly:
		today := core.DateOf(now)
		back := (int(now.Weekday()) - int(startWeekday) + 7) % 7
		return today.AddDays(-back)
	}
	return core.Date{}
}

// CheckAndReset rolls the envelope into the current period if it has lapsed.
//
// Spend always restarts at zero. When rollover is enabled, the unspent
// remainder of the period just closed (target minus spend, floored at zero)
// is carried as extra headroom for the new period; otherwise the carry is
// cleared. Reports whether the envelope changed.
func CheckAndReset(env core.Envelope, now time.Time) (core.Envelope, bool) {
	if env.Period == core.PeriodNone {
		return env, false
	}

	start := NaturalStart(env.Period, env.StartWeekday, now)
	if !env.PeriodStart.IsEmpty() && env.PeriodStart.Equal(start) {
		return env, false
	}

	next := env
	if env.RolloverEnabled && !env.PeriodStart.IsEmpty() && env.Target.Centavos > 0 {
		carry := env.Target.Centavos - env.Spent.Centavos
		if carry < 0 {
			carry = 0
		}
		next.Rollover = core.Money{Centavos: carry}
	} else {
		next.Rollover = core.Money{}
	}
	next.Spent = core.Money{}
	next.PeriodStart = start

	return next, true
}

// Budget returns the effective spending budget for the current period:
// the configured target plus any carried rollover.
func Budget(env core.Envelope) core.Money {
	return core.Money{Centavos: env.Target.Centavos + env.Rollover.Centavos}
}

// SpendRatio returns spend divided by the effective budget. The second
// return is false when no budget is configured, so callers can skip
// ratio-based rules instead of dividing by zero.
func SpendRatio(env core.Envelope) (float64, bool) {
	budget := Budget(env).Centavos
	if budget <= 0 {
		return 0, false
	}
	return float64(env.Spent.Centavos) / float64(budget), true
}
