package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"coincraft/internal/core"
	"coincraft/internal/envelope"
	"coincraft/internal/health"
	"coincraft/internal/nudge"
)

// DashboardStore is the read surface for assembling the dashboard.
type DashboardStore interface {
	MonthOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error)
	ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
	GetStreak(ctx context.Context, userID string) (core.StreakState, error)
	GetModules(ctx context.Context, userID string) (core.ModuleSet, error)
	SumExpenses(ctx context.Context, userID string, from, to core.Date) (core.Money, error)
	CountTransactionsOnDate(ctx context.Context, userID string, day core.Date) (int, error)
	CountIncomeInMonth(ctx context.Context, userID string, year, month int) (int, error)
	ActiveDaysInMonth(ctx context.Context, userID string, year, month int) (int, error)
}

// Dashboard is the aggregate view served to the client in one request.
// The HTTP layer maps it onto the wire format.
type Dashboard struct {
	Overview  core.MonthOverview
	Envelopes []EnvelopeView
	Goals     []GoalView
	Streak    core.StreakState
	Nudges    []nudge.Nudge
	Health    health.Score
	Degraded  []string
}

// EnvelopeView is an envelope with its derived effective budget.
type EnvelopeView struct {
	Envelope core.Envelope
	Budget   core.Money
}

// GoalView is a goal with its completion ratio.
type GoalView struct {
	Goal       core.Goal
	Completion float64
}

// DashboardService assembles the dashboard from independent aggregate reads.
type DashboardService struct {
	store     DashboardStore
	rollovers *RolloverProcessor
}

func NewDashboardService(store DashboardStore, rollovers *RolloverProcessor) *DashboardService {
	return &DashboardService{store: store, rollovers: rollovers}
}

// Build assembles the dashboard for a user at the given moment.
//
// Aggregate reads fan out concurrently; a failed read degrades its section
// to zero values and is reported in Degraded rather than failing the whole
// dashboard. Only the module set is required, since it gates everything else.
func (s *DashboardService) Build(ctx context.Context, userID string, now time.Time) (Dashboard, error) {
	modules, err := s.store.GetModules(ctx, userID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("get modules: %w", err)
	}

	var (
		dash  Dashboard
		mu    sync.Mutex
		today = core.DateOf(now)
		year  = now.Year()
		month = int(now.Month())

		envelopes  []core.Envelope
		goals      []core.Goal
		streakSt   core.StreakState
		thisWeek   core.Money
		lastWeek   core.Money
		todayCount int
		incomes    int
		activeDays int
	)

	degrade := func(section string, err error) {
		slog.WarnContext(ctx, "Dashboard section degraded",
			"user_id", userID, "section", section, "error", err)
		mu.Lock()
		dash.Degraded = append(dash.Degraded, section)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ov, err := s.store.MonthOverview(gctx, userID, year, month)
		if err != nil {
			degrade("overview", err)
			ov = core.MonthOverview{Year: year, Month: month}
		}
		mu.Lock()
		dash.Overview = ov
		mu.Unlock()
		return nil
	})

	if modules.Has(core.ModuleEnvelopes) {
		g.Go(func() error {
			envs, err := s.rollovers.EnsureAllCurrent(gctx, userID, now)
			if err != nil {
				degrade("envelopes", err)
				return nil
			}
			mu.Lock()
			envelopes = envs
			mu.Unlock()
			return nil
		})
	}

	if modules.Has(core.ModuleGoals) {
		g.Go(func() error {
			gs, err := s.store.ListGoals(gctx, userID)
			if err != nil {
				degrade("goals", err)
				return nil
			}
			mu.Lock()
			goals = gs
			mu.Unlock()
			return nil
		})
	}

	g.Go(func() error {
		st, err := s.store.GetStreak(gctx, userID)
		if err != nil {
			degrade("streak", err)
			st = core.StreakState{UserID: userID}
		}
		mu.Lock()
		streakSt = st
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		weekStart := today.AddDays(-6)
		tw, err := s.store.SumExpenses(gctx, userID, weekStart, today.AddDays(1))
		if err != nil {
			degrade("week_expense", err)
			return nil
		}
		lw, err := s.store.SumExpenses(gctx, userID, weekStart.AddDays(-7), weekStart)
		if err != nil {
			degrade("week_expense", err)
			return nil
		}
		mu.Lock()
		thisWeek, lastWeek = tw, lw
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		n, err := s.store.CountTransactionsOnDate(gctx, userID, today)
		if err != nil {
			degrade("today_count", err)
			return nil
		}
		mu.Lock()
		todayCount = n
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		n, err := s.store.CountIncomeInMonth(gctx, userID, year, month)
		if err != nil {
			degrade("income_count", err)
			return nil
		}
		mu.Lock()
		incomes = n
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		n, err := s.store.ActiveDaysInMonth(gctx, userID, year, month)
		if err != nil {
			degrade("active_days", err)
			return nil
		}
		mu.Lock()
		activeDays = n
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	dash.Streak = streakSt
	for _, env := range envelopes {
		dash.Envelopes = append(dash.Envelopes, EnvelopeView{Envelope: env, Budget: envelope.Budget(env)})
	}
	for _, goal := range goals {
		view := GoalView{Goal: goal}
		if goal.Target.Centavos > 0 {
			view.Completion = float64(goal.Saved.Centavos) / float64(goal.Target.Centavos)
		}
		dash.Goals = append(dash.Goals, view)
	}

	dash.Nudges = nudge.Generate(nudgeInputs(now, todayCount, thisWeek, lastWeek, incomes, envelopes, goals), modules)
	dash.Health = healthScore(dash.Overview, activeDays, now, modules, envelopes, goals, streakSt)

	return dash, nil
}

func nudgeInputs(now time.Time, todayCount int, thisWeek, lastWeek core.Money, incomes int, envelopes []core.Envelope, goals []core.Goal) nudge.Inputs {
	in := nudge.Inputs{
		Now:                   now,
		TodayTransactionCount: todayCount,
		ThisWeekExpense:       thisWeek.Centavos,
		LastWeekExpense:       lastWeek.Centavos,
		MonthIncomeCount:      incomes,
	}
	for _, env := range envelopes {
		in.Envelopes = append(in.Envelopes, nudge.EnvelopeFigure{
			ID:     env.ID,
			Name:   env.Name,
			Spent:  env.Spent.Centavos,
			Budget: envelope.Budget(env).Centavos,
		})
	}
	for _, goal := range goals {
		in.Goals = append(in.Goals, nudge.GoalFigure{
			ID:     goal.ID,
			Name:   goal.Name,
			Saved:  goal.Saved.Centavos,
			Target: goal.Target.Centavos,
		})
	}
	return in
}

func healthScore(ov core.MonthOverview, activeDays int, now time.Time, modules core.ModuleSet, envelopes []core.Envelope, goals []core.Goal, streakSt core.StreakState) health.Score {
	cf := health.CashFlow{
		Income:      ov.Income.Centavos,
		Expense:     ov.Expense.Centavos,
		ActiveDays:  activeDays,
		ElapsedDays: now.Day(),
	}

	var bonuses []health.ModuleBonus
	if modules.Has(core.ModuleEnvelopes) {
		within, total := 0, 0
		for _, env := range envelopes {
			budget := envelope.Budget(env).Centavos
			if budget <= 0 {
				continue
			}
			total++
			if env.Spent.Centavos <= budget {
				within++
			}
		}
		bonuses = append(bonuses, health.EnvelopeAdherenceBonus(within, total))
	}
	if modules.Has(core.ModuleGoals) && len(goals) > 0 {
		sum := 0.0
		for _, goal := range goals {
			if goal.Target.Centavos > 0 {
				c := float64(goal.Saved.Centavos) / float64(goal.Target.Centavos)
				if c > 1 {
					c = 1
				}
				sum += c
			}
		}
		bonuses = append(bonuses, health.GoalProgressBonus(sum/float64(len(goals))))
	}
	if modules.Has(core.ModuleGamification) {
		bonuses = append(bonuses, health.StreakBonus(streakSt.Current))
	}

	return health.Compute(cf, bonuses)
}
