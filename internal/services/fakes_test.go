package services

import (
	"context"
	"fmt"
	"sync"

	"coincraft/internal/amqp"
	"coincraft/internal/core"
	"coincraft/internal/storage"
)

// fakeStore is an in-memory stand-in for the SQLite repository.
type fakeStore struct {
	mu           sync.Mutex
	nextID       int64
	transactions []core.Transaction
	envelopes    map[int64]core.Envelope
	goals        map[int64]core.Goal
	streaks      map[string]core.StreakState
	modules      map[string]core.ModuleSet
	unlocked     map[string]map[string]bool
	exportStatus map[int64]string
	failing      map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		envelopes:    map[int64]core.Envelope{},
		goals:        map[int64]core.Goal{},
		streaks:      map[string]core.StreakState{},
		modules:      map[string]core.ModuleSet{},
		unlocked:     map[string]map[string]bool{},
		exportStatus: map[int64]string{},
		failing:      map[string]bool{},
	}
}

func (f *fakeStore) fail(section string) error {
	if f.failing[section] {
		return fmt.Errorf("%s unavailable", section)
	}
	return nil
}

func (f *fakeStore) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("transactions"); err != nil {
		return core.Transaction{}, err
	}
	f.nextID++
	t.ID = f.nextID
	f.transactions = append(f.transactions, t)
	f.exportStatus[t.ID] = "pending"
	return t, nil
}

func (f *fakeStore) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.transactions {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, storage.ErrNotFound
}

func (f *fakeStore) AddEnvelopeSpend(_ context.Context, userID string, id int64, amount core.Money) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	env, ok := f.envelopes[id]
	if !ok || env.UserID != userID {
		return storage.ErrNotFound
	}
	env.Spent.Centavos += amount.Centavos
	f.envelopes[id] = env
	return nil
}

func (f *fakeStore) GetEnvelope(_ context.Context, userID string, id int64) (core.Envelope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	env, ok := f.envelopes[id]
	if !ok || env.UserID != userID {
		return core.Envelope{}, storage.ErrNotFound
	}
	return env, nil
}

func (f *fakeStore) ListEnvelopes(_ context.Context, userID string) ([]core.Envelope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("envelopes"); err != nil {
		return nil, err
	}
	var out []core.Envelope
	for id := int64(1); id <= f.nextID; id++ {
		if env, ok := f.envelopes[id]; ok && env.UserID == userID {
			out = append(out, env)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateEnvelopePeriod(_ context.Context, e core.Envelope, priorStart core.Date) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.envelopes[e.ID]
	if !ok || stored.UserID != e.UserID {
		return false, storage.ErrNotFound
	}
	if stored.PeriodStart.String() != priorStart.String() {
		return false, nil
	}
	stored.PeriodStart = e.PeriodStart
	stored.Spent = e.Spent
	stored.Rollover = e.Rollover
	f.envelopes[e.ID] = stored
	return true, nil
}

func (f *fakeStore) ListEnvelopeOwners(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, env := range f.envelopes {
		if !seen[env.UserID] {
			seen[env.UserID] = true
			out = append(out, env.UserID)
		}
	}
	return out, nil
}

func (f *fakeStore) addEnvelope(env core.Envelope) core.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	env.ID = f.nextID
	f.envelopes[env.ID] = env
	return env
}

func (f *fakeStore) AddGoalContribution(_ context.Context, userID string, id int64, amount core.Money) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[id]
	if !ok || g.UserID != userID {
		return storage.ErrNotFound
	}
	g.Saved.Centavos += amount.Centavos
	f.goals[id] = g
	return nil
}

func (f *fakeStore) GetGoal(_ context.Context, userID string, id int64) (core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[id]
	if !ok || g.UserID != userID {
		return core.Goal{}, storage.ErrNotFound
	}
	return g, nil
}

func (f *fakeStore) ListGoals(_ context.Context, userID string) ([]core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("goals"); err != nil {
		return nil, err
	}
	var out []core.Goal
	for id := int64(1); id <= f.nextID; id++ {
		if g, ok := f.goals[id]; ok && g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) addGoal(g core.Goal) core.Goal {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	g.ID = f.nextID
	f.goals[g.ID] = g
	return g
}

func (f *fakeStore) GetStreak(_ context.Context, userID string) (core.StreakState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.streaks[userID]; ok {
		return s, nil
	}
	return core.StreakState{UserID: userID}, nil
}

func (f *fakeStore) PutStreak(_ context.Context, prior, next core.StreakState) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.streaks[next.UserID]
	if !ok {
		if !prior.LastLog.IsEmpty() {
			return false, nil
		}
		f.streaks[next.UserID] = next
		return true, nil
	}
	if stored.LastLog.String() != prior.LastLog.String() {
		return false, nil
	}
	f.streaks[next.UserID] = next
	return true, nil
}

func (f *fakeStore) ListUsers(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for user := range f.modules {
		if !seen[user] {
			seen[user] = true
			out = append(out, user)
		}
	}
	return out, nil
}

func (f *fakeStore) GetModules(_ context.Context, userID string) (core.ModuleSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("modules"); err != nil {
		return nil, err
	}
	if set, ok := f.modules[userID]; ok {
		return set, nil
	}
	return core.ModuleSet{}, nil
}

func (f *fakeStore) CountTransactions(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, t := range f.transactions {
		if t.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountCompletedGoals(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, g := range f.goals {
		if g.UserID == userID && g.Saved.Centavos >= g.Target.Centavos {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountEnvelopesOnBudget(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, env := range f.envelopes {
		if env.UserID == userID && env.Target.Centavos > 0 &&
			env.Spent.Centavos <= env.Target.Centavos+env.Rollover.Centavos {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) TotalSaved(_ context.Context, userID string) (core.Money, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total core.Money
	for _, g := range f.goals {
		if g.UserID == userID {
			total.Centavos += g.Saved.Centavos
		}
	}
	return total, nil
}

func (f *fakeStore) UnlockedAchievements(_ context.Context, userID string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]bool{}
	for id := range f.unlocked[userID] {
		out[id] = true
	}
	return out, nil
}

func (f *fakeStore) UnlockAchievement(_ context.Context, userID, achievementID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unlocked[userID] == nil {
		f.unlocked[userID] = map[string]bool{}
	}
	if f.unlocked[userID][achievementID] {
		return false, nil
	}
	f.unlocked[userID][achievementID] = true
	return true, nil
}

func (f *fakeStore) MonthOverview(_ context.Context, userID string, year, month int) (core.MonthOverview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("overview"); err != nil {
		return core.MonthOverview{}, err
	}
	ov := core.MonthOverview{Year: year, Month: month}
	for _, t := range f.transactions {
		if t.UserID != userID || t.Date.Year() != year || int(t.Date.Month()) != month {
			continue
		}
		if t.Type == core.Income {
			ov.Income.Centavos += t.Amount.Centavos
		} else {
			ov.Expense.Centavos += t.Amount.Centavos
		}
	}
	return ov, nil
}

func (f *fakeStore) SumExpenses(_ context.Context, userID string, from, to core.Date) (core.Money, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total core.Money
	for _, t := range f.transactions {
		if t.UserID != userID || t.Type != core.Expense {
			continue
		}
		if t.Date.String() >= from.String() && t.Date.String() < to.String() {
			total.Centavos += t.Amount.Centavos
		}
	}
	return total, nil
}

func (f *fakeStore) CountTransactionsOnDate(_ context.Context, userID string, day core.Date) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.transactions {
		if t.UserID == userID && t.Date.Equal(day) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountIncomeInMonth(_ context.Context, userID string, year, month int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.transactions {
		if t.UserID == userID && t.Type == core.Income &&
			t.Date.Year() == year && int(t.Date.Month()) == month {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ActiveDaysInMonth(_ context.Context, userID string, year, month int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	days := map[string]bool{}
	for _, t := range f.transactions {
		if t.UserID == userID && t.Date.Year() == year && int(t.Date.Month()) == month {
			days[t.Date.String()] = true
		}
	}
	return len(days), nil
}

func (f *fakeStore) PendingExportTransactions(_ context.Context, limit int) ([]storage.PendingExport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []storage.PendingExport
	for _, t := range f.transactions {
		if f.exportStatus[t.ID] == "pending" {
			out = append(out, storage.PendingExport{ID: t.ID, UserID: t.UserID})
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) MarkExported(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exportStatus[id] = "exported"
	return nil
}

func (f *fakeStore) MarkExportError(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exportStatus[id] = "error"
	return nil
}

func (f *fakeStore) RequeueExportErrors(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, status := range f.exportStatus {
		if status == "error" {
			f.exportStatus[id] = "pending"
			n++
		}
	}
	return n, nil
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.Event
}

func (p *fakePublisher) PublishEvent(_ context.Context, event *amqp.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}
