package core

import (
	"errors"
	"strings"
	"time"
)

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodNone    Period = "none"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	ModuleEnvelopes    Module = "envelopes"
	ModuleGoals        Module = "goals"
	ModuleGamification Module = "gamification"
)

type (
	Period          string
	TransactionType string
	Module          string

	Date struct {
		time.Time
	}

	Money struct {
		Centavos int64
	}

	Transaction struct {
		ID          int64
		UserID      string
		Date        Date
		Type        TransactionType
		Description string
		Amount      Money
		Category    string
		Account     string
		EnvelopeID  int64 // 0 when not assigned to an envelope
	}

	Envelope struct {
		ID              int64
		UserID          string
		Name            string
		Period          Period
		PeriodStart     Date // zero until first evaluation
		StartWeekday    time.Weekday
		Spent           Money
		Target          Money // zero = no target configured
		Rollover        Money // unspent headroom carried from the previous period
		RolloverEnabled bool
	}

	Goal struct {
		ID       int64
		UserID   string
		Name     string
		Target   Money
		Saved    Money
		Deadline Date // optional
	}

	StreakState struct {
		UserID  string
		Current int
		Longest int
		LastLog Date // zero = no activity ever logged
	}

	ModuleSet map[Module]bool
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidPeriod    = errors.New("invalid period")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyName        = errors.New("empty name")
	ErrInvalidWeekday   = errors.New("invalid start weekday")
)

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// IsEmpty reports whether the date is unset (for optional dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// Equal reports whether two dates denote the same calendar day.
func (d Date) Equal(other Date) bool {
	return d.Year() == other.Year() && d.YearDay() == other.YearDay()
}

// AddDays returns the date shifted by n whole days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysUntil returns the number of whole calendar days from d to other.
// Negative when other precedes d.
func (d Date) DaysUntil(other Date) int {
	a := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(other.Year(), other.Month(), other.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

func (m Money) Validate() error {
	if m.Centavos <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	switch t.Type {
	case Income, Expense:
	default:
		return ErrInvalidType
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (e Envelope) Validate() error {
	if len(strings.TrimSpace(e.Name)) == 0 {
		return ErrEmptyName
	}
	switch e.Period {
	case PeriodWeekly, PeriodMonthly, PeriodNone:
	default:
		return ErrInvalidPeriod
	}
	if e.StartWeekday < time.Sunday || e.StartWeekday > time.Saturday {
		return ErrInvalidWeekday
	}
	if e.Target.Centavos < 0 || e.Spent.Centavos < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (g Goal) Validate() error {
	if len(strings.TrimSpace(g.Name)) == 0 {
		return ErrEmptyName
	}
	if err := g.Target.Validate(); err != nil {
		return err
	}
	if !g.Deadline.IsEmpty() {
		if err := g.Deadline.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Has reports whether the module is active. A nil set has no modules.
func (s ModuleSet) Has(m Module) bool {
	return s[m]
}

// NewModuleSet builds a set from module names, ignoring unknown ones.
func NewModuleSet(modules ...Module) ModuleSet {
	s := make(ModuleSet, len(modules))
	for _, m := range modules {
		switch m {
		case ModuleEnvelopes, ModuleGoals, ModuleGamification:
			s[m] = true
		}
	}
	return s
}

// Slice returns the active modules in a stable order.
func (s ModuleSet) Slice() []Module {
	out := make([]Module, 0, len(s))
	for _, m := range []Module{ModuleEnvelopes, ModuleGoals, ModuleGamification} {
		if s[m] {
			out = append(out, m)
		}
	}
	return out
}
