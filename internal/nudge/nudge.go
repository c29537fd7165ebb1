// Package nudge generates transient advisory messages for the dashboard.
//
// Each rule is stateless and evaluated against pre-aggregated figures; rules
// never query storage themselves. The combined list preserves rule order and
// is truncated to MaxNudges entries.
package nudge

import "time"

// MaxNudges caps the number of nudges surfaced per request.
const MaxNudges = 3

const (
	SeverityInfo        Severity = "info"
	SeverityWarning     Severity = "warning"
	SeveritySuccess     Severity = "success"
	SeverityCelebration Severity = "celebration"
)

type (
	Severity string

	// Nudge is a single advisory message. ID is stable per rule and subject
	// so the presentation layer can deduplicate or dismiss.
	Nudge struct {
		ID          string   `json:"id"`
		Severity    Severity `json:"severity"`
		Icon        string   `json:"icon"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
		ActionRef   string   `json:"action_ref,omitempty"`
	}

	// EnvelopeFigure carries the per-envelope amounts a rule needs.
	// Budget is the effective budget (target plus rollover); zero means no
	// ratio is available for this envelope.
	EnvelopeFigure struct {
		ID     int64
		Name   string
		Spent  int64
		Budget int64
	}

	// GoalFigure carries the per-goal amounts a rule needs.
	GoalFigure struct {
		ID     int64
		Name   string
		Saved  int64
		Target int64
	}

	// Inputs is the aggregate snapshot every rule evaluates against.
	Inputs struct {
		Now                   time.Time
		TodayTransactionCount int
		ThisWeekExpense       int64
		LastWeekExpense       int64
		Envelopes             []EnvelopeFigure
		Goals                 []GoalFigure
		MonthIncomeCount      int
	}
)
