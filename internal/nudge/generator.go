package nudge

import (
	"fmt"
	"log/slog"

	"coincraft/internal/core"
)

// Generate evaluates every rule whose required module is active and returns
// the first MaxNudges results in rule order.
//
// A panicking rule is logged and skipped; one broken rule must not take the
// rest of the batch down.
func Generate(in Inputs, active core.ModuleSet) []Nudge {
	out := make([]Nudge, 0, MaxNudges)
	for _, r := range rules {
		if m := r.Module(); m != "" && !active.Has(m) {
			continue
		}
		out = append(out, evaluateSafely(r, in)...)
		if len(out) >= MaxNudges {
			break
		}
	}
	if len(out) > MaxNudges {
		out = out[:MaxNudges]
	}
	return out
}

func evaluateSafely(r Rule, in Inputs) (out []Nudge) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Nudge rule panicked, skipping",
				"rule", fmt.Sprintf("%T", r), "panic", rec)
			out = nil
		}
	}()
	return r.Evaluate(in)
}
