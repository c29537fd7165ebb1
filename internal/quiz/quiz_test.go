package quiz

import (
	"errors"
	"testing"

	"coincraft/internal/core"
)

func TestQuestionsParse(t *testing.T) {
	qs, err := Questions()
	if err != nil {
		t.Fatalf("Questions() error = %v", err)
	}
	if len(qs) == 0 {
		t.Fatal("no questions in catalog")
	}
	for _, q := range qs {
		if len(q.Options) < 2 {
			t.Errorf("question %q has %d options", q.ID, len(q.Options))
		}
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name        string
		answers     map[string]string
		wantModules []core.Module
		wantProfile string
	}{
		{
			name: "budgeter leaning",
			answers: map[string]string{
				"money-worry": "overspending",
				"payday-plan": "budget-first",
				"motivation":  "control",
			},
			wantModules: []core.Module{core.ModuleEnvelopes},
			wantProfile: "budgeter",
		},
		{
			name: "saver leaning",
			answers: map[string]string{
				"money-worry": "no-savings",
				"payday-plan": "save-first",
				"motivation":  "progress-bars",
			},
			wantModules: []core.Module{core.ModuleGoals},
			wantProfile: "saver",
		},
		{
			name: "mixed answers recommend several modules",
			answers: map[string]string{
				"money-worry": "no-habit",
				"payday-plan": "gone-fast",
				"motivation":  "streaks-badges",
			},
			wantModules: []core.Module{core.ModuleGamification},
			wantProfile: "achiever",
		},
		{
			name:        "no answers still yields a starter module",
			answers:     map[string]string{},
			wantModules: []core.Module{core.ModuleEnvelopes},
			wantProfile: "budgeter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Score(tt.answers)
			if err != nil {
				t.Fatalf("Score() error = %v", err)
			}
			if got.Profile != tt.wantProfile {
				t.Errorf("Profile = %s, want %s", got.Profile, tt.wantProfile)
			}
			for _, m := range tt.wantModules {
				found := false
				for _, g := range got.Modules {
					if g == m {
						found = true
					}
				}
				if !found {
					t.Errorf("Modules = %v, missing %s", got.Modules, m)
				}
			}
		})
	}
}

func TestScoreUnknownAnswer(t *testing.T) {
	if _, err := Score(map[string]string{"nope": "x"}); !errors.Is(err, ErrUnknownAnswer) {
		t.Errorf("unknown question error = %v, want ErrUnknownAnswer", err)
	}
	if _, err := Score(map[string]string{"money-worry": "nope"}); !errors.Is(err, ErrUnknownAnswer) {
		t.Errorf("unknown option error = %v, want ErrUnknownAnswer", err)
	}
}
