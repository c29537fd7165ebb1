// Package quiz scores the onboarding questionnaire and recommends the
// module set a new user should start with.
package quiz

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"coincraft/internal/core"
)

//go:embed questions.yaml
var questionsYAML []byte

// recommendThreshold is the minimum accumulated weight for a module to be
// recommended.
const recommendThreshold = 2

var ErrUnknownAnswer = errors.New("unknown question or option")

type (
	Option struct {
		ID      string         `yaml:"id" json:"id"`
		Label   string         `yaml:"label" json:"label"`
		Weights map[string]int `yaml:"weights" json:"-"`
	}

	Question struct {
		ID      string   `yaml:"id" json:"id"`
		Prompt  string   `yaml:"prompt" json:"prompt"`
		Options []Option `yaml:"options" json:"options"`
	}

	// Result is the quiz outcome: the recommended starting modules and a
	// profile label for the welcome screen.
	Result struct {
		Modules []core.Module `json:"modules"`
		Profile string        `json:"profile"`
	}

	questionsFile struct {
		Questions []Question `yaml:"questions"`
	}
)

var (
	questionsOnce sync.Once
	questions     []Question
	questionsErr  error
)

// Questions returns the embedded quiz catalog.
func Questions() ([]Question, error) {
	questionsOnce.Do(func() {
		var f questionsFile
		if err := yaml.Unmarshal(questionsYAML, &f); err != nil {
			questionsErr = fmt.Errorf("parse quiz questions: %w", err)
			return
		}
		questions = f.Questions
	})
	return questions, questionsErr
}

// Score maps answers (question ID to option ID) to a recommendation.
// Every answered question must reference a known question and option;
// unanswered questions simply contribute no weight.
func Score(answers map[string]string) (Result, error) {
	qs, err := Questions()
	if err != nil {
		return Result{}, err
	}

	byID := make(map[string]Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}

	weights := map[core.Module]int{}
	for qid, oid := range answers {
		q, ok := byID[qid]
		if !ok {
			return Result{}, fmt.Errorf("%w: question %q", ErrUnknownAnswer, qid)
		}
		var opt *Option
		for i := range q.Options {
			if q.Options[i].ID == oid {
				opt = &q.Options[i]
				break
			}
		}
		if opt == nil {
			return Result{}, fmt.Errorf("%w: option %q for question %q", ErrUnknownAnswer, oid, qid)
		}
		for name, w := range opt.Weights {
			weights[core.Module(name)] += w
		}
	}

	set := core.ModuleSet{}
	for _, m := range []core.Module{core.ModuleEnvelopes, core.ModuleGoals, core.ModuleGamification} {
		if weights[m] >= recommendThreshold {
			set[m] = true
		}
	}
	// Nobody starts with an empty app: default to envelope budgeting.
	if len(set) == 0 {
		set[core.ModuleEnvelopes] = true
	}

	return Result{Modules: set.Slice(), Profile: profileFor(weights)}, nil
}

func profileFor(weights map[core.Module]int) string {
	best := core.ModuleEnvelopes
	for _, m := range []core.Module{core.ModuleGoals, core.ModuleGamification} {
		if weights[m] > weights[best] {
			best = m
		}
	}
	switch best {
	case core.ModuleGoals:
		return "saver"
	case core.ModuleGamification:
		return "achiever"
	default:
		return "budgeter"
	}
}
