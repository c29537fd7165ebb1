// Package achievement evaluates the gamification achievement catalog.
//
// Definitions are declarative and loaded from an embedded YAML catalog;
// adding an achievement means adding a catalog entry, not code.
package achievement

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Requirement kinds understood by the engine.
const (
	KindTransactionsLogged = "transactions_logged"
	KindLongestStreak      = "longest_streak"
	KindGoalsCompleted     = "goals_completed"
	KindTotalSaved         = "total_saved_centavos"
	KindEnvelopesOnBudget  = "envelopes_on_budget"
)

type (
	Requirement struct {
		Kind      string `yaml:"kind" json:"kind"`
		Threshold int64  `yaml:"threshold" json:"threshold"`
	}

	Definition struct {
		ID          string      `yaml:"id" json:"id"`
		Name        string      `yaml:"name" json:"name"`
		Icon        string      `yaml:"icon" json:"icon"`
		Category    string      `yaml:"category" json:"category"`
		Requirement Requirement `yaml:"requirement" json:"requirement"`
	}

	// Stats is the aggregate snapshot achievements are judged against.
	Stats struct {
		TransactionsLogged int64
		LongestStreak      int64
		GoalsCompleted     int64
		TotalSavedCentavos int64
		EnvelopesOnBudget  int64
	}

	catalogFile struct {
		Achievements []Definition `yaml:"achievements"`
	}
)

var (
	catalogOnce sync.Once
	catalog     []Definition
	catalogErr  error
)

// Catalog returns the embedded achievement definitions.
func Catalog() ([]Definition, error) {
	catalogOnce.Do(func() {
		var f catalogFile
		if err := yaml.Unmarshal(catalogYAML, &f); err != nil {
			catalogErr = fmt.Errorf("parse achievement catalog: %w", err)
			return
		}
		catalog = f.Achievements
	})
	return catalog, catalogErr
}

// Evaluate returns the definitions newly satisfied by stats, skipping those
// already unlocked. Unknown requirement kinds never unlock.
func Evaluate(defs []Definition, stats Stats, unlocked map[string]bool) []Definition {
	var newly []Definition
	for _, d := range defs {
		if unlocked[d.ID] {
			continue
		}
		value, ok := stats.value(d.Requirement.Kind)
		if !ok {
			continue
		}
		if value >= d.Requirement.Threshold {
			newly = append(newly, d)
		}
	}
	return newly
}

func (s Stats) value(kind string) (int64, bool) {
	switch kind {
	case KindTransactionsLogged:
		return s.TransactionsLogged, true
	case KindLongestStreak:
		return s.LongestStreak, true
	case KindGoalsCompleted:
		return s.GoalsCompleted, true
	case KindTotalSaved:
		return s.TotalSavedCentavos, true
	case KindEnvelopesOnBudget:
		return s.EnvelopesOnBudget, true
	}
	return 0, false
}
