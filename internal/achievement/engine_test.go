package achievement

import "testing"

func TestCatalogParses(t *testing.T) {
	defs, err := Catalog()
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	if len(defs) == 0 {
		t.Fatal("catalog is empty")
	}
	seen := make(map[string]bool)
	for _, d := range defs {
		if d.ID == "" || d.Name == "" || d.Requirement.Kind == "" {
			t.Errorf("incomplete definition: %+v", d)
		}
		if seen[d.ID] {
			t.Errorf("duplicate achievement id %q", d.ID)
		}
		seen[d.ID] = true
	}
}

func TestEvaluate(t *testing.T) {
	defs := []Definition{
		{ID: "first-log", Requirement: Requirement{Kind: KindTransactionsLogged, Threshold: 1}},
		{ID: "week-streak", Requirement: Requirement{Kind: KindLongestStreak, Threshold: 7}},
		{ID: "big-saver", Requirement: Requirement{Kind: KindTotalSaved, Threshold: 100000}},
		{ID: "mystery", Requirement: Requirement{Kind: "unknown_kind", Threshold: 0}},
	}

	stats := Stats{TransactionsLogged: 10, LongestStreak: 7, TotalSavedCentavos: 5000}

	t.Run("thresholds and unknown kinds", func(t *testing.T) {
		newly := Evaluate(defs, stats, nil)
		if len(newly) != 2 {
			t.Fatalf("got %d newly unlocked, want 2", len(newly))
		}
		if newly[0].ID != "first-log" || newly[1].ID != "week-streak" {
			t.Errorf("newly = [%s %s]", newly[0].ID, newly[1].ID)
		}
	})

	t.Run("already unlocked are skipped", func(t *testing.T) {
		unlocked := map[string]bool{"first-log": true}
		newly := Evaluate(defs, stats, unlocked)
		if len(newly) != 1 || newly[0].ID != "week-streak" {
			t.Errorf("newly = %v, want only week-streak", newly)
		}
	})

	t.Run("unlock fires at most once", func(t *testing.T) {
		unlocked := map[string]bool{}
		for _, d := range Evaluate(defs, stats, unlocked) {
			unlocked[d.ID] = true
		}
		if again := Evaluate(defs, stats, unlocked); len(again) != 0 {
			t.Errorf("second evaluation unlocked %v, want none", again)
		}
	})
}
