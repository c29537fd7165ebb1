package http

import (
	"log/slog"
	"net/http"
	"time"

	"coincraft/internal/achievement"
	"coincraft/internal/core"
	"coincraft/internal/health"
	"coincraft/internal/nudge"
	"coincraft/internal/quiz"
	"coincraft/internal/services"
)

type categoryView struct {
	Name           string `json:"name"`
	AmountCentavos int64  `json:"amount_centavos"`
}

type overviewView struct {
	Year            int            `json:"year"`
	Month           int            `json:"month"`
	IncomeCentavos  int64          `json:"income_centavos"`
	ExpenseCentavos int64          `json:"expense_centavos"`
	NetCentavos     int64          `json:"net_centavos"`
	ByCategory      []categoryView `json:"by_category,omitempty"`
}

type dashboardView struct {
	Overview  overviewView   `json:"overview"`
	Envelopes []envelopeView `json:"envelopes"`
	Goals     []goalView     `json:"goals"`
	Streak    streakView     `json:"streak"`
	Nudges    []nudge.Nudge  `json:"nudges"`
	Health    health.Score   `json:"health"`
	Degraded  []string       `json:"degraded,omitempty"`
}

func viewDashboard(d services.Dashboard) dashboardView {
	view := dashboardView{
		Overview: overviewView{
			Year:            d.Overview.Year,
			Month:           d.Overview.Month,
			IncomeCentavos:  d.Overview.Income.Centavos,
			ExpenseCentavos: d.Overview.Expense.Centavos,
			NetCentavos:     d.Overview.Net(),
		},
		Envelopes: make([]envelopeView, 0, len(d.Envelopes)),
		Goals:     make([]goalView, 0, len(d.Goals)),
		Streak:    viewStreak(d.Streak),
		Nudges:    d.Nudges,
		Health:    d.Health,
		Degraded:  d.Degraded,
	}
	for _, ca := range d.Overview.ByCategory {
		view.Overview.ByCategory = append(view.Overview.ByCategory,
			categoryView{Name: ca.Name, AmountCentavos: ca.Amount.Centavos})
	}
	for _, ev := range d.Envelopes {
		view.Envelopes = append(view.Envelopes, viewEnvelope(ev.Envelope))
	}
	for _, gv := range d.Goals {
		view.Goals = append(view.Goals, viewGoal(gv.Goal))
	}
	if view.Nudges == nil {
		view.Nudges = []nudge.Nudge{}
	}
	return view
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	now := time.Now()
	key := s.dashCacheKey(userID, now)

	if dash, found := s.dashCache.Get(key); found {
		slog.DebugContext(r.Context(), "Dashboard cache hit", "user_id", userID)
		writeJSON(w, http.StatusOK, viewDashboard(dash))
		return
	}

	dash, err := s.dashboards.Build(r.Context(), userID, now)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Partial dashboards are served but not cached, so a recovered section
	// shows up on the next request.
	if len(dash.Degraded) == 0 {
		s.dashCache.Set(key, dash)
	}
	writeJSON(w, http.StatusOK, viewDashboard(dash))
}

func (s *Server) handleQuizQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := quiz.Questions()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Questions []quiz.Question `json:"questions"`
	}{Questions: questions})
}

// handleQuizAnswers scores the onboarding quiz and activates the recommended
// modules for the user.
func (s *Server) handleQuizAnswers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers map[string]string `json:"answers"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := quiz.Score(req.Answers)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	userID := s.userID(r)
	if err := s.store.SetModules(r.Context(), userID, core.NewModuleSet(result.Modules...)); err != nil {
		writeDomainError(w, err)
		return
	}

	slog.InfoContext(r.Context(), "Quiz completed",
		"user_id", userID, "profile", result.Profile, "modules", result.Modules)
	s.invalidateDashboard(userID)
	writeJSON(w, http.StatusOK, result)
}

type achievementView struct {
	achievement.Definition
	Unlocked bool `json:"unlocked"`
}

func (s *Server) handleListAchievements(w http.ResponseWriter, r *http.Request) {
	defs, err := achievement.Catalog()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	unlocked, err := s.store.UnlockedAchievements(r.Context(), s.userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]achievementView, 0, len(defs))
	for _, def := range defs {
		views = append(views, achievementView{Definition: def, Unlocked: unlocked[def.ID]})
	}
	writeJSON(w, http.StatusOK, struct {
		Achievements []achievementView `json:"achievements"`
	}{Achievements: views})
}

func (s *Server) handleGetModules(w http.ResponseWriter, r *http.Request) {
	modules, err := s.store.GetModules(r.Context(), s.userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Modules []core.Module `json:"modules"`
	}{Modules: modules.Slice()})
}

func (s *Server) handleSetModules(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Modules []core.Module `json:"modules"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := s.userID(r)
	set := core.NewModuleSet(req.Modules...)
	if err := s.store.SetModules(r.Context(), userID, set); err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateDashboard(userID)
	writeJSON(w, http.StatusOK, struct {
		Modules []core.Module `json:"modules"`
	}{Modules: set.Slice()})
}
