package http

import (
	"net/http"

	"coincraft/internal/core"
)

type goalRequest struct {
	Name     string `json:"name"`
	Target   string `json:"target"`
	Deadline string `json:"deadline"`
}

type contributionRequest struct {
	Amount string `json:"amount"`
}

type goalView struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	TargetCentavos int64   `json:"target_centavos"`
	SavedCentavos  int64   `json:"saved_centavos"`
	Completion     float64 `json:"completion"`
	Deadline       string  `json:"deadline,omitempty"`
}

func viewGoal(g core.Goal) goalView {
	view := goalView{
		ID:             g.ID,
		Name:           g.Name,
		TargetCentavos: g.Target.Centavos,
		SavedCentavos:  g.Saved.Centavos,
		Deadline:       g.Deadline.String(),
	}
	if g.Target.Centavos > 0 {
		view.Completion = float64(g.Saved.Centavos) / float64(g.Target.Centavos)
	}
	return view
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	target, err := parseAmount(req.Target)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	deadline, err := parseDate(req.Deadline)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	goal := core.Goal{
		UserID:   s.userID(r),
		Name:     sanitizeInput(req.Name),
		Target:   target,
		Deadline: deadline,
	}
	if err := goal.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	created, err := s.store.CreateGoal(r.Context(), goal)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateDashboard(created.UserID)
	writeJSON(w, http.StatusCreated, viewGoal(created))
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.store.ListGoals(r.Context(), s.userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]goalView, 0, len(goals))
	for _, g := range goals {
		views = append(views, viewGoal(g))
	}
	writeJSON(w, http.StatusOK, struct {
		Goals []goalView `json:"goals"`
	}{Goals: views})
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := s.userID(r)
	if err := s.store.DeleteGoal(r.Context(), userID, id); err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateDashboard(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleContributeToGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req contributionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	userID := s.userID(r)
	goal, err := s.activity.ContributeToGoal(r.Context(), userID, id, amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateDashboard(userID)
	writeJSON(w, http.StatusOK, viewGoal(goal))
}
