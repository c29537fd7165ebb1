package http

import (
	"net/http"
	"time"

	"coincraft/internal/core"
	"coincraft/internal/envelope"
)

type envelopeRequest struct {
	Name            string `json:"name"`
	Period          string `json:"period"`
	StartWeekday    *int   `json:"start_weekday"` // 0=Sunday..6=Saturday, Monday when omitted
	Target          string `json:"target"`
	RolloverEnabled bool   `json:"rollover_enabled"`
}

type envelopeView struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Period           string `json:"period"`
	PeriodStart      string `json:"period_start,omitempty"`
	StartWeekday     int    `json:"start_weekday"`
	SpentCentavos    int64  `json:"spent_centavos"`
	TargetCentavos   int64  `json:"target_centavos"`
	RolloverCentavos int64  `json:"rollover_centavos"`
	BudgetCentavos   int64  `json:"budget_centavos"`
	RolloverEnabled  bool   `json:"rollover_enabled"`
}

func viewEnvelope(e core.Envelope) envelopeView {
	return envelopeView{
		ID:               e.ID,
		Name:             e.Name,
		Period:           string(e.Period),
		PeriodStart:      e.PeriodStart.String(),
		StartWeekday:     int(e.StartWeekday),
		SpentCentavos:    e.Spent.Centavos,
		TargetCentavos:   e.Target.Centavos,
		RolloverCentavos: e.Rollover.Centavos,
		BudgetCentavos:   envelope.Budget(e).Centavos,
		RolloverEnabled:  e.RolloverEnabled,
	}
}

func (req envelopeRequest) toEnvelope(userID string) (core.Envelope, error) {
	weekday := time.Monday
	if req.StartWeekday != nil {
		weekday = time.Weekday(*req.StartWeekday)
	}
	env := core.Envelope{
		UserID:          userID,
		Name:            sanitizeInput(req.Name),
		Period:          core.Period(req.Period),
		StartWeekday:    weekday,
		RolloverEnabled: req.RolloverEnabled,
	}
	if req.Target != "" {
		target, err := parseAmount(req.Target)
		if err != nil {
			return core.Envelope{}, err
		}
		env.Target = target
	}
	if err := env.Validate(); err != nil {
		return core.Envelope{}, err
	}
	return env, nil
}

func (s *Server) handleCreateEnvelope(w http.ResponseWriter, r *http.Request) {
	var req envelopeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	env, err := req.toEnvelope(s.userID(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	created, err := s.store.CreateEnvelope(r.Context(), env)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateDashboard(created.UserID)
	writeJSON(w, http.StatusCreated, viewEnvelope(created))
}

func (s *Server) handleListEnvelopes(w http.ResponseWriter, r *http.Request) {
	envelopes, err := s.rollovers.EnsureAllCurrent(r.Context(), s.userID(r), time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]envelopeView, 0, len(envelopes))
	for _, e := range envelopes {
		views = append(views, viewEnvelope(e))
	}
	writeJSON(w, http.StatusOK, struct {
		Envelopes []envelopeView `json:"envelopes"`
	}{Envelopes: views})
}

func (s *Server) handleGetEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	env, err := s.rollovers.EnsureCurrent(r.Context(), s.userID(r), id, time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewEnvelope(env))
}

func (s *Server) handleUpdateEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req envelopeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := s.userID(r)
	env, err := req.toEnvelope(userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	env.ID = id

	if err := s.store.UpdateEnvelopeSettings(r.Context(), env); err != nil {
		writeDomainError(w, err)
		return
	}

	updated, err := s.store.GetEnvelope(r.Context(), userID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateDashboard(userID)
	writeJSON(w, http.StatusOK, viewEnvelope(updated))
}

func (s *Server) handleDeleteEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := s.userID(r)
	if err := s.store.DeleteEnvelope(r.Context(), userID, id); err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateDashboard(userID)
	w.WriteHeader(http.StatusNoContent)
}

// handleResetEnvelope forces a period evaluation outside the lazy path.
func (s *Server) handleResetEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := s.userID(r)
	env, err := s.rollovers.EnsureCurrent(r.Context(), userID, id, time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateDashboard(userID)
	writeJSON(w, http.StatusOK, viewEnvelope(env))
}
