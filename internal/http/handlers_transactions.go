package http

import (
	"net/http"

	"coincraft/internal/achievement"
	"coincraft/internal/core"
)

type transactionRequest struct {
	Date        string `json:"date"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Account     string `json:"account"`
	EnvelopeID  int64  `json:"envelope_id"`
}

type transactionView struct {
	ID             int64  `json:"id"`
	Date           string `json:"date"`
	Type           string `json:"type"`
	Description    string `json:"description"`
	AmountCentavos int64  `json:"amount_centavos"`
	Amount         string `json:"amount"`
	Category       string `json:"category"`
	Account        string `json:"account,omitempty"`
	EnvelopeID     int64  `json:"envelope_id,omitempty"`
}

type streakView struct {
	Current int    `json:"current"`
	Longest int    `json:"longest"`
	LastLog string `json:"last_log,omitempty"`
}

type logResultView struct {
	Transaction  transactionView          `json:"transaction"`
	Streak       streakView               `json:"streak"`
	Milestone    int                      `json:"milestone,omitempty"`
	Achievements []achievement.Definition `json:"achievements,omitempty"`
}

func viewTransaction(t core.Transaction) transactionView {
	return transactionView{
		ID:             t.ID,
		Date:           t.Date.String(),
		Type:           string(t.Type),
		Description:    t.Description,
		AmountCentavos: t.Amount.Centavos,
		Amount:         core.FormatPesos(t.Amount.Centavos),
		Category:       t.Category,
		Account:        t.Account,
		EnvelopeID:     t.EnvelopeID,
	}
}

func viewStreak(s core.StreakState) streakView {
	return streakView{Current: s.Current, Longest: s.Longest, LastLog: s.LastLog.String()}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := s.activity.LogTransaction(r.Context(), core.Transaction{
		UserID:      s.userID(r),
		Date:        date,
		Type:        core.TransactionType(req.Type),
		Description: sanitizeInput(req.Description),
		Amount:      amount,
		Category:    sanitizeInput(req.Category),
		Account:     sanitizeInput(req.Account),
		EnvelopeID:  req.EnvelopeID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateDashboard(result.Transaction.UserID)
	writeJSON(w, http.StatusCreated, logResultView{
		Transaction:  viewTransaction(result.Transaction),
		Streak:       viewStreak(result.Streak),
		Milestone:    result.Milestone,
		Achievements: result.Achievements,
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	transactions, err := s.store.ListTransactions(r.Context(), s.userID(r), year, month)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]transactionView, 0, len(transactions))
	for _, t := range transactions {
		views = append(views, viewTransaction(t))
	}
	writeJSON(w, http.StatusOK, struct {
		Year         int               `json:"year"`
		Month        int               `json:"month"`
		Transactions []transactionView `json:"transactions"`
	}{Year: year, Month: month, Transactions: views})
}
