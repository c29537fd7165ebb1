package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coincraft/internal/core"
	"coincraft/internal/storage"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidDate, core.ErrInvalidAmount, core.ErrInvalidType,
		core.ErrInvalidPeriod, core.ErrEmptyDescription, core.ErrEmptyCategory,
		core.ErrEmptyName, core.ErrInvalidWeekday,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// pathID extracts the {id} wildcard as an int64.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

// parseYearMonth extracts year and month from query parameters, defaulting to
// the current month.
func parseYearMonth(r *http.Request) (year, month int) {
	now := time.Now()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}
	return year, month
}

// parseDate parses an ISO date, allowing empty for optional dates.
func parseDate(s string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.Date{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %q", core.ErrInvalidDate, s)
	}
	return core.DateOf(t), nil
}

// parseAmount converts a decimal amount string to Money.
func parseAmount(s string) (core.Money, error) {
	centavos, err := core.ParseDecimalToCentavos(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Centavos: centavos}, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
