package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"coincraft/internal/core"
)

// GetStreak returns the user's streak state, or a zero state when the user
// has never logged activity.
func (r *SQLiteRepository) GetStreak(ctx context.Context, userID string) (core.StreakState, error) {
	var (
		s       core.StreakState
		lastStr string
	)
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, current, longest, last_log_date
		FROM streaks WHERE user_id = ?`, userID)
	err := row.Scan(&s.UserID, &s.Current, &s.Longest, &lastStr)
	if errors.Is(err, sql.ErrNoRows) {
		return core.StreakState{UserID: userID}, nil
	}
	if err != nil {
		return core.StreakState{}, fmt.Errorf("get streak: %w", err)
	}
	if s.LastLog, err = parseDate(lastStr); err != nil {
		return core.StreakState{}, err
	}
	return s, nil
}

// PutStreak writes next only if the stored last log date still matches
// prior's. Reports false when another writer got there first.
func (r *SQLiteRepository) PutStreak(ctx context.Context, prior, next core.StreakState) (bool, error) {
	if prior.LastLog.IsEmpty() {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO streaks (user_id, current, longest, last_log_date)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (user_id) DO NOTHING`,
			next.UserID, next.Current, next.Longest, dateString(next.LastLog))
		if err != nil {
			return false, fmt.Errorf("insert streak: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("insert streak rows: %w", err)
		}
		return n == 1, nil
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE streaks SET current = ?, longest = ?, last_log_date = ?
		WHERE user_id = ? AND last_log_date = ?`,
		next.Current, next.Longest, dateString(next.LastLog),
		next.UserID, dateString(prior.LastLog))
	if err != nil {
		return false, fmt.Errorf("update streak: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update streak rows: %w", err)
	}
	return n == 1, nil
}
