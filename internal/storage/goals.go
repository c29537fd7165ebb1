package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"coincraft/internal/core"
)

// CreateGoal inserts a savings goal and returns it with its assigned ID.
func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (user_id, name, target_centavos, saved_centavos, deadline)
		VALUES (?, ?, ?, ?, ?)`,
		g.UserID, g.Name, g.Target.Centavos, g.Saved.Centavos, dateString(g.Deadline))
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Goal{}, fmt.Errorf("goal insert id: %w", err)
	}
	g.ID = id

	slog.InfoContext(ctx, "Goal created",
		"goal_id", g.ID, "user_id", g.UserID, "name", g.Name, "target_centavos", g.Target.Centavos)

	return g, nil
}

// GetGoal retrieves one goal owned by the user.
func (r *SQLiteRepository) GetGoal(ctx context.Context, userID string, id int64) (core.Goal, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, target_centavos, saved_centavos, deadline
		FROM goals WHERE id = ? AND user_id = ?`, id, userID)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, fmt.Errorf("goal %d: %w", id, ErrNotFound)
	}
	return g, err
}

// ListGoals returns all of the user's goals in creation order.
func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, target_centavos, saved_centavos, deadline
		FROM goals WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func scanGoal(row rowScanner) (core.Goal, error) {
	var (
		g           core.Goal
		deadlineStr string
	)
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.Target.Centavos, &g.Saved.Centavos, &deadlineStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Goal{}, err
		}
		return core.Goal{}, fmt.Errorf("scan goal: %w", err)
	}
	if g.Deadline, err = parseDate(deadlineStr); err != nil {
		return core.Goal{}, err
	}
	return g, nil
}

// AddGoalContribution adds centavos to the goal's saved balance.
func (r *SQLiteRepository) AddGoalContribution(ctx context.Context, userID string, id int64, amount core.Money) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE goals SET saved_centavos = saved_centavos + ?
		WHERE id = ? AND user_id = ?`, amount.Centavos, id, userID)
	if err != nil {
		return fmt.Errorf("add goal contribution: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add goal contribution rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("goal %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteGoal removes a goal.
func (r *SQLiteRepository) DeleteGoal(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM goals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete goal rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("goal %d: %w", id, ErrNotFound)
	}
	return nil
}

// CountCompletedGoals counts goals whose saved balance has reached the target.
func (r *SQLiteRepository) CountCompletedGoals(ctx context.Context, userID string) (int64, error) {
	var n int64
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM goals
		WHERE user_id = ? AND saved_centavos >= target_centavos`, userID)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count completed goals: %w", err)
	}
	return n, nil
}

// TotalSaved sums the saved balances across all of the user's goals.
func (r *SQLiteRepository) TotalSaved(ctx context.Context, userID string) (core.Money, error) {
	var total core.Money
	row := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(saved_centavos), 0) FROM goals WHERE user_id = ?`, userID)
	if err := row.Scan(&total.Centavos); err != nil {
		return total, fmt.Errorf("total saved: %w", err)
	}
	return total, nil
}
