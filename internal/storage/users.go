package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"coincraft/internal/core"
)

// UnlockedAchievements returns the IDs of the user's unlocked achievements.
func (r *SQLiteRepository) UnlockedAchievements(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT achievement_id FROM achievements_unlocked WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list unlocked achievements: %w", err)
	}
	defer rows.Close()

	unlocked := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan unlocked achievement: %w", err)
		}
		unlocked[id] = true
	}
	return unlocked, rows.Err()
}

// UnlockAchievement records an unlock. Reports false when it was already
// unlocked, so an unlock event fires at most once per user.
func (r *SQLiteRepository) UnlockAchievement(ctx context.Context, userID, achievementID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO achievements_unlocked (user_id, achievement_id)
		VALUES (?, ?)
		ON CONFLICT (user_id, achievement_id) DO NOTHING`, userID, achievementID)
	if err != nil {
		return false, fmt.Errorf("unlock achievement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unlock achievement rows: %w", err)
	}
	if n == 1 {
		slog.InfoContext(ctx, "Achievement unlocked",
			"user_id", userID, "achievement_id", achievementID)
	}
	return n == 1, nil
}

// GetModules returns the user's active module set. Users with no stored row
// have no modules active.
func (r *SQLiteRepository) GetModules(ctx context.Context, userID string) (core.ModuleSet, error) {
	var joined string
	row := r.db.QueryRowContext(ctx, `
		SELECT modules FROM user_modules WHERE user_id = ?`, userID)
	err := row.Scan(&joined)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ModuleSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get modules: %w", err)
	}

	var modules []core.Module
	for _, name := range strings.Split(joined, ",") {
		if name != "" {
			modules = append(modules, core.Module(name))
		}
	}
	return core.NewModuleSet(modules...), nil
}

// ListUsers returns the distinct users that have module settings.
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM user_modules ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// SetModules replaces the user's active module set.
func (r *SQLiteRepository) SetModules(ctx context.Context, userID string, set core.ModuleSet) error {
	names := make([]string, 0, len(set))
	for _, m := range set.Slice() {
		names = append(names, string(m))
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_modules (user_id, modules) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET modules = excluded.modules`,
		userID, strings.Join(names, ","))
	if err != nil {
		return fmt.Errorf("set modules: %w", err)
	}

	slog.InfoContext(ctx, "Modules updated", "user_id", userID, "modules", strings.Join(names, ","))
	return nil
}
