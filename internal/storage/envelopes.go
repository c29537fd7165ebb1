package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"coincraft/internal/core"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// CreateEnvelope inserts an envelope and returns it with its assigned ID.
func (r *SQLiteRepository) CreateEnvelope(ctx context.Context, e core.Envelope) (core.Envelope, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO envelopes (user_id, name, period, period_start, start_weekday,
			spent_centavos, target_centavos, rollover_centavos, rollover_enabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Name, string(e.Period), dateString(e.PeriodStart), int(e.StartWeekday),
		e.Spent.Centavos, e.Target.Centavos, e.Rollover.Centavos, boolToInt(e.RolloverEnabled))
	if err != nil {
		return core.Envelope{}, fmt.Errorf("create envelope: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Envelope{}, fmt.Errorf("envelope insert id: %w", err)
	}
	e.ID = id

	slog.InfoContext(ctx, "Envelope created",
		"envelope_id", e.ID, "user_id", e.UserID, "name", e.Name, "period", e.Period)

	return e, nil
}

// GetEnvelope retrieves one envelope owned by the user.
func (r *SQLiteRepository) GetEnvelope(ctx context.Context, userID string, id int64) (core.Envelope, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, period, period_start, start_weekday,
			spent_centavos, target_centavos, rollover_centavos, rollover_enabled
		FROM envelopes WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanEnvelope(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Envelope{}, fmt.Errorf("envelope %d: %w", id, ErrNotFound)
	}
	return e, err
}

// ListEnvelopes returns all of the user's envelopes in creation order.
func (r *SQLiteRepository) ListEnvelopes(ctx context.Context, userID string) ([]core.Envelope, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, period, period_start, start_weekday,
			spent_centavos, target_centavos, rollover_centavos, rollover_enabled
		FROM envelopes WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list envelopes: %w", err)
	}
	defer rows.Close()

	var out []core.Envelope
	for rows.Next() {
		e, err := scanEnvelope(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEnvelope(row rowScanner) (core.Envelope, error) {
	var (
		e           core.Envelope
		periodStr   string
		startStr    string
		weekday     int
		rolloverInt int
	)
	err := row.Scan(&e.ID, &e.UserID, &e.Name, &periodStr, &startStr, &weekday,
		&e.Spent.Centavos, &e.Target.Centavos, &e.Rollover.Centavos, &rolloverInt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Envelope{}, err
		}
		return core.Envelope{}, fmt.Errorf("scan envelope: %w", err)
	}
	e.Period = core.Period(periodStr)
	e.StartWeekday = time.Weekday(weekday)
	e.RolloverEnabled = rolloverInt != 0
	if e.PeriodStart, err = parseDate(startStr); err != nil {
		return core.Envelope{}, err
	}
	return e, nil
}

// UpdateEnvelopePeriod conditionally applies a period reset. The write only
// lands when the stored period_start still matches priorStart, so concurrent
// resets of the same envelope collapse to one.
func (r *SQLiteRepository) UpdateEnvelopePeriod(ctx context.Context, e core.Envelope, priorStart core.Date) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE envelopes
		SET period_start = ?, spent_centavos = ?, rollover_centavos = ?
		WHERE id = ? AND user_id = ? AND period_start = ?`,
		dateString(e.PeriodStart), e.Spent.Centavos, e.Rollover.Centavos,
		e.ID, e.UserID, dateString(priorStart))
	if err != nil {
		return false, fmt.Errorf("update envelope period: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update envelope period rows: %w", err)
	}
	return n == 1, nil
}

// AddEnvelopeSpend adds centavos to the envelope's running spend counter.
func (r *SQLiteRepository) AddEnvelopeSpend(ctx context.Context, userID string, id int64, amount core.Money) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE envelopes SET spent_centavos = spent_centavos + ?
		WHERE id = ? AND user_id = ?`, amount.Centavos, id, userID)
	if err != nil {
		return fmt.Errorf("add envelope spend: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add envelope spend rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("envelope %d: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateEnvelopeSettings updates the user-editable envelope fields.
func (r *SQLiteRepository) UpdateEnvelopeSettings(ctx context.Context, e core.Envelope) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE envelopes
		SET name = ?, period = ?, start_weekday = ?, target_centavos = ?, rollover_enabled = ?
		WHERE id = ? AND user_id = ?`,
		e.Name, string(e.Period), int(e.StartWeekday), e.Target.Centavos,
		boolToInt(e.RolloverEnabled), e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update envelope settings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update envelope settings rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("envelope %d: %w", e.ID, ErrNotFound)
	}
	return nil
}

// DeleteEnvelope removes an envelope. Transactions keep their envelope_id
// reference for history.
func (r *SQLiteRepository) DeleteEnvelope(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM envelopes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete envelope: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete envelope rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("envelope %d: %w", id, ErrNotFound)
	}
	return nil
}

// CountEnvelopesOnBudget counts envelopes whose spend is within their
// effective budget. Envelopes without a target are not counted.
func (r *SQLiteRepository) CountEnvelopesOnBudget(ctx context.Context, userID string) (int64, error) {
	var n int64
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM envelopes
		WHERE user_id = ? AND target_centavos > 0
			AND spent_centavos <= target_centavos + rollover_centavos`, userID)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count envelopes on budget: %w", err)
	}
	return n, nil
}

// ListEnvelopeOwners returns the distinct user IDs that own envelopes.
func (r *SQLiteRepository) ListEnvelopeOwners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM envelopes ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list envelope owners: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan envelope owner: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
