package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// PendingExport is the queue entry for a transaction awaiting ledger export.
type PendingExport struct {
	ID     int64
	UserID string
}

// PendingExportTransactions returns transactions not yet exported to the
// external ledger, oldest first.
func (r *SQLiteRepository) PendingExportTransactions(ctx context.Context, limit int) ([]PendingExport, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id FROM transactions
		WHERE export_status = 'pending'
		ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending export transactions: %w", err)
	}
	defer rows.Close()

	var out []PendingExport
	for rows.Next() {
		var p PendingExport
		if err := rows.Scan(&p.ID, &p.UserID); err != nil {
			return nil, fmt.Errorf("scan pending export: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkExported marks a transaction as successfully exported.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET export_status = 'exported' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as exported", "id", id)
	return nil
}

// MarkExportError marks a transaction as failed to export.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET export_status = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with export error", "id", id)
	return nil
}

// RequeueExportErrors flips errored transactions back to pending so the next
// sweep retries them.
func (r *SQLiteRepository) RequeueExportErrors(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET export_status = 'pending' WHERE export_status = 'error'`)
	if err != nil {
		return 0, fmt.Errorf("requeue export errors: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("requeue export errors rows: %w", err)
	}
	return n, nil
}
