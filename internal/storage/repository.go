// Package storage is the SQLite persistence layer. All money amounts are
// stored as integer centavos and all dates as ISO "YYYY-MM-DD" strings.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"coincraft/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Ping verifies database connectivity, for readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func dateString(d core.Date) string {
	return d.String()
}

func parseDate(s string) (core.Date, error) {
	if s == "" {
		return core.Date{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse stored date %q: %w", s, err)
	}
	return core.DateOf(t), nil
}

// monthRange returns [first day of month, first day of next month).
func monthRange(year, month int) (string, string) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return start.Format("2006-01-02"), end.Format("2006-01-02")
}

// CreateTransaction inserts a transaction and returns it with its assigned ID.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, date, type, description, amount_centavos, category, account, envelope_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, dateString(t.Date), string(t.Type), t.Description,
		t.Amount.Centavos, t.Category, t.Account, t.EnvelopeID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction insert id: %w", err)
	}
	t.ID = id

	slog.InfoContext(ctx, "Transaction saved",
		"id", t.ID,
		"user_id", t.UserID,
		"type", t.Type,
		"amount_centavos", t.Amount.Centavos,
		"category", t.Category)

	return t, nil
}

// GetTransaction retrieves a single transaction by ID.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, date, type, description, amount_centavos, category, account, envelope_id
		FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

// ListTransactions returns the user's transactions for a month, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, year, month int) ([]core.Transaction, error) {
	start, end := monthRange(year, month)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, date, type, description, amount_centavos, category, account, envelope_id
		FROM transactions
		WHERE user_id = ? AND date >= ? AND date < ?
		ORDER BY date DESC, id DESC`, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t       core.Transaction
		dateStr string
		typeStr string
	)
	err := row.Scan(&t.ID, &t.UserID, &dateStr, &typeStr, &t.Description,
		&t.Amount.Centavos, &t.Category, &t.Account, &t.EnvelopeID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Type = core.TransactionType(typeStr)
	if t.Date, err = parseDate(dateStr); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// MonthOverview aggregates income, expense and per-category expense totals
// for one calendar month.
func (r *SQLiteRepository) MonthOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error) {
	overview := core.MonthOverview{Year: year, Month: month}
	start, end := monthRange(year, month)

	row := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'income' THEN amount_centavos ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount_centavos ELSE 0 END), 0)
		FROM transactions
		WHERE user_id = ? AND date >= ? AND date < ?`, userID, start, end)
	if err := row.Scan(&overview.Income.Centavos, &overview.Expense.Centavos); err != nil {
		return overview, fmt.Errorf("month totals: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT category, SUM(amount_centavos)
		FROM transactions
		WHERE user_id = ? AND date >= ? AND date < ? AND type = 'expense'
		GROUP BY category
		ORDER BY SUM(amount_centavos) DESC`, userID, start, end)
	if err != nil {
		return overview, fmt.Errorf("category sums: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Amount.Centavos); err != nil {
			return overview, fmt.Errorf("scan category sum: %w", err)
		}
		overview.ByCategory = append(overview.ByCategory, ca)
	}
	return overview, rows.Err()
}

// SumExpenses totals expenses in the half-open date range [from, to).
func (r *SQLiteRepository) SumExpenses(ctx context.Context, userID string, from, to core.Date) (core.Money, error) {
	var total core.Money
	row := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_centavos), 0)
		FROM transactions
		WHERE user_id = ? AND type = 'expense' AND date >= ? AND date < ?`,
		userID, dateString(from), dateString(to))
	if err := row.Scan(&total.Centavos); err != nil {
		return total, fmt.Errorf("sum expenses: %w", err)
	}
	return total, nil
}

// CountTransactionsOnDate returns how many transactions the user logged on a day.
func (r *SQLiteRepository) CountTransactionsOnDate(ctx context.Context, userID string, day core.Date) (int, error) {
	var n int
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions WHERE user_id = ? AND date = ?`,
		userID, dateString(day))
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions on date: %w", err)
	}
	return n, nil
}

// CountIncomeInMonth returns how many income transactions fall in the month.
func (r *SQLiteRepository) CountIncomeInMonth(ctx context.Context, userID string, year, month int) (int, error) {
	start, end := monthRange(year, month)
	var n int
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions
		WHERE user_id = ? AND type = 'income' AND date >= ? AND date < ?`,
		userID, start, end)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count income in month: %w", err)
	}
	return n, nil
}

// ActiveDaysInMonth counts the distinct days with at least one transaction.
func (r *SQLiteRepository) ActiveDaysInMonth(ctx context.Context, userID string, year, month int) (int, error) {
	start, end := monthRange(year, month)
	var n int
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT date) FROM transactions
		WHERE user_id = ? AND date >= ? AND date < ?`,
		userID, start, end)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count active days: %w", err)
	}
	return n, nil
}

// CountTransactions returns the user's lifetime transaction count.
func (r *SQLiteRepository) CountTransactions(ctx context.Context, userID string) (int64, error) {
	var n int64
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM transactions WHERE user_id = ?`, userID)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}
