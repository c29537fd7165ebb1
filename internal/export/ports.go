// Package export defines the outbound ledger port and its adapters.
package export

import (
	"context"

	"coincraft/internal/core"
)

// LedgerAppender writes transactions to an external ledger and returns a
// reference to the written row.
type LedgerAppender interface {
	AppendTransaction(ctx context.Context, t core.Transaction) (rowRef string, err error)
}
