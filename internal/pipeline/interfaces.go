package pipeline

import (
	"context"

	"github.com/dvloznov/smart-budget/internal/domain"
)

// TableLoader reads a CSV source (local path or gs:// URI) into a raw table.
// *csvload.Loader implements it.
type TableLoader interface {
	Load(ctx context.Context, source string) (*domain.RawTable, error)
}

// Categorizer assigns categories to uncategorized transactions.
// *categorize.Categorizer implements it.
type Categorizer interface {
	Categorize(txs []domain.Transaction) []domain.Transaction
}

// Exporter writes run artifacts. *export.Writer implements it.
type Exporter interface {
	WriteTransactionsCSV(ctx context.Context, dest string, txs []domain.Transaction) (string, error)
	WriteAnalyticsJSON(ctx context.Context, dest string, v any) (string, error)
}
