// Package export writes categorized transactions as CSV and analytics as
// indented JSON, to local files or gs:// objects.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dvloznov/smart-budget/internal/domain"
	"github.com/dvloznov/smart-budget/internal/gcs"
	"github.com/dvloznov/smart-budget/internal/logger"
)

// Default artifact names, relative to the output directory.
const (
	TransactionsFile = "categorized_transactions.csv"
	AnalyticsFile    = "analytics_summary.json"
)

// Header is the canonical CSV header; it matches the built-in schema
// profile so an exported file loads back without content inference.
var Header = []string{"date", "description", "amount", "currency", "category"}

// ErrNoStorage is returned for gs:// destinations when the writer has no storage client.
var ErrNoStorage = errors.New("gs:// destination requires a storage client")

// Writer performs single-shot, overwrite-on-write exports.
type Writer struct {
	storage gcs.StorageService
}

// NewWriter creates a writer. storage may be nil when no gs:// destinations are used.
func NewWriter(storage gcs.StorageService) *Writer {
	return &Writer{storage: storage}
}

// WriteTransactionsCSV writes txs to dest and returns dest.
func (w *Writer) WriteTransactionsCSV(ctx context.Context, dest string, txs []domain.Transaction) (string, error) {
	var buf bytes.Buffer
	if err := EncodeTransactionsCSV(&buf, txs); err != nil {
		return "", &domain.IOFailure{Op: "export CSV", Path: dest, Err: err}
	}
	if err := w.write(ctx, dest, buf.Bytes(), "text/csv"); err != nil {
		return "", &domain.IOFailure{Op: "export CSV", Path: dest, Err: err}
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("path", dest).
		Int("transactions", len(txs)).
		Msg("exported transactions")
	return dest, nil
}

// WriteAnalyticsJSON writes v as two-space indented JSON to dest and returns dest.
func (w *Writer) WriteAnalyticsJSON(ctx context.Context, dest string, v any) (string, error) {
	var buf bytes.Buffer
	if err := EncodeJSON(&buf, v); err != nil {
		return "", &domain.IOFailure{Op: "export JSON", Path: dest, Err: err}
	}
	if err := w.write(ctx, dest, buf.Bytes(), "application/json"); err != nil {
		return "", &domain.IOFailure{Op: "export JSON", Path: dest, Err: err}
	}

	log := logger.FromContext(ctx)
	log.Info().Str("path", dest).Msg("exported analytics")
	return dest, nil
}

func (w *Writer) write(ctx context.Context, dest string, data []byte, contentType string) error {
	if gcs.IsURI(dest) {
		if w.storage == nil {
			return ErrNoStorage
		}
		return w.storage.Upload(ctx, dest, data, contentType)
	}

	if dir := filepath.Dir(dest); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return os.WriteFile(dest, data, 0o644)
}

// EncodeTransactionsCSV writes the canonical header and one row per
// transaction. An absent category is written as an empty field.
func EncodeTransactionsCSV(out io.Writer, txs []domain.Transaction) error {
	cw := csv.NewWriter(out)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("EncodeTransactionsCSV: write header: %w", err)
	}
	for i, tx := range txs {
		date := ""
		if tx.Date.IsValid() {
			date = tx.Date.String()
		}
		record := []string{date, tx.Description, tx.Amount.String(), tx.Currency, tx.Category}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("EncodeTransactionsCSV: write row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("EncodeTransactionsCSV: flush: %w", err)
	}
	return nil
}

// EncodeJSON writes v with two-space indentation, leaving non-ASCII text
// unescaped.
func EncodeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("EncodeJSON: %w", err)
	}
	return nil
}

// Join places name under dir, for local directories and gs:// prefixes alike.
func Join(dir, name string) string {
	if gcs.IsURI(dir) {
		return gcs.JoinURI(dir, name)
	}
	return filepath.Join(dir, name)
}
