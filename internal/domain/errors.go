package domain

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// SchemaInferenceError reports that neither header matching nor content
// inference could bind every required role. It is terminal for the file.
type SchemaInferenceError struct {
	Columns []string
	Missing []ColumnRole
}

func (e *SchemaInferenceError) Error() string {
	missing := make([]string, len(e.Missing))
	for i, r := range e.Missing {
		missing[i] = string(r)
	}
	return fmt.Sprintf("CSV must contain at least date/description/amount columns (could not bind %s). Found columns: [%s]",
		strings.Join(missing, ", "), strings.Join(e.Columns, ", "))
}

// MissingFieldError reports an analytics call on an empty sequence or on
// records that never carried the named field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	if e.Field == "" || e.Field == "transactions" {
		return "No transactions provided."
	}
	return fmt.Sprintf("Missing '%s' column.", e.Field)
}

// ErrNoTransactions is returned by analytics on an empty input.
var ErrNoTransactions = &MissingFieldError{Field: "transactions"}

// IOFailure wraps a load or export error with the path involved. Op reads
// as a verb phrase ("load CSV", "parse CSV", "export CSV").
type IOFailure struct {
	Op   string
	Path string
	Err  error
}

func (e *IOFailure) Error() string {
	if errors.Is(e.Err, fs.ErrNotExist) {
		return fmt.Sprintf("File '%s' does not exist.", e.Path)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", e.Op, e.Path, e.Err)
}

func (e *IOFailure) Unwrap() error {
	return e.Err
}

// DropReason explains why a row was filtered out during normalization.
type DropReason string

const (
	DropInvalidDate   DropReason = "invalid_date"
	DropInvalidAmount DropReason = "invalid_amount"
)
