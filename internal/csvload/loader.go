// Package csvload reads CSV exports from local disk or Cloud Storage into a
// domain.RawTable, decoding legacy encodings and tagging every cell.
package csvload

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/dvloznov/smart-budget/internal/domain"
	"github.com/dvloznov/smart-budget/internal/gcs"
	"github.com/dvloznov/smart-budget/internal/logger"
	"github.com/dvloznov/smart-budget/internal/parsing"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// naTokens are cell values treated as missing, compared case-insensitively.
var naTokens = map[string]bool{
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
}

// delimiters are the candidate field separators, in tie-break order.
var delimiters = []rune{',', ';', '\t', '|'}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// ErrNoStorage is returned for gs:// sources when the loader has no storage client.
var ErrNoStorage = errors.New("gs:// source requires a storage client")

// Loader reads CSV sources. The zero value reads local files only.
type Loader struct {
	storage gcs.StorageService
}

// NewLoader creates a loader. storage may be nil when no gs:// sources are used.
func NewLoader(storage gcs.StorageService) *Loader {
	return &Loader{storage: storage}
}

// Load reads a local path or gs:// URI and returns its table. Missing files
// and unreadable or malformed content are reported as *domain.IOFailure.
func (l *Loader) Load(ctx context.Context, source string) (*domain.RawTable, error) {
	log := logger.FromContext(ctx)

	data, err := l.read(ctx, source)
	if err != nil {
		return nil, &domain.IOFailure{Op: "load CSV", Path: source, Err: err}
	}

	table, err := Parse(data)
	if err != nil {
		return nil, &domain.IOFailure{Op: "parse CSV", Path: source, Err: err}
	}

	log.Info().
		Str("source", source).
		Int("rows", table.Len()).
		Int("columns", len(table.Columns)).
		Msg("loaded CSV")
	return table, nil
}

func (l *Loader) read(ctx context.Context, source string) ([]byte, error) {
	if gcs.IsURI(source) {
		if l.storage == nil {
			return nil, ErrNoStorage
		}
		return l.storage.Fetch(ctx, source)
	}
	return os.ReadFile(source)
}

// Parse decodes raw CSV bytes into a table. The first record is the header.
func Parse(data []byte) (*domain.RawTable, error) {
	text, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("Parse: decode: %w", err)
	}

	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("Parse: CSV is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("Parse: read header: %w", err)
	}

	var rows [][]domain.Cell
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("Parse: read record: %w", err)
		}
		row := make([]domain.Cell, len(record))
		for i, v := range record {
			row[i] = TagCell(v)
		}
		rows = append(rows, row)
	}

	return domain.NewRawTable(header, rows), nil
}

// TagCell classifies one raw value as missing, number or text.
func TagCell(raw string) domain.Cell {
	v := strings.TrimSpace(raw)
	switch {
	case v == "" || naTokens[strings.ToLower(v)]:
		return domain.MissingCell()
	case parsing.IsPlainNumber(v):
		return domain.Cell{Kind: domain.CellNumber, Raw: v}
	default:
		return domain.Cell{Kind: domain.CellText, Raw: v}
	}
}

// decode returns UTF-8 text. BOM-marked input (UTF-8 or UTF-16) is decoded
// per its BOM; other input that is not valid UTF-8 is read as Windows-1251,
// the usual encoding of Russian bank exports.
func decode(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, bomUTF8) || bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE) {
		out, _, err := transform.Bytes(unicode.BOMOverride(encoding.Nop.NewDecoder()), data)
		return out, err
	}
	if utf8.Valid(data) {
		return data, nil
	}
	out, _, err := transform.Bytes(charmap.Windows1251.NewDecoder(), data)
	return out, err
}

// sniffDelimiter picks the candidate separator that occurs most often in
// the header line, ignoring quoted sections. Comma wins ties and the
// no-separator case.
func sniffDelimiter(text []byte) rune {
	line := text
	if i := bytes.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}

	counts := make(map[rune]int, len(delimiters))
	inQuotes := false
	for _, r := range string(line) {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best := delimiters[0]
	for _, d := range delimiters[1:] {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}
