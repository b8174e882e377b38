package csvload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dvloznov/smart-budget/internal/domain"
	"github.com/dvloznov/smart-budget/internal/gcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestLoad_LocalFile(t *testing.T) {
	path := writeFile(t, "tx.csv", []byte("date,desc,amount\n26/11/2025,Uber ride,-23.50\n27/11/2025,Salary,2000\n"))

	table, err := NewLoader(nil).Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, []string{"date", "desc", "amount"}, table.Columns)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, domain.Cell{Kind: domain.CellText, Raw: "26/11/2025"}, table.Rows[0][0])
	assert.Equal(t, domain.Cell{Kind: domain.CellNumber, Raw: "-23.50"}, table.Rows[0][2])
	assert.Equal(t, domain.CellNumber, table.Rows[1][2].Kind)
}

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.csv")

	_, err := NewLoader(nil).Load(context.Background(), path)
	require.Error(t, err)

	var ioErr *domain.IOFailure
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "File '"+path+"' does not exist.", err.Error())
}

func TestLoad_GCS(t *testing.T) {
	ctx := context.Background()
	store := gcs.NewMemoryStorage()
	require.NoError(t, store.Upload(ctx, "gs://bank/nov.csv", []byte("date,description,amount\n2025-11-01,Coffee,-3\n"), "text/csv"))

	table, err := NewLoader(store).Load(ctx, "gs://bank/nov.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())

	_, err = NewLoader(nil).Load(ctx, "gs://bank/nov.csv")
	assert.ErrorIs(t, err, ErrNoStorage)
}

func TestParse_Encodings(t *testing.T) {
	want := []string{"Дата", "Описание", "Сумма"}
	content := "Дата,Описание,Сумма\n01.11.2025,Пятёрочка,-540\n"

	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(content)
	require.NoError(t, err)
	cp1251, err := charmap.Windows1251.NewEncoder().String(content)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"utf-8", []byte(content)},
		{"utf-8 with BOM", append([]byte{0xEF, 0xBB, 0xBF}, content...)},
		{"utf-16le with BOM", []byte(utf16)},
		{"windows-1251", []byte(cp1251)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Parse(tt.data)
			require.NoError(t, err)
			assert.Equal(t, want, table.Columns)
			require.Equal(t, 1, table.Len())
			assert.Equal(t, "Пятёрочка", table.Rows[0][1].Text())
		})
	}
}

func TestParse_Delimiters(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"comma", "date,description,amount\n2025-01-01,\"Rent, January\",-900\n"},
		{"semicolon", "date;description;amount\n2025-01-01;Rent, January;-900\n"},
		{"tab", "date\tdescription\tamount\n2025-01-01\tRent, January\t-900\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Parse([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, []string{"date", "description", "amount"}, table.Columns)
			assert.Equal(t, "Rent, January", table.Rows[0][1].Text())
		})
	}
}

func TestParse_RaggedRowsAndMissingValues(t *testing.T) {
	data := "date,description,amount,currency\n" +
		"2025-01-01,Bakery,-4\n" +
		"2025-01-02,Books,-12,EUR,extra\n" +
		"2025-01-03,N/A,null,  \n"

	table, err := Parse([]byte(data))
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())

	assert.True(t, table.Rows[0][3].IsMissing())
	assert.Len(t, table.Rows[1], 4)
	assert.Equal(t, "EUR", table.Rows[1][3].Text())
	assert.True(t, table.Rows[2][1].IsMissing())
	assert.True(t, table.Rows[2][2].IsMissing())
	assert.True(t, table.Rows[2][3].IsMissing())
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(nil)
	assert.Error(t, err)
}

func TestTagCell(t *testing.T) {
	tests := []struct {
		raw  string
		kind domain.CellKind
	}{
		{"", domain.CellMissing},
		{"  ", domain.CellMissing},
		{"NaN", domain.CellMissing},
		{"None", domain.CellMissing},
		{"42", domain.CellNumber},
		{" -3.5 ", domain.CellNumber},
		{"1,234.00", domain.CellText},
		{"Coffee", domain.CellText},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.kind, TagCell(tt.raw).Kind)
		})
	}
}
