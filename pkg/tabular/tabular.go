// Package tabular loads the delimited spreadsheet exports the ingestion run
// consumes. It performs structural normalization only: byte-order marks are
// stripped, cells are trimmed, and absent cells become empty strings.
// Semantic validation belongs to the callers.
package tabular

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/espaidedades/ingest/pkg/errors"
)

// Row maps a canonical header to the trimmed cell value for one line of a
// table. Rows are not mutated after load.
type Row map[string]string

// Get returns the value for header, or "" when the cell is absent.
func (r Row) Get(header string) string {
	return r[header]
}

// Table is an ordered sequence of rows plus the raw header sequence, which
// drives header-based field mapping.
type Table struct {
	Headers []string
	Rows    []Row
}

// ParseFile reads a header-ed CSV file into a Table.
func ParseFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	defer f.Close()

	return Parse(f, path)
}

// Parse reads a header-ed CSV document into a Table.
func Parse(r io.Reader, name string) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // ragged rows are padded with empty cells
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, parseError(name, err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}

	headers := make([]string, 0, len(records[0]))
	for _, h := range records[0] {
		headers = append(headers, normalizeCell(h))
	}

	table := &Table{Headers: headers}
	for _, record := range records[1:] {
		if isEmptyRecord(record) {
			continue
		}
		row := make(Row, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			value := ""
			if i < len(record) {
				value = normalizeCell(record[i])
			}
			row[header] = value
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// ReadList reads a newline-delimited plain list, returning the trimmed
// non-empty lines in order.
func ReadList(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var lines []string
	for _, line := range strings.Split(string(content), "\n") {
		line = normalizeCell(strings.TrimRight(line, "\r"))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// normalizeCell strips byte-order marks and surrounding whitespace.
func normalizeCell(value string) string {
	value = strings.ReplaceAll(value, "\uFEFF", "")
	return strings.TrimSpace(value)
}

func isEmptyRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseError converts encoding/csv errors into a ParseError carrying
// row/column context when the reader provides it.
func parseError(name string, err error) error {
	if csvErr, ok := err.(*csv.ParseError); ok {
		return &errors.ParseError{
			Format:  "csv",
			File:    name,
			Line:    csvErr.Line,
			Column:  csvErr.Column,
			Message: csvErr.Err.Error(),
			Err:     err,
		}
	}
	return errors.WrapParse("csv", name, err)
}
