// Package tables parses the delimited reference-table formats of spec
// section 6: ';'-delimited, optional '"' quoting, header row naming
// columns. Rows with unparseable fields are discarded with a warning;
// missing required columns abort the load; an empty file aborts with
// BadData. This package is the Go-native stand-in for the external
// "resource loaders" collaborator — it hands the core plain records, never
// a live file handle.
package tables

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"ntcstep/internal/errs"
)

const delimiter = ';'

// Warning describes one discarded row.
type Warning struct {
	Line   int
	Reason string
}

// rawTable is a parsed delimited file: header name -> column index, plus
// the raw string fields of every row that parsed structurally (right
// column count); value-level parsing happens downstream per table kind.
type rawTable struct {
	header map[string]int
	rows   [][]string
	lines  []int // original 1-based line number of each row, for warnings
}

func splitRow(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
		case c == delimiter && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	fields = append(fields, cur.String())
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

// parseRaw reads a delimited table with a header row. requiredColumns, if
// non-empty, must all be present in the header or the load aborts with
// BadData.
func parseRaw(r io.Reader, requiredColumns []string) (*rawTable, []Warning, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var headerLine string
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		headerLine = line
		break
	}
	if headerLine == "" {
		return nil, nil, errs.New(errs.BadData, "reference table is empty")
	}

	headerFields := splitRow(headerLine)
	header := make(map[string]int, len(headerFields))
	for i, name := range headerFields {
		header[name] = i
	}
	for _, col := range requiredColumns {
		if _, ok := header[col]; !ok {
			return nil, nil, errs.New(errs.BadData, "reference table missing required column "+col).
				With("column", col)
		}
	}

	t := &rawTable{header: header}
	var warnings []Warning
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := splitRow(line)
		if len(fields) != len(headerFields) {
			warnings = append(warnings, Warning{Line: lineNo, Reason: "field count mismatch"})
			continue
		}
		t.rows = append(t.rows, fields)
		t.lines = append(t.lines, lineNo)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errs.Wrap(errs.CannotReadFile, "error reading reference table", err)
	}

	return t, warnings, nil
}

func (t *rawTable) col(row []string, name string) (string, bool) {
	idx, ok := t.header[name]
	if !ok || idx >= len(row) {
		return "", false
	}
	return row[idx], true
}

func (t *rawTable) colFloat(row []string, name string) (float64, bool) {
	s, ok := t.col(row, name)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func (t *rawTable) colInt(row []string, name string) (int, bool) {
	s, ok := t.col(row, name)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	return v, err == nil
}
