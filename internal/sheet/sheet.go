// Package sheet is the tabular store used for the category config, the
// raw event log and the daily summary. Tables are named grids of string
// cells with 1-based row/column addressing. A cell whose value starts
// with "=" is a formula; formulas are never materialized on write but
// evaluated each time the cell is read, so the referenced cells stay the
// source of truth.
package sheet

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"workcal/internal/errs"
)

// Store is the tabular store contract consumed by the pipeline.
type Store interface {
	// HasTable reports whether a table with the given name exists.
	HasTable(ctx context.Context, table string) (bool, error)

	// EnsureTable creates the table if it does not exist yet.
	EnsureTable(ctx context.Context, table string) error

	// LastRow returns the index of the last populated row, 0 when the
	// table is empty. Missing table is a CodeStorage error.
	LastRow(ctx context.Context, table string) (int, error)

	// ReadRange reads a numRows x numCols block starting at (row, col).
	// Unpopulated cells come back as empty strings; formula cells come
	// back evaluated.
	ReadRange(ctx context.Context, table string, row, col, numRows, numCols int) ([][]string, error)

	// AllValues reads the populated rectangle starting at (1, 1), sized
	// by the furthest populated row and column.
	AllValues(ctx context.Context, table string) ([][]string, error)

	// AppendRange writes a rectangular block starting at (startRow, 1).
	// startRow must be strictly past the last populated row; appends
	// never overwrite.
	AppendRange(ctx context.Context, table string, startRow int, values [][]string) error

	// WriteRange writes a rectangular block starting at (row, col),
	// overwriting whatever is there. Used for seeding tables, never by
	// the append-only pipeline paths.
	WriteRange(ctx context.Context, table string, row, col int, values [][]string) error

	// Close releases the underlying resources.
	Close() error
}

// ColName converts a 1-based column index to its A1-style name
// (1 -> "A", 27 -> "AA").
func ColName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}

// CellRef builds an A1-style reference for (row, col), e.g. (12, 5) -> "E12".
func CellRef(row, col int) string {
	return ColName(col) + strconv.Itoa(row)
}

var refRe = regexp.MustCompile(`^([A-Z]+)([1-9][0-9]*)$`)

// ParseCellRef parses an A1-style reference back into (row, col).
func ParseCellRef(ref string) (row, col int, err error) {
	m := refRe.FindStringSubmatch(ref)
	if m == nil {
		return 0, 0, errs.New(errs.CodeInvalid, "bad cell reference %q", ref)
	}
	for _, r := range m[1] {
		col = col*26 + int(r-'A') + 1
	}
	row, _ = strconv.Atoi(m[2])
	return row, col, nil
}

// DurationFormula builds the formula stored in a ledger row's duration
// cell: a subtraction of the row's start cell from its end cell.
func DurationFormula(row, startCol, endCol int) string {
	return fmt.Sprintf("=%s-%s", CellRef(row, endCol), CellRef(row, startCol))
}

// IsFormula reports whether a raw cell value is a formula.
func IsFormula(value string) bool {
	return strings.HasPrefix(value, "=")
}

// cellReader resolves a literal cell value for formula evaluation.
type cellReader func(row, col int) (string, error)

// evalFormula evaluates "=<ref>-<ref>" over two HH:mm time-of-day cells,
// returning the elapsed time in fractional hours as a decimal string.
// Anything outside that grammar is a CodeInvalid error; silent garbage is
// worse than a loud failure here.
func evalFormula(formula string, read cellReader) (string, error) {
	body := strings.TrimPrefix(formula, "=")
	left, right, ok := strings.Cut(body, "-")
	if !ok {
		return "", errs.New(errs.CodeInvalid, "unsupported formula %q", formula)
	}

	endRow, endCol, err := ParseCellRef(strings.TrimSpace(left))
	if err != nil {
		return "", err
	}
	startRow, startCol, err := ParseCellRef(strings.TrimSpace(right))
	if err != nil {
		return "", err
	}

	endVal, err := read(endRow, endCol)
	if err != nil {
		return "", err
	}
	startVal, err := read(startRow, startCol)
	if err != nil {
		return "", err
	}

	endMin, err := parseHHmm(endVal)
	if err != nil {
		return "", err
	}
	startMin, err := parseHHmm(startVal)
	if err != nil {
		return "", err
	}

	hours := float64(endMin-startMin) / 60.0
	return strconv.FormatFloat(hours, 'g', -1, 64), nil
}

func parseHHmm(s string) (minutes int, err error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, errs.New(errs.CodeInvalid, "not an HH:mm value: %q", s)
	}
	h, err1 := strconv.Atoi(hh)
	m, err2 := strconv.Atoi(mm)
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, errs.New(errs.CodeInvalid, "not an HH:mm value: %q", s)
	}
	return h*60 + m, nil
}
