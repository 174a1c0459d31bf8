package sheet

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"workcal/internal/errs"
)

// SQLiteStore implements Store over a single SQLite file. Tables are kept
// as a generic cell grid rather than one SQL table per sheet, so row and
// column addressing matches the contract exactly and formula cells keep
// their source text.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS sheets (
	name TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS cells (
	sheet TEXT    NOT NULL,
	row   INTEGER NOT NULL,
	col   INTEGER NOT NULL,
	kind  TEXT    NOT NULL DEFAULT 'literal',
	value TEXT    NOT NULL,
	PRIMARY KEY (sheet, row, col)
);

CREATE INDEX IF NOT EXISTS idx_cells_sheet_row ON cells(sheet, row);
`

// OpenSQLite opens (or creates) the store at path, with WAL mode and a
// busy timeout, and ensures the schema exists.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errs.Wrap(errs.CodeStorage, err, "create store dir %q", dir)
		}
	}

	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.CodeStorage, err, "open store %q", path)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.CodeStorage, err, "init store schema")
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Path returns the backing file path.
func (s *SQLiteStore) Path() string { return s.path }

// HasTable reports whether the named table exists.
func (s *SQLiteStore) HasTable(ctx context.Context, table string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sheets WHERE name = ?`, table).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errs.Wrap(errs.CodeStorage, err, "query table %q", table)
	}
	return true, nil
}

// EnsureTable creates the named table if it does not exist.
func (s *SQLiteStore) EnsureTable(ctx context.Context, table string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO sheets(name) VALUES (?)`, table)
	return errs.Wrap(errs.CodeStorage, err, "create table %q", table)
}

// requireTable fails with a CodeStorage error when the table is absent.
func (s *SQLiteStore) requireTable(ctx context.Context, table string) error {
	ok, err := s.HasTable(ctx, table)
	if err != nil {
		return err
	}
	if !ok {
		return errs.New(errs.CodeStorage, "table %q not found", table)
	}
	return nil
}

// LastRow returns the last populated row index, 0 for an empty table.
func (s *SQLiteStore) LastRow(ctx context.Context, table string) (int, error) {
	if err := s.requireTable(ctx, table); err != nil {
		return 0, err
	}
	var last int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(row), 0) FROM cells WHERE sheet = ?`, table).Scan(&last)
	if err != nil {
		return 0, errs.Wrap(errs.CodeStorage, err, "last row of %q", table)
	}
	return last, nil
}

func (s *SQLiteStore) lastCol(ctx context.Context, table string) (int, error) {
	var last int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(col), 0) FROM cells WHERE sheet = ?`, table).Scan(&last)
	if err != nil {
		return 0, errs.Wrap(errs.CodeStorage, err, "last col of %q", table)
	}
	return last, nil
}

// readLiteral reads a single cell's raw value for formula evaluation.
// Formula cells are not valid operands; evaluation does not recurse.
func (s *SQLiteStore) readLiteral(ctx context.Context, table string) cellReader {
	return func(row, col int) (string, error) {
		var kind, value string
		err := s.db.QueryRowContext(ctx,
			`SELECT kind, value FROM cells WHERE sheet = ? AND row = ? AND col = ?`,
			table, row, col).Scan(&kind, &value)
		if err == sql.ErrNoRows {
			return "", errs.New(errs.CodeInvalid, "formula references empty cell %s", CellRef(row, col))
		}
		if err != nil {
			return "", errs.Wrap(errs.CodeStorage, err, "read cell %s of %q", CellRef(row, col), table)
		}
		if kind == kindFormula {
			return "", errs.New(errs.CodeInvalid, "formula references formula cell %s", CellRef(row, col))
		}
		return value, nil
	}
}

const (
	kindLiteral = "literal"
	kindFormula = "formula"
)

// ReadRange reads a numRows x numCols block starting at (row, col),
// evaluating formula cells on the way out.
func (s *SQLiteStore) ReadRange(ctx context.Context, table string, row, col, numRows, numCols int) ([][]string, error) {
	if row < 1 || col < 1 || numRows < 0 || numCols < 0 {
		return nil, errs.New(errs.CodeInvalid, "bad range (%d,%d)+%dx%d", row, col, numRows, numCols)
	}
	if err := s.requireTable(ctx, table); err != nil {
		return nil, err
	}

	grid := make([][]string, numRows)
	for i := range grid {
		grid[i] = make([]string, numCols)
	}
	if numRows == 0 || numCols == 0 {
		return grid, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT row, col, kind, value FROM cells
		 WHERE sheet = ? AND row BETWEEN ? AND ? AND col BETWEEN ? AND ?`,
		table, row, row+numRows-1, col, col+numCols-1)
	if err != nil {
		return nil, errs.Wrap(errs.CodeStorage, err, "read range of %q", table)
	}
	defer rows.Close()

	read := s.readLiteral(ctx, table)
	for rows.Next() {
		var r, c int
		var kind, value string
		if err := rows.Scan(&r, &c, &kind, &value); err != nil {
			return nil, errs.Wrap(errs.CodeStorage, err, "scan cell of %q", table)
		}
		if kind == kindFormula {
			value, err = evalFormula(value, read)
			if err != nil {
				return nil, err
			}
		}
		grid[r-row][c-col] = value
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.CodeStorage, err, "read range of %q", table)
	}
	return grid, nil
}

// AllValues reads the populated rectangle of the table starting at (1,1).
func (s *SQLiteStore) AllValues(ctx context.Context, table string) ([][]string, error) {
	lastRow, err := s.LastRow(ctx, table)
	if err != nil {
		return nil, err
	}
	lastCol, err := s.lastCol(ctx, table)
	if err != nil {
		return nil, err
	}
	return s.ReadRange(ctx, table, 1, 1, lastRow, lastCol)
}

// AppendRange writes values starting at (startRow, 1). The block must be
// rectangular and startRow must lie strictly past the last populated row;
// the ledger path depends on appends never clobbering history.
func (s *SQLiteStore) AppendRange(ctx context.Context, table string, startRow int, values [][]string) error {
	if err := validateBlock(values); err != nil {
		return err
	}
	last, err := s.LastRow(ctx, table)
	if err != nil {
		return err
	}
	if startRow <= last {
		return errs.New(errs.CodeStorage,
			"append at row %d would overwrite rows of %q (last populated row %d)", startRow, table, last)
	}
	return s.writeBlock(ctx, table, startRow, 1, values, false)
}

// WriteRange overwrites a block starting at (row, col). Seeding only.
func (s *SQLiteStore) WriteRange(ctx context.Context, table string, row, col int, values [][]string) error {
	if err := validateBlock(values); err != nil {
		return err
	}
	if row < 1 || col < 1 {
		return errs.New(errs.CodeInvalid, "bad range origin (%d,%d)", row, col)
	}
	if err := s.requireTable(ctx, table); err != nil {
		return err
	}
	return s.writeBlock(ctx, table, row, col, values, true)
}

func validateBlock(values [][]string) error {
	if len(values) == 0 {
		return errs.New(errs.CodeInvalid, "empty value block")
	}
	width := len(values[0])
	for _, r := range values {
		if len(r) != width {
			return errs.New(errs.CodeInvalid, "ragged value block")
		}
	}
	return nil
}

func (s *SQLiteStore) writeBlock(ctx context.Context, table string, row, col int, values [][]string, overwrite bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.CodeStorage, err, "begin write to %q", table)
	}
	defer tx.Rollback()

	insert := `INSERT INTO cells(sheet, row, col, kind, value) VALUES (?, ?, ?, ?, ?)`
	if overwrite {
		insert = `INSERT OR REPLACE INTO cells(sheet, row, col, kind, value) VALUES (?, ?, ?, ?, ?)`
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return errs.Wrap(errs.CodeStorage, err, "prepare write to %q", table)
	}
	defer stmt.Close()

	for i, rowVals := range values {
		for j, value := range rowVals {
			r, c := row+i, col+j
			if value == "" {
				if overwrite {
					if _, err := tx.ExecContext(ctx,
						`DELETE FROM cells WHERE sheet = ? AND row = ? AND col = ?`, table, r, c); err != nil {
						return errs.Wrap(errs.CodeStorage, err, "clear cell %s of %q", CellRef(r, c), table)
					}
				}
				continue
			}
			kind := kindLiteral
			if IsFormula(value) {
				kind = kindFormula
			}
			if _, err := stmt.ExecContext(ctx, table, r, c, kind, value); err != nil {
				return errs.Wrap(errs.CodeStorage, err, "write cell %s of %q", CellRef(r, c), table)
			}
		}
	}

	return errs.Wrap(errs.CodeStorage, tx.Commit(), "commit write to %q", table)
}
