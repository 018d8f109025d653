package store

import (
	"bufio"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"rewind/internal/models"
	"rewind/internal/providers"
)

// QueryResult is one executed statement's tabular output.
type QueryResult struct {
	Columns []string
	Rows    [][]string
}

// QueryShell runs ad-hoc read-only SQL against a finished database.
// Write statements are rejected before reaching the driver; the shell
// additionally opens the file in read-only mode as a second line of
// defense.
type QueryShell struct {
	db     *sql.DB
	logger providers.Logger
}

func NewQueryShell(db *sql.DB, logger providers.Logger) *QueryShell {
	return &QueryShell{db: db, logger: logger}
}

var readOnlyPrefixes = []string{"select", "with", "explain", "pragma table_info", "pragma table_list"}

// isReadOnly screens the statement text. Only a single read statement
// is allowed; anything containing a second statement is rejected too.
func isReadOnly(query string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(query))
	trimmed = strings.TrimSuffix(trimmed, ";")
	if trimmed == "" || strings.Contains(trimmed, ";") {
		return false
	}
	for _, prefix := range readOnlyPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// Execute runs one screened statement and materializes every row as
// strings.
func (q *QueryShell) Execute(query string) (*QueryResult, error) {
	if !isReadOnly(query) {
		return nil, fmt.Errorf("%w: only read statements are allowed", models.ErrStoreRead)
	}
	q.logger.Debugf(providers.TypeStore, "query: %s", query)
	rows, err := q.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreRead, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreRead, err)
	}
	result := &QueryResult{Columns: cols}
	for rows.Next() {
		raw := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrStoreRead, err)
		}
		row := make([]string, len(cols))
		for i, v := range raw {
			if v.Valid {
				row[i] = v.String
			} else {
				row[i] = "NULL"
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreRead, err)
	}
	return result, nil
}

// Run reads statements line by line until EOF or "exit". Errors are
// printed and the loop continues.
func (q *QueryShell) Run(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	fmt.Fprintln(out, "Read-only query shell. Type a SELECT statement, or 'exit' to quit.")
	for {
		fmt.Fprint(out, "rewind> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" || line == ".exit" {
			break
		}
		result, err := q.Execute(line)
		if err != nil {
			fmt.Fprintf(out, "error: %s\n", err)
			continue
		}
		writeTable(out, result)
	}
	return scanner.Err()
}

// writeTable prints the result with columns padded to their widest
// value.
func writeTable(out io.Writer, result *QueryResult) {
	widths := make([]int, len(result.Columns))
	for i, col := range result.Columns {
		widths[i] = len(col)
	}
	for _, row := range result.Rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	writeRow := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		fmt.Fprintln(out, strings.Join(parts, " | "))
	}

	writeRow(result.Columns)
	sep := make([]string, len(result.Columns))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	fmt.Fprintln(out, strings.Join(sep, "-+-"))
	for _, row := range result.Rows {
		writeRow(row)
	}
	fmt.Fprintf(out, "(%d rows)\n", len(result.Rows))
}
