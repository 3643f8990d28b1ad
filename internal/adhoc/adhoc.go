// Package adhoc runs user-supplied read-only SQL against the application
// database. Only select and with statements are accepted; anything else is
// rejected before it reaches the database. Failures come back as values so
// the query page can show them inline.
package adhoc

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

var ErrNotReadOnly = fmt.Errorf("adhoc: only select and with statements are allowed")

type Result struct {
	Columns []string
	Rows    [][]string
}

func allowed(sqlText string) bool {
	first := strings.ToLower(strings.Fields(strings.TrimSpace(sqlText))[0])
	return first == "select" || first == "with"
}

// stacked reports whether sqlText carries a second statement after a
// semicolon. The driver happily executes stacked statements, so a write
// smuggled in behind a select would otherwise slip through the keyword
// check. Quoted regions are skipped; a bare trailing semicolon is fine.
func stacked(sqlText string) bool {
	var quote byte

	for i := 0; i < len(sqlText); i++ {
		c := sqlText[i]

		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == ';':
			if strings.TrimSpace(sqlText[i+1:]) != "" {
				return true
			}
		}
	}

	return false
}

// Run executes sqlText and renders every value as a string, with null shown
// as an empty string.
func Run(ctx context.Context, db *sql.DB, sqlText string) (*Result, error) {
	if strings.TrimSpace(sqlText) == "" {
		return nil, fmt.Errorf("adhoc.Run: %w", ErrNotReadOnly)
	}
	if !allowed(sqlText) || stacked(sqlText) {
		return nil, fmt.Errorf("adhoc.Run: %w", ErrNotReadOnly)
	}

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("adhoc.Run: could not run query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("adhoc.Run: could not get column names: %w", err)
	}

	result := Result{Columns: columns}

	for rows.Next() {
		values := make([]sql.NullString, len(columns))
		scanTargets := make([]interface{}, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}

		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("adhoc.Run: could not scan row: %w", err)
		}

		row := make([]string, len(columns))
		for i, v := range values {
			if v.Valid {
				row[i] = v.String
			}
		}

		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("adhoc.Run: %w", err)
	}

	return &result, nil
}
