package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const insertChunkSize = 2000

// insertQuery builds a multi-row INSERT for n rows of the given columns.
func insertQuery(table string, columns []string, n int) string {
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	values := make([]string, n)
	for i := range values {
		values[i] = placeholder
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, strings.Join(columns, ", "), strings.Join(values, ","))
}

// insertRows writes rows in chunks to reduce round-trips.
func insertRows(ctx context.Context, db *sql.DB, table string, columns []string, rows [][]interface{}) error {
	for start := 0; start < len(rows); start += insertChunkSize {
		end := min(start+insertChunkSize, len(rows))
		args := make([]interface{}, 0, (end-start)*len(columns))
		for _, r := range rows[start:end] {
			args = append(args, r...)
		}
		if _, err := db.ExecContext(ctx, insertQuery(table, columns, end-start), args...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}
