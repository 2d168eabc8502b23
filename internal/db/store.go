package db

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// runner is satisfied by both *sql.DB and *sql.Tx.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store executes parameterized statements against the database or an open
// transaction. Queries are written with ? placeholders.
type Store struct {
	r      runner
	driver DriverType
}

// Row is one result row keyed by column name.
type Row map[string]any

// identRegex matches the table and column names accepted by the generic helpers.
var identRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func (s *Store) rebind(q string) string {
	if s.driver == DriverPostgres {
		return convertPlaceholders(q)
	}
	return q
}

// query executes a query with driver-appropriate placeholders.
func (s *Store) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.r.QueryContext(ctx, s.rebind(q), args...)
}

// queryRow executes a query returning a single row.
func (s *Store) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return s.r.QueryRowContext(ctx, s.rebind(q), args...)
}

// exec executes a query that doesn't return rows.
func (s *Store) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return s.r.ExecContext(ctx, s.rebind(q), args...)
}

func checkIdents(names ...string) error {
	for _, n := range names {
		if !identRegex.MatchString(n) {
			return fmt.Errorf("invalid identifier %q", n)
		}
	}
	return nil
}

// Select runs a query and returns every row as a column-name map.
// Text columns come back as string.
func (s *Store) Select(ctx context.Context, q string, args ...any) ([]Row, error) {
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, wrap("select", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, wrap("select columns", err)
	}

	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, wrap("select scan", err)
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, wrap("select rows", rows.Err())
}

// Insert inserts one row and returns its generated id.
func (s *Store) Insert(ctx context.Context, table string, fields []string, values []any) (int64, error) {
	if len(fields) == 0 || len(fields) != len(values) {
		return 0, fmt.Errorf("insert into %s: %d fields for %d values", table, len(fields), len(values))
	}
	if err := checkIdents(append([]string{table}, fields...)...); err != nil {
		return 0, err
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
		table, strings.Join(fields, ", "), placeholders(len(fields)))

	var id int64
	if err := s.queryRow(ctx, q, values...).Scan(&id); err != nil {
		return 0, wrap("insert into "+table, err)
	}
	return id, nil
}

// Update sets fields on the rows where keyField equals keyValue and returns
// the number of rows affected.
func (s *Store) Update(ctx context.Context, table string, fields []string, values []any, keyField string, keyValue any) (int64, error) {
	if len(fields) == 0 || len(fields) != len(values) {
		return 0, fmt.Errorf("update %s: %d fields for %d values", table, len(fields), len(values))
	}
	if err := checkIdents(append([]string{table, keyField}, fields...)...); err != nil {
		return 0, err
	}

	sets := make([]string, len(fields))
	for i, f := range fields {
		sets[i] = f + " = ?"
	}
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", table, strings.Join(sets, ", "), keyField)

	args := make([]any, 0, len(values)+1)
	args = append(append(args, values...), keyValue)
	res, err := s.exec(ctx, q, args...)
	if err != nil {
		return 0, wrap("update "+table, err)
	}
	n, err := res.RowsAffected()
	return n, wrap("update "+table, err)
}

// Delete removes the rows where keyField equals keyValue and returns how
// many were removed.
func (s *Store) Delete(ctx context.Context, table, keyField string, keyValue any) (int64, error) {
	if err := checkIdents(table, keyField); err != nil {
		return 0, err
	}

	res, err := s.exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, keyField), keyValue)
	if err != nil {
		return 0, wrap("delete from "+table, err)
	}
	n, err := res.RowsAffected()
	return n, wrap("delete from "+table, err)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
