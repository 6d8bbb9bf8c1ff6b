package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/secnex/admin-bootstrap/models"
)

func Connect(dbURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Runner executes statements against a pool or, inside InTx, against one
// transaction. Every call acquires and releases its connection.
type Runner struct {
	db *sql.DB
	q  querier
	tx *sql.Tx
}

func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db, q: db}
}

func (r *Runner) DB() *sql.DB {
	return r.db
}

// IsValid reports whether the database answers a ping within timeout.
func (r *Runner) IsValid(ctx context.Context, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return r.db.PingContext(ctx) == nil
}

// InTx runs fn inside a transaction and commits when fn returns nil. A Runner
// that is already bound to a transaction reuses it.
func (r *Runner) InTx(ctx context.Context, fn func(tx *Runner) error) (err error) {
	if r.tx != nil {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&Runner{db: r.db, q: tx, tx: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Batch executes query once per parameter row in a single transaction and
// returns the rows affected by each execution.
func (r *Runner) Batch(ctx context.Context, query string, params [][]any) ([]int64, error) {
	if len(params) == 0 {
		return []int64{}, nil
	}

	affected := make([]int64, 0, len(params))
	err := r.InTx(ctx, func(tx *Runner) error {
		stmt, err := tx.q.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare batch: %w", err)
		}
		defer stmt.Close()

		for i, args := range params {
			res, err := stmt.ExecContext(ctx, args...)
			if err != nil {
				return fmt.Errorf("batch row %d: %w", i, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("batch row %d: %w", i, err)
			}
			affected = append(affected, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return affected, nil
}

func (r *Runner) Update(ctx context.Context, query string, args ...any) (int64, error) {
	return r.exec(ctx, query, args...)
}

func (r *Runner) Save(ctx context.Context, query string, args ...any) (int64, error) {
	return r.exec(ctx, query, args...)
}

func (r *Runner) Delete(ctx context.Context, query string, args ...any) (int64, error) {
	return r.exec(ctx, query, args...)
}

func (r *Runner) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Scanner is satisfied by *sql.Row and *sql.Rows.
type Scanner interface {
	Scan(dest ...any) error
}

type RowMapper[T any] func(s Scanner) (T, error)

// QueryList maps every row of the result through mapper.
func QueryList[T any](ctx context.Context, r *Runner, mapper RowMapper[T], query string, args ...any) ([]T, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := mapper(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// QueryOne maps the first row of the result. It returns models.ErrNotFound
// when the query yields no rows.
func QueryOne[T any](ctx context.Context, r *Runner, mapper RowMapper[T], query string, args ...any) (T, error) {
	v, err := mapper(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, models.ErrNotFound
	}
	return v, err
}

// QueryMaps returns each row as a column name to value map.
func (r *Runner) QueryMaps(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		m, err := scanMap(rows, cols)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// QueryFirstMap returns only the first row; any further rows are discarded.
func (r *Runner) QueryFirstMap(ctx context.Context, query string, args ...any) (map[string]any, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, models.ErrNotFound
	}
	return scanMap(rows, cols)
}

func scanMap(rows *sql.Rows, cols []string) (map[string]any, error) {
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	m := make(map[string]any, len(cols))
	for i, col := range cols {
		if b, ok := values[i].([]byte); ok {
			m[col] = string(b)
			continue
		}
		m[col] = values[i]
	}
	return m, nil
}

// Count reads the first column of the first row as an integer. A missing
// row or a NULL value counts as zero.
func (r *Runner) Count(ctx context.Context, query string, args ...any) (int, error) {
	var value any
	if err := r.q.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return toInt(value)
}

func toInt(value any) (int, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int64:
		return int(v), nil
	case int32:
		return int(v), nil
	case int:
		return v, nil
	case float64:
		return int(v), nil
	case []byte:
		return parseInt(string(v))
	case string:
		return parseInt(v)
	default:
		return 0, fmt.Errorf("unsupported count value %T", value)
	}
}

func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse count %q: %w", s, err)
	}
	return n, nil
}
