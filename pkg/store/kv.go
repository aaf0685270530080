package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// kvTable is the named-field table backing the store.
type kvTable struct {
	db *sql.DB
}

func (t kvTable) get(ctx context.Context, name string) (string, bool, error) {
	const query = `SELECT value FROM kv WHERE name = ?`
	var value string
	err := t.db.QueryRowContext(ctx, query, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", name, err)
	}
	return value, true, nil
}

func (t kvTable) set(ctx context.Context, name, value string) error {
	const query = `INSERT INTO kv (name, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := t.db.ExecContext(ctx, query, name, value); err != nil {
		return fmt.Errorf("set %q: %w", name, err)
	}
	return nil
}

func (t kvTable) delete(ctx context.Context, name string) error {
	const query = `DELETE FROM kv WHERE name = ?`
	if _, err := t.db.ExecContext(ctx, query, name); err != nil {
		return fmt.Errorf("delete %q: %w", name, err)
	}
	return nil
}

// list returns every field whose name starts with prefix.
func (t kvTable) list(ctx context.Context, prefix string) (map[string]string, error) {
	const query = `SELECT name, value FROM kv WHERE substr(name, 1, length(?)) = ? ORDER BY name`
	rows, err := t.db.QueryContext(ctx, query, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		out[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fields: %w", err)
	}
	return out, nil
}

// add increments an integer field in one statement, flooring the result at
// zero, and returns the new value.
func (t kvTable) add(ctx context.Context, name string, delta int) (int, error) {
	const query = `INSERT INTO kv (name, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			value = CAST(MAX(0, CAST(kv.value AS INTEGER) + ?) AS TEXT),
			updated_at = CURRENT_TIMESTAMP
		RETURNING value`
	var value string
	err := t.db.QueryRowContext(ctx, query, name, strconv.Itoa(max(0, delta)), delta).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("add to %q: %w", name, err)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("field %q is not a number: %w", name, err)
	}
	return n, nil
}

func (t kvTable) clear(ctx context.Context) error {
	if _, err := t.db.ExecContext(ctx, `DELETE FROM kv`); err != nil {
		return fmt.Errorf("clear state: %w", err)
	}
	return nil
}
