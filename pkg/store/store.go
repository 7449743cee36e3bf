package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// StoreManager owns the sqlite handle shared by every TypeStore. One
// manager per daemon; stores hang tables off it lazily.
type StoreManager struct {
	db     *sql.DB
	mu     sync.Mutex
	tables map[string]bool
}

func NewStoreManager(path string) (*StoreManager, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening store at %s: %w", path, err)
	}
	// sqlite serializes writers anyway, avoid SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	return &StoreManager{db: db, tables: map[string]bool{}}, nil
}

func (t *StoreManager) CloseDB() error {
	return t.db.Close()
}

func (t *StoreManager) ensureTable(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tables[name] {
		return nil
	}
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (key TEXT PRIMARY KEY, value TEXT NOT NULL)", name)
	if _, err := t.db.Exec(query); err != nil {
		return fmt.Errorf("creating table %s: %w", name, err)
	}
	t.tables[name] = true
	return nil
}

// TypeStore is a keyed JSON document store for one record type. The table
// name derives from the type name so each type gets its own namespace.
type TypeStore[T any] struct {
	Table string
	sm    *StoreManager
}

// GetTypeStore returns the store for T, creating its table on first use.
func GetTypeStore[T any](sm *StoreManager) *TypeStore[T] {
	var zero T
	return &TypeStore[T]{Table: tableName(fmt.Sprintf("%T", zero)), sm: sm}
}

func tableName(typeName string) string {
	name := typeName
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}

func (t *TypeStore[T]) Set(key string, value T) error {
	if err := t.sm.ensureTable(t.Table); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s record: %w", t.Table, err)
	}
	query := fmt.Sprintf("INSERT INTO %s (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value", t.Table)
	_, err = t.sm.db.Exec(query, key, string(raw))
	return err
}

func (t *TypeStore[T]) Get(key string) (T, error) {
	var value T
	if err := t.sm.ensureTable(t.Table); err != nil {
		return value, err
	}
	query := fmt.Sprintf("SELECT value FROM %s WHERE key = ?", t.Table)
	var raw string
	if err := t.sm.db.QueryRow(query, key).Scan(&raw); err != nil {
		return value, err
	}
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return value, fmt.Errorf("decoding %s record %s: %w", t.Table, key, err)
	}
	return value, nil
}

// Exec runs a caller-built SELECT over the value column and decodes each
// row. Callers reference t.Table when building the query.
func (t *TypeStore[T]) Exec(query string, args ...any) ([]T, error) {
	if err := t.sm.ensureTable(t.Table); err != nil {
		return nil, err
	}
	rows, err := t.sm.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var value T
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("decoding %s record: %w", t.Table, err)
		}
		out = append(out, value)
	}
	return out, rows.Err()
}

// ExecWrite runs a caller-built mutation and reports affected rows.
func (t *TypeStore[T]) ExecWrite(query string, args ...any) (int64, error) {
	if err := t.sm.ensureTable(t.Table); err != nil {
		return 0, err
	}
	res, err := t.sm.db.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
