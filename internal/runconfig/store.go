package runconfig

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"cfgd/internal/dbconn"
)

// TableName is the running database table holding configuration leaves.
const TableName = "running_config"

// Schema creates the running_config table. A leaf directly under the
// document root has NULL record and field; a leaf under a table has a NULL
// field.
const Schema = `
CREATE TABLE IF NOT EXISTS running_config (
    tbl    TEXT NOT NULL,
    record TEXT,
    field  TEXT,
    value  TEXT NOT NULL
);
`

type leaf struct {
	tbl    string
	record sql.NullString
	field  sql.NullString
	value  string
}

// Read assembles the running configuration held by conn.
func Read(ctx context.Context, conn *dbconn.Conn) (Document, error) {
	rows, err := conn.Query(ctx, "SELECT tbl, record, field, value FROM running_config ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("read running config: %w", err)
	}
	defer rows.Close()

	doc := Document{}
	for rows.Next() {
		var l leaf
		if err := rows.Scan(&l.tbl, &l.record, &l.field, &l.value); err != nil {
			return nil, fmt.Errorf("scan running config: %w", err)
		}
		if err := doc.place(l); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate running config: %w", err)
	}
	return doc, nil
}

func (d Document) place(l leaf) error {
	value, err := decodeValue(l.value)
	if err != nil {
		return fmt.Errorf("running config %s: %w", l.tbl, err)
	}
	if !l.record.Valid {
		d[l.tbl] = value
		return nil
	}
	table, err := child(d, l.tbl)
	if err != nil {
		return err
	}
	if !l.field.Valid {
		table[l.record.String] = value
		return nil
	}
	record, err := child(table, l.record.String)
	if err != nil {
		return fmt.Errorf("%s: %w", l.tbl, err)
	}
	record[l.field.String] = value
	return nil
}

func child(parent map[string]any, key string) (map[string]any, error) {
	existing, ok := parent[key]
	if !ok {
		m := map[string]any{}
		parent[key] = m
		return m, nil
	}
	m, ok := existing.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("running config %q is both a value and a table", key)
	}
	return m, nil
}

func decodeValue(raw string) (any, error) {
	var v any
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode value %q: %w", raw, err)
	}
	return v, nil
}

// Write replaces the running configuration held by conn with doc in one
// transaction.
func Write(ctx context.Context, conn *dbconn.Conn, doc Document) (dbconn.TxnStatus, error) {
	leaves, err := flatten(doc)
	if err != nil {
		return dbconn.TxnError, err
	}

	txn, err := conn.Begin(ctx)
	if err != nil {
		return dbconn.TxnError, err
	}
	if _, err := txn.Exec(ctx, "DELETE FROM running_config"); err != nil {
		txn.Abort()
		return dbconn.TxnError, fmt.Errorf("clear running config: %w", err)
	}
	for _, l := range leaves {
		if _, err := txn.Exec(ctx,
			"INSERT INTO running_config (tbl, record, field, value) VALUES (?, ?, ?, ?)",
			l.tbl, l.record, l.field, l.value,
		); err != nil {
			txn.Abort()
			return dbconn.TxnError, fmt.Errorf("write running config %s: %w", l.tbl, err)
		}
	}
	return txn.Commit(ctx)
}

// flatten turns doc into leaves in sorted order. Non-empty objects at the
// table and record levels are expanded; anything else is stored as JSON.
func flatten(doc Document) ([]leaf, error) {
	var leaves []leaf
	for _, tbl := range sortedKeys(doc) {
		records, ok := doc[tbl].(map[string]any)
		if !ok || len(records) == 0 {
			l, err := newLeaf(tbl, nil, nil, doc[tbl])
			if err != nil {
				return nil, err
			}
			leaves = append(leaves, l)
			continue
		}
		for _, rec := range sortedKeys(records) {
			fields, ok := records[rec].(map[string]any)
			if !ok || len(fields) == 0 {
				l, err := newLeaf(tbl, &rec, nil, records[rec])
				if err != nil {
					return nil, err
				}
				leaves = append(leaves, l)
				continue
			}
			for _, field := range sortedKeys(fields) {
				l, err := newLeaf(tbl, &rec, &field, fields[field])
				if err != nil {
					return nil, err
				}
				leaves = append(leaves, l)
			}
		}
	}
	return leaves, nil
}

func newLeaf(tbl string, record, field *string, value any) (leaf, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return leaf{}, fmt.Errorf("encode %s value: %w", tbl, err)
	}
	l := leaf{tbl: tbl, value: string(data)}
	if record != nil {
		l.record = sql.NullString{String: *record, Valid: true}
	}
	if field != nil {
		l.field = sql.NullString{String: *field, Valid: true}
	}
	return l, nil
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
