package cfgdb

import (
	"database/sql"
	"fmt"
	"strings"
)

// Row is one saved configuration.
type Row struct {
	UUID     string
	Kind     string
	Name     *string
	Writer   *string
	Date     *string
	Payload  string
	Hardware *string
}

// RowFields is a partial row for Insert and Update. Nil fields are not
// written.
type RowFields struct {
	Kind     string
	Name     *string
	Writer   *string
	Date     *string
	Payload  *string
	Hardware *string
}

// StringPtr returns a pointer to s for populating RowFields.
func StringPtr(s string) *string { return &s }

func (f RowFields) validate() error {
	if f.Kind != KindStartup {
		return fmt.Errorf("%w: kind %q is not writable (only %q)", ErrValidation, f.Kind, KindStartup)
	}
	return nil
}

// columns returns the supplied columns and values, kind first.
func (f RowFields) columns() ([]string, []any) {
	cols := []string{"type"}
	vals := []any{f.Kind}
	add := func(col string, v *string) {
		if v != nil {
			cols = append(cols, col)
			vals = append(vals, *v)
		}
	}
	add("name", f.Name)
	add("writer", f.Writer)
	add("date", f.Date)
	add("config", f.Payload)
	add("hardware", f.Hardware)
	return cols, vals
}

// apply copies supplied fields onto r.
func (f RowFields) apply(r *Row) {
	r.Kind = f.Kind
	if f.Name != nil {
		r.Name = StringPtr(*f.Name)
	}
	if f.Writer != nil {
		r.Writer = StringPtr(*f.Writer)
	}
	if f.Date != nil {
		r.Date = StringPtr(*f.Date)
	}
	if f.Payload != nil {
		r.Payload = *f.Payload
	}
	if f.Hardware != nil {
		r.Hardware = StringPtr(*f.Hardware)
	}
}

const rowColumns = "uuid, type, name, writer, date, config, hardware"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(scanner rowScanner) (*Row, error) {
	var (
		row      Row
		name     sql.NullString
		writer   sql.NullString
		date     sql.NullString
		payload  sql.NullString
		hardware sql.NullString
	)
	if err := scanner.Scan(&row.UUID, &row.Kind, &name, &writer, &date, &payload, &hardware); err != nil {
		return nil, err
	}
	row.Name = fromNull(name)
	row.Writer = fromNull(writer)
	row.Date = fromNull(date)
	row.Payload = payload.String
	row.Hardware = fromNull(hardware)
	return &row, nil
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return StringPtr(ns.String)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
