package runconfig

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"cfgd/internal/dbconn"
)

// Render writes the running configuration held by conn in CLI form: scalar
// settings first, then one stanza per record terminated by "!".
func Render(ctx context.Context, conn *dbconn.Conn, w io.Writer) error {
	doc, err := Read(ctx, conn)
	if err != nil {
		return err
	}
	return RenderDocument(doc, w)
}

// RenderDocument writes doc in the same form as Render.
func RenderDocument(doc Document, w io.Writer) error {
	bw := bufio.NewWriter(w)

	var tables []string
	for _, key := range sortedKeys(doc) {
		if records, ok := doc[key].(map[string]any); ok && len(records) > 0 {
			tables = append(tables, key)
			continue
		}
		fmt.Fprintf(bw, "%s %s\n", key, renderValue(doc[key]))
	}
	if len(tables) > 0 && len(tables) < len(doc) {
		fmt.Fprintln(bw, "!")
	}

	for _, tbl := range tables {
		records := doc[tbl].(map[string]any)
		for _, rec := range sortedKeys(records) {
			fields, ok := records[rec].(map[string]any)
			if !ok {
				fmt.Fprintf(bw, "%s %s %s\n", tbl, rec, renderValue(records[rec]))
				continue
			}
			fmt.Fprintf(bw, "%s %s\n", tbl, rec)
			for _, field := range sortedKeys(fields) {
				fmt.Fprintf(bw, "    %s %s\n", field, renderValue(fields[field]))
			}
			fmt.Fprintln(bw, "!")
		}
	}
	return bw.Flush()
}

func renderValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	case nil:
		return "none"
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
