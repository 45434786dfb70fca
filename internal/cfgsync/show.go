package cfgsync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cfgd/internal/cfgdb"
	"cfgd/internal/dbconn"
	"cfgd/internal/poller"
	"cfgd/internal/runconfig"
)

// ShowRequest selects what Show prints.
type ShowRequest struct {
	Kind    string
	Format  Format
	Details bool
}

// Show prints the saved configuration of req.Kind.
func (w *Workflows) Show(ctx context.Context, req ShowRequest) error {
	if req.Kind != cfgdb.KindStartup {
		return fmt.Errorf("%w: only %s can be shown", ErrUnknownConfig, StartupConfig)
	}
	format := req.Format
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatCLI {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	row, doc, err := w.loadStartup(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(w.out, "Startup configuration:")
	if req.Details {
		fmt.Fprintln(w.out, renderDetails(row))
	}
	if format == FormatCLI {
		return w.renderCLI(ctx, doc)
	}
	text, err := runconfig.EncodeIndent(doc)
	if err != nil {
		return err
	}
	fmt.Fprintln(w.out, text)
	return nil
}

// renderCLI replays doc into a scratch running-config database and renders
// it from there.
func (w *Workflows) renderCLI(ctx context.Context, doc runconfig.Document) error {
	dir, err := os.MkdirTemp("", "cfgdbutil-")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	conn, err := dbconn.Open(ctx, dbconn.Options{
		Path:   filepath.Join(dir, "scratch.db"),
		Tables: []string{runconfig.TableName},
		Create: true,
		Logger: w.logger,
	})
	if err != nil {
		return fmt.Errorf("open scratch database: %w", err)
	}
	defer conn.Close()

	if err := conn.EnsureSchema(ctx, runconfig.Schema); err != nil {
		return err
	}
	if err := conn.AwaitSync(ctx, poller.Bounded(5, 0)); err != nil {
		return fmt.Errorf("sync scratch database: %w", err)
	}
	if _, err := runconfig.NewTranslator(conn).Write(ctx, doc); err != nil {
		return fmt.Errorf("replay configuration: %w", err)
	}
	return runconfig.Render(ctx, conn, w.out)
}

func renderDetails(row *cfgdb.Row) string {
	title := cases.Title(language.English)
	fields := []struct {
		label string
		value *string
	}{
		{"name", row.Name},
		{"writer", row.Writer},
		{"date", row.Date},
		{"hardware", row.Hardware},
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Field", "Value"})
	tw.AppendRow(table.Row{"UUID", row.UUID})
	for _, f := range fields {
		value := "-"
		if f.value != nil && *f.value != "" {
			value = *f.value
		}
		tw.AppendRow(table.Row{title.String(f.label), value})
	}
	tw.AppendRow(table.Row{"Size", strconv.Itoa(len(row.Payload)) + " bytes"})
	return tw.Render()
}
