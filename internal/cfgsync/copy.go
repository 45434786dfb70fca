package cfgsync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cfgd/internal/cfgdb"
	"cfgd/internal/dbconn"
	"cfgd/internal/logging"
	"cfgd/internal/runconfig"
)

// Copy dispatches a copy between two config names. Only running-config to
// startup-config and the reverse are legal.
func (w *Workflows) Copy(ctx context.Context, src, dst string) error {
	from, err := KindForName(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedCopy, err)
	}
	to, err := KindForName(dst)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedCopy, err)
	}
	switch {
	case from == KindRunning && to == cfgdb.KindStartup:
		return w.CopyRunningToStartup(ctx)
	case from == cfgdb.KindStartup && to == KindRunning:
		return w.CopyStartupToRunning(ctx)
	default:
		return fmt.Errorf("%w: cannot copy %s to %s", ErrUnsupportedCopy, src, dst)
	}
}

// CopyRunningToStartup saves the running configuration as the startup row,
// updating the existing row when there is one.
func (w *Workflows) CopyRunningToStartup(ctx context.Context) error {
	running, err := w.openRunning(ctx)
	if err != nil {
		return err
	}
	defer running.Close()

	doc, err := runconfig.NewTranslator(running).Read(ctx)
	if err != nil {
		return fmt.Errorf("read running configuration: %w", err)
	}
	payload, err := runconfig.Encode(doc)
	if err != nil {
		return err
	}

	store, err := w.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	fields := cfgdb.RowFields{
		Kind:    cfgdb.KindStartup,
		Payload: &payload,
		Writer:  cfgdb.StringPtr(WriterName),
		Date:    cfgdb.StringPtr(w.now().UTC().Format(time.RFC3339)),
	}
	if host := hostname(doc); host != "" {
		fields.Hardware = &host
	}

	updated, status, err := w.saveStartup(ctx, store, fields)
	if err != nil {
		return fmt.Errorf("save startup configuration: %w", err)
	}
	w.logger.Info("running configuration saved",
		logging.String(logging.FieldKind, cfgdb.KindStartup),
		logging.Bool("updated", updated),
		logging.String("status", status.String()),
		logging.Int("bytes", len(payload)))
	return nil
}

// saveStartup updates the startup row or inserts one. An update that changes
// nothing means the row disappeared after it was found, so it is inserted
// instead. Anything short of a successful commit is an error.
func (w *Workflows) saveStartup(ctx context.Context, store *cfgdb.Store, fields cfgdb.RowFields) (bool, dbconn.TxnStatus, error) {
	existing, found, err := store.FindByKind(ctx, cfgdb.KindStartup)
	if err != nil {
		return false, dbconn.TxnError, err
	}
	return w.writeStartup(ctx, store, existing, found, fields)
}

func (w *Workflows) writeStartup(ctx context.Context, store *cfgdb.Store, existing *cfgdb.Row, found bool, fields cfgdb.RowFields) (bool, dbconn.TxnStatus, error) {
	if found {
		_, status, err := store.Update(ctx, existing, fields)
		if err != nil {
			return false, status, err
		}
		if status == dbconn.TxnSuccess {
			return true, status, nil
		}
		w.logger.Debug("startup row vanished before update, inserting",
			logging.String("uuid", existing.UUID))
	}
	_, status, err := store.Insert(ctx, fields)
	if err != nil {
		return false, status, err
	}
	if status != dbconn.TxnSuccess {
		return false, status, fmt.Errorf("%w: insert reported %s", cfgdb.ErrCommitConflict, status)
	}
	return false, status, nil
}

// CopyStartupToRunning writes the saved startup configuration into the
// running database.
func (w *Workflows) CopyStartupToRunning(ctx context.Context) error {
	_, doc, err := w.loadStartup(ctx)
	if err != nil {
		return err
	}

	running, err := w.openRunning(ctx)
	if err != nil {
		return err
	}
	defer running.Close()

	status, err := runconfig.NewTranslator(running).Write(ctx, doc)
	if err != nil {
		return fmt.Errorf("write running configuration: %w", err)
	}
	w.logger.Info("startup configuration applied", logging.String("status", status.String()))
	return nil
}

// Delete removes the saved row of the given kind and prints the commit
// status.
func (w *Workflows) Delete(ctx context.Context, kind string) error {
	store, err := w.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	status, found, err := store.DeleteByKind(ctx, kind)
	if err != nil {
		return fmt.Errorf("delete %s row: %w", kind, err)
	}
	if !found {
		return ErrNotFound
	}
	fmt.Fprintf(w.out, "Delete %s row status : %s\n", kind, status)
	return nil
}

func hostname(doc runconfig.Document) string {
	if v, ok := doc["hostname"].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
