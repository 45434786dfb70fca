package runconfig

import (
	"context"

	"cfgd/internal/dbconn"
)

// Translator binds Read and Write to one running-config connection.
type Translator struct {
	conn *dbconn.Conn
}

func NewTranslator(conn *dbconn.Conn) *Translator {
	return &Translator{conn: conn}
}

func (t *Translator) Read(ctx context.Context) (Document, error) {
	return Read(ctx, t.conn)
}

func (t *Translator) Write(ctx context.Context, doc Document) (dbconn.TxnStatus, error) {
	return Write(ctx, t.conn, doc)
}
