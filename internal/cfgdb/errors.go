package cfgdb

// ErrorClassifier lets errors declare a kind the CLI can map to a message.
type ErrorClassifier interface {
	ErrorKind() string
}

type storeError struct {
	kind string
	msg  string
}

func (e *storeError) Error() string     { return e.msg }
func (e *storeError) ErrorKind() string { return e.kind }

var (
	// ErrNotFound means no row of the requested kind exists.
	ErrNotFound error = &storeError{kind: "not_found", msg: "no saved configuration exists"}
	// ErrValidation rejects a write before any transaction is opened.
	ErrValidation error = &storeError{kind: "validation", msg: "invalid config row"}
	// ErrCommitConflict means a commit reported neither success nor unchanged.
	ErrCommitConflict error = &storeError{kind: "commit_conflict", msg: "config row commit failed"}
)
