package history

import "errors"

// ErrNilDB is returned when a repository is built without a database.
var ErrNilDB = errors.New("history: database is nil")
