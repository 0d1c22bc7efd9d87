package datastore

import "errors"

var (
	// ErrColumnAccess reports a read or write of a column name the result
	// set does not carry. The column set is fixed for a ResultSet's lifetime.
	ErrColumnAccess = errors.New("datastore: unknown column")

	// ErrNestedTx reports Begin while a transaction is already open.
	ErrNestedTx = errors.New("datastore: transaction already open")

	// ErrTxDone reports use of a transaction after Commit or Rollback.
	ErrTxDone = errors.New("datastore: transaction finished")

	// ErrClosed reports use of a result set after Close.
	ErrClosed = errors.New("datastore: result set closed")

	// ErrNoCursor reports row iteration on a statement that returned no
	// cursor (writes, or a query whose execution failed).
	ErrNoCursor = errors.New("datastore: no cursor")
)
