package repository

import (
	"database/sql"
	"database/sql/driver"
	goerrors "errors"

	"github.com/lib/pq"

	"banking-ledger/internal/errors"
)

// SQLExecutor represents both sql.DB and sql.Tx
type SQLExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// DB represents a database that can begin transactions
type DB interface {
	SQLExecutor
	Begin() (*sql.Tx, error)
}

// Ensure sql.DB implements DB interface
var _ DB = (*sql.DB)(nil)

// TxWrapper wraps sql.Tx to implement SQLExecutor
type TxWrapper struct {
	*sql.Tx
}

func (t *TxWrapper) Exec(query string, args ...interface{}) (sql.Result, error) {
	return t.Tx.Exec(query, args...)
}

func (t *TxWrapper) Query(query string, args ...interface{}) (*sql.Rows, error) {
	return t.Tx.Query(query, args...)
}

func (t *TxWrapper) QueryRow(query string, args ...interface{}) *sql.Row {
	return t.Tx.QueryRow(query, args...)
}

// translateError maps low-level database failures onto the application
// error taxonomy. Lock waits that exceed lock_timeout become
// lock_timeout, connection-class failures become storage_unavailable,
// anything else is an internal error carrying the driver message.
func translateError(err error, message string) error {
	var pqErr *pq.Error
	if goerrors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "55P03": // lock_not_available
			return errors.ErrLockTimeout
		case pqErr.Code.Class() == "08": // connection exception
			return errors.NewAppError(errors.StorageUnavailable, "storage unavailable").WithDetails(pqErr.Message)
		}
	}
	if goerrors.Is(err, driver.ErrBadConn) {
		return errors.NewAppError(errors.StorageUnavailable, "storage unavailable").WithDetails(err.Error())
	}
	return errors.NewAppError(errors.InternalError, message).WithDetails(err.Error())
}
