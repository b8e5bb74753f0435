package repository

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

// Store provides a unified interface for all repository operations with
// transaction support.
type Store struct {
	executor    SQLExecutor
	lockTimeout time.Duration
	logger      *slog.Logger
}

// NewStore creates a new Store instance. lockTimeout bounds every
// SELECT ... FOR UPDATE issued inside a unit of work.
func NewStore(db *sql.DB, lockTimeout time.Duration, logger *slog.Logger) *Store {
	return &Store{
		executor:    db,
		lockTimeout: lockTimeout,
		logger:      logger,
	}
}

// Account returns an AccountRepository using the current executor
func (s *Store) Account() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.logger)
}

// Customer returns a CustomerRepository using the current executor
func (s *Store) Customer() domain.CustomerRepository {
	return NewCustomerRepository(s.executor, s.logger)
}

// WithTransaction executes a function within a database transaction
func (s *Store) WithTransaction(fn func(domain.Store) error) error {
	// Only sql.DB can begin transactions
	db, ok := s.executor.(*sql.DB)
	if !ok {
		return errors.NewAppError(errors.InternalError, "unit of work already in progress")
	}

	tx, err := db.Begin()
	if err != nil {
		return translateError(err, "failed to begin transaction")
	}

	// Bound every row lock taken inside this transaction. SET LOCAL does
	// not accept bind parameters; the value is a trusted duration.
	if _, err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())); err != nil {
		tx.Rollback()
		return translateError(err, "failed to set lock timeout")
	}

	txStore := &Store{
		executor:    &TxWrapper{Tx: tx},
		lockTimeout: s.lockTimeout,
		logger:      s.logger,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return translateError(err, "failed to commit transaction")
	}
	return nil
}

var _ domain.Store = (*Store)(nil)
