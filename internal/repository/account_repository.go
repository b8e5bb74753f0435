package repository

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

type accountRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *accountRepository) CreateAccount(account *domain.Account) error {
	query := `
		INSERT INTO accounts (customer_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRow(
		query,
		account.CustomerID,
		account.Balance.String(),
		now,
		now,
	).Scan(&account.ID)

	if err != nil {
		r.logger.Error("Failed to create account", "customer_id", account.CustomerID, "error", err)
		return translateError(err, "failed to create account")
	}

	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

func (r *accountRepository) GetAccount(id int64) (*domain.Account, error) {
	query := `
		SELECT id, customer_id, balance, created_at, updated_at
		FROM accounts WHERE id = $1
	`

	return r.scanAccount(query, id)
}

// GetAccountForUpdate takes the row lock that serializes every
// balance-mutating operation on this account. The wait is bounded by the
// transaction's lock_timeout; exceeding it surfaces as lock_timeout.
func (r *accountRepository) GetAccountForUpdate(id int64) (*domain.Account, error) {
	query := `
		SELECT id, customer_id, balance, created_at, updated_at
		FROM accounts WHERE id = $1 FOR UPDATE
	`

	return r.scanAccount(query, id)
}

func (r *accountRepository) scanAccount(query string, id int64) (*domain.Account, error) {
	var account domain.Account
	var balanceStr string

	err := r.db.QueryRow(query, id).Scan(
		&account.ID,
		&account.CustomerID,
		&balanceStr,
		&account.CreatedAt,
		&account.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account", "account_id", id, "error", err)
		return nil, translateError(err, "failed to get account")
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		r.logger.Error("Failed to parse balance", "account_id", id, "balance_str", balanceStr, "error", err)
		return nil, errors.NewAppError(errors.InternalError, "failed to parse balance").WithDetails(err.Error())
	}

	account.Balance = balance
	return &account, nil
}

func (r *accountRepository) UpdateAccountBalance(id int64, newBalance decimal.Decimal) error {
	query := `
		UPDATE accounts
		SET balance = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.db.Exec(query, newBalance.String(), time.Now(), id)
	if err != nil {
		r.logger.Error("Failed to update account balance", "account_id", id, "error", err)
		return translateError(err, "failed to update account balance")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	if rowsAffected == 0 {
		return errors.ErrAccountNotFound
	}

	return nil
}

func (r *accountRepository) DeleteAccount(id int64) error {
	result, err := r.db.Exec(`DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete account", "account_id", id, "error", err)
		return translateError(err, "failed to delete account")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	if rowsAffected == 0 {
		return errors.ErrAccountNotFound
	}

	return nil
}
