package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"banking-ledger/internal/errors"
)

type Account struct {
	ID         int64           `json:"account_id"`
	CustomerID int64           `json:"customer_id"`
	Balance    decimal.Decimal `json:"balance"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Deposit increases the balance by amount. The caller validates that
// amount is positive before reaching the entity.
func (a *Account) Deposit(amount decimal.Decimal) {
	a.Balance = a.Balance.Add(amount)
}

// Withdraw decreases the balance by amount, refusing to let it go
// negative.
func (a *Account) Withdraw(amount decimal.Decimal) error {
	if a.Balance.LessThan(amount) {
		return errors.ErrInsufficientBalance
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

type AccountRepository interface {
	CreateAccount(account *Account) error
	GetAccount(id int64) (*Account, error)
	// GetAccountForUpdate acquires the exclusive per-account lock before
	// returning the record. It blocks other exclusive acquirers of the
	// same id until the surrounding unit of work ends, and fails with a
	// lock_timeout error once the configured bound is exceeded.
	GetAccountForUpdate(id int64) (*Account, error)
	UpdateAccountBalance(id int64, newBalance decimal.Decimal) error
	DeleteAccount(id int64) error
}
