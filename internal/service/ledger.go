package service

import (
	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

// Deposit credits amount to one of the customer's accounts.
func (s *CustomerService) Deposit(customerID, accountID int64, amount decimal.Decimal) (*domain.Account, error) {
	s.logger.Info("Processing deposit", "customer_id", customerID, "account_id", accountID, "amount", amount)

	if !amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	var updated *domain.Account
	err := s.store.WithTransaction(func(tx domain.Store) error {
		account, err := s.lockOwnedAccount(tx, customerID, accountID)
		if err != nil {
			return err
		}

		account.Deposit(amount)
		if err := tx.Account().UpdateAccountBalance(account.ID, account.Balance); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Withdraw debits amount from one of the customer's accounts, refusing
// to let the balance go negative.
func (s *CustomerService) Withdraw(customerID, accountID int64, amount decimal.Decimal) (*domain.Account, error) {
	s.logger.Info("Processing withdrawal", "customer_id", customerID, "account_id", accountID, "amount", amount)

	if !amount.IsPositive() {
		return nil, errors.ErrInvalidAmount
	}

	var updated *domain.Account
	err := s.store.WithTransaction(func(tx domain.Store) error {
		account, err := s.lockOwnedAccount(tx, customerID, accountID)
		if err != nil {
			return err
		}

		if err := account.Withdraw(amount); err != nil {
			return err
		}
		if err := tx.Account().UpdateAccountBalance(account.ID, account.Balance); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Transfer moves amount from one of the customer's accounts to any other
// existing account. Identifier and amount validation happen before any
// storage access; both accounts are then locked in ascending-id order,
// regardless of transfer direction, so two concurrent transfers between
// the same pair of accounts cannot deadlock. A failure at any step
// leaves both balances untouched.
func (s *CustomerService) Transfer(customerID, fromAccountID, toAccountID int64, amount decimal.Decimal) error {
	s.logger.Info("Processing transfer",
		"customer_id", customerID,
		"from_account_id", fromAccountID,
		"to_account_id", toAccountID,
		"amount", amount)

	if fromAccountID == toAccountID {
		return errors.ErrInvalidTransferDetails
	}
	if !amount.IsPositive() {
		return errors.ErrInvalidAmount
	}

	err := s.store.WithTransaction(func(tx domain.Store) error {
		customer, err := tx.Customer().GetCustomer(customerID)
		if err != nil {
			return err
		}

		// Only the source must belong to the acting customer; the
		// destination may be any existing account.
		if _, owned := customer.Account(fromAccountID); !owned {
			return errors.ErrAccountNotFound
		}

		first, second := fromAccountID, toAccountID
		if second < first {
			first, second = second, first
		}

		locked := make(map[int64]*domain.Account, 2)
		for _, id := range []int64{first, second} {
			account, err := tx.Account().GetAccountForUpdate(id)
			if err != nil {
				return err
			}
			locked[id] = account
		}

		source := locked[fromAccountID]
		destination := locked[toAccountID]

		if err := source.Withdraw(amount); err != nil {
			return err
		}
		destination.Deposit(amount)

		if err := tx.Account().UpdateAccountBalance(source.ID, source.Balance); err != nil {
			return err
		}
		return tx.Account().UpdateAccountBalance(destination.ID, destination.Balance)
	})
	if err != nil {
		s.logger.Warn("Transfer failed", "customer_id", customerID, "error", err)
		return err
	}

	s.logger.Info("Transfer completed",
		"customer_id", customerID,
		"from_account_id", fromAccountID,
		"to_account_id", toAccountID)
	return nil
}

// lockOwnedAccount re-validates ownership, then takes the exclusive
// account lock. The ownership check is independent of the lock so a
// caller cannot reach another customer's account by guessing its id.
func (s *CustomerService) lockOwnedAccount(tx domain.Store, customerID, accountID int64) (*domain.Account, error) {
	customer, err := tx.Customer().GetCustomer(customerID)
	if err != nil {
		return nil, err
	}
	if _, owned := customer.Account(accountID); !owned {
		return nil, errors.ErrAccountNotFound
	}
	return tx.Account().GetAccountForUpdate(accountID)
}
