package service

import (
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

// CustomerService enforces every balance and ownership invariant over
// the customer and account stores. Each mutating operation runs inside
// one unit of work: all of its changes commit together or none do.
type CustomerService struct {
	store  domain.Store
	logger *slog.Logger
}

func NewCustomerService(store domain.Store, logger *slog.Logger) *CustomerService {
	return &CustomerService{
		store:  store,
		logger: logger,
	}
}

type NewCustomerRequest struct {
	Kind           domain.CustomerKind
	Name           string
	SecondaryName  string
	PhoneNumber    string
	InitialBalance decimal.Decimal
}

// CreateCustomer registers a customer with exactly one account holding
// the initial balance. The phone number is the duplicate-detection key.
func (s *CustomerService) CreateCustomer(req NewCustomerRequest) (*domain.Customer, error) {
	s.logger.Info("Creating customer", "kind", req.Kind, "phone_number", req.PhoneNumber)

	if !req.Kind.Valid() {
		return nil, errors.NewAppErrorf(errors.InvalidInput, "unknown customer kind %q", req.Kind)
	}
	if req.Name == "" || req.PhoneNumber == "" {
		return nil, errors.NewAppError(errors.InvalidInput, "name and phone number are required")
	}
	if req.InitialBalance.IsNegative() {
		return nil, errors.ErrInvalidAmount
	}

	var customer *domain.Customer
	if req.Kind == domain.KindIndividual {
		customer = domain.NewIndividual(req.Name, req.SecondaryName, req.PhoneNumber)
	} else {
		customer = domain.NewOrganization(req.Name, req.SecondaryName, req.PhoneNumber)
	}
	customer.Accounts = []domain.Account{{Balance: req.InitialBalance}}

	err := s.store.WithTransaction(func(tx domain.Store) error {
		_, err := tx.Customer().GetCustomerByPhone(req.PhoneNumber)
		if err == nil {
			return errors.ErrCustomerExists
		}
		if appErr, ok := errors.AsAppError(err); !ok || appErr.Code != errors.CustomerNotFound {
			return err
		}

		return tx.Customer().CreateCustomer(customer)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Customer created", "customer_id", customer.ID)
	return customer, nil
}

func (s *CustomerService) ListCustomers(page domain.PageRequest) (*domain.CustomerPage, error) {
	return s.store.Customer().ListCustomers(page)
}

func (s *CustomerService) FindCustomer(customerID int64) (*domain.Customer, error) {
	return s.store.Customer().GetCustomer(customerID)
}

// DeleteCustomer removes the customer and every account it owns. It is
// rejected while any owned account holds a positive balance. The
// customer is locked first so the account set cannot grow under the
// delete, then every account so a concurrent deposit cannot slip in
// between the balance check and the delete.
func (s *CustomerService) DeleteCustomer(customerID int64) error {
	s.logger.Info("Deleting customer", "customer_id", customerID)

	return s.store.WithTransaction(func(tx domain.Store) error {
		customer, err := tx.Customer().GetCustomerForUpdate(customerID)
		if err != nil {
			return err
		}

		for _, id := range sortedAccountIDs(customer.Accounts) {
			account, err := tx.Account().GetAccountForUpdate(id)
			if err != nil {
				return err
			}
			if account.Balance.IsPositive() {
				return errors.ErrCustomerHasBalance
			}
		}

		return tx.Customer().DeleteCustomer(customerID)
	})
}

// AddAccount opens an additional account for the customer.
func (s *CustomerService) AddAccount(customerID int64, initialBalance decimal.Decimal) (*domain.Account, error) {
	s.logger.Info("Adding account", "customer_id", customerID, "initial_balance", initialBalance)

	if initialBalance.IsNegative() {
		return nil, errors.ErrInvalidAmount
	}

	account := &domain.Account{
		CustomerID: customerID,
		Balance:    initialBalance,
	}

	err := s.store.WithTransaction(func(tx domain.Store) error {
		// Lock the customer so the new account cannot materialize under
		// a concurrent customer delete.
		if _, err := tx.Customer().GetCustomerForUpdate(customerID); err != nil {
			return err
		}
		return tx.Account().CreateAccount(account)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *CustomerService) ListAccounts(customerID int64) ([]domain.Account, error) {
	customer, err := s.store.Customer().GetCustomer(customerID)
	if err != nil {
		return nil, err
	}
	return customer.Accounts, nil
}

// RemoveAccount closes one of the customer's accounts. The customer must
// keep at least one account, and the account must be empty. The customer
// lock keeps the last-account check stable against concurrent removals.
func (s *CustomerService) RemoveAccount(customerID, accountID int64) error {
	s.logger.Info("Removing account", "customer_id", customerID, "account_id", accountID)

	return s.store.WithTransaction(func(tx domain.Store) error {
		customer, err := tx.Customer().GetCustomerForUpdate(customerID)
		if err != nil {
			return err
		}

		if len(customer.Accounts) == 1 {
			return errors.ErrLastAccount
		}
		if _, owned := customer.Account(accountID); !owned {
			return errors.ErrAccountNotFound
		}

		account, err := tx.Account().GetAccountForUpdate(accountID)
		if err != nil {
			return err
		}
		if account.Balance.IsPositive() {
			return errors.ErrAccountHasBalance
		}

		return tx.Account().DeleteAccount(accountID)
	})
}

// sortedAccountIDs returns the account ids in ascending order, the
// global lock-acquisition order used by every multi-account operation.
func sortedAccountIDs(accounts []domain.Account) []int64 {
	ids := make([]int64, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
