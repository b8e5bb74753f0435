package memory

import (
	"time"

	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

// transaction is a staging view over the store. Reads see committed
// state plus this transaction's own staged writes; nothing becomes
// visible to other units of work before commit.
type transaction struct {
	store *Store

	held          []int64 // account locks owned by this unit of work
	heldCustomers []int64 // customer locks owned by this unit of work

	balances     map[int64]decimal.Decimal
	newCustomers []*domain.Customer
	delCustomers []int64
	newAccounts  []*domain.Account
	delAccounts  []int64
}

func (tx *transaction) Account() domain.AccountRepository {
	return &txAccounts{tx: tx}
}

func (tx *transaction) Customer() domain.CustomerRepository {
	return &txCustomers{tx: tx}
}

func (tx *transaction) WithTransaction(fn func(domain.Store) error) error {
	return errors.NewAppError(errors.InternalError, "unit of work already in progress")
}

var _ domain.Store = (*transaction)(nil)

func (tx *transaction) holds(id int64) bool {
	for _, held := range tx.held {
		if held == id {
			return true
		}
	}
	return false
}

func (tx *transaction) holdsCustomer(id int64) bool {
	for _, held := range tx.heldCustomers {
		if held == id {
			return true
		}
	}
	return false
}

func (tx *transaction) releaseLocks() {
	for _, id := range tx.held {
		tx.store.locks.release(id)
	}
	tx.held = nil
	for _, id := range tx.heldCustomers {
		tx.store.customerLocks.release(id)
	}
	tx.heldCustomers = nil
}

// commit applies every staged write in one critical section. All staged
// writes are validated against committed state before the first one is
// applied, so a failing commit leaves the store untouched.
func (tx *transaction) commit() error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range tx.newCustomers {
		if _, exists := s.phones[c.PhoneNumber]; exists {
			return errors.ErrCustomerExists
		}
	}
	for _, id := range tx.delAccounts {
		if _, account := s.findAccount(id); account == nil {
			return errors.ErrAccountNotFound
		}
	}
	for _, id := range tx.delCustomers {
		if _, ok := s.customers[id]; !ok {
			return errors.ErrCustomerNotFound
		}
	}
	for _, a := range tx.newAccounts {
		if _, ok := s.customers[a.CustomerID]; !ok && !tx.stagedCustomer(a.CustomerID) {
			return errors.ErrCustomerNotFound
		}
	}

	now := time.Now()
	for id, balance := range tx.balances {
		if _, account := s.findAccount(id); account != nil {
			account.Balance = balance
			account.UpdatedAt = now
		}
	}
	for _, id := range tx.delAccounts {
		if err := s.removeAccount(id); err != nil {
			return err
		}
	}
	for _, id := range tx.delCustomers {
		if err := s.removeCustomer(id); err != nil {
			return err
		}
	}
	for _, c := range tx.newCustomers {
		if err := s.insertCustomer(c); err != nil {
			return err
		}
	}
	for _, a := range tx.newAccounts {
		if err := s.insertAccount(a); err != nil {
			return err
		}
	}
	return nil
}

type txAccounts struct {
	tx *transaction
}

func (r *txAccounts) GetAccount(id int64) (*domain.Account, error) {
	return r.tx.readAccount(id)
}

func (r *txAccounts) GetAccountForUpdate(id int64) (*domain.Account, error) {
	tx := r.tx

	acquired := false
	if !tx.holds(id) {
		if err := tx.store.locks.acquire(id, tx.store.lockTimeout); err != nil {
			return nil, err
		}
		tx.held = append(tx.held, id)
		acquired = true
	}

	account, err := tx.readAccount(id)
	if err != nil {
		// Nothing to protect; release now rather than at the end of the
		// unit of work so a failed lookup does not keep the id locked.
		if acquired {
			tx.store.locks.release(id)
			tx.held = tx.held[:len(tx.held)-1]
		}
		return nil, err
	}
	return account, nil
}

func (r *txAccounts) CreateAccount(account *domain.Account) error {
	tx := r.tx

	tx.store.mu.Lock()
	_, ok := tx.store.customers[account.CustomerID]
	if account.ID == 0 {
		tx.store.nextAccount++
		account.ID = tx.store.nextAccount
	}
	tx.store.mu.Unlock()

	if !ok && !tx.stagedCustomer(account.CustomerID) {
		return errors.ErrCustomerNotFound
	}

	tx.newAccounts = append(tx.newAccounts, account)
	return nil
}

func (r *txAccounts) UpdateAccountBalance(id int64, newBalance decimal.Decimal) error {
	tx := r.tx

	if _, err := tx.readAccount(id); err != nil {
		return err
	}
	tx.balances[id] = newBalance
	return nil
}

func (r *txAccounts) DeleteAccount(id int64) error {
	tx := r.tx

	if _, err := tx.readAccount(id); err != nil {
		return err
	}
	tx.delAccounts = append(tx.delAccounts, id)
	return nil
}

// readAccount returns a copy of the committed account with this
// transaction's staged balance applied.
func (tx *transaction) readAccount(id int64) (*domain.Account, error) {
	tx.store.mu.RLock()
	_, account := tx.store.findAccount(id)
	var cp domain.Account
	if account != nil {
		cp = *account
	}
	tx.store.mu.RUnlock()

	if account == nil {
		return nil, errors.ErrAccountNotFound
	}
	if staged, ok := tx.balances[id]; ok {
		cp.Balance = staged
	}
	return &cp, nil
}

func (tx *transaction) stagedCustomer(id int64) bool {
	for _, c := range tx.newCustomers {
		if c.ID == id {
			return true
		}
	}
	return false
}

type txCustomers struct {
	tx *transaction
}

func (r *txCustomers) CreateCustomer(customer *domain.Customer) error {
	tx := r.tx

	tx.store.mu.Lock()
	if customer.ID == 0 {
		tx.store.nextCustomer++
		customer.ID = tx.store.nextCustomer
	}
	for i := range customer.Accounts {
		if customer.Accounts[i].ID == 0 {
			tx.store.nextAccount++
			customer.Accounts[i].ID = tx.store.nextAccount
		}
		customer.Accounts[i].CustomerID = customer.ID
	}
	_, exists := tx.store.phones[customer.PhoneNumber]
	tx.store.mu.Unlock()

	if exists {
		return errors.ErrCustomerExists
	}

	tx.newCustomers = append(tx.newCustomers, customer)
	return nil
}

func (r *txCustomers) GetCustomer(id int64) (*domain.Customer, error) {
	tx := r.tx

	tx.store.mu.RLock()
	stored, ok := tx.store.customers[id]
	var customer *domain.Customer
	if ok {
		customer = cloneCustomer(stored)
	}
	tx.store.mu.RUnlock()

	if customer == nil {
		return nil, errors.ErrCustomerNotFound
	}
	for i := range customer.Accounts {
		if staged, okStaged := tx.balances[customer.Accounts[i].ID]; okStaged {
			customer.Accounts[i].Balance = staged
		}
	}
	return customer, nil
}

func (r *txCustomers) GetCustomerForUpdate(id int64) (*domain.Customer, error) {
	tx := r.tx

	acquired := false
	if !tx.holdsCustomer(id) {
		if err := tx.store.customerLocks.acquire(id, tx.store.lockTimeout); err != nil {
			return nil, err
		}
		tx.heldCustomers = append(tx.heldCustomers, id)
		acquired = true
	}

	customer, err := r.GetCustomer(id)
	if err != nil {
		if acquired {
			tx.store.customerLocks.release(id)
			tx.heldCustomers = tx.heldCustomers[:len(tx.heldCustomers)-1]
		}
		return nil, err
	}
	return customer, nil
}

func (r *txCustomers) GetCustomerByPhone(phoneNumber string) (*domain.Customer, error) {
	tx := r.tx

	tx.store.mu.RLock()
	id, ok := tx.store.phones[phoneNumber]
	tx.store.mu.RUnlock()

	if !ok {
		return nil, errors.ErrCustomerNotFound
	}
	return r.GetCustomer(id)
}

func (r *txCustomers) ListCustomers(page domain.PageRequest) (*domain.CustomerPage, error) {
	return (&directCustomers{store: r.tx.store}).ListCustomers(page)
}

func (r *txCustomers) DeleteCustomer(id int64) error {
	tx := r.tx

	if _, err := r.GetCustomer(id); err != nil {
		return err
	}
	tx.delCustomers = append(tx.delCustomers, id)
	return nil
}
