// Package memory implements the storage contracts over plain maps with a
// per-account lock table. It backs the service in tests and in
// single-process deployments that run without Postgres.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

// Store keeps all committed state behind one RWMutex; exclusive account
// locks live in a separate lock table so that units of work touching
// disjoint accounts proceed in parallel.
type Store struct {
	mu           sync.RWMutex
	customers    map[int64]*domain.Customer
	accountOwner map[int64]int64 // account id -> customer id
	phones       map[string]int64
	nextCustomer int64
	nextAccount  int64

	locks         *lockTable
	customerLocks *lockTable
	lockTimeout   time.Duration
}

func NewStore(lockTimeout time.Duration) *Store {
	return &Store{
		customers:     make(map[int64]*domain.Customer),
		accountOwner:  make(map[int64]int64),
		phones:        make(map[string]int64),
		locks:         newLockTable(),
		customerLocks: newLockTable(),
		lockTimeout:   lockTimeout,
	}
}

func (s *Store) Account() domain.AccountRepository {
	return &directAccounts{store: s}
}

func (s *Store) Customer() domain.CustomerRepository {
	return &directCustomers{store: s}
}

// WithTransaction runs fn against a staging view. Writes are buffered
// and applied to the committed maps in one critical section; account
// locks taken through the view are released when the unit of work ends,
// whether it commits or rolls back.
func (s *Store) WithTransaction(fn func(domain.Store) error) error {
	tx := &transaction{
		store:    s,
		balances: make(map[int64]decimal.Decimal),
	}
	defer tx.releaseLocks()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

var _ domain.Store = (*Store)(nil)

// committed-state helpers; callers hold s.mu.

func (s *Store) findAccount(id int64) (*domain.Customer, *domain.Account) {
	ownerID, ok := s.accountOwner[id]
	if !ok {
		return nil, nil
	}
	owner := s.customers[ownerID]
	for i := range owner.Accounts {
		if owner.Accounts[i].ID == id {
			return owner, &owner.Accounts[i]
		}
	}
	return nil, nil
}

func cloneCustomer(c *domain.Customer) *domain.Customer {
	cp := *c
	cp.Accounts = make([]domain.Account, len(c.Accounts))
	copy(cp.Accounts, c.Accounts)
	return &cp
}

// directAccounts serves reads against committed state. Mutations outside
// a unit of work are not part of any service flow; they apply
// immediately under the structural lock.
type directAccounts struct {
	store *Store
}

func (r *directAccounts) GetAccount(id int64) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	_, account := r.store.findAccount(id)
	if account == nil {
		return nil, errors.ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

func (r *directAccounts) GetAccountForUpdate(id int64) (*domain.Account, error) {
	// Exclusive acquisition only makes sense inside a unit of work,
	// where the lock is held until commit or rollback.
	return nil, errors.NewAppError(errors.InternalError, "exclusive account access requires a unit of work")
}

func (r *directAccounts) CreateAccount(account *domain.Account) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.insertAccount(account)
}

func (r *directAccounts) UpdateAccountBalance(id int64, newBalance decimal.Decimal) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, account := r.store.findAccount(id)
	if account == nil {
		return errors.ErrAccountNotFound
	}
	account.Balance = newBalance
	account.UpdatedAt = time.Now()
	return nil
}

func (r *directAccounts) DeleteAccount(id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.removeAccount(id)
}

type directCustomers struct {
	store *Store
}

func (r *directCustomers) CreateCustomer(customer *domain.Customer) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.insertCustomer(customer)
}

func (r *directCustomers) GetCustomer(id int64) (*domain.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	customer, ok := r.store.customers[id]
	if !ok {
		return nil, errors.ErrCustomerNotFound
	}
	return cloneCustomer(customer), nil
}

func (r *directCustomers) GetCustomerForUpdate(id int64) (*domain.Customer, error) {
	// Exclusive acquisition only makes sense inside a unit of work,
	// where the lock is held until commit or rollback.
	return nil, errors.NewAppError(errors.InternalError, "exclusive customer access requires a unit of work")
}

func (r *directCustomers) GetCustomerByPhone(phoneNumber string) (*domain.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	id, ok := r.store.phones[phoneNumber]
	if !ok {
		return nil, errors.ErrCustomerNotFound
	}
	return cloneCustomer(r.store.customers[id]), nil
}

func (r *directCustomers) ListCustomers(page domain.PageRequest) (*domain.CustomerPage, error) {
	page = page.Normalize()

	// Snapshot clones before unlocking; a concurrent commit rewrites
	// balances and account slices of the stored structs in place.
	r.store.mu.RLock()
	all := make([]*domain.Customer, 0, len(r.store.customers))
	for _, c := range r.store.customers {
		all = append(all, cloneCustomer(c))
	}
	r.store.mu.RUnlock()

	switch page.SortKey {
	case "id":
		sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	case "name":
		sort.Slice(all, func(i, j int) bool {
			if eq := strings.Compare(all[i].Name, all[j].Name); eq != 0 {
				return eq < 0
			}
			return all[i].ID < all[j].ID
		})
	case "created_at":
		sort.Slice(all, func(i, j int) bool {
			if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
				return all[i].CreatedAt.Before(all[j].CreatedAt)
			}
			return all[i].ID < all[j].ID
		})
	default:
		return nil, errors.NewAppErrorf(errors.InvalidInput, "unknown sort key %q", page.SortKey)
	}

	result := &domain.CustomerPage{
		Customers: []domain.Customer{},
		Page:      page.Page,
		Size:      page.Size,
		Total:     int64(len(all)),
	}

	start := page.Offset()
	for i := start; i < len(all) && i < start+page.Size; i++ {
		result.Customers = append(result.Customers, *all[i])
	}
	return result, nil
}

func (r *directCustomers) DeleteCustomer(id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.removeCustomer(id)
}

// mutation primitives; callers hold s.mu exclusively.

func (s *Store) insertCustomer(customer *domain.Customer) error {
	if _, exists := s.phones[customer.PhoneNumber]; exists {
		return errors.ErrCustomerExists
	}

	now := time.Now()
	if customer.ID == 0 {
		s.nextCustomer++
		customer.ID = s.nextCustomer
	}
	customer.CreatedAt = now
	customer.UpdatedAt = now

	stored := cloneCustomer(customer)
	for i := range stored.Accounts {
		if stored.Accounts[i].ID == 0 {
			s.nextAccount++
			stored.Accounts[i].ID = s.nextAccount
		}
		stored.Accounts[i].CustomerID = stored.ID
		stored.Accounts[i].CreatedAt = now
		stored.Accounts[i].UpdatedAt = now
		s.accountOwner[stored.Accounts[i].ID] = stored.ID
	}

	s.customers[stored.ID] = stored
	s.phones[stored.PhoneNumber] = stored.ID

	// Reflect assigned ids back to the caller.
	customer.Accounts = make([]domain.Account, len(stored.Accounts))
	copy(customer.Accounts, stored.Accounts)
	return nil
}

func (s *Store) insertAccount(account *domain.Account) error {
	owner, ok := s.customers[account.CustomerID]
	if !ok {
		return errors.ErrCustomerNotFound
	}

	now := time.Now()
	if account.ID == 0 {
		s.nextAccount++
		account.ID = s.nextAccount
	}
	account.CreatedAt = now
	account.UpdatedAt = now

	owner.Accounts = append(owner.Accounts, *account)
	s.accountOwner[account.ID] = owner.ID
	return nil
}

func (s *Store) removeAccount(id int64) error {
	owner, account := s.findAccount(id)
	if account == nil {
		return errors.ErrAccountNotFound
	}

	kept := owner.Accounts[:0]
	for _, a := range owner.Accounts {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	owner.Accounts = kept
	delete(s.accountOwner, id)
	return nil
}

func (s *Store) removeCustomer(id int64) error {
	customer, ok := s.customers[id]
	if !ok {
		return errors.ErrCustomerNotFound
	}

	for _, a := range customer.Accounts {
		delete(s.accountOwner, a.ID)
	}
	delete(s.phones, customer.PhoneNumber)
	delete(s.customers, id)
	return nil
}
