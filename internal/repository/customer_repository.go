package repository

import (
	"database/sql"
	goerrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
)

type customerRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewCustomerRepository(db SQLExecutor, logger *slog.Logger) domain.CustomerRepository {
	return &customerRepository{
		db:     db,
		logger: logger,
	}
}

// sortColumns whitelists the keys a caller may sort listings by.
var sortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"created_at": "created_at",
}

func (r *customerRepository) CreateCustomer(customer *domain.Customer) error {
	query := `
		INSERT INTO customers (kind, name, secondary_name, phone_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	now := time.Now()
	err := r.db.QueryRow(
		query,
		string(customer.Kind),
		customer.Name,
		customer.SecondaryName,
		customer.PhoneNumber,
		now,
		now,
	).Scan(&customer.ID)

	if err != nil {
		var pqErr *pq.Error
		if goerrors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation on phone_number
			r.logger.Warn("Duplicate customer creation attempt", "phone_number", customer.PhoneNumber)
			return errors.ErrCustomerExists
		}
		r.logger.Error("Failed to create customer", "error", err)
		return translateError(err, "failed to create customer")
	}

	customer.CreatedAt = now
	customer.UpdatedAt = now

	accountRepo := NewAccountRepository(r.db, r.logger)
	for i := range customer.Accounts {
		customer.Accounts[i].CustomerID = customer.ID
		if err := accountRepo.CreateAccount(&customer.Accounts[i]); err != nil {
			return err
		}
	}

	return nil
}

func (r *customerRepository) GetCustomer(id int64) (*domain.Customer, error) {
	query := `
		SELECT id, kind, name, secondary_name, phone_number, created_at, updated_at
		FROM customers WHERE id = $1
	`

	customer, err := r.scanCustomer(r.db.QueryRow(query, id))
	if err != nil {
		return nil, err
	}

	if err := r.loadAccounts(customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (r *customerRepository) GetCustomerForUpdate(id int64) (*domain.Customer, error) {
	query := `
		SELECT id, kind, name, secondary_name, phone_number, created_at, updated_at
		FROM customers WHERE id = $1
		FOR UPDATE
	`

	customer, err := r.scanCustomer(r.db.QueryRow(query, id))
	if err != nil {
		return nil, err
	}

	if err := r.loadAccounts(customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (r *customerRepository) GetCustomerByPhone(phoneNumber string) (*domain.Customer, error) {
	query := `
		SELECT id, kind, name, secondary_name, phone_number, created_at, updated_at
		FROM customers WHERE phone_number = $1
	`

	customer, err := r.scanCustomer(r.db.QueryRow(query, phoneNumber))
	if err != nil {
		return nil, err
	}

	if err := r.loadAccounts(customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (r *customerRepository) ListCustomers(page domain.PageRequest) (*domain.CustomerPage, error) {
	page = page.Normalize()

	column, ok := sortColumns[page.SortKey]
	if !ok {
		return nil, errors.NewAppErrorf(errors.InvalidInput, "unknown sort key %q", page.SortKey)
	}

	var total int64
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM customers`).Scan(&total); err != nil {
		r.logger.Error("Failed to count customers", "error", err)
		return nil, translateError(err, "failed to list customers")
	}

	query := fmt.Sprintf(`
		SELECT id, kind, name, secondary_name, phone_number, created_at, updated_at
		FROM customers ORDER BY %s LIMIT $1 OFFSET $2
	`, column)

	rows, err := r.db.Query(query, page.Size, page.Offset())
	if err != nil {
		r.logger.Error("Failed to list customers", "error", err)
		return nil, translateError(err, "failed to list customers")
	}
	defer rows.Close()

	result := &domain.CustomerPage{
		Customers: []domain.Customer{},
		Page:      page.Page,
		Size:      page.Size,
		Total:     total,
	}

	for rows.Next() {
		customer, err := r.scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		result.Customers = append(result.Customers, *customer)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "failed to list customers")
	}

	return result, nil
}

func (r *customerRepository) DeleteCustomer(id int64) error {
	// Accounts go first; ownership is exclusive, so this cannot touch
	// another customer's accounts.
	if _, err := r.db.Exec(`DELETE FROM accounts WHERE customer_id = $1`, id); err != nil {
		r.logger.Error("Failed to delete customer accounts", "customer_id", id, "error", err)
		return translateError(err, "failed to delete customer accounts")
	}

	result, err := r.db.Exec(`DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete customer", "customer_id", id, "error", err)
		return translateError(err, "failed to delete customer")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewAppError(errors.InternalError, "failed to get rows affected").WithDetails(err.Error())
	}

	if rowsAffected == 0 {
		return errors.ErrCustomerNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *customerRepository) scanCustomer(row rowScanner) (*domain.Customer, error) {
	var customer domain.Customer
	var kind string

	err := row.Scan(
		&customer.ID,
		&kind,
		&customer.Name,
		&customer.SecondaryName,
		&customer.PhoneNumber,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrCustomerNotFound
		}
		r.logger.Error("Failed to get customer", "error", err)
		return nil, translateError(err, "failed to get customer")
	}

	customer.Kind = domain.CustomerKind(kind)
	return &customer, nil
}

func (r *customerRepository) loadAccounts(customer *domain.Customer) error {
	query := `
		SELECT id, customer_id, balance, created_at, updated_at
		FROM accounts WHERE customer_id = $1 ORDER BY id
	`

	rows, err := r.db.Query(query, customer.ID)
	if err != nil {
		r.logger.Error("Failed to load accounts", "customer_id", customer.ID, "error", err)
		return translateError(err, "failed to load accounts")
	}
	defer rows.Close()

	customer.Accounts = []domain.Account{}
	for rows.Next() {
		var account domain.Account
		var balanceStr string

		if err := rows.Scan(
			&account.ID,
			&account.CustomerID,
			&balanceStr,
			&account.CreatedAt,
			&account.UpdatedAt,
		); err != nil {
			return translateError(err, "failed to load accounts")
		}

		balance, err := decimal.NewFromString(balanceStr)
		if err != nil {
			return errors.NewAppError(errors.InternalError, "failed to parse balance").WithDetails(err.Error())
		}
		account.Balance = balance

		customer.Accounts = append(customer.Accounts, account)
	}
	return rows.Err()
}
