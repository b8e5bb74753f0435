package domain

import (
	"time"
)

// CustomerKind discriminates the two customer variants. The secondary
// name field is tagged by it: a last name for individuals, a fax number
// for organizations.
type CustomerKind string

const (
	KindIndividual   CustomerKind = "individual"
	KindOrganization CustomerKind = "organization"
)

func (k CustomerKind) Valid() bool {
	return k == KindIndividual || k == KindOrganization
}

type Customer struct {
	ID   int64        `json:"customer_id"`
	Kind CustomerKind `json:"kind"`
	Name string       `json:"name"`
	// SecondaryName holds the variant-dependent field: the last name when
	// Kind is individual, the fax number when Kind is organization. Use
	// LastName/FaxNumber to read it; NewIndividual/NewOrganization are the
	// only ways to set it, which keeps the wrong alias from ever being
	// populated.
	SecondaryName string    `json:"secondary_name"`
	PhoneNumber   string    `json:"phone_number"`
	Accounts      []Account `json:"accounts"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewIndividual builds an individual customer with its last name.
func NewIndividual(name, lastName, phoneNumber string) *Customer {
	return &Customer{
		Kind:          KindIndividual,
		Name:          name,
		SecondaryName: lastName,
		PhoneNumber:   phoneNumber,
	}
}

// NewOrganization builds an organization customer with its fax number.
func NewOrganization(name, faxNumber, phoneNumber string) *Customer {
	return &Customer{
		Kind:          KindOrganization,
		Name:          name,
		SecondaryName: faxNumber,
		PhoneNumber:   phoneNumber,
	}
}

// LastName returns the last name for individual customers.
func (c *Customer) LastName() (string, bool) {
	if c.Kind != KindIndividual {
		return "", false
	}
	return c.SecondaryName, true
}

// FaxNumber returns the fax number for organization customers.
func (c *Customer) FaxNumber() (string, bool) {
	if c.Kind != KindOrganization {
		return "", false
	}
	return c.SecondaryName, true
}

// Account returns the owned account with the given id, if any. Every
// account-targeting operation goes through this ownership check before
// touching the account itself.
func (c *Customer) Account(accountID int64) (*Account, bool) {
	for i := range c.Accounts {
		if c.Accounts[i].ID == accountID {
			return &c.Accounts[i], true
		}
	}
	return nil, false
}

type CustomerRepository interface {
	// CreateCustomer persists the customer together with its initial
	// accounts and assigns their ids.
	CreateCustomer(customer *Customer) error
	GetCustomer(id int64) (*Customer, error)
	// GetCustomerForUpdate reads the customer under an exclusive
	// customer-level lock held until the unit of work ends. Operations
	// that change the customer's account set take it so the set cannot
	// shift between their checks and their commit.
	GetCustomerForUpdate(id int64) (*Customer, error)
	GetCustomerByPhone(phoneNumber string) (*Customer, error)
	ListCustomers(page PageRequest) (*CustomerPage, error)
	// DeleteCustomer removes the customer and every account it owns.
	DeleteCustomer(id int64) error
}
