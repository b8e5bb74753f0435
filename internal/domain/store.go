package domain

// Store bundles the repositories behind a single unit-of-work boundary.
type Store interface {
	Account() AccountRepository
	Customer() CustomerRepository
	// WithTransaction runs fn inside one unit of work: either every
	// mutation fn performs through the passed Store commits, or none do.
	// Exclusive account locks taken inside fn are released when the unit
	// of work ends, on every exit path.
	WithTransaction(fn func(Store) error) error
}
