package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	CustomerNotFound       ErrorCode = "customer_not_found"
	AccountNotFound        ErrorCode = "account_not_found"
	CustomerExists         ErrorCode = "customer_exists"
	InvalidAmount          ErrorCode = "invalid_amount"
	InsufficientBalance    ErrorCode = "insufficient_balance"
	InvalidTransferDetails ErrorCode = "invalid_transfer_details"
	LastAccount            ErrorCode = "last_account"
	AccountHasBalance      ErrorCode = "account_has_balance"
	CustomerHasBalance     ErrorCode = "customer_has_balance"
	LockTimeout            ErrorCode = "lock_timeout"
	InvalidInput           ErrorCode = "invalid_input"
	StorageUnavailable     ErrorCode = "storage_unavailable"
	InternalError          ErrorCode = "internal_error"
)

type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func (e *AppError) WithDetails(details string) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// HTTPStatus maps an error code to the response category the transport
// layer should use. Not-found conditions become 404, invariant rejections
// and bad input become 4xx, lock contention becomes 409.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CustomerNotFound, AccountNotFound:
		return http.StatusNotFound
	case CustomerExists:
		return http.StatusConflict
	case InvalidAmount, InvalidTransferDetails, InvalidInput:
		return http.StatusBadRequest
	case InsufficientBalance, LastAccount, AccountHasBalance, CustomerHasBalance:
		return http.StatusUnprocessableEntity
	case LockTimeout:
		return http.StatusConflict
	case StorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// AsAppError unwraps err into an *AppError if it is one.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Predefined errors for common cases
var (
	ErrCustomerNotFound       = NewAppError(CustomerNotFound, "customer not found")
	ErrAccountNotFound        = NewAppError(AccountNotFound, "account not found")
	ErrCustomerExists         = NewAppError(CustomerExists, "customer already registered with this phone number")
	ErrInvalidAmount          = NewAppError(InvalidAmount, "amount must be positive")
	ErrInsufficientBalance    = NewAppError(InsufficientBalance, "balance is not enough for this transaction")
	ErrInvalidTransferDetails = NewAppError(InvalidTransferDetails, "source and destination accounts must differ")
	ErrLastAccount            = NewAppError(LastAccount, "customer must keep at least one account")
	ErrAccountHasBalance      = NewAppError(AccountHasBalance, "cannot delete an account with a positive balance")
	ErrCustomerHasBalance     = NewAppError(CustomerHasBalance, "customer still has accounts with a positive balance")
	ErrLockTimeout            = NewAppError(LockTimeout, "could not acquire account lock in time")
)
