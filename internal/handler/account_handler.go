package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
	"banking-ledger/internal/service"
)

type AccountHandler struct {
	customerService *service.CustomerService
}

func NewAccountHandler(customerService *service.CustomerService) *AccountHandler {
	return &AccountHandler{
		customerService: customerService,
	}
}

type NewAccountRequest struct {
	InitialBalance string `json:"initial_balance" validate:"required"`
}

type AccountResponse struct {
	AccountID int64  `json:"account_id"`
	Balance   string `json:"balance"`
}

type AmountRequest struct {
	AccountID int64  `json:"account_id" validate:"required,gt=0"`
	Amount    string `json:"amount" validate:"required"`
}

type TransferRequest struct {
	FromAccountID int64  `json:"from_account_id" validate:"required,gt=0"`
	ToAccountID   int64  `json:"to_account_id" validate:"required,gt=0"`
	Amount        string `json:"amount" validate:"required"`
}

func toAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID: account.ID,
		Balance:   account.Balance.String(),
	}
}

func (h *AccountHandler) AddAccount(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := pathID(r, "id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var req NewAccountRequest
	if appErr := decodeAndValidate(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	initialBalance, err := decimal.NewFromString(req.InitialBalance)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid initial_balance format"))
		return
	}

	account, err := h.customerService.AddAccount(customerID, initialBalance)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := pathID(r, "id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	accounts, err := h.customerService.ListAccounts(customerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		response = append(response, toAccountResponse(&accounts[i]))
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *AccountHandler) RemoveAccount(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := pathID(r, "id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}
	accountID, appErr := pathID(r, "account_id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	if err := h.customerService.RemoveAccount(customerID, accountID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.applyAmount(w, r, h.customerService.Deposit)
}

func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.applyAmount(w, r, h.customerService.Withdraw)
}

func (h *AccountHandler) applyAmount(
	w http.ResponseWriter,
	r *http.Request,
	op func(customerID, accountID int64, amount decimal.Decimal) (*domain.Account, error),
) {
	customerID, appErr := pathID(r, "id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var req AmountRequest
	if appErr := decodeAndValidate(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid amount format"))
		return
	}

	account, err := op(customerID, req.AccountID, amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *AccountHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := pathID(r, "id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	var req TransferRequest
	if appErr := decodeAndValidate(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid amount format"))
		return
	}

	if err := h.customerService.Transfer(customerID, req.FromAccountID, req.ToAccountID, amount); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}
