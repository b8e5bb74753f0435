package handler

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"banking-ledger/internal/domain"
	"banking-ledger/internal/errors"
	"banking-ledger/internal/service"
)

type CustomerHandler struct {
	customerService *service.CustomerService
}

func NewCustomerHandler(customerService *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
	}
}

type NewCustomerRequest struct {
	Name           string `json:"name" validate:"required"`
	Kind           string `json:"kind" validate:"required,oneof=individual organization"`
	LastName       string `json:"last_name,omitempty"`
	FaxNumber      string `json:"fax_number,omitempty"`
	PhoneNumber    string `json:"phone_number" validate:"required"`
	InitialBalance string `json:"initial_balance" validate:"required"`
}

type CustomerSummary struct {
	CustomerID int64  `json:"customer_id"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
}

type CustomerDetail struct {
	CustomerID  int64             `json:"customer_id"`
	Kind        string            `json:"kind"`
	Name        string            `json:"name"`
	LastName    string            `json:"last_name,omitempty"`
	FaxNumber   string            `json:"fax_number,omitempty"`
	PhoneNumber string            `json:"phone_number"`
	Accounts    []AccountResponse `json:"accounts"`
}

type CustomerListResponse struct {
	Customers []CustomerSummary `json:"customers"`
	Page      int               `json:"page"`
	Size      int               `json:"size"`
	Total     int64             `json:"total"`
}

func toCustomerDetail(customer *domain.Customer) CustomerDetail {
	detail := CustomerDetail{
		CustomerID:  customer.ID,
		Kind:        string(customer.Kind),
		Name:        customer.Name,
		PhoneNumber: customer.PhoneNumber,
		Accounts:    make([]AccountResponse, 0, len(customer.Accounts)),
	}

	if lastName, ok := customer.LastName(); ok {
		detail.LastName = lastName
	}
	if faxNumber, ok := customer.FaxNumber(); ok {
		detail.FaxNumber = faxNumber
	}

	for _, account := range customer.Accounts {
		detail.Accounts = append(detail.Accounts, toAccountResponse(&account))
	}
	return detail
}

func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req NewCustomerRequest
	if appErr := decodeAndValidate(r, &req); appErr != nil {
		writeError(w, appErr)
		return
	}

	initialBalance, err := decimal.NewFromString(req.InitialBalance)
	if err != nil {
		writeError(w, errors.NewAppError(errors.InvalidAmount, "invalid initial_balance format"))
		return
	}

	kind := domain.CustomerKind(req.Kind)
	secondaryName := req.LastName
	if kind == domain.KindOrganization {
		secondaryName = req.FaxNumber
	}

	customer, err := h.customerService.CreateCustomer(service.NewCustomerRequest{
		Kind:           kind,
		Name:           req.Name,
		SecondaryName:  secondaryName,
		PhoneNumber:    req.PhoneNumber,
		InitialBalance: initialBalance,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCustomerDetail(customer))
}

func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	page := domain.PageRequest{
		Page:    queryInt(r, "page", 0),
		Size:    queryInt(r, "size", domain.DefaultPageSize),
		SortKey: r.URL.Query().Get("sort"),
	}

	result, err := h.customerService.ListCustomers(page)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := CustomerListResponse{
		Customers: make([]CustomerSummary, 0, len(result.Customers)),
		Page:      result.Page,
		Size:      result.Size,
		Total:     result.Total,
	}
	for _, customer := range result.Customers {
		response.Customers = append(response.Customers, CustomerSummary{
			CustomerID: customer.ID,
			Kind:       string(customer.Kind),
			Name:       customer.Name,
		})
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *CustomerHandler) FindCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := pathID(r, "id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	customer, err := h.customerService.FindCustomer(customerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCustomerDetail(customer))
}

func (h *CustomerHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, appErr := pathID(r, "id")
	if appErr != nil {
		writeError(w, appErr)
		return
	}

	if err := h.customerService.DeleteCustomer(customerID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
