package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"banking-ledger/internal/config"
)

type apiEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type customerPayload struct {
	CustomerID int64  `json:"customer_id"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
	LastName   string `json:"last_name"`
	FaxNumber  string `json:"fax_number"`
	Accounts   []struct {
		AccountID int64  `json:"account_id"`
		Balance   string `json:"balance"`
	} `json:"accounts"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		ServerPort:    "0",
		StorageDriver: config.DriverMemory,
		LockTimeout:   3 * time.Second,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv, err := NewServer(cfg, logger)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.GetRouter())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, apiEnvelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var envelope apiEnvelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &envelope))
	}
	return resp, envelope
}

func createCustomer(t *testing.T, ts *httptest.Server, phone, balance string) customerPayload {
	t.Helper()

	resp, envelope := doJSON(t, http.MethodPost, ts.URL+"/api/customers", map[string]string{
		"name":            "Sara",
		"kind":            "individual",
		"last_name":       "Connor",
		"phone_number":    phone,
		"initial_balance": balance,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var customer customerPayload
	require.NoError(t, json.Unmarshal(envelope.Data, &customer))
	require.NotZero(t, customer.CustomerID)
	require.Len(t, customer.Accounts, 1)
	return customer
}

func TestCreateAndFetchCustomer(t *testing.T) {
	ts := newTestServer(t)

	created := createCustomer(t, ts, "+98123", "10")
	assert.Equal(t, "Connor", created.LastName)
	assert.Equal(t, "10", created.Accounts[0].Balance)

	resp, envelope := doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/customers/%d", ts.URL, created.CustomerID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched customerPayload
	require.NoError(t, json.Unmarshal(envelope.Data, &fetched))
	assert.Equal(t, created.CustomerID, fetched.CustomerID)
	assert.Equal(t, "individual", fetched.Kind)
}

func TestCreateCustomerRejectsBadRequests(t *testing.T) {
	ts := newTestServer(t)

	resp, envelope := doJSON(t, http.MethodPost, ts.URL+"/api/customers", map[string]string{
		"name": "NoKind",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "invalid_input", envelope.Error.Code)

	resp, envelope = doJSON(t, http.MethodPost, ts.URL+"/api/customers", map[string]string{
		"name":            "Sara",
		"kind":            "individual",
		"phone_number":    "+1",
		"initial_balance": "ten",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "invalid_amount", envelope.Error.Code)
}

func TestDuplicatePhoneConflict(t *testing.T) {
	ts := newTestServer(t)

	createCustomer(t, ts, "+98123", "10")

	resp, envelope := doJSON(t, http.MethodPost, ts.URL+"/api/customers", map[string]string{
		"name":            "Other",
		"kind":            "organization",
		"fax_number":      "021",
		"phone_number":    "+98123",
		"initial_balance": "0",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "customer_exists", envelope.Error.Code)
}

func TestListCustomers(t *testing.T) {
	ts := newTestServer(t)

	createCustomer(t, ts, "+1", "0")
	createCustomer(t, ts, "+2", "0")

	resp, envelope := doJSON(t, http.MethodGet, ts.URL+"/api/customers?page=0&size=10&sort=id", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Customers []struct {
			CustomerID int64 `json:"customer_id"`
		} `json:"customers"`
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &listing))
	assert.Len(t, listing.Customers, 2)
	assert.Equal(t, int64(2), listing.Total)
}

func TestMoneyMovementEndpoints(t *testing.T) {
	ts := newTestServer(t)

	customer := createCustomer(t, ts, "+98123", "1000")
	base := fmt.Sprintf("%s/api/customers/%d", ts.URL, customer.CustomerID)
	firstAccount := customer.Accounts[0].AccountID

	// Open a second account.
	resp, envelope := doJSON(t, http.MethodPost, base+"/accounts", map[string]string{"initial_balance": "0"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var second struct {
		AccountID int64 `json:"account_id"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &second))

	// Transfer 300 into it.
	resp, _ = doJSON(t, http.MethodPut, base+"/transfer", map[string]interface{}{
		"from_account_id": firstAccount,
		"to_account_id":   second.AccountID,
		"amount":          "300",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Deposit and withdraw on the first account.
	resp, envelope = doJSON(t, http.MethodPut, base+"/deposit", map[string]interface{}{
		"account_id": firstAccount,
		"amount":     "50",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var account struct {
		Balance string `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &account))
	assert.Equal(t, "750", account.Balance)

	resp, envelope = doJSON(t, http.MethodPut, base+"/withdraw", map[string]interface{}{
		"account_id": firstAccount,
		"amount":     "10000",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "insufficient_balance", envelope.Error.Code)

	// Transfer onto itself is rejected up front.
	resp, envelope = doJSON(t, http.MethodPut, base+"/transfer", map[string]interface{}{
		"from_account_id": firstAccount,
		"to_account_id":   firstAccount,
		"amount":          "1",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "invalid_transfer_details", envelope.Error.Code)
}

func TestAccountRemovalRules(t *testing.T) {
	ts := newTestServer(t)

	customer := createCustomer(t, ts, "+98123", "0")
	base := fmt.Sprintf("%s/api/customers/%d", ts.URL, customer.CustomerID)

	// Removing the only account is rejected.
	resp, envelope := doJSON(t, http.MethodDelete,
		fmt.Sprintf("%s/accounts/%d", base, customer.Accounts[0].AccountID), nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "last_account", envelope.Error.Code)

	// Add an empty account, then removal succeeds.
	resp, envelope = doJSON(t, http.MethodPost, base+"/accounts", map[string]string{"initial_balance": "0"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var added struct {
		AccountID int64 `json:"account_id"`
	}
	require.NoError(t, json.Unmarshal(envelope.Data, &added))

	resp, _ = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/accounts/%d", base, added.AccountID), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestDeleteCustomerLifecycle(t *testing.T) {
	ts := newTestServer(t)

	customer := createCustomer(t, ts, "+98123", "10")
	base := fmt.Sprintf("%s/api/customers/%d", ts.URL, customer.CustomerID)

	// Rejected while money remains.
	resp, envelope := doJSON(t, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "customer_has_balance", envelope.Error.Code)

	// Empty the account, then the delete goes through.
	resp, _ = doJSON(t, http.MethodPut, base+"/withdraw", map[string]interface{}{
		"account_id": customer.Accounts[0].AccountID,
		"amount":     "10",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, envelope = doJSON(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "customer_not_found", envelope.Error.Code)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "caller-supplied")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, "caller-supplied", resp2.Header.Get("X-Request-ID"))
}
