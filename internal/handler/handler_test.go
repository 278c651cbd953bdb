package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mmeshcher/tappass/internal/model"
	"github.com/mmeshcher/tappass/internal/nfc"
	"github.com/mmeshcher/tappass/internal/repository"
	"github.com/mmeshcher/tappass/internal/service"
	"github.com/mmeshcher/tappass/internal/validation"
)

type stubService struct {
	issueReq  service.IssueRequest
	issueResp *model.Transaction
	issueErr  error

	redeemResp *model.Transaction
	redeemErr  error

	scanResp string
	scanErr  error

	txsResp []model.Transaction
	txsErr  error

	sendResp *model.SharedToken
	sendErr  error

	executeResp *model.Transaction
	executeErr  error

	sharedResp []model.SharedToken

	payeesResp []string

	addPayeeAdded bool
	addPayeeErr   error
}

func (s *stubService) IssueToken(ctx context.Context, req service.IssueRequest) (*model.Transaction, error) {
	s.issueReq = req
	return s.issueResp, s.issueErr
}

func (s *stubService) RedeemToken(ctx context.Context, id string) (*model.Transaction, error) {
	return s.redeemResp, s.redeemErr
}

func (s *stubService) ScanPayload(ctx context.Context) (string, error) {
	return s.scanResp, s.scanErr
}

func (s *stubService) ListTransactions(ctx context.Context) ([]model.Transaction, error) {
	return s.txsResp, s.txsErr
}

func (s *stubService) ListValidTransactions(ctx context.Context) ([]model.Transaction, error) {
	return s.txsResp, s.txsErr
}

func (s *stubService) SendToken(ctx context.Context, index int, recipient string) (*model.SharedToken, error) {
	return s.sendResp, s.sendErr
}

func (s *stubService) ExecuteToken(ctx context.Context, index int) (*model.Transaction, error) {
	return s.executeResp, s.executeErr
}

func (s *stubService) ListShared(ctx context.Context) ([]model.SharedToken, error) {
	return s.sharedResp, nil
}

func (s *stubService) ListPayees(ctx context.Context) ([]string, error) {
	return s.payeesResp, nil
}

func (s *stubService) AddPayee(ctx context.Context, name string) (bool, error) {
	return s.addPayeeAdded, s.addPayeeErr
}

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	return NewHandler(svc, logger)
}

func doRequest(t *testing.T, h *Handler, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)

	return rec.Result()
}

func testTransaction() *model.Transaction {
	return &model.Transaction{
		ID:        "6f1c",
		Encrypted: "gAAAA",
		Currency:  model.CurrencyUSD,
		Amount:    model.NewAmount(decimal.RequireFromString("25.00")),
		Expiry:    "2025/01/01 12:00",
		Status:    model.StatusValid,
	}
}

func TestIssueToken_Created(t *testing.T) {
	svc := &stubService{issueResp: testTransaction()}
	h := newTestHandler(t, svc)

	res := doRequest(t, h, http.MethodPost, "/api/tokens", issueRequest{
		Currency:   "USD",
		Amount:     "25.00",
		ExpiryDate: "2025/01/01",
		ExpiryTime: "12:00",
	})
	defer res.Body.Close()

	require.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
	assert.Equal(t, "25.00", svc.issueReq.Amount)

	var got map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, "6f1c", got["id"])
	assert.Equal(t, float64(25), got["amount"])
	assert.Equal(t, "valid", got["status"])
}

func TestIssueToken_AmountForms(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "quoted amount",
			body: `{"currency":"USD","amount":"25.00","expiry_date":"2025/01/01"}`,
			want: "25.00",
		},
		{
			name: "numeric amount",
			body: `{"currency":"USD","amount":25.00,"expiry_date":"2025/01/01"}`,
			want: "25.00",
		},
		{
			name: "numeric amount with exponent",
			body: `{"currency":"USD","amount":1e20000000,"expiry_date":"2025/01/01"}`,
			want: "1e20000000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{issueResp: testTransaction()}
			h := newTestHandler(t, svc)

			req := httptest.NewRequest(http.MethodPost, "/api/tokens", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.IssueToken(rec, req)

			assert.Equal(t, http.StatusCreated, rec.Code)
			assert.Equal(t, tt.want, svc.issueReq.Amount)
		})
	}
}

func TestIssueToken_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "validation error",
			err:  fmt.Errorf("%w: amount is not a number", validation.ErrInvalidInput),
			want: http.StatusBadRequest,
		},
		{
			name: "storage error",
			err:  io.ErrUnexpectedEOF,
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, &stubService{issueErr: tt.err})

			res := doRequest(t, h, http.MethodPost, "/api/tokens", issueRequest{Currency: "USD"})
			defer res.Body.Close()

			assert.Equal(t, tt.want, res.StatusCode)
		})
	}
}

func TestIssueToken_LogsIDWhenScanWriteFails(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	svc := &stubService{issueErr: &service.ScanWriteError{ID: "6f1c", Err: io.ErrShortWrite}}
	h := NewHandler(svc, zap.New(core))

	res := doRequest(t, h, http.MethodPost, "/api/tokens", issueRequest{Currency: "USD", Amount: "25.00"})
	defer res.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)

	entries := logs.FilterField(zap.String("id", "6f1c")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
}

func TestIssueToken_BadJSON(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	req := httptest.NewRequest(http.MethodPost, "/api/tokens", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	h.IssueToken(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTransactions_NoContent(t *testing.T) {
	h := newTestHandler(t, &stubService{txsResp: []model.Transaction{}})

	res := doRequest(t, h, http.MethodGet, "/api/tokens", nil)
	defer res.Body.Close()

	assert.Equal(t, http.StatusNoContent, res.StatusCode)
}

func TestListValidTransactions_JSON(t *testing.T) {
	h := newTestHandler(t, &stubService{txsResp: []model.Transaction{*testTransaction()}})

	res := doRequest(t, h, http.MethodGet, "/api/tokens/valid", nil)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)

	var got []model.Transaction
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "6f1c", got[0].ID)
}

func TestSendToken_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "sent", err: nil, want: http.StatusOK},
		{name: "no such token", err: service.ErrNoSuchToken, want: http.StatusNotFound},
		{name: "raced away", err: repository.ErrTransactionNotFound, want: http.StatusNotFound},
		{name: "unknown payee", err: fmt.Errorf("%w: Mallory", service.ErrUnknownPayee), want: http.StatusUnprocessableEntity},
		{name: "empty recipient", err: validation.ErrInvalidInput, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{
				sendResp: &model.SharedToken{To: "Kevin", Status: model.StatusSent},
				sendErr:  tt.err,
			}
			h := newTestHandler(t, svc)

			res := doRequest(t, h, http.MethodPost, "/api/tokens/send", sendRequest{Index: 0, To: "Kevin"})
			defer res.Body.Close()

			assert.Equal(t, tt.want, res.StatusCode)
		})
	}
}

func TestExecuteToken(t *testing.T) {
	used := testTransaction()
	used.Status = model.StatusUsed

	h := newTestHandler(t, &stubService{executeResp: used})
	res := doRequest(t, h, http.MethodPost, "/api/tokens/execute", executeRequest{Index: 0})
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	h = newTestHandler(t, &stubService{executeErr: service.ErrNoSuchToken})
	res = doRequest(t, h, http.MethodPost, "/api/tokens/execute", executeRequest{Index: 3})
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestListShared_NoContent(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	res := doRequest(t, h, http.MethodGet, "/api/shared", nil)
	defer res.Body.Close()

	assert.Equal(t, http.StatusNoContent, res.StatusCode)
}

func TestPayees(t *testing.T) {
	h := newTestHandler(t, &stubService{payeesResp: model.DefaultPayees, addPayeeAdded: true})

	res := doRequest(t, h, http.MethodGet, "/api/payees", nil)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var payees []string
	require.NoError(t, json.NewDecoder(res.Body).Decode(&payees))
	assert.Equal(t, model.DefaultPayees, payees)

	res = doRequest(t, h, http.MethodPost, "/api/payees", payeeRequest{Name: "Maria"})
	defer res.Body.Close()
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	h = newTestHandler(t, &stubService{addPayeeAdded: false})
	res = doRequest(t, h, http.MethodPost, "/api/payees", payeeRequest{Name: "Alan"})
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	h = newTestHandler(t, &stubService{addPayeeErr: validation.ErrInvalidInput})
	res = doRequest(t, h, http.MethodPost, "/api/payees", payeeRequest{Name: ""})
	defer res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestRedeemToken(t *testing.T) {
	used := testTransaction()
	used.Status = model.StatusUsed

	h := newTestHandler(t, &stubService{redeemResp: used})
	res := doRequest(t, h, http.MethodPost, "/api/redeem", redeemRequest{ID: "6f1c"})
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var got RedeemResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Equal(t, model.CurrencyUSD, got.Currency)
	assert.Equal(t, model.StatusUsed, got.Status)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(25)))

	h = newTestHandler(t, &stubService{redeemErr: repository.ErrTransactionNotFound})
	res = doRequest(t, h, http.MethodPost, "/api/redeem", redeemRequest{ID: "6f1c"})
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestScanPayload(t *testing.T) {
	h := newTestHandler(t, &stubService{scanResp: "6f1c"})
	res := doRequest(t, h, http.MethodGet, "/api/nfc", nil)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, "6f1c", string(body))

	h = newTestHandler(t, &stubService{scanErr: nfc.ErrNoPayload})
	res = doRequest(t, h, http.MethodGet, "/api/nfc", nil)
	defer res.Body.Close()
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, &stubService{})

	res := doRequest(t, h, http.MethodDelete, "/api/payees", nil)
	defer res.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}
