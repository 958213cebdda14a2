package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lumostore/topup/internal/app/service/pricing"
	"github.com/lumostore/topup/internal/app/service/transaction"
	"github.com/lumostore/topup/internal/models"
	"github.com/lumostore/topup/internal/platform/digiflazz"
	"github.com/lumostore/topup/pkg/response"
	"github.com/lumostore/topup/pkg/types"
)

// stubManager scripts the orchestrator for handler tests.
type stubManager struct {
	createRes  *transaction.TopUpResult
	createErr  error
	getRes     *models.Transaction
	getErr     error
	cancelRes  *models.Transaction
	cancelErr  error
	dispatched chan string
}

func (s *stubManager) Create(context.Context, *transaction.TopUpRequest) (*transaction.TopUpResult, error) {
	return s.createRes, s.createErr
}

func (s *stubManager) Dispatch(_ context.Context, id string) (*models.Transaction, error) {
	if s.dispatched != nil {
		s.dispatched <- id
	}
	return nil, nil
}

func (s *stubManager) Cancel(context.Context, string) (*models.Transaction, error) {
	return s.cancelRes, s.cancelErr
}

func (s *stubManager) Get(context.Context, string) (*models.Transaction, error) {
	return s.getRes, s.getErr
}

func (s *stubManager) HandleCallback(context.Context, *digiflazz.CallbackEvent) error { return nil }

func (s *stubManager) ScanTransactions(context.Context, *transaction.ScanTransactionsRequest) (*transaction.ScanTransactionsResponse, error) {
	return &transaction.ScanTransactionsResponse{}, nil
}

func (s *stubManager) RecoverStale(context.Context) (int, error) { return 0, nil }

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterTopUpRoutes_RegistersEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterTopUpRoutes(r.Group("/api/v1"), &stubManager{})

	routes := r.Routes()
	contains := func(target string) bool {
		for _, rt := range routes {
			if rt.Method+" "+rt.Path == target {
				return true
			}
		}
		return false
	}

	require.True(t, contains("POST /api/v1/topup"))
	require.True(t, contains("GET /api/v1/transactions/:id"))
	require.True(t, contains("POST /api/v1/transactions/:id/cancel"))
}

func TestApiCreateTopUp_DispatchesInBackground(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mgr := &stubManager{
		createRes: &transaction.TopUpResult{
			TransactionID: "TRX-ABC",
			Status:        "pending",
			TotalAmount:   decimal.NewFromInt(30000),
		},
		dispatched: make(chan string, 1),
	}
	r := gin.New()
	RegisterTopUpRoutes(r.Group("/api/v1"), mgr)

	w := doJSON(t, r, http.MethodPost, "/api/v1/topup", transaction.TopUpRequest{
		GameID: 1, ProductID: 1, Quantity: 3, GameUserID: "123",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var res response.APIResponse[transaction.TopUpResult]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, response.APIResponseCodeOK, res.Code)
	require.Equal(t, "TRX-ABC", res.Data.TransactionID)

	select {
	case id := <-mgr.dispatched:
		require.Equal(t, "TRX-ABC", id)
	case <-time.After(time.Second):
		t.Fatal("dispatch was not triggered")
	}
}

func TestApiCreateTopUp_ValidationErrorMapsToBadRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mgr := &stubManager{createErr: pricing.ErrValidation}
	r := gin.New()
	RegisterTopUpRoutes(r.Group("/api/v1"), mgr)

	w := doJSON(t, r, http.MethodPost, "/api/v1/topup", transaction.TopUpRequest{})
	require.Equal(t, http.StatusOK, w.Code)

	var res response.APIResponse[any]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, response.APIResponseCodeBadRequest, res.Code)
}

func TestApiCancelTransaction_StateConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mgr := &stubManager{cancelErr: transaction.ErrStateConflict}
	r := gin.New()
	RegisterTopUpRoutes(r.Group("/api/v1"), mgr)

	w := doJSON(t, r, http.MethodPost, "/api/v1/transactions/TRX-1/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res response.APIResponse[any]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, response.APIResponseCodeBadRequest, res.Code)
}

func TestApiGetTransaction_OK(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mgr := &stubManager{
		getRes: &models.Transaction{
			TransactionID: "TRX-1",
			Status:        types.TransactionStatusSuccess,
			TotalAmount:   decimal.NewFromInt(30000),
			Items: []*models.TransactionItem{
				{ProductID: 1, Quantity: 3, UnitPrice: decimal.NewFromInt(10000), TotalPrice: decimal.NewFromInt(30000)},
			},
		},
	}
	r := gin.New()
	RegisterTopUpRoutes(r.Group("/api/v1"), mgr)

	w := doJSON(t, r, http.MethodGet, "/api/v1/transactions/TRX-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res response.APIResponse[TransactionResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, "success", res.Data.Status)
	require.Len(t, res.Data.Items, 1)
}
