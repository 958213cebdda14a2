package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/lumostore/topup/internal/app/service/catalog"
	"github.com/lumostore/topup/internal/app/service/customer"
	"github.com/lumostore/topup/internal/app/service/pricing"
	"github.com/lumostore/topup/internal/app/service/transaction"
	"github.com/lumostore/topup/internal/models"
	"github.com/lumostore/topup/pkg/response"
)

// TransactionResponse is the public shape of a transaction's state.
type TransactionResponse struct {
	TransactionID string          `json:"transaction_id"`
	Status        string          `json:"status"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	GameID        uint            `json:"game_id"`
	GameUserID    string          `json:"game_user_id"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []ItemResponse  `json:"items,omitempty"`
}

type ItemResponse struct {
	ProductID  uint            `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func toTransactionResponse(m *models.Transaction) *TransactionResponse {
	out := &TransactionResponse{
		TransactionID: m.TransactionID,
		Status:        string(m.Status),
		TotalAmount:   m.TotalAmount,
		GameID:        m.GameID,
		GameUserID:    m.GameUserID,
		ErrorMessage:  m.ErrorMessage,
		ProcessedAt:   m.ProcessedAt,
		CompletedAt:   m.CompletedAt,
		CreatedAt:     m.CreatedAt,
	}
	for _, item := range m.Items {
		out.Items = append(out.Items, ItemResponse{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		})
	}
	return out
}

// ApiCreateTopUp creates a pending transaction and dispatches it in the
// background; the caller polls the status endpoint or waits for completion.
func ApiCreateTopUp(mgr transaction.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req transaction.TopUpRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		res, err := mgr.Create(c.Request.Context(), &req)
		if err != nil {
			switch {
			case errors.Is(err, pricing.ErrValidation),
				errors.Is(err, pricing.ErrPaymentMethodRange),
				errors.Is(err, customer.ErrAmbiguousIdentity),
				errors.Is(err, customer.ErrIdentityRequired),
				errors.Is(err, catalog.ErrNotFound):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			default:
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			}
			return
		}

		// Dispatch outlives the request; the orchestrator owns retries and
		// terminal-state bookkeeping from here.
		go func(id string) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			_, _ = mgr.Dispatch(ctx, id)
		}(res.TransactionID)

		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// ApiGetTransaction returns a transaction with its items.
func ApiGetTransaction(mgr transaction.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tx, err := mgr.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, transaction.ErrNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(toTransactionResponse(tx)))
	}
}

// ApiCancelTransaction cancels a transaction that has not been dispatched.
func ApiCancelTransaction(mgr transaction.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tx, err := mgr.Cancel(c.Request.Context(), c.Param("id"))
		if err != nil {
			switch {
			case errors.Is(err, transaction.ErrNotFound),
				errors.Is(err, transaction.ErrStateConflict):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			default:
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			}
			return
		}
		c.JSON(http.StatusOK, response.OKT(toTransactionResponse(tx)))
	}
}

func RegisterTopUpRoutes(r gin.IRouter, mgr transaction.Manager) {
	r.POST("/topup", ApiCreateTopUp(mgr))
	r.GET("/transactions/:id", ApiGetTransaction(mgr))
	r.POST("/transactions/:id/cancel", ApiCancelTransaction(mgr))
}
