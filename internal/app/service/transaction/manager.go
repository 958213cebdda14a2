package transaction

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/lumostore/topup/internal/models"
	"github.com/lumostore/topup/internal/platform/digiflazz"
	"github.com/lumostore/topup/pkg/types"
)

// ItemRequest is one product selection inside a multi-item top-up.
type ItemRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// TopUpRequest is the inbound purchase payload. The single ProductID/Quantity
// pair covers the common case; Items, when present, takes precedence and
// allows several products of the same game in one transaction.
type TopUpRequest struct {
	GameID         uint          `json:"game_id"`
	ProductID      uint          `json:"product_id"`
	Quantity       int           `json:"quantity"`
	Items          []ItemRequest `json:"items,omitempty"`
	GameUserID     string        `json:"game_user_id"`
	GameUserServer string        `json:"game_user_server,omitempty"`
	CustomerEmail  string        `json:"customer_email,omitempty"`
	CustomerPhone  string        `json:"customer_phone,omitempty"`
	CustomerName   string        `json:"customer_name,omitempty"`
	PaymentMethod  string        `json:"payment_method,omitempty"`
	Notes          string        `json:"notes,omitempty"`
}

// TopUpResult is what the caller gets back right after creation, before the
// asynchronous dispatch has run.
type TopUpResult struct {
	TransactionID       string          `json:"transaction_id"`
	Status              string          `json:"status"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	Fee                 decimal.Decimal `json:"fee"`
	PayableAmount       decimal.Decimal `json:"payable_amount"`
	Message             string          `json:"message"`
	EstimatedCompletion string          `json:"estimated_completion,omitempty"`
}

// Manager drives the transaction state machine:
//
//	pending -> processing -> {success, failed}
//	pending -> cancelled
//
// Terminal rows are immutable; every transition is a conditional update
// guarded on the current status.
type Manager interface {
	// Create a pending transaction. Always assigns a new transaction_id and
	// never mutates an existing row.
	Create(ctx context.Context, req *TopUpRequest) (*TopUpResult, error)
	// Dispatch submits the order to the fulfillment provider. Safe to call
	// repeatedly for the same transaction; at most one provider order is
	// ever created.
	Dispatch(ctx context.Context, transactionID string) (*models.Transaction, error)
	// Cancel a transaction that has not been dispatched yet.
	Cancel(ctx context.Context, transactionID string) (*models.Transaction, error)
	// Get returns the transaction with its items.
	Get(ctx context.Context, transactionID string) (*models.Transaction, error)
	// HandleCallback applies a provider webhook event. Duplicate final
	// notifications are no-ops.
	HandleCallback(ctx context.Context, event *digiflazz.CallbackEvent) error
	// ScanTransactions backs the admin listing pages.
	ScanTransactions(ctx context.Context, req *ScanTransactionsRequest) (*ScanTransactionsResponse, error)
	// RecoverStale resolves processing rows older than the configured
	// threshold via the provider status check. Returns how many rows were
	// moved to a terminal state.
	RecoverStale(ctx context.Context) (int, error)
}

type ScanTransactionsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanTransactionsResponse struct {
	Items []*models.Transaction `json:"items"`
	Total int64                 `json:"total"`
}
