package transaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/lumostore/topup/internal/app/service/apilog"
	"github.com/lumostore/topup/internal/app/service/catalog"
	"github.com/lumostore/topup/internal/app/service/pricing"
	"github.com/lumostore/topup/internal/models"
	"github.com/lumostore/topup/internal/platform/digiflazz"
	"github.com/lumostore/topup/pkg/config"
	"github.com/lumostore/topup/pkg/redislock"
	"github.com/lumostore/topup/pkg/tool"
	"github.com/lumostore/topup/pkg/types"
)

// Gateway is the fulfillment provider boundary. CheckStatus must never
// create a new order for a known RefID.
type Gateway interface {
	CreateOrder(ctx context.Context, req *digiflazz.OrderRequest) (*digiflazz.OrderResult, error)
	CheckStatus(ctx context.Context, req *digiflazz.OrderRequest) (*digiflazz.OrderResult, error)
}

// Ledger records every provider call attempt and answers idempotency
// questions about past dispatches.
type Ledger interface {
	Append(ctx context.Context, entry *models.ApiLog) error
	LastDefinitive(ctx context.Context, transactionID, requestHash string) (*models.ApiLog, error)
	HasAttempt(ctx context.Context, transactionID, requestHash string) (bool, error)
}

// Customers resolves purchaser identities and applies spend statistics.
type Customers interface {
	Resolve(ctx context.Context, email, phone, name string) (*models.Customer, error)
	ApplySuccess(ctx context.Context, customerID uint, amount decimal.Decimal, at time.Time) error
}

// Catalog supplies the pricing snapshot and payment method lookups.
type Catalog interface {
	Snapshot(ctx context.Context, gameID uint) (*catalog.Snapshot, error)
	GetPaymentMethod(ctx context.Context, slug string) (*models.PaymentMethod, error)
}

// Service implements Manager on top of the narrow Store/Gateway/Ledger
// boundaries so the state machine is testable without a database.
type Service struct {
	cfg       *config.Config
	log       *zap.SugaredLogger
	store     Store
	gateway   Gateway
	ledger    Ledger
	customers Customers
	catalog   Catalog
	pricer    *pricing.Engine
	locker    *redislock.Locker
	now       func() time.Time
}

func NewService(
	cfg *config.Config,
	log *zap.SugaredLogger,
	store Store,
	gateway Gateway,
	ledger Ledger,
	customers Customers,
	cat Catalog,
	pricer *pricing.Engine,
	locker *redislock.Locker,
) Manager {
	return &Service{
		cfg:       cfg,
		log:       log,
		store:     store,
		gateway:   gateway,
		ledger:    ledger,
		customers: customers,
		catalog:   cat,
		pricer:    pricer,
		locker:    locker,
		now:       time.Now,
	}
}

func (s *Service) Create(ctx context.Context, req *TopUpRequest) (*TopUpResult, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", pricing.ErrValidation)
	}
	if req.GameUserID == "" {
		return nil, fmt.Errorf("%w: game_user_id is required", pricing.ErrValidation)
	}

	selections := make([]pricing.Selection, 0, len(req.Items)+1)
	if len(req.Items) > 0 {
		for _, item := range req.Items {
			selections = append(selections, pricing.Selection{ProductID: item.ProductID, Quantity: item.Quantity})
		}
	} else {
		qty := req.Quantity
		if qty == 0 {
			qty = 1
		}
		selections = append(selections, pricing.Selection{ProductID: req.ProductID, Quantity: qty})
	}

	snap, err := s.catalog.Snapshot(ctx, req.GameID)
	if err != nil {
		return nil, err
	}

	var method *models.PaymentMethod
	if req.PaymentMethod != "" {
		if method, err = s.catalog.GetPaymentMethod(ctx, req.PaymentMethod); err != nil {
			return nil, err
		}
	}

	quote, err := s.pricer.ComputeTotals(snap.Products, selections, method)
	if err != nil {
		return nil, err
	}

	var customerID *uint
	if req.CustomerEmail != "" || req.CustomerPhone != "" {
		c, err := s.customers.Resolve(ctx, req.CustomerEmail, req.CustomerPhone, req.CustomerName)
		if err != nil {
			return nil, err
		}
		customerID = &c.ID
	}

	tx := &models.Transaction{
		TransactionID: tool.NewTransactionRef(),
		CustomerID:    customerID,
		GameID:        req.GameID,
		GameUserID:    req.GameUserID,
		Status:        types.TransactionStatusPending,
		TotalAmount:   quote.ItemsTotal,
	}
	if req.GameUserServer != "" {
		tx.GameUserServer = lo.ToPtr(req.GameUserServer)
	}
	if req.PaymentMethod != "" {
		tx.PaymentMethod = lo.ToPtr(req.PaymentMethod)
	}
	if req.Notes != "" {
		tx.Notes = lo.ToPtr(req.Notes)
	}

	items := make([]*models.TransactionItem, 0, len(quote.Items))
	for _, line := range quote.Items {
		items = append(items, &models.TransactionItem{
			ProductID:    line.ProductID,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			TotalPrice:   line.TotalPrice,
			DigiflazzSKU: line.DigiflazzSKU,
		})
	}

	if err := s.store.CreateWithItems(ctx, tx, items); err != nil {
		return nil, err
	}
	s.log.Infow("transaction created",
		"transaction_id", tx.TransactionID,
		"game_id", tx.GameID,
		"total_amount", tx.TotalAmount,
		"items", len(items))

	result := &TopUpResult{
		TransactionID: tx.TransactionID,
		Status:        string(tx.Status),
		TotalAmount:   quote.ItemsTotal,
		Fee:           quote.Fee,
		PayableAmount: quote.PayableAmount,
		Message:       "transaction created",
	}
	if lead, ok := snap.Products[quote.Items[0].ProductID]; ok {
		result.EstimatedCompletion = lead.ProcessingTime
	}
	return result, nil
}

// Dispatch drives pending -> processing -> terminal. It is idempotent: the
// ref_id submitted to the provider is our own transaction_id, the provider
// deduplicates on it, and the ledger short-circuits re-dispatch of an
// already-definitive order.
func (s *Service) Dispatch(ctx context.Context, transactionID string) (*models.Transaction, error) {
	tx, err := s.store.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status.Terminal() {
		return tx, nil
	}
	if len(tx.Items) == 0 {
		return nil, fmt.Errorf("transaction %s has no items", transactionID)
	}

	// Best-effort serialization only. The MarkProcessing conditional update
	// below is what actually prevents a double submit.
	release, ok, err := s.locker.Acquire(ctx, "dispatch:"+transactionID)
	if err != nil {
		s.log.Warnw("dispatch lock unavailable, relying on status guard",
			"transaction_id", transactionID, "err", err)
	} else if !ok {
		return nil, ErrDispatchInProgress
	} else {
		defer release()
	}

	order := s.orderRequest(tx)
	hash := apilog.HashRequest(order)

	// A definitive ledger entry means a past dispatch already finished with
	// the provider even if the crash happened before the row transitioned.
	if prior, err := s.ledger.LastDefinitive(ctx, transactionID, hash); err != nil {
		return nil, err
	} else if prior != nil {
		return s.settleFromLedger(ctx, tx, prior)
	}

	claimed, err := s.store.MarkProcessing(ctx, transactionID, s.now())
	if err != nil {
		return nil, err
	}
	if !claimed {
		if tx, err = s.store.Get(ctx, transactionID); err != nil {
			return nil, err
		}
		if tx.Status.Terminal() {
			return tx, nil
		}
		// Row is processing but we did not claim it. If an attempt ever
		// reached the provider, a status inquiry is safe; otherwise another
		// dispatcher is mid-flight and we must not submit.
		attempted, err := s.ledger.HasAttempt(ctx, transactionID, hash)
		if err != nil {
			return nil, err
		}
		if !attempted {
			return nil, ErrDispatchInProgress
		}
		return s.resolveViaStatusCheck(ctx, tx, order, hash)
	}
	tx.Status = types.TransactionStatusProcessing

	return s.submitWithRetries(ctx, tx, order, hash)
}

// submitWithRetries runs the bounded retry loop. Every attempt, including
// transient failures, leaves a ledger entry before the next step.
func (s *Service) submitWithRetries(ctx context.Context, tx *models.Transaction, order *digiflazz.OrderRequest, hash string) (*models.Transaction, error) {
	maxAttempts := s.cfg.Dispatch.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	backoff := s.cfg.Dispatch.BackoffBase
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err := s.gateway.CreateOrder(ctx, order)
		s.appendAttempt(ctx, tx.TransactionID, hash, order, res, err)

		if err == nil {
			switch res.Status {
			case digiflazz.OrderStatusSuccess:
				return s.finalizeSuccess(ctx, tx, providerRef(res), res.Raw)
			default:
				// Provider accepted the order and will finalize via webhook.
				if recErr := s.store.RecordProviderAccepted(ctx, tx.TransactionID, providerRef(res), datatypes.JSON(res.Raw)); recErr != nil {
					s.log.Errorw("failed to record provider acceptance",
						"transaction_id", tx.TransactionID, "err", recErr)
				}
				s.log.Infow("order accepted, awaiting provider callback",
					"transaction_id", tx.TransactionID, "provider_ref", res.ProviderRefID)
				return s.store.Get(ctx, tx.TransactionID)
			}
		}

		lastErr = err
		if !digiflazz.IsTransient(err) {
			s.log.Warnw("permanent gateway error",
				"transaction_id", tx.TransactionID, "attempt", attempt, "err", err)
			return s.finalizeFailed(ctx, tx, err.Error(), rawOf(err))
		}

		s.log.Warnw("transient gateway error, will retry",
			"transaction_id", tx.TransactionID, "attempt", attempt, "err", err)
		if attempt < maxAttempts {
			if err := sleepCtx(ctx, backoff); err != nil {
				return nil, err
			}
			backoff *= 2
		}
	}

	return s.finalizeFailed(ctx, tx,
		fmt.Sprintf("dispatch failed after %d attempts: %v", maxAttempts, lastErr), rawOf(lastErr))
}

// resolveViaStatusCheck settles an ambiguous in-flight transaction without
// risking a duplicate order. Re-posting a known ref_id is a status inquiry
// on the provider side.
func (s *Service) resolveViaStatusCheck(ctx context.Context, tx *models.Transaction, order *digiflazz.OrderRequest, hash string) (*models.Transaction, error) {
	res, err := s.gateway.CheckStatus(ctx, order)
	s.appendAttempt(ctx, tx.TransactionID, hash, order, res, err)
	if err != nil {
		if digiflazz.IsTransient(err) {
			// Leave the row in processing; the recovery sweep retries later.
			return tx, nil
		}
		return s.finalizeFailed(ctx, tx, err.Error(), rawOf(err))
	}
	if res.Status == digiflazz.OrderStatusSuccess {
		return s.finalizeSuccess(ctx, tx, providerRef(res), res.Raw)
	}
	return tx, nil
}

func (s *Service) Cancel(ctx context.Context, transactionID string) (*models.Transaction, error) {
	cancelled, err := s.store.MarkCancelled(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	tx, err := s.store.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		return nil, fmt.Errorf("%w: cannot cancel transaction in status %s", ErrStateConflict, tx.Status)
	}
	s.log.Infow("transaction cancelled", "transaction_id", transactionID)
	return tx, nil
}

func (s *Service) Get(ctx context.Context, transactionID string) (*models.Transaction, error) {
	return s.store.Get(ctx, transactionID)
}

func (s *Service) HandleCallback(ctx context.Context, event *digiflazz.CallbackEvent) error {
	if event == nil || event.RefID == "" {
		return fmt.Errorf("callback missing ref_id")
	}
	tx, err := s.store.GetByRef(ctx, event.RefID)
	if err != nil {
		return err
	}
	if tx.Status.Terminal() {
		s.log.Infow("callback for settled transaction ignored",
			"transaction_id", tx.TransactionID, "ref_id", event.RefID, "status", event.Status)
		return nil
	}

	switch event.Status {
	case digiflazz.OrderStatusSuccess:
		_, err = s.finalizeSuccess(ctx, tx, lo.ToPtr(event.RefID), event.Raw)
	case digiflazz.OrderStatusFailed:
		msg := event.Message
		if msg == "" {
			msg = fmt.Sprintf("provider reported failure (rc=%s)", event.RC)
		}
		_, err = s.finalizeFailed(ctx, tx, msg, event.Raw)
	default:
		s.log.Infow("callback keeps transaction in processing",
			"transaction_id", tx.TransactionID, "status", event.Status)
	}
	return err
}

func (s *Service) ScanTransactions(ctx context.Context, req *ScanTransactionsRequest) (*ScanTransactionsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.From < 0 {
		req.From = 0
	}
	items, total, err := s.store.Scan(ctx, req)
	if err != nil {
		return nil, err
	}
	return &ScanTransactionsResponse{Items: items, Total: total}, nil
}

// RecoverStale resolves processing rows abandoned by a crash. Each row is
// settled via the provider status check, never via a fresh order.
func (s *Service) RecoverStale(ctx context.Context) (int, error) {
	staleAfter := s.cfg.Recovery.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	rows, err := s.store.ListStaleProcessing(ctx, s.now().Add(-staleAfter), 100)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, tx := range rows {
		if len(tx.Items) == 0 {
			continue
		}
		order := s.orderRequest(tx)
		settled, err := s.resolveViaStatusCheck(ctx, tx, order, apilog.HashRequest(order))
		if err != nil {
			s.log.Errorw("failed to recover stale transaction",
				"transaction_id", tx.TransactionID, "err", err)
			continue
		}
		if settled.Status.Terminal() {
			resolved++
		}
	}
	if len(rows) > 0 {
		s.log.Infow("stale transaction sweep finished", "scanned", len(rows), "resolved", resolved)
	}
	return resolved, nil
}

// finalizeSuccess settles the transaction and applies customer statistics
// exactly once. Only the caller that wins the conditional update touches the
// customer row, so a duplicate callback or a concurrent recovery sweep
// cannot double-count.
func (s *Service) finalizeSuccess(ctx context.Context, tx *models.Transaction, providerRef *string, raw json.RawMessage) (*models.Transaction, error) {
	now := s.now()
	won, err := s.store.FinishSuccess(ctx, tx.TransactionID, providerRef, datatypes.JSON(raw), now)
	if err != nil {
		return nil, err
	}
	if won {
		s.log.Infow("transaction succeeded", "transaction_id", tx.TransactionID)
		if tx.CustomerID != nil {
			if err := s.customers.ApplySuccess(ctx, *tx.CustomerID, tx.TotalAmount, now); err != nil {
				s.log.Errorw("failed to apply customer statistics",
					"transaction_id", tx.TransactionID, "customer_id", *tx.CustomerID, "err", err)
			}
		}
	}
	return s.store.Get(ctx, tx.TransactionID)
}

func (s *Service) finalizeFailed(ctx context.Context, tx *models.Transaction, errorMessage string, raw json.RawMessage) (*models.Transaction, error) {
	won, err := s.store.FinishFailed(ctx, tx.TransactionID, errorMessage, datatypes.JSON(raw), s.now())
	if err != nil {
		return nil, err
	}
	if won {
		s.log.Warnw("transaction failed",
			"transaction_id", tx.TransactionID, "error_message", errorMessage)
	}
	return s.store.Get(ctx, tx.TransactionID)
}

// settleFromLedger finishes a transaction whose definitive provider outcome
// was recorded before a crash interrupted the status transition.
func (s *Service) settleFromLedger(ctx context.Context, tx *models.Transaction, entry *models.ApiLog) (*models.Transaction, error) {
	s.log.Infow("settling transaction from ledger",
		"transaction_id", tx.TransactionID, "outcome", entry.Outcome)
	if entry.Outcome == models.ApiLogOutcomeSuccess {
		return s.finalizeSuccess(ctx, tx, nil, json.RawMessage(entry.ResponseData))
	}
	msg := "provider rejected the order"
	if entry.ErrorMessage != nil {
		msg = *entry.ErrorMessage
	}
	return s.finalizeFailed(ctx, tx, msg, json.RawMessage(entry.ResponseData))
}

// orderRequest builds the provider order for a transaction. The lead item
// carries the SKU; ref_id is always our transaction_id so the provider can
// deduplicate resubmissions.
func (s *Service) orderRequest(tx *models.Transaction) *digiflazz.OrderRequest {
	customerNo := tx.GameUserID
	if tx.GameUserServer != nil && *tx.GameUserServer != "" {
		customerNo += *tx.GameUserServer
	}
	return &digiflazz.OrderRequest{
		RefID:      tx.TransactionID,
		SKU:        tx.Items[0].DigiflazzSKU,
		CustomerNo: customerNo,
	}
}

// appendAttempt writes the ledger entry for one provider call. Append
// failures are logged but do not mask the gateway outcome.
func (s *Service) appendAttempt(ctx context.Context, transactionID, hash string, order *digiflazz.OrderRequest, res *digiflazz.OrderResult, callErr error) {
	reqBody, _ := json.Marshal(order)
	entry := &models.ApiLog{
		Service:       "digiflazz",
		Endpoint:      "/transaction",
		Method:        "POST",
		RequestData:   datatypes.JSON(reqBody),
		RequestHash:   hash,
		TransactionID: lo.ToPtr(transactionID),
	}

	switch {
	case callErr == nil && res.Status == digiflazz.OrderStatusSuccess:
		entry.Outcome = models.ApiLogOutcomeSuccess
	case callErr == nil:
		entry.Outcome = models.ApiLogOutcomePending
	case digiflazz.IsTransient(callErr):
		entry.Outcome = models.ApiLogOutcomeTransient
	default:
		entry.Outcome = models.ApiLogOutcomeFailed
	}

	if res != nil {
		entry.ResponseData = datatypes.JSON(res.Raw)
		if res.HTTPStatus != 0 {
			entry.StatusCode = lo.ToPtr(res.HTTPStatus)
		}
		entry.ResponseTimeMs = lo.ToPtr(res.Elapsed.Milliseconds())
	}
	if callErr != nil {
		entry.ErrorMessage = lo.ToPtr(callErr.Error())
		var gwErr *digiflazz.GatewayError
		if errors.As(callErr, &gwErr) {
			if len(gwErr.Raw) > 0 {
				entry.ResponseData = datatypes.JSON(gwErr.Raw)
			}
			if gwErr.HTTPStatus != 0 {
				entry.StatusCode = lo.ToPtr(gwErr.HTTPStatus)
			}
			entry.ResponseTimeMs = lo.ToPtr(gwErr.Elapsed.Milliseconds())
		}
	}

	if err := s.ledger.Append(ctx, entry); err != nil {
		s.log.Errorw("failed to append dispatch attempt to ledger",
			"transaction_id", transactionID, "err", err)
	}
}

func providerRef(res *digiflazz.OrderResult) *string {
	if res.ProviderRefID != "" {
		return lo.ToPtr(res.ProviderRefID)
	}
	if res.RefID != "" {
		return lo.ToPtr(res.RefID)
	}
	return nil
}

func rawOf(err error) json.RawMessage {
	var gwErr *digiflazz.GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Raw
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
