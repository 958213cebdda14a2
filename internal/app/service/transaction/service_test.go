package transaction

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/lumostore/topup/internal/app/service/catalog"
	"github.com/lumostore/topup/internal/app/service/pricing"
	"github.com/lumostore/topup/internal/models"
	"github.com/lumostore/topup/internal/platform/digiflazz"
	"github.com/lumostore/topup/pkg/config"
	"github.com/lumostore/topup/pkg/redislock"
	"github.com/lumostore/topup/pkg/types"

	"github.com/stretchr/testify/require"
)

// memStore keeps the status-guard semantics of the gorm store in memory.
type memStore struct {
	mu  sync.Mutex
	txs map[string]*models.Transaction
}

func newMemStore() *memStore {
	return &memStore{txs: map[string]*models.Transaction{}}
}

func (s *memStore) clone(tx *models.Transaction) *models.Transaction {
	cp := *tx
	cp.Items = append([]*models.TransactionItem(nil), tx.Items...)
	return &cp
}

func (s *memStore) CreateWithItems(_ context.Context, tx *models.Transaction, items []*models.TransactionItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		item.TransactionID = tx.TransactionID
	}
	tx.Items = items
	s.txs[tx.TransactionID] = s.clone(tx)
	return nil
}

func (s *memStore) Get(_ context.Context, transactionID string) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[transactionID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.clone(tx), nil
}

func (s *memStore) GetByRef(ctx context.Context, ref string) (*models.Transaction, error) {
	s.mu.Lock()
	for _, tx := range s.txs {
		if tx.DigiflazzRefID != nil && *tx.DigiflazzRefID == ref {
			defer s.mu.Unlock()
			return s.clone(tx), nil
		}
	}
	s.mu.Unlock()
	return s.Get(ctx, ref)
}

func (s *memStore) MarkProcessing(_ context.Context, transactionID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[transactionID]
	if !ok || tx.Status != types.TransactionStatusPending {
		return false, nil
	}
	tx.Status = types.TransactionStatusProcessing
	tx.ProcessedAt = &at
	return true, nil
}

func (s *memStore) MarkCancelled(_ context.Context, transactionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[transactionID]
	if !ok || tx.Status != types.TransactionStatusPending {
		return false, nil
	}
	tx.Status = types.TransactionStatusCancelled
	return true, nil
}

func (s *memStore) FinishSuccess(_ context.Context, transactionID string, providerRef *string, raw datatypes.JSON, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[transactionID]
	if !ok || tx.Status.Terminal() {
		return false, nil
	}
	tx.Status = types.TransactionStatusSuccess
	tx.CompletedAt = &at
	if providerRef != nil {
		tx.DigiflazzRefID = providerRef
	}
	if len(raw) > 0 {
		tx.DigiflazzResponse = raw
	}
	return true, nil
}

func (s *memStore) FinishFailed(_ context.Context, transactionID string, errorMessage string, raw datatypes.JSON, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[transactionID]
	if !ok || tx.Status.Terminal() {
		return false, nil
	}
	tx.Status = types.TransactionStatusFailed
	tx.ErrorMessage = &errorMessage
	tx.CompletedAt = &at
	if len(raw) > 0 {
		tx.DigiflazzResponse = raw
	}
	return true, nil
}

func (s *memStore) RecordProviderAccepted(_ context.Context, transactionID string, providerRef *string, raw datatypes.JSON) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[transactionID]
	if !ok || tx.Status != types.TransactionStatusProcessing {
		return nil
	}
	if providerRef != nil {
		tx.DigiflazzRefID = providerRef
	}
	if len(raw) > 0 {
		tx.DigiflazzResponse = raw
	}
	return nil
}

func (s *memStore) ListStaleProcessing(_ context.Context, olderThan time.Time, limit int) ([]*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []*models.Transaction
	for _, tx := range s.txs {
		if tx.Status == types.TransactionStatusProcessing && tx.ProcessedAt != nil && tx.ProcessedAt.Before(olderThan) {
			rows = append(rows, s.clone(tx))
		}
		if len(rows) == limit {
			break
		}
	}
	return rows, nil
}

func (s *memStore) Scan(_ context.Context, req *ScanTransactionsRequest) ([]*models.Transaction, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []*models.Transaction
	for _, tx := range s.txs {
		rows = append(rows, s.clone(tx))
	}
	total := int64(len(rows))
	if req.Size > 0 && len(rows) > req.Size {
		rows = rows[:req.Size]
	}
	return rows, total, nil
}

// fakeGateway replays a scripted sequence of order outcomes.
type fakeGateway struct {
	mu           sync.Mutex
	orderScript  []gatewayStep
	statusScript []gatewayStep
	orders       int
	checks       int
	// when set, CreateOrder signals entered and blocks until proceed closes
	entered chan struct{}
	proceed chan struct{}
}

type gatewayStep struct {
	res *digiflazz.OrderResult
	err error
}

func okResult(refID string) *digiflazz.OrderResult {
	return &digiflazz.OrderResult{
		RefID:         refID,
		ProviderRefID: "D-" + refID,
		Status:        digiflazz.OrderStatusSuccess,
		RC:            "00",
		SerialNumber:  "SN123",
		Raw:           []byte(`{"data":{"status":"Sukses"}}`),
		HTTPStatus:    200,
	}
}

func pendingResult(refID string) *digiflazz.OrderResult {
	return &digiflazz.OrderResult{
		RefID:         refID,
		ProviderRefID: "D-" + refID,
		Status:        digiflazz.OrderStatusPending,
		RC:            "03",
		Raw:           []byte(`{"data":{"status":"Pending"}}`),
		HTTPStatus:    200,
	}
}

func (g *fakeGateway) CreateOrder(_ context.Context, req *digiflazz.OrderRequest) (*digiflazz.OrderResult, error) {
	if g.entered != nil {
		g.entered <- struct{}{}
		<-g.proceed
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders++
	if len(g.orderScript) == 0 {
		return okResult(req.RefID), nil
	}
	step := g.orderScript[0]
	g.orderScript = g.orderScript[1:]
	return step.res, step.err
}

func (g *fakeGateway) CheckStatus(_ context.Context, req *digiflazz.OrderRequest) (*digiflazz.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checks++
	if len(g.statusScript) == 0 {
		return okResult(req.RefID), nil
	}
	step := g.statusScript[0]
	g.statusScript = g.statusScript[1:]
	return step.res, step.err
}

func (g *fakeGateway) orderCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.orders
}

// fakeLedger is an append-only in-memory ledger.
type fakeLedger struct {
	mu      sync.Mutex
	entries []*models.ApiLog
}

func (l *fakeLedger) Append(_ context.Context, entry *models.ApiLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *fakeLedger) LastDefinitive(_ context.Context, transactionID, requestHash string) (*models.ApiLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if e.TransactionID == nil || *e.TransactionID != transactionID || e.RequestHash != requestHash {
			continue
		}
		if e.Outcome == models.ApiLogOutcomeSuccess || e.Outcome == models.ApiLogOutcomeFailed {
			return e, nil
		}
	}
	return nil, nil
}

func (l *fakeLedger) HasAttempt(_ context.Context, transactionID, requestHash string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.TransactionID != nil && *e.TransactionID == transactionID && e.RequestHash == requestHash {
			return true, nil
		}
	}
	return false, nil
}

func (l *fakeLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// fakeCustomers resolves everyone to one customer and counts stat updates.
type fakeCustomers struct {
	mu           sync.Mutex
	nextID       uint
	applied      int
	appliedTotal decimal.Decimal
}

func (c *fakeCustomers) Resolve(_ context.Context, email, phone, _ string) (*models.Customer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	cust := &models.Customer{ID: c.nextID}
	if email != "" {
		cust.Email = &email
	}
	if phone != "" {
		cust.Phone = &phone
	}
	return cust, nil
}

func (c *fakeCustomers) ApplySuccess(_ context.Context, _ uint, amount decimal.Decimal, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applied++
	c.appliedTotal = c.appliedTotal.Add(amount)
	return nil
}

func (c *fakeCustomers) appliedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applied
}

// fakeCatalog serves a fixed snapshot and payment method set.
type fakeCatalog struct {
	products map[uint]*models.Product
	methods  map[string]*models.PaymentMethod
}

func (c *fakeCatalog) Snapshot(_ context.Context, gameID uint) (*catalog.Snapshot, error) {
	return &catalog.Snapshot{GameID: gameID, LoadedAt: time.Now(), Products: c.products}, nil
}

func (c *fakeCatalog) GetPaymentMethod(_ context.Context, slug string) (*models.PaymentMethod, error) {
	m, ok := c.methods[slug]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return m, nil
}

type testEnv struct {
	svc       *Service
	store     *memStore
	gateway   *fakeGateway
	ledger    *fakeLedger
	customers *fakeCustomers
	catalog   *fakeCatalog
}

func testProduct() *models.Product {
	return &models.Product{
		ID:              1,
		GameID:          1,
		Name:            "100 Diamonds",
		DigiflazzSKU:    "ML100",
		Price:           decimal.NewFromInt(10000),
		IsActive:        true,
		StockStatus:     types.StockStatusAvailable,
		MinimumPurchase: 1,
		MaximumPurchase: 5,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:     newMemStore(),
		gateway:   &fakeGateway{},
		ledger:    &fakeLedger{},
		customers: &fakeCustomers{},
	}
	cfg := &config.Config{
		Dispatch: config.DispatchConfig{MaxAttempts: 5, BackoffBase: time.Millisecond, LockTTL: time.Minute},
		Recovery: config.RecoveryConfig{Interval: time.Minute, StaleAfter: 10 * time.Minute},
	}
	env.catalog = &fakeCatalog{products: map[uint]*models.Product{1: testProduct()}}
	env.svc = &Service{
		cfg:       cfg,
		log:       zap.NewNop().Sugar(),
		store:     env.store,
		gateway:   env.gateway,
		ledger:    env.ledger,
		customers: env.customers,
		catalog:   env.catalog,
		pricer:    pricing.NewEngine(),
		locker:    redislock.New(nil, 0),
		now:       time.Now,
	}
	return env
}

func (env *testEnv) createPending(t *testing.T) string {
	t.Helper()
	res, err := env.svc.Create(context.Background(), &TopUpRequest{
		GameID:        1,
		ProductID:     1,
		Quantity:      3,
		GameUserID:    "123456789",
		CustomerEmail: "buyer@example.com",
	})
	require.NoError(t, err)
	return res.TransactionID
}

func TestCreate_PendingWithExactTotal(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.svc.Create(context.Background(), &TopUpRequest{
		GameID:        1,
		ProductID:     1,
		Quantity:      3,
		GameUserID:    "123456789",
		CustomerEmail: "buyer@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, "pending", res.Status)
	require.True(t, res.TotalAmount.Equal(decimal.NewFromInt(30000)), "got %s", res.TotalAmount)

	tx, err := env.svc.Get(context.Background(), res.TransactionID)
	require.NoError(t, err)
	require.Equal(t, types.TransactionStatusPending, tx.Status)
	require.Len(t, tx.Items, 1)
	require.True(t, tx.ItemsTotal().Equal(tx.TotalAmount))
	require.Equal(t, "ML100", tx.Items[0].DigiflazzSKU)
	require.NotNil(t, tx.CustomerID)
}

func TestCreate_QuantityOutOfBounds_NoRow(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Create(context.Background(), &TopUpRequest{
		GameID:     1,
		ProductID:  1,
		Quantity:   6,
		GameUserID: "123456789",
	})
	require.ErrorIs(t, err, pricing.ErrValidation)
	require.Empty(t, env.store.txs)
}

func TestCreate_GuestWithoutIdentity(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.svc.Create(context.Background(), &TopUpRequest{
		GameID:     1,
		ProductID:  1,
		Quantity:   1,
		GameUserID: "123456789",
	})
	require.NoError(t, err)

	tx, err := env.svc.Get(context.Background(), res.TransactionID)
	require.NoError(t, err)
	require.Nil(t, tx.CustomerID)
}

func TestCreate_PaymentMethodFeeNotFoldedIntoTotal(t *testing.T) {
	env := newTestEnv(t)
	env.svc.catalog = &fakeCatalog{
		products: map[uint]*models.Product{1: testProduct()},
		methods: map[string]*models.PaymentMethod{
			"qris": {
				Slug:          "qris",
				MinAmount:     decimal.NewFromInt(1000),
				MaxAmount:     decimal.NewFromInt(10000000),
				FeePercentage: decimal.NewFromFloat(0.015),
				FeeFixed:      decimal.NewFromInt(500),
				IsActive:      true,
			},
		},
	}

	res, err := env.svc.Create(context.Background(), &TopUpRequest{
		GameID:        1,
		ProductID:     1,
		Quantity:      3,
		GameUserID:    "123456789",
		PaymentMethod: "qris",
		CustomerEmail: "buyer@example.com",
	})
	require.NoError(t, err)
	require.True(t, res.TotalAmount.Equal(decimal.NewFromInt(30000)))
	require.True(t, res.Fee.Equal(decimal.NewFromInt(950)), "got %s", res.Fee)
	require.True(t, res.PayableAmount.Equal(decimal.NewFromInt(30950)))

	tx, err := env.svc.Get(context.Background(), res.TransactionID)
	require.NoError(t, err)
	require.True(t, tx.TotalAmount.Equal(decimal.NewFromInt(30000)))
}

func TestCancel_PendingOnly(t *testing.T) {
	env := newTestEnv(t)
	id := env.createPending(t)

	tx, err := env.svc.Cancel(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, types.TransactionStatusCancelled, tx.Status)

	// cancelling again conflicts
	_, err = env.svc.Cancel(context.Background(), id)
	require.ErrorIs(t, err, ErrStateConflict)

	// no gateway call was ever made
	require.Zero(t, env.gateway.orderCount())
}

func TestCancel_AfterDispatchConflicts(t *testing.T) {
	env := newTestEnv(t)
	id := env.createPending(t)

	_, err := env.svc.Dispatch(context.Background(), id)
	require.NoError(t, err)

	_, err = env.svc.Cancel(context.Background(), id)
	require.ErrorIs(t, err, ErrStateConflict)
}

func TestCancel_UnknownTransaction(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Cancel(context.Background(), "TRX-MISSING")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestScanTransactions_Defaults(t *testing.T) {
	env := newTestEnv(t)
	env.createPending(t)
	env.createPending(t)

	res, err := env.svc.ScanTransactions(context.Background(), &ScanTransactionsRequest{})
	require.NoError(t, err)
	require.EqualValues(t, 2, res.Total)
	require.Len(t, res.Items, 2)
}
