package customer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumostore/topup/internal/models"
)

type memStore struct {
	customers []*models.Customer
	nextID    uint
}

func newMemStore() *memStore { return &memStore{nextID: 1} }

func (m *memStore) FindByEmail(_ context.Context, email string) (*models.Customer, error) {
	for _, c := range m.customers {
		if c.Email != nil && *c.Email == email {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindByPhone(_ context.Context, phone string) (*models.Customer, error) {
	for _, c := range m.customers {
		if c.Phone != nil && *c.Phone == phone {
			return c, nil
		}
	}
	return nil, nil
}

func (m *memStore) Create(_ context.Context, c *models.Customer) error {
	c.ID = m.nextID
	m.nextID++
	m.customers = append(m.customers, c)
	return nil
}

func (m *memStore) ApplySuccess(_ context.Context, id uint, amount decimal.Decimal, at time.Time) error {
	for _, c := range m.customers {
		if c.ID == id {
			c.TotalSpent = c.TotalSpent.Add(amount)
			c.TotalTransactions++
			c.LastTransactionAt = &at
			return nil
		}
	}
	return errors.New("customer not found")
}

func strPtr(s string) *string { return &s }

func newTestService(store Store) *Service {
	return NewService(store, zap.NewNop().Sugar())
}

func TestResolve_CreatesUnregisteredCustomer(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	c, err := svc.Resolve(context.Background(), "Alex@Example.com", "", "Alex")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, uint(1), c.ID)
	assert.Equal(t, "alex@example.com", *c.Email)
	assert.Nil(t, c.Phone)
	assert.Equal(t, "Alex", *c.Name)
	assert.False(t, c.IsRegistered)
}

func TestResolve_MatchesByEmailFirst(t *testing.T) {
	store := newMemStore()
	existing := &models.Customer{Email: strPtr("alex@example.com"), Phone: strPtr("0811000")}
	require.NoError(t, store.Create(context.Background(), existing))
	svc := newTestService(store)

	c, err := svc.Resolve(context.Background(), "alex@example.com", "0899999", "")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, c.ID)
	require.Len(t, store.customers, 1)
}

func TestResolve_MatchesByPhone(t *testing.T) {
	store := newMemStore()
	existing := &models.Customer{Phone: strPtr("0811000")}
	require.NoError(t, store.Create(context.Background(), existing))
	svc := newTestService(store)

	c, err := svc.Resolve(context.Background(), "", "0811000", "")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, c.ID)
}

func TestResolve_AmbiguousIdentity(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Create(context.Background(), &models.Customer{Email: strPtr("alex@example.com")}))
	require.NoError(t, store.Create(context.Background(), &models.Customer{Phone: strPtr("0811000")}))
	svc := newTestService(store)

	_, err := svc.Resolve(context.Background(), "alex@example.com", "0811000", "")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrAmbiguousIdentity))
	// No new customer is created on the ambiguous path.
	require.Len(t, store.customers, 2)
}

func TestResolve_IdentityRequired(t *testing.T) {
	svc := newTestService(newMemStore())

	_, err := svc.Resolve(context.Background(), "  ", "", "Alex")
	require.True(t, errors.Is(err, ErrIdentityRequired))
}

func TestApplySuccess_AccumulatesStats(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	c, err := svc.Resolve(context.Background(), "alex@example.com", "", "")
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, svc.ApplySuccess(context.Background(), c.ID, decimal.RequireFromString("30000"), now))
	require.NoError(t, svc.ApplySuccess(context.Background(), c.ID, decimal.RequireFromString("15000.50"), now))

	stored := store.customers[0]
	assert.True(t, stored.TotalSpent.Equal(decimal.RequireFromString("45000.50")))
	assert.Equal(t, 2, stored.TotalTransactions)
	require.NotNil(t, stored.LastTransactionAt)
}
