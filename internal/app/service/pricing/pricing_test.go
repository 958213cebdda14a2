package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumostore/topup/internal/models"
	"github.com/lumostore/topup/pkg/types"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func catalogFixture() map[uint]*models.Product {
	return map[uint]*models.Product{
		1: {
			ID: 1, DigiflazzSKU: "ml86", Price: dec("10000"),
			IsActive: true, StockStatus: types.StockStatusAvailable,
			MinimumPurchase: 1, MaximumPurchase: 5,
		},
		2: {
			ID: 2, DigiflazzSKU: "ml172", Price: dec("19999.99"),
			IsActive: true, StockStatus: types.StockStatusAvailable,
			MinimumPurchase: 1, MaximumPurchase: 10,
		},
		3: {
			ID: 3, DigiflazzSKU: "ffdm100", Price: dec("15000"),
			IsActive: true, StockStatus: types.StockStatusOutOfStock,
			MinimumPurchase: 1, MaximumPurchase: 5,
		},
		4: {
			ID: 4, DigiflazzSKU: "pubguc60", Price: dec("14500"),
			IsActive: false, StockStatus: types.StockStatusAvailable,
			MinimumPurchase: 1, MaximumPurchase: 5,
		},
	}
}

func TestComputeTotals_SingleSelection(t *testing.T) {
	e := NewEngine()

	quote, err := e.ComputeTotals(catalogFixture(), []Selection{{ProductID: 1, Quantity: 3}}, nil)
	require.NoError(t, err)
	require.Len(t, quote.Items, 1)
	assert.True(t, quote.Items[0].UnitPrice.Equal(dec("10000")))
	assert.True(t, quote.Items[0].TotalPrice.Equal(dec("30000")))
	assert.True(t, quote.ItemsTotal.Equal(dec("30000")))
	assert.True(t, quote.PayableAmount.Equal(dec("30000")))
	assert.True(t, quote.Fee.IsZero())
}

func TestComputeTotals_MultiItemNoDrift(t *testing.T) {
	e := NewEngine()

	quote, err := e.ComputeTotals(catalogFixture(), []Selection{
		{ProductID: 1, Quantity: 3},
		{ProductID: 2, Quantity: 7},
	}, nil)
	require.NoError(t, err)
	require.Len(t, quote.Items, 2)

	// 19999.99 * 7 = 139999.93 exactly; the sum must carry no float drift.
	assert.True(t, quote.Items[1].TotalPrice.Equal(dec("139999.93")))
	assert.True(t, quote.ItemsTotal.Equal(dec("169999.93")))

	sum := decimal.Zero
	for _, item := range quote.Items {
		require.True(t, item.TotalPrice.Equal(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))))
		sum = sum.Add(item.TotalPrice)
	}
	assert.True(t, sum.Equal(quote.ItemsTotal))
}

func TestComputeTotals_ValidationFailures(t *testing.T) {
	e := NewEngine()
	tests := []struct {
		name       string
		selections []Selection
	}{
		{name: "empty selection", selections: nil},
		{name: "unknown product", selections: []Selection{{ProductID: 99, Quantity: 1}}},
		{name: "inactive product", selections: []Selection{{ProductID: 4, Quantity: 1}}},
		{name: "out of stock", selections: []Selection{{ProductID: 3, Quantity: 1}}},
		{name: "quantity above maximum", selections: []Selection{{ProductID: 1, Quantity: 6}}},
		{name: "quantity below minimum", selections: []Selection{{ProductID: 1, Quantity: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.ComputeTotals(catalogFixture(), tt.selections, nil)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrValidation))
		})
	}
}

func TestComputeTotals_PaymentMethodFee(t *testing.T) {
	e := NewEngine()
	method := &models.PaymentMethod{
		Slug:          "dana",
		MinAmount:     dec("1000"),
		MaxAmount:     dec("10000000"),
		FeePercentage: dec("0.0150"),
		FeeFixed:      dec("500"),
	}

	quote, err := e.ComputeTotals(catalogFixture(), []Selection{{ProductID: 1, Quantity: 3}}, method)
	require.NoError(t, err)

	// fee = trunc(30000 * 0.015) + 500 = 950; total_amount stays 30000.
	assert.True(t, quote.ItemsTotal.Equal(dec("30000")))
	assert.True(t, quote.Fee.Equal(dec("950")))
	assert.True(t, quote.PayableAmount.Equal(dec("30950")))
}

func TestComputeTotals_FeeTruncatesAtCent(t *testing.T) {
	e := NewEngine()
	method := &models.PaymentMethod{
		Slug:          "ovo",
		MinAmount:     dec("1000"),
		MaxAmount:     dec("10000000"),
		FeePercentage: dec("0.0333"),
	}

	quote, err := e.ComputeTotals(catalogFixture(), []Selection{{ProductID: 2, Quantity: 1}}, method)
	require.NoError(t, err)

	// 19999.99 * 0.0333 = 665.999667 -> truncated to 665.99, never 666.00.
	assert.True(t, quote.Fee.Equal(dec("665.99")), "got %s", quote.Fee)
}

func TestComputeTotals_PaymentMethodRange(t *testing.T) {
	e := NewEngine()

	tooSmall := &models.PaymentMethod{Slug: "va", MinAmount: dec("50000"), MaxAmount: dec("10000000")}
	_, err := e.ComputeTotals(catalogFixture(), []Selection{{ProductID: 1, Quantity: 3}}, tooSmall)
	require.True(t, errors.Is(err, ErrPaymentMethodRange))

	tooBig := &models.PaymentMethod{Slug: "qris", MinAmount: dec("1000"), MaxAmount: dec("20000")}
	_, err = e.ComputeTotals(catalogFixture(), []Selection{{ProductID: 1, Quantity: 3}}, tooBig)
	require.True(t, errors.Is(err, ErrPaymentMethodRange))
}
