package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lumostore/topup/internal/models"
)

// Selection is one product pick with its quantity.
type Selection struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// LineItem is a priced selection. UnitPrice and TotalPrice are the snapshot
// values a transaction item is created from.
type LineItem struct {
	ProductID    uint            `json:"product_id"`
	DigiflazzSKU string          `json:"digiflazz_sku"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
}

// Quote is the authoritative pricing of a selection set. ItemsTotal is the
// sum of line totals and becomes the transaction's total_amount. Fee and
// PayableAmount only apply when a payment method is involved; the fee is a
// channel charge on top, never folded into the transaction total.
type Quote struct {
	Items         []LineItem      `json:"items"`
	ItemsTotal    decimal.Decimal `json:"items_total"`
	Fee           decimal.Decimal `json:"fee"`
	PayableAmount decimal.Decimal `json:"payable_amount"`
}

// Engine computes quotes over a catalog snapshot. It is pure: callers pass
// the product data in, nothing is read or written elsewhere.
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// ComputeTotals prices the selections against the given products. All
// arithmetic is fixed-point decimal, truncated (not rounded) at the cent.
func (e *Engine) ComputeTotals(products map[uint]*models.Product, selections []Selection, method *models.PaymentMethod) (*Quote, error) {
	if len(selections) == 0 {
		return nil, fmt.Errorf("%w: empty selection", ErrValidation)
	}

	quote := &Quote{ItemsTotal: decimal.Zero}
	for _, sel := range selections {
		product, ok := products[sel.ProductID]
		if !ok || !product.IsActive {
			return nil, fmt.Errorf("%w: product %d not found or inactive", ErrValidation, sel.ProductID)
		}
		if !product.Purchasable() {
			return nil, fmt.Errorf("%w: product %s is not available (stock: %s)",
				ErrValidation, product.DigiflazzSKU, product.StockStatus)
		}
		if sel.Quantity < product.MinimumPurchase || sel.Quantity > product.MaximumPurchase {
			return nil, fmt.Errorf("%w: quantity %d for product %s outside [%d, %d]",
				ErrValidation, sel.Quantity, product.DigiflazzSKU, product.MinimumPurchase, product.MaximumPurchase)
		}

		unit := product.Price.Truncate(2)
		total := unit.Mul(decimal.NewFromInt(int64(sel.Quantity))).Truncate(2)
		quote.Items = append(quote.Items, LineItem{
			ProductID:    product.ID,
			DigiflazzSKU: product.DigiflazzSKU,
			Quantity:     sel.Quantity,
			UnitPrice:    unit,
			TotalPrice:   total,
		})
		quote.ItemsTotal = quote.ItemsTotal.Add(total)
	}

	quote.PayableAmount = quote.ItemsTotal
	if method != nil {
		quote.Fee = quote.ItemsTotal.Mul(method.FeePercentage).Truncate(2).Add(method.FeeFixed)
		quote.PayableAmount = quote.ItemsTotal.Add(quote.Fee)
		if quote.PayableAmount.LessThan(method.MinAmount) || quote.PayableAmount.GreaterThan(method.MaxAmount) {
			return nil, fmt.Errorf("%w: amount %s outside [%s, %s] for method %s",
				ErrPaymentMethodRange, quote.PayableAmount, method.MinAmount, method.MaxAmount, method.Slug)
		}
	}
	return quote, nil
}
