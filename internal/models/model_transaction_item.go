package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionItem is a line item owned by exactly one Transaction. UnitPrice
// and TotalPrice are snapshots captured at creation time; later catalog price
// changes never alter a placed order.
type TransactionItem struct {
	ID            uint            `gorm:"column:id;primaryKey" json:"id"`
	TransactionID string          `gorm:"column:transaction_id;type:varchar(100);index;not null" json:"transaction_id"`
	ProductID     uint            `gorm:"column:product_id;index;not null" json:"product_id"`
	Quantity      int             `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	TotalPrice    decimal.Decimal `gorm:"column:total_price;type:numeric(12,2);not null" json:"total_price"`
	DigiflazzSKU  string          `gorm:"column:digiflazz_sku;type:varchar(50);not null" json:"digiflazz_sku"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (TransactionItem) TableName() string { return "transaction_items" }
