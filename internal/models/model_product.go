package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumostore/topup/pkg/types"
)

// Product is a purchasable top-up denomination belonging to exactly one Game,
// identified by its provider SKU.
type Product struct {
	ID                 uint              `gorm:"column:id;primaryKey" json:"id"`
	GameID             uint              `gorm:"column:game_id;index;not null" json:"game_id"`
	DigiflazzSKU       string            `gorm:"column:digiflazz_sku;type:varchar(50);uniqueIndex;not null" json:"digiflazz_sku"`
	Name               string            `gorm:"column:name;type:varchar(200);not null" json:"name"`
	Description        string            `gorm:"column:description;type:varchar(500)" json:"description"`
	Denomination       string            `gorm:"column:denomination;type:varchar(100);not null" json:"denomination"`
	Price              decimal.Decimal   `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	OriginalPrice      *decimal.Decimal  `gorm:"column:original_price;type:numeric(12,2)" json:"original_price"`
	DiscountPercentage *int              `gorm:"column:discount_percentage" json:"discount_percentage"`
	Category           string            `gorm:"column:category;type:varchar(50)" json:"category"`
	IsActive           bool              `gorm:"column:is_active;default:true" json:"is_active"`
	IsFeatured         bool              `gorm:"column:is_featured;default:false" json:"is_featured"`
	SortOrder          int               `gorm:"column:sort_order;default:0" json:"sort_order"`
	StockStatus        types.StockStatus `gorm:"column:stock_status;type:varchar(20);default:available" json:"stock_status"`
	MinimumPurchase    int               `gorm:"column:minimum_purchase;default:1" json:"minimum_purchase"`
	MaximumPurchase    int               `gorm:"column:maximum_purchase;default:10" json:"maximum_purchase"`
	ProcessingTime     string            `gorm:"column:processing_time;type:varchar(50);default:'1-5 minutes'" json:"processing_time"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func (Product) TableName() string { return "products" }

// Validate enforces the catalog invariants: discounted products must not be
// priced above their original price, and the purchase bounds must be ordered.
func (p *Product) Validate() error {
	if p.MinimumPurchase < 1 {
		return fmt.Errorf("product %s: minimum_purchase must be at least 1", p.DigiflazzSKU)
	}
	if p.MinimumPurchase > p.MaximumPurchase {
		return fmt.Errorf("product %s: minimum_purchase %d exceeds maximum_purchase %d",
			p.DigiflazzSKU, p.MinimumPurchase, p.MaximumPurchase)
	}
	if p.DiscountPercentage != nil {
		if *p.DiscountPercentage < 0 || *p.DiscountPercentage > 100 {
			return fmt.Errorf("product %s: discount_percentage %d out of range", p.DigiflazzSKU, *p.DiscountPercentage)
		}
		if p.OriginalPrice == nil {
			return fmt.Errorf("product %s: discount set without original_price", p.DigiflazzSKU)
		}
		if p.Price.GreaterThan(*p.OriginalPrice) {
			return fmt.Errorf("product %s: price %s exceeds original_price %s",
				p.DigiflazzSKU, p.Price, p.OriginalPrice)
		}
	}
	return nil
}

// Purchasable reports whether the product can be ordered right now.
func (p *Product) Purchasable() bool {
	return p.IsActive && p.StockStatus == types.StockStatusAvailable
}
