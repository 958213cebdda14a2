package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumostore/topup/pkg/types"
)

// PaymentMethod is a payment channel configuration. It is a read-only input
// to fee computation, not part of the transaction aggregate.
type PaymentMethod struct {
	ID            uint                    `gorm:"column:id;primaryKey" json:"id"`
	Name          string                  `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Slug          string                  `gorm:"column:slug;type:varchar(50);uniqueIndex;not null" json:"slug"`
	Provider      string                  `gorm:"column:provider;type:varchar(50);not null" json:"provider"`
	Type          types.PaymentMethodType `gorm:"column:type;type:varchar(30);not null" json:"type"`
	IconURL       *string                 `gorm:"column:icon_url;type:varchar(255)" json:"icon_url"`
	Description   *string                 `gorm:"column:description;type:varchar(200)" json:"description"`
	MinAmount     decimal.Decimal         `gorm:"column:min_amount;type:numeric(12,2);default:1000" json:"min_amount"`
	MaxAmount     decimal.Decimal         `gorm:"column:max_amount;type:numeric(12,2);default:10000000" json:"max_amount"`
	FeePercentage decimal.Decimal         `gorm:"column:fee_percentage;type:numeric(8,4);default:0" json:"fee_percentage"`
	FeeFixed      decimal.Decimal         `gorm:"column:fee_fixed;type:numeric(12,2);default:0" json:"fee_fixed"`
	IsActive      bool                    `gorm:"column:is_active;default:true" json:"is_active"`
	SortOrder     int                     `gorm:"column:sort_order;default:0" json:"sort_order"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

func (PaymentMethod) TableName() string { return "payment_methods" }
