package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/lumostore/topup/pkg/types"
)

// Transaction is the aggregate root of a purchase. TransactionID is the
// internally generated reference, stable for the transaction's lifetime;
// DigiflazzRefID is assigned by the fulfillment provider once the order is
// accepted. TotalAmount is computed once at creation and never recomputed.
type Transaction struct {
	ID                uint                    `gorm:"column:id;primaryKey" json:"id"`
	TransactionID     string                  `gorm:"column:transaction_id;type:varchar(100);uniqueIndex;not null" json:"transaction_id"`
	DigiflazzRefID    *string                 `gorm:"column:digiflazz_ref_id;type:varchar(100);index" json:"digiflazz_ref_id"`
	CustomerID        *uint                   `gorm:"column:customer_id;index" json:"customer_id"`
	GameID            uint                    `gorm:"column:game_id;index;not null" json:"game_id"`
	GameUserID        string                  `gorm:"column:game_user_id;type:varchar(100);not null" json:"game_user_id"`
	GameUserServer    *string                 `gorm:"column:game_user_server;type:varchar(50)" json:"game_user_server"`
	Status            types.TransactionStatus `gorm:"column:status;type:varchar(20);index;default:pending" json:"status"`
	TotalAmount       decimal.Decimal         `gorm:"column:total_amount;type:numeric(12,2);not null" json:"total_amount"`
	PaymentMethod     *string                 `gorm:"column:payment_method;type:varchar(50)" json:"payment_method"`
	PaymentReference  *string                 `gorm:"column:payment_reference;type:varchar(100)" json:"payment_reference"`
	Notes             *string                 `gorm:"column:notes;type:varchar(500)" json:"notes"`
	ErrorMessage      *string                 `gorm:"column:error_message;type:varchar(500)" json:"error_message"`
	DigiflazzResponse datatypes.JSON          `gorm:"column:digiflazz_response;type:jsonb" json:"digiflazz_response"`
	ProcessedAt       *time.Time              `gorm:"column:processed_at" json:"processed_at"`
	CompletedAt       *time.Time              `gorm:"column:completed_at" json:"completed_at"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`

	Items []*TransactionItem `gorm:"foreignKey:TransactionID;references:TransactionID" json:"items,omitempty"`
}

func (Transaction) TableName() string { return "transactions" }

// ItemsTotal sums the line totals of the attached items.
func (t *Transaction) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range t.Items {
		sum = sum.Add(item.TotalPrice)
	}
	return sum
}
