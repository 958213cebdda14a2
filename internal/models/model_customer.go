package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer identifies a purchaser by email and/or phone. Guest checkouts
// create unregistered customers lazily. TotalSpent and TotalTransactions are
// monotonically non-decreasing and updated only on transaction success.
type Customer struct {
	ID                     uint            `gorm:"column:id;primaryKey" json:"id"`
	Email                  *string         `gorm:"column:email;type:varchar(255);index" json:"email"`
	Phone                  *string         `gorm:"column:phone;type:varchar(20);index" json:"phone"`
	Name                   *string         `gorm:"column:name;type:varchar(100)" json:"name"`
	IsRegistered           bool            `gorm:"column:is_registered;default:false" json:"is_registered"`
	TotalSpent             decimal.Decimal `gorm:"column:total_spent;type:numeric(12,2);default:0" json:"total_spent"`
	TotalTransactions      int             `gorm:"column:total_transactions;default:0" json:"total_transactions"`
	LastTransactionAt      *time.Time      `gorm:"column:last_transaction_at" json:"last_transaction_at"`
	PreferredPaymentMethod *string         `gorm:"column:preferred_payment_method;type:varchar(50)" json:"preferred_payment_method"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }
