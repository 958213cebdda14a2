package models

import (
	"time"

	"gorm.io/datatypes"
)

// ApiLog is one immutable record per external call attempt. Rows are only
// ever appended; they form the audit trail for financial reconciliation and
// back the dispatch idempotency check.
type ApiLog struct {
	ID             uint           `gorm:"column:id;primaryKey" json:"id"`
	Service        string         `gorm:"column:service;type:varchar(50);index;not null" json:"service"`
	Endpoint       string         `gorm:"column:endpoint;type:varchar(200);not null" json:"endpoint"`
	Method         string         `gorm:"column:method;type:varchar(10);not null" json:"method"`
	RequestData    datatypes.JSON `gorm:"column:request_data;type:jsonb" json:"request_data"`
	ResponseData   datatypes.JSON `gorm:"column:response_data;type:jsonb" json:"response_data"`
	StatusCode     *int           `gorm:"column:status_code" json:"status_code"`
	ResponseTimeMs *int64         `gorm:"column:response_time_ms" json:"response_time_ms"`
	ErrorMessage   *string        `gorm:"column:error_message;type:varchar(500)" json:"error_message"`
	// RequestHash is a sha256 over the canonical request payload, used to
	// recognize retried attempts of the same dispatch.
	RequestHash   string    `gorm:"column:request_hash;type:varchar(64);index" json:"request_hash"`
	TransactionID *string   `gorm:"column:transaction_id;type:varchar(100);index" json:"transaction_id"`
	Outcome       string    `gorm:"column:outcome;type:varchar(20);index" json:"outcome"`
	CreatedAt     time.Time `json:"created_at"`
}

func (ApiLog) TableName() string { return "api_logs" }

// Ledger outcome markers. "success" and "failed" are definitive; "transient"
// records an attempt that will be retried.
const (
	ApiLogOutcomeSuccess   = "success"
	ApiLogOutcomePending   = "pending"
	ApiLogOutcomeFailed    = "failed"
	ApiLogOutcomeTransient = "transient"
)
