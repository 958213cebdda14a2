package models

import "time"

// SystemConfig is a key/value store for operator-maintained settings.
// Secret entries are redacted on the read surface.
type SystemConfig struct {
	ID          uint      `gorm:"column:id;primaryKey" json:"id"`
	Key         string    `gorm:"column:key;type:varchar(100);uniqueIndex;not null" json:"key"`
	Value       string    `gorm:"column:value;type:varchar(1000);not null" json:"value"`
	Description *string   `gorm:"column:description;type:varchar(200)" json:"description"`
	IsSecret    bool      `gorm:"column:is_secret;default:false" json:"is_secret"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (SystemConfig) TableName() string { return "system_configs" }
