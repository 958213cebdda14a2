package models

import (
	"time"

	"github.com/lumostore/topup/pkg/types"
)

// Game is a catalog entry for a game available for top-up. Identity (slug)
// is immutable once created; display and activation fields are mutable.
type Game struct {
	ID                uint               `gorm:"column:id;primaryKey" json:"id"`
	Name              string             `gorm:"column:name;type:varchar(100);index;not null" json:"name"`
	Slug              string             `gorm:"column:slug;type:varchar(100);uniqueIndex;not null" json:"slug"`
	Category          types.GameCategory `gorm:"column:category;type:varchar(32);default:other" json:"category"`
	Description       string             `gorm:"column:description;type:varchar(500)" json:"description"`
	IconURL           *string            `gorm:"column:icon_url;type:varchar(255)" json:"icon_url"`
	BannerURL         *string            `gorm:"column:banner_url;type:varchar(255)" json:"banner_url"`
	Publisher         string             `gorm:"column:publisher;type:varchar(100);not null" json:"publisher"`
	IsActive          bool               `gorm:"column:is_active;default:true" json:"is_active"`
	DigiflazzBrand    string             `gorm:"column:digiflazz_brand;type:varchar(50);not null" json:"digiflazz_brand"`
	UserIDLabel       string             `gorm:"column:user_id_label;type:varchar(50);default:'User ID'" json:"user_id_label"`
	UserIDPlaceholder string             `gorm:"column:user_id_placeholder;type:varchar(100);default:'Enter your game User ID'" json:"user_id_placeholder"`
	UserIDHelpText    *string            `gorm:"column:user_id_help_text;type:varchar(200)" json:"user_id_help_text"`
	SortOrder         int                `gorm:"column:sort_order;default:0" json:"sort_order"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`

	Products []*Product `gorm:"foreignKey:GameID" json:"products,omitempty"`
}

func (Game) TableName() string { return "games" }
