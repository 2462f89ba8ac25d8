package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Description  *string         `gorm:"type:text" json:"description"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	CategoryID   *uint           `gorm:"index" json:"category_id"`
	ImageURL     *string         `gorm:"type:varchar(512)" json:"image_url"`
	Stock        int             `gorm:"not null" json:"stock"`
	Active       bool            `gorm:"not null;index" json:"active"`
	Action       *string         `gorm:"type:varchar(100)" json:"action"`
	ActionParams *string         `gorm:"type:text" json:"action_params"`
	CreatedAt    int64           `gorm:"autoCreateTime:milli;not null;index" json:"created_at"`

	// CategoryName is only populated by catalog reads that join categories.
	CategoryName *string `gorm:"->;-:migration" json:"category_name,omitempty"`

	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"-"`
}

// DecodeActionParams returns the stored action parameters. Missing or
// malformed JSON yields an empty map.
func (p *Product) DecodeActionParams() map[string]any {
	params := map[string]any{}
	if p.ActionParams == nil || *p.ActionParams == "" {
		return params
	}
	if err := json.Unmarshal([]byte(*p.ActionParams), &params); err != nil || params == nil {
		return map[string]any{}
	}
	return params
}
