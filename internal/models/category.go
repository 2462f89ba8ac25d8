package models

type Category struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Description *string `gorm:"type:text" json:"description"`
	ParentID    *uint   `gorm:"index" json:"parent_id"`
	CreatedAt   int64   `gorm:"autoCreateTime:milli;not null" json:"created_at"`

	Parent *Category `gorm:"foreignKey:ParentID;constraint:OnDelete:SET NULL" json:"-"`
}
