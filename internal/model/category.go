package model

import (
	"time"
)

// Category is a global, name-unique grouping that videos may reference
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"size:500" json:"description,omitempty"`
	CreatedBy   *uint     `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName returns the table name for Category
func (Category) TableName() string {
	return "categories"
}
