package models

import (
	"time"

	"gorm.io/gorm"
)

// PackagingType is one level of a product's packaging hierarchy.
// The hierarchy forms a tree: the root is the largest grouping, leaves the
// smallest. Exactly one level per product is the base unit, with
// BaseUnitQuantity = 1. A parent's BaseUnitQuantity is always an integer
// multiple of every descendant's, which keeps greedy decomposition exact.
//
// Parent/child links are stored as ids (arena style), never as embedded
// object cycles.
type PackagingType struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	ProductID        uint   `gorm:"index;not null" json:"productId"`
	Name             string `gorm:"not null" json:"name"`
	BaseUnitQuantity int64  `gorm:"not null" json:"baseUnitQuantity"`
	IsBaseUnit       bool   `gorm:"default:false" json:"isBaseUnit"`
	ParentID         *uint  `gorm:"index" json:"parentId,omitempty"`
	// Level is derived from the parent chain: root = 1
	Level int `gorm:"not null;default:1" json:"level"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for PackagingType model
func (PackagingType) TableName() string {
	return "packaging_types"
}
