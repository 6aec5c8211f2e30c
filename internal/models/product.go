package models

import (
	"time"

	"gorm.io/gorm"
)

// Temperature classes for product handling compatibility.
const (
	TempAmbient      = "ambient"
	TempRefrigerated = "refrigerated"
)

// Product represents a stocked product. Quantities elsewhere in the system
// are always expressed in base units of the product.
type Product struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	SKU         string  `gorm:"unique;not null" json:"sku"`
	Name        string  `gorm:"not null" json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	WeightKg    float64 `json:"weightKg"`
	LengthCm    float64 `json:"lengthCm"`
	WidthCm     float64 `json:"widthCm"`
	HeightCm    float64 `json:"heightCm"`

	// Handling compatibility flags, checked when products share a pallet
	TemperatureClass string `gorm:"type:varchar(20);default:'ambient'" json:"temperatureClass"`
	Hazardous        bool   `gorm:"default:false" json:"hazardous"`

	IsActive  bool           `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	PackagingTypes []PackagingType `gorm:"foreignKey:ProductID" json:"packagingTypes,omitempty"`
}

// TableName specifies the table name for Product model
func (Product) TableName() string {
	return "products"
}

// FootprintCm2 returns the floor area one unit occupies, in cm².
func (p Product) FootprintCm2() float64 {
	return p.LengthCm * p.WidthCm
}

// UnitVolumeM3 returns the volume of one unit in m³.
func (p Product) UnitVolumeM3() float64 {
	return p.LengthCm * p.WidthCm * p.HeightCm / 1_000_000.0
}

// CompatibleWith reports whether two products may share a pallet.
// Mixing temperature classes or hazardous with general cargo is not allowed.
func (p Product) CompatibleWith(other Product) bool {
	if p.TemperatureClass != other.TemperatureClass {
		return false
	}
	if p.Hazardous != other.Hazardous {
		return false
	}
	return true
}

// Pallet represents a physical pallet type with its capacity limits.
type Pallet struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"unique;not null" json:"name"`
	WidthCm     float64 `gorm:"not null" json:"widthCm"`
	LengthCm    float64 `gorm:"not null" json:"lengthCm"`
	MaxHeightCm float64 `gorm:"not null" json:"maxHeightCm"`
	MaxWeightKg float64 `gorm:"not null" json:"maxWeightKg"`

	IsActive  bool      `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Pallet model
func (Pallet) TableName() string {
	return "pallets"
}

// FootprintCm2 returns the usable floor area of the pallet in cm².
func (p Pallet) FootprintCm2() float64 {
	return p.WidthCm * p.LengthCm
}

// MaxVolumeM3 returns the maximum load volume in m³.
func (p Pallet) MaxVolumeM3() float64 {
	return p.WidthCm * p.LengthCm * p.MaxHeightCm / 1_000_000.0
}

// Position represents a named warehouse storage position (aisle/rack/slot).
type Position struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"unique;not null" json:"code"`
	Name      string    `json:"name"`
	IsActive  bool      `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for Position model
func (Position) TableName() string {
	return "positions"
}
